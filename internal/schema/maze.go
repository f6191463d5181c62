package schema

import (
	"fmt"

	"github.com/gitrdm/aomg-go/pkg/worldgen"
)

// obstacleValues is the fixed domain of a maze edge's obstacle choice -
// grounded on MazeObstacleChoiceType's values=("Nothing", "Wall").
var obstacleValues = []string{"Nothing", "Wall"}

// ObstacleWeights configures the WeightedStrategy every edge's obstacle
// choice defaults to: WallWeight/NothingWeight determine how likely a wall
// is outright, EvenWeight determines how likely the choice instead falls
// through to an unweighted coin flip between the two. Defaults match the
// original's MazeObstacleChoiceType.default exactly.
type ObstacleWeights struct {
	WallWeight    float64
	NothingWeight float64
	EvenWeight    float64
}

// DefaultObstacleWeights mirrors MazeObstacleChoiceType.default:
// WeightedStrategy(strategies=((3.0,"Wall"), (0.5,"Nothing"), (0.5,EnumEvenDistribution()))).
func DefaultObstacleWeights() ObstacleWeights {
	return ObstacleWeights{WallWeight: 3.0, NothingWeight: 0.5, EvenWeight: 0.5}
}

// NewMazeMap builds a GridMap with the default obstacle weighting; cell
// (0,0) is a StartingPosition - a maze, on its own, offers no path in from
// the outside world, so its origin corner is pinned unconditionally
// reachable the way World.start_position is for the rest of a generated
// world. Grounded on MazeMap.connect_cells_horizontal/connect_cells_vertical
// in the original source.
func NewMazeMap(parent *worldgen.Object, name string) *GridMap {
	return NewMazeMapWithWeights(parent, name, DefaultObstacleWeights())
}

// NewMazeMapWithWeights is NewMazeMap with the obstacle weighting
// overridden, e.g. from a loaded Config.
func NewMazeMapWithWeights(parent *worldgen.Object, name string, weights ObstacleWeights) *GridMap {
	m := NewGridMap(parent, name)
	m.NewCell = mazeNewCell
	m.Connect = [2]ConnectFunc{
		func(grid *GridMap, g *worldgen.Generation, wx, wy int, a, b *worldgen.Position) {
			mazeConnectHorizontal(grid, g, wx, wy, a, b, weights)
		},
		func(grid *GridMap, g *worldgen.Generation, nx, ny int, a, b *worldgen.Position) {
			mazeConnectVertical(grid, g, nx, ny, a, b, weights)
		},
	}
	m.Disconnect = mazeDisconnectCell
	return m
}

func mazeNewCell(grid *GridMap, parent *worldgen.Object, x, y int) *worldgen.Position {
	if x == 0 && y == 0 {
		start := worldgen.NewStartingPosition(parent, cellName(x, y))
		addMovementPorts(start.Position)
		return start.Position
	}
	return defaultNewCell(grid, parent, x, y)
}

// newObstacleChoice builds one edge's Nothing/Wall choice, parented under
// the grid itself (named by the edge it gates) so it survives independent
// of either endpoint cell.
func newObstacleChoice(parent *worldgen.Object, name string, weights ObstacleWeights) *worldgen.EnumChoice {
	obstacle := worldgen.NewEnumChoice(parent, name, obstacleValues...)
	obstacle.SetStrategy(&worldgen.WeightedStrategy{Entries: []worldgen.WeightedEntry{
		{Weight: weights.WallWeight, Value: "Wall"},
		{Weight: weights.NothingWeight, Value: "Nothing"},
		{Weight: weights.EvenWeight, Value: worldgen.EnumEvenDistribution{}},
	}})
	return obstacle
}

func mazeConnectHorizontal(grid *GridMap, g *worldgen.Generation, wx, wy int, west, east *worldgen.Position, weights ObstacleWeights) {
	obstacle := newObstacleChoice(grid.Obj(), fmt.Sprintf("EastObstacle(%d,%d)", wx, wy), weights)
	gateEntry(g, east.Port("West"), obstacle)
	commitFacing(g, west.Port("East"), east.Port("West"))
}

func mazeConnectVertical(grid *GridMap, g *worldgen.Generation, nx, ny int, north, south *worldgen.Position, weights ObstacleWeights) {
	obstacle := newObstacleChoice(grid.Obj(), fmt.Sprintf("SouthObstacle(%d,%d)", nx, ny), weights)
	gateEntry(g, south.Port("North"), obstacle)
	commitFacing(g, north.Port("South"), south.Port("North"))
}

// gateEntry narrows the entering port's CanEnter/CanExit to "the obstacle
// turned out to be Nothing" - gating the edge in both directions: directly
// for travel arriving through this port, and via this port's CanExit for
// travel leaving through it the other way (see MovementPortReachableC).
func gateEntry(g *worldgen.Generation, entering *worldgen.MovementPort, obstacle *worldgen.EnumChoice) {
	open := obstacle.Is("Nothing")
	_ = entering.CanEnter.SetCondition(open)
	_ = entering.CanEnter.SetNecessaryCondition(open)
	_ = entering.CanEnter.SetSufficientCondition(open)
	_ = entering.CanExit.SetCondition(open)
	_ = entering.CanExit.SetNecessaryCondition(open)
	_ = entering.CanExit.SetSufficientCondition(open)
	if g != nil {
		g.MarkFastDeduction(entering.CanEnter.Object)
		g.MarkFastDeduction(entering.CanExit.Object)
	}
}

func mazeDisconnectCell(grid *GridMap, g *worldgen.Generation, x, y int, cell *worldgen.Position) {
	defaultDisconnectCell(grid, g, x, y, cell)
	for _, name := range []string{
		fmt.Sprintf("EastObstacle(%d,%d)", x, y),
		fmt.Sprintf("SouthObstacle(%d,%d)", x, y),
		fmt.Sprintf("EastObstacle(%d,%d)", x-1, y),
		fmt.Sprintf("SouthObstacle(%d,%d)", x, y-1),
	} {
		if child, ok := grid.Obj().Child(name); ok {
			_ = grid.Obj().RemoveChild(child)
		}
	}
}

// MazeGame is a complete maze: its grid, plus an AllPositions goal that is
// reachable only once every cell's AccessAnyState is true. Configuration
// defaults to Optional, matching the original's
// GoalType(Configuration.default="Optional") - a maze need not require
// full exploration to be considered generated successfully.
//
// Grounded on MazeGame.__ctor__ in the original source.
type MazeGame struct {
	worldgen.GameObject

	Map          *GridMap
	AllPositions *worldgen.Goal

	built bool
}

// NewMazeGame builds a maze game parented under parent, with its grid
// still at the GridMap default size (10x10) until Width/Height resolve.
func NewMazeGame(parent *worldgen.Object, name string) *MazeGame {
	return NewMazeGameFromConfig(parent, name, DefaultConfig())
}

// NewMazeGameFromConfig builds a maze game whose grid defaults to cfg's
// Width/Height and whose obstacle choices are weighted from cfg.Obstacle -
// a Width/Height choice still resolves through the normal generation
// lifecycle (a strategy could still override it), but absent one, this is
// the value it commits to.
func NewMazeGameFromConfig(parent *worldgen.Object, name string, cfg Config) *MazeGame {
	game := &MazeGame{}
	game.Object = worldgen.NewContainer("MazeGame", game, parent, name)
	game.Map = NewMazeMapWithWeights(game.Obj(), "Map", cfg.Obstacle.Weights())
	game.Map.Width.SetDefault(cfg.Width)
	game.Map.Height.SetDefault(cfg.Height)
	reachable := worldgen.NewVertex(game.Obj(), "AllPositionsReachable")
	game.AllPositions = worldgen.NewGoal(game.Obj(), "AllPositions", reachable, worldgen.GoalOptional)
	return game
}

// FastDeduce builds AllPositions' condition from the grid's current cells
// the first time every cell exists and has a Position wrapper - cheap to
// call repeatedly since it short-circuits once built, and the grid only
// grows/shrinks through a single OnChoice-triggered Resize per run.
func (game *MazeGame) FastDeduce(g *worldgen.Generation) error {
	if game.built {
		return nil
	}
	if !game.Map.Width.Known() || !game.Map.Height.Known() {
		return nil
	}
	width, _ := game.Map.Width.Value().(int)
	height, _ := game.Map.Height.Value().(int)
	var conds []worldgen.Condition
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			cell, ok := game.Map.CellAt(x, y)
			if !ok {
				return nil
			}
			conds = append(conds, worldgen.VertexC(cell.AccessAnyState))
		}
	}
	cond := worldgen.All(conds...)
	_ = game.AllPositions.Reachable().SetCondition(cond)
	_ = game.AllPositions.Reachable().SetNecessaryCondition(cond)
	_ = game.AllPositions.Reachable().SetSufficientCondition(cond)
	game.built = true
	g.MarkFastDeduction(game.AllPositions.Reachable().Object)
	return nil
}

func (game *MazeGame) CollectDependencies() map[*worldgen.Object]struct{} {
	return map[*worldgen.Object]struct{}{game.AllPositions.Reachable().Object: {}}
}

func (game *MazeGame) forkClone() worldgen.Node {
	ng := *game
	return &ng
}

func (game *MazeGame) RemapRefs(oldToNew map[*worldgen.Object]*worldgen.Object) {
	if nw, ok := oldToNew[game.Map.Obj()]; ok {
		if ngrid, ok2 := nw.Impl().(*GridMap); ok2 {
			game.Map = ngrid
		}
	}
	if nw, ok := oldToNew[game.AllPositions.Obj()]; ok {
		if ngoal, ok2 := nw.Impl().(*worldgen.Goal); ok2 {
			game.AllPositions = ngoal
		}
	}
}
