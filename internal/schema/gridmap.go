// Package schema builds concrete game-object types - a resizable grid of
// Positions, and a maze built on top of it - entirely through
// pkg/worldgen's public object/choice/vertex/port vocabulary. Nothing here
// touches an unexported worldgen field; a schema is an external collaborator
// of the core engine, not a privileged extension of it.
package schema

import (
	"fmt"

	"github.com/gitrdm/aomg-go/pkg/worldgen"
)

// gridDirections lists the four edges every grid cell gets a movement port
// for, in a fixed, deterministic order.
var gridDirections = []string{"North", "South", "East", "West"}

func cellName(x, y int) string {
	return fmt.Sprintf("(%d,%d)", x, y)
}

// NewCellFunc builds the Position occupying (x, y), parented under parent,
// wiring whatever movement ports the concrete schema needs.
type NewCellFunc func(grid *GridMap, parent *worldgen.Object, x, y int) *worldgen.Position

// ConnectFunc wires the shared edge between two newly-adjacent cells -
// committing their facing movement ports to each other, and (for a schema
// like a maze) interposing an obstacle choice that gates the connection.
type ConnectFunc func(grid *GridMap, g *worldgen.Generation, ax, ay int, a, b *worldgen.Position)

// DisconnectFunc releases whatever state ConnectFunc attached before a cell
// is removed from the grid.
type DisconnectFunc func(grid *GridMap, g *worldgen.Generation, x, y int, cell *worldgen.Position)

// GridMap is a resizable rectangle of Positions, each connected to its
// North/South/East/West neighbor. Width and Height are themselves
// unresolved choices during normal generation (resolved once, triggering a
// single Resize via OnChoice); Resize is also directly callable for
// standalone manipulation independent of the choice lifecycle. Cell
// presence lives entirely as named children of the map's own Object - no
// Go-level map field - so forkClone never has to reason about grid
// contents at all.
//
// Grounded on GridMapType in the original source: width/height as
// independent IntegerChoice-like values, on_choice triggering the grid to
// grow/shrink and wire up newly-adjacent cells.
type GridMap struct {
	worldgen.GameObject

	Width  *worldgen.Choice
	Height *worldgen.Choice

	NewCell    NewCellFunc
	Connect    [2]ConnectFunc // [0]=horizontal (west/east), [1]=vertical (north/south)
	Disconnect DisconnectFunc
}

// NewGridMap builds an empty grid map parented under parent, with
// Width/Height defaulting to 10 (matching the original's
// IntegerChoice(minimum=1, default=10)) and plain unobstructed cell wiring.
func NewGridMap(parent *worldgen.Object, name string) *GridMap {
	m := &GridMap{
		NewCell:    defaultNewCell,
		Connect:    [2]ConnectFunc{defaultConnectHorizontal, defaultConnectVertical},
		Disconnect: defaultDisconnectCell,
	}
	m.Object = worldgen.NewContainer("GridMap", m, parent, name)
	m.Width = worldgen.NewChoice(m.Obj(), "Width")
	m.Width.SetDefault(10)
	m.Height = worldgen.NewChoice(m.Obj(), "Height")
	m.Height.SetDefault(10)
	return m
}

// CellAt returns the Position at (x, y), if one currently exists.
func (m *GridMap) CellAt(x, y int) (*worldgen.Position, bool) {
	child, ok := m.Obj().Child(cellName(x, y))
	if !ok {
		return nil, false
	}
	pos, ok := child.Impl().(*worldgen.Position)
	return pos, ok
}

// HasCell reports whether (x, y) is currently part of the grid.
func (m *GridMap) HasCell(x, y int) bool {
	_, ok := m.CellAt(x, y)
	return ok
}

// OnChoice triggers exactly one Resize once both Width and Height have
// committed; a subsequent resize in the same generation run can only
// happen through a direct Resize call (Width/Height are one-shot choices).
func (m *GridMap) OnChoice(g *worldgen.Generation, choice *worldgen.Choice) {
	if choice != m.Width && choice != m.Height {
		return
	}
	if !m.Width.Known() || !m.Height.Known() {
		return
	}
	width, _ := m.Width.Value().(int)
	height, _ := m.Height.Value().(int)
	_ = m.Resize(g, width, height)
}

// Resize grows or shrinks the grid to width x height, adding cells (and
// connecting them to whatever neighbors already exist) and removing cells
// that fall outside the new bounds. g may be nil for a standalone resize
// with no live generation to re-queue - every affected port tolerates a nil
// Generation when committing or disconnecting.
func (m *GridMap) Resize(g *worldgen.Generation, width, height int) error {
	if width < 1 || height < 1 {
		return worldgen.NewUsageError("grid dimensions must be at least 1x1, got %dx%d", width, height)
	}
	x := 0
	for x < width || m.HasCell(x, 0) {
		y := 0
		for y < height || m.HasCell(x, y) {
			switch {
			case x < width && y < height:
				if !m.HasCell(x, y) {
					m.addCell(g, x, y)
				}
			default:
				m.removeCell(g, x, y)
			}
			y++
		}
		x++
	}
	return nil
}

func (m *GridMap) addCell(g *worldgen.Generation, x, y int) {
	cell := m.NewCell(m, m.Obj(), x, y)
	if west, ok := m.CellAt(x-1, y); ok {
		m.Connect[0](m, g, x-1, y, west, cell)
	}
	if north, ok := m.CellAt(x, y-1); ok {
		m.Connect[1](m, g, x, y-1, north, cell)
	}
}

func (m *GridMap) removeCell(g *worldgen.Generation, x, y int) {
	cell, ok := m.CellAt(x, y)
	if !ok {
		return
	}
	m.Disconnect(m, g, x, y, cell)
	_ = m.Obj().RemoveChild(cell.Obj())
}

func (m *GridMap) forkClone() worldgen.Node {
	nm := *m
	return &nm
}

// RemapRefs rewrites Width/Height; grid cells and whatever they reference
// are resolved live through Child()/Impl() rather than cached, so nothing
// else needs remapping here.
func (m *GridMap) RemapRefs(oldToNew map[*worldgen.Object]*worldgen.Object) {
	m.Width = remapChoice(oldToNew, m.Width)
	m.Height = remapChoice(oldToNew, m.Height)
}

func remapChoice(oldToNew map[*worldgen.Object]*worldgen.Object, c *worldgen.Choice) *worldgen.Choice {
	if c == nil {
		return nil
	}
	if nw, ok := oldToNew[c.Obj()]; ok {
		if nc, ok2 := nw.Impl().(*worldgen.Choice); ok2 {
			return nc
		}
	}
	return c
}

func defaultNewCell(grid *GridMap, parent *worldgen.Object, x, y int) *worldgen.Position {
	pos := worldgen.NewPosition(parent, cellName(x, y))
	addMovementPorts(pos)
	return pos
}

// addMovementPorts registers the four compass movement ports a grid cell
// always gets, regardless of which concrete Position constructor built it.
func addMovementPorts(pos *worldgen.Position) {
	for _, dir := range gridDirections {
		pos.AddMovementPort(dir, worldgen.NewMovementPort(pos.Obj(), dir))
	}
}

func defaultConnectHorizontal(grid *GridMap, g *worldgen.Generation, wx, wy int, west, east *worldgen.Position) {
	commitFacing(g, west.Port("East"), east.Port("West"))
}

func defaultConnectVertical(grid *GridMap, g *worldgen.Generation, nx, ny int, north, south *worldgen.Position) {
	commitFacing(g, north.Port("South"), south.Port("North"))
}

func defaultDisconnectCell(grid *GridMap, g *worldgen.Generation, x, y int, cell *worldgen.Position) {
	for _, dir := range gridDirections {
		port := cell.Port(dir)
		if port == nil || port.Known() {
			continue
		}
		_ = port.DisconnectAll(g)
	}
}

// commitFacing connects two already-compatible facing ports and commits
// both sides immediately - a grid edge, once both endpoints exist, is
// always exactly one connection, never contended by further choices.
func commitFacing(g *worldgen.Generation, a, b *worldgen.MovementPort) {
	if a == nil || b == nil || a.Known() || b.Known() {
		return
	}
	if err := a.Connect(g, &b.Port, 1); err != nil {
		return
	}
	_ = a.Commit(g)
	_ = b.Commit(g)
}
