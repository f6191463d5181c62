package worldgen

// World is the root of an object tree: the only object type the driver's
// Generate entry point accepts.
type World struct {
	GameObject

	startedGeneration bool

	RequiredGoals *Vertex
	OptionalGoals *Vertex

	goalsBuilt bool
}

// NewWorld constructs an empty world with its two goal-aggregate vertices
// already parented.
func NewWorld() *World {
	w := &World{}
	w.Object = newObject("World", w)
	w.RequiredGoals = NewVertex(w.Object, "RequiredGoals")
	w.OptionalGoals = NewVertex(w.Object, "OptionalGoals")
	return w
}

// StartedGeneration reports whether this world is (or was) the live
// working copy of a generation run.
func (w *World) StartedGeneration() bool { return w.startedGeneration }

// FastDeduce binds the two aggregate goal vertices' conditions from the
// world's current descendant Goal objects, the first time it runs (a
// vertex's condition may only be set once), then lets normal vertex
// deduction take over on subsequent rounds.
func (w *World) FastDeduce(g *Generation) error {
	if !w.goalsBuilt {
		w.buildGoalVertices()
		w.goalsBuilt = true
		g.MarkFastDeduction(w.RequiredGoals.Object)
		g.MarkFastDeduction(w.OptionalGoals.Object)
	}
	return nil
}

func (w *World) buildGoalVertices() {
	goals := DescendantsByType[*Goal](w.Object)
	var required, optional []Condition
	for _, goal := range goals {
		switch goal.Configuration() {
		case GoalRequired:
			required = append(required, VertexC(goal.Reachable()))
		case GoalOptional:
			optional = append(optional, VertexC(goal.Reachable()))
		}
	}
	_ = w.RequiredGoals.SetCondition(All(required...))
	_ = w.RequiredGoals.SetNecessaryCondition(All(required...))
	_ = w.RequiredGoals.SetSufficientCondition(All(required...))
	_ = w.OptionalGoals.SetCondition(Any(optional...))
	_ = w.OptionalGoals.SetNecessaryCondition(Any(optional...))
	_ = w.OptionalGoals.SetSufficientCondition(Any(optional...))
}

func (w *World) CollectDependencies() map[*Object]struct{} {
	return map[*Object]struct{}{w.RequiredGoals.Object: {}, w.OptionalGoals.Object: {}}
}

func (w *World) forkClone() Node {
	nw := *w
	return &nw
}

// RemapRefs rewrites the two goal-aggregate vertex pointers through
// oldToNew; both are the world's own children, already cloned by the time
// this runs.
func (w *World) RemapRefs(oldToNew map[*Object]*Object) {
	w.RequiredGoals = remapVertex(oldToNew, w.RequiredGoals)
	w.OptionalGoals = remapVertex(oldToNew, w.OptionalGoals)
}
