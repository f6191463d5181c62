package worldgen

// GoalConfiguration gates whether a Goal counts toward the world's
// RequiredGoals or OptionalGoals aggregate vertex.
type GoalConfiguration int

const (
	GoalRequired GoalConfiguration = iota
	GoalOptional
	GoalIgnore
)

// Attribute keys under which Goal stores its configuration in its Object's
// local dictionary - both are fixed at construction, but routed through
// the store regardless so the whole domain layer leans on one copy-on-write
// mechanism instead of Go-struct-field shallow copy.
const (
	attrGoalConfiguration = "configuration"
	attrGoalReachable     = "reachable"
)

// Goal marks a vertex as a generation objective: Required goals must all be
// reachable in the finished world; Optional goals need only one reachable;
// Ignore goals are tracked but excluded from both aggregates.
type Goal struct {
	GameObject
}

// NewGoal builds a goal parented under parent, watching reachable's
// condition for the world's aggregate RequiredGoals/OptionalGoals vertices.
func NewGoal(parent *Object, name string, reachable *Vertex, config GoalConfiguration) *Goal {
	goal := &Goal{}
	goal.Object = newObject("Goal", goal)
	_ = goal.Object.Set(attrGoalConfiguration, config)
	_ = goal.Object.Set(attrGoalReachable, reachable)
	if parent != nil {
		_ = parent.AddChild(goal.Object, name)
	}
	return goal
}

// Configuration returns the goal's required/optional/ignore classification.
func (g *Goal) Configuration() GoalConfiguration {
	c, _ := g.Obj().GetOr(attrGoalConfiguration, GoalIgnore).(GoalConfiguration)
	return c
}

// Reachable returns the vertex this goal watches.
func (g *Goal) Reachable() *Vertex {
	v, _ := g.Obj().GetOr(attrGoalReachable, (*Vertex)(nil)).(*Vertex)
	return v
}

func (g *Goal) CollectDependencies() map[*Object]struct{} {
	return map[*Object]struct{}{g.Reachable().Object: {}}
}

func (g *Goal) forkClone() Node {
	ng := *g
	return &ng
}

// RemapRefs rewrites Reachable through oldToNew. Reachable is usually a
// vertex elsewhere in the tree (a position's AccessAnyState, say), not
// necessarily this goal's own child, but it is still part of the same
// world subtree and so still present in oldToNew.
func (g *Goal) RemapRefs(oldToNew map[*Object]*Object) {
	_ = g.Obj().Set(attrGoalReachable, remapVertex(oldToNew, g.Reachable()))
}
