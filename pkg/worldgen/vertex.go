package worldgen

// Attribute keys under which Vertex stores its mutable state in its
// Object's local dictionary, so that fork isolation (a forked vertex's
// condition terms, known-ness and equivalence pointer) runs through the
// same copy-on-write machinery every other branching attribute does,
// rather than a parallel Go-struct-field shallow copy.
const (
	attrIsKnown     = "is_known"
	attrKnownAccess = "known_access"
	attrEquivalent  = "equivalent_to"
	attrCondition   = "condition"
	attrNecessary   = "necessary_condition"
	attrSufficient  = "sufficient_condition"
	attrFixed       = "condition_fixed"
)

// Vertex is a reachability atom: known reachable, known unreachable,
// equivalent to another vertex, or undetermined with three tracked
// condition terms. All of that state lives in the embedded Object's
// dictionary; Vertex itself carries no Go fields beyond GameObject.
type Vertex struct {
	GameObject
}

// NewVertex builds a vertex with all three conditions defaulted to
// self-bound placeholders, and parents it under parent (if non-nil).
func NewVertex(parent *Object, name string) *Vertex {
	v := &Vertex{}
	v.Object = newObject("Vertex", v)
	_ = v.Object.Set(attrCondition, Placeholder("exact", v))
	_ = v.Object.Set(attrNecessary, Placeholder("necessary", v))
	_ = v.Object.Set(attrSufficient, Placeholder("sufficient", v))
	if parent != nil {
		_ = parent.AddChild(v.Object, name)
	}
	return v
}

// IsKnown reports whether the vertex's reachability has been decided.
func (v *Vertex) IsKnown() bool {
	b, _ := v.Obj().GetOr(attrIsKnown, false).(bool)
	return b
}

// KnownAccess reports the decided reachability; only meaningful once
// IsKnown is true.
func (v *Vertex) KnownAccess() bool {
	b, _ := v.Obj().GetOr(attrKnownAccess, false).(bool)
	return b
}

// EquivalentTo returns the vertex this one has collapsed into, or nil.
func (v *Vertex) EquivalentTo() *Vertex {
	t, _ := v.Obj().GetOr(attrEquivalent, (*Vertex)(nil)).(*Vertex)
	return t
}

// Condition returns the vertex's exact (necessary-and-sufficient) term.
func (v *Vertex) Condition() Condition {
	c, _ := v.Obj().GetOr(attrCondition, Condition(nil)).(Condition)
	return c
}

// NecessaryCondition returns the vertex's necessary term.
func (v *Vertex) NecessaryCondition() Condition {
	c, _ := v.Obj().GetOr(attrNecessary, Condition(nil)).(Condition)
	return c
}

// SufficientCondition returns the vertex's sufficient term.
func (v *Vertex) SufficientCondition() Condition {
	c, _ := v.Obj().GetOr(attrSufficient, Condition(nil)).(Condition)
	return c
}

func (v *Vertex) conditionFixed() bool {
	b, _ := v.Obj().GetOr(attrFixed, false).(bool)
	return b
}

func (v *Vertex) setIsKnown(b bool)     { _ = v.Obj().Set(attrIsKnown, b) }
func (v *Vertex) setKnownAccess(b bool) { _ = v.Obj().Set(attrKnownAccess, b) }
func (v *Vertex) setEquivalentTo(t *Vertex) {
	_ = v.Obj().Set(attrEquivalent, t)
}

// SetCondition assigns the vertex's exact condition. Once the vertex has
// completed its first FastDeduce this is rejected for anything but the
// still-untouched initial placeholder; callers must use Substitute
// afterward.
func (v *Vertex) SetCondition(c Condition) error {
	if v.conditionFixed() {
		if _, ok := v.Condition().(*placeholderCondition); !ok {
			return NewUsageError("condition is fixed on %s, use Substitute", v.Obj().describe())
		}
	}
	return v.Obj().Set(attrCondition, c)
}

// SetNecessaryCondition assigns the vertex's necessary condition, subject
// to the same monotonicity rule as SetCondition.
func (v *Vertex) SetNecessaryCondition(c Condition) error {
	if v.conditionFixed() {
		if _, ok := v.NecessaryCondition().(*placeholderCondition); !ok {
			return NewUsageError("necessary_condition is fixed on %s, use Substitute", v.Obj().describe())
		}
	}
	return v.Obj().Set(attrNecessary, c)
}

// SetSufficientCondition assigns the vertex's sufficient condition, subject
// to the same monotonicity rule as SetCondition.
func (v *Vertex) SetSufficientCondition(c Condition) error {
	if v.conditionFixed() {
		if _, ok := v.SufficientCondition().(*placeholderCondition); !ok {
			return NewUsageError("sufficient_condition is fixed on %s, use Substitute", v.Obj().describe())
		}
	}
	return v.Obj().Set(attrSufficient, c)
}

// Substitute rewrites a placeholder named name bound to base across all
// three conditions, the only way to mutate a vertex's conditions after its
// first FastDeduce.
func (v *Vertex) Substitute(name string, replacement Condition, base *Vertex) {
	_ = v.Obj().Set(attrCondition, v.Condition().Substitute(name, replacement, base))
	_ = v.Obj().Set(attrNecessary, v.NecessaryCondition().Substitute(name, replacement, base))
	_ = v.Obj().Set(attrSufficient, v.SufficientCondition().Substitute(name, replacement, base))
}

func (v *Vertex) becomeKnown(access bool) {
	v.setIsKnown(true)
	v.setKnownAccess(access)
	if access {
		_ = v.Obj().Set(attrCondition, True)
		_ = v.Obj().Set(attrNecessary, True)
		_ = v.Obj().Set(attrSufficient, True)
	} else {
		_ = v.Obj().Set(attrCondition, False)
		_ = v.Obj().Set(attrNecessary, False)
		_ = v.Obj().Set(attrSufficient, False)
	}
}

// becomeEquivalent sets equivalent_to=other, following chain rules:
// a self-loop makes the vertex forever unreachable with known_access=false;
// landing on a known vertex makes this vertex inherit that knowledge.
func (v *Vertex) becomeEquivalent(other *Vertex) {
	target := other
	seen := map[*Vertex]struct{}{v: {}}
	for target.EquivalentTo() != nil {
		if _, loop := seen[target]; loop {
			v.setIsKnown(true)
			v.setKnownAccess(false)
			return
		}
		seen[target] = struct{}{}
		target = target.EquivalentTo()
	}
	if target == v {
		v.setIsKnown(true)
		v.setKnownAccess(false)
		return
	}
	v.setEquivalentTo(target)
	if target.IsKnown() {
		v.setIsKnown(true)
		v.setKnownAccess(target.KnownAccess())
	}
}

// CollectDependencies returns: none when known; just the target
// when equivalent; otherwise the union of all three conditions'
// dependencies.
func (v *Vertex) CollectDependencies() map[*Object]struct{} {
	out := map[*Object]struct{}{}
	if v.IsKnown() {
		return out
	}
	if eq := v.EquivalentTo(); eq != nil {
		out[eq.Object] = struct{}{}
		return out
	}
	for _, c := range []Condition{v.Condition(), v.NecessaryCondition(), v.SufficientCondition()} {
		for _, dep := range c.CollectDependencies() {
			out[dep] = struct{}{}
		}
	}
	return out
}

// FastDeduce implements per-round deduction: simplify the three
// conditions, detect necessity/sufficiency loops, merge sufficiency cycles
// into an equivalence class, and repeat until nothing changes.
func (v *Vertex) FastDeduce(g *Generation) error {
	if v.IsKnown() || v.EquivalentTo() != nil {
		return nil
	}
	for {
		changed, err := v.deduceOnce(g)
		if err != nil {
			return err
		}
		if v.IsKnown() || v.EquivalentTo() != nil {
			break
		}
		if !changed {
			break
		}
	}
	_ = v.Obj().Set(attrFixed, true)
	v.Object.ResetDependencies()
	for dep := range v.CollectDependencies() {
		v.Object.AddDependency(dep)
	}
	return nil
}

func (v *Vertex) deduceOnce(g *Generation) (bool, error) {
	before := v.Condition().String() + "|" + v.NecessaryCondition().String() + "|" + v.SufficientCondition().String()
	cond := v.Condition().Simplify()
	necc := v.NecessaryCondition().Simplify()
	suff := v.SufficientCondition().Simplify()
	_ = v.Obj().Set(attrCondition, cond)
	_ = v.Obj().Set(attrNecessary, necc)
	_ = v.Obj().Set(attrSufficient, suff)

	if cond.IsKnownTrue() || suff.IsKnownTrue() {
		v.becomeKnown(true)
		return true, nil
	}
	if cond.IsKnownFalse() || necc.IsKnownFalse() {
		v.becomeKnown(false)
		return true, nil
	}
	if vc, ok := cond.(*vertexCondition); ok {
		v.becomeEquivalent(vc.v)
		return true, nil
	}

	if cycle := findNecessityCycle(v, g); cycle != nil {
		for _, m := range cycle {
			m.becomeKnown(false)
		}
		return true, nil
	}
	if cycle := findSufficiencyCycle(v, g); len(cycle) > 1 {
		mergeSufficiencyCycle(cycle)
		return true, nil
	}

	after := v.Condition().String() + "|" + v.NecessaryCondition().String() + "|" + v.SufficientCondition().String()
	return before != after, nil
}

// findNecessityCycle runs a DFS over necessary-vertex edges starting at v;
// a back-edge to a vertex on the current stack means every vertex on that
// cycle requires the next, circularly, and so is forced unreachable.
func findNecessityCycle(start *Vertex, g *Generation) []*Vertex {
	onStack := map[*Vertex]int{}
	var stack []*Vertex
	var cycle []*Vertex
	var visit func(v *Vertex) bool
	visit = func(v *Vertex) bool {
		if v.IsKnown() || v.EquivalentTo() != nil {
			return false
		}
		if idx, ok := onStack[v]; ok {
			cycle = append([]*Vertex(nil), stack[idx:]...)
			return true
		}
		onStack[v] = len(stack)
		stack = append(stack, v)
		necessary := And(v.Condition(), v.NecessaryCondition()).FindNecessaryVertices()
		for n := range necessary {
			if visit(n) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, v)
		return false
	}
	visit(start)
	return cycle
}

// findSufficiencyCycle is the dual of findNecessityCycle, over sufficient
// vertices derived from Or(condition, sufficient_condition); it returns the
// full cycle, or nil when none is found. A vertex sufficient for itself
// comes back as the one-element cycle [start], which the caller ignores by
// checking len>1.
func findSufficiencyCycle(start *Vertex, g *Generation) []*Vertex {
	onStack := map[*Vertex]int{}
	var stack []*Vertex
	var cycle []*Vertex
	var visit func(v *Vertex) bool
	visit = func(v *Vertex) bool {
		if v.IsKnown() || v.EquivalentTo() != nil {
			return false
		}
		if idx, ok := onStack[v]; ok {
			cycle = append([]*Vertex(nil), stack[idx:]...)
			return true
		}
		onStack[v] = len(stack)
		stack = append(stack, v)
		sufficient := Or(v.Condition(), v.SufficientCondition()).FindSufficientVertices()
		for n := range sufficient {
			if visit(n) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, v)
		return false
	}
	visit(start)
	return cycle
}

// mergeSufficiencyCycle implements: pick the first member as the base,
// replace the base's three conditions with AtLeast(1, member_conds) with
// each member's own placeholders substituted by False (a member cannot be
// its own merged-class condition), simplify, and point every other
// member's equivalent_to at the base.
func mergeSufficiencyCycle(members []*Vertex) {
	base := members[0]
	var combined []Condition
	for _, m := range members {
		combined = append(combined, m.Condition())
	}
	merged := AtLeast(1, combined)
	for _, m := range members {
		merged = merged.Substitute("exact", False, m)
		merged = merged.Substitute("necessary", False, m)
		merged = merged.Substitute("sufficient", False, m)
	}
	merged = merged.Simplify()
	_ = base.Obj().Set(attrCondition, merged)
	_ = base.Obj().Set(attrNecessary, merged)
	_ = base.Obj().Set(attrSufficient, merged)
	for _, m := range members[1:] {
		m.becomeEquivalent(base)
	}
}

func (v *Vertex) forkClone() Node {
	nv := *v
	return &nv
}

// RemapRefs rewrites the vertex's equivalence pointer and the Vertex/
// EnumChoice/MovementPort references buried in its condition trees through
// oldToNew, per Node's contract.
func (v *Vertex) RemapRefs(oldToNew map[*Object]*Object) {
	_ = v.Obj().Set(attrCondition, v.Condition().Remap(oldToNew))
	_ = v.Obj().Set(attrNecessary, v.NecessaryCondition().Remap(oldToNew))
	_ = v.Obj().Set(attrSufficient, v.SufficientCondition().Remap(oldToNew))
	if eq := v.EquivalentTo(); eq != nil {
		v.setEquivalentTo(remapVertex(oldToNew, eq))
	}
}

// And builds a conjunction of any number of conditions (AtLeast(len,·)
// after flattening), used internally by deduction rather than exposed as
// the schema-facing constructor (that's All).
func And(conds ...Condition) Condition { return All(conds...) }

// Or builds a disjunction of any number of conditions (AtLeast(1,·) after
// flattening), the internal counterpart to Any.
func Or(conds ...Condition) Condition { return Any(conds...) }
