package worldgen

import (
	"fmt"
	"sort"
	"strings"
)

// Tuple is a value that carries other values recursively; object
// references inside a Tuple are translated/merged exactly like a direct
// attribute value would be, but the Tuple itself is never a Condition.
type Tuple []Value

// Condition is the closed tagged union: True, False, AtLeast, Vertex, Enum,
// Placeholder, and the MovementPortReachable extension. Every variant
// implements every method directly - no runtime reflection, no shared
// default behavior to fall back on.
type Condition interface {
	IsKnownTrue() bool
	IsKnownFalse() bool
	Simplify() Condition
	Substitute(name string, replacement Condition, base *Vertex) Condition
	FindNecessaryVertices() map[*Vertex]struct{}
	FindSufficientVertices() map[*Vertex]struct{}
	CollectDependencies() []*Object
	String() string

	// Remap rewrites every Vertex/EnumChoice/MovementPort reference a
	// condition holds through oldToNew, the object-identity map a Fork
	// builds across its whole cloned subtree. Needed because conditions
	// hold direct Go pointers to other wrapper structs, not object-tree
	// paths - without it, a forked vertex's condition tree would keep
	// pointing at the continuing branch's instances instead of its own
	// snapshot's.
	Remap(oldToNew map[*Object]*Object) Condition
}

func remapVertex(oldToNew map[*Object]*Object, v *Vertex) *Vertex {
	if v == nil {
		return nil
	}
	if nw, ok := oldToNew[v.Object]; ok {
		if nv, ok2 := nw.impl.(*Vertex); ok2 {
			return nv
		}
	}
	return v
}

func remapEnumChoice(oldToNew map[*Object]*Object, e *EnumChoice) *EnumChoice {
	if e == nil {
		return nil
	}
	if nw, ok := oldToNew[e.Object]; ok {
		if ne, ok2 := nw.impl.(*EnumChoice); ok2 {
			return ne
		}
	}
	return e
}

func remapMovementPort(oldToNew map[*Object]*Object, p *MovementPort) *MovementPort {
	if p == nil {
		return nil
	}
	if nw, ok := oldToNew[p.Object]; ok {
		if np, ok2 := nw.impl.(*MovementPort); ok2 {
			return np
		}
	}
	return p
}

// True is the singleton always-true condition.
var True Condition = trueCondition{}

// False is the singleton always-false condition.
var False Condition = falseCondition{}

type trueCondition struct{}

func (trueCondition) IsKnownTrue() bool                                  { return true }
func (trueCondition) IsKnownFalse() bool                                 { return false }
func (trueCondition) Simplify() Condition                                { return True }
func (trueCondition) Substitute(string, Condition, *Vertex) Condition    { return True }
func (trueCondition) FindNecessaryVertices() map[*Vertex]struct{}        { return nil }
func (trueCondition) FindSufficientVertices() map[*Vertex]struct{}       { return nil }
func (trueCondition) CollectDependencies() []*Object                     { return nil }
func (trueCondition) String() string                                    { return "True" }
func (trueCondition) Remap(map[*Object]*Object) Condition                { return True }

type falseCondition struct{}

func (falseCondition) IsKnownTrue() bool                               { return false }
func (falseCondition) IsKnownFalse() bool                              { return true }
func (falseCondition) Simplify() Condition                             { return False }
func (falseCondition) Substitute(string, Condition, *Vertex) Condition { return False }
func (falseCondition) FindNecessaryVertices() map[*Vertex]struct{}     { return nil }
func (falseCondition) FindSufficientVertices() map[*Vertex]struct{}    { return nil }
func (falseCondition) CollectDependencies() []*Object                  { return nil }
func (falseCondition) String() string                                 { return "False" }
func (falseCondition) Remap(map[*Object]*Object) Condition             { return False }

// atLeastCondition is the n-of-m generalization: Any = AtLeast(1,·),
// All = AtLeast(len(conds),·).
type atLeastCondition struct {
	n     int
	conds []Condition
}

// AtLeast builds the n-of-conds condition: AtLeast(0,·)=True; AtLeast(k,·)
// with k>len(conds) is False; AtLeast(1,[x])=x. Nested AtLeast terms are
// not auto-flattened here (flattening is Any/All's job) but an AtLeast of
// exactly one element collapses to that element regardless of n, since n
// can only be 0 or 1 in that case.
func AtLeast(n int, conds []Condition) Condition {
	if n <= 0 {
		return True
	}
	if n > len(conds) {
		return False
	}
	if n == 1 && len(conds) == 1 {
		return conds[0]
	}
	return &atLeastCondition{n: n, conds: append([]Condition(nil), conds...)}
}

// Any is AtLeast(1, conds), flattening nested Any terms so that
// Any(Any(a,b), c) == Any(a,b,c).
func Any(conds ...Condition) Condition {
	return AtLeast(1, flattenAtLeast(1, conds))
}

// All is AtLeast(len(conds), conds) after flattening nested All terms.
func All(conds ...Condition) Condition {
	flat := flattenAtLeast(-1, conds)
	return AtLeast(len(flat), flat)
}

func flattenAtLeast(n int, conds []Condition) []Condition {
	var out []Condition
	for _, c := range conds {
		if al, ok := c.(*atLeastCondition); ok && al.n == 1 && n == 1 {
			out = append(out, flattenAtLeast(1, al.conds)...)
			continue
		}
		if al, ok := c.(*atLeastCondition); ok && n < 0 && al.n == len(al.conds) {
			out = append(out, flattenAtLeast(-1, al.conds)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (a *atLeastCondition) IsKnownTrue() bool {
	trues := 0
	for _, c := range a.conds {
		if c.IsKnownTrue() {
			trues++
		}
	}
	return trues >= a.n
}

func (a *atLeastCondition) IsKnownFalse() bool {
	possible := 0
	for _, c := range a.conds {
		if !c.IsKnownFalse() {
			possible++
		}
	}
	return possible < a.n
}

func (a *atLeastCondition) Simplify() Condition {
	n := a.n
	var kept []Condition
	for _, c := range a.conds {
		sc := c.Simplify()
		if sc.IsKnownTrue() {
			n--
			continue
		}
		if sc.IsKnownFalse() {
			continue
		}
		kept = append(kept, sc)
	}
	return AtLeast(n, kept)
}

func (a *atLeastCondition) Substitute(name string, replacement Condition, base *Vertex) Condition {
	changed := false
	out := make([]Condition, len(a.conds))
	for i, c := range a.conds {
		nc := c.Substitute(name, replacement, base)
		if nc != c {
			changed = true
		}
		out[i] = nc
	}
	if !changed {
		return a
	}
	return AtLeast(a.n, out)
}

func (a *atLeastCondition) FindNecessaryVertices() map[*Vertex]struct{} {
	threshold := len(a.conds) - a.n + 1
	counts := map[*Vertex]int{}
	for _, c := range a.conds {
		for v := range c.FindNecessaryVertices() {
			counts[v]++
		}
	}
	out := map[*Vertex]struct{}{}
	for v, cnt := range counts {
		if cnt >= threshold {
			out[v] = struct{}{}
		}
	}
	return out
}

func (a *atLeastCondition) FindSufficientVertices() map[*Vertex]struct{} {
	counts := map[*Vertex]int{}
	for _, c := range a.conds {
		for v := range c.FindSufficientVertices() {
			counts[v]++
		}
	}
	out := map[*Vertex]struct{}{}
	for v, cnt := range counts {
		if cnt >= a.n {
			out[v] = struct{}{}
		}
	}
	return out
}

func (a *atLeastCondition) CollectDependencies() []*Object {
	var out []*Object
	for _, c := range a.conds {
		out = append(out, c.CollectDependencies()...)
	}
	return out
}

func (a *atLeastCondition) String() string {
	parts := make([]string, len(a.conds))
	for i, c := range a.conds {
		parts[i] = c.String()
	}
	return fmt.Sprintf("AtLeast(%d, [%s])", a.n, strings.Join(parts, ", "))
}

func (a *atLeastCondition) Remap(oldToNew map[*Object]*Object) Condition {
	out := make([]Condition, len(a.conds))
	for i, c := range a.conds {
		out[i] = c.Remap(oldToNew)
	}
	return AtLeast(a.n, out)
}

// vertexCondition is true iff the referenced vertex is known reachable.
type vertexCondition struct {
	v *Vertex
}

// VertexC wraps v as a condition, collapsing through v's equivalence chain
// if v is already known equivalent to another vertex.
func VertexC(v *Vertex) Condition {
	for v.EquivalentTo() != nil {
		v = v.EquivalentTo()
	}
	return &vertexCondition{v: v}
}

func (c *vertexCondition) IsKnownTrue() bool  { return c.v.IsKnown() && c.v.KnownAccess() }
func (c *vertexCondition) IsKnownFalse() bool { return c.v.IsKnown() && !c.v.KnownAccess() }

func (c *vertexCondition) Simplify() Condition {
	v := c.v
	for v.EquivalentTo() != nil {
		v = v.EquivalentTo()
	}
	if v.IsKnown() {
		if v.KnownAccess() {
			return True
		}
		return False
	}
	if v != c.v {
		return &vertexCondition{v: v}
	}
	return c
}

func (c *vertexCondition) Substitute(name string, replacement Condition, base *Vertex) Condition {
	return c
}

func (c *vertexCondition) FindNecessaryVertices() map[*Vertex]struct{} {
	return map[*Vertex]struct{}{c.v: {}}
}

func (c *vertexCondition) FindSufficientVertices() map[*Vertex]struct{} {
	return map[*Vertex]struct{}{c.v: {}}
}

func (c *vertexCondition) CollectDependencies() []*Object { return []*Object{c.v.Object} }

func (c *vertexCondition) String() string { return fmt.Sprintf("Vertex(%s)", c.v.Obj().describe()) }

func (c *vertexCondition) Remap(oldToNew map[*Object]*Object) Condition {
	return &vertexCondition{v: remapVertex(oldToNew, c.v)}
}

// enumCondition is true iff choice.Value is in allowed.
type enumCondition struct {
	choice  *EnumChoice
	allowed []string
}

// EnumC builds choice.value ∈ allowed.
func EnumC(choice *EnumChoice, allowed ...string) Condition {
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return &enumCondition{choice: choice, allowed: sorted}
}

func (c *enumCondition) contains(v string) bool {
	for _, a := range c.allowed {
		if a == v {
			return true
		}
	}
	return false
}

func (c *enumCondition) IsKnownTrue() bool {
	return c.choice.Known() && c.contains(c.choice.Value().(string))
}

func (c *enumCondition) IsKnownFalse() bool {
	if c.choice.Known() {
		return !c.contains(c.choice.Value().(string))
	}
	for _, v := range c.allowed {
		if !c.choice.isImpossible(v) {
			return false
		}
	}
	return true
}

func (c *enumCondition) Simplify() Condition {
	if c.choice.Known() {
		if c.contains(c.choice.Value().(string)) {
			return True
		}
		return False
	}
	var kept []string
	for _, v := range c.allowed {
		if !c.choice.isImpossible(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return False
	}
	if len(kept) == len(c.allowed) {
		return c
	}
	return &enumCondition{choice: c.choice, allowed: kept}
}

func (c *enumCondition) Substitute(string, Condition, *Vertex) Condition { return c }

func (c *enumCondition) FindNecessaryVertices() map[*Vertex]struct{}  { return nil }
func (c *enumCondition) FindSufficientVertices() map[*Vertex]struct{} { return nil }
func (c *enumCondition) CollectDependencies() []*Object               { return []*Object{c.choice.Object} }

func (c *enumCondition) String() string {
	return fmt.Sprintf("Enum(%s, %v)", c.choice.Obj().describe(), c.allowed)
}

func (c *enumCondition) Remap(oldToNew map[*Object]*Object) Condition {
	return &enumCondition{choice: remapEnumChoice(oldToNew, c.choice), allowed: c.allowed}
}

// placeholderCondition is a named hole, substitutable within base's three
// conditions. It defaults every vertex's condition/necessary_condition/
// sufficient_condition slot before the vertex's first FastDeduce.
type placeholderCondition struct {
	name string
	base *Vertex
}

// Placeholder builds a named hole bound to base.
func Placeholder(name string, base *Vertex) Condition {
	return &placeholderCondition{name: name, base: base}
}

func (c *placeholderCondition) IsKnownTrue() bool  { return false }
func (c *placeholderCondition) IsKnownFalse() bool { return false }
func (c *placeholderCondition) Simplify() Condition { return c }

func (c *placeholderCondition) Substitute(name string, replacement Condition, base *Vertex) Condition {
	if c.name == name && c.base == base {
		return replacement
	}
	return c
}

func (c *placeholderCondition) FindNecessaryVertices() map[*Vertex]struct{}  { return nil }
func (c *placeholderCondition) FindSufficientVertices() map[*Vertex]struct{} { return nil }
func (c *placeholderCondition) CollectDependencies() []*Object               { return nil }

func (c *placeholderCondition) String() string {
	return fmt.Sprintf("Placeholder(%q)", c.name)
}

func (c *placeholderCondition) Remap(oldToNew map[*Object]*Object) Condition {
	return &placeholderCondition{name: c.name, base: remapVertex(oldToNew, c.base)}
}

// movementPortReachableCondition is true iff port is committed and at
// least one of its connected peers can be exited (peer.CanExit) from a
// position that is itself reachable (peer's owning Position.AccessAnyState).
// Unknown until port commits, mirroring the rest of the deduction engine's
// "wait for the choice, then resolve" style.
type movementPortReachableCondition struct {
	port *MovementPort
}

// MovementPortReachableC wraps port as a condition.
func MovementPortReachableC(port *MovementPort) Condition {
	return &movementPortReachableCondition{port: port}
}

// peers returns, for each port this one is connected to, the And of that
// peer's CanExit and its owning Position's AccessAnyState. It reads the
// current connections whether or not the port is known; the condition's
// methods consult it only once the port is known.
func (c *movementPortReachableCondition) peers() []Condition {
	var out []Condition
	for peer := range c.port.chosenMap() {
		mp, ok := peer.Object.impl.(*MovementPort)
		if !ok {
			continue
		}
		owner := mp.Object.Parent()
		if owner == nil {
			continue
		}
		pos, ok := owner.impl.(*Position)
		if !ok {
			continue
		}
		out = append(out, All(VertexC(mp.CanExit), VertexC(pos.AccessAnyState)))
	}
	return out
}

func (c *movementPortReachableCondition) IsKnownTrue() bool {
	if !c.port.Known() {
		return false
	}
	return Any(c.peers()...).IsKnownTrue()
}
func (c *movementPortReachableCondition) IsKnownFalse() bool {
	if !c.port.Known() {
		return false
	}
	return Any(c.peers()...).IsKnownFalse()
}
func (c *movementPortReachableCondition) Simplify() Condition {
	if !c.port.Known() {
		return c
	}
	return Any(c.peers()...).Simplify()
}
func (c *movementPortReachableCondition) Substitute(string, Condition, *Vertex) Condition { return c }
func (c *movementPortReachableCondition) FindNecessaryVertices() map[*Vertex]struct{} {
	if !c.port.Known() {
		return nil
	}
	return Any(c.peers()...).FindNecessaryVertices()
}
func (c *movementPortReachableCondition) FindSufficientVertices() map[*Vertex]struct{} {
	if !c.port.Known() {
		return nil
	}
	return Any(c.peers()...).FindSufficientVertices()
}
func (c *movementPortReachableCondition) CollectDependencies() []*Object {
	deps := []*Object{c.port.Object}
	for peer := range c.port.chosenMap() {
		deps = append(deps, peer.Object)
		if mp, ok := peer.Object.impl.(*MovementPort); ok {
			deps = append(deps, mp.CanExit.Object)
			if owner := mp.Object.Parent(); owner != nil {
				if pos, ok := owner.impl.(*Position); ok {
					deps = append(deps, pos.AccessAnyState.Object)
				}
			}
		}
	}
	return deps
}
func (c *movementPortReachableCondition) String() string {
	return fmt.Sprintf("MovementPortReachable(%s)", c.port.Obj().describe())
}

func (c *movementPortReachableCondition) Remap(oldToNew map[*Object]*Object) Condition {
	return &movementPortReachableCondition{port: remapMovementPort(oldToNew, c.port)}
}
