package worldgen

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Value is anything storable in an Object's local dictionary: a scalar, a
// Tuple, a Condition, another *Object, or a *OrderedDict child structure.
type Value = interface{}

// Node is implemented by every concrete schema/engine type built on top of
// Object (Vertex, Choice, Port, World,...). The driver and the object tree
// dispatch through Node rather than through Object directly.
type Node interface {
	Obj() *Object
	FastDeduce(g *Generation) error
	OnChoice(g *Generation, choice *Choice)
	CollectDependencies() map[*Object]struct{}

	// forkClone returns a shallow copy of the concrete wrapper's own
	// struct (every typed field - condition terms, known flags, domain
	// sets,...), still pointing at the pre-fork Object; setObj then
	// repoints it at the snapshot's fresh Object. Every concrete type
	// built on GameObject must implement this itself: a generic
	// implementation cannot know the outer struct's extra fields, so
	// GameObject intentionally does not provide one.
	forkClone() Node
	setObj(o *Object)

	// RemapRefs rewrites any Go-pointer cross-references the wrapper
	// holds to sibling/peer nodes (a Port's chosen peers, a Position's
	// movement ports, a Goal's watched vertex,...) through oldToNew,
	// once the whole forked subtree's identity map is known. forkClone
	// runs mid-walk and cannot do this; RemapRefs runs in a second pass
	// once every descendant has been cloned. The default is a no-op:
	// most types hold no such references.
	RemapRefs(oldToNew map[*Object]*Object)
}

var objectIDs uint64

// Object is a branching object: an opaque identity plus a copy-on-write
// local dictionary. Forking an object marks its dictionary (and its
// children's, transitively) "frozen" without copying anything; the first
// write after a fork pays for a shallow copy of exactly the dictionary
// being written.
type Object struct {
	id       uint64
	typeName string
	universe *Universe
	dict     map[interface{}]Value
	frozen   bool

	parent   *Object
	children *OrderedDict[string, *Object]
	name     string
	path     []string

	dependencies map[*Object]struct{}
	dependents   map[*Object]struct{}

	impl Node
}

// newObject constructs an Object rooted in a fresh universe, backed by impl
// for virtual dispatch. Concrete constructors (NewVertex, NewChoice,...)
// call this first and then finish wiring impl's own fields.
func newObject(typeName string, impl Node) *Object {
	return &Object{
		id:       atomic.AddUint64(&objectIDs, 1),
		typeName: typeName,
		universe: NewUniverse(),
		children: NewOrderedDict[string, *Object](),
		impl:     impl,
	}
}

// GameObject is the common embeddable base every schema/engine type uses to
// get Object plumbing plus a default no-op Node implementation; concrete
// types override FastDeduce/OnChoice/CollectDependencies as needed.
type GameObject struct {
	*Object
}

func (g *GameObject) FastDeduce(g2 *Generation) error                 { return nil }
func (g *GameObject) OnChoice(g2 *Generation, choice *Choice)         {}
func (g *GameObject) CollectDependencies() map[*Object]struct{}       { return nil }
func (g *GameObject) Obj() *Object                                    { return g.Object }
func (g *GameObject) setObj(o *Object)                                { g.Object = o }
func (g *GameObject) RemapRefs(map[*Object]*Object)                   {}

// TypeName returns the schema type name the object was constructed with.
func (o *Object) TypeName() string { return o.typeName }

// ID returns the object's stable identity, used for debug output and map
// keys; it is never user-visible in generated output.
func (o *Object) ID() uint64 { return o.id }

// Universe returns the universe the object's local dictionary currently
// belongs to.
func (o *Object) Universe() *Universe { return o.universe }

func (o *Object) ensureWritable() {
	if !o.frozen {
		if o.dict == nil {
			o.dict = map[interface{}]Value{}
		}
		return
	}
	nd := make(map[interface{}]Value, len(o.dict))
	for k, v := range o.dict {
		nd[k] = v
	}
	o.dict = nd
	o.frozen = false
}

// Get looks up key in the object's local dictionary. ErrNoSuchAttribute is
// returned when the key is absent.
func (o *Object) Get(key interface{}) (Value, error) {
	if o.dict != nil {
		if v, ok := o.dict[key]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %v on %s", ErrNoSuchAttribute, key, o.typeName)
}

// Has reports whether key is present in the object's local dictionary.
func (o *Object) Has(key interface{}) bool {
	if o.dict == nil {
		return false
	}
	_, ok := o.dict[key]
	return ok
}

// GetOr returns the stored value for key, or def if absent.
func (o *Object) GetOr(key interface{}, def Value) Value {
	if v, err := o.Get(key); err == nil {
		return v
	}
	return def
}

// Set stores value under key, materializing a writable local dictionary
// first. Values that reference other objects merge this object's universe
// class with the referenced object's.
func (o *Object) Set(key interface{}, value Value) error {
	if o.universe.readOnly {
		return NewUsageError("write to read-only universe on %s", o.describe())
	}
	o.ensureWritable()
	combineUniverses(o.universe, value)
	old, hadOld := o.dict[key]
	o.dict[key] = value
	if oldObj, ok := old.(*Object); ok && hadOld && oldObj != value {
		o.maybeUnparent(key, oldObj)
	}
	if newObj, ok := value.(*Object); ok {
		o.maybeAutoParent(key, newObj)
	}
	return nil
}

// Delete removes key from the object's local dictionary, if present.
func (o *Object) Delete(key interface{}) {
	if o.dict == nil {
		return
	}
	o.ensureWritable()
	delete(o.dict, key)
}

func (o *Object) describe() string {
	if o.path != nil {
		return "/" + strings.Join(o.path, "/")
	}
	return o.typeName
}

// combineUniverses walks a value looking for object references and merges
// their universe's related class with u.
func combineUniverses(u *Universe, v Value) {
	switch x := v.(type) {
	case *Object:
		u.CombineWith(x.universe)
	case Node:
		u.CombineWith(x.Obj().universe)
	case Tuple:
		for _, e := range x {
			combineUniverses(u, e)
		}
	case Condition:
		for _, dep := range x.CollectDependencies() {
			u.CombineWith(dep.universe)
		}
	}
}

// Fork returns a snapshot of the object's (and every descendant object's)
// current state and relocates the object (and its descendants) into fresh
// universes sharing structure with the snapshot: no local dictionary is
// copied eagerly, only marked frozen; the first write after the fork (on
// either side) pays for a shallow copy of that one dictionary. Both sides
// stay writable; Freeze makes the snapshot read-only.
//
// Every descendant gets its own clone wrapper (via its impl's forkClone),
// not just a shared pointer, so that mutation on the continuing side - a
// Port gaining a connection, a Vertex becoming known - never leaks into the
// returned snapshot. Cross-references that live outside the child tree
// (a Port's chosen peers, a Goal's watched vertex, a condition's referenced
// Vertex/EnumChoice/MovementPort) are fixed up in a second pass, once the
// whole subtree's old->new identity map is complete.
func (o *Object) Fork() *Object {
	oldToNew := map[*Object]*Object{}
	clone := o.forkInto(oldToNew)
	for _, nw := range oldToNew {
		nw.impl.RemapRefs(oldToNew)
	}
	return clone
}

func (o *Object) forkInto(oldToNew map[*Object]*Object) *Object {
	cloneChildren := NewOrderedDict[string, *Object]()
	var names []string
	for _, name := range o.children.Keys() {
		child, _ := o.children.Get(name)
		if child == nil {
			continue
		}
		cloneChildren.Set(name, child.forkInto(oldToNew))
		names = append(names, name)
	}

	cloneObj := &Object{
		id:           o.id,
		typeName:     o.typeName,
		universe:     NewUniverse(),
		dict:         o.dict,
		frozen:       true,
		parent:       o.parent,
		name:         o.name,
		path:         append([]string(nil), o.path...),
		dependencies: copyObjSet(o.dependencies),
		dependents:   copyObjSet(o.dependents),
		children:     cloneChildren,
	}
	for _, name := range names {
		c, _ := cloneChildren.Get(name)
		c.parent = cloneObj
		c.path = nil
	}

	implClone := o.impl.forkClone()
	implClone.setObj(cloneObj)
	cloneObj.impl = implClone

	oldToNew[o] = cloneObj

	o.frozen = true
	o.universe = NewUniverse()

	return cloneObj
}

// Freeze marks o's universe (and every descendant's) permanently read-only:
// Object.Set against any of them will fail with a Usage error from then on.
// Used on a fork result that is being archived (the driver's backtrack
// stack, the caller's pre-generation world) rather than mutated further -
// the only legitimate next operation on it is another Fork.
func (o *Object) Freeze() {
	o.universe.MarkReadOnly()
	for _, name := range o.children.Keys() {
		if c, _ := o.children.Get(name); c != nil {
			c.Freeze()
		}
	}
}

func copyObjSet(s map[*Object]struct{}) map[*Object]struct{} {
	if s == nil {
		return nil
	}
	out := make(map[*Object]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// --- Object tree ---

// Impl returns the concrete Node wrapper backing this object (a *Vertex,
// *Port, a schema's own container type,...). Exposed so an external schema
// package's RemapRefs can resolve a forked child's new wrapper the same way
// the engine's own remapVertex/remapPort helpers do from inside this package.
func (o *Object) Impl() Node { return o.impl }

// NewContainer builds a bare object wrapping impl, parented under parent (if
// non-nil). Used by external schema packages to build their own composite
// game-object types (a GridMap, a MazeGame,...) that need Object plumbing
// but none of Vertex/Choice/Port's specialized state.
func NewContainer(typeName string, impl Node, parent *Object, name string) *Object {
	obj := newObject(typeName, impl)
	if parent != nil {
		_ = parent.AddChild(obj, name)
	}
	return obj
}

// Parent returns the object's parent, or nil at the root.
func (o *Object) Parent() *Object { return o.parent }

// Name returns the name this object was registered under in its parent's
// children map, or "" if unparented.
func (o *Object) Name() string { return o.name }

// Path returns the cached dotted path from the world root to this object.
func (o *Object) Path() []string {
	if o.parent == nil {
		return nil
	}
	if o.path == nil {
		o.path = append(append([]string(nil), o.parent.Path()...), o.name)
	}
	return o.path
}

// DottedPath renders Path joined by '.', the form RNG tags use.
func (o *Object) DottedPath() string { return strings.Join(o.Path(), ".") }

// AddChild registers child under name (or child's intrinsic name if name is
// ""), resolving collisions with a numeric suffix starting at 2.
func (o *Object) AddChild(child *Object, name string) error {
	if child.parent != nil {
		return NewUsageError("object already parented, cannot add as child again")
	}
	if name == "" {
		name = child.typeName
	}
	candidate := name
	for i := 2; o.children.Has(candidate); i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	o.children.Set(candidate, child)
	child.parent = o
	child.name = candidate
	child.path = nil
	o.invalidateDescendantPaths(child)
	return nil
}

func (o *Object) invalidateDescendantPaths(child *Object) {
	for _, name := range child.children.Keys() {
		c, _ := child.children.Get(name)
		if c != nil {
			c.path = nil
			o.invalidateDescendantPaths(c)
		}
	}
}

// RemoveChild detaches child from o, making it parentless.
func (o *Object) RemoveChild(child *Object) error {
	if child.parent != o {
		return NewUsageError("%s is not a child of %s", child.describe(), o.describe())
	}
	o.children.Delete(child.name)
	child.parent = nil
	child.name = ""
	child.path = nil
	return nil
}

// Rename is forbidden while the object is parented.
func (o *Object) Rename(name string) error {
	if o.parent != nil {
		return NewUsageError("cannot rename parented object %s", o.describe())
	}
	o.name = name
	return nil
}

// Child returns the direct child registered under name, if any.
func (o *Object) Child(name string) (*Object, bool) {
	return o.children.Get(name)
}

// ChildNames returns the object's direct children's names in insertion order.
func (o *Object) ChildNames() []string {
	return o.children.Keys()
}

// ObjectFromPath resolves a path, given as a slice of child names, starting
// from o (if relative) or from o's world root otherwise.
func (o *Object) ObjectFromPath(path []string, relative bool) (*Object, error) {
	cur := o
	if !relative {
		cur = o.Root()
	}
	for _, seg := range path {
		child, ok := cur.children.Get(seg)
		if !ok || child == nil {
			return nil, NewUsageError("no such path segment %q under %s", seg, cur.describe())
		}
		cur = child
	}
	return cur, nil
}

// Root walks parents to the tree root (conventionally the World object).
func (o *Object) Root() *Object {
	cur := o
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// GetWorld returns the *World at the root of o's tree, or nil if the root
// is not a World (which should not happen for any object built through the
// schema constructors).
func (o *Object) GetWorld() *World {
	root := o.Root()
	if w, ok := root.impl.(*World); ok {
		return w
	}
	return nil
}

// DescendantsByType collects every descendant (self excluded) whose impl
// type-asserts to T, in deterministic path order.
func DescendantsByType[T Node](o *Object) []T {
	var out []T
	var walk func(*Object)
	walk = func(cur *Object) {
		for _, name := range cur.children.Keys() {
			child, _ := cur.children.Get(name)
			if child == nil {
				continue
			}
			if t, ok := child.impl.(T); ok {
				out = append(out, t)
			}
			walk(child)
		}
	}
	walk(o)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Obj().DottedPath() < out[j].Obj().DottedPath()
	})
	return out
}

func (o *Object) maybeAutoParent(key interface{}, child *Object) {
	if child.parent == nil {
		name, _ := key.(string)
		_ = o.AddChild(child, name)
	}
}

func (o *Object) maybeUnparent(key interface{}, old *Object) {
	if old.parent == o {
		_ = o.RemoveChild(old)
	}
}

// --- dependency edges ---

// AddDependency records that o read dep during its last FastDeduce/
// CollectDependencies pass, and registers the reverse edge on dep.
func (o *Object) AddDependency(dep *Object) {
	if dep == nil || dep == o {
		return
	}
	if o.dependencies == nil {
		o.dependencies = map[*Object]struct{}{}
	}
	o.dependencies[dep] = struct{}{}
	if dep.dependents == nil {
		dep.dependents = map[*Object]struct{}{}
	}
	dep.dependents[o] = struct{}{}
}

// ResetDependencies clears o's forward dependency set before a fresh
// CollectDependencies pass repopulates it.
func (o *Object) ResetDependencies() {
	for dep := range o.dependencies {
		delete(dep.dependents, o)
	}
	o.dependencies = nil
}

// Updated re-queues every dependent for FastDeduce.
func (o *Object) Updated(g *Generation) {
	for dep := range o.dependents {
		g.MarkFastDeduction(dep)
	}
}
