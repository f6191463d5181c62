package worldgen

import "sync/atomic"

var universeIDs uint64

// Universe is one generation of the branching object store: a label shared
// by every object whose local dictionary was last materialized at this
// point in time. Reading an object's attribute never names a Universe
// directly (see Object.Get); Universe exists so that fork has something
// atomic to operate on and so debug output can report which generation an
// object's state belongs to.
//
// Every live Universe belongs to a relatedClass: the mutable equivalence
// class of every universe reachable by following object-valued attributes
// from any object in the class. Storing a reference to an object from a
// foreign class merges the two classes (union by size). Object.Fork does
// not consult the class: it snapshots only the forked object's own subtree
// and gives every object it relocates a fresh singleton universe.
type Universe struct {
	id       uint64
	related  *relatedClass
	readOnly bool
}

// NewUniverse returns a fresh, writable universe in its own singleton
// related class.
func NewUniverse() *Universe {
	u := &Universe{id: atomic.AddUint64(&universeIDs, 1)}
	u.related = &relatedClass{members: map[*Universe]struct{}{u: {}}}
	return u
}

// ID returns the universe's stable identifier, used only for debug output;
// it carries no semantic weight of its own.
func (u *Universe) ID() uint64 { return u.id }

// ReadOnly reports whether u has been marked read-only by MarkReadOnly and
// can no longer accept local-dict writes.
func (u *Universe) ReadOnly() bool { return u.readOnly }

// MarkReadOnly permanently forbids further Object.Set calls against any
// object still living in u. Used on the snapshot side of a fork taken
// purely for later restoration (the driver's backtrack stack): nothing
// should mutate it directly again, only fork it further.
func (u *Universe) MarkReadOnly() { u.readOnly = true }

// CombineWith merges u's related class with other's, if they differ. This
// is the union-find step the shared-resource policy requires whenever
// a stored value references an object from a different class.
func (u *Universe) CombineWith(other *Universe) {
	if other == nil || u.related == other.related {
		return
	}
	big, small := u.related, other.related
	if len(small.members) > len(big.members) {
		big, small = small, big
	}
	for m := range small.members {
		m.related = big
		big.members[m] = struct{}{}
	}
}

// relatedClass is the mutable equivalence class of universes that must be
// snapshotted together by a single fork.
type relatedClass struct {
	members map[*Universe]struct{}
}
