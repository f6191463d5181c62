package worldgen

import (
	"sort"
)

// Attribute keys under which Port stores its mutable connection state in
// its Object's local dictionary. None of these maps is ever mutated in
// place: every change builds a fresh map and replaces the stored value
// wholesale (matching EnumChoice's impossible-value set), so a forked
// clone's copy-on-write dictionary isolates it without any bespoke
// per-type cloning logic.
const (
	attrPortChosen           = "chosen_connections"
	attrPortImpossible       = "impossible_connections"
	attrPortCommitImpossible = "commit_impossible"
	attrPortCommitted        = "committed"
)

// Port is a specialized choice whose unknown value is a multiset of peer
// ports. TypeChain names the concrete type and every base up to (and
// including) "Choice", the vocabulary the open-port cache uses in place of
// runtime reflection.
type Port struct {
	Choice

	TypeChain       []string
	CompatibleTypes []string
	MinConnections  int
	MaxConnections  int
	MinUnique       int
	MaxUnique       int
	CanSelfConnect  bool

	world *World
}

// NewPort builds a port parented under parent, with the given concrete
// type chain (most-derived first, "Choice" last) and compatible-type list.
func NewPort(parent *Object, name string, typeChain, compatibleTypes []string) *Port {
	p := &Port{
		TypeChain:       append([]string(nil), typeChain...),
		CompatibleTypes: append([]string(nil), compatibleTypes...),
		MaxConnections:  1,
		MaxUnique:       1,
	}
	p.Object = newObject("Port", p)
	p.initChoice(p)
	_ = p.Object.Set(attrPortChosen, map[*Port]int{})
	if parent != nil {
		_ = parent.AddChild(p.Object, name)
	}
	return p
}

func (p *Port) chosenMap() map[*Port]int {
	m, _ := p.Obj().GetOr(attrPortChosen, map[*Port]int(nil)).(map[*Port]int)
	return m
}

func (p *Port) impossibleMap() map[*Port]struct{} {
	m, _ := p.Obj().GetOr(attrPortImpossible, map[*Port]struct{}(nil)).(map[*Port]struct{})
	return m
}

func (p *Port) setConnection(other *Port, n int) {
	cur := p.chosenMap()
	next := make(map[*Port]int, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	if n == 0 {
		delete(next, other)
	} else {
		next[other] = n
	}
	_ = p.Obj().Set(attrPortChosen, next)
}

func (p *Port) addImpossible(other *Port) {
	cur := p.impossibleMap()
	next := make(map[*Port]struct{}, len(cur)+1)
	for k := range cur {
		next[k] = struct{}{}
	}
	next[other] = struct{}{}
	_ = p.Obj().Set(attrPortImpossible, next)
}

// ChosenConnections returns a snapshot of the port's current peer->count
// multiset.
func (p *Port) ChosenConnections() map[*Port]int {
	m := p.chosenMap()
	out := make(map[*Port]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (p *Port) totalConnections() int {
	n := 0
	for _, c := range p.chosenMap() {
		n += c
	}
	return n
}

func (p *Port) commitImpossible() bool {
	b, _ := p.Obj().GetOr(attrPortCommitImpossible, false).(bool)
	return b
}

// Committed reports whether this port has been committed through Commit
// (as opposed to reaching a known value by some other means).
func (p *Port) Committed() bool {
	b, _ := p.Obj().GetOr(attrPortCommitted, false).(bool)
	return b
}

func (p *Port) compatibleWith(other *Port) bool {
	set := map[string]struct{}{}
	for _, t := range other.TypeChain {
		set[t] = struct{}{}
	}
	for _, t := range p.CompatibleTypes {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// TestConnect reports whether connecting to other is currently legal,
// without mutating anything: rejects when known, incompatible, self
// (unless CanSelfConnect), already impossible, or exceeding this port's
// max_connections/max_unique_connections. The peer's own limits are not
// checked here; Connect calls TestConnect on both ports.
func (p *Port) TestConnect(other *Port) error {
	if p.Known() {
		return NewUsageError("port %s is already committed", p.Obj().describe())
	}
	if other == p && !p.CanSelfConnect {
		return NewUsageError("port %s cannot connect to itself", p.Obj().describe())
	}
	if !p.compatibleWith(other) || !other.compatibleWith(p) {
		return NewUsageError("port %s is not compatible with %s", p.Obj().describe(), other.Obj().describe())
	}
	if _, ok := p.impossibleMap()[other]; ok {
		return NewUsageError("connection from %s to %s is impossible", p.Obj().describe(), other.Obj().describe())
	}
	chosen := p.chosenMap()
	if p.totalConnections()+1 > p.MaxConnections {
		return NewUsageError("port %s would exceed max_connections", p.Obj().describe())
	}
	if _, already := chosen[other]; !already && len(chosen)+1 > p.MaxUnique {
		return NewUsageError("port %s would exceed max_unique_connections", p.Obj().describe())
	}
	return nil
}

// Connect symmetrically sets both sides' chosen_connections[peer]=n,
// removing the pair entirely when n==0.
func (p *Port) Connect(g *Generation, other *Port, n int) error {
	if n > 0 {
		if err := p.TestConnect(other); err != nil {
			return err
		}
		if err := other.TestConnect(p); err != nil {
			return err
		}
	}
	p.setConnection(other, n)
	other.setConnection(p, n)
	if g != nil {
		p.Obj().Updated(g)
		other.Obj().Updated(g)
	}
	return nil
}

// MultiConnect adds delta to the existing connection count to other
// (creating it if absent).
func (p *Port) MultiConnect(g *Generation, other *Port, delta int) error {
	return p.Connect(g, other, p.chosenMap()[other]+delta)
}

// Disconnect removes the connection to other entirely.
func (p *Port) Disconnect(g *Generation, other *Port) error {
	return p.Connect(g, other, 0)
}

// DisconnectAll removes every connection this port currently holds.
func (p *Port) DisconnectAll(g *Generation) error {
	for peer := range p.chosenMap() {
		if err := p.Disconnect(g, peer); err != nil {
			return err
		}
	}
	return nil
}

// CanCommit reports whether the port's current connection count already
// satisfies min_connections and min_unique_connections.
func (p *Port) CanCommit() bool {
	return p.totalConnections() >= p.MinConnections && len(p.chosenMap()) >= p.MinUnique
}

// Commit freezes value = chosen_connections, marking the port known. Any
// peer port whose candidate set shrinks because this port leaves the
// open-port cache is re-queued for fast-deduction.
func (p *Port) Commit(g *Generation) error {
	if !p.CanCommit() {
		return NewUsageError("port %s cannot commit: below minimum connections", p.Obj().describe())
	}
	_ = p.Obj().Set(attrPortCommitted, true)
	if err := p.Choice.SetValue(g, p.ChosenConnections()); err != nil {
		return err
	}
	if g != nil {
		g.OpenPortCache().Remove(g, p)
	}
	return nil
}

// MarkImpossible rules out connecting to other, re-queuing deduction.
func (p *Port) MarkImpossible(g *Generation, other *Port) {
	p.addImpossible(other)
	if g != nil {
		g.MarkFastDeduction(p.Object)
	}
}

// MarkCommitImpossible rules out committing with the current connection
// set, forcing the strategy to keep connecting.
func (p *Port) MarkCommitImpossible(g *Generation) {
	_ = p.Obj().Set(attrPortCommitImpossible, true)
	if g != nil {
		g.MarkFastDeduction(p.Object)
	}
}

// GetCandidates returns every peer port this port could still legally
// connect to, via a candidate-intersection algorithm applied against the
// world's open-port cache.
func (p *Port) GetCandidates(g *Generation) []*Port {
	cache := g.OpenPortCache()
	byType := map[*Port]struct{}{}
	for _, t := range p.CompatibleTypes {
		for _, peer := range cache.ByType(t) {
			byType[peer] = struct{}{}
		}
	}
	byCompat := map[*Port]struct{}{}
	for _, t := range p.TypeChain {
		for _, peer := range cache.ByCompatibleType(t) {
			byCompat[peer] = struct{}{}
		}
	}
	impossible := p.impossibleMap()
	var out []*Port
	for peer := range byType {
		if _, ok := byCompat[peer]; !ok {
			continue
		}
		if _, ok := impossible[peer]; ok {
			continue
		}
		if p.TestConnect(peer) != nil {
			continue
		}
		out = append(out, peer)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Obj().DottedPath() < out[j].Obj().DottedPath()
	})
	return out
}

// FastDeduce implements port fast-deduce: build the cache if missing,
// commit once max_connections is reached, else raise LogicError if no
// candidate remains and commit is not currently possible.
func (p *Port) FastDeduce(g *Generation) error {
	if p.Known() {
		return nil
	}
	g.OpenPortCache().ensure(p)
	if p.totalConnections() == p.MaxConnections && p.MaxConnections > 0 {
		return p.Commit(g)
	}
	if !p.canCommitNow() && len(p.GetCandidates(g)) == 0 {
		return NewLogicError("port %s has no candidates and cannot commit", p.Obj().describe())
	}
	return nil
}

func (p *Port) canCommitNow() bool {
	return !p.commitImpossible() && p.CanCommit()
}

func (p *Port) forkClone() Node {
	np := *p
	np.host = &np
	return &np
}

// RemapRefs rewrites chosen/impossible peer references through oldToNew:
// a forked port's peers were shallow-copied pointing at the continuing
// branch's instances, and need to point at this branch's clones instead.
func (p *Port) RemapRefs(oldToNew map[*Object]*Object) {
	if chosen := p.chosenMap(); len(chosen) > 0 {
		nc := make(map[*Port]int, len(chosen))
		for peer, n := range chosen {
			nc[remapPort(oldToNew, peer)] = n
		}
		_ = p.Obj().Set(attrPortChosen, nc)
	}
	if impossible := p.impossibleMap(); len(impossible) > 0 {
		ni := make(map[*Port]struct{}, len(impossible))
		for peer := range impossible {
			ni[remapPort(oldToNew, peer)] = struct{}{}
		}
		_ = p.Obj().Set(attrPortImpossible, ni)
	}
}

func remapPort(oldToNew map[*Object]*Object, p *Port) *Port {
	if p == nil {
		return nil
	}
	if nw, ok := oldToNew[p.Object]; ok {
		switch np := nw.impl.(type) {
		case *Port:
			return np
		case *MovementPort:
			return &np.Port
		}
	}
	return p
}

// OpenPortCache is the per-world cache: two ordered mappings from type name
// to the open ports matching it, kept current by removing a port (from
// both mappings) as soon as it becomes known.
type OpenPortCache struct {
	byType           map[string]*OrderedDict[uint64, *Port]
	byCompatibleType map[string]*OrderedDict[uint64, *Port]
	seen             map[*Port]struct{}
}

// NewOpenPortCache returns an empty cache.
func NewOpenPortCache() *OpenPortCache {
	return &OpenPortCache{
		byType:           map[string]*OrderedDict[uint64, *Port]{},
		byCompatibleType: map[string]*OrderedDict[uint64, *Port]{},
		seen:             map[*Port]struct{}{},
	}
}

func (c *OpenPortCache) ensure(p *Port) {
	if _, ok := c.seen[p]; ok {
		return
	}
	c.seen[p] = struct{}{}
	for _, t := range p.TypeChain {
		if c.byType[t] == nil {
			c.byType[t] = NewOrderedDict[uint64, *Port]()
		}
		c.byType[t].Set(p.Obj().ID(), p)
	}
	for _, t := range p.CompatibleTypes {
		if c.byCompatibleType[t] == nil {
			c.byCompatibleType[t] = NewOrderedDict[uint64, *Port]()
		}
		c.byCompatibleType[t].Set(p.Obj().ID(), p)
	}
}

// Remove drops p from both mappings, e.g. once it becomes known, and
// re-queues every open port whose candidate set could have included p
// (g may be nil, e.g. when the cache itself is being discarded).
func (c *OpenPortCache) Remove(g *Generation, p *Port) {
	affected := c.candidateHolders(p)
	delete(c.seen, p)
	for _, t := range p.TypeChain {
		if d := c.byType[t]; d != nil {
			d.Delete(p.Obj().ID())
		}
	}
	for _, t := range p.CompatibleTypes {
		if d := c.byCompatibleType[t]; d != nil {
			d.Delete(p.Obj().ID())
		}
	}
	if g == nil {
		return
	}
	for _, peer := range affected {
		g.MarkFastDeduction(peer.Obj())
	}
}

// candidateHolders returns every other port currently in the cache whose
// candidate set could include p, via the same type/compatible-type
// intersection GetCandidates uses. Once p leaves the cache (committed or
// otherwise resolved) each of these ports' candidate class just shrank and
// must be re-deduced promptly rather than waiting its own turn in the
// queue - a port whose sole remaining candidate just committed needs to
// discover that immediately, or a LogicError it should raise is delayed or
// missed entirely.
func (c *OpenPortCache) candidateHolders(p *Port) []*Port {
	byType := map[*Port]struct{}{}
	for _, t := range p.CompatibleTypes {
		for _, peer := range c.ByType(t) {
			byType[peer] = struct{}{}
		}
	}
	byCompat := map[*Port]struct{}{}
	for _, t := range p.TypeChain {
		for _, peer := range c.ByCompatibleType(t) {
			byCompat[peer] = struct{}{}
		}
	}
	var out []*Port
	for peer := range byType {
		if peer == p {
			continue
		}
		if _, ok := byCompat[peer]; ok {
			out = append(out, peer)
		}
	}
	return out
}

// ByType returns the open ports registered under type name t.
func (c *OpenPortCache) ByType(t string) []*Port {
	d := c.byType[t]
	if d == nil {
		return nil
	}
	var out []*Port
	for _, id := range d.Keys() {
		if p, ok := d.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// ByCompatibleType returns the open ports whose compatible_types includes
// type name t.
func (c *OpenPortCache) ByCompatibleType(t string) []*Port {
	d := c.byCompatibleType[t]
	if d == nil {
		return nil
	}
	var out []*Port
	for _, id := range d.Keys() {
		if p, ok := d.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}
