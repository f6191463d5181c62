package worldgen

// MovementPort is a Port specialized for travel between two Positions.
// CanEnter gates entering the owning Position through this port; CanExit
// gates exiting it. A concrete schema (e.g. a maze's per-edge obstacle
// choice) narrows either condition away from its True default;
// Position.AccessAnyState aggregates every incoming port's CanEnter and its
// connected peers' CanExit via MovementPortReachable.
type MovementPort struct {
	Port

	CanEnter *Vertex
	CanExit  *Vertex
}

// NewMovementPort builds a movement port parented under parent, with
// CanEnter/CanExit both defaulted to True until a schema narrows them.
func NewMovementPort(parent *Object, name string) *MovementPort {
	m := &MovementPort{}
	m.Object = newObject("MovementPort", m)
	m.TypeChain = []string{"MovementPort", "Port", "Choice"}
	m.CompatibleTypes = []string{"MovementPort"}
	m.initChoice(m)
	m.CanEnter = NewVertex(m.Object, "CanEnter")
	m.CanExit = NewVertex(m.Object, "CanExit")
	for _, v := range []*Vertex{m.CanEnter, m.CanExit} {
		_ = v.SetCondition(True)
		_ = v.SetNecessaryCondition(True)
		_ = v.SetSufficientCondition(True)
	}
	if parent != nil {
		_ = parent.AddChild(m.Object, name)
	}
	return m
}

func (m *MovementPort) forkClone() Node {
	nm := *m
	nm.host = &nm
	return &nm
}

// RemapRefs rewrites the embedded Port's peer references plus CanEnter/
// CanExit, which are this port's own child vertices and so already have
// clones somewhere in oldToNew by the time this runs.
func (m *MovementPort) RemapRefs(oldToNew map[*Object]*Object) {
	m.Port.RemapRefs(oldToNew)
	m.CanEnter = remapVertex(oldToNew, m.CanEnter)
	m.CanExit = remapVertex(oldToNew, m.CanExit)
}

// Position is one cell of a schema's movement graph: it tracks whether it
// is reachable from the starting position via any of its incoming
// MovementPorts (AccessAnyState).
type Position struct {
	GameObject

	AccessAnyState *Vertex

	ports       map[string]*MovementPort
	portOrder   []string
	accessBuilt bool
}

// NewPosition builds an (initially disconnected) position parented under
// parent.
func NewPosition(parent *Object, name string) *Position {
	p := &Position{ports: map[string]*MovementPort{}}
	p.Object = newObject("Position", p)
	p.AccessAnyState = NewVertex(p.Object, "AccessAnyState")
	if parent != nil {
		_ = parent.AddChild(p.Object, name)
	}
	return p
}

// AddMovementPort registers port under direction (e.g. "North"), making it
// part of AccessAnyState's aggregate once FastDeduce first runs.
func (p *Position) AddMovementPort(direction string, port *MovementPort) {
	if _, exists := p.ports[direction]; !exists {
		p.portOrder = append(p.portOrder, direction)
	}
	p.ports[direction] = port
}

// Port returns the movement port registered under direction, or nil.
func (p *Position) Port(direction string) *MovementPort { return p.ports[direction] }

// FastDeduce binds AccessAnyState's condition from the position's currently
// registered movement ports, the first time it runs; a grid schema that
// adds ports before generation starts sees them all included.
func (p *Position) FastDeduce(g *Generation) error {
	if p.accessBuilt {
		return nil
	}
	var conds []Condition
	for _, dir := range p.portOrder {
		port := p.ports[dir]
		conds = append(conds, All(VertexC(port.CanEnter), MovementPortReachableC(port)))
	}
	cond := Any(conds...)
	_ = p.AccessAnyState.SetCondition(cond)
	_ = p.AccessAnyState.SetNecessaryCondition(cond)
	_ = p.AccessAnyState.SetSufficientCondition(cond)
	p.accessBuilt = true
	g.MarkFastDeduction(p.AccessAnyState.Object)
	return nil
}

func (p *Position) CollectDependencies() map[*Object]struct{} {
	return map[*Object]struct{}{p.AccessAnyState.Object: {}}
}

func (p *Position) forkClone() Node {
	np := *p
	np.ports = make(map[string]*MovementPort, len(p.ports))
	for k, v := range p.ports {
		np.ports[k] = v
	}
	np.portOrder = append([]string(nil), p.portOrder...)
	return &np
}

// RemapRefs rewrites the position's movement-port and access-vertex
// references through oldToNew; both are this position's own children, so
// their clones already exist by the time this runs.
func (p *Position) RemapRefs(oldToNew map[*Object]*Object) {
	for dir, port := range p.ports {
		p.ports[dir] = remapMovementPort(oldToNew, port)
	}
	p.AccessAnyState = remapVertex(oldToNew, p.AccessAnyState)
}

// StartingPosition is the position generation begins from: always
// reachable, regardless of its movement ports.
type StartingPosition struct {
	*Position
}

// NewStartingPosition builds a position whose AccessAnyState is fixed to
// True immediately.
func NewStartingPosition(parent *Object, name string) *StartingPosition {
	pos := NewPosition(parent, name)
	_ = pos.AccessAnyState.SetCondition(True)
	_ = pos.AccessAnyState.SetNecessaryCondition(True)
	_ = pos.AccessAnyState.SetSufficientCondition(True)
	pos.accessBuilt = true
	return &StartingPosition{Position: pos}
}
