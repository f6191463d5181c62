package worldgen

// ChoiceHost is implemented by every concrete choice type a ChoiceStrategy
// can drive (*EnumChoice, *Port): enough surface for a strategy to inspect
// the choice's domain via a type switch, without Choice itself needing to
// know about every concrete subtype.
type ChoiceHost interface {
	Obj() *Object
}

// ChoiceStrategy is the pluggable value-selection capability: Make picks a
// value (returning a plain-data token for later elimination), Eliminate
// rules out whatever the token names and re-queues deduction.
type ChoiceStrategy interface {
	Make(host ChoiceHost, g *Generation) (value Value, token Value, err error)
	Eliminate(host ChoiceHost, token Value, g *Generation) error
}

// Attribute keys under which Choice stores its decided state in its
// Object's local dictionary, so that fork isolation runs through the same
// copy-on-write machinery every other branching attribute does.
const (
	attrChoiceKnown = "known"
	attrChoiceValue = "value"
)

// Choice is an unknown configuration value in the world: known/unknown,
// with an optional default and an optional strategy. def/strategy are
// schema-construction-time configuration, set once before generation ever
// forks the world, so they stay plain Go fields; known/value are mutated
// during generation and so live in the branching object store.
type Choice struct {
	GameObject

	def      Value
	strategy ChoiceStrategy
	host     ChoiceHost
}

// initChoice wires the embedding GameObject.Object and remembers host (the
// concrete *EnumChoice/*Port) for strategy dispatch. Concrete constructors
// call this once their own Object is set up.
func (c *Choice) initChoice(host ChoiceHost) {
	c.host = host
}

// NewChoice builds a bare choice with no value-domain restriction, parented
// under parent. Used by schema layers for scalar configuration values (a
// grid's width/height) that need the Choice commit/default/strategy
// lifecycle without an enum's fixed value set or a port's connection
// semantics - the Go equivalent of the original's pass-through
// IntegerChoiceType/NumericalChoiceType.
func NewChoice(parent *Object, name string) *Choice {
	c := &Choice{}
	c.Object = newObject("Choice", c)
	c.initChoice(c)
	if parent != nil {
		_ = parent.AddChild(c.Object, name)
	}
	return c
}

func (c *Choice) forkClone() Node {
	nc := *c
	nc.host = &nc
	return &nc
}

// Known reports whether the choice has been decided.
func (c *Choice) Known() bool {
	b, _ := c.Obj().GetOr(attrChoiceKnown, false).(bool)
	return b
}

// Value returns the decided value; only meaningful once Known is true.
func (c *Choice) Value() Value {
	return c.Obj().GetOr(attrChoiceValue, nil)
}

// Default returns the choice's configured default, or nil.
func (c *Choice) Default() Value { return c.def }

// SetDefault configures the choice's default value or default strategy.
func (c *Choice) SetDefault(def Value) { c.def = def }

// SetStrategy configures the choice's strategy.
func (c *Choice) SetStrategy(s ChoiceStrategy) { c.strategy = s }

// Strategy returns the choice's configured strategy, or nil.
func (c *Choice) Strategy() ChoiceStrategy { return c.strategy }

// SetValue runs the commit lifecycle: store, mark known, notify the
// parent's OnChoice hook, and re-queue dependents via Updated. Calling it
// twice on an already-known choice is a usage error. Concrete choice types
// (EnumChoice, Port) validate the value against their own domain *before*
// calling this - Go has no virtual dispatch through an embedded type, so
// the domain check cannot live here.
func (c *Choice) SetValue(g *Generation, v Value) error {
	if c.Known() {
		return NewUsageError("choice %s is already known", c.Obj().describe())
	}
	if err := c.Obj().Set(attrChoiceValue, v); err != nil {
		return err
	}
	if err := c.Obj().Set(attrChoiceKnown, true); err != nil {
		return err
	}
	if parent := c.Obj().Parent(); parent != nil {
		if pn, ok := parent.impl.(interface{ OnChoice(*Generation, *Choice) }); ok {
			pn.OnChoice(g, c)
		}
	}
	if g != nil {
		c.Obj().Updated(g)
	}
	return nil
}

// Make implements a no-op if already known; otherwise delegate to the
// configured strategy, promote a strategy-valued default, or commit a
// plain-value default; failing all three is a LogicError.
func (c *Choice) Make(g *Generation) (Value, error) {
	if c.Known() {
		return nil, nil
	}
	if c.strategy != nil {
		_, token, err := c.strategy.Make(c.host, g)
		return token, err
	}
	if s, ok := c.def.(ChoiceStrategy); ok {
		c.strategy = s
		return c.Make(g)
	}
	if c.def != nil {
		if err := c.setDefaultValue(g); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return nil, NewLogicError("choice %s has no value, default, or strategy", c.Obj().describe())
}

// setDefaultValue commits c.def through whichever concrete choice type's
// SetValue actually validates it - EnumChoice narrows Value to string, so
// Choice.SetValue (which has no domain to check) cannot be called directly
// for it without losing that validation.
func (c *Choice) setDefaultValue(g *Generation) error {
	switch h := c.host.(type) {
	case *EnumChoice:
		s, ok := c.def.(string)
		if !ok {
			return NewUsageError("default for enum choice %s must be a string", c.Obj().describe())
		}
		return h.SetValue(g, s)
	default:
		return c.SetValue(g, c.def)
	}
}

// Eliminate asks the configured strategy to rule out token and re-run
// deduction; called by the driver while backtracking.
func (c *Choice) Eliminate(g *Generation, token Value) error {
	if c.strategy == nil {
		return NewUsageError("choice %s has no strategy to eliminate against", c.Obj().describe())
	}
	return c.strategy.Eliminate(c.host, token, g)
}
