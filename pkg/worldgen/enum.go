package worldgen

// attrEnumImpossible is the key under which EnumChoice stores its growing
// impossible-value set in its Object's local dictionary. The set is never
// mutated in place: every change builds a fresh map and replaces the
// stored value wholesale, so a forked clone's copy-on-write dictionary
// isolates it exactly like any other attribute.
const attrEnumImpossible = "impossible_values"

// EnumChoice is a choice over a fixed tuple of allowed string values, with
// a growing set of values ruled impossible by deduction.
type EnumChoice struct {
	Choice

	values []string
}

// NewEnumChoice builds an enum choice over values, parented under parent.
func NewEnumChoice(parent *Object, name string, values ...string) *EnumChoice {
	e := &EnumChoice{values: append([]string(nil), values...)}
	e.Object = newObject("EnumChoice", e)
	e.initChoice(e)
	if parent != nil {
		_ = parent.AddChild(e.Object, name)
	}
	return e
}

// Values returns the enum's full allowed-value tuple.
func (e *EnumChoice) Values() []string { return append([]string(nil), e.values...) }

func (e *EnumChoice) impossibleSet() map[string]struct{} {
	s, _ := e.Obj().GetOr(attrEnumImpossible, map[string]struct{}(nil)).(map[string]struct{})
	return s
}

func (e *EnumChoice) isImpossible(v string) bool {
	_, ok := e.impossibleSet()[v]
	return ok
}

// Possible returns the values not yet ruled impossible, in declared order.
func (e *EnumChoice) Possible() []string {
	var out []string
	for _, v := range e.values {
		if !e.isImpossible(v) {
			out = append(out, v)
		}
	}
	return out
}

// MarkImpossible rules out v, re-queuing this choice for FastDeduce.
func (e *EnumChoice) MarkImpossible(g *Generation, v string) {
	cur := e.impossibleSet()
	next := make(map[string]struct{}, len(cur)+1)
	for k := range cur {
		next[k] = struct{}{}
	}
	next[v] = struct{}{}
	_ = e.Obj().Set(attrEnumImpossible, next)
	if g != nil {
		g.MarkFastDeduction(e.Object)
	}
}

// SetValue validates v is one of the enum's allowed values before
// committing it through the embedded Choice lifecycle.
func (e *EnumChoice) SetValue(g *Generation, v string) error {
	found := false
	for _, allowed := range e.values {
		if allowed == v {
			found = true
			break
		}
	}
	if !found {
		return NewUsageError("%q is not a valid value for %s", v, e.Obj().describe())
	}
	return e.Choice.SetValue(g, v)
}

// Is builds the Enum(choice, allowed) condition restricted to allowed.
func (e *EnumChoice) Is(allowed ...string) Condition { return EnumC(e, allowed...) }

// IsNot builds the complement of Is: every value not in excluded.
func (e *EnumChoice) IsNot(excluded ...string) Condition {
	excl := map[string]struct{}{}
	for _, v := range excluded {
		excl[v] = struct{}{}
	}
	var allowed []string
	for _, v := range e.values {
		if _, ok := excl[v]; !ok {
			allowed = append(allowed, v)
		}
	}
	return EnumC(e, allowed...)
}

// FastDeduce: if exactly one possible value remains, set it; if none
// remain, raise LogicError.
func (e *EnumChoice) FastDeduce(g *Generation) error {
	if e.Known() {
		return nil
	}
	possible := e.Possible()
	if len(possible) == 0 {
		return NewLogicError("enum choice %s has no possible values left", e.Obj().describe())
	}
	if len(possible) == 1 {
		return e.SetValue(g, possible[0])
	}
	return nil
}

// CollectDependencies returns nothing extra: an enum choice's only
// "condition" is its own known-ness, already tracked by the driver.
func (e *EnumChoice) CollectDependencies() map[*Object]struct{} { return nil }

func (e *EnumChoice) forkClone() Node {
	ne := *e
	ne.host = &ne
	return &ne
}
