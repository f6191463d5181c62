package worldgen

import (
	"fmt"
	"sort"
)

// EnumEvenDistribution picks the remaining possible value minimizing
// rng("<path>\0<value>\0EnumEvenDistribution"). Eliminate adds
// the eliminated value to the enum's impossible set and re-queues
// deduction.
type EnumEvenDistribution struct{}

func (EnumEvenDistribution) Make(host ChoiceHost, g *Generation) (Value, Value, error) {
	e, ok := host.(*EnumChoice)
	if !ok {
		return nil, nil, NewUsageError("EnumEvenDistribution can only drive an EnumChoice")
	}
	possible := e.Possible()
	if len(possible) == 0 {
		return nil, nil, NewLogicError("enum choice %s has no possible values left", e.Obj().describe())
	}
	best, bestScore := pickMin(possible, func(v string) float64 {
		return g.RNG().Float64(enumTag(e, v))
	})
	if err := e.SetValue(g, best); err != nil {
		return nil, nil, err
	}
	_ = bestScore
	return best, best, nil
}

func (EnumEvenDistribution) Eliminate(host ChoiceHost, token Value, g *Generation) error {
	e, ok := host.(*EnumChoice)
	if !ok {
		return NewUsageError("EnumEvenDistribution can only eliminate against an EnumChoice")
	}
	v, ok := token.(string)
	if !ok {
		return NewUsageError("EnumEvenDistribution token must be a string")
	}
	e.MarkImpossible(g, v)
	return nil
}

func enumTag(e *EnumChoice, value string) string {
	return fmt.Sprintf("%s\x00%s\x00EnumEvenDistribution", e.Obj().DottedPath(), value)
}

// pickMin picks the element of items minimizing score, breaking ties by
// the item's own formatted value for determinism.
func pickMin[T any](items []T, score func(T) float64) (T, float64) {
	best := items[0]
	bestScore := score(best)
	bestStr := fmt.Sprint(best)
	for _, it := range items[1:] {
		s := score(it)
		str := fmt.Sprint(it)
		if s < bestScore || (s == bestScore && str < bestStr) {
			best, bestScore, bestStr = it, s, str
		}
	}
	return best, bestScore
}

// WeightedEntry is one (weight, value-or-sub-strategy) pair of a
// WeightedStrategy entry list.
type WeightedEntry struct {
	Weight float64
	Value  Value // either a plain Value or a ChoiceStrategy to recurse into
}

// WeightedStrategy picks the entry index minimizing
// rng("<path>\0WeightedStrategy\0<index>")/weight among not-yet-eliminated
// indices, recursing into a sub-strategy entry or committing a plain value.
type WeightedStrategy struct {
	Entries    []WeightedEntry
	eliminated map[int]struct{}
}

func (w *WeightedStrategy) isEliminated(i int) bool {
	_, ok := w.eliminated[i]
	return ok
}

func (w *WeightedStrategy) Make(host ChoiceHost, g *Generation) (Value, Value, error) {
	type cand struct {
		idx   int
		score float64
	}
	var cands []cand
	path := host.Obj().DottedPath()
	for i, e := range w.Entries {
		if w.isEliminated(i) {
			continue
		}
		tag := fmt.Sprintf("%s\x00WeightedStrategy\x00%d", path, i)
		cands = append(cands, cand{idx: i, score: g.RNG().Float64(tag) / e.Weight})
	}
	if len(cands) == 0 {
		return nil, nil, NewLogicError("weighted strategy on %s has no candidates left", path)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score < cands[j].score })
	idx := cands[0].idx
	entry := w.Entries[idx]
	if sub, ok := entry.Value.(ChoiceStrategy); ok {
		v, _, err := sub.Make(host, g)
		if err != nil {
			return nil, nil, err
		}
		return v, idx, nil
	}
	if ec, ok := host.(*EnumChoice); ok {
		if s, ok2 := entry.Value.(string); ok2 {
			if err := ec.SetValue(g, s); err != nil {
				return nil, nil, err
			}
			return s, idx, nil
		}
	}
	if c := host.Obj().impl; c != nil {
		if choiceLike, ok := c.(interface {
			SetValue(*Generation, Value) error
		}); ok {
			if err := choiceLike.SetValue(g, entry.Value); err != nil {
				return nil, nil, err
			}
			return entry.Value, idx, nil
		}
	}
	return nil, nil, NewUsageError("WeightedStrategy could not commit a value on %s", path)
}

func (w *WeightedStrategy) Eliminate(host ChoiceHost, token Value, g *Generation) error {
	idx, ok := token.(int)
	if !ok {
		return NewUsageError("WeightedStrategy token must be an int index")
	}
	if w.eliminated == nil {
		w.eliminated = map[int]struct{}{}
	}
	w.eliminated[idx] = struct{}{}
	if e, ok := host.(*EnumChoice); ok {
		g.MarkFastDeduction(e.Object)
	}
	return nil
}
