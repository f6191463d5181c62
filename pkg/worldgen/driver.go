package worldgen

import (
	"crypto/rand"
	"sort"
)

// ChoiceNode is implemented by every concrete choice type (*EnumChoice,
// *Port): the surface the driver's choice loop needs to collect unknown
// choices and drive their lifecycle.
type ChoiceNode interface {
	Node
	Known() bool
	Make(g *Generation) (Value, error)
	Eliminate(g *Generation, token Value) error
}

// Generation is the live context of one generate run: the working
// universe's RNG factory, fast-deduction queue, and open-port cache. It is
// passed to every FastDeduce/strategy call instead of being threaded
// through Object, keeping pkg/worldgen's core types free of any
// generation-specific state until a run is actually in progress.
type Generation struct {
	world  *World
	rng    *RNGFactory
	cache  *OpenPortCache
	queue  []*Object
	queued map[*Object]struct{}
	logger func(string, ...interface{})
}

// RNG returns the generation's seeded RNG factory.
func (g *Generation) RNG() *RNGFactory { return g.rng }

// OpenPortCache returns the generation's per-run open-port cache.
func (g *Generation) OpenPortCache() *OpenPortCache { return g.cache }

// World returns the working world this generation is mutating.
func (g *Generation) World() *World { return g.world }

// MarkFastDeduction enqueues obj for another FastDeduce pass. Duplicate
// enqueues of an already-queued object are suppressed.
func (g *Generation) MarkFastDeduction(obj *Object) {
	if obj == nil {
		return
	}
	if _, ok := g.queued[obj]; ok {
		return
	}
	g.queued[obj] = struct{}{}
	g.queue = append(g.queue, obj)
}

func (g *Generation) popQueue() *Object {
	if len(g.queue) == 0 {
		return nil
	}
	n := len(g.queue) - 1
	obj := g.queue[n]
	g.queue = g.queue[:n]
	delete(g.queued, obj)
	return obj
}

func (g *Generation) logf(format string, args ...interface{}) {
	if g.logger != nil {
		g.logger(format, args...)
	}
}

// snapshot is one entry of the backtrack stack: the forked working world as
// of just before a choice was made, the choice's path (so it can be
// re-resolved after the fork), and the token Make returned.
type snapshot struct {
	world *World
	path  []string
	token Value
}

// Driver runs the generation loop: fork, deduce to fixpoint, pick the
// next unknown choice by seeded order, fork again, apply its strategy, and
// repeat - backtracking on LogicError.
type Driver struct {
	Logger func(string, ...interface{})

	// OnBacktrack, if set, is called with the choice's path each time a
	// snapshot is popped off the backtrack stack. The driver itself does
	// not reprioritize any deduction in response.
	OnBacktrack func(path []string)
}

// Generate runs the full driver loop over world, seeded by seed (or 16
// cryptographically random bytes if seed is empty), returning the
// completed working world or the LogicError that survived every
// backtracking attempt.
func (d *Driver) Generate(world *World, seed []byte) (*World, error) {
	if len(seed) == 0 {
		seed = make([]byte, 16)
		if _, err := rand.Read(seed); err != nil {
			return nil, NewUsageError("failed to generate random seed: %v", err)
		}
	}
	workingObj := world.Obj().Fork()
	working, ok := workingObj.impl.(*World)
	if !ok {
		return nil, NewUsageError("world fork did not preserve the World type")
	}
	working.startedGeneration = true
	// The caller's input world is never touched again directly; freeze it
	// so an accidental write surfaces as a Usage error instead of silent
	// divergence between the caller's copy and the generation in progress.
	world.Obj().Freeze()

	g := &Generation{
		world:  working,
		rng:    NewRNGFactory(seed),
		cache:  NewOpenPortCache(),
		queued: map[*Object]struct{}{},
		logger: d.Logger,
	}

	queueWholeTree(g, working.Object)
	if err := runDeduceLoop(g); err != nil {
		return nil, err
	}

	var stack []snapshot
	for {
		choices := collectUnknownChoices(working.Object)
		if len(choices) == 0 {
			return working, nil
		}
		sort.Slice(choices, func(i, j int) bool {
			pi, pj := choices[i].Obj().DottedPath(), choices[j].Obj().DottedPath()
			si, sj := g.rng.Float64(pi+"choice_order"), g.rng.Float64(pj+"choice_order")
			if si != sj {
				return si < sj
			}
			return pi < pj
		})
		target := choices[len(choices)-1]
		path := target.Obj().Path()

		preChoiceWorld := g.world
		forkedObj := preChoiceWorld.Obj().Fork()
		snapWorld := forkedObj.impl.(*World)
		// snapWorld is archived on the backtrack stack and never written to
		// directly again - only re-forked (in backtrack, below) to produce
		// a fresh writable copy. Freezing it makes that invariant real.
		forkedObj.Freeze()

		resolved, err := resolveChoice(working.Object, path)
		if err != nil {
			return nil, err
		}
		if resolved.Known() {
			continue
		}
		g.logf("making choice %v", path)
		token, err := resolved.Make(g)
		if err == nil {
			stack = append(stack, snapshot{world: snapWorld, path: path, token: token})
			err = runDeduceLoop(g)
		}
		if err == nil {
			continue
		}
		if !IsLogicError(err) {
			return nil, err
		}
		stack, working, g, err = backtrack(d, stack, g, err)
		if err != nil {
			return nil, err
		}
	}
}

// backtrack restores the most recent snapshot, eliminates the choice that
// led to it, re-deduces; on repeated failure it walks progressively
// further back down the stack.
func backtrack(d *Driver, stack []snapshot, g *Generation, cause error) ([]snapshot, *World, *Generation, error) {
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if d.OnBacktrack != nil {
			d.OnBacktrack(top.path)
		}
		g.logf("backtracking choice %v: %v", top.path, cause)

		restoredObj := top.world.Obj().Fork()
		restored := restoredObj.impl.(*World)
		ng := &Generation{
			world:  restored,
			rng:    g.rng,
			cache:  NewOpenPortCache(),
			queued: map[*Object]struct{}{},
			logger: g.logger,
		}
		choice, err := resolveChoice(restored.Object, top.path)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := choice.Eliminate(ng, top.token); err != nil {
			if IsLogicError(err) {
				cause = err
				continue
			}
			return nil, nil, nil, err
		}
		queueWholeTree(ng, restored.Object)
		if err := runDeduceLoop(ng); err != nil {
			if IsLogicError(err) {
				cause = err
				continue
			}
			return nil, nil, nil, err
		}
		return stack, restored, ng, nil
	}
	return nil, nil, nil, cause
}

func resolveChoice(root *Object, path []string) (ChoiceNode, error) {
	obj, err := root.ObjectFromPath(path, false)
	if err != nil {
		return nil, err
	}
	cn, ok := obj.impl.(ChoiceNode)
	if !ok {
		return nil, NewUsageError("path %v does not resolve to a choice", path)
	}
	return cn, nil
}

func queueWholeTree(g *Generation, root *Object) {
	g.MarkFastDeduction(root)
	for _, node := range DescendantsByType[Node](root) {
		g.MarkFastDeduction(node.Obj())
	}
}

func runDeduceLoop(g *Generation) error {
	for {
		obj := g.popQueue()
		if obj == nil {
			return nil
		}
		if err := obj.impl.FastDeduce(g); err != nil {
			return err
		}
	}
}

func collectUnknownChoices(root *Object) []ChoiceNode {
	var out []ChoiceNode
	for _, cn := range DescendantsByType[ChoiceNode](root) {
		if !cn.Known() {
			out = append(out, cn)
		}
	}
	return out
}
