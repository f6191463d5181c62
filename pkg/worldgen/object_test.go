package worldgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/aomg-go/pkg/worldgen"
)

// A fork must isolate subsequent writes on either side: mutating the
// continuing object must never leak into the snapshot, and vice versa.
func TestForkIsolatesSubsequentWrites(t *testing.T) {
	c := worldgen.NewChoice(nil, "root")
	require.NoError(t, c.Obj().Set("mark", "original"))

	forked := c.Obj().Fork()

	require.NoError(t, c.Obj().Set("mark", "continued"))
	require.NoError(t, forked.Set("mark", "snapshot"))

	v, err := c.Obj().Get("mark")
	require.NoError(t, err)
	assert.Equal(t, "continued", v)

	v, err = forked.Get("mark")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", v)
}

// Freeze is used to archive a fork result (the driver's backtrack stack,
// the caller's pre-generation world); any write against it afterward is a
// programmer mistake, not a recoverable condition, and must surface as a
// UsageError.
func TestFreezeRejectsFurtherWrites(t *testing.T) {
	c := worldgen.NewChoice(nil, "root")
	c.Obj().Freeze()

	err := c.Obj().Set("mark", "value")
	require.Error(t, err)
	_, ok := err.(*worldgen.UsageError)
	assert.True(t, ok, "expected a *UsageError, got %T", err)
}

// Freeze must propagate to every descendant, not just the object it was
// called on.
func TestFreezePropagatesToChildren(t *testing.T) {
	parent := worldgen.NewChoice(nil, "parent")
	child := worldgen.NewChoice(parent.Obj(), "child")

	parent.Obj().Freeze()

	err := child.Obj().Set("mark", "value")
	require.Error(t, err)
	_, ok := err.(*worldgen.UsageError)
	assert.True(t, ok, "expected a *UsageError, got %T", err)
}

// Forking a parent must deep-clone its children too, rather than leaving
// them shared between the continuing tree and the snapshot.
func TestForkClonesDescendantsIndependently(t *testing.T) {
	parent := worldgen.NewChoice(nil, "parent")
	child := worldgen.NewChoice(parent.Obj(), "child")
	require.NoError(t, child.Obj().Set("mark", "original"))

	forkedParent := parent.Obj().Fork()
	forkedChild, ok := forkedParent.Child("child")
	require.True(t, ok)

	require.NoError(t, child.Obj().Set("mark", "continued"))

	v, err := forkedChild.Get("mark")
	require.NoError(t, err)
	assert.Equal(t, "original", v)
}
