package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/aomg-go/internal/schema"
	"github.com/gitrdm/aomg-go/pkg/worldgen"
)

func TestGridMapResizeGrowsAndShrinks(t *testing.T) {
	world := worldgen.NewWorld()
	grid := schema.NewGridMap(world.Obj(), "Grid")

	require.NoError(t, grid.Resize(nil, 3, 4))
	assertGridShape(t, grid, 3, 4)

	require.NoError(t, grid.Resize(nil, 5, 2))
	assertGridShape(t, grid, 5, 2)

	require.NoError(t, grid.Resize(nil, 2, 5))
	assertGridShape(t, grid, 2, 5)
}

func assertGridShape(t *testing.T, grid *schema.GridMap, width, height int) {
	t.Helper()
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			assert.True(t, grid.HasCell(x, y), "expected cell (%d,%d) to exist", x, y)
		}
	}
	assert.False(t, grid.HasCell(width, 0), "cell at x=width should not exist")
	assert.False(t, grid.HasCell(0, height), "cell at y=height should not exist")
}

func TestGridMapRejectsNonPositiveDimensions(t *testing.T) {
	world := worldgen.NewWorld()
	grid := schema.NewGridMap(world.Obj(), "Grid")

	err := grid.Resize(nil, 0, 3)
	require.Error(t, err)
	_, ok := err.(*worldgen.UsageError)
	assert.True(t, ok, "expected a UsageError, got %T", err)
}

func TestGridMapOnChoiceResizesOnceBothDimensionsCommit(t *testing.T) {
	world := worldgen.NewWorld()
	grid := schema.NewGridMap(world.Obj(), "Grid")

	require.NoError(t, grid.Width.SetValue(nil, 2))
	assert.False(t, grid.HasCell(0, 0), "resize should wait for both dimensions")

	require.NoError(t, grid.Height.SetValue(nil, 3))
	assertGridShape(t, grid, 2, 3)
}
