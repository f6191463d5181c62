package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/aomg-go/internal/schema"
)

func TestDefaultConfigMatchesBuiltInDefaults(t *testing.T) {
	cfg := schema.DefaultConfig()
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
	assert.Equal(t, "", cfg.Seed)
	assert.Equal(t, schema.DefaultObstacleWeights(), cfg.Obstacle.Weights())
}

func TestLoadConfigOverridesOnlyGivenFields(t *testing.T) {
	cfg, err := schema.LoadConfig(strings.NewReader(`
seed: "dungeon-1"
width: 6
`))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Width)
	assert.Equal(t, 10, cfg.Height) // left at the default
	assert.Equal(t, "dungeon-1", cfg.Seed)
	assert.Equal(t, schema.DefaultObstacleWeights(), cfg.Obstacle.Weights())
}

func TestLoadConfigParsesObstacleWeights(t *testing.T) {
	cfg, err := schema.LoadConfig(strings.NewReader(`
width: 8
height: 8
obstacle:
  wall_weight: 1.0
  nothing_weight: 2.0
  even_weight: 0.25
`))
	require.NoError(t, err)

	assert.Equal(t, schema.ObstacleWeights{WallWeight: 1.0, NothingWeight: 2.0, EvenWeight: 0.25}, cfg.Obstacle.Weights())
}

func TestLoadConfigRejectsNonPositiveDimensions(t *testing.T) {
	_, err := schema.LoadConfig(strings.NewReader("width: 0\nheight: 5\n"))
	require.Error(t, err)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := schema.LoadConfig(strings.NewReader("width: [this is not an int\n"))
	require.Error(t, err)
}
