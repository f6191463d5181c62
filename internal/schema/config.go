// Package schema's configuration loading: a maze's grid size, RNG seed, and
// obstacle weighting, expressed as YAML the way cmd/aomg's operators author
// it by hand.
package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ObstacleConfig is ObstacleWeights' YAML-facing mirror.
type ObstacleConfig struct {
	WallWeight    float64 `yaml:"wall_weight"`
	NothingWeight float64 `yaml:"nothing_weight"`
	EvenWeight    float64 `yaml:"even_weight"`
}

// Weights converts the loaded config into the ObstacleWeights
// NewMazeMapWithWeights expects.
func (o ObstacleConfig) Weights() ObstacleWeights {
	return ObstacleWeights{
		WallWeight:    o.WallWeight,
		NothingWeight: o.NothingWeight,
		EvenWeight:    o.EvenWeight,
	}
}

// Config is the top-level shape of a maze's YAML configuration file.
type Config struct {
	Width    int            `yaml:"width"`
	Height   int            `yaml:"height"`
	Seed     string         `yaml:"seed"`
	Obstacle ObstacleConfig `yaml:"obstacle"`
}

// DefaultConfig mirrors GridMap's and the maze schema's own built-in
// defaults, so a config file only needs to name the fields it overrides.
func DefaultConfig() Config {
	w := DefaultObstacleWeights()
	return Config{
		Width:  10,
		Height: 10,
		Seed:   "",
		Obstacle: ObstacleConfig{
			WallWeight:    w.WallWeight,
			NothingWeight: w.NothingWeight,
			EvenWeight:    w.EvenWeight,
		},
	}
}

// LoadConfig decodes YAML from r on top of DefaultConfig, so a partial file
// (e.g. only "seed:") still yields sane Width/Height/Obstacle values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode maze config: %w", err)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return Config{}, fmt.Errorf("maze config: width and height must be at least 1, got %dx%d", cfg.Width, cfg.Height)
	}
	return cfg, nil
}
