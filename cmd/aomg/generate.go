package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gitrdm/aomg-go/internal/rundriver"
	"github.com/gitrdm/aomg-go/internal/schema"
	"github.com/gitrdm/aomg-go/pkg/worldgen"
)

var (
	genConfigPath string
	genSeed       string
	genWidth      int
	genHeight     int
	genVerbose    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "generate a maze and report whether every cell is reachable",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genConfigPath, "config", "c", "", "path to a maze YAML config (defaults built in if omitted)")
	generateCmd.Flags().StringVar(&genSeed, "seed", "", "RNG seed; overrides the config file's seed if set")
	generateCmd.Flags().IntVar(&genWidth, "width", 0, "grid width; overrides the config file's width if > 0")
	generateCmd.Flags().IntVar(&genHeight, "height", 0, "grid height; overrides the config file's height if > 0")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "enable debug-level deduction logging")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadGenerateConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(genVerbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	world := worldgen.NewWorld()
	schema.NewMazeGameFromConfig(world.Obj(), "Game", cfg)

	var seed []byte
	if cfg.Seed != "" {
		seed = []byte(cfg.Seed)
	}

	result, err := rundriver.Run(logger.Sugar(), world, seed)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	return reportResult(cmd, result)
}

func loadGenerateConfig() (schema.Config, error) {
	cfg := schema.DefaultConfig()
	if genConfigPath != "" {
		f, err := os.Open(genConfigPath)
		if err != nil {
			return schema.Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		cfg, err = schema.LoadConfig(f)
		if err != nil {
			return schema.Config{}, err
		}
	}
	if genSeed != "" {
		cfg.Seed = genSeed
	}
	if genWidth > 0 {
		cfg.Width = genWidth
	}
	if genHeight > 0 {
		cfg.Height = genHeight
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return config.Build()
}

func reportResult(cmd *cobra.Command, result *rundriver.Result) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s complete after %d backtrack(s)\n", result.RunID, result.Backtracks)

	gameChild, ok := result.World.Obj().Child("Game")
	if !ok {
		return fmt.Errorf("generated world is missing its Game object")
	}
	game, ok := gameChild.Impl().(*schema.MazeGame)
	if !ok {
		return fmt.Errorf("Game object is not a maze game")
	}

	width, _ := game.Map.Width.Value().(int)
	height, _ := game.Map.Height.Value().(int)
	fmt.Fprintf(w, "grid: %dx%d\n", width, height)

	reachable := 0
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			cell, ok := game.Map.CellAt(x, y)
			if ok && cell.AccessAnyState.KnownAccess() {
				reachable++
			}
		}
	}
	fmt.Fprintf(w, "reachable cells: %d/%d\n", reachable, width*height)
	fmt.Fprintf(w, "all positions goal reachable: %v\n", game.AllPositions.Reachable().KnownAccess())
	return nil
}
