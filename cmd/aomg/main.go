// Command aomg is a CLI front end for the game-world generator: it loads a
// maze configuration, runs the driver, and reports the resulting world.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aomg",
	Short: "aomg generates procedurally-deduced game worlds",
	Long: `aomg builds a game-object tree (a resizable grid of positions, or a
maze built on top of one), drives it to a fully-resolved world via
constraint deduction with backtracking, and reports the result.`,
}

func init() {
	rootCmd.AddCommand(generateCmd, versionCmd)
}
