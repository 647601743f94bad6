// Package main provides the CLI entry point for rl-project.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Abdo-hisham/rl-project/cmd/rlproject/commands"
	"github.com/Abdo-hisham/rl-project/pkg/rlproject"
)

var (
	version = "1.0.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rlproject",
	Short: "Tabular reinforcement learning playground",
	Long: `rlproject trains tabular reinforcement learning algorithms on small
discrete environments and replays the learned policies.

It provides:
  - Dynamic programming: value iteration, policy iteration
  - Monte Carlo prediction and epsilon-greedy control
  - Temporal difference: TD(0), SARSA, n-step TD
  - Environments: gridworld, frozen_lake, breakout
  - Cancellable sessions with live progress events
  - SQLite-backed run history`,
	Version: version,
}

// ============================================================================
// List Command
// ============================================================================

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported algorithms and environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Algorithms:")
		for _, algorithm := range rlproject.Algorithms() {
			fmt.Printf("  %s\n", algorithm)
		}
		fmt.Println("\nEnvironments:")
		for _, environment := range rlproject.Environments() {
			fmt.Printf("  %s (actions: %v)\n", environment, rlproject.ActionNames(environment))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(commands.TrainCmd)
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
}
