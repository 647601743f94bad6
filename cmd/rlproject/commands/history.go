package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abdo-hisham/rl-project/pkg/rlproject"
)

// History command flags
var (
	historyPath  string
	historyLimit int
	historyJSON  bool
)

// HistoryCmd is the parent command for run-history operations.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded training runs",
	Long:  `Commands for listing and inspecting runs recorded with train --history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rlproject.OpenHistoryStore(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(context.Background(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs")
			return nil
		}

		if historyJSON {
			encoded, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tALGORITHM\tENVIRONMENT\tSTATE\tUNITS\tMETRIC\tSTARTED")
		for _, run := range runs {
			started := time.UnixMilli(run.StartedAt).Format(time.RFC3339)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\t%s\n",
				run.ID, run.Algorithm, run.Environment, run.State, run.Units, run.FinalMetric, started)
		}
		return w.Flush()
	},
}

var historyMetricsCmd = &cobra.Command{
	Use:   "metrics <run-id>",
	Short: "Print a run's per-increment metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rlproject.OpenHistoryStore(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()

		metrics, err := store.Metrics(context.Background(), args[0])
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			fmt.Println("No recorded metrics")
			return nil
		}

		if historyJSON {
			encoded, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		}

		for unit, metric := range metrics {
			fmt.Printf("%d\t%.6f\n", unit+1, metric)
		}
		return nil
	},
}

func init() {
	HistoryCmd.PersistentFlags().StringVar(&historyPath, "history", "rlproject.db", "Path to the SQLite history database")
	HistoryCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Emit JSON")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum runs to list (0 for all)")

	HistoryCmd.AddCommand(historyListCmd)
	HistoryCmd.AddCommand(historyMetricsCmd)
}
