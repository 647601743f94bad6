// Package commands provides CLI command implementations.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Abdo-hisham/rl-project/pkg/rlproject"
)

// Train command flags
var (
	trainAlgorithm   string
	trainEnvironment string
	trainGridSize    int
	trainMaxSteps    int
	trainSlippery    bool
	trainBrickRows   int
	trainGamma       float64
	trainTheta       float64
	trainAlpha       float64
	trainEpsilon     float64
	trainEpisodes    int
	trainNSteps      int
	trainSeed        int64
	trainEvery       int
	trainJSON        bool
	trainHistory     string
)

// TrainCmd runs one training session to completion.
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train an algorithm on an environment",
	Long: `Run one training session to completion and print the learned values.

Press Ctrl+C to cancel; the session stops after its current sweep or episode
and reports the partial result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := rlproject.NewEventBus()
		defer bus.Close()

		service := rlproject.NewTrainingService(bus)
		if trainHistory != "" {
			store, err := rlproject.OpenHistoryStore(trainHistory)
			if err != nil {
				return err
			}
			defer store.Close()
			service = rlproject.NewTrainingService(bus, rlproject.WithHistoryStore(store))
		}

		if !trainJSON {
			bus.On(printProgress)
		}

		session, err := service.StartTraining(context.Background(), "cli", rlproject.TrainingConfig{
			Algorithm:   rlproject.Algorithm(trainAlgorithm),
			Environment: rlproject.EnvironmentID(trainEnvironment),
			EnvConfig:   trainEnvConfig(),
			Hyperparams: trainHyperparams(),
		})
		if err != nil {
			return err
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			<-sigChan
			fmt.Fprintln(os.Stderr, "\ncancelling...")
			session.Stop()
		}()

		session.Wait()

		if err := session.Err(); err != nil {
			return err
		}
		return printResult(session)
	},
}

func trainEnvConfig() rlproject.EnvConfig {
	return rlproject.EnvConfig{
		GridSize:  trainGridSize,
		MaxSteps:  trainMaxSteps,
		Slippery:  trainSlippery,
		BrickRows: trainBrickRows,
	}
}

func trainHyperparams() rlproject.Hyperparams {
	hp := rlproject.DefaultHyperparams()
	hp.Gamma = trainGamma
	hp.Theta = trainTheta
	hp.Alpha = trainAlpha
	hp.Epsilon = trainEpsilon
	hp.Episodes = trainEpisodes
	hp.NSteps = trainNSteps
	hp.Seed = trainSeed
	return hp
}

// printProgress prints one line per progress event, thinned to every Nth
// unit plus the first.
func printProgress(event rlproject.Event) {
	if event.Type != rlproject.EventTrainingProgress {
		return
	}
	payload, ok := event.Payload.(rlproject.ProgressPayload)
	if !ok {
		return
	}
	if trainEvery > 1 && payload.Unit != 1 && payload.Unit%trainEvery != 0 {
		return
	}
	if payload.TotalUnits > 0 {
		fmt.Printf("episode %d/%d  reward %.2f  avg(100) %.3f\n",
			payload.Unit, payload.TotalUnits, payload.Reward, payload.AvgReward)
		return
	}
	fmt.Printf("sweep %d  delta %.6f\n", payload.Unit, payload.Delta)
}

func printResult(session *rlproject.Session) error {
	result := session.Result()
	if trainJSON {
		out := map[string]any{
			"sessionId": session.ID,
			"state":     session.State(),
			"units":     session.Units(),
			"values":    result.Values.Snapshot(),
			"history":   result.History,
		}
		if len(result.Policy) > 0 {
			out["policy"] = result.Policy.Snapshot()
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("\nsession %s: %s after %d units\n\n", session.ID, session.State(), session.Units())

	values := result.Values.Snapshot()
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	actions := rlproject.ActionNames(rlproject.EnvironmentID(trainEnvironment))
	policy := result.Policy.Snapshot()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tVALUE\tPOLICY")
	for _, key := range keys {
		action := "-"
		if a, ok := policy[key]; ok && a < len(actions) {
			action = actions[a]
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\n", key, values[key], action)
	}
	return w.Flush()
}

func init() {
	TrainCmd.Flags().StringVarP(&trainAlgorithm, "algorithm", "a", "value_iteration", "Algorithm identifier")
	TrainCmd.Flags().StringVarP(&trainEnvironment, "environment", "e", "gridworld", "Environment identifier")
	TrainCmd.Flags().IntVar(&trainGridSize, "grid-size", 4, "Environment grid size")
	TrainCmd.Flags().IntVar(&trainMaxSteps, "max-steps", 0, "Episode step cap (0 for the environment default)")
	TrainCmd.Flags().BoolVar(&trainSlippery, "slippery", false, "Enable the frozen lake slip model")
	TrainCmd.Flags().IntVar(&trainBrickRows, "brick-rows", 0, "Breakout brick rows (0 for the default)")
	TrainCmd.Flags().Float64Var(&trainGamma, "gamma", 0.99, "Discount factor")
	TrainCmd.Flags().Float64Var(&trainTheta, "theta", 1e-4, "Convergence threshold")
	TrainCmd.Flags().Float64Var(&trainAlpha, "alpha", 0.1, "Learning rate")
	TrainCmd.Flags().Float64Var(&trainEpsilon, "epsilon", 0.1, "Exploration probability")
	TrainCmd.Flags().IntVar(&trainEpisodes, "episodes", 100, "Episode count for episodic algorithms")
	TrainCmd.Flags().IntVar(&trainNSteps, "n-steps", 3, "Lookahead window for n-step TD")
	TrainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "RNG seed (0 for the clock)")
	TrainCmd.Flags().IntVar(&trainEvery, "progress-every", 10, "Print every Nth progress event")
	TrainCmd.Flags().BoolVar(&trainJSON, "json", false, "Emit the final result as JSON")
	TrainCmd.Flags().StringVar(&trainHistory, "history", "", "Record the run into a SQLite history database at this path")
}
