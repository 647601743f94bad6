package engines

import (
	"math"
	"testing"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/envs"
)

func TestTDZeroChainExact(t *testing.T) {
	hp := rl.DefaultHyperparams()
	hp.Gamma = 0.5
	hp.Alpha = 0.5
	hp.Episodes = 2
	hp.Seed = 1

	engine := NewTDZero(newChainEnv(3), hp)

	// Episode 1: V(s0) += 0.5*(0 + 0.5*0 - 0) = 0, then V(s1) += 0.5*(1 - 0).
	inc, err := engine.RunIncrement()
	if err != nil {
		t.Fatal(err)
	}
	if inc.Unit != 1 || inc.Done || inc.Reward != 1 {
		t.Fatalf("episode 1 increment %+v", inc)
	}
	values := engine.Snapshot().Values
	if got := values.Get(chainState(0)); got != 0 {
		t.Errorf("after episode 1: V(s0) = %v, want 0", got)
	}
	if got := values.Get(chainState(1)); got != 0.5 {
		t.Errorf("after episode 1: V(s1) = %v, want 0.5", got)
	}

	// Episode 2: V(s0) = 0 + 0.5*(0.5*0.5) = 0.125, V(s1) = 0.5 + 0.5*0.5.
	inc, err = engine.RunIncrement()
	if err != nil {
		t.Fatal(err)
	}
	if !inc.Done {
		t.Fatalf("episode 2 should be terminal: %+v", inc)
	}
	values = engine.Snapshot().Values
	if got := values.Get(chainState(0)); got != 0.125 {
		t.Errorf("after episode 2: V(s0) = %v, want 0.125", got)
	}
	if got := values.Get(chainState(1)); got != 0.75 {
		t.Errorf("after episode 2: V(s1) = %v, want 0.75", got)
	}
}

func TestTDZeroTerminalTargetSkipsBootstrap(t *testing.T) {
	// Values near the terminal state must not bootstrap on it, so V(s1)
	// converges to the terminal reward, not reward plus gamma*V(terminal).
	hp := rl.DefaultHyperparams()
	hp.Gamma = 0.9
	hp.Alpha = 0.5
	hp.Episodes = 50
	hp.Seed = 1

	engine := NewTDZero(newChainEnv(3), hp)
	runToCompletion(t, engine)

	values := engine.Snapshot().Values
	if got := values.Get(chainState(1)); math.Abs(got-1) > 1e-6 {
		t.Errorf("V(s1) = %v, want to approach 1", got)
	}
}

func TestSARSAOnPolicyTrace(t *testing.T) {
	environment, err := envs.NewGridworld(env.Config{GridSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	hp := rl.DefaultHyperparams()
	hp.Episodes = 10
	hp.Epsilon = 0.5
	hp.Seed = 9

	engine := NewSARSA(environment, hp)
	for episode := 0; episode < hp.Episodes; episode++ {
		if _, err := engine.RunIncrement(); err != nil {
			t.Fatal(err)
		}
		trace := engine.Trace()
		if len(trace) == 0 {
			t.Fatal("empty episode trace")
		}
		// The action selected for the bootstrap target must be the action
		// executed on the following step.
		for i := 0; i+1 < len(trace); i++ {
			if trace[i].NextAction != trace[i+1].Action {
				t.Fatalf("episode %d step %d: target action %d but executed %d",
					episode, i, trace[i].NextAction, trace[i+1].Action)
			}
			if trace[i].NextState != trace[i+1].State {
				t.Fatalf("episode %d step %d: trace states disconnected", episode, i)
			}
		}
		last := trace[len(trace)-1]
		if !last.Done || last.NextAction != -1 {
			t.Fatalf("episode %d: final step %+v should be done with no next action", episode, last)
		}
	}
}

func TestSARSAChainTerminalUpdate(t *testing.T) {
	hp := rl.DefaultHyperparams()
	hp.Gamma = 0.5
	hp.Alpha = 0.5
	hp.Episodes = 1
	hp.Seed = 1

	engine := NewSARSA(newChainEnv(3), hp)
	if _, err := engine.RunIncrement(); err != nil {
		t.Fatal(err)
	}

	// Single action: Q(s1, 0) += 0.5*(1 - 0) on the terminal step.
	result := engine.Snapshot()
	if got := result.Q.Get(chainState(1), 0); got != 0.5 {
		t.Errorf("Q(s1, 0) = %v, want 0.5", got)
	}
}

func TestSARSALearnsGridworldPolicy(t *testing.T) {
	environment, err := envs.NewGridworld(env.Config{GridSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	hp := rl.DefaultHyperparams()
	hp.Episodes = 500
	hp.Alpha = 0.3
	hp.Epsilon = 0.3
	hp.Seed = 4

	engine := NewSARSA(environment, hp)
	runToCompletion(t, engine)

	result := engine.Snapshot()
	steps, total := replayGreedy(t, environment, result.Policy, 5)
	if steps > 3 || total < 8 {
		t.Errorf("greedy policy took %d steps for return %v, want the goal within 3 steps", steps, total)
	}
}

func TestNStepTDChainExact(t *testing.T) {
	hp := rl.DefaultHyperparams()
	hp.Gamma = 0.5
	hp.Alpha = 0.5
	hp.NSteps = 2
	hp.Episodes = 1
	hp.Seed = 1

	engine := NewNStepTD(newChainEnv(3), hp)
	if _, err := engine.RunIncrement(); err != nil {
		t.Fatal(err)
	}

	// Two-step episode, n=2: both updates use the tail return without
	// bootstrapping. G(t=0) = 0 + 0.5*1, G(t=1) = 1.
	values := engine.Snapshot().Values
	if got := values.Get(chainState(0)); got != 0.25 {
		t.Errorf("V(s0) = %v, want 0.25", got)
	}
	if got := values.Get(chainState(1)); got != 0.5 {
		t.Errorf("V(s1) = %v, want 0.5", got)
	}
}

func TestNStepTDBootstrapsFullWindows(t *testing.T) {
	hp := rl.DefaultHyperparams()
	hp.Gamma = 1
	hp.Alpha = 1
	hp.NSteps = 1
	hp.Episodes = 1
	hp.Seed = 1

	// Chain of length 4, alpha 1, n=1: V(s2) = 1 from its own update, but
	// earlier states bootstrapped on pre-update values and stay 0.
	engine := NewNStepTD(newChainEnv(4), hp)
	if _, err := engine.RunIncrement(); err != nil {
		t.Fatal(err)
	}

	values := engine.Snapshot().Values
	if got := values.Get(chainState(2)); got != 1 {
		t.Errorf("V(s2) = %v, want 1", got)
	}
	if got := values.Get(chainState(0)); got != 0 {
		t.Errorf("V(s0) = %v, want 0 before the value propagates back", got)
	}
}

func TestNStepTDEpisodeCount(t *testing.T) {
	hp := rl.DefaultHyperparams()
	hp.Episodes = 5
	hp.Seed = 1

	engine := NewNStepTD(newChainEnv(3), hp)
	final := runToCompletion(t, engine)
	if final.Unit != 5 {
		t.Fatalf("final unit %d, want 5", final.Unit)
	}
	if len(engine.Snapshot().History.EpisodeRewards) != 5 {
		t.Fatal("history should record every episode")
	}
}
