package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSeedIsDeterministic(t *testing.T) {
	scenario := Scenario{SEIR: "inference", Outcome: "med"}
	assert.Equal(t, DeriveSeed("run1", scenario, 3), DeriveSeed("run1", scenario, 3))
}

func TestDeriveSeedDiffersAcrossSlots(t *testing.T) {
	scenario := Scenario{SEIR: "inference", Outcome: "med"}
	assert.NotEqual(t, DeriveSeed("run1", scenario, 1), DeriveSeed("run1", scenario, 2))
}

func TestOrchestratorRunsEveryScenarioSlotPair(t *testing.T) {
	var count int64
	cfg := Config{
		RunID:     "run1",
		Scenarios: []Scenario{{SEIR: "a", Outcome: "x"}, {SEIR: "b", Outcome: "y"}},
		Slots:     3,
		Jobs:      2,
	}
	worker := func(ctx context.Context, scenario Scenario, slot int, seed int64) error {
		atomic.AddInt64(&count, 1)
		return nil
	}

	o := New(cfg, worker, nil, zerolog.Nop())
	require.NoError(t, o.Run(context.Background()))
	assert.EqualValues(t, 6, count, "expected 2 scenarios * 3 slots = 6 jobs")
}

func TestOrchestratorRespectsJobLimit(t *testing.T) {
	var mu sync.Mutex
	var inFlight, maxInFlight int64

	cfg := Config{RunID: "run1", Scenarios: []Scenario{{SEIR: "a", Outcome: "x"}}, Slots: 10, Jobs: 2}
	block := make(chan struct{})
	var once sync.Once

	worker := func(ctx context.Context, scenario Scenario, slot int, seed int64) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		once.Do(func() { close(block) })
		<-block

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}

	o := New(cfg, worker, nil, zerolog.Nop())
	require.NoError(t, o.Run(context.Background()))
	assert.LessOrEqual(t, maxInFlight, int64(2))
}

func TestOrchestratorPropagatesWorkerError(t *testing.T) {
	cfg := Config{RunID: "run1", Scenarios: []Scenario{{SEIR: "a", Outcome: "x"}}, Slots: 1, Jobs: 1}
	wantErr := errors.New("boom")
	worker := func(ctx context.Context, scenario Scenario, slot int, seed int64) error {
		return wantErr
	}

	o := New(cfg, worker, nil, zerolog.Nop())
	assert.Error(t, o.Run(context.Background()))
}

// TestOrchestratorFailingSlotDoesNotCancelSiblings asserts that one slot's
// error does not abort the other in-flight slots' contexts (spec §7 item 6:
// a fatal failure is fatal only to that slot).
func TestOrchestratorFailingSlotDoesNotCancelSiblings(t *testing.T) {
	cfg := Config{RunID: "run1", Scenarios: []Scenario{{SEIR: "a", Outcome: "x"}}, Slots: 2, Jobs: 2}
	started := make(chan struct{})
	release := make(chan struct{})
	slot2CtxErr := make(chan error, 1)

	worker := func(ctx context.Context, scenario Scenario, slot int, seed int64) error {
		if slot == 1 {
			<-started // wait until slot 2 has observed its context before failing
			return errors.New("slot 1 failed")
		}
		close(started)
		<-release
		slot2CtxErr <- ctx.Err()
		return nil
	}

	o := New(cfg, worker, nil, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	close(release)
	assert.NoError(t, <-slot2CtxErr, "slot 2's context should not be canceled by slot 1's failure")
	assert.Error(t, <-done, "slot 1's failure should still be reported")
}
