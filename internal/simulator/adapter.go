// Package simulator holds the narrow contract the slot driver uses to invoke
// the forward epidemic simulator, plus two concrete adapters: one that
// shells out to a local process, one that runs the simulator inside a
// scoped Docker container (spec §4.5).
package simulator

import (
	"context"
	"errors"
)

// Config carries the knobs Initialize passes to the simulator: the run
// configuration path and the scenario selection for this slot.
type Config struct {
	ConfigPath         string
	RunID              string
	BlockPrefix        string
	SEIRScenario       string
	OutcomeScenario    string
	StochTrajFlag      bool
}

// Adapter is the forward simulator's required capability set (spec §4.5):
// the core never integrates compartments itself, it only drives this
// contract. No in-process state is shared between Adapter and the driver —
// every exchange happens through the parameter-table/outcome files at the
// adapter's configured prefix.
type Adapter interface {
	// Initialize prepares the adapter for a run: it does not itself produce
	// any output files.
	Initialize(ctx context.Context, cfg Config) error

	// UpdatePrefix repoints the adapter at a new block_prefix, used when a
	// slot driver advances to the next block.
	UpdatePrefix(ctx context.Context, newPrefix string) error

	// OneSimulation runs a single simulation: it reads the parameter tables
	// written at prefix.sim_id2load (or loads a prior simulation's outcome
	// via sim_id2load when loadID is set) and writes outcome tables at
	// prefix.sim_id2write. A nil error with exit code 0 means success;
	// ErrSimulatorFailed wraps a non-zero exit, which the driver treats as a
	// rejected iteration rather than a fatal error (spec §7 item 4).
	OneSimulation(ctx context.Context, writeID, loadID int, hasLoadID bool) error
}

// ErrSimulatorFailed wraps a non-zero-exit or timed-out simulator
// invocation. The caller (C7's per-iteration loop) treats this as a
// rejected iteration, not a fatal error.
var ErrSimulatorFailed = errors.New("simulator: invocation did not complete successfully")
