package simulator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ProcessAdapter drives a simulator binary as a local subprocess, grounded on
// the same os/exec invocation style the wider pack uses for short-lived
// external commands. Each call gets its own process; nothing is kept
// running between iterations.
type ProcessAdapter struct {
	BinaryPath string
	Timeout    time.Duration
	Logger     zerolog.Logger

	cfg Config
}

func (a *ProcessAdapter) Initialize(ctx context.Context, cfg Config) error {
	a.cfg = cfg
	return nil
}

func (a *ProcessAdapter) UpdatePrefix(ctx context.Context, newPrefix string) error {
	a.cfg.BlockPrefix = newPrefix
	return nil
}

func (a *ProcessAdapter) OneSimulation(ctx context.Context, writeID, loadID int, hasLoadID bool) error {
	runCtx := ctx
	var cancel context.CancelFunc
	if a.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	args := []string{
		"--config", a.cfg.ConfigPath,
		"--run-id", a.cfg.RunID,
		"--block-prefix", a.cfg.BlockPrefix,
		"--seir-scenario", a.cfg.SEIRScenario,
		"--outcome-scenario", a.cfg.OutcomeScenario,
		"--sim-id2write", strconv.Itoa(writeID),
	}
	if a.cfg.StochTrajFlag {
		args = append(args, "--stoch-traj-flag")
	}
	if hasLoadID {
		args = append(args, "--sim-id2load", strconv.Itoa(loadID))
	}

	cmd := exec.CommandContext(runCtx, a.BinaryPath, args...)
	// After the timeout kills the process, stop waiting on its output pipes
	// within WaitDelay so a child it spawned cannot keep the call blocked.
	cmd.WaitDelay = time.Second
	output, err := cmd.CombinedOutput()
	if err != nil {
		a.Logger.Warn().Err(err).Str("output", string(output)).Int("sim_id2write", writeID).Msg("simulator invocation failed")
		return fmt.Errorf("%w: %v", ErrSimulatorFailed, err)
	}
	return nil
}
