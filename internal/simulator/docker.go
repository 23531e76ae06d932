package simulator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// DockerAdapter runs the simulator inside a container scoped to one slot,
// grounded on the pack's Docker client wrapper (New/ContainerCreate/
// ContainerStart/ContainerStop): one container is created per slot at
// Initialize and torn down by Close, rather than one per iteration, since
// spec §5 "Shared resources" gives each slot exclusive ownership of its own
// scratch area for the whole run.
type DockerAdapter struct {
	Image   string
	Timeout time.Duration
	Logger  zerolog.Logger

	cli         *client.Client
	containerID string
	cfg         Config
}

// NewDockerAdapter opens a Docker API client using the ambient environment
// (DOCKER_HOST and friends), negotiating the API version against the daemon.
func NewDockerAdapter(image string, timeout time.Duration, logger zerolog.Logger) (*DockerAdapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("simulator: creating docker client: %w", err)
	}
	return &DockerAdapter{Image: image, Timeout: timeout, Logger: logger, cli: cli}, nil
}

func (a *DockerAdapter) Initialize(ctx context.Context, cfg Config) error {
	a.cfg = cfg

	resp, err := a.cli.ContainerCreate(ctx, &container.Config{
		Image: a.Image,
		Env: []string{
			"RUN_ID=" + cfg.RunID,
			"BLOCK_PREFIX=" + cfg.BlockPrefix,
			"SEIR_SCENARIO=" + cfg.SEIRScenario,
			"OUTCOME_SCENARIO=" + cfg.OutcomeScenario,
		},
	}, &container.HostConfig{
		Binds: []string{cfg.ConfigPath + ":/config:ro"},
	}, nil, nil, "")
	if err != nil {
		return fmt.Errorf("simulator: creating container: %w", err)
	}
	a.containerID = resp.ID

	if err := a.cli.ContainerStart(ctx, a.containerID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("simulator: starting container: %w", err)
	}
	return nil
}

func (a *DockerAdapter) UpdatePrefix(ctx context.Context, newPrefix string) error {
	a.cfg.BlockPrefix = newPrefix
	execID, err := a.cli.ContainerExecCreate(ctx, a.containerID, types.ExecConfig{
		Cmd: []string{"update-prefix", newPrefix},
	})
	if err != nil {
		return fmt.Errorf("simulator: updating container block prefix: %w", err)
	}
	if err := a.cli.ContainerExecStart(ctx, execID.ID, types.ExecStartCheck{}); err != nil {
		return fmt.Errorf("simulator: updating container block prefix: %w", err)
	}
	return nil
}

func (a *DockerAdapter) OneSimulation(ctx context.Context, writeID, loadID int, hasLoadID bool) error {
	runCtx := ctx
	var cancel context.CancelFunc
	if a.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	cmd := []string{"one-simulation", "--sim-id2write", strconv.Itoa(writeID)}
	if hasLoadID {
		cmd = append(cmd, "--sim-id2load", strconv.Itoa(loadID))
	}

	execID, err := a.cli.ContainerExecCreate(runCtx, a.containerID, types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("%w: creating exec: %v", ErrSimulatorFailed, err)
	}

	if err := a.cli.ContainerExecStart(runCtx, execID.ID, types.ExecStartCheck{}); err != nil {
		return fmt.Errorf("%w: starting exec: %v", ErrSimulatorFailed, err)
	}

	inspect, err := a.cli.ContainerExecInspect(runCtx, execID.ID)
	if err != nil {
		return fmt.Errorf("%w: inspecting exec: %v", ErrSimulatorFailed, err)
	}
	if inspect.ExitCode != 0 {
		a.Logger.Warn().Int("exit_code", inspect.ExitCode).Int("sim_id2write", writeID).Msg("containerized simulator invocation failed")
		return fmt.Errorf("%w: exit code %d", ErrSimulatorFailed, inspect.ExitCode)
	}
	return nil
}

// Close stops and removes the slot's container.
func (a *DockerAdapter) Close(ctx context.Context) error {
	if a.containerID == "" {
		return nil
	}
	timeoutSeconds := 10
	if err := a.cli.ContainerStop(ctx, a.containerID, container.StopOptions{Timeout: &timeoutSeconds}); err != nil {
		return fmt.Errorf("simulator: stopping container: %w", err)
	}
	return a.cli.ContainerRemove(ctx, a.containerID, types.ContainerRemoveOptions{Force: true})
}
