// Package commands wires the inference-slot CLI: flag parsing, environment
// fallback, and the collaborators (checkpoint store, simulator adapter,
// ground-truth source, MCMC driver, orchestrator) the spec's components
// need to run one or many slots (spec §6).
package commands

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hopkinsidd/flepimop-inference/internal/checkpoint"
	"github.com/hopkinsidd/flepimop-inference/internal/config"
	"github.com/hopkinsidd/flepimop-inference/internal/logging"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	flags cliFlags
)

// cliFlags mirrors spec §6's CLI option table one field per row.
type cliFlags struct {
	configPath             string
	runID                  string
	seirModifiersScenarios string
	outcomeModifiersScenarios string
	jobs                   int
	iterationsPerSlot      int
	slots                  int
	thisSlot               int
	thisBlock              int
	stochTrajFlag          bool
	groundTruthStart       string
	groundTruthEnd         string
	isResume               bool
	resetChimericOnAccept  bool
	memoryProfiling        bool
	memoryProfilingIters   int

	simulatorBinary string
	dockerImage     string
	logDir          string
	verbose         bool
}

// ConfigError marks a failure spec §7 item 1/2 classifies as fatal with
// exit code 1 and no filesystem mutation: configuration errors and resume
// precondition failures.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode maps a returned error to the process exit code spec §6 defines:
// 0 success (never reached here, since Execute only returns on error), 1
// configuration/precondition failure, 2 uncaught runtime error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var configErr *ConfigError
	var resumeErr *checkpoint.ResumePreconditionError
	if errors.As(err, &configErr) || errors.As(err, &resumeErr) {
		return 1
	}
	return 2
}

var rootCmd = &cobra.Command{
	Use:   "inference-slot",
	Short: "inference-slot runs one chimeric MCMC calibration slot",
	Long: `inference-slot calibrates a compartmental epidemic simulator against
observed incidence time series via a block-structured, dual-chain
(global + chimeric) Metropolis-Hastings loop. Invoked with --this_slot it
runs a single slot; invoked without it, it orchestrates --slots slots
across --jobs concurrent workers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		if err := logging.Init(logging.Options{
			LogDir:  config.ResolveString(flags.logDir, "LOG_DIR", "logs"),
			Verbose: flags.verbose || config.GetEnvBool("VERBOSE", false),
			RunID:   flags.runID,
			Slot:    flags.thisSlot,
		}); err != nil {
			return &ConfigError{Err: err}
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("inference-slot starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFromFlags(cmd.Context(), flags)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&flags.configPath, "config", "", "path to run configuration (env CONFIG)")
	f.StringVar(&flags.runID, "run_id", "", "unique identifier for this run (env RUN_ID)")
	f.StringVar(&flags.seirModifiersScenarios, "seir_modifiers_scenarios", "all", "SEIR modifier scenario name, or \"all\" (env SEIR_MODIFIERS_SCENARIOS)")
	f.StringVar(&flags.outcomeModifiersScenarios, "outcome_modifiers_scenarios", "all", "outcome modifier scenario name, or \"all\" (env OUTCOME_MODIFIERS_SCENARIOS)")
	f.IntVar(&flags.jobs, "jobs", 0, "worker count for the orchestrator (env JOBS)")
	f.IntVar(&flags.iterationsPerSlot, "iterations_per_slot", 0, "iterations K per block (env ITERATIONS_PER_SLOT)")
	f.IntVar(&flags.slots, "slots", 0, "number of chains S (env SLOTS)")
	f.IntVar(&flags.thisSlot, "this_slot", 0, "run only this 1-indexed slot; 0 runs the full orchestrator (env THIS_SLOT)")
	f.IntVar(&flags.thisBlock, "this_block", 0, "starting block index (env THIS_BLOCK)")
	f.BoolVar(&flags.stochTrajFlag, "stoch_traj_flag", false, "switch the simulator to stochastic mode (env STOCH_TRAJ_FLAG)")
	f.StringVar(&flags.groundTruthStart, "ground_truth_start", "", "restrict the evaluation window's start (env GROUND_TRUTH_START)")
	f.StringVar(&flags.groundTruthEnd, "ground_truth_end", "", "restrict the evaluation window's end (env GROUND_TRUTH_END)")
	f.BoolVar(&flags.isResume, "is-resume", false, "require prior final artifacts to exist (env IS_RESUME)")
	f.BoolVar(&flags.resetChimericOnAccept, "reset_chimeric_on_accept", false, "reset chimeric state to global on a global accept (env RESET_CHIMERIC_ON_ACCEPT)")
	f.BoolVar(&flags.memoryProfiling, "memory_profiling", false, "enable periodic memory snapshots (env MEMORY_PROFILING)")
	f.IntVar(&flags.memoryProfilingIters, "memory_profiling_iters", 0, "memory snapshot cadence, in iterations (env MEMORY_PROFILING_ITERS)")
	f.StringVar(&flags.simulatorBinary, "simulator_binary", "", "path to the simulator binary for the process adapter (env SIMULATOR_BINARY); ignored when simulator_docker_image is set, since the Docker adapter is then used")
	f.StringVar(&flags.dockerImage, "simulator_docker_image", "", "Docker image for the simulator adapter (env SIMULATOR_DOCKER_IMAGE)")
	f.StringVar(&flags.logDir, "log_dir", "", "directory for rotating log files (env LOG_DIR)")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging (env VERBOSE)")
}
