package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hopkinsidd/flepimop-inference/internal/checkpoint"
	"github.com/hopkinsidd/flepimop-inference/internal/config"
	"github.com/hopkinsidd/flepimop-inference/internal/groundtruth"
	"github.com/hopkinsidd/flepimop-inference/internal/hierarchical"
	"github.com/hopkinsidd/flepimop-inference/internal/likelihood"
	"github.com/hopkinsidd/flepimop-inference/internal/mcmcslot"
	"github.com/hopkinsidd/flepimop-inference/internal/metrics"
	"github.com/hopkinsidd/flepimop-inference/internal/orchestrator"
	"github.com/hopkinsidd/flepimop-inference/internal/paramtable"
	"github.com/hopkinsidd/flepimop-inference/internal/simulator"
	"github.com/hopkinsidd/flepimop-inference/internal/tablefmt"
	"github.com/hopkinsidd/flepimop-inference/internal/timeseries"
)

const dateFormat = "2006-01-02"

// runFromFlags resolves every flag against its environment-variable
// fallback and the loaded run configuration, then either runs a single
// slot (this_slot != 0) or the full orchestrator (this_slot == 0).
func runFromFlags(ctx context.Context, f cliFlags) error {
	configPath := config.ResolveString(f.configPath, "CONFIG", "")
	if configPath == "" {
		return &ConfigError{Err: fmt.Errorf("config: --config (or env CONFIG) is required")}
	}
	runCfg, err := config.Load(configPath)
	if err != nil {
		return &ConfigError{Err: err}
	}

	runID := config.ResolveString(f.runID, "RUN_ID", "")
	if runID == "" {
		return &ConfigError{Err: fmt.Errorf("config: --run_id (or env RUN_ID) is required")}
	}

	slots := firstPositive(f.slots, config.GetEnvInt("SLOTS", 0), runCfg.NSlots)
	iterationsPerSlot := firstPositive(f.iterationsPerSlot, config.GetEnvInt("ITERATIONS_PER_SLOT", 0), runCfg.Inference.IterationsPerSlot)
	jobs := firstPositive(f.jobs, config.GetEnvInt("JOBS", 0), 1)
	thisSlot := firstPositive(f.thisSlot, config.GetEnvInt("THIS_SLOT", 0), 0)
	thisBlock := firstPositive(f.thisBlock, config.GetEnvInt("THIS_BLOCK", 0), 1)

	seirScenario := config.ResolveString(f.seirModifiersScenarios, "SEIR_MODIFIERS_SCENARIOS", "all")
	outcomeScenario := config.ResolveString(f.outcomeModifiersScenarios, "OUTCOME_MODIFIERS_SCENARIOS", "all")

	window, err := resolveWindow(f, runCfg)
	if err != nil {
		return &ConfigError{Err: err}
	}

	statistics, statSpecs := buildStatistics(runCfg)
	if len(statistics) == 0 {
		return &ConfigError{Err: fmt.Errorf("config: inference.statistics must define at least one statistic")}
	}

	subpops := collectSubpops(runCfg)
	if len(subpops) == 0 {
		return &ConfigError{Err: fmt.Errorf("config: no subpops could be derived from seir_modifiers/outcome_modifiers configuration")}
	}

	setupName := strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	layout := checkpoint.Layout{SetupName: setupName, SEIRScenario: seirScenario, OutcomeScenario: outcomeScenario, RunID: runID}
	store := &checkpoint.Store{Root: config.ResolveString("", "CHECKPOINT_ROOT", "model_output"), Layout: layout, Logger: log.Logger}

	observed, err := loadObservedSeries(runCfg, statistics)
	if err != nil {
		return &ConfigError{Err: err}
	}
	src := groundtruth.Source{
		Observed: observed,
		Units:    statSpecs.units,
		Agg:      statSpecs.aggs,
		SimPath: func(statistic string) string {
			return filepath.Join(store.Root, layout.Dir(checkpoint.VariableHosp, checkpoint.ScopeGlobal, checkpoint.PhaseIntermediate), "outcome.csv")
		},
		SimColumn: func(statistic string) string { return statistic },
	}

	priors := buildPriors(runCfg)
	shrinkage := buildShrinkage(runCfg)

	mkDriver := func(slot int, seed int64) (*mcmcslot.Driver, error) {
		sim, err := newAdapter(f)
		if err != nil {
			return nil, err
		}
		cfg := mcmcslot.Config{
			Slot:                  slot,
			IterationsPerBlock:    iterationsPerSlot,
			Subpops:               subpops,
			Statistics:            statistics,
			Shrinkage:             shrinkage,
			Priors:                priors,
			ResetChimericOnAccept: f.resetChimericOnAccept || config.GetEnvBool("RESET_CHIMERIC_ON_ACCEPT", false),
			PerturbConfig:         paramtable.PerturbConfig{},
			Variables: mcmcslot.RequiredVariables{
				Global:   []checkpoint.Variable{checkpoint.VariableSeed, checkpoint.VariableSpar, checkpoint.VariableLlik},
				Chimeric: []checkpoint.Variable{checkpoint.VariableSeed, checkpoint.VariableSpar, checkpoint.VariableLlik},
			},
			Ext: "csv",
			SimConfig: simulator.Config{
				ConfigPath:      configPath,
				RunID:           runID,
				BlockPrefix:     layout.Dir(checkpoint.VariableHosp, checkpoint.ScopeGlobal, checkpoint.PhaseIntermediate),
				SEIRScenario:    seirScenario,
				OutcomeScenario: outcomeScenario,
				StochTrajFlag:   f.stochTrajFlag || config.GetEnvBool("STOCH_TRAJ_FLAG", false),
			},
		}
		return mcmcslot.NewDriver(cfg, store, sim, src, tablefmt.CSVEncoder{}, seed, log.Logger), nil
	}

	initial := buildInitialSet(runCfg, subpops)

	if thisSlot != 0 {
		driver, err := mkDriver(thisSlot, orchestrator.DeriveSeed(runID, orchestrator.Scenario{SEIR: seirScenario, Outcome: outcomeScenario}, thisSlot))
		if err != nil {
			return &ConfigError{Err: err}
		}
		return runSlot(ctx, driver, initial, thisBlock, window, f.isResume || config.GetEnvBool("IS_RESUME", false), store, layout, thisSlot)
	}

	reg := metrics.NewRegistry()
	worker := func(ctx context.Context, scenario orchestrator.Scenario, slot int, seed int64) error {
		driver, err := mkDriver(slot, seed)
		if err != nil {
			return err
		}
		return runSlot(ctx, driver, initial.Clone(), thisBlock, window, f.isResume || config.GetEnvBool("IS_RESUME", false), store, layout, slot)
	}

	orc := orchestrator.New(orchestrator.Config{
		RunID:     runID,
		Scenarios: []orchestrator.Scenario{{SEIR: seirScenario, Outcome: outcomeScenario}},
		Slots:     slots,
		Jobs:      jobs,
	}, worker, reg, log.Logger)

	return orc.Run(ctx)
}

// runSlot runs a single slot's Initialize (only on a fresh, non-resuming
// first block) followed by RunBlock for block.
func runSlot(ctx context.Context, driver *mcmcslot.Driver, initial *paramtable.Set, block int, window timeseries.Window, isResume bool, store *checkpoint.Store, layout checkpoint.Layout, slot int) error {
	if block <= 1 && !isResume {
		if err := driver.Initialize(ctx, initial); err != nil {
			return err
		}
	} else if isResume {
		path, perr := layout.Path(checkpoint.VariableSpar, checkpoint.ScopeGlobal, checkpoint.PhaseFinal, slot, block-1, 0, "csv")
		if perr != nil {
			return &ConfigError{Err: perr}
		}
		if !store.Exists(checkpoint.VariableSpar, checkpoint.ScopeGlobal, checkpoint.PhaseFinal, slot, block-1, 0, "csv") {
			return &checkpoint.ResumePreconditionError{Slot: slot, Block: block, Variable: checkpoint.VariableSpar, Path: path}
		}
	}

	return driver.RunBlock(ctx, block, window)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func resolveWindow(f cliFlags, runCfg *config.RunConfig) (timeseries.Window, error) {
	start := runCfg.StartDateGroundTruth
	end := runCfg.EndDateGroundTruth

	if s := config.ResolveString(f.groundTruthStart, "GROUND_TRUTH_START", ""); s != "" {
		parsed, err := time.Parse(dateFormat, s)
		if err != nil {
			return timeseries.Window{}, fmt.Errorf("ground_truth_start: %w", err)
		}
		start = parsed
	}
	if s := config.ResolveString(f.groundTruthEnd, "GROUND_TRUTH_END", ""); s != "" {
		parsed, err := time.Parse(dateFormat, s)
		if err != nil {
			return timeseries.Window{}, fmt.Errorf("ground_truth_end: %w", err)
		}
		end = parsed
	}
	if start.IsZero() || end.IsZero() {
		return timeseries.Window{}, fmt.Errorf("a ground-truth evaluation window start/end is required (start_date_groundtruth/end_date_groundtruth or --ground_truth_start/--ground_truth_end)")
	}
	return timeseries.NewWindow(start, end, timeseries.PeriodDay), nil
}

type statisticSpecs struct {
	units map[string]timeseries.PeriodUnit
	aggs  map[string]timeseries.Aggregator
}

func buildStatistics(runCfg *config.RunConfig) ([]likelihood.Statistic, statisticSpecs) {
	specs := statisticSpecs{units: map[string]timeseries.PeriodUnit{}, aggs: map[string]timeseries.Aggregator{}}
	var out []likelihood.Statistic
	for _, s := range runCfg.Inference.Statistics {
		out = append(out, likelihood.Statistic{
			Name:         s.Name,
			Distribution: parseDistribution(s.Distribution),
			Param:        s.Param,
			Param2:       s.Param2,
			AddOne:       likelihood.AddOnePolicy(s.AddOne),
		})
		specs.units[s.Name] = parsePeriod(s.Period)
		specs.aggs[s.Name] = parseAggregator(s.Aggregator)
	}
	return out, specs
}

func parseDistribution(name string) likelihood.Distribution {
	switch strings.ToLower(name) {
	case "poisson":
		return likelihood.Poisson
	case "normal":
		return likelihood.Normal
	case "normal_cov":
		return likelihood.NormalCoV
	case "negative_binomial", "nbinom":
		return likelihood.NegativeBinomial
	case "sqrtnorm":
		return likelihood.SqrtNormal
	case "sqrtnorm_cov":
		return likelihood.SqrtNormalCoV
	case "sqrtnorm_scale_sim":
		return likelihood.SqrtNormalScaleSim
	case "log_normal", "lognormal":
		return likelihood.LogNormal
	default:
		return likelihood.Normal
	}
}

func parsePeriod(name string) timeseries.PeriodUnit {
	switch strings.ToLower(name) {
	case "week", "weekly":
		return timeseries.PeriodWeek
	case "month", "monthly":
		return timeseries.PeriodMonth
	default:
		return timeseries.PeriodDay
	}
}

func parseAggregator(name string) timeseries.Aggregator {
	if strings.ToLower(name) == "mean" {
		return timeseries.AggregatorMean
	}
	return timeseries.AggregatorSum
}

func buildPriors(runCfg *config.RunConfig) hierarchical.PriorAdjuster {
	priors := map[string]hierarchical.Prior{}
	for _, p := range runCfg.Inference.Priors {
		kind := hierarchical.PriorNormal
		if strings.ToLower(p.Kind) == "logit_normal" {
			kind = hierarchical.PriorLogitNormal
		}
		priors[p.Parameter] = hierarchical.Prior{Kind: kind, Mu: p.Mean, Sigma: p.SD}
	}
	return hierarchical.PriorAdjuster{Priors: priors}
}

func buildShrinkage(runCfg *config.RunConfig) []mcmcslot.ShrinkageSpec {
	var specs []mcmcslot.ShrinkageSpec
	for _, h := range runCfg.Inference.HierarchicalStatsGeo {
		transform := hierarchical.TransformIdentity
		if strings.ToLower(h.Transform) == "logit" {
			transform = hierarchical.TransformLogit
		}
		name := h.Parameter
		specs = append(specs, mcmcslot.ShrinkageSpec{
			Adjuster:     hierarchical.ShrinkageAdjuster{Transform: transform},
			ModifierName: name,
			GroupOf:      func(subpop string) string { return "all" },
		})
	}
	return specs
}

func collectSubpops(runCfg *config.RunConfig) []string {
	seen := map[string]bool{}
	var out []string
	add := func(subpops []string) {
		for _, s := range subpops {
			if s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	for _, m := range runCfg.SEIRModifiers {
		add(m.Subpops)
	}
	for _, m := range runCfg.OutcomeModifiers {
		add(m.Subpops)
	}
	return out
}

func buildInitialSet(runCfg *config.RunConfig, subpops []string) *paramtable.Set {
	var transmissionSpecs []paramtable.ModifierSpec
	for name, m := range runCfg.SEIRModifiers {
		transmissionSpecs = append(transmissionSpecs, paramtable.ModifierSpec{
			Name:         name,
			Subpops:      m.Subpops,
			PriorMean:    m.Value,
			ValueSupport: paramtable.Uniform{Lo: 0, Hi: 1},
			PerturbSD:    m.Perturbation.SD,
		})
	}
	var outcomeSpecs []paramtable.ModifierSpec
	for name, m := range runCfg.OutcomeModifiers {
		outcomeSpecs = append(outcomeSpecs, paramtable.ModifierSpec{
			Name:         name,
			Subpops:      m.Subpops,
			PriorMean:    m.Value,
			ValueSupport: paramtable.Uniform{Lo: 0, Hi: 1},
			PerturbSD:    m.Perturbation.SD,
		})
	}

	return &paramtable.Set{
		TransmissionModifiers: paramtable.InitializeTransmissionModifiers(transmissionSpecs),
		OutcomeModifiers:      paramtable.InitializeOutcomeModifiers(outcomeSpecs),
		InitialConditions:     paramtable.InitialConditionDefaults(subpops, "S", []string{"E", "I", "R"}, runCfg.InitialConditions.Perturbation != 0),
	}
}

func loadObservedSeries(runCfg *config.RunConfig, statistics []likelihood.Statistic) (map[string]groundtruth.Series, error) {
	out := map[string]groundtruth.Series{}
	for _, s := range statistics {
		series, err := groundtruth.LoadCSV(runCfg.Inference.GTDataPath, s.Name)
		if err != nil {
			return nil, err
		}
		out[s.Name] = series
	}
	return out, nil
}

func newAdapter(f cliFlags) (simulator.Adapter, error) {
	dockerImage := config.ResolveString(f.dockerImage, "SIMULATOR_DOCKER_IMAGE", "")
	if dockerImage != "" {
		return simulator.NewDockerAdapter(dockerImage, 10*time.Minute, log.Logger)
	}
	binary := config.ResolveString(f.simulatorBinary, "SIMULATOR_BINARY", "")
	if binary == "" {
		return nil, fmt.Errorf("config: one of --simulator_binary or --simulator_docker_image (or their env equivalents) is required")
	}
	return &simulator.ProcessAdapter{BinaryPath: binary, Timeout: 10 * time.Minute, Logger: log.Logger}, nil
}
