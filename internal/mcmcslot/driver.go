// Package mcmcslot implements the block-structured, dual-chain (global +
// chimeric) Metropolis-Hastings loop that drives one slot (spec §4.7).
package mcmcslot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/hopkinsidd/flepimop-inference/internal/checkpoint"
	"github.com/hopkinsidd/flepimop-inference/internal/hierarchical"
	"github.com/hopkinsidd/flepimop-inference/internal/likelihood"
	"github.com/hopkinsidd/flepimop-inference/internal/paramtable"
	"github.com/hopkinsidd/flepimop-inference/internal/simulator"
	"github.com/hopkinsidd/flepimop-inference/internal/timeseries"
)

// LikelihoodNaNError reports a subpop whose log-likelihood evaluated to NaN
// (spec §7 item 5): fatal, exit code 2, offending tables preserved.
type LikelihoodNaNError struct {
	Subpop string
	Block  int
	Iter   int
}

func (e *LikelihoodNaNError) Error() string {
	return fmt.Sprintf("mcmcslot: log-likelihood is NaN for subpop %q at block %d iteration %d", e.Subpop, e.Block, e.Iter)
}

// Encoder serializes parameter tables and the llik record to bytes in
// whatever columnar format the run is configured with; the concrete
// encoding is an external collaborator's concern (spec §1 Non-goals
// "file-format choice of the persisted tables"), so Driver only depends on
// this narrow interface.
type Encoder interface {
	EncodeSet(s *paramtable.Set) ([]byte, error)
	EncodeLlik(r LlikRecord) ([]byte, error)
}

// LlikRecord is one iteration's persisted likelihood row.
type LlikRecord struct {
	Scope             checkpoint.Scope
	PerSubpop         map[string]float64
	GlobalLogLik      float64
	Accept            bool
	AcceptProb        float64
	AcceptAvg         float64
}

// StatisticSource resolves, for one subpop and statistic, the simulator's
// aggregated series and the matching ground-truth series already aligned by
// bucket (spec §4.2's restrict/bucket/validate/aggregate pipeline is applied
// upstream of the driver's evaluate step, producing this aligned form).
type StatisticSource interface {
	AlignedSeries(subpop string, statistic likelihood.Statistic, window timeseries.Window) (likelihood.Series, error)
}

// Config bundles everything one slot's Driver needs across its lifetime.
type Config struct {
	Slot               int
	IterationsPerBlock int
	Subpops            []string
	Statistics         []likelihood.Statistic
	Shrinkage          []shrinkageSpec
	Priors             hierarchical.PriorAdjuster
	ResetChimericOnAccept bool
	PerturbConfig      paramtable.PerturbConfig
	Variables          requiredVariables
	Ext                string
	SimConfig          simulator.Config
}

type shrinkageSpec struct {
	Adjuster     hierarchical.ShrinkageAdjuster
	ModifierName string
	GroupOf      func(subpop string) string
}

// ShrinkageSpec is the exported name external callers (CLI wiring) construct
// Config.Shrinkage entries with.
type ShrinkageSpec = shrinkageSpec

type requiredVariables struct {
	Global   []checkpoint.Variable
	Chimeric []checkpoint.Variable
}

// RequiredVariables is the exported name external callers (CLI wiring)
// construct Config.Variables with.
type RequiredVariables = requiredVariables

// Driver holds one slot's in-memory state and drives its MH loop (spec
// §4.7 "State of a slot").
type Driver struct {
	cfg       Config
	store     *checkpoint.Store
	sim       simulator.Adapter
	stats     StatisticSource
	encoder   Encoder
	rng       *rand.Rand
	logger    zerolog.Logger

	global                *paramtable.Set
	globalLogLikelihood   float64
	chimeric              map[string]*paramtable.Set
	chimericLogLikelihood map[string]float64

	acceptCount int
	totalIters  int

	// lastAcceptedIter is current_index (spec §3): the iteration within the
	// block currently being run that holds the most recently globally
	// accepted parameters. Zero means no iteration in this block has been
	// globally accepted yet.
	lastAcceptedIter int
}

// NewDriver constructs a Driver seeded deterministically for its slot (spec
// §4.8 "per-worker random seeds deterministically from the run identifier
// and slot index").
func NewDriver(cfg Config, store *checkpoint.Store, sim simulator.Adapter, stats StatisticSource, encoder Encoder, seed int64, logger zerolog.Logger) *Driver {
	return &Driver{
		cfg:                   cfg,
		store:                 store,
		sim:                   sim,
		stats:                 stats,
		encoder:               encoder,
		rng:                   rand.New(rand.NewSource(seed)),
		logger:                logger,
		chimeric:              make(map[string]*paramtable.Set, len(cfg.Subpops)),
		chimericLogLikelihood: make(map[string]float64, len(cfg.Subpops)),
	}
}

// Initialize builds block 1's starting tables, persists them at (slot,0,0),
// runs the simulator once, and scores the initial likelihood (spec §4.7
// "Initialization (block 1, iteration 0)").
func (d *Driver) Initialize(ctx context.Context, initial *paramtable.Set) error {
	if err := d.sim.Initialize(ctx, d.cfg.SimConfig); err != nil {
		return fmt.Errorf("mcmcslot: initializing simulator adapter: %w", err)
	}

	d.global = initial.Clone()

	if err := d.persistSet(d.global, checkpoint.ScopeGlobal, 0, 0); err != nil {
		return err
	}
	if err := d.sim.OneSimulation(ctx, 0, 0, false); err != nil {
		d.logger.Warn().Err(err).Msg("initial simulation failed")
	}

	window := timeseries.Window{} // caller-configured window is embedded in StatisticSource
	perSubpop, err := d.evaluate(window, d.global)
	if err != nil {
		return err
	}
	var sum float64
	for _, ll := range perSubpop {
		sum += ll
	}
	d.globalLogLikelihood = sum

	if err := d.persistLlik(checkpoint.ScopeGlobal, 0, 0, LlikRecord{
		Scope: checkpoint.ScopeGlobal, PerSubpop: perSubpop, GlobalLogLik: sum, Accept: true, AcceptProb: 1, AcceptAvg: 1,
	}); err != nil {
		return err
	}

	for _, subpop := range d.cfg.Subpops {
		d.chimeric[subpop] = d.global.Clone()
		d.chimericLogLikelihood[subpop] = perSubpop[subpop]
	}
	d.acceptCount = 1
	d.totalIters = 1
	return nil
}

// RunBlock executes iterations 1..K of block, implementing the full
// propose/simulate/evaluate/accept-reject/persist loop (spec §4.7
// "Per-iteration loop").
func (d *Driver) RunBlock(ctx context.Context, block int, window timeseries.Window) error {
	required := append(append([]checkpoint.Variable{}, d.cfg.Variables.Global...), d.cfg.Variables.Chimeric...)
	if err := d.store.BeginBlock(d.cfg.Slot, block, checkpoint.ScopeGlobal, d.cfg.IterationsPerBlock, d.cfg.Ext, required); err != nil {
		return err
	}

	d.lastAcceptedIter = 0
	for i := 1; i <= d.cfg.IterationsPerBlock; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		firstEver := block == 1 && i == 1
		if err := d.runIteration(ctx, block, i, window, firstEver); err != nil {
			return err
		}
	}

	return d.closeBlock(block)
}

func (d *Driver) runIteration(ctx context.Context, block, iter int, window timeseries.Window, firstEver bool) error {
	// 1. Propose: perturb chimeric state per subpop (no perturbation on the
	// very first iteration, which is what makes initialization the first
	// accepted sample).
	proposed := make(map[string]*paramtable.Set, len(d.cfg.Subpops))
	merged := d.global.Clone()
	for _, subpop := range d.cfg.Subpops {
		var p *paramtable.Set
		if firstEver {
			p = d.chimeric[subpop].Clone()
		} else {
			p = d.chimeric[subpop].Perturb(d.cfg.PerturbConfig, d.rng)
		}
		proposed[subpop] = p
		merged.MergeSubpop(subpop, p)
	}

	if err := d.persistSet(merged, checkpoint.ScopeGlobal, block, iter); err != nil {
		return err
	}

	// 2. Simulate.
	simErr := d.sim.OneSimulation(ctx, iter, iter, true)
	if simErr != nil {
		d.logger.Warn().Err(simErr).Int("block", block).Int("iter", iter).Msg("simulator invocation failed, treating iteration as rejected")
	}

	// 3. Aggregate & evaluate.
	perSubpop, err := d.evaluate(window, merged)
	if err != nil {
		var nanErr *LikelihoodNaNError
		if errors.As(err, &nanErr) {
			nanErr.Block, nanErr.Iter = block, iter
		}
		return err
	}
	if simErr != nil {
		// A failed simulation cannot have produced valid outcomes; force a
		// rejection by scoring at -inf rather than trusting stale output.
		for subpop := range perSubpop {
			perSubpop[subpop] = math.Inf(-1)
		}
	}

	var proposedSum float64
	for _, ll := range perSubpop {
		proposedSum += ll
	}

	// 4. Global accept/reject.
	alphaGlobal := math.Min(1, math.Exp(proposedSum-d.globalLogLikelihood))
	accept := firstEver || d.rng.Float64() <= alphaGlobal

	d.totalIters++
	if accept {
		d.acceptCount++
		prevAccepted := d.lastAcceptedIter
		d.lastAcceptedIter = iter
		if prevAccepted > 0 {
			if err := d.store.GarbageCollectIteration(d.cfg.Variables.Global, d.cfg.Slot, block, prevAccepted, d.cfg.Ext); err != nil {
				d.logger.Warn().Err(err).Msg("garbage collection of prior global iteration failed")
			}
		}
		d.global = merged
		d.globalLogLikelihood = proposedSum
	} else {
		if err := d.store.GarbageCollectIteration(d.cfg.Variables.Global, d.cfg.Slot, block, iter, d.cfg.Ext); err != nil {
			d.logger.Warn().Err(err).Msg("garbage collection of rejected global iteration failed")
		}
	}

	acceptAvg := float64(d.acceptCount) / float64(d.totalIters)
	if err := d.persistLlik(checkpoint.ScopeGlobal, block, iter, LlikRecord{
		Scope: checkpoint.ScopeGlobal, PerSubpop: perSubpop, GlobalLogLik: proposedSum,
		Accept: accept, AcceptProb: alphaGlobal, AcceptAvg: acceptAvg,
	}); err != nil {
		return err
	}

	// 5. Chimeric accept/reject.
	if d.cfg.ResetChimericOnAccept && accept {
		for _, subpop := range d.cfg.Subpops {
			d.chimeric[subpop] = proposed[subpop]
			d.chimericLogLikelihood[subpop] = perSubpop[subpop]
		}
	} else if !d.cfg.ResetChimericOnAccept {
		for _, subpop := range d.cfg.Subpops {
			alphaS := math.Min(1, math.Exp(perSubpop[subpop]-d.chimericLogLikelihood[subpop]))
			if d.rng.Float64() <= alphaS {
				d.chimeric[subpop] = proposed[subpop]
				d.chimericLogLikelihood[subpop] = perSubpop[subpop]
			}
		}
	}

	// 6. Persist chimeric state.
	chimericMerged := d.global.Clone()
	for _, subpop := range d.cfg.Subpops {
		chimericMerged.MergeSubpop(subpop, d.chimeric[subpop])
	}
	if err := d.persistSet(chimericMerged, checkpoint.ScopeChimeric, block, iter); err != nil {
		return err
	}
	return d.persistLlik(checkpoint.ScopeChimeric, block, iter, LlikRecord{
		Scope: checkpoint.ScopeChimeric, PerSubpop: d.chimericLogLikelihood,
	})
}

func (d *Driver) evaluate(window timeseries.Window, set *paramtable.Set) (map[string]float64, error) {
	perSubpop := make(map[string]float64, len(d.cfg.Subpops))
	for _, subpop := range d.cfg.Subpops {
		seriesByStatistic := make(map[string]likelihood.Series, len(d.cfg.Statistics))
		for _, stat := range d.cfg.Statistics {
			series, err := d.stats.AlignedSeries(subpop, stat, window)
			if err != nil {
				return nil, fmt.Errorf("mcmcslot: aligning series for %s/%s: %w", subpop, stat.Name, err)
			}
			seriesByStatistic[stat.Name] = series
		}
		ll := likelihood.JointLogLikelihood(d.cfg.Statistics, seriesByStatistic)
		ll += d.shrinkageTerm(subpop, set)
		ll += d.priorTerm(subpop, set)

		if math.IsNaN(ll) {
			return nil, &LikelihoodNaNError{Subpop: subpop}
		}
		perSubpop[subpop] = ll
	}
	return perSubpop, nil
}

func (d *Driver) shrinkageTerm(subpop string, set *paramtable.Set) float64 {
	var total float64
	for _, spec := range d.cfg.Shrinkage {
		rows := make([]hierarchical.Row, 0, len(set.TransmissionModifiers))
		for _, r := range set.TransmissionModifiers {
			if r.ModifierName != spec.ModifierName {
				continue
			}
			rows = append(rows, hierarchical.Row{Subpop: r.Subpop, Group: spec.GroupOf(r.Subpop), Value: r.Value})
		}
		densities := spec.Adjuster.LogDensities(rows)
		for i, r := range rows {
			if r.Subpop == subpop {
				total += densities[i]
			}
		}
	}
	return total
}

func (d *Driver) priorTerm(subpop string, set *paramtable.Set) float64 {
	values := make(map[string]float64, len(set.TransmissionModifiers))
	for _, r := range set.TransmissionModifiers {
		if r.Subpop != subpop && r.Subpop != "all" {
			continue
		}
		values[r.ModifierName] = r.Value
	}
	return d.cfg.Priors.LogDensity(values)
}

func (d *Driver) persistSet(set *paramtable.Set, scope checkpoint.Scope, block, iter int) error {
	data, err := d.encoder.EncodeSet(set)
	if err != nil {
		return fmt.Errorf("mcmcslot: encoding parameter set: %w", err)
	}
	return d.store.Write(checkpoint.VariableSpar, scope, checkpoint.PhaseIntermediate, d.cfg.Slot, block, iter, d.cfg.Ext, data)
}

func (d *Driver) persistLlik(scope checkpoint.Scope, block, iter int, record LlikRecord) error {
	data, err := d.encoder.EncodeLlik(record)
	if err != nil {
		return fmt.Errorf("mcmcslot: encoding llik record: %w", err)
	}
	return d.store.Write(checkpoint.VariableLlik, scope, checkpoint.PhaseIntermediate, d.cfg.Slot, block, iter, d.cfg.Ext, data)
}

// closeBlock copies the block's final global/chimeric state to the
// phase=final names (spec §4.7 "Block boundary"); no separate block-stable
// copy is written (see Store.CommitIteration).
//
// The global commit uses current_index (d.lastAcceptedIter), the iteration
// that actually holds the most recently accepted global parameters, not the
// block's last iteration number: GarbageCollectIteration removes every
// global intermediate file except the one at current_index, so reading at
// IterationsPerBlock fails whenever the block's final iteration itself was
// rejected. If no iteration in the block was globally accepted at all, the
// global state did not change this block, so the previous block's final
// artifacts are carried forward unchanged via Store.Copy (spec §4.6 "copy
// (or move)").
func (d *Driver) closeBlock(block int) error {
	if d.lastAcceptedIter > 0 {
		if err := d.store.CommitIteration(checkpoint.VariableSpar, checkpoint.ScopeGlobal, d.cfg.Slot, block, d.lastAcceptedIter, d.cfg.Ext); err != nil {
			return err
		}
		if err := d.store.CommitIteration(checkpoint.VariableLlik, checkpoint.ScopeGlobal, d.cfg.Slot, block, d.lastAcceptedIter, d.cfg.Ext); err != nil {
			return err
		}
	} else if block > 1 {
		if err := d.carryForwardGlobalFinal(checkpoint.VariableSpar, block); err != nil {
			return err
		}
		if err := d.carryForwardGlobalFinal(checkpoint.VariableLlik, block); err != nil {
			return err
		}
	}

	lastIter := d.cfg.IterationsPerBlock
	if err := d.store.CommitIteration(checkpoint.VariableSpar, checkpoint.ScopeChimeric, d.cfg.Slot, block, lastIter, d.cfg.Ext); err != nil {
		return err
	}
	return d.store.CommitIteration(checkpoint.VariableLlik, checkpoint.ScopeChimeric, d.cfg.Slot, block, lastIter, d.cfg.Ext)
}

// carryForwardGlobalFinal copies the previous block's phase=final artifact
// forward unchanged when this block accepted nothing new.
func (d *Driver) carryForwardGlobalFinal(variable checkpoint.Variable, block int) error {
	return d.store.Copy(variable, checkpoint.ScopeGlobal, checkpoint.ScopeGlobal, checkpoint.PhaseFinal, checkpoint.PhaseFinal, d.cfg.Slot, block-1, 0, d.cfg.Slot, block, 0, d.cfg.Ext)
}

// GlobalLogLikelihood exposes the current accepted global log-likelihood,
// used by the testable-property check that it always equals the
// recomputation from persisted parameters (spec §8).
func (d *Driver) GlobalLogLikelihood() float64 {
	return d.globalLogLikelihood
}

// AcceptAvg returns the running mean of the global accept indicator since
// slot start (spec §8 "accept_avg[i] equals the empirical mean...").
func (d *Driver) AcceptAvg() float64 {
	if d.totalIters == 0 {
		return 0
	}
	return float64(d.acceptCount) / float64(d.totalIters)
}
