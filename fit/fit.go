/*
Package fit holds the Baum-Welch parameter accumulators: RatioFitter for
simple rate parameters, DecayingFitter for the nonlinear offset-exponential
detach/break-N rate, DistributionFitter for per-channel emission statistics,
and SequencingModelFitter, which bundles one of each into the full model.
*/
package fit

import (
	"math"

	"github.com/onephoton/fluoroseq/seqmodel"
	"gonum.org/v1/gonum/optimize"
)

// RatioFitter accumulates a numerator/denominator pair for one scalar rate
// parameter, the Baum-Welch MLE of a simple Bernoulli-style event rate.
type RatioFitter struct {
	Numerator   float64
	Denominator float64
}

// Get returns the fitted rate. Returns NaN if nothing was accumulated.
func (f RatioFitter) Get() float64 { return f.Numerator / f.Denominator }

// Add folds other into f, associatively.
func (f *RatioFitter) Add(other RatioFitter) {
	f.Numerator += other.Numerator
	f.Denominator += other.Denominator
}

// Scale multiplies both accumulators by weight, used when reweighting a
// partial dataset's contribution before merging fitters.
func (f *RatioFitter) Scale(weight float64) {
	f.Numerator *= weight
	f.Denominator *= weight
}

// DecayingFitter accumulates per-timestep (x, n) pairs and fits
// rate(t) = base + initial*exp(-initial_decay*t) by weighted nonlinear
// least squares, holding any subset of the three parameters fixed.
type DecayingFitter struct {
	X, N         []float64
	Prev         seqmodel.DecayingRateModel
	HoldBase     bool
	HoldInitial  bool
	HoldDecay    bool
}

// NewDecayingFitter allocates per-timestep accumulators for a chain of
// numTimesteps-1 transitions, seeded from the previous iteration's model
// (used as the optimizer's starting point).
func NewDecayingFitter(numTimesteps int, prev seqmodel.DecayingRateModel) *DecayingFitter {
	n := numTimesteps - 1
	if n < 0 {
		n = 0
	}
	return &DecayingFitter{X: make([]float64, n), N: make([]float64, n), Prev: prev}
}

// AddTimestep folds in one cycle's worth of numerator/denominator evidence.
func (f *DecayingFitter) AddTimestep(t int, x, n float64) {
	f.X[t] += x
	f.N[t] += n
}

// Add folds other into f, associatively.
func (f *DecayingFitter) Add(other *DecayingFitter) {
	for i := range f.X {
		f.X[i] += other.X[i]
		f.N[i] += other.N[i]
	}
}

// Scale multiplies every accumulator by weight.
func (f *DecayingFitter) Scale(weight float64) {
	for i := range f.X {
		f.X[i] *= weight
		f.N[i] *= weight
	}
}

// Get solves the weighted nonlinear least-squares fit of
// y[t] = base + initial*exp(-initial_decay*t) to y[t] = x[t]/n[t], weighted
// by n[t], using Nelder-Mead over whichever of the three parameters are not
// held fixed.
func (f *DecayingFitter) Get() seqmodel.DecayingRateModel {
	y := make([]float64, len(f.X))
	for t := range f.X {
		if f.N[t] != 0 {
			y[t] = f.X[t] / f.N[t]
		}
	}

	free := []int{}
	if !f.HoldBase {
		free = append(free, 0)
	}
	if !f.HoldInitial {
		free = append(free, 1)
	}
	if !f.HoldDecay {
		free = append(free, 2)
	}
	if len(free) == 0 {
		return f.Prev
	}

	full := [3]float64{f.Prev.Base, f.Prev.Initial, f.Prev.InitialDecay}
	objective := func(x []float64) float64 {
		params := full
		for i, idx := range free {
			params[idx] = x[i]
		}
		var loss float64
		for t := range y {
			pred := params[0] + params[1]*math.Exp(-float64(t)*params[2])
			diff := pred - y[t]
			loss += f.N[t] * diff * diff
		}
		return loss
	}

	init := make([]float64, len(free))
	for i, idx := range free {
		init[i] = full[idx]
	}
	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return f.Prev
	}
	params := full
	for i, idx := range free {
		params[idx] = result.X[i]
	}
	return seqmodel.DecayingRateModel{Base: params[0], Initial: params[1], InitialDecay: params[2]}
}

// DistributionFitter accumulates weighted (intensity, dyeCount, weight)
// samples for one channel and produces a ChannelModel's mu/sigma/bg_sigma
// estimate by closed-form weighted least squares.
type DistributionFitter struct {
	// Non-background samples: weighted sums used to fit intensity = d*mu.
	SumWD  float64 // sum(weight * dyeCount * intensity)
	SumWDD float64 // sum(weight * dyeCount^2)
	SumWResidSq float64 // sum(weight * (intensity - d*mu_prev)^2), for sigma
	SumWNonBg   float64 // sum(weight) over d>0 samples

	// Background (d == 0) samples.
	SumWBgSq float64 // sum(weight * intensity^2)
	SumWBg   float64 // sum(weight) over d==0 samples

	PrevMu float64
}

// AddSample folds in one posterior-weighted observation.
func (f *DistributionFitter) AddSample(intensity float64, dyeCount int, weight float64) {
	if dyeCount == 0 {
		f.SumWBgSq += weight * intensity * intensity
		f.SumWBg += weight
		return
	}
	d := float64(dyeCount)
	f.SumWD += weight * d * intensity
	f.SumWDD += weight * d * d
	resid := intensity - d*f.PrevMu
	f.SumWResidSq += weight * resid * resid
	f.SumWNonBg += weight
}

// Add folds other into f, associatively.
func (f *DistributionFitter) Add(other *DistributionFitter) {
	f.SumWD += other.SumWD
	f.SumWDD += other.SumWDD
	f.SumWResidSq += other.SumWResidSq
	f.SumWNonBg += other.SumWNonBg
	f.SumWBgSq += other.SumWBgSq
	f.SumWBg += other.SumWBg
}

// Scale multiplies every accumulator by weight.
func (f *DistributionFitter) Scale(weight float64) {
	f.SumWD *= weight
	f.SumWDD *= weight
	f.SumWResidSq *= weight
	f.SumWNonBg *= weight
	f.SumWBgSq *= weight
	f.SumWBg *= weight
}

// Mu returns the weighted least-squares slope fitting intensity to d*mu.
func (f *DistributionFitter) Mu() float64 {
	if f.SumWDD == 0 {
		return f.PrevMu
	}
	return f.SumWD / f.SumWDD
}

// Sigma returns the weighted RMS residual of non-background samples around
// d*PrevMu.
func (f *DistributionFitter) Sigma() float64 {
	if f.SumWNonBg == 0 {
		return 0
	}
	return math.Sqrt(f.SumWResidSq / f.SumWNonBg)
}

// BgSigma returns the weighted RMS intensity of background (d=0) samples.
func (f *DistributionFitter) BgSigma() float64 {
	if f.SumWBg == 0 {
		return 0
	}
	return math.Sqrt(f.SumWBgSq / f.SumWBg)
}

// ChannelModelFitter bundles the accumulators for one channel's
// ChannelModel: dud/bleach rates plus the emission distribution.
type ChannelModelFitter struct {
	PDudFit           RatioFitter
	PInitialBleachFit RatioFitter
	PCyclicBleachFit  RatioFitter
	PStuckDyeLossFit  RatioFitter
	DistFit           DistributionFitter
	Prev              seqmodel.ChannelModel
}

// Add folds other into f, associatively.
func (f *ChannelModelFitter) Add(other *ChannelModelFitter) {
	f.PDudFit.Add(other.PDudFit)
	f.PInitialBleachFit.Add(other.PInitialBleachFit)
	f.PCyclicBleachFit.Add(other.PCyclicBleachFit)
	f.PStuckDyeLossFit.Add(other.PStuckDyeLossFit)
	f.DistFit.Add(&other.DistFit)
}

// Scale multiplies every accumulator by weight.
func (f *ChannelModelFitter) Scale(weight float64) {
	f.PDudFit.Scale(weight)
	f.PInitialBleachFit.Scale(weight)
	f.PCyclicBleachFit.Scale(weight)
	f.PStuckDyeLossFit.Scale(weight)
	f.DistFit.Scale(weight)
}

// Get returns the updated ChannelModel.
func (f *ChannelModelFitter) Get() seqmodel.ChannelModel {
	ch := f.Prev
	if f.PDudFit.Denominator != 0 {
		ch.PDud = f.PDudFit.Get()
	}
	if f.PInitialBleachFit.Denominator != 0 {
		ch.PInitialBleach = f.PInitialBleachFit.Get()
	}
	if f.PCyclicBleachFit.Denominator != 0 {
		ch.PCyclicBleach = f.PCyclicBleachFit.Get()
	}
	if f.PStuckDyeLossFit.Denominator != 0 {
		ch.PStuckDyeLoss = f.PStuckDyeLossFit.Get()
	}
	ch.Mu = f.DistFit.Mu()
	if sigma := f.DistFit.Sigma(); sigma != 0 {
		ch.Sigma = sigma
	}
	if bg := f.DistFit.BgSigma(); bg != 0 {
		ch.BgSigma = bg
	}
	return ch
}

// Settings carries the fit-settings JSON document's hold flags (spec.md §6).
type Settings struct {
	HoldPEdmanFailure        bool
	HoldPDetach              bool
	HoldPInitialDetach       bool
	HoldPInitialDetachDecay  bool
	HoldPInitialBlock        bool
	HoldPCyclicBlock         bool
	HoldPBleach              []bool
	HoldPDud                 []bool
}

// SequencingModelFitter bundles one accumulator for every SequencingModel
// parameter. `+=` (Add) is elementwise; `*=` (Scale) is elementwise; Get
// returns a new SequencingModel.
type SequencingModelFitter struct {
	PEdmanFailureFit  RatioFitter
	PInitialDetachFit RatioFitter
	PCyclicDetachFit  RatioFitter
	CyclicDetachDecayFit *DecayingFitter
	PInitialBreakNFit RatioFitter
	PCyclicBreakNFit  RatioFitter
	ChannelFits       []*ChannelModelFitter
	Prev              seqmodel.SequencingModel
	Settings          Settings
}

// NewSequencingModelFitter allocates per-channel accumulators sized to
// prev's channel count, seeded from prev for fitters (like the decaying
// detach rate) that need a starting point.
func NewSequencingModelFitter(numTimesteps int, prev seqmodel.SequencingModel, settings Settings) *SequencingModelFitter {
	f := &SequencingModelFitter{
		Prev:     prev,
		Settings: settings,
	}
	if prev.CyclicDetachDecays {
		df := NewDecayingFitter(numTimesteps, prev.CyclicDetachDecay)
		df.HoldBase = settings.HoldPDetach
		df.HoldInitial = settings.HoldPInitialDetach
		df.HoldDecay = settings.HoldPInitialDetachDecay
		f.CyclicDetachDecayFit = df
	}
	f.ChannelFits = make([]*ChannelModelFitter, len(prev.Channels))
	for c := range prev.Channels {
		f.ChannelFits[c] = &ChannelModelFitter{
			Prev:    prev.Channels[c],
			DistFit: DistributionFitter{PrevMu: prev.Channels[c].Mu},
		}
	}
	return f
}

// Add folds other into f, associatively.
func (f *SequencingModelFitter) Add(other *SequencingModelFitter) {
	f.PEdmanFailureFit.Add(other.PEdmanFailureFit)
	f.PInitialDetachFit.Add(other.PInitialDetachFit)
	f.PCyclicDetachFit.Add(other.PCyclicDetachFit)
	if f.CyclicDetachDecayFit != nil && other.CyclicDetachDecayFit != nil {
		f.CyclicDetachDecayFit.Add(other.CyclicDetachDecayFit)
	}
	f.PInitialBreakNFit.Add(other.PInitialBreakNFit)
	f.PCyclicBreakNFit.Add(other.PCyclicBreakNFit)
	for c := range f.ChannelFits {
		f.ChannelFits[c].Add(other.ChannelFits[c])
	}
}

// Scale multiplies every accumulator by weight.
func (f *SequencingModelFitter) Scale(weight float64) {
	f.PEdmanFailureFit.Scale(weight)
	f.PInitialDetachFit.Scale(weight)
	f.PCyclicDetachFit.Scale(weight)
	if f.CyclicDetachDecayFit != nil {
		f.CyclicDetachDecayFit.Scale(weight)
	}
	f.PInitialBreakNFit.Scale(weight)
	f.PCyclicBreakNFit.Scale(weight)
	for _, cf := range f.ChannelFits {
		cf.Scale(weight)
	}
}

// Get returns the updated SequencingModel, honoring hold flags.
func (f *SequencingModelFitter) Get() seqmodel.SequencingModel {
	m := f.Prev
	if !f.Settings.HoldPEdmanFailure && f.PEdmanFailureFit.Denominator != 0 {
		m.PEdmanFailure = f.PEdmanFailureFit.Get()
	}
	if !f.Settings.HoldPInitialDetach && f.PInitialDetachFit.Denominator != 0 {
		m.PInitialDetach = f.PInitialDetachFit.Get()
	}
	if m.CyclicDetachDecays && f.CyclicDetachDecayFit != nil {
		m.CyclicDetachDecay = f.CyclicDetachDecayFit.Get()
	} else if !f.Settings.HoldPDetach && f.PCyclicDetachFit.Denominator != 0 {
		m.PCyclicDetach = f.PCyclicDetachFit.Get()
	}
	if !f.Settings.HoldPInitialBlock && f.PInitialBreakNFit.Denominator != 0 {
		m.PInitialBreakN = f.PInitialBreakNFit.Get()
	}
	if !f.Settings.HoldPCyclicBlock && f.PCyclicBreakNFit.Denominator != 0 {
		m.PCyclicBreakN = f.PCyclicBreakNFit.Get()
	}
	m.Channels = make([]seqmodel.ChannelModel, len(f.ChannelFits))
	for c, cf := range f.ChannelFits {
		ch := cf.Get()
		if len(f.Settings.HoldPDud) > c && f.Settings.HoldPDud[c] {
			ch.PDud = f.Prev.Channels[c].PDud
		}
		if len(f.Settings.HoldPBleach) > c && f.Settings.HoldPBleach[c] {
			ch.PInitialBleach = f.Prev.Channels[c].PInitialBleach
			ch.PCyclicBleach = f.Prev.Channels[c].PCyclicBleach
		}
		m.Channels[c] = ch
	}
	return m
}
