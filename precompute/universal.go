/*
Package precompute builds the Step instances an HMM run over one peptide
needs, splitting them by what they can be shared across: Universal holds the
rate-only transitions that never depend on a timestep's radiometry, while
Radiometry holds the per-timestep emissions that depend on one read. Every
method here returns a fresh Step instance, since each occurrence of a step
in an HMM's list carries its own mutable pruning range; what Universal
actually amortizes across peptides and cycles is the expensive part, the
lazily-built BinomialTable each per-channel loss rate shares.
*/
package precompute

import (
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/onephoton/fluoroseq/step"
)

// Universal bundles every rate-only building block that depends on the
// sequencing model alone, not on a particular peptide's dye sequence or a
// particular read's radiometry. Built once per model and reused across
// every classification or fit pass against that model.
type Universal struct {
	Model seqmodel.SequencingModel

	dudTables           []*step.BinomialTable
	initialBleachTables []*step.BinomialTable
	cyclicBleachTables  []*step.BinomialTable
}

// NewUniversal builds the shared per-channel loss tables for one
// sequencing model.
func NewUniversal(model seqmodel.SequencingModel) *Universal {
	u := &Universal{Model: model}
	n := model.NumChannels()
	u.dudTables = make([]*step.BinomialTable, n)
	u.initialBleachTables = make([]*step.BinomialTable, n)
	u.cyclicBleachTables = make([]*step.BinomialTable, n)
	for c, ch := range model.Channels {
		u.dudTables[c] = step.NewBinomialTable(ch.PDud)
		u.initialBleachTables[c] = step.NewBinomialTable(ch.PInitialBleach)
		u.cyclicBleachTables[c] = step.NewBinomialTable(ch.PCyclicBleach)
	}
	return u
}

// InitialDetachTransition builds the one-time pre-Edman detach step.
func (u *Universal) InitialDetachTransition() *step.DetachTransition {
	return step.NewDetachTransition(u.Model.PInitialDetach, step.KindInitialDetach)
}

// InitialBrokenNTransition builds the one-time pre-Edman broken-N step.
func (u *Universal) InitialBrokenNTransition() *step.BrokenNTransition {
	return step.NewBrokenNTransition(u.Model.PInitialBreakN, step.KindInitialBreakN)
}

// DudTransition builds the dud-labeling step for channel c, sharing that
// channel's table across every peptide and position that uses it.
func (u *Universal) DudTransition(c int) *step.BinomialTransition {
	return step.NewBinomialTransitionFromTable(u.dudTables[c], c, step.KindDud)
}

// InitialBleachTransition builds the pre-Edman bleach step for channel c.
func (u *Universal) InitialBleachTransition(c int) *step.BinomialTransition {
	return step.NewBinomialTransitionFromTable(u.initialBleachTables[c], c, step.KindInitialBleach)
}

// CyclicBleachTransition builds the per-cycle bleach step for channel c.
func (u *Universal) CyclicBleachTransition(c int) *step.BinomialTransition {
	return step.NewBinomialTransitionFromTable(u.cyclicBleachTables[c], c, step.KindCyclicBleach)
}

// CyclicDetachTransition builds the detach transition for Edman cycle i,
// honoring the decaying-rate model when the sequencing model uses one: the
// rate is cycle-dependent, so unlike the bleach/dud transitions this cannot
// share a single rate across cycles.
func (u *Universal) CyclicDetachTransition(cycle int) *step.DetachTransition {
	return step.NewDetachTransition(u.Model.CyclicDetachAt(cycle), step.KindCyclicDetach)
}

// CyclicBrokenNTransition builds the broken-N transition for Edman cycle i.
func (u *Universal) CyclicBrokenNTransition(cycle int) *step.BrokenNTransition {
	return step.NewBrokenNTransition(u.Model.CyclicBreakNAt(cycle), step.KindCyclicBreakN)
}

// StuckDyeTransition builds the stuck-dye loss step for channel c.
func (u *Universal) StuckDyeTransition(c int) *step.StuckDyeTransition {
	return step.NewStuckDyeTransition(c, u.Model.Channels[c].PStuckDyeLoss)
}

// Radiometry bundles the per-timestep emission steps for one read: a
// PeptideEmission per timestep and a StuckDyeEmission per channel, matching
// the structure of the auxiliary two-state HMM.
type Radiometry struct {
	PeptideEmissions  []*step.PeptideEmission
	StuckDyeEmissions []*step.StuckDyeEmission
}

// NewRadiometry precomputes every emission table for one read against one
// sequencing model.
func NewRadiometry(rad radiometry.Radiometry, model seqmodel.SequencingModel, distCutoff float64, maxNumDyes int) *Radiometry {
	r := &Radiometry{}
	for t := 0; t < rad.NumTimestep; t++ {
		r.PeptideEmissions = append(r.PeptideEmissions, step.NewPeptideEmission(t, rad, model.Channels, distCutoff, maxNumDyes))
	}
	for c := 0; c < rad.NumChannels; c++ {
		r.StuckDyeEmissions = append(r.StuckDyeEmissions, step.NewStuckDyeEmission(c, rad, model.Channels))
	}
	return r
}
