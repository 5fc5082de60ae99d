/*
Package hmm assembles the Step/StuckDyeStep pipelines built in the step
package into the two concrete forward/backward engines the classifier
runs: PeptideHMM, over the main dye-loss tensor, and StuckDyeHMM, over the
scalar auxiliary chain that accounts for a dye stuck directly to the
surface. Both follow the same shape: build a step list once per
peptide/read pair, run a two-pass range-pruning sweep so only cells that
can carry nonzero mass are ever visited, then offer Probability (the
forward algorithm) and ImproveFit (the Baum-Welch forward/backward pass).
*/
package hmm

import (
	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/precompute"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/step"
)

// PeptideHMM computes the probability (and, via ImproveFit, the Baum-Welch
// evidence) that one candidate peptide's dye sequence produced one
// observed radiometry, under one sequencing model.
type PeptideHMM struct {
	NumTimesteps int
	NumChannels  int
	TensorShape  []uint32
	StartCounts  []uint32
	Steps        []step.Step

	ForwardRange  kdrange.KDRange
	BackwardRange kdrange.KDRange
	EmptyRange    bool
}

// NewPeptideHMM builds the step pipeline for one dye sequence/track pair
// against one read's precomputed emissions, reusing universal's shared
// rate tables, then prunes every step's live range.
//
// Step order: one-time broken-N and per-channel dud loss before any
// Edman cycle, then per cycle (in order) broken-N, detach, bleach per
// channel, the Edman transition itself, and that cycle's emission. The
// very first emission (t=0) runs before any cycle, since an Edman cycle
// always precedes the timestep it produces a reading for.
func NewPeptideHMM(numTimesteps, numChannels int, seq dyeseq.DyeSeq, track dyeseq.DyeTrack, model seqmodel.SequencingModel, universal *precompute.Universal, rad *precompute.Radiometry) *PeptideHMM {
	h := &PeptideHMM{NumTimesteps: numTimesteps, NumChannels: numChannels}

	h.TensorShape = make([]uint32, 1+numChannels)
	h.TensorShape[0] = uint32(numTimesteps)
	h.StartCounts = make([]uint32, numChannels)
	for c := 0; c < numChannels; c++ {
		h.TensorShape[1+c] = track.At(0, c) + 1
		h.StartCounts[c] = track.At(0, c)
	}

	h.Steps = append(h.Steps, universal.InitialBrokenNTransition())
	for c := 0; c < numChannels; c++ {
		h.Steps = append(h.Steps, universal.DudTransition(c))
	}
	h.Steps = append(h.Steps, rad.PeptideEmissions[0])

	if numTimesteps > 1 {
		h.Steps = append(h.Steps, universal.InitialDetachTransition())
		for c := 0; c < numChannels; c++ {
			h.Steps = append(h.Steps, universal.InitialBleachTransition(c))
		}
		for t := 1; t < numTimesteps; t++ {
			h.Steps = append(h.Steps, universal.CyclicBrokenNTransition(t))
			h.Steps = append(h.Steps, universal.CyclicDetachTransition(t))
			for c := 0; c < numChannels; c++ {
				h.Steps = append(h.Steps, universal.CyclicBleachTransition(c))
			}
			h.Steps = append(h.Steps, step.NewEdmanTransition(model.PEdmanFailure, seq, track))
			h.Steps = append(h.Steps, rad.PeptideEmissions[t])
		}
	}

	h.pruneRanges()
	return h
}

// pruneRanges threads one KDRange through every step's PruneForward in
// step order, then the resulting range back through every step's
// PruneBackward in reverse order. Each step records its own narrowed
// ForwardRange/BackwardRange as a side effect; this just drives the
// sweep and catches the case where the live region collapses entirely.
func (h *PeptideHMM) pruneRanges() {
	r := kdrange.New(h.TensorShape)
	allowDetached := true
	for _, s := range h.Steps {
		s.PruneForward(&r, &allowDetached)
		if r.IsEmpty() {
			h.EmptyRange = true
			return
		}
	}
	h.BackwardRange = r.Clone()
	for i := len(h.Steps) - 1; i >= 0; i-- {
		h.Steps[i].PruneBackward(&r, &allowDetached)
		if r.IsEmpty() {
			h.EmptyRange = true
			return
		}
	}
	h.ForwardRange = r.Clone()
}

func (h *PeptideHMM) newState() *statevec.PeptideStateVector {
	return statevec.NewFromShape(h.TensorShape)
}

// Probability runs the forward algorithm: seed unit mass at the starting
// coordinate, advance it through every step, and sum what remains live.
func (h *PeptideHMM) Probability() float64 {
	if h.EmptyRange {
		return 0
	}
	numEdmans := 0
	state := h.newState()
	state.InitializeFromStart(h.StartCounts)
	for _, s := range h.Steps {
		s.Forward(&numEdmans, state)
	}
	return state.Sum()
}

// ImproveFit runs the Baum-Welch forward/backward sweep: first a backward
// pass from the vacuous finish boundary back to the start, recording
// every intermediate state, then a forward pass from the start in which
// each step folds its posterior evidence into fitter before advancing.
// Returns the total probability, computed as a side effect of the
// backward pass.
func (h *PeptideHMM) ImproveFit(fitter *fit.SequencingModelFitter) float64 {
	if h.EmptyRange {
		return 0
	}
	n := len(h.Steps)
	numEdmans := h.NumTimesteps - 1

	backward := make([]*statevec.PeptideStateVector, n+1)
	backward[0] = h.newState()
	backward[0].InitializeFromFinish()
	for i := n - 1; i >= 0; i-- {
		backward[n-i] = h.newState()
		h.Steps[i].Backward(backward[n-i-1], &numEdmans, backward[n-i])
	}
	probability := backward[n].Source()
	// Parameter numerators and denominators are both upper-bounded by the
	// total probability, so a zero probability would otherwise add 0/0 to
	// every fitter.
	if probability == 0 {
		return probability
	}

	numEdmans = 0
	forward := h.newState()
	forward.InitializeFromStart(h.StartCounts)
	for i := 0; i < n; i++ {
		h.Steps[i].ImproveFit(forward, backward[n-i], backward[n-i-1], numEdmans, probability, fitter)
		h.Steps[i].Forward(&numEdmans, forward)
	}
	return probability
}
