package hmm

import (
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/precompute"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/step"
)

// StuckDyeHMM computes the probability that the dye observed on one
// channel is stuck to the surface rather than attached to the peptide
// being sequenced: a two-state (dye, no_dye) chain with no spatial
// structure to prune, since the state space never grows or shrinks.
type StuckDyeHMM struct {
	NumTimesteps int
	Channel      int
	Steps        []step.StuckDyeStep
}

// NewStuckDyeHMM builds the auxiliary chain for one channel: an emission
// at t=0, then one (transition, emission) pair per remaining timestep.
func NewStuckDyeHMM(numTimesteps, channel int, universal *precompute.Universal, rad *precompute.Radiometry) *StuckDyeHMM {
	h := &StuckDyeHMM{NumTimesteps: numTimesteps, Channel: channel}
	h.Steps = append(h.Steps, rad.StuckDyeEmissions[channel])
	for i := 1; i < numTimesteps; i++ {
		h.Steps = append(h.Steps, universal.StuckDyeTransition(channel))
		h.Steps = append(h.Steps, rad.StuckDyeEmissions[channel])
	}
	return h
}

// Probability runs the forward algorithm over the two-state chain.
func (h *StuckDyeHMM) Probability() float64 {
	numEdmans := 0
	state := &statevec.StuckDyeStateVector{}
	state.InitializeFromStart()
	for _, s := range h.Steps {
		s.Forward(&numEdmans, state)
	}
	return state.Sum()
}

// ImproveFit mirrors PeptideHMM.ImproveFit over the scalar chain.
func (h *StuckDyeHMM) ImproveFit(fitter *fit.SequencingModelFitter) float64 {
	n := len(h.Steps)
	numEdmans := h.NumTimesteps - 1

	backward := make([]*statevec.StuckDyeStateVector, n+1)
	backward[0] = &statevec.StuckDyeStateVector{}
	backward[0].InitializeFromFinish()
	for i := n - 1; i >= 0; i-- {
		backward[n-i] = &statevec.StuckDyeStateVector{}
		h.Steps[i].Backward(backward[n-i-1], &numEdmans, backward[n-i])
	}
	probability := backward[n].Source()
	if probability == 0 {
		return probability
	}

	numEdmans = 0
	forward := &statevec.StuckDyeStateVector{}
	forward.InitializeFromStart()
	for i := 0; i < n; i++ {
		h.Steps[i].ImproveFit(forward, backward[n-i], backward[n-i-1], numEdmans, probability, fitter)
		h.Steps[i].Forward(&numEdmans, forward)
	}
	return probability
}
