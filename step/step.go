/*
Package step holds the concrete transition and emission steps that make up
an HMM's pipeline: BinomialTransition (Dud/Bleach), EdmanTransition,
DetachTransition, BrokenNTransition, PeptideEmission, and the scalar
StuckDyeTransition/StuckDyeEmission pair.
*/
package step

import (
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/statevec"
)

// Step is one stage of the HMM pipeline. All rates and channel assignments
// are fixed at construction time from the surrounding SequencingModel.
type Step interface {
	// PruneForward narrows range/allowDetached to what this step can
	// promise going forward, given what the preceding step promised.
	PruneForward(r *kdrange.KDRange, allowDetached *bool)
	// PruneBackward narrows range/allowDetached to what this step requires
	// of its predecessor, given what the next step requires.
	PruneBackward(r *kdrange.KDRange, allowDetached *bool)
	// Forward advances the forward probability in place.
	Forward(numEdmans *int, psv *statevec.PeptideStateVector)
	// Backward fills output from input for the reverse pass.
	Backward(input *statevec.PeptideStateVector, numEdmans *int, output *statevec.PeptideStateVector)
	// ImproveFit accumulates Baum-Welch statistics into fitter.
	ImproveFit(forwardPSV, backwardPSV, nextBackwardPSV *statevec.PeptideStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter)
}
