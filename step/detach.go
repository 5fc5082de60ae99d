package step

import (
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/tensor"
)

// DetachKind selects which SequencingModelFitter accumulator a
// DetachTransition reports into.
type DetachKind int

const (
	KindInitialDetach DetachKind = iota
	KindCyclicDetach
)

// DetachTransition moves probability, with rate PDetach, from an attached
// tensor state to the detached scalar. The detached state re-enters the
// tensor only at (numEdmans, 0, ..., 0), the all-dyes-lost cell at the
// current Edman count, since a detached molecule emits no further dye
// signal but remains countable.
type DetachTransition struct {
	PDetach float64
	Kind    DetachKind

	PrunedRange kdrange.KDRange
}

func NewDetachTransition(pDetach float64, kind DetachKind) *DetachTransition {
	return &DetachTransition{PDetach: pDetach, Kind: kind}
}

func (d *DetachTransition) PruneForward(r *kdrange.KDRange, allowDetached *bool) {
	d.PrunedRange = r.Clone()
}

func (d *DetachTransition) PruneBackward(r *kdrange.KDRange, allowDetached *bool) {
	d.PrunedRange = d.PrunedRange.Intersect(*r)
	*r = d.PrunedRange.Clone()
}

func (d *DetachTransition) Forward(numEdmans *int, psv *statevec.PeptideStateVector) {
	sum := psv.Main.Sum(d.PrunedRange)
	it := psv.Main.Iterator(d.PrunedRange)
	for !it.Done() {
		psv.Main.Values[it.Index()] *= 1 - d.PDetach
		it.Advance()
	}
	zeroLoc := make([]uint32, len(psv.Main.Shape))
	zeroLoc[0] = uint32(*numEdmans)
	if psv.AllowDetached {
		psv.PDetached += d.PDetach * sum
	} else {
		psv.Main.Values[psv.Main.Index(zeroLoc)] += d.PDetach * sum
	}
}

func (d *DetachTransition) Backward(input *statevec.PeptideStateVector, numEdmans *int, output *statevec.PeptideStateVector) {
	output.Main = tensor.NewShape(input.Main.Shape)
	output.BrokenN = input.BrokenN
	output.Range = d.PrunedRange.Clone()
	output.AllowDetached = input.AllowDetached

	zeroLoc := make([]uint32, len(input.Main.Shape))
	zeroLoc[0] = uint32(*numEdmans)
	var detachedValue float64
	if input.AllowDetached {
		detachedValue = input.PDetached
	} else {
		detachedValue = input.Main.Values[input.Main.Index(zeroLoc)]
	}

	it := input.Main.Iterator(d.PrunedRange)
	for !it.Done() {
		i := it.Index()
		output.Main.Values[i] = (1-d.PDetach)*input.Main.Values[i] + d.PDetach*detachedValue
		it.Advance()
	}
	output.PDetached = detachedValue
}

func (d *DetachTransition) ImproveFit(forwardPSV, backwardPSV, nextBackwardPSV *statevec.PeptideStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	target := &fitter.PInitialDetachFit
	if d.Kind == KindCyclicDetach {
		target = &fitter.PCyclicDetachFit
	}

	zeroLoc := make([]uint32, len(forwardPSV.Main.Shape))
	zeroLoc[0] = uint32(numEdmans)
	nb := nextBackwardPSV.Main.Values[nextBackwardPSV.Main.Index(zeroLoc)]

	it := forwardPSV.Main.Iterator(d.PrunedRange)
	for !it.Done() {
		isZero := true
		for c := 1; c < len(it.Loc); c++ {
			if it.Loc[c] != 0 {
				isZero = false
				break
			}
		}
		if !isZero {
			i := it.Index()
			fVal := forwardPSV.Main.Values[i]
			bVal := backwardPSV.Main.Values[i]
			target.Numerator += fVal * d.PDetach * nb / totalProb
			target.Denominator += fVal * bVal / totalProb
		}
		it.Advance()
	}

	if d.Kind == KindCyclicDetach && fitter.CyclicDetachDecayFit != nil {
		var num, den float64
		it = forwardPSV.Main.Iterator(d.PrunedRange)
		for !it.Done() {
			isZero := true
			for c := 1; c < len(it.Loc); c++ {
				if it.Loc[c] != 0 {
					isZero = false
					break
				}
			}
			if !isZero {
				i := it.Index()
				fVal := forwardPSV.Main.Values[i]
				bVal := backwardPSV.Main.Values[i]
				num += fVal * d.PDetach * nb / totalProb
				den += fVal * bVal / totalProb
			}
			it.Advance()
		}
		fitter.CyclicDetachDecayFit.AddTimestep(numEdmans, num, den)
	}
}
