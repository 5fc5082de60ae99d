package step

import (
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/tensor"
)

// BrokenNKind selects which SequencingModelFitter accumulator a
// BrokenNTransition reports into.
type BrokenNKind int

const (
	KindInitialBreakN BrokenNKind = iota
	KindCyclicBreakN
)

// BrokenNTransition moves probability, with rate PBreakN, from the main
// tensor to the broken-N tensor at the same coordinate. Broken-N states
// can never return to the main tensor, and suppress future Edman
// progression only; other per-channel transitions still apply to them.
type BrokenNTransition struct {
	PBreakN float64
	Kind    BrokenNKind

	PrunedRange kdrange.KDRange
}

func NewBrokenNTransition(pBreakN float64, kind BrokenNKind) *BrokenNTransition {
	return &BrokenNTransition{PBreakN: pBreakN, Kind: kind}
}

func (b *BrokenNTransition) PruneForward(r *kdrange.KDRange, allowDetached *bool) {
	b.PrunedRange = r.Clone()
}

func (b *BrokenNTransition) PruneBackward(r *kdrange.KDRange, allowDetached *bool) {
	b.PrunedRange = b.PrunedRange.Intersect(*r)
	*r = b.PrunedRange.Clone()
}

func (b *BrokenNTransition) Forward(numEdmans *int, psv *statevec.PeptideStateVector) {
	it := psv.Main.Iterator(b.PrunedRange)
	for !it.Done() {
		i := it.Index()
		mainVal := psv.Main.Values[i]
		psv.BrokenN.Values[i] += b.PBreakN * mainVal
		psv.Main.Values[i] = (1 - b.PBreakN) * mainVal
		it.Advance()
	}
}

func (b *BrokenNTransition) Backward(input *statevec.PeptideStateVector, numEdmans *int, output *statevec.PeptideStateVector) {
	output.Main = tensor.NewShape(input.Main.Shape)
	output.BrokenN = input.BrokenN
	output.Range = b.PrunedRange.Clone()
	output.AllowDetached = input.AllowDetached
	output.PDetached = input.PDetached

	it := input.Main.Iterator(b.PrunedRange)
	for !it.Done() {
		i := it.Index()
		output.Main.Values[i] = b.PBreakN*input.BrokenN.Values[i] + (1-b.PBreakN)*input.Main.Values[i]
		it.Advance()
	}
}

func (b *BrokenNTransition) ImproveFit(forwardPSV, backwardPSV, nextBackwardPSV *statevec.PeptideStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	target := &fitter.PInitialBreakNFit
	if b.Kind == KindCyclicBreakN {
		target = &fitter.PCyclicBreakNFit
	}
	it := forwardPSV.Main.Iterator(b.PrunedRange)
	for !it.Done() {
		i := it.Index()
		fVal := forwardPSV.Main.Values[i]
		bVal := backwardPSV.Main.Values[i]
		nbVal := nextBackwardPSV.BrokenN.Values[i]
		target.Numerator += fVal * b.PBreakN * nbVal / totalProb
		target.Denominator += fVal * bVal / totalProb
		it.Advance()
	}
}
