package step

import (
	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/tensor"
)

// EdmanTransition is the only step that shifts mass along axis 0
// (successful-Edman-count). It removes one residue from the N-terminus
// with success probability 1-PEdmanFailure, on success possibly moving one
// dye out of the channel named by the dye sequence at the current position.
type EdmanTransition struct {
	PEdmanFailure float64
	DyeSeq        dyeseq.DyeSeq
	DyeTrack      dyeseq.DyeTrack

	TrueForwardRange  kdrange.KDRange
	SafeForwardRange  kdrange.KDRange
	TrueBackwardRange kdrange.KDRange
	SafeBackwardRange kdrange.KDRange
}

// NewEdmanTransition builds the step for one dye sequence/track pair.
func NewEdmanTransition(pEdmanFailure float64, seq dyeseq.DyeSeq, track dyeseq.DyeTrack) *EdmanTransition {
	return &EdmanTransition{PEdmanFailure: pEdmanFailure, DyeSeq: seq, DyeTrack: track}
}

func (e *EdmanTransition) setTrueForwardRange(r kdrange.KDRange) {
	e.TrueForwardRange = r
	safe := r.Clone()
	safe.Max[0]++
	for c := 0; c < len(safe.Min)-1; c++ {
		if safe.Min[1+c] != 0 {
			safe.Min[1+c]--
		}
	}
	e.SafeBackwardRange = safe
}

func (e *EdmanTransition) setTrueBackwardRange(r kdrange.KDRange) {
	e.TrueBackwardRange = r
	safe := r.Clone()
	if safe.Min[0] != 0 {
		safe.Min[0]--
	}
	for c := 0; c < len(safe.Min)-1; c++ {
		safe.Max[1+c]++
	}
	e.SafeForwardRange = safe
}

func (e *EdmanTransition) PruneForward(r *kdrange.KDRange, allowDetached *bool) {
	e.setTrueForwardRange(r.Clone())
	*r = e.SafeBackwardRange.Clone()
}

func (e *EdmanTransition) PruneBackward(r *kdrange.KDRange, allowDetached *bool) {
	safe := e.SafeBackwardRange.Intersect(*r)
	e.setTrueBackwardRange(safe)
	intersected := e.SafeForwardRange.Intersect(e.TrueForwardRange)
	e.setTrueForwardRange(intersected)
	*r = e.TrueForwardRange.Clone()
}

// Forward allocates its output sized to SafeBackwardRange rather than
// reusing psv's own shape: the success-with-dye-transfer branch below can
// write one cell past TrueForwardRange on axis 0, and SafeBackwardRange is
// exactly TrueForwardRange widened by the margin that branch needs.
func (e *EdmanTransition) Forward(numEdmans *int, psv *statevec.PeptideStateVector) {
	*numEdmans++
	out := tensor.NewShape(e.SafeBackwardRange.Max)
	outBroken := tensor.NewShape(e.SafeBackwardRange.Max)
	out.Zero(e.SafeBackwardRange)
	outBroken.Zero(e.SafeBackwardRange)

	tStride := out.Strides[0]
	in := psv.Main.Iterator(e.TrueForwardRange)
	// true_forward_range is a strict subset of safe_backward_range, so this
	// iterator's indices can be used to write into out.
	ot := out.Iterator(e.TrueForwardRange)
	for !in.Done() {
		fVal := psv.Main.Values[in.Index()]
		i := ot.Index()
		t := int(ot.Loc[0])
		c := e.DyeSeq.At(t)

		out.Values[i] += e.PEdmanFailure * fVal
		if c == dyeseq.Gap {
			out.Values[i+tStride] += (1 - e.PEdmanFailure) * fVal
		} else {
			cIdx := int(ot.Loc[1+c])
			cTotal := int(e.DyeTrack.At(t, c))
			cStride := out.Strides[1+c]
			if cIdx < cTotal {
				ratio := float64(cIdx) / float64(cTotal)
				out.Values[i+tStride] += (1 - e.PEdmanFailure) * (1 - ratio) * fVal
			}
			if cIdx > 0 {
				ratio := float64(cIdx) / float64(cTotal)
				out.Values[i+tStride-cStride] += (1 - e.PEdmanFailure) * ratio * fVal
			}
		}
		in.Advance()
		ot.Advance()
	}
	outBroken.CopyFrom(psv.BrokenN, e.TrueForwardRange)

	psv.Main = out
	psv.BrokenN = outBroken
	psv.Range = e.TrueBackwardRange.Clone()
}

// Backward allocates its output sized to SafeForwardRange: the
// fluorophore-removed branch below writes to one channel-axis cell past
// TrueBackwardRange's bound, with no upper-bound guard on cIdx2, and
// relies on the output tensor actually having that cell.
func (e *EdmanTransition) Backward(input *statevec.PeptideStateVector, numEdmans *int, output *statevec.PeptideStateVector) {
	out := tensor.NewShape(e.SafeForwardRange.Max)
	outBroken := tensor.NewShape(e.SafeForwardRange.Max)
	out.Zero(e.SafeForwardRange)
	outBroken.Zero(e.SafeForwardRange)

	tStride := out.Strides[0]
	in := input.Main.Iterator(e.TrueBackwardRange)
	// true_backward_range is a strict subset of safe_forward_range, so this
	// iterator's indices can be used to write into out.
	ot := out.Iterator(e.TrueBackwardRange)
	for !in.Done() {
		fVal := input.Main.Values[in.Index()]
		i := ot.Index()
		t := int(ot.Loc[0])

		out.Values[i] += e.PEdmanFailure * fVal
		if t > 0 {
			c := e.DyeSeq.At(t - 1)
			if c == dyeseq.Gap {
				out.Values[i-tStride] += (1 - e.PEdmanFailure) * fVal
			} else {
				cTotal := int(e.DyeTrack.At(t-1, c))
				cStride := out.Strides[1+c]
				cIdx := int(ot.Loc[1+c])
				if cIdx < cTotal {
					ratio := float64(cIdx) / float64(cTotal)
					out.Values[i-tStride] += (1 - e.PEdmanFailure) * (1 - ratio) * fVal
				}
				cIdx2 := cIdx + 1
				ratio2 := float64(cIdx2) / float64(cTotal)
				out.Values[i-tStride+cStride] += (1 - e.PEdmanFailure) * ratio2 * fVal
			}
		}
		in.Advance()
		ot.Advance()
	}
	outBroken.CopyFrom(input.BrokenN, e.TrueBackwardRange)

	output.Main = out
	output.BrokenN = outBroken
	output.Range = e.TrueForwardRange.Clone()
	output.AllowDetached = input.AllowDetached
	output.PDetached = input.PDetached
	*numEdmans--
}

// ImproveFit reads forwardPSV, backwardPSV and nextBackwardPSV with three
// independent iterators over the same coordinate range: Forward/Backward
// above may have given these three state vectors three different shapes
// (each padded to its own step's safe range), so a single shared flat
// index cannot be reused across them.
func (e *EdmanTransition) ImproveFit(forwardPSV, backwardPSV, nextBackwardPSV *statevec.PeptideStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	fIt := forwardPSV.Main.Iterator(e.TrueForwardRange)
	bIt := backwardPSV.Main.Iterator(e.TrueForwardRange)
	nbIt := nextBackwardPSV.Main.Iterator(e.TrueForwardRange)
	for !fIt.Done() {
		anyNonzero := false
		for c := 1; c < len(fIt.Loc); c++ {
			if fIt.Loc[c] != 0 {
				anyNonzero = true
				break
			}
		}
		if anyNonzero {
			fVal := forwardPSV.Main.Values[fIt.Index()]
			bVal := backwardPSV.Main.Values[bIt.Index()]
			nbVal := nextBackwardPSV.Main.Values[nbIt.Index()]
			fitter.PEdmanFailureFit.Numerator += fVal * e.PEdmanFailure * nbVal / totalProb
			fitter.PEdmanFailureFit.Denominator += fVal * bVal / totalProb
		}
		fIt.Advance()
		bIt.Advance()
		nbIt.Advance()
	}
}
