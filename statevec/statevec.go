/*
Package statevec holds the two state-vector types the HMM engine passes
between steps: PeptideStateVector (the main pipeline state) and
StuckDyeStateVector (the scalar auxiliary chain).
*/
package statevec

import (
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/tensor"
)

// PeptideStateVector is the HMM state at one point in the step pipeline: a
// main Tensor over (successful-Edman-count x per-channel dye-count), a
// parallel broken-N Tensor of identical shape, and a detached scalar.
// Invariant: Main.Sum(Range) + BrokenN.Sum(Range) + (PDetached if
// AllowDetached) is the total probability mass represented.
type PeptideStateVector struct {
	Main          *tensor.Tensor
	BrokenN       *tensor.Tensor
	Range         kdrange.KDRange
	PDetached     float64
	AllowDetached bool
}

// NewFromShape allocates a zero-filled PeptideStateVector covering the full
// shape, with the whole shape recorded as its valid range.
func NewFromShape(shape []uint32) *PeptideStateVector {
	return &PeptideStateVector{
		Main:          tensor.NewShape(shape),
		BrokenN:       tensor.NewShape(shape),
		Range:         kdrange.New(shape),
		AllowDetached: true,
	}
}

// NewFromRange allocates a PeptideStateVector whose tensors are sized to
// r.Max, with r recorded as the initially valid sub-box.
func NewFromRange(r kdrange.KDRange) *PeptideStateVector {
	return &PeptideStateVector{
		Main:          tensor.NewRange(r),
		BrokenN:       tensor.NewRange(r),
		Range:         r.Clone(),
		AllowDetached: true,
	}
}

// InitializeFromStart puts unit mass at the HMM's initial coordinate: zero
// successful Edmans, every channel at its starting (maximum) dye count per
// startCounts. Used to seed the forward pass.
func (psv *PeptideStateVector) InitializeFromStart(startCounts []uint32) {
	psv.Main.Zero(psv.Range)
	psv.BrokenN.Zero(psv.Range)
	loc := make([]uint32, len(psv.Main.Shape))
	copy(loc[1:], startCounts)
	psv.Main.Set(loc, 1.0)
	psv.PDetached = 0
}

// InitializeFromFinish puts 1.0 in every live state, the vacuous backward
// boundary condition ("everything after this point is certain").
func (psv *PeptideStateVector) InitializeFromFinish() {
	it := psv.Main.Iterator(psv.Range)
	for !it.Done() {
		psv.Main.Values[it.Index()] = 1.0
		it.Advance()
	}
	it = psv.BrokenN.Iterator(psv.Range)
	for !it.Done() {
		psv.BrokenN.Values[it.Index()] = 1.0
		it.Advance()
	}
	psv.PDetached = 1.0
}

// Sum returns the total probability mass represented by this state.
func (psv *PeptideStateVector) Sum() float64 {
	sum := psv.Main.Sum(psv.Range) + psv.BrokenN.Sum(psv.Range)
	if psv.AllowDetached {
		sum += psv.PDetached
	}
	return sum
}

// Source returns the probability at the HMM's starting coordinate (zero
// Edmans, maximal dye count on every channel), used to read off the final
// probability after a backward pass.
func (psv *PeptideStateVector) Source() float64 {
	loc := make([]uint32, len(psv.Main.Shape))
	for c := 1; c < len(loc); c++ {
		loc[c] = psv.Main.Shape[c] - 1
	}
	return psv.Main.At(loc)
}

// StuckDyeStateVector is the two-state (dye, no_dye) scalar chain used by
// StuckDyeHMM.
type StuckDyeStateVector struct {
	Dye   float64
	NoDye float64
}

// InitializeFromStart puts unit mass on the "dye present" state.
func (sv *StuckDyeStateVector) InitializeFromStart() {
	sv.Dye = 1
	sv.NoDye = 0
}

// InitializeFromFinish puts 1.0 in both states.
func (sv *StuckDyeStateVector) InitializeFromFinish() {
	sv.Dye = 1
	sv.NoDye = 1
}

// Sum returns dye + no_dye.
func (sv *StuckDyeStateVector) Sum() float64 { return sv.Dye + sv.NoDye }

// Source returns the probability of the original "dye present" state.
func (sv *StuckDyeStateVector) Source() float64 { return sv.Dye }
