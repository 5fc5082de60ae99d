package step

import (
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/tensor"
)

// BinomialKind selects which SequencingModelFitter accumulator a
// BinomialTransition reports its Baum-Welch evidence into.
type BinomialKind int

const (
	// KindDud is the initial, non-repeating per-channel dud-labeling loss.
	KindDud BinomialKind = iota
	// KindInitialBleach is the one-time bleach loss applied before any
	// Edman cycle.
	KindInitialBleach
	// KindCyclicBleach is the per-cycle bleach loss applied once per
	// timestep after the first.
	KindCyclicBleach
)

// BinomialTable holds the lazily-extended lower-triangular survivor table
// P[n,k] = C(n,k)*(1-q)^k*q^(n-k) for one channel's loss rate. A single
// table is shared by every BinomialTransition built against that channel
// and kind across an entire dataset, so the table is computed once no
// matter how many peptides' HMMs reuse it.
type BinomialTable struct {
	Q     float64
	table [][]float64
}

// NewBinomialTable builds an empty table for loss rate q.
func NewBinomialTable(q float64) *BinomialTable {
	return &BinomialTable{Q: q, table: [][]float64{{1}}}
}

func (t *BinomialTable) ensure(maxN int) {
	p := 1 - t.Q
	for n := len(t.table); n <= maxN; n++ {
		row := make([]float64, n+1)
		row[0] = t.table[n-1][0] * t.Q
		for k := 1; k < n; k++ {
			row[k] = t.table[n-1][k]*t.Q + t.table[n-1][k-1]*p
		}
		row[n] = t.table[n-1][n-1] * p
		t.table = append(t.table, row)
	}
}

func (t *BinomialTable) prob(from, to int) float64 {
	return t.table[from][to]
}

// BinomialTransition represents an independent per-dye loss event on one
// channel with loss probability q, generalizing Dud, InitialBleach, and
// CyclicBleach: only the channel, the rate, and the fitter slot differ.
// Each occurrence in an HMM's step list gets its own ForwardRange/
// BackwardRange (set during pruning) but may share a BinomialTable with
// every other occurrence on the same channel and kind.
type BinomialTransition struct {
	Channel int
	Kind    BinomialKind

	table *BinomialTable

	ForwardRange  kdrange.KDRange
	BackwardRange kdrange.KDRange
}

// NewBinomialTransition builds a step for channel ch with loss rate q,
// owning a private table.
func NewBinomialTransition(q float64, ch int, kind BinomialKind) *BinomialTransition {
	return NewBinomialTransitionFromTable(NewBinomialTable(q), ch, kind)
}

// NewBinomialTransitionFromTable builds a step sharing an existing table,
// used when the same channel/kind recurs across many cycles or peptides.
func NewBinomialTransitionFromTable(table *BinomialTable, ch int, kind BinomialKind) *BinomialTransition {
	return &BinomialTransition{table: table, Channel: ch, Kind: kind}
}

func (b *BinomialTransition) ensure(maxN int) { b.table.ensure(maxN) }

func (b *BinomialTransition) prob(from, to int) float64 {
	return b.table.prob(from, to)
}

func (b *BinomialTransition) axis() int { return 1 + b.Channel }

func (b *BinomialTransition) PruneForward(r *kdrange.KDRange, allowDetached *bool) {
	b.ForwardRange = r.Clone()
	out := r.Clone()
	out.Min[b.axis()] = 0
	b.BackwardRange = out
	*r = out
}

func (b *BinomialTransition) PruneBackward(r *kdrange.KDRange, allowDetached *bool) {
	b.BackwardRange = b.BackwardRange.Intersect(*r)
	*r = b.BackwardRange.Clone()
	r.Max[b.axis()] = kdrange.Unbounded
	b.ForwardRange = b.ForwardRange.Intersect(*r)
	*r = b.ForwardRange.Clone()
}

// applyForward runs the forward collapse on one tensor (Main or BrokenN),
// writing into a freshly allocated tensor of the same shape.
func (b *BinomialTransition) applyForward(in *tensor.Tensor) *tensor.Tensor {
	axis := b.axis()
	fromMax := int(b.ForwardRange.Max[axis])
	b.ensure(fromMax - 1)
	out := tensor.NewShape(in.Shape)
	inVI := in.VectorIterator(b.ForwardRange, axis)
	outVI := out.VectorIterator(b.BackwardRange, axis)
	for !inVI.Done() {
		inVec := inVI.Get()
		outVec := outVI.Get()
		toMin := int(b.BackwardRange.Min[axis])
		toMax := int(b.BackwardRange.Max[axis])
		fromMin := int(b.ForwardRange.Min[axis])
		for to := toMin; to < toMax; to++ {
			var v float64
			start := from32(to, fromMin)
			for from := start; from < fromMax; from++ {
				v += b.prob(from, to) * inVec.Get(from - fromMin)
			}
			outVec.Set(to-toMin, v)
		}
		inVI.Advance()
		outVI.Advance()
	}
	return out
}

func from32(to, fromMin int) int {
	if to > fromMin {
		return to
	}
	return fromMin
}

func (b *BinomialTransition) Forward(numEdmans *int, psv *statevec.PeptideStateVector) {
	newMain := b.applyForward(psv.Main)
	newBrokenN := b.applyForward(psv.BrokenN)
	psv.Main = newMain
	psv.BrokenN = newBrokenN
	psv.Range = b.BackwardRange.Clone()
}

func (b *BinomialTransition) applyBackward(in *tensor.Tensor) *tensor.Tensor {
	axis := b.axis()
	fromMax := int(b.ForwardRange.Max[axis])
	fromMin := int(b.ForwardRange.Min[axis])
	b.ensure(fromMax - 1)
	out := tensor.NewShape(in.Shape)
	inVI := in.VectorIterator(b.BackwardRange, axis)
	outVI := out.VectorIterator(b.ForwardRange, axis)
	for !outVI.Done() {
		inVec := inVI.Get()
		outVec := outVI.Get()
		toMin := int(b.BackwardRange.Min[axis])
		toMax := int(b.BackwardRange.Max[axis])
		for from := fromMin; from < fromMax; from++ {
			var v float64
			upper := from
			if toMax-1 < upper {
				upper = toMax - 1
			}
			for to := toMin; to <= upper; to++ {
				v += b.prob(from, to) * inVec.Get(to - toMin)
			}
			outVec.Set(from-fromMin, v)
		}
		inVI.Advance()
		outVI.Advance()
	}
	return out
}

func (b *BinomialTransition) Backward(input *statevec.PeptideStateVector, numEdmans *int, output *statevec.PeptideStateVector) {
	output.Main = b.applyBackward(input.Main)
	output.BrokenN = b.applyBackward(input.BrokenN)
	output.Range = b.ForwardRange.Clone()
	output.AllowDetached = input.AllowDetached
	output.PDetached = input.PDetached
}

func (b *BinomialTransition) ImproveFit(forwardPSV, backwardPSV, nextBackwardPSV *statevec.PeptideStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	target := b.accumulator(fitter)
	if target == nil {
		return
	}
	axis := b.axis()
	fVI := forwardPSV.Main.VectorIterator(b.ForwardRange, axis)
	bVI := backwardPSV.Main.VectorIterator(b.ForwardRange, axis)
	nbVI := nextBackwardPSV.Main.VectorIterator(b.BackwardRange, axis)
	fromMin := int(b.ForwardRange.Min[axis])
	toMin := int(b.BackwardRange.Min[axis])
	toMax := int(b.BackwardRange.Max[axis])
	for !fVI.Done() {
		fVec := fVI.Get()
		bVec := bVI.Get()
		nbVec := nbVI.Get()
		for from := fVec.Len() - 1; from >= 0; from-- {
			n := from + fromMin
			if n == 0 {
				continue
			}
			fVal := fVec.Get(from)
			target.Denominator += fVal * bVec.Get(from) / totalProb * float64(n)
			upper := n
			if toMax-1 < upper {
				upper = toMax - 1
			}
			for to := toMin; to < upper; to++ {
				target.Numerator += fVal * b.prob(n, to) * nbVec.Get(to-toMin) / totalProb * float64(n-to)
			}
		}
		fVI.Advance()
		bVI.Advance()
		nbVI.Advance()
	}
}

func (b *BinomialTransition) accumulator(fitter *fit.SequencingModelFitter) *fit.RatioFitter {
	cf := fitter.ChannelFits[b.Channel]
	switch b.Kind {
	case KindDud:
		return &cf.PDudFit
	case KindInitialBleach:
		return &cf.PInitialBleachFit
	case KindCyclicBleach:
		return &cf.PCyclicBleachFit
	}
	return nil
}
