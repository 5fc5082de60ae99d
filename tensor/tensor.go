/*
Package tensor provides a dense, row-major, d-dimensional array of float64
values, the storage backing every HMM state vector in this module. A Tensor
carries its own KDRange marking which part of its buffer currently holds
meaningful values; everything outside that box is undefined until written.
*/
package tensor

import "github.com/onephoton/fluoroseq/kdrange"

// Tensor is a dense d-dimensional array of float64, stored row-major.
type Tensor struct {
	Values  []float64
	Shape   []uint32
	Strides []int
	Range   kdrange.KDRange
}

// NewShape allocates a zero-filled tensor covering the whole shape, with the
// whole shape recorded as its Range.
func NewShape(shape []uint32) *Tensor {
	t := &Tensor{
		Shape:   append([]uint32(nil), shape...),
		Strides: stridesFor(shape),
	}
	t.Values = make([]float64, size(shape))
	t.Range = kdrange.New(shape)
	return t
}

// NewRange allocates a tensor whose shape is range.Max, zero-filled, with
// the initial valid sub-box set to range.
func NewRange(r kdrange.KDRange) *Tensor {
	t := NewShape(r.Max)
	t.Range = r.Clone()
	return t
}

func size(shape []uint32) int {
	n := 1
	for _, s := range shape {
		n *= int(s)
	}
	return n
}

func stridesFor(shape []uint32) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= int(shape[i])
	}
	return strides
}

// Index computes the flat buffer offset for a coordinate.
func (t *Tensor) Index(loc []uint32) int {
	idx := 0
	for i, l := range loc {
		idx += int(l) * t.Strides[i]
	}
	return idx
}

// At reads the entry at loc. Bounds are not checked; this is a hot path.
func (t *Tensor) At(loc []uint32) float64 {
	return t.Values[t.Index(loc)]
}

// Set writes the entry at loc.
func (t *Tensor) Set(loc []uint32, v float64) {
	t.Values[t.Index(loc)] = v
}

// Zero sets every entry within r to 0. Used before accumulating += writes
// into a freshly sized output tensor, the same trick the Edman step
// relies on.
func (t *Tensor) Zero(r kdrange.KDRange) {
	it := t.Iterator(r)
	for !it.Done() {
		t.Values[it.Index()] = 0
		it.Advance()
	}
}

// Sum returns the sum of every entry within r.
func (t *Tensor) Sum(r kdrange.KDRange) float64 {
	var sum float64
	it := t.Iterator(r)
	for !it.Done() {
		sum += t.Values[it.Index()]
		it.Advance()
	}
	return sum
}

// CopyFrom copies every entry within r from src into t, coordinate for
// coordinate. t and src need not share the same shape (each walks r with its
// own strides), so this also serves to copy into a differently-padded
// tensor, as the Edman step does for its enlarged output.
func (t *Tensor) CopyFrom(src *Tensor, r kdrange.KDRange) {
	dst := t.Iterator(r)
	in := src.Iterator(r)
	for !dst.Done() {
		t.Values[dst.Index()] = src.Values[in.Index()]
		dst.Advance()
		in.Advance()
	}
}
