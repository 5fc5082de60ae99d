package tensor

import "github.com/onephoton/fluoroseq/kdrange"

// Vector is a strided 1-D view into a Tensor along one axis.
type Vector struct {
	t      *Tensor
	offset int
	stride int
	length int
}

// Len returns the number of entries along the vector's axis.
func (v *Vector) Len() int { return v.length }

// Get reads the i'th entry along the vector's axis.
func (v *Vector) Get(i int) float64 {
	return v.t.Values[v.offset+i*v.stride]
}

// Set writes the i'th entry along the vector's axis.
func (v *Vector) Set(i int, val float64) {
	v.t.Values[v.offset+i*v.stride] = val
}

// VectorIterator yields, for each position in the projection of a KDRange
// onto every axis but one, a Vector slicing through the tensor along that
// axis. This is how BinomialTransition and similar per-channel steps apply
// a 1-D transition independently at every other coordinate.
type VectorIterator struct {
	t       *Tensor
	r       kdrange.KDRange
	axis    int
	loc     []uint32
	base    int
	done    bool
	vlength int
	vstride int
}

// VectorIterator restricts traversal to r, projected onto every axis but
// axis, and yields a Vector along axis at each remaining coordinate.
func (t *Tensor) VectorIterator(r kdrange.KDRange, axis int) *VectorIterator {
	empty := r.IsEmpty()
	vi := &VectorIterator{
		t:       t,
		r:       r,
		axis:    axis,
		loc:     append([]uint32(nil), r.Min...),
		done:    empty,
		vlength: int(r.Max[axis]) - int(r.Min[axis]),
		vstride: t.Strides[axis],
	}
	if vi.vlength < 0 {
		vi.vlength = 0
	}
	if !empty {
		vi.base = t.Index(vi.loc)
	}
	return vi
}

// Done reports whether every non-axis coordinate has been visited.
func (vi *VectorIterator) Done() bool { return vi.done }

// Get returns the Vector at the current non-axis coordinate.
func (vi *VectorIterator) Get() *Vector {
	return &Vector{t: vi.t, offset: vi.base, stride: vi.vstride, length: vi.vlength}
}

// Advance moves to the next non-axis coordinate in row-major order.
func (vi *VectorIterator) Advance() {
	for d := len(vi.loc) - 1; d >= 0; d-- {
		if d == vi.axis {
			continue
		}
		vi.loc[d]++
		vi.base += vi.t.Strides[d]
		if vi.loc[d] < vi.r.Max[d] {
			return
		}
		vi.base -= int(vi.loc[d]-vi.r.Min[d]) * vi.t.Strides[d]
		vi.loc[d] = vi.r.Min[d]
	}
	vi.done = true
}
