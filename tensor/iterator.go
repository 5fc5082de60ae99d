package tensor

import "github.com/onephoton/fluoroseq/kdrange"

// Iterator walks every coordinate inside a KDRange in row-major order
// (the last axis varies fastest), yielding the flat buffer index at each
// step. It borrows into its Tensor for its lifetime; there is nothing to
// release.
type Iterator struct {
	t     *Tensor
	r     kdrange.KDRange
	Loc   []uint32
	index int
	done  bool
}

// Iterator restricts traversal of t to the coordinates inside r.
func (t *Tensor) Iterator(r kdrange.KDRange) *Iterator {
	it := &Iterator{
		t:    t,
		r:    r,
		Loc:  append([]uint32(nil), r.Min...),
		done: r.IsEmpty(),
	}
	if !it.done {
		it.index = t.Index(it.Loc)
	}
	return it
}

// Done reports whether the traversal has been exhausted.
func (it *Iterator) Done() bool { return it.done }

// Index returns the flat buffer offset of the current coordinate.
func (it *Iterator) Index() int { return it.index }

// Advance moves to the next coordinate in row-major order.
func (it *Iterator) Advance() {
	for axis := len(it.Loc) - 1; axis >= 0; axis-- {
		it.Loc[axis]++
		it.index += it.t.Strides[axis]
		if it.Loc[axis] < it.r.Max[axis] {
			return
		}
		it.index -= int(it.Loc[axis]-it.r.Min[axis]) * it.t.Strides[axis]
		it.Loc[axis] = it.r.Min[axis]
	}
	it.done = true
}
