package tensor_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/tensor"
	"github.com/stretchr/testify/assert"
)

func TestNewShapeAndAt(t *testing.T) {
	tsr := tensor.NewShape([]uint32{2, 3})
	tsr.Set([]uint32{1, 2}, 7.5)
	assert.Equal(t, 7.5, tsr.At([]uint32{1, 2}))
	assert.Equal(t, 0.0, tsr.At([]uint32{0, 0}))
}

func TestIteratorRowMajor(t *testing.T) {
	tsr := tensor.NewShape([]uint32{2, 2})
	r := kdrange.New([]uint32{2, 2})
	var i float64
	it := tsr.Iterator(r)
	for !it.Done() {
		tsr.Values[it.Index()] = i
		i++
		it.Advance()
	}
	assert.Equal(t, []float64{0, 1, 2, 3}, tsr.Values)
}

func TestSum(t *testing.T) {
	tsr := tensor.NewShape([]uint32{3})
	tsr.Values = []float64{1, 2, 3}
	full := kdrange.New([]uint32{3})
	assert.Equal(t, 6.0, tsr.Sum(full))
	partial := kdrange.KDRange{Min: []uint32{1}, Max: []uint32{3}}
	assert.Equal(t, 5.0, tsr.Sum(partial))
}

func TestVectorIteratorAlongAxis(t *testing.T) {
	// shape (2 timesteps, 3 dye counts); iterate vectors along axis 1.
	tsr := tensor.NewShape([]uint32{2, 3})
	for tIdx := 0; tIdx < 2; tIdx++ {
		for c := 0; c < 3; c++ {
			tsr.Set([]uint32{uint32(tIdx), uint32(c)}, float64(tIdx*10+c))
		}
	}
	r := kdrange.New([]uint32{2, 3})
	vi := tsr.VectorIterator(r, 1)
	var rows [][]float64
	for !vi.Done() {
		v := vi.Get()
		row := make([]float64, v.Len())
		for i := 0; i < v.Len(); i++ {
			row[i] = v.Get(i)
		}
		rows = append(rows, row)
		vi.Advance()
	}
	assert.Equal(t, [][]float64{{0, 1, 2}, {10, 11, 12}}, rows)
}

func TestVectorSet(t *testing.T) {
	tsr := tensor.NewShape([]uint32{1, 4})
	r := kdrange.New([]uint32{1, 4})
	vi := tsr.VectorIterator(r, 1)
	v := vi.Get()
	for i := 0; i < v.Len(); i++ {
		v.Set(i, float64(i*2))
	}
	assert.Equal(t, []float64{0, 2, 4, 6}, tsr.Values)
}

func TestZero(t *testing.T) {
	tsr := tensor.NewShape([]uint32{2})
	tsr.Values = []float64{5, 5}
	tsr.Zero(kdrange.New([]uint32{2}))
	assert.Equal(t, []float64{0, 0}, tsr.Values)
}
