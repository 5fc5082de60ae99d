package kdrange_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	r := kdrange.New([]uint32{3, 4})
	assert.Equal(t, []uint32{0, 0}, r.Min)
	assert.Equal(t, []uint32{3, 4}, r.Max)
	assert.False(t, r.IsEmpty())
	assert.True(t, r.IncludesZero())
}

func TestIntersect(t *testing.T) {
	a := kdrange.KDRange{Min: []uint32{0, 1}, Max: []uint32{5, 5}}
	b := kdrange.KDRange{Min: []uint32{2, 0}, Max: []uint32{4, 3}}
	got := a.Intersect(b)
	assert.Equal(t, []uint32{2, 1}, got.Min)
	assert.Equal(t, []uint32{4, 3}, got.Max)
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		name  string
		r     kdrange.KDRange
		empty bool
	}{
		{"normal", kdrange.KDRange{Min: []uint32{0}, Max: []uint32{1}}, false},
		{"collapsed", kdrange.KDRange{Min: []uint32{2}, Max: []uint32{2}}, true},
		{"inverted", kdrange.KDRange{Min: []uint32{3}, Max: []uint32{1}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.empty, tc.r.IsEmpty())
		})
	}
}

func TestIncludesZero(t *testing.T) {
	yes := kdrange.KDRange{Min: []uint32{0, 0}, Max: []uint32{2, 2}}
	no := kdrange.KDRange{Min: []uint32{0, 1}, Max: []uint32{2, 2}}
	assert.True(t, yes.IncludesZero())
	assert.False(t, no.IncludesZero())
}

func TestClone(t *testing.T) {
	r := kdrange.New([]uint32{2, 2})
	c := r.Clone()
	c.Min[0] = 1
	assert.Equal(t, uint32(0), r.Min[0], "mutating the clone must not affect the original")
}
