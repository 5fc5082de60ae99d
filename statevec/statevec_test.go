package statevec_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/statevec"
	"github.com/stretchr/testify/assert"
)

func TestInitializeFromStart(t *testing.T) {
	psv := statevec.NewFromShape([]uint32{2, 3, 2})
	psv.InitializeFromStart([]uint32{2, 1})
	assert.Equal(t, 1.0, psv.Source())
	assert.Equal(t, 1.0, psv.Sum())
	assert.Equal(t, 0.0, psv.PDetached)
}

func TestInitializeFromFinish(t *testing.T) {
	psv := statevec.NewFromShape([]uint32{2, 3, 2})
	psv.InitializeFromFinish()
	for _, v := range psv.Main.Values {
		assert.Equal(t, 1.0, v)
	}
	for _, v := range psv.BrokenN.Values {
		assert.Equal(t, 1.0, v)
	}
	assert.Equal(t, 1.0, psv.PDetached)
}

func TestSumIncludesDetachedOnlyWhenAllowed(t *testing.T) {
	psv := statevec.NewFromShape([]uint32{1, 1})
	psv.PDetached = 5
	psv.AllowDetached = false
	assert.Equal(t, 0.0, psv.Sum())
	psv.AllowDetached = true
	assert.Equal(t, 5.0, psv.Sum())
}

func TestStuckDyeStateVector(t *testing.T) {
	sv := &statevec.StuckDyeStateVector{}
	sv.InitializeFromStart()
	assert.Equal(t, 1.0, sv.Source())
	assert.Equal(t, 1.0, sv.Sum())
}
