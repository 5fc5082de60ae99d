package radiometry_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsWrongLength(t *testing.T) {
	_, err := radiometry.New(2, 2, []float64{1, 2, 3})
	require.Error(t, err)
}

func TestAtAndRow(t *testing.T) {
	rad, err := radiometry.New(2, 2, []float64{5, 2, 5, 1})
	require.NoError(t, err)
	assert.Equal(t, 5.0, rad.At(0, 0))
	assert.Equal(t, 2.0, rad.At(0, 1))
	assert.Equal(t, []float64{5, 1}, rad.Row(1))
}

func TestSetMutatesInPlace(t *testing.T) {
	rad, err := radiometry.New(1, 2, []float64{0, 0})
	require.NoError(t, err)
	rad.Set(0, 1, 3.5)
	assert.Equal(t, 3.5, rad.At(0, 1))
}
