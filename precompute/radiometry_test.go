package precompute_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/precompute"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRadiometryBuildsOnePeptideEmissionPerTimestep(t *testing.T) {
	model := twoChannelModel()
	rad, err := radiometry.New(3, 2, []float64{
		5.0, 2.0,
		5.0, 1.0,
		4.0, 1.0,
	})
	require.NoError(t, err)

	r := precompute.NewRadiometry(rad, model, 15, 5)

	require.Len(t, r.PeptideEmissions, 3)
	for i, e := range r.PeptideEmissions {
		assert.Equal(t, i, e.Timestep)
	}
}

func TestNewRadiometryBuildsOneStuckDyeEmissionPerChannel(t *testing.T) {
	model := twoChannelModel()
	rad, err := radiometry.New(2, 2, []float64{1.0, 0.0, 0.9, 0.1})
	require.NoError(t, err)

	r := precompute.NewRadiometry(rad, model, 15, 5)

	require.Len(t, r.StuckDyeEmissions, 2)
	assert.Equal(t, 0, r.StuckDyeEmissions[0].Channel)
	assert.Equal(t, 1, r.StuckDyeEmissions[1].Channel)
}
