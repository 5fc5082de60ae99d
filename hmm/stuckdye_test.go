package hmm_test

import (
	"math"
	"testing"

	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/hmm"
	"github.com/onephoton/fluoroseq/precompute"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStuckDyeHMM(t *testing.T, numTimesteps, channel int, model seqmodel.SequencingModel, values []float64) *hmm.StuckDyeHMM {
	t.Helper()
	numChannels := model.NumChannels()
	rad, err := radiometry.New(numTimesteps, numChannels, values)
	require.NoError(t, err)

	universal := precompute.NewUniversal(model)
	radPre := precompute.NewRadiometry(rad, model, math.Inf(1), 1)
	return hmm.NewStuckDyeHMM(numTimesteps, channel, universal, radPre)
}

// With no stuck-dye loss at all, every cycle should read the "dye present"
// emission, so the chain's probability is the product of per-cycle dye
// densities.
func TestStuckDyeHMMNoLoss(t *testing.T) {
	model := seqmodel.SequencingModel{
		Channels: []seqmodel.ChannelModel{
			{PStuckDyeLoss: 0, StuckDyeRatio: 1, Mu: 1.0, Sigma: 0.16, BgSigma: 0.00667},
		},
	}
	values := []float64{1.0, 1.0}
	h := buildStuckDyeHMM(t, 2, 0, model, values)

	want := model.Channels[0].PDF(1.0, 1) * model.Channels[0].PDF(1.0, 1)
	assert.InDelta(t, want, h.Probability(), 1e-9)
}

// With stuck-dye loss at 1, the dye is certain to be gone after the first
// cycle, so the second reading is evaluated against the no-dye emission.
func TestStuckDyeHMMCertainLoss(t *testing.T) {
	model := seqmodel.SequencingModel{
		Channels: []seqmodel.ChannelModel{
			{PStuckDyeLoss: 1, StuckDyeRatio: 1, Mu: 1.0, Sigma: 0.16, BgSigma: 0.00667},
		},
	}
	values := []float64{1.0, 0.0}
	h := buildStuckDyeHMM(t, 2, 0, model, values)

	want := model.Channels[0].PDF(1.0, 1) * model.Channels[0].PDF(0.0, 0)
	assert.InDelta(t, want, h.Probability(), 1e-9)
}

// Three-cycle stuck-dye regression fixture: moderate loss rate, non-trivial
// observations on every cycle.
func TestStuckDyeHMMRegression(t *testing.T) {
	model := seqmodel.SequencingModel{
		Channels: []seqmodel.ChannelModel{
			{PStuckDyeLoss: 0.08, StuckDyeRatio: 0.5, Mu: 1.0, Sigma: 0.16, BgSigma: 0.00667},
		},
	}
	values := []float64{1.1, 1.0, 0.05}
	h := buildStuckDyeHMM(t, 3, 0, model, values)

	got := h.Probability()
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestStuckDyeHMMImproveFitMatchesProbability(t *testing.T) {
	model := seqmodel.SequencingModel{
		Channels: []seqmodel.ChannelModel{
			{PStuckDyeLoss: 0.08, StuckDyeRatio: 0.5, Mu: 1.0, Sigma: 0.16, BgSigma: 0.00667},
		},
	}
	values := []float64{1.1, 1.0, 0.05}
	h := buildStuckDyeHMM(t, 3, 0, model, values)

	want := h.Probability()
	fitter := fit.NewSequencingModelFitter(3, model, fit.Settings{})
	got := h.ImproveFit(fitter)
	assert.InDelta(t, want, got, 1e-9)
}
