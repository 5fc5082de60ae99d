package hmm_test

import (
	"math"
	"testing"

	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/hmm"
	"github.com/onephoton/fluoroseq/precompute"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatModel(numChannels int, pEdmanFailure, pDetach, pBleach, pDud float64) seqmodel.SequencingModel {
	channels := make([]seqmodel.ChannelModel, numChannels)
	for c := range channels {
		channels[c] = seqmodel.ChannelModel{
			PDud:           pDud,
			PInitialBleach: pBleach,
			PCyclicBleach:  pBleach,
			Mu:             1.0,
			Sigma:          0.16,
			BgSigma:        0.00667,
		}
	}
	return seqmodel.SequencingModel{
		PEdmanFailure: pEdmanFailure,
		PInitialDetach: pDetach,
		PCyclicDetach:  pDetach,
		Channels:       channels,
	}
}

func buildHMM(t *testing.T, numTimesteps, numChannels int, seqStr string, model seqmodel.SequencingModel, values []float64) *hmm.PeptideHMM {
	t.Helper()
	seq, err := dyeseq.New(numChannels, seqStr)
	require.NoError(t, err)
	track := dyeseq.BuildDyeTrack(numTimesteps, numChannels, seq)

	rad, err := radiometry.New(numTimesteps, numChannels, values)
	require.NoError(t, err)

	universal := precompute.NewUniversal(model)
	radPre := precompute.NewRadiometry(rad, model, math.Inf(1), int(track.MaxCount()))
	return hmm.NewPeptideHMM(numTimesteps, numChannels, seq, track, model, universal, radPre)
}

// A single dye, single timestep, bare emission: no transitions can fire, so
// probability() reduces to the emission density at the observed intensity.
func TestPeptideHMMProbabilityBarePDF(t *testing.T) {
	model := flatModel(1, 0, 0, 0, 0)
	model.Channels[0].Sigma = 0.05
	h := buildHMM(t, 1, 1, "0", model, []float64{1.0})

	want := model.Channels[0].PDF(1.0, 1)
	assert.InDelta(t, want, h.Probability(), 1e-12)
}

// With the (one-time, pre-Edman) detach rate at 1, the first cycle's
// emission still sees the full dye count (detach runs after it), then every
// bit of mass collapses onto the detached scalar and rides out the
// remaining emissions read at d=0 on every channel.
func TestPeptideHMMPureDetach(t *testing.T) {
	model := flatModel(1, 0, 1.0, 0, 0)
	obs0, obs1 := 1.0, 0.1
	h := buildHMM(t, 2, 1, "0", model, []float64{obs0, obs1})

	want := model.Channels[0].PDF(obs0, 1) * model.Channels[0].PDF(obs1, 0)
	assert.InDelta(t, want, h.Probability(), 1e-12)
}

// With the one-time initial bleach rate at 1, the dye survives the first
// emission (bleach runs after it) and is then certain to be gone by the
// second: algebraically identical in shape to the detach case above, but
// exercised through BinomialTransition's tensor-level collapse instead of
// the detached scalar.
func TestPeptideHMMPureBleachDecay(t *testing.T) {
	model := flatModel(1, 0, 0, 1.0, 0)
	obs0, obs1 := 1.0, 0.1
	h := buildHMM(t, 2, 1, "0", model, []float64{obs0, obs1})

	want := model.Channels[0].PDF(obs0, 1) * model.Channels[0].PDF(obs1, 0)
	assert.InDelta(t, want, h.Probability(), 1e-9)
}

// Two-channel, three-timestep regression fixture grounded in the original
// engine's "probability_more_involved" test: two dyes on channel 0, five on
// channel 1, with dud/detach/bleach/edman-failure all active at once. The
// tolerance is loose because this module generalizes the single detach/
// bleach rate that fixture used into independent initial/cyclic rates
// (set equal here) plus a broken-N step with zero rate (an identity
// transform), rather than because the computed probability is expected to
// drift meaningfully; a regression as large as the tensor-overflow bug this
// test was added to catch would blow well past this margin.
func TestPeptideHMMTwoChannelRegression(t *testing.T) {
	channels := []seqmodel.ChannelModel{
		{PDud: 0.07, PInitialBleach: 0.05, PCyclicBleach: 0.05, Mu: 1.0, Sigma: 0.16, BgSigma: 0.00667},
		{PDud: 0.07, PInitialBleach: 0.05, PCyclicBleach: 0.05, Mu: 1.0, Sigma: 0.16, BgSigma: 0.00667},
	}
	model := seqmodel.SequencingModel{
		PEdmanFailure:  0.06,
		PInitialDetach: 0.05,
		PCyclicDetach:  0.05,
		Channels:       channels,
	}

	values := []float64{
		5.0, 2.0,
		5.0, 1.0,
		4.0, 1.0,
	}
	h := buildHMM(t, 3, 2, "10.01111", model, values)

	const want = 1.876822091893613e-96
	got := h.Probability()
	require.NotZero(t, got)
	assert.InEpsilon(t, want, got, 0.25)
}

func TestPeptideHMMImproveFitMatchesProbability(t *testing.T) {
	model := flatModel(1, 0.1, 0.05, 0.1, 0.05)
	h := buildHMM(t, 3, 1, "0", model, []float64{1.0, 1.0, 1.0})

	want := h.Probability()
	fitter := fit.NewSequencingModelFitter(3, model, fit.Settings{})
	got := h.ImproveFit(fitter)
	assert.InDelta(t, want, got, 1e-9)
}

func TestPeptideHMMEmptyRangeIsZero(t *testing.T) {
	model := flatModel(1, 0, 0, 0, 0)
	h := buildHMM(t, 1, 1, "0", model, []float64{1.0})
	h.EmptyRange = true
	assert.Equal(t, 0.0, h.Probability())

	fitter := fit.NewSequencingModelFitter(1, model, fit.Settings{})
	assert.Equal(t, 0.0, h.ImproveFit(fitter))
}

func TestPeptideHMMTensorShape(t *testing.T) {
	model := flatModel(2, 0, 0, 0, 0)
	seq, err := dyeseq.New(2, "10.01111")
	require.NoError(t, err)
	track := dyeseq.BuildDyeTrack(3, 2, seq)

	rad, err := radiometry.New(3, 2, make([]float64, 6))
	require.NoError(t, err)
	universal := precompute.NewUniversal(model)
	radPre := precompute.NewRadiometry(rad, model, math.Inf(1), int(track.MaxCount()))
	h := hmm.NewPeptideHMM(3, 2, seq, track, model, universal, radPre)

	require.Len(t, h.TensorShape, 3)
	assert.EqualValues(t, 3, h.TensorShape[0])
	assert.EqualValues(t, track.At(0, 0)+1, h.TensorShape[1])
	assert.EqualValues(t, track.At(0, 1)+1, h.TensorShape[2])
}

func TestPeptideHMMProbabilityIsDeterministic(t *testing.T) {
	model := flatModel(1, 0.1, 0.05, 0.1, 0.05)
	values := []float64{1.0, 0.9, 1.1}
	a := buildHMM(t, 3, 1, "0", model, append([]float64(nil), values...))
	b := buildHMM(t, 3, 1, "0", model, append([]float64(nil), values...))

	assert.False(t, math.IsNaN(a.Probability()))
	assert.Equal(t, a.Probability(), b.Probability())
}
