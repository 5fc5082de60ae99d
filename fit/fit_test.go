package fit_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/stretchr/testify/assert"
)

func TestRatioFitterGet(t *testing.T) {
	rf := fit.RatioFitter{Numerator: 3, Denominator: 12}
	assert.Equal(t, 0.25, rf.Get())
}

func TestRatioFitterAddIsAssociative(t *testing.T) {
	a := fit.RatioFitter{Numerator: 1, Denominator: 4}
	b := fit.RatioFitter{Numerator: 2, Denominator: 4}
	c := fit.RatioFitter{Numerator: 3, Denominator: 4}

	ab := a
	ab.Add(b)
	abc := ab
	abc.Add(c)

	bc := b
	bc.Add(c)
	abc2 := a
	abc2.Add(bc)

	assert.InDelta(t, abc.Get(), abc2.Get(), 1e-12)
}

func TestRatioFitterScale(t *testing.T) {
	rf := fit.RatioFitter{Numerator: 2, Denominator: 4}
	rf.Scale(2)
	assert.Equal(t, 4.0, rf.Numerator)
	assert.Equal(t, 8.0, rf.Denominator)
	assert.Equal(t, 0.5, rf.Get())
}

func TestDecayingFitterRecoversFlatRate(t *testing.T) {
	// If the true rate is flat (initial=0), the fit should converge to a
	// base close to the flat rate regardless of the decay term.
	df := fit.NewDecayingFitter(6, seqmodel.DecayingRateModel{Base: 0.01, Initial: 0.2, InitialDecay: 0.3})
	for tm := 0; tm < 5; tm++ {
		df.AddTimestep(tm, 0.05*100, 100)
	}
	got := df.Get()
	assert.InDelta(t, 0.05, got.Base, 0.05)
}

func TestDecayingFitterHoldsFixedParams(t *testing.T) {
	df := fit.NewDecayingFitter(3, seqmodel.DecayingRateModel{Base: 0.02, Initial: 0.1, InitialDecay: 0.5})
	df.HoldBase = true
	df.HoldInitial = true
	df.HoldDecay = true
	df.AddTimestep(0, 5, 100)
	df.AddTimestep(1, 5, 100)
	got := df.Get()
	assert.Equal(t, 0.02, got.Base)
	assert.Equal(t, 0.1, got.Initial)
	assert.Equal(t, 0.5, got.InitialDecay)
}

func TestDistributionFitterMuAndSigma(t *testing.T) {
	df := &fit.DistributionFitter{PrevMu: 1.0}
	df.AddSample(1.0, 1, 1.0)
	df.AddSample(1.0, 1, 1.0)
	df.AddSample(0.0, 0, 1.0)
	assert.InDelta(t, 1.0, df.Mu(), 1e-9)
	assert.InDelta(t, 0.0, df.Sigma(), 1e-9)
	assert.InDelta(t, 0.0, df.BgSigma(), 1e-9)
}

func TestSequencingModelFitterGetHonorsHoldFlags(t *testing.T) {
	prev := seqmodel.SequencingModel{
		PEdmanFailure: 0.1,
		Channels:      []seqmodel.ChannelModel{{PDud: 0.05, Mu: 1, Sigma: 0.1, BgSigma: 0.01}},
	}
	settings := fit.Settings{HoldPEdmanFailure: true}
	smf := fit.NewSequencingModelFitter(2, prev, settings)
	smf.PEdmanFailureFit = fit.RatioFitter{Numerator: 1, Denominator: 2}
	got := smf.Get()
	assert.Equal(t, 0.1, got.PEdmanFailure)
}
