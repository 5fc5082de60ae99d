package seqmodel_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/stretchr/testify/assert"
)

func TestChannelModelPDFRegressionFixture(t *testing.T) {
	// spec regression fixture: mu=1, sigma=0.05, d=1, x=1.0 -> ~7.978
	ch := seqmodel.ChannelModel{Mu: 1, Sigma: 0.05, BgSigma: 0.05}
	assert.InDelta(t, 7.978845608, ch.PDF(1.0, 1), 1e-6)
}

func TestChannelModelSigmaAt(t *testing.T) {
	ch := seqmodel.ChannelModel{Sigma: 0.16, BgSigma: 0.02}
	assert.Equal(t, 0.02, ch.SigmaAt(0))
	assert.InDelta(t, 0.16, ch.SigmaAt(1), 1e-12)
	assert.InDelta(t, 0.16*1.4142135623730951, ch.SigmaAt(2), 1e-9)
}

func TestDecayingRateModelRate(t *testing.T) {
	m := seqmodel.DecayingRateModel{Base: 0.01, Initial: 0.2, InitialDecay: 0.5}
	assert.InDelta(t, 0.21, m.Rate(0), 1e-12)
	assert.Less(t, m.Rate(10), m.Rate(1))
}

func TestSequencingModelCyclicDetachAtUsesDecayWhenSet(t *testing.T) {
	sm := seqmodel.SequencingModel{
		PCyclicDetach:      0.02,
		CyclicDetachDecays: true,
		CyclicDetachDecay:  seqmodel.DecayingRateModel{Base: 0.01, Initial: 0.1, InitialDecay: 1},
	}
	assert.InDelta(t, 0.11, sm.CyclicDetachAt(0), 1e-12)

	flat := seqmodel.SequencingModel{PCyclicDetach: 0.02}
	assert.Equal(t, 0.02, flat.CyclicDetachAt(5))
}
