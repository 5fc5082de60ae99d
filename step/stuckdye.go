package step

import (
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/onephoton/fluoroseq/statevec"
)

// StuckDyeStep is the two-state analog of Step for the auxiliary dye/no_dye
// HMM that accounts for a dye stuck to the surface rather than to a
// peptide. Its state space never shifts shape, but it still threads the
// shared cycle counter so transitions can advance it.
type StuckDyeStep interface {
	Forward(numEdmans *int, sv *statevec.StuckDyeStateVector)
	Backward(input *statevec.StuckDyeStateVector, numEdmans *int, output *statevec.StuckDyeStateVector)
	ImproveFit(forwardSV, backwardSV, nextBackwardSV *statevec.StuckDyeStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter)
}

// StuckDyeEmission is built once per channel and weighs the dye/no_dye
// states at every timestep of that channel's auxiliary HMM: the dye state
// by the density of one dye on Channel and no dye on every other channel,
// the no_dye state by the density of no dye everywhere.
type StuckDyeEmission struct {
	Channel    int
	Radiometry radiometry.Radiometry
	Channels   []seqmodel.ChannelModel

	dyeWeight, noDyeWeight []float64 // indexed by timestep
}

func NewStuckDyeEmission(channel int, rad radiometry.Radiometry, channels []seqmodel.ChannelModel) *StuckDyeEmission {
	e := &StuckDyeEmission{Channel: channel, Radiometry: rad, Channels: channels}
	e.dyeWeight = make([]float64, rad.NumTimestep)
	e.noDyeWeight = make([]float64, rad.NumTimestep)
	for t := 0; t < rad.NumTimestep; t++ {
		dye, noDye := 1.0, 1.0
		for c, ch := range channels {
			obs := rad.At(t, c)
			if c == channel {
				dye *= ch.PDF(obs, 1)
			} else {
				dye *= ch.PDF(obs, 0)
			}
			noDye *= ch.PDF(obs, 0)
		}
		e.dyeWeight[t] = dye
		e.noDyeWeight[t] = noDye
	}
	return e
}

func (e *StuckDyeEmission) Forward(numEdmans *int, sv *statevec.StuckDyeStateVector) {
	sv.Dye *= e.dyeWeight[*numEdmans]
	sv.NoDye *= e.noDyeWeight[*numEdmans]
}

func (e *StuckDyeEmission) Backward(input *statevec.StuckDyeStateVector, numEdmans *int, output *statevec.StuckDyeStateVector) {
	output.Dye = input.Dye * e.dyeWeight[*numEdmans]
	output.NoDye = input.NoDye * e.noDyeWeight[*numEdmans]
}

// ImproveFit folds the stuck-dye HMM's posterior into the same per-channel
// distribution fitters the peptide HMM feeds, since both describe the same
// observation model.
func (e *StuckDyeEmission) ImproveFit(forwardSV, backwardSV, nextBackwardSV *statevec.StuckDyeStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	pNoDye := forwardSV.NoDye * backwardSV.NoDye / totalProb
	pDye := forwardSV.Dye * backwardSV.Dye / totalProb
	obs := e.Radiometry.At(numEdmans, e.Channel)
	fitter.ChannelFits[e.Channel].DistFit.AddSample(obs, 0, pNoDye)
	fitter.ChannelFits[e.Channel].DistFit.AddSample(obs, 1, pDye)

	pTotal := pNoDye + pDye
	for c := range e.Channels {
		if c == e.Channel {
			continue
		}
		otherObs := e.Radiometry.At(numEdmans, c)
		fitter.ChannelFits[c].DistFit.AddSample(otherObs, 0, pTotal)
	}
}

// StuckDyeTransition moves probability, per cycle, from the dye state to
// the no_dye state at rate PStuckDyeLoss. It never reverses.
type StuckDyeTransition struct {
	Channel       int
	PStuckDyeLoss float64
}

func NewStuckDyeTransition(channel int, pStuckDyeLoss float64) *StuckDyeTransition {
	return &StuckDyeTransition{Channel: channel, PStuckDyeLoss: pStuckDyeLoss}
}

func (t *StuckDyeTransition) Forward(numEdmans *int, sv *statevec.StuckDyeStateVector) {
	lost := sv.Dye * t.PStuckDyeLoss
	sv.Dye -= lost
	sv.NoDye += lost
	*numEdmans++
}

func (t *StuckDyeTransition) Backward(input *statevec.StuckDyeStateVector, numEdmans *int, output *statevec.StuckDyeStateVector) {
	*numEdmans--
	output.Dye = (1-t.PStuckDyeLoss)*input.Dye + t.PStuckDyeLoss*input.NoDye
	output.NoDye = input.NoDye
}

func (t *StuckDyeTransition) ImproveFit(forwardSV, backwardSV, nextBackwardSV *statevec.StuckDyeStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	num := forwardSV.Dye * t.PStuckDyeLoss * nextBackwardSV.NoDye / totalProb
	den := forwardSV.Dye * backwardSV.Dye / totalProb
	cf := fitter.ChannelFits[t.Channel]
	cf.PStuckDyeLossFit.Numerator += num
	cf.PStuckDyeLossFit.Denominator += den
}
