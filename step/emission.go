package step

import (
	"math"

	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/kdrange"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/onephoton/fluoroseq/statevec"
	"github.com/onephoton/fluoroseq/tensor"
)

// PeptideEmission multiplies every tensor cell at one timestep by the
// product, across channels, of that channel's observation density at the
// cell's dye count. Precomputes prob(c, d) for d in [0, maxNumDyes] and
// prunes each channel's axis to the contiguous band the distribution
// cutoff k allows.
type PeptideEmission struct {
	Timestep   int
	Radiometry radiometry.Radiometry
	Channels   []seqmodel.ChannelModel
	K          float64 // distribution cutoff; +Inf disables pruning.
	MaxNumDyes int

	probTable        [][]float64 // probTable[c][d]
	detachedEmission float64
	PrunedRange      kdrange.KDRange
	allowDetached    bool
}

// NewPeptideEmission precomputes the per-channel emission table for one
// timestep, and the band each channel's axis is restricted to: axis 0 is
// clamped to [0, t+1) since no more than t Edmans can have happened by
// timestep t, and each channel axis to the d*mu +/- k*sigma(d) band the
// distribution cutoff allows.
func NewPeptideEmission(t int, rad radiometry.Radiometry, channels []seqmodel.ChannelModel, k float64, maxNumDyes int) *PeptideEmission {
	e := &PeptideEmission{Timestep: t, Radiometry: rad, Channels: channels, K: k, MaxNumDyes: maxNumDyes}
	e.probTable = make([][]float64, len(channels))
	e.detachedEmission = 1
	for c, ch := range channels {
		row := make([]float64, maxNumDyes+1)
		obs := rad.At(t, c)
		for d := 0; d <= maxNumDyes; d++ {
			row[d] = ch.PDF(obs, d)
		}
		e.probTable[c] = row
		e.detachedEmission *= row[0]
	}

	e.PrunedRange = kdrange.KDRange{
		Min: make([]uint32, 1+len(channels)),
		Max: make([]uint32, 1+len(channels)),
	}
	e.PrunedRange.Max[0] = uint32(t + 1)
	for c := range channels {
		dMin, dMax := e.band(c)
		e.PrunedRange.Min[1+c] = uint32(dMin)
		e.PrunedRange.Max[1+c] = uint32(dMax)
	}
	return e
}

func (e *PeptideEmission) band(c int) (int, int) {
	ch := e.Channels[c]
	obs := e.Radiometry.At(e.Timestep, c)
	if math.IsInf(e.K, 1) {
		return 0, e.MaxNumDyes + 1
	}
	dMin := e.MaxNumDyes + 1
	for d := 0; d < e.MaxNumDyes; d++ {
		if float64(d)*ch.Mu+e.K*ch.SigmaAt(d) > obs {
			dMin = d
			break
		}
	}
	dMax := e.MaxNumDyes + 1
	for d := dMin; d < e.MaxNumDyes; d++ {
		if float64(d)*ch.Mu-e.K*ch.SigmaAt(d) > obs {
			dMax = d
			break
		}
	}
	return dMin, dMax
}

func (e *PeptideEmission) prune(r *kdrange.KDRange, allowDetached *bool) {
	e.PrunedRange = e.PrunedRange.Intersect(*r)
	*r = e.PrunedRange.Clone()
	e.allowDetached = e.PrunedRange.IncludesZero()
	*allowDetached = e.allowDetached
}

func (e *PeptideEmission) PruneForward(r *kdrange.KDRange, allowDetached *bool) {
	e.prune(r, allowDetached)
}

func (e *PeptideEmission) PruneBackward(r *kdrange.KDRange, allowDetached *bool) {
	e.prune(r, allowDetached)
}

func (e *PeptideEmission) weight(loc []uint32) float64 {
	w := 1.0
	for c := range e.Channels {
		w *= e.probTable[c][loc[1+c]]
	}
	return w
}

func (e *PeptideEmission) Forward(numEdmans *int, psv *statevec.PeptideStateVector) {
	it := psv.Main.Iterator(e.PrunedRange)
	for !it.Done() {
		w := e.weight(it.Loc)
		i := it.Index()
		psv.Main.Values[i] *= w
		psv.BrokenN.Values[i] *= w
		it.Advance()
	}
	psv.Range = e.PrunedRange.Clone()
	psv.AllowDetached = e.allowDetached
	if psv.AllowDetached {
		psv.PDetached *= e.detachedEmission
	}
}

func (e *PeptideEmission) Backward(input *statevec.PeptideStateVector, numEdmans *int, output *statevec.PeptideStateVector) {
	output.Main = tensor.NewShape(input.Main.Shape)
	output.BrokenN = tensor.NewShape(input.BrokenN.Shape)
	output.Range = e.PrunedRange.Clone()
	output.AllowDetached = e.allowDetached

	it := output.Main.Iterator(e.PrunedRange)
	for !it.Done() {
		w := e.weight(it.Loc)
		i := it.Index()
		output.Main.Values[i] = input.Main.Values[i] * w
		output.BrokenN.Values[i] = input.BrokenN.Values[i] * w
		it.Advance()
	}
	if output.AllowDetached {
		output.PDetached = input.PDetached * e.detachedEmission
	}
}

// ImproveFit adds a posterior-weighted (intensity, dyeCount, weight) sample
// to each channel's distribution fitter for every live cell, plus a
// dyeCount=0 sample for the detached scalar.
func (e *PeptideEmission) ImproveFit(forwardPSV, backwardPSV, nextBackwardPSV *statevec.PeptideStateVector, numEdmans int, totalProb float64, fitter *fit.SequencingModelFitter) {
	it := forwardPSV.Main.Iterator(e.PrunedRange)
	for !it.Done() {
		i := it.Index()
		post := forwardPSV.Main.Values[i] * backwardPSV.Main.Values[i] / totalProb
		for c := range e.Channels {
			d := int(it.Loc[1+c])
			obs := e.Radiometry.At(e.Timestep, c)
			fitter.ChannelFits[c].DistFit.AddSample(obs, d, post)
		}
		it.Advance()
	}
	if e.allowDetached {
		post := forwardPSV.PDetached * backwardPSV.PDetached / totalProb
		for c := range e.Channels {
			obs := e.Radiometry.At(e.Timestep, c)
			fitter.ChannelFits[c].DistFit.AddSample(obs, 0, post)
		}
	}
}
