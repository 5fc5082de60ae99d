/*
Package seqmodel holds the probabilistic model parameters shared by every
HMM step: per-cycle error rates, per-channel emission statistics, and the
optional decaying-rate law used for cyclic detach/break-N probabilities.
*/
package seqmodel

import "math"

// DecayingRateModel computes a per-cycle rate that starts near base+initial
// and relaxes toward base as the cycle index grows, per
// rate(i) = base + initial*exp(-i*initial_decay).
type DecayingRateModel struct {
	Base         float64
	Initial      float64
	InitialDecay float64
}

// Rate returns the decaying rate at cycle i.
func (m DecayingRateModel) Rate(i int) float64 {
	return m.Base + m.Initial*math.Exp(-float64(i)*m.InitialDecay)
}

// Distance returns the largest per-parameter absolute difference between
// two models, used by fit convergence checks.
func (m DecayingRateModel) Distance(other DecayingRateModel) float64 {
	d := math.Abs(m.Base - other.Base)
	d = math.Max(d, math.Abs(m.Initial-other.Initial))
	d = math.Max(d, math.Abs(m.InitialDecay-other.InitialDecay))
	return d
}

// ChannelModel holds the per-channel error rates and observation
// distribution parameters for one dye channel.
type ChannelModel struct {
	PDud            float64
	PInitialBleach  float64
	PCyclicBleach   float64
	PStuckDyeLoss   float64
	StuckDyeRatio   float64
	Mu              float64
	Sigma           float64
	BgSigma         float64
	LogNormal       bool
}

// SigmaAt returns the observation standard deviation for d attached dyes:
// the background noise floor when d == 0, otherwise sigma scaled by
// sqrt(d) (independent per-dye photon noise accumulates additively).
func (c ChannelModel) SigmaAt(d int) float64 {
	if d == 0 {
		return c.BgSigma
	}
	return c.Sigma * math.Sqrt(float64(d))
}

// PDF evaluates the observation density at intensity x given d attached
// dyes: a normal density centered at d*mu with standard deviation
// SigmaAt(d). When LogNormal is set, the density of ln(x) is evaluated
// instead (0 for x <= 0).
func (c ChannelModel) PDF(x float64, d int) float64 {
	if c.LogNormal {
		if x <= 0 {
			return 0
		}
		return normalPDF(math.Log(x), float64(d)*c.Mu, c.SigmaAt(d))
	}
	return normalPDF(x, float64(d)*c.Mu, c.SigmaAt(d))
}

func normalPDF(x, mean, stddev float64) float64 {
	z := (x - mean) / stddev
	return math.Exp(-0.5*z*z) / (stddev * math.Sqrt2 * math.SqrtPi)
}

// SequencingModel bundles the global error rates with one ChannelModel per
// dye channel. Immutable; fitters produce new instances via get().
type SequencingModel struct {
	PEdmanFailure float64

	// Detach and break-N rates are either constant or decaying; exactly
	// one representation is populated per parameter, selected by the
	// corresponding Decaying* flag.
	PInitialDetach      float64
	PCyclicDetach       float64
	CyclicDetachDecays  bool
	CyclicDetachDecay   DecayingRateModel

	PInitialBreakN     float64
	PCyclicBreakN      float64
	CyclicBreakNDecays bool
	CyclicBreakNDecay  DecayingRateModel

	Channels []ChannelModel
}

// CyclicDetachAt returns the cyclic detach rate at cycle i, honoring the
// decaying-rate override when present.
func (m SequencingModel) CyclicDetachAt(i int) float64 {
	if m.CyclicDetachDecays {
		return m.CyclicDetachDecay.Rate(i)
	}
	return m.PCyclicDetach
}

// CyclicBreakNAt returns the cyclic broken-N rate at cycle i, honoring the
// decaying-rate override when present.
func (m SequencingModel) CyclicBreakNAt(i int) float64 {
	if m.CyclicBreakNDecays {
		return m.CyclicBreakNDecay.Rate(i)
	}
	return m.PCyclicBreakN
}

// NumChannels returns the number of per-channel models.
func (m SequencingModel) NumChannels() int { return len(m.Channels) }
