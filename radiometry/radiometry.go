/*
Package radiometry holds Radiometry, the per-cycle, per-channel intensity
grid measured off a single molecule.
*/
package radiometry

import "fmt"

// Radiometry is a (T x C) grid of measured intensities. Set is its only
// mutator.
type Radiometry struct {
	Values      []float64 // row-major, T*C
	NumTimestep int
	NumChannels int
}

// New builds a Radiometry from a flat row-major slice of length T*C.
func New(numTimesteps, numChannels int, values []float64) (Radiometry, error) {
	if len(values) != numTimesteps*numChannels {
		return Radiometry{}, fmt.Errorf("radiometry: expected %d values for a %dx%d grid, got %d",
			numTimesteps*numChannels, numTimesteps, numChannels, len(values))
	}
	return Radiometry{
		Values:      values,
		NumTimestep: numTimesteps,
		NumChannels: numChannels,
	}, nil
}

// At returns the measured intensity at cycle t, channel c.
func (r Radiometry) At(t, c int) float64 {
	return r.Values[t*r.NumChannels+c]
}

// Row returns the C measured intensities at cycle t, without copying.
func (r Radiometry) Row(t int) []float64 {
	return r.Values[t*r.NumChannels : (t+1)*r.NumChannels]
}

// Set overwrites the intensity at cycle t, channel c in place, in the
// backing slice shared by every copy of this Radiometry.
func (r Radiometry) Set(t, c int, v float64) {
	r.Values[t*r.NumChannels+c] = v
}
