package dyeseq

import "fmt"

// DyeTrack is a dense (T x C) grid of dye counts: for each timestep t and
// channel c, the number of still-attached dyes on the remaining peptide if
// every Edman cycle through t succeeded without loss. Built by walking a
// DyeSeq from the C-terminus backward. Immutable, hashable by value.
type DyeTrack struct {
	Counts      []uint32 // row-major, T*C
	NumTimestep int
	NumChannels int
}

// BuildDyeTrack computes the DyeTrack implied by seq for the given number
// of timesteps and channels. Invariant: non-increasing in t, zero-padded
// beyond seq.Len().
func BuildDyeTrack(numTimesteps, numChannels int, seq DyeSeq) DyeTrack {
	dt := DyeTrack{
		Counts:      make([]uint32, numTimesteps*numChannels),
		NumTimestep: numTimesteps,
		NumChannels: numChannels,
	}
	cs := make([]uint32, numChannels)
	for t := seq.Len() - 1; t >= 0; t-- {
		dye := seq.At(t)
		if dye != Gap {
			cs[dye]++
		}
		if t < numTimesteps {
			copy(dt.Counts[t*numChannels:(t+1)*numChannels], cs)
		}
	}
	return dt
}

// At returns the dye count for (t, c).
func (dt DyeTrack) At(t, c int) uint32 {
	return dt.Counts[t*dt.NumChannels+c]
}

// MaxCount returns the largest count over all (t, c), used to size
// Binomial transition tables and tensor shapes.
func (dt DyeTrack) MaxCount() uint32 {
	var m uint32
	for _, v := range dt.Counts {
		if v > m {
			m = v
		}
	}
	return m
}

// Key returns a comparable value usable as a map key for deduplicating
// dye tracks, e.g. when grouping library entries for the pre-filter.
func (dt DyeTrack) Key() string {
	return fmt.Sprintf("%d,%d,%v", dt.NumTimestep, dt.NumChannels, dt.Counts)
}

// Equal reports structural equality.
func (dt DyeTrack) Equal(other DyeTrack) bool {
	if dt.NumTimestep != other.NumTimestep || dt.NumChannels != other.NumChannels {
		return false
	}
	if len(dt.Counts) != len(other.Counts) {
		return false
	}
	for i := range dt.Counts {
		if dt.Counts[i] != other.Counts[i] {
			return false
		}
	}
	return true
}
