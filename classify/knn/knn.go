/*
Package knn implements classify.PreFilter as a k-weighted nearest-neighbors
pre-filter over a library of training dye tracks.
Grounded in original_source's kwann_classifier.cc: brute-force k-nearest
neighbors by squared Euclidean distance between an observed radiometry
and each training DyeTrack's expected intensities (mu*count per cell),
then a count-weighted emission density vote among the k neighbors'
source dye sequences.
*/
package knn

import (
	"sort"

	"github.com/onephoton/fluoroseq/classify"
	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
)

// SourceCount names one library dye sequence a training DyeTrack was
// built from, with its multiplicity in that source.
type SourceCount struct {
	ID    int
	Count int
}

// TrainingTrack is one row of the pre-filter's training set: a DyeTrack
// and the library dye sequences that produce it.
type TrainingTrack struct {
	Track   dyeseq.DyeTrack
	Sources []SourceCount
}

// Classifier is a brute-force k-nearest-neighbors pre-filter. It is not
// the FLANN-backed approximate index the original engine uses; an exact
// brute-force scan is simple, deterministic, and fast enough at the
// library sizes this package is exercised against, and it satisfies the
// same classify.PreFilter contract either way.
type Classifier struct {
	NumTimesteps int
	NumChannels  int
	Channels     []seqmodel.ChannelModel
	K            int

	tracks []TrainingTrack
}

// New builds a pre-filter over tracks, weighing neighbors by channels'
// emission density (mu*count against the observed intensity) and
// returning up to k nearest neighbors per query.
func New(numTimesteps, numChannels int, channels []seqmodel.ChannelModel, k int, tracks []TrainingTrack) *Classifier {
	return &Classifier{
		NumTimesteps: numTimesteps,
		NumChannels:  numChannels,
		Channels:     channels,
		K:            k,
		tracks:       tracks,
	}
}

type neighbor struct {
	index  int
	distSq float64
}

// squaredDistance computes Σ_t,c (radiometry[t,c] - mu_c*count[t,c])².
func (c *Classifier) squaredDistance(rad radiometry.Radiometry, track dyeseq.DyeTrack) float64 {
	var sum float64
	for t := 0; t < c.NumTimesteps; t++ {
		for ch := 0; ch < c.NumChannels; ch++ {
			expected := c.Channels[ch].Mu * float64(track.At(t, ch))
			diff := rad.At(t, ch) - expected
			sum += diff * diff
		}
	}
	return sum
}

// weight is the product, across every (timestep, channel) cell, of the
// emission density of the observed intensity given that cell's dye
// count: the same weighting kwann_classifier.cc's pdf callback supplies.
func (c *Classifier) weight(rad radiometry.Radiometry, track dyeseq.DyeTrack) float64 {
	w := 1.0
	for t := 0; t < c.NumTimesteps; t++ {
		for ch := 0; ch < c.NumChannels; ch++ {
			w *= c.Channels[ch].PDF(rad.At(t, ch), int(track.At(t, ch)))
		}
	}
	return w
}

// PreFilter implements classify.PreFilter: find the k training tracks
// nearest rad, weight each by emission density, aggregate weighted
// scores by source dye-sequence id, and return the top h ids by score
// plus the full aggregated total (used by the hybrid classifier to
// rescale the HMM's short-list denominator back up).
func (c *Classifier) PreFilter(rad radiometry.Radiometry, h int) classify.PreFilterResult {
	if len(c.tracks) == 0 {
		return classify.PreFilterResult{}
	}

	k := c.K
	if k > len(c.tracks) {
		k = len(c.tracks)
	}

	neighbors := make([]neighbor, len(c.tracks))
	for i, tr := range c.tracks {
		neighbors[i] = neighbor{index: i, distSq: c.squaredDistance(rad, tr.Track)}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].distSq < neighbors[j].distSq })
	neighbors = neighbors[:k]

	scores := make(map[int]float64)
	for _, n := range neighbors {
		tr := c.tracks[n.index]
		w := c.weight(rad, tr.Track)
		for _, src := range tr.Sources {
			scores[src.ID] += w * float64(src.Count)
		}
	}

	candidates := make([]classify.PreFilterCandidate, 0, len(scores))
	var total float64
	for id, score := range scores {
		total += score
		candidates = append(candidates, classify.PreFilterCandidate{ID: id, Score: score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if h > 0 && h < len(candidates) {
		candidates = candidates[:h]
	}

	return classify.PreFilterResult{Candidates: candidates, Total: total}
}
