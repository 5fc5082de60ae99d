package knn_test

import (
	"testing"

	"github.com/onephoton/fluoroseq/classify/knn"
	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneChannelModel() []seqmodel.ChannelModel {
	return []seqmodel.ChannelModel{{Mu: 1.0, Sigma: 0.1, BgSigma: 0.01}}
}

func track(counts ...uint32) dyeseq.DyeTrack {
	return dyeseq.DyeTrack{Counts: counts, NumTimestep: len(counts), NumChannels: 1}
}

// The nearest training track by squared distance wins, and its source
// id receives the full aggregated score when it is the only neighbor
// considered.
func TestPreFilterPicksNearestTrack(t *testing.T) {
	tracks := []knn.TrainingTrack{
		{Track: track(1), Sources: []knn.SourceCount{{ID: 1, Count: 1}}},
		{Track: track(0), Sources: []knn.SourceCount{{ID: 2, Count: 1}}},
	}
	c := knn.New(1, 1, oneChannelModel(), 1, tracks)

	rad, err := radiometry.New(1, 1, []float64{1.0})
	require.NoError(t, err)

	result := c.PreFilter(rad, 5)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 1, result.Candidates[0].ID)
	assert.Equal(t, result.Total, result.Candidates[0].Score)
}

// h truncates the returned short list but not the aggregated total,
// which is computed over every neighbor examined.
func TestPreFilterTruncatesToShortListSizeButKeepsFullTotal(t *testing.T) {
	tracks := []knn.TrainingTrack{
		{Track: track(1), Sources: []knn.SourceCount{{ID: 1, Count: 1}}},
		{Track: track(1), Sources: []knn.SourceCount{{ID: 2, Count: 1}}},
		{Track: track(1), Sources: []knn.SourceCount{{ID: 3, Count: 1}}},
	}
	c := knn.New(1, 1, oneChannelModel(), 3, tracks)

	rad, err := radiometry.New(1, 1, []float64{1.0})
	require.NoError(t, err)

	result := c.PreFilter(rad, 2)
	assert.Len(t, result.Candidates, 2)
	var sum float64
	for _, cand := range result.Candidates {
		sum += cand.Score
	}
	assert.Less(t, sum, result.Total)
}

// Two sources sharing one nearest track both receive a score
// proportional to their own library count.
func TestPreFilterAggregatesSharedTrackByCount(t *testing.T) {
	tracks := []knn.TrainingTrack{
		{Track: track(1), Sources: []knn.SourceCount{{ID: 1, Count: 1}, {ID: 2, Count: 3}}},
	}
	c := knn.New(1, 1, oneChannelModel(), 1, tracks)

	rad, err := radiometry.New(1, 1, []float64{1.0})
	require.NoError(t, err)

	result := c.PreFilter(rad, 5)
	require.Len(t, result.Candidates, 2)
	scores := map[int]float64{}
	for _, cand := range result.Candidates {
		scores[cand.ID] = cand.Score
	}
	assert.InDelta(t, 3*scores[1], scores[2], 1e-9)
}

func TestPreFilterEmptyTrainingSetReturnsNoCandidates(t *testing.T) {
	c := knn.New(1, 1, oneChannelModel(), 3, nil)
	rad, err := radiometry.New(1, 1, []float64{1.0})
	require.NoError(t, err)

	result := c.PreFilter(rad, 5)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 0.0, result.Total)
}
