package fileio_test

import (
	"strings"
	"testing"

	"github.com/onephoton/fluoroseq/classify"
	"github.com/onephoton/fluoroseq/fileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDyeSeqsParsesRecords(t *testing.T) {
	input := "2\n3\n10.01111 2 5\n0 1 6\n. 1 7\n"
	seqs, err := fileio.ReadDyeSeqs(strings.NewReader(input), 2)
	require.NoError(t, err)
	require.Len(t, seqs, 3)

	assert.Equal(t, "10.01111", seqs[0].Seq.String())
	assert.Equal(t, 2, seqs[0].Count)
	assert.Equal(t, 5, seqs[0].ID)

	assert.Equal(t, "0", seqs[1].Seq.String())
	assert.Equal(t, 0, seqs[2].Seq.Len()) // trailing-gap-only sequence trims to empty
}

func TestReadDyeSeqsRejectsChannelMismatch(t *testing.T) {
	input := "1\n1\n0 1 1\n"
	_, err := fileio.ReadDyeSeqs(strings.NewReader(input), 2)
	assert.Error(t, err)
}

func TestReadDyeSeqsRejectsOutOfRangeChannel(t *testing.T) {
	input := "1\n1\n5 1 1\n"
	_, err := fileio.ReadDyeSeqs(strings.NewReader(input), 1)
	assert.Error(t, err)
}

func TestReadRadiometriesParsesHeaderAndGrid(t *testing.T) {
	input := "2 1 2\n1.0\n2.0\n3.0\n4.0\n"
	set, err := fileio.ReadRadiometries(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, set.Radiometries, 2)
	assert.Equal(t, 1.0, set.Radiometries[0].At(0, 0))
	assert.Equal(t, 2.0, set.Radiometries[0].At(1, 0))
	assert.Equal(t, 3.0, set.Radiometries[1].At(0, 0))
	assert.Equal(t, 4.0, set.Radiometries[1].At(1, 0))
}

func TestReadRadiometriesRejectsTruncatedInput(t *testing.T) {
	input := "2 1 1\n1.0\n"
	_, err := fileio.ReadRadiometries(strings.NewReader(input))
	assert.Error(t, err)
}

func TestReadDyeTracksParsesVariableSourceLists(t *testing.T) {
	input := "1 1 2\n3\n2 1 5 2 3 7 0\n0\n0\n"
	tracks, err := fileio.ReadDyeTracks(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.EqualValues(t, 3, tracks[0].Track.At(0, 0))
	require.Len(t, tracks[0].Sources, 2)
	assert.Equal(t, fileio.SourceCount{ID: 1, Count: 5, Hits: 2}, tracks[0].Sources[0])
	assert.Equal(t, fileio.SourceCount{ID: 3, Count: 7, Hits: 0}, tracks[0].Sources[1])

	assert.EqualValues(t, 0, tracks[1].Track.At(0, 0))
	assert.Empty(t, tracks[1].Sources)
}

func TestReadFitSettingsDefaultsMissingFieldsToFalse(t *testing.T) {
	input := `{"hold_p_edman_failure": true, "hold_p_bleach": [true, false]}`
	settings, err := fileio.ReadFitSettings(strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, settings.HoldPEdmanFailure)
	assert.False(t, settings.HoldPDetach)
	assert.Equal(t, []bool{true, false}, settings.HoldPBleach)
}

func TestWriteResultsCSVFormatsFullPrecision(t *testing.T) {
	var buf strings.Builder
	results := []classify.Result{
		{RadiometryIndex: 0, BestID: 7, BestScore: 1.876822091893613e-96},
		{RadiometryIndex: 1, BestID: -1, BestScore: 0},
	}
	require.NoError(t, fileio.WriteResultsCSV(&buf, results))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "radmat_iz,best_pep_iz,best_pep_score", lines[0])
	assert.Equal(t, "0,7,1.876822091893613e-96", lines[1])
	assert.Equal(t, "1,-1,0", lines[2])
}
