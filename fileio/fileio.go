/*
Package fileio reads and writes the flat text/JSON/CSV formats spec.md §6
defines for this engine's inputs and outputs: the dye-sequence library,
radiometry batches, pre-filter training dye tracks, Baum-Welch fit
settings, and classification results. Grounded in the teacher's
line-oriented bufio.Scanner readers (bio/fasta, bio/genbank) and in
original_source's io/dye_seqs_io.* and io/dye_tracks_io.*: explicit
error returns, no panics on malformed input.
*/
package fileio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/onephoton/fluoroseq/classify"
	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/radiometry"
)

// LibraryDyeSeq is one record of the dye-sequences file: a candidate
// peptide's dye sequence, its peptide multiplicity, and its library id.
type LibraryDyeSeq struct {
	Seq   dyeseq.DyeSeq
	Count int
	ID    int
}

// SourceCount names one library dye sequence a training DyeTrack was
// built from, with its multiplicity and hit count in that source.
type SourceCount struct {
	ID    int
	Count int
	Hits  int
}

// LibraryDyeTrack is one record of the pre-filter's training file: a
// DyeTrack plus the library dye sequences it was built from.
type LibraryDyeTrack struct {
	Track   dyeseq.DyeTrack
	Sources []SourceCount
}

// RadiometrySet is a batch of radiometries sharing one (T, C) shape,
// the layout the radiometries file stores.
type RadiometrySet struct {
	NumTimesteps int
	NumChannels  int
	Radiometries []radiometry.Radiometry
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

func nextLine(scanner *bufio.Scanner) (string, bool) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return line, true
	}
	return "", false
}

// ReadDyeSeqs parses the dye-sequences file format of spec.md §6: a
// channel-count line, a record-count line, then one "seq multiplicity
// library_id" record per line.
func ReadDyeSeqs(r io.Reader, numChannels int) ([]LibraryDyeSeq, error) {
	scanner := newScanner(r)

	header, ok := nextLine(scanner)
	if !ok {
		return nil, fmt.Errorf("fileio: dye-seqs file is empty")
	}
	declaredChannels, err := strconv.Atoi(header)
	if err != nil {
		return nil, fmt.Errorf("fileio: dye-seqs channel count: %w", err)
	}
	if declaredChannels != numChannels {
		return nil, fmt.Errorf("fileio: dye-seqs file declares %d channels, model has %d", declaredChannels, numChannels)
	}

	countLine, ok := nextLine(scanner)
	if !ok {
		return nil, fmt.Errorf("fileio: dye-seqs file missing record count")
	}
	n, err := strconv.Atoi(countLine)
	if err != nil {
		return nil, fmt.Errorf("fileio: dye-seqs record count: %w", err)
	}

	out := make([]LibraryDyeSeq, 0, n)
	for i := 0; i < n; i++ {
		line, ok := nextLine(scanner)
		if !ok {
			return nil, fmt.Errorf("fileio: dye-seqs file truncated at record %d of %d", i, n)
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("fileio: dye-seqs record %d: expected 3 fields, got %d", i, len(fields))
		}
		seq, err := dyeseq.New(numChannels, fields[0])
		if err != nil {
			return nil, fmt.Errorf("fileio: dye-seqs record %d: %w", i, err)
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("fileio: dye-seqs record %d multiplicity: %w", i, err)
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("fileio: dye-seqs record %d library id: %w", i, err)
		}
		out = append(out, LibraryDyeSeq{Seq: seq, Count: count, ID: id})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fileio: reading dye-seqs file: %w", err)
	}
	return out, nil
}

// ReadRadiometries parses the radiometries file: a "T C R" header line,
// then R*T*C whitespace-separated doubles in radiometry-major,
// timestep-major order.
func ReadRadiometries(r io.Reader) (*RadiometrySet, error) {
	scanner := newScanner(r)
	scanner.Split(bufio.ScanWords)

	readInt := func(what string) (int, error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("fileio: radiometries file missing %s", what)
		}
		v, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return 0, fmt.Errorf("fileio: radiometries %s: %w", what, err)
		}
		return v, nil
	}

	numTimesteps, err := readInt("timestep count")
	if err != nil {
		return nil, err
	}
	numChannels, err := readInt("channel count")
	if err != nil {
		return nil, err
	}
	numRadiometries, err := readInt("radiometry count")
	if err != nil {
		return nil, err
	}

	set := &RadiometrySet{NumTimesteps: numTimesteps, NumChannels: numChannels}
	stride := numTimesteps * numChannels
	for i := 0; i < numRadiometries; i++ {
		values := make([]float64, stride)
		for j := 0; j < stride; j++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("fileio: radiometries file truncated in radiometry %d", i)
			}
			v, err := strconv.ParseFloat(scanner.Text(), 64)
			if err != nil {
				return nil, fmt.Errorf("fileio: radiometries file radiometry %d value %d: %w", i, j, err)
			}
			values[j] = v
		}
		rad, err := radiometry.New(numTimesteps, numChannels, values)
		if err != nil {
			return nil, fmt.Errorf("fileio: radiometries file radiometry %d: %w", i, err)
		}
		set.Radiometries = append(set.Radiometries, rad)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fileio: reading radiometries file: %w", err)
	}
	return set, nil
}

// ReadDyeTracks parses the pre-filter training file: a "T C M" header,
// then M records of T*C counts followed by a variable-length source
// list (num_sources, then (id, count, hits) per source).
func ReadDyeTracks(r io.Reader) ([]LibraryDyeTrack, error) {
	scanner := newScanner(r)
	scanner.Split(bufio.ScanWords)

	readInt := func(what string) (int, error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("fileio: dye-tracks file missing %s", what)
		}
		v, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return 0, fmt.Errorf("fileio: dye-tracks %s: %w", what, err)
		}
		return v, nil
	}

	numTimesteps, err := readInt("timestep count")
	if err != nil {
		return nil, err
	}
	numChannels, err := readInt("channel count")
	if err != nil {
		return nil, err
	}
	numTracks, err := readInt("record count")
	if err != nil {
		return nil, err
	}

	stride := numTimesteps * numChannels
	out := make([]LibraryDyeTrack, 0, numTracks)
	for i := 0; i < numTracks; i++ {
		counts := make([]uint32, stride)
		for j := 0; j < stride; j++ {
			v, err := readInt(fmt.Sprintf("dye-track %d count %d", i, j))
			if err != nil {
				return nil, err
			}
			counts[j] = uint32(v)
		}
		track := dyeseq.DyeTrack{Counts: counts, NumTimestep: numTimesteps, NumChannels: numChannels}

		numSources, err := readInt(fmt.Sprintf("dye-track %d source count", i))
		if err != nil {
			return nil, err
		}
		sources := make([]SourceCount, numSources)
		for j := 0; j < numSources; j++ {
			id, err := readInt(fmt.Sprintf("dye-track %d source %d id", i, j))
			if err != nil {
				return nil, err
			}
			count, err := readInt(fmt.Sprintf("dye-track %d source %d count", i, j))
			if err != nil {
				return nil, err
			}
			hits, err := readInt(fmt.Sprintf("dye-track %d source %d hits", i, j))
			if err != nil {
				return nil, err
			}
			sources[j] = SourceCount{ID: id, Count: count, Hits: hits}
		}
		out = append(out, LibraryDyeTrack{Track: track, Sources: sources})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fileio: reading dye-tracks file: %w", err)
	}
	return out, nil
}

// fitSettingsDocument mirrors the fit-settings JSON document of
// spec.md §6. Missing boolean fields default to false, which
// encoding/json already does for zero-valued struct fields.
type fitSettingsDocument struct {
	HoldPEdmanFailure       bool   `json:"hold_p_edman_failure"`
	HoldPDetach             bool   `json:"hold_p_detach"`
	HoldPInitialDetach      bool   `json:"hold_p_initial_detach"`
	HoldPInitialDetachDecay bool   `json:"hold_p_initial_detach_decay"`
	HoldPInitialBlock       bool   `json:"hold_p_initial_block"`
	HoldPCyclicBlock        bool   `json:"hold_p_cyclic_block"`
	HoldPBleach             []bool `json:"hold_p_bleach"`
	HoldPDud                []bool `json:"hold_p_dud"`
}

// ReadFitSettings decodes the fit-settings JSON document.
func ReadFitSettings(r io.Reader) (fit.Settings, error) {
	var doc fitSettingsDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fit.Settings{}, fmt.Errorf("fileio: decoding fit settings: %w", err)
	}
	return fit.Settings{
		HoldPEdmanFailure:       doc.HoldPEdmanFailure,
		HoldPDetach:             doc.HoldPDetach,
		HoldPInitialDetach:      doc.HoldPInitialDetach,
		HoldPInitialDetachDecay: doc.HoldPInitialDetachDecay,
		HoldPInitialBlock:       doc.HoldPInitialBlock,
		HoldPCyclicBlock:        doc.HoldPCyclicBlock,
		HoldPBleach:             doc.HoldPBleach,
		HoldPDud:                doc.HoldPDud,
	}, nil
}

// WriteResultsCSV writes the classification results CSV of spec.md §6:
// header radmat_iz,best_pep_iz,best_pep_score, one row per radiometry,
// with best_pep_score formatted at full float64 precision.
func WriteResultsCSV(w io.Writer, results []classify.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"radmat_iz", "best_pep_iz", "best_pep_score"}); err != nil {
		return fmt.Errorf("fileio: writing results header: %w", err)
	}
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.RadiometryIndex),
			strconv.Itoa(r.BestID),
			strconv.FormatFloat(r.BestScore, 'g', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("fileio: writing result row %d: %w", r.RadiometryIndex, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("fileio: flushing results CSV: %w", err)
	}
	return nil
}
