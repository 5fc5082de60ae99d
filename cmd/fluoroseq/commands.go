package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/onephoton/fluoroseq/classify"
	"github.com/onephoton/fluoroseq/classify/knn"
	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/fileio"
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
	"github.com/urfave/cli/v2"
)

// Flags across subcommands, per spec.md §6: -k (nearest-neighbor
// count), -h (short-list size), -sig (distribution cutoff, 0 means "no
// pruning", mapped to +Inf internally), -model, -dye-seqs,
// -radiometries, -dye-tracks, -fit-settings, -o.

func classifyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "model", Required: true, Usage: "Path to a SequencingModel JSON file."},
		&cli.StringFlag{Name: "dye-seqs", Required: true, Usage: "Path to the dye-sequences library file."},
		&cli.StringFlag{Name: "radiometries", Required: true, Usage: "Path to the radiometries file."},
		&cli.Float64Flag{Name: "sig", Value: 0, Usage: "Distribution cutoff; 0 means no pruning."},
		&cli.StringFlag{Name: "o", Required: true, Usage: "Output CSV path."},
	}
}

func knnFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "dye-tracks", Required: true, Usage: "Path to the pre-filter training dye-tracks file."},
		&cli.IntFlag{Name: "k", Value: 10, Usage: "Nearest-neighbor count."},
		&cli.IntFlag{Name: "h", Value: 5, Usage: "Short-list size."},
	}
}

func fitFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "model", Required: true, Usage: "Path to a SequencingModel JSON file."},
		&cli.StringFlag{Name: "dye-seqs", Required: true, Usage: "Path to the dye-sequences library file."},
		&cli.StringFlag{Name: "radiometries", Required: true, Usage: "Path to the radiometries file."},
		&cli.StringFlag{Name: "fit-settings", Usage: "Path to the fit-settings JSON file. Omit to hold nothing fixed."},
		&cli.Float64Flag{Name: "sig", Value: 0, Usage: "Distribution cutoff; 0 means no pruning."},
		&cli.StringFlag{Name: "o", Required: true, Usage: "Output path for the updated SequencingModel JSON."},
	}
}

func simulateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "model", Required: true, Usage: "Path to a SequencingModel JSON file."},
		&cli.StringFlag{Name: "dye-seqs", Required: true, Usage: "Path to the dye-sequences library file."},
		&cli.IntFlag{Name: "t", Required: true, Usage: "Number of timesteps to simulate."},
		&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Random seed."},
		&cli.StringFlag{Name: "o", Required: true, Usage: "Output radiometries path."},
	}
}

// distCutoff maps the -sig flag's "0 means no pruning" convention to
// the internal +Inf sentinel band() treats as unbounded.
func distCutoff(c *cli.Context) float64 {
	if v := c.Float64("sig"); v > 0 {
		return v
	}
	return math.Inf(1)
}

func readModel(path string) (seqmodel.SequencingModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return seqmodel.SequencingModel{}, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	var model seqmodel.SequencingModel
	if err := json.NewDecoder(f).Decode(&model); err != nil {
		return seqmodel.SequencingModel{}, fmt.Errorf("decoding model file: %w", err)
	}
	return model, nil
}

func writeModel(path string, model seqmodel.SequencingModel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating model output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(model)
}

func readLibrary(path string, numChannels int) ([]fileio.LibraryDyeSeq, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dye-seqs file: %w", err)
	}
	defer f.Close()
	return fileio.ReadDyeSeqs(f, numChannels)
}

func readRadiometries(path string) (*fileio.RadiometrySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening radiometries file: %w", err)
	}
	defer f.Close()
	return fileio.ReadRadiometries(f)
}

func writeResults(path string, results []classify.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()
	return fileio.WriteResultsCSV(f, results)
}

func toCandidates(library []fileio.LibraryDyeSeq) []classify.Candidate {
	candidates := make([]classify.Candidate, len(library))
	for i, l := range library {
		candidates[i] = classify.Candidate{ID: l.ID, Count: l.Count, Seq: l.Seq}
	}
	return candidates
}

// classifyHMMCommand classifies every radiometry against the full
// library using only the HMM engine: no pre-filter configured.
func classifyHMMCommand(c *cli.Context) error {
	model, err := readModel(c.String("model"))
	if err != nil {
		return err
	}
	library, err := readLibrary(c.String("dye-seqs"), model.NumChannels())
	if err != nil {
		return err
	}
	set, err := readRadiometries(c.String("radiometries"))
	if err != nil {
		return err
	}

	classifier := classify.NewClassifier(set.NumTimesteps, set.NumChannels, model, distCutoff(c), toCandidates(library))
	return writeResults(c.String("o"), classifier.ClassifyAll(set.Radiometries))
}

func readTrainingTracks(path string) ([]knn.TrainingTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dye-tracks file: %w", err)
	}
	defer f.Close()
	records, err := fileio.ReadDyeTracks(f)
	if err != nil {
		return nil, err
	}
	tracks := make([]knn.TrainingTrack, len(records))
	for i, r := range records {
		sources := make([]knn.SourceCount, len(r.Sources))
		for j, s := range r.Sources {
			sources[j] = knn.SourceCount{ID: s.ID, Count: s.Count}
		}
		tracks[i] = knn.TrainingTrack{Track: r.Track, Sources: sources}
	}
	return tracks, nil
}

// classifyANNCommand classifies using only the k-NN pre-filter's top
// choice, skipping HMM refinement entirely; exists for speed/debugging
// per spec.md's pre-filter contract.
func classifyANNCommand(c *cli.Context) error {
	model, err := readModel(c.String("model"))
	if err != nil {
		return err
	}
	set, err := readRadiometries(c.String("radiometries"))
	if err != nil {
		return err
	}
	tracks, err := readTrainingTracks(c.String("dye-tracks"))
	if err != nil {
		return err
	}

	pf := knn.New(set.NumTimesteps, set.NumChannels, model.Channels, c.Int("k"), tracks)
	results := make([]classify.Result, len(set.Radiometries))
	for i, rad := range set.Radiometries {
		pfr := pf.PreFilter(rad, 1)
		result := classify.Result{RadiometryIndex: i, BestID: -1}
		if len(pfr.Candidates) > 0 {
			result.BestID = pfr.Candidates[0].ID
			result.BestScore = pfr.Candidates[0].Score
		}
		results[i] = result
	}
	return writeResults(c.String("o"), results)
}

// classifyHybridCommand runs the full §4.11 hybrid pipeline: a k-NN
// short list of size h feeding the HMM engine, with the
// total_correction_ratio re-expansion handled inside classify.Classify.
func classifyHybridCommand(c *cli.Context) error {
	model, err := readModel(c.String("model"))
	if err != nil {
		return err
	}
	library, err := readLibrary(c.String("dye-seqs"), model.NumChannels())
	if err != nil {
		return err
	}
	set, err := readRadiometries(c.String("radiometries"))
	if err != nil {
		return err
	}
	tracks, err := readTrainingTracks(c.String("dye-tracks"))
	if err != nil {
		return err
	}

	classifier := classify.NewClassifier(set.NumTimesteps, set.NumChannels, model, distCutoff(c), toCandidates(library))
	classifier.ShortListSize = c.Int("h")
	classifier.PreFilter = knn.New(set.NumTimesteps, set.NumChannels, model.Channels, c.Int("k"), tracks)

	return writeResults(c.String("o"), classifier.ClassifyAll(set.Radiometries))
}

// fitCommand runs improve_fit across a radiometry/dye-seq dataset for
// one Baum-Welch iteration and writes the updated SequencingModel.
func fitCommand(c *cli.Context) error {
	model, err := readModel(c.String("model"))
	if err != nil {
		return err
	}
	library, err := readLibrary(c.String("dye-seqs"), model.NumChannels())
	if err != nil {
		return err
	}
	set, err := readRadiometries(c.String("radiometries"))
	if err != nil {
		return err
	}
	if len(library) != len(set.Radiometries) {
		return fmt.Errorf("fit: %d dye-seqs but %d radiometries; a paired dataset needs one of each", len(library), len(set.Radiometries))
	}

	settings := fit.Settings{}
	if path := c.String("fit-settings"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening fit-settings file: %w", err)
		}
		settings, err = fileio.ReadFitSettings(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	seqs := make([]dyeseq.DyeSeq, len(library))
	for i, l := range library {
		seqs[i] = l.Seq
	}

	fitter := classify.FitAll(set.NumTimesteps, set.NumChannels, model, settings, distCutoff(c), set.Radiometries, seqs)
	return writeModel(c.String("o"), fitter.Get())
}

// simulateRadCommand generates synthetic radiometries from a
// dye-sequence library and a sequencing model: the inverse operation of
// classification, used for regression fixtures and the Baum-Welch
// monotonicity test harness. Grounded in
// original_source/cc_code/src/simulation/generate_radiometry.cc.
func simulateRadCommand(c *cli.Context) error {
	model, err := readModel(c.String("model"))
	if err != nil {
		return err
	}
	library, err := readLibrary(c.String("dye-seqs"), model.NumChannels())
	if err != nil {
		return err
	}

	numTimesteps := c.Int("t")
	numChannels := model.NumChannels()
	rng := rand.New(rand.NewSource(c.Int64("seed")))

	radiometries := make([]radiometry.Radiometry, len(library))
	for i, l := range library {
		rad, err := simulateOne(rng, numTimesteps, numChannels, l.Seq, model)
		if err != nil {
			return err
		}
		radiometries[i] = rad
	}

	f, err := os.Create(c.String("o"))
	if err != nil {
		return fmt.Errorf("creating radiometries output file: %w", err)
	}
	defer f.Close()
	return writeRadiometries(f, numTimesteps, numChannels, radiometries)
}

// binomialSurvivors returns how many of n dyes survive independent loss
// coin flips, each lost with probability pLoss.
func binomialSurvivors(rng *rand.Rand, n int, pLoss float64) int {
	survivors := 0
	for i := 0; i < n; i++ {
		if rng.Float64() >= pLoss {
			survivors++
		}
	}
	return survivors
}

// simulateOne draws one synthetic radiometry: per channel, the dye
// count present at cycle 0 decays across cycles by independent dud,
// detach, and bleach coin flips (mirroring the forward chain's own
// transitions), and each cycle's reading is a normal draw around
// count*mu.
func simulateOne(rng *rand.Rand, numTimesteps, numChannels int, seq dyeseq.DyeSeq, model seqmodel.SequencingModel) (radiometry.Radiometry, error) {
	track := dyeseq.BuildDyeTrack(numTimesteps, numChannels, seq)
	counts := make([]int, numChannels)
	for ch := 0; ch < numChannels; ch++ {
		// One-time dud loss, before the first emission.
		counts[ch] = binomialSurvivors(rng, int(track.At(0, ch)), model.Channels[ch].PDud)
	}

	detached := false
	values := make([]float64, numTimesteps*numChannels)
	for t := 0; t < numTimesteps; t++ {
		for ch := 0; ch < numChannels; ch++ {
			d := counts[ch]
			if detached {
				d = 0
			}
			mean := float64(d) * model.Channels[ch].Mu
			sigma := model.Channels[ch].SigmaAt(d)
			values[t*numChannels+ch] = mean + sigma*rng.NormFloat64()
		}

		if t == 0 {
			if rng.Float64() < model.PInitialDetach {
				detached = true
			}
			for ch := 0; ch < numChannels; ch++ {
				counts[ch] = binomialSurvivors(rng, counts[ch], model.Channels[ch].PInitialBleach)
			}
		} else if t+1 < numTimesteps {
			if !detached && rng.Float64() < model.CyclicDetachAt(t) {
				detached = true
			}
			for ch := 0; ch < numChannels; ch++ {
				counts[ch] = binomialSurvivors(rng, counts[ch], model.Channels[ch].PCyclicBleach)
				// Edman advances the dye track to the next cycle's
				// expected count regardless of failure; a failed cycle's
				// effect on the track is not modeled separately here.
				counts[ch] = min(counts[ch], int(track.At(t+1, ch)))
			}
		}
	}
	return radiometry.New(numTimesteps, numChannels, values)
}

func writeRadiometries(f *os.File, numTimesteps, numChannels int, radiometries []radiometry.Radiometry) error {
	if _, err := fmt.Fprintf(f, "%d %d %d\n", numTimesteps, numChannels, len(radiometries)); err != nil {
		return err
	}
	for _, rad := range radiometries {
		for t := 0; t < numTimesteps; t++ {
			for ch := 0; ch < numChannels; ch++ {
				if ch > 0 {
					if _, err := fmt.Fprint(f, " "); err != nil {
						return err
					}
				}
				if _, err := fmt.Fprintf(f, "%g", rad.At(t, ch)); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprint(f, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
