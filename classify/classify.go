/*
Package classify ranks a library of candidate dye sequences against an
observed radiometry and reports the best match. It follows the teacher's
pattern of a thin orchestration struct that fans work out across
goroutines (see commands.go's convert/hash sync.WaitGroup loops) rather
than leaning on a worker-pool library: one HMM evaluation is cheap and
self-contained, so the classifier just partitions the radiometry batch
and lets each goroutine build its own HMMs and its own fitter.
*/
package classify

import (
	"runtime"
	"sync"

	"github.com/onephoton/fluoroseq/dyeseq"
	"github.com/onephoton/fluoroseq/fit"
	"github.com/onephoton/fluoroseq/hmm"
	"github.com/onephoton/fluoroseq/precompute"
	"github.com/onephoton/fluoroseq/radiometry"
	"github.com/onephoton/fluoroseq/seqmodel"
)

// Candidate is one library entry a radiometry can be classified against:
// a dye sequence with its source library id and multiplicity.
type Candidate struct {
	ID    int
	Count int
	Seq   dyeseq.DyeSeq
	Track dyeseq.DyeTrack
}

// Result is one radiometry's classification outcome, the row shape
// `fileio.WriteResultsCSV` serializes: radmat_iz, best_pep_iz,
// best_pep_score.
type Result struct {
	RadiometryIndex int
	BestID          int
	BestScore       float64
}

// PreFilterCandidate is one short-listed candidate returned by a
// PreFilter: the library id and that candidate's aggregated,
// count-weighted score.
type PreFilterCandidate struct {
	ID    int
	Score float64
}

// PreFilterResult is the pre-filter contract's return shape (spec.md
// §6): up to h candidates plus a coarse Total used to re-expand the
// short list's truncated denominator back into an estimate of the full
// library's mass.
type PreFilterResult struct {
	Candidates []PreFilterCandidate
	Total      float64
}

// PreFilter produces a cheap candidate short-list for a radiometry.
// Determinism is not required of implementations (spec.md §6); the
// classifier's fallback path exists precisely to handle a short list
// whose HMM refinement all comes back zero.
type PreFilter interface {
	PreFilter(rad radiometry.Radiometry, h int) PreFilterResult
}

// Classifier runs the HMM engine over a fixed dye-sequence library,
// optionally narrowed per-radiometry by a PreFilter.
type Classifier struct {
	NumTimesteps  int
	NumChannels   int
	Model         seqmodel.SequencingModel
	DistCutoff    float64
	ShortListSize int

	Candidates []Candidate
	byID       map[int]int // Candidates index, keyed by library id

	universal *precompute.Universal
	PreFilter PreFilter // nil means "consider every candidate"
}

// NewClassifier builds a Classifier over candidates, precomputing the
// sequencing model's shared rate tables once up front.
func NewClassifier(numTimesteps, numChannels int, model seqmodel.SequencingModel, distCutoff float64, candidates []Candidate) *Classifier {
	c := &Classifier{
		NumTimesteps: numTimesteps,
		NumChannels:  numChannels,
		Model:        model,
		DistCutoff:   distCutoff,
		Candidates:   candidates,
		universal:    precompute.NewUniversal(model),
	}
	c.byID = make(map[int]int, len(candidates))
	for i, cand := range candidates {
		if cand.Track.Counts == nil {
			c.Candidates[i].Track = dyeseq.BuildDyeTrack(numTimesteps, numChannels, cand.Seq)
		}
		c.byID[cand.ID] = i
	}
	return c
}

func (c *Classifier) probability(cand Candidate, rad *precompute.Radiometry) float64 {
	h := hmm.NewPeptideHMM(c.NumTimesteps, c.NumChannels, cand.Seq, cand.Track, c.Model, c.universal, rad)
	return h.Probability()
}

// Classify runs the §4.11 algorithm for a single radiometry: score
// every candidate under consideration (either the full library, or a
// PreFilter's short list), track the best raw score and the
// count-weighted total mass, and fall back to the pre-filter's own top
// choice if every candidate's HMM score comes back zero.
func (c *Classifier) Classify(rad radiometry.Radiometry) Result {
	maxCount := 0
	for _, cand := range c.Candidates {
		if m := int(cand.Track.MaxCount()); m > maxCount {
			maxCount = m
		}
	}
	radPre := precompute.NewRadiometry(rad, c.Model, c.DistCutoff, maxCount)

	if c.PreFilter == nil {
		return c.classifyAgainst(rad, radPre, c.Candidates, -1, 0)
	}

	pfr := c.PreFilter.PreFilter(rad, c.ShortListSize)
	if len(pfr.Candidates) == 0 {
		return Result{BestID: -1}
	}

	shortList := make([]Candidate, 0, len(pfr.Candidates))
	var subtotal float64
	for _, pc := range pfr.Candidates {
		subtotal += pc.Score
		if i, ok := c.byID[pc.ID]; ok {
			shortList = append(shortList, c.Candidates[i])
		}
	}

	result := c.classifyAgainst(rad, radPre, shortList, pfr.Total, subtotal)
	if result.BestID == -1 {
		// No short-listed candidate scored positively; the pre-filter's
		// own top choice stands in, id unchanged.
		return Result{BestID: pfr.Candidates[0].ID, BestScore: pfr.Candidates[0].Score}
	}
	return result
}

// classifyAgainst scores candidates and, when total > 0, rescales the
// count-weighted total mass by total/subtotal before dividing it into
// the best raw score. Passing total <= 0 (the no-pre-filter case) skips
// the rescale entirely.
func (c *Classifier) classifyAgainst(rad radiometry.Radiometry, radPre *precompute.Radiometry, candidates []Candidate, total, subtotal float64) Result {
	bestID := -1
	bestScore := 0.0
	var totalMass float64
	for _, cand := range candidates {
		p := c.probability(cand, radPre)
		totalMass += p * float64(cand.Count)
		if p > bestScore {
			bestScore = p
			bestID = cand.ID
		}
	}
	if bestID == -1 || bestScore <= 0 {
		return Result{BestID: -1}
	}
	if total > 0 && subtotal > 0 {
		totalMass *= total / subtotal
	}
	adjusted := bestScore
	if totalMass > 0 {
		adjusted = bestScore / totalMass
	}
	return Result{BestID: bestID, BestScore: adjusted}
}

// ClassifyAll partitions radiometries across GOMAXPROCS goroutines,
// matching the teacher's own parallel file-conversion fan-out
// (commands.go's sync.WaitGroup loop): no cluster transport, just real
// goroutines doing real, independent HMM work.
func (c *Classifier) ClassifyAll(radiometries []radiometry.Radiometry) []Result {
	results := make([]Result, len(radiometries))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(radiometries) {
		workers = len(radiometries)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	perWorker := (len(radiometries) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if start >= len(radiometries) {
			break
		}
		if end > len(radiometries) {
			end = len(radiometries)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				result := c.Classify(radiometries[i])
				result.RadiometryIndex = i
				results[i] = result
			}
		}(start, end)
	}
	wg.Wait()
	return results
}

// FitAll runs one Baum-Welch iteration across a dataset of
// (radiometry, candidate) pairs, fanning the work out the same way
// ClassifyAll does and combining each worker's SequencingModelFitter via
// the fitters' associative Add.
func FitAll(numTimesteps, numChannels int, model seqmodel.SequencingModel, settings fit.Settings, distCutoff float64, radiometries []radiometry.Radiometry, seqs []dyeseq.DyeSeq) *fit.SequencingModelFitter {
	universal := precompute.NewUniversal(model)
	n := len(radiometries)
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	partials := make([]*fit.SequencingModelFitter, workers)
	var wg sync.WaitGroup
	perWorker := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if start >= n {
			partials[w] = fit.NewSequencingModelFitter(numTimesteps, model, settings)
			continue
		}
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			fitter := fit.NewSequencingModelFitter(numTimesteps, model, settings)
			for i := start; i < end; i++ {
				track := dyeseq.BuildDyeTrack(numTimesteps, numChannels, seqs[i])
				radPre := precompute.NewRadiometry(radiometries[i], model, distCutoff, int(track.MaxCount()))
				h := hmm.NewPeptideHMM(numTimesteps, numChannels, seqs[i], track, model, universal, radPre)
				h.ImproveFit(fitter)
			}
			partials[w] = fitter
		}(w, start, end)
	}
	wg.Wait()

	combined := fit.NewSequencingModelFitter(numTimesteps, model, settings)
	for _, p := range partials {
		if p != nil {
			combined.Add(p)
		}
	}
	return combined
}
