// Package batch classifies directories of track images offline and renders
// the results as console tables, CSV and Markdown reports.
package batch

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// HighConfidence is the confidence fraction above which a crack is flagged
// as critical in the summary.
const HighConfidence = 0.9

// Item is the outcome for one image. Exactly one of Result and Err is set.
type Item struct {
	Path   string
	Image  string
	Result *inference.Result
	Err    error
}

// ConfidenceFraction is the confidence of the reported class in [0.5, 1].
func (it Item) ConfidenceFraction() float64 {
	if it.Result == nil {
		return 0
	}
	if it.Result.HasCrack {
		return it.Result.ProbabilityFaulty
	}
	return 1 - it.Result.ProbabilityFaulty
}

// Run classifies paths with at most concurrency images in flight. Results
// keep the input order. A failing image is recorded on its Item and does not
// stop the batch; only context cancellation does.
func Run(ctx context.Context, c *inference.Classifier, paths []string, concurrency int) ([]Item, error) {
	log.Info().Int("images", len(paths)).Int("concurrency", concurrency).Msg("starting batch")
	start := time.Now()

	items := make([]Item, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := Item{Path: path, Image: filepath.Base(path)}
			item.Result, item.Err = classifyFile(ctx, c, path)
			if item.Err != nil {
				log.Warn().Err(item.Err).Str("image", item.Image).Msg("classification failed")
			}
			items[i] = item
			return nil
		})
	}

	err := g.Wait()
	log.Info().Int("images", len(paths)).Dur("elapsed", time.Since(start)).Msg("batch complete")
	return items, err
}

func classifyFile(ctx context.Context, c *inference.Classifier, path string) (*inference.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return c.ClassifyReader(ctx, f)
}

// SortByProbability returns the successful items ordered by model score,
// highest first.
func SortByProbability(items []Item) []Item {
	var ok []Item
	for _, it := range items {
		if it.Result != nil {
			ok = append(ok, it)
		}
	}
	slices.SortStableFunc(ok, func(a, b Item) int {
		return cmp.Compare(b.Result.Score, a.Result.Score)
	})
	return ok
}

// Summary aggregates a batch.
type Summary struct {
	Total     int
	Cracks    int
	Normal    int
	Failed    int
	Threshold float64
	// Critical are cracks reported with confidence above HighConfidence.
	Critical []Item
}

// CrackPercent is the share of classified images reported as cracked.
func (s Summary) CrackPercent() float64 {
	if n := s.Cracks + s.Normal; n > 0 {
		return float64(s.Cracks) / float64(n) * 100
	}
	return 0
}

// NormalPercent is the share of classified images reported as normal.
func (s Summary) NormalPercent() float64 {
	if n := s.Cracks + s.Normal; n > 0 {
		return float64(s.Normal) / float64(n) * 100
	}
	return 0
}

// Summarize counts the items.
func Summarize(items []Item, threshold float64) Summary {
	s := Summary{Total: len(items), Threshold: threshold}
	for _, it := range items {
		switch {
		case it.Result == nil:
			s.Failed++
		case it.Result.HasCrack:
			s.Cracks++
			if it.ConfidenceFraction() > HighConfidence {
				s.Critical = append(s.Critical, it)
			}
		default:
			s.Normal++
		}
	}
	return s
}
