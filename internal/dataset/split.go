package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// Split defaults.
const (
	DefaultSeed            = 42
	DefaultTrainRatio      = 0.7
	DefaultValidationRatio = 0.15
	DefaultConcurrency     = 8
)

var errInvalidRatios = errors.New("train and validation ratios must be in [0, 1] and sum to at most 1")

// SplitOptions configures Split.
type SplitOptions struct {
	RawDir          string
	OutDir          string
	Seed            int64
	TrainRatio      float64
	ValidationRatio float64
	Concurrency     int
}

// DefaultSplitOptions returns 70/15/15 with seed 42.
func DefaultSplitOptions(rawDir, outDir string) SplitOptions {
	return SplitOptions{
		RawDir:          rawDir,
		OutDir:          outDir,
		Seed:            DefaultSeed,
		TrainRatio:      DefaultTrainRatio,
		ValidationRatio: DefaultValidationRatio,
		Concurrency:     DefaultConcurrency,
	}
}

// SplitCounts is the number of files per split.
type SplitCounts struct {
	Train      int
	Validation int
	Test       int
}

// SplitReport summarizes a Split run.
type SplitReport struct {
	Classes   map[string]SplitCounts
	Unlabeled []string
}

type copyJob struct {
	src, dst string
}

// Split labels raw images by file name, shuffles each class with the seed
// and copies them into OutDir/{train,validation,test}/{Faulty,Normal}.
// Each class is cut independently: the train and validation sizes are
// floored and the test split takes the rest.
func Split(ctx context.Context, opts SplitOptions) (*SplitReport, error) {
	if opts.TrainRatio < 0 || opts.ValidationRatio < 0 || opts.TrainRatio+opts.ValidationRatio > 1 {
		return nil, errInvalidRatios
	}

	paths, err := ListImages(opts.RawDir)
	if err != nil {
		return nil, err
	}

	byClass := map[string][]string{}
	report := &SplitReport{Classes: map[string]SplitCounts{}}
	for _, p := range paths {
		class, ok := ClassFromName(p)
		if !ok {
			report.Unlabeled = append(report.Unlabeled, p)
			continue
		}
		byClass[class] = append(byClass[class], p)
	}

	for _, split := range Splits {
		for _, class := range []string{model.ClassFaulty, model.ClassNormal} {
			if err := os.MkdirAll(filepath.Join(opts.OutDir, split, class), 0o750); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var jobs []copyJob
	for _, class := range []string{model.ClassFaulty, model.ClassNormal} {
		images := byClass[class]
		rng.Shuffle(len(images), func(i, j int) { images[i], images[j] = images[j], images[i] })

		nTrain := int(float64(len(images)) * opts.TrainRatio)
		nVal := int(float64(len(images)) * opts.ValidationRatio)
		parts := map[string][]string{
			SplitTrain:      images[:nTrain],
			SplitValidation: images[nTrain : nTrain+nVal],
			SplitTest:       images[nTrain+nVal:],
		}
		for split, files := range parts {
			for _, src := range files {
				jobs = append(jobs, copyJob{src: src, dst: filepath.Join(opts.OutDir, split, class, filepath.Base(src))})
			}
		}
		report.Classes[class] = SplitCounts{Train: nTrain, Validation: nVal, Test: len(images) - nTrain - nVal}

		log.Info().
			Str("class", class).
			Int("train", nTrain).
			Int("validation", nVal).
			Int("test", len(images)-nTrain-nVal).
			Msg("split class")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return copyFile(job.src, job.dst)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
