package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/kartpos/internal/domain/finishgrid"
	"github.com/okian/kartpos/pkg/logger"
	"github.com/okian/kartpos/pkg/metrics"
)

// imageExtensions lists the screenshot formats the scorer reads.
var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Report summarizes an offline scoring run.
type Report struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	NotFound  int `json:"not_found"`
}

// Scorer reads end-of-race screenshots and appends one row of finishing
// ranks per image.
type Scorer struct {
	loader     ImageLoader
	pre        Preprocessor
	recognizer Recognizer
	sheet      RowAppender
	archive    ResultArchive

	header      bool
	portTimeout time.Duration
	ocrGate     portGate

	logger logger.Logger
}

// ScorerOption applies a configuration option to the Scorer.
type ScorerOption func(*Scorer)

// WithHeader makes the scorer write the player names as a first row.
func WithHeader(header bool) ScorerOption {
	return func(s *Scorer) {
		s.header = header
	}
}

// WithArchive stores every image's results in addition to the sheet.
func WithArchive(a ResultArchive) ScorerOption {
	return func(s *Scorer) {
		s.archive = a
	}
}

// WithOCRTimeout sets the deadline for each OCR call. Zero disables it.
func WithOCRTimeout(d time.Duration) ScorerOption {
	return func(s *Scorer) {
		if d >= 0 {
			s.portTimeout = d
		}
	}
}

// WithScorerLogger sets a custom logger for the scorer.
func WithScorerLogger(l logger.Logger) ScorerOption {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScorer constructs a scorer writing rows to sheet.
func NewScorer(loader ImageLoader, pre Preprocessor, recognizer Recognizer, sheet RowAppender, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		loader:      loader,
		pre:         pre,
		recognizer:  recognizer,
		sheet:       sheet,
		portTimeout: DefaultPortTimeout * 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scorer")
	}
	return s
}

// Run scores every screenshot in dir for players. Images that cannot be read
// or recognized are skipped; a missing player yields a "NA" cell and never
// stops the run.
func (s *Scorer) Run(ctx context.Context, dir string, players []string) (Report, error) {
	var rep Report

	info, err := os.Stat(dir)
	if err != nil {
		return rep, err
	}
	if !info.IsDir() {
		return rep, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rep, err
	}

	if s.header {
		s.sheet.Append(players)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		res, err := s.scoreImage(ctx, path, players)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			rep.Skipped++
			continue
		}
		rep.Processed++
		metrics.RecordImageProcessed()

		for _, player := range res.Missing() {
			rep.NotFound++
			s.logger.Warn(ctx, "player not found in finish grid",
				logger.String("player", player),
				logger.String("image", absPath(path)),
			)
		}
		s.sheet.Append(res.Row())

		if s.archive != nil {
			if err := s.archive.SaveFinishResult(ctx, entry.Name(), res); err != nil {
				return rep, err
			}
		}
	}

	s.logger.Info(ctx, "scoring finished",
		logger.String("dir", dir),
		logger.Int("processed", rep.Processed),
		logger.Int("skipped", rep.Skipped),
		logger.Int("notFound", rep.NotFound),
	)
	return rep, nil
}

func (s *Scorer) scoreImage(ctx context.Context, path string, players []string) (finishgrid.Result, error) {
	img, err := s.loader.Load(path)
	if err != nil {
		metrics.RecordImageSkipped("unreadable")
		s.logger.Warn(ctx, "skipping unreadable image", logger.String("image", path), logger.Error(err))
		return nil, err
	}

	mask, err := s.pre.ResultsMask(img)
	_ = img.Close()
	if err != nil {
		metrics.RecordImageSkipped("preprocess")
		s.logger.Warn(ctx, "skipping image that could not be prepared", logger.String("image", path), logger.Error(err))
		return nil, err
	}

	tokens, err := callPort(ctx, &s.ocrGate, s.portTimeout, "ocr", func(ctx context.Context) ([]finishgrid.Entry, error) {
		return s.recognizer.Recognize(ctx, mask)
	}, func() { _ = mask.Close() })
	if err != nil {
		metrics.RecordImageSkipped("ocr")
		s.logger.Warn(ctx, "skipping image the OCR reader failed on", logger.String("image", path), logger.Error(err))
		return nil, err
	}

	res := finishgrid.Resolve(finishgrid.Texts(tokens), players)
	for _, pr := range res {
		metrics.RecordGridLookup(pr.Found)
	}
	return res, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
