package main

import (
	"context"

	"github.com/okian/kartpos/internal/adapters/ocr"
	"github.com/okian/kartpos/internal/adapters/repository"
	"github.com/okian/kartpos/internal/adapters/vision"
	service "github.com/okian/kartpos/internal/app"
	"github.com/okian/kartpos/internal/config"
	"github.com/okian/kartpos/pkg/logger"
)

func runScores(ctx context.Context, cfg *config.Config, opts scoresOptions, log logger.Logger) error {
	sheet, err := repository.OpenSheet(ctx, opts.workbook, repository.WithLogger(log.Named("sheet")))
	if err != nil {
		return err
	}

	reader, err := ocr.NewTesseract(cfg.OCRLanguage, cfg.OCRWhitelist)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	scorerOpts := []service.ScorerOption{
		service.WithHeader(opts.header),
		service.WithOCRTimeout(cfg.OCRTimeout()),
		service.WithScorerLogger(log.Named("scorer")),
	}
	if cfg.ArchivePath != "" {
		archive, err := repository.OpenArchive(cfg.ArchivePath, repository.WithLogger(log.Named("archive")))
		if err != nil {
			return err
		}
		defer func() { _ = archive.Close() }()
		scorerOpts = append(scorerOpts, service.WithArchive(archive))
	}

	scorer := service.NewScorer(vision.ImageLoader{},
		vision.NewPreprocessor(cfg.PositionROI(), cfg.ResultsROI(), uint8(cfg.OCRValueMin)),
		reader,
		sheet,
		scorerOpts...,
	)
	rep, err := scorer.Run(ctx, opts.dir, opts.players)
	if err != nil {
		return err
	}

	path, err := sheet.Save(ctx, opts.saveCopy)
	if err != nil {
		return err
	}
	log.Info(ctx, "results sheet written",
		logger.String("path", path),
		logger.Int("processed", rep.Processed),
		logger.Int("skipped", rep.Skipped),
		logger.Int("notFound", rep.NotFound),
	)
	return nil
}
