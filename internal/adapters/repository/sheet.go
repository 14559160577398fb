package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/kartpos/pkg/logger"
)

// CopySuffix is inserted before the extension when saving a copy.
const CopySuffix = "_copy"

// Sheet is a CSV results sheet: one row per processed screenshot, one column
// per player. Rows already on disk are kept and new rows are appended.
type Sheet struct {
	path   string
	rows   [][]string
	loaded int
	logger logger.Logger
}

// OpenSheet loads the sheet at path. A missing file yields an empty sheet
// that will be created on save.
func OpenSheet(ctx context.Context, path string, opts ...Option) (*Sheet, error) {
	o := buildOptions("results-sheet", opts)
	s := &Sheet{path: path, logger: o.logger}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info(ctx, "results sheet not found, it will be created", logger.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSheet, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrSheet, path, err)
	}
	s.rows = rows
	s.loaded = len(rows)
	return s, nil
}

// Path returns the file the sheet was opened from.
func (s *Sheet) Path() string { return s.path }

// Append adds a row.
func (s *Sheet) Append(row []string) {
	s.rows = append(s.rows, append([]string(nil), row...))
}

// Rows returns a copy of all rows, existing ones first.
func (s *Sheet) Rows() [][]string {
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Added returns the number of rows appended since the sheet was opened.
func (s *Sheet) Added() int { return len(s.rows) - s.loaded }

// Save writes the sheet. With asCopy the original file is left untouched
// and the rows go to CopyPath. It returns the path written.
func (s *Sheet) Save(ctx context.Context, asCopy bool) (string, error) {
	dest := s.path
	if asCopy {
		dest = CopyPath(s.path)
	}
	err := writeFileAtomic(dest, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.WriteAll(s.rows); err != nil {
			return err
		}
		return w.Error()
	})
	if err != nil {
		return "", fmt.Errorf("%w: save %s: %w", ErrSheet, dest, err)
	}
	s.logger.Info(ctx, "results sheet saved",
		logger.String("path", dest),
		logger.Int("rows", len(s.rows)),
		logger.Int("added", s.Added()),
	)
	return dest, nil
}

// CopyPath returns path with CopySuffix inserted before its extension.
func CopyPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + CopySuffix + ext
}
