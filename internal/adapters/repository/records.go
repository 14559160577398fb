package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/kartpos/internal/domain/session"
	"github.com/okian/kartpos/pkg/logger"
)

// RecordsStore writes a session's records as a JSON object keyed by elapsed
// seconds. Every save fully replaces the file.
type RecordsStore struct {
	path   string
	logger logger.Logger
}

// NewRecordsStore creates a store writing to path. The parent directory must
// exist when Save is called.
func NewRecordsStore(path string, opts ...Option) *RecordsStore {
	o := buildOptions("records-store", opts)
	return &RecordsStore{path: path, logger: o.logger}
}

// Path returns the destination file.
func (r *RecordsStore) Path() string { return r.path }

// Save writes s.Document() to the destination.
func (r *RecordsStore) Save(ctx context.Context, s *session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(s.Document())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRecords, err)
	}
	err = writeFileAtomic(r.path, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	})
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWriteRecords, r.path, err)
	}
	r.logger.Info(ctx, "records written",
		logger.String("path", r.path),
		logger.String("session", s.ID),
		logger.Int("records", s.Len()),
	)
	return nil
}

// LoadRecords reads a records file back into its document form.
func LoadRecords(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := map[string]int{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
