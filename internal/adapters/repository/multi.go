package repository

import (
	"context"

	"github.com/okian/kartpos/internal/domain/recording"
	"github.com/okian/kartpos/internal/domain/session"
)

// MultiStore saves a session to every store in order and stops at the
// first failure. The first store is the primary destination.
type MultiStore []recording.Store

// Save implements recording.Store.
func (m MultiStore) Save(ctx context.Context, s *session.Session) error {
	for _, st := range m {
		if st == nil {
			continue
		}
		if err := st.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
