package store

import (
	"context"
	"errors"
	"time"

	"github.com/edututor-ai/backend/internal/domain/tutorsession"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store keeps session view models and their question/answer history.
type Store interface {
	CreateSession(ctx context.Context, s *tutorsession.Session) error
	// GetSession returns the session with its history in insertion order.
	GetSession(ctx context.Context, id string) (*tutorsession.Session, error)
	// SaveSession overwrites the session state. History is not touched.
	SaveSession(ctx context.Context, s *tutorsession.Session) error
	AppendHistory(ctx context.Context, sessionID string, entry tutorsession.HistoryEntry) error
	ListHistory(ctx context.Context, sessionID string) ([]tutorsession.HistoryEntry, error)
	// DeleteExpiredSessions removes sessions last updated before the cutoff.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
