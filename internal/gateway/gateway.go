// Package gateway is the narrow door to the durable store. The live-session
// core never touches gorm directly; it talks to this interface and relies only
// on the atomicity each method documents.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// DefaultLogLimit bounds catch-up reads so joining an old session costs the
// same as joining a fresh one.
const DefaultLogLimit = 100

var (
	ErrNotFound     = errors.New("not found")
	ErrBadField     = errors.New("field is not writable through the gateway")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Gateway is the persistence surface of the core.
type Gateway interface {
	// GetSnapshot returns the current scene for a session, or nil when the
	// session has never persisted one.
	GetSnapshot(ctx context.Context, sessionID uint) (*scene.Scene, error)
	// PutSnapshot upserts the single scene row for a session, last write wins.
	PutSnapshot(ctx context.Context, sessionID uint, sc scene.Scene) error

	// ListLogEntries returns up to limit entries of one kind, oldest first.
	ListLogEntries(ctx context.Context, sessionID uint, kind models.LogKind, limit int) ([]models.LogEntry, error)
	InsertLogEntry(ctx context.Context, e models.LogEntry) error
	// UpdateLogEntry applies a last-write-wins merge of the given fields.
	UpdateLogEntry(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteLogEntry(ctx context.Context, id uuid.UUID) error
	// IncrementCounter atomically adds delta to a counter field and returns
	// the resulting value. Delivery to callers is at-least-once; a retried
	// call counts again.
	IncrementCounter(ctx context.Context, id uuid.UUID, field string, delta int) (int, error)
}

var writableLogFields = map[string]bool{
	"is_highlighted": true,
	"is_answered":    true,
}

var counterFields = map[string]bool{
	"like_count": true,
}

func checkLogFields(fields map[string]any) error {
	for f := range fields {
		if !writableLogFields[f] {
			return fmt.Errorf("%w: %s", ErrBadField, f)
		}
	}
	return nil
}
