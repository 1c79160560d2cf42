package live

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// fakeGateway is an in-memory Gateway with the same atomicity contract as
// the real one.
type fakeGateway struct {
	mu        sync.Mutex
	snapshots map[uint]scene.Scene
	entries   map[uuid.UUID]models.LogEntry

	insertErr error
	putErr    error
	// putErrTimes > 0 limits putErr to that many failures; zero means every
	// call fails while putErr is set.
	putErrTimes int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		snapshots: make(map[uint]scene.Scene),
		entries:   make(map[uuid.UUID]models.LogEntry),
	}
}

func (g *fakeGateway) GetSnapshot(_ context.Context, sessionID uint) (*scene.Scene, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sc, ok := g.snapshots[sessionID]
	if !ok {
		return nil, nil
	}
	return &sc, nil
}

func (g *fakeGateway) PutSnapshot(_ context.Context, sessionID uint, sc scene.Scene) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.putErr != nil {
		err := g.putErr
		if g.putErrTimes > 0 {
			g.putErrTimes--
			if g.putErrTimes == 0 {
				g.putErr = nil
			}
		}
		return err
	}
	g.snapshots[sessionID] = sc
	return nil
}

func (g *fakeGateway) ListLogEntries(_ context.Context, sessionID uint, kind models.LogKind, limit int) ([]models.LogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []models.LogEntry
	for _, e := range g.entries {
		if e.SessionID == sessionID && e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (g *fakeGateway) InsertLogEntry(_ context.Context, e models.LogEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertErr != nil {
		return g.insertErr
	}
	if _, ok := g.entries[e.ID]; ok {
		return nil
	}
	g.entries[e.ID] = e
	return nil
}

func (g *fakeGateway) UpdateLogEntry(_ context.Context, id uuid.UUID, fields map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[id]
	if !ok {
		return gateway.ErrNotFound
	}
	for f, v := range fields {
		switch f {
		case "is_highlighted":
			e.IsHighlighted = v.(bool)
		case "is_answered":
			e.IsAnswered = v.(bool)
		default:
			return fmt.Errorf("%w: %s", gateway.ErrBadField, f)
		}
	}
	g.entries[id] = e
	return nil
}

func (g *fakeGateway) DeleteLogEntry(_ context.Context, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, id)
	return nil
}

func (g *fakeGateway) IncrementCounter(_ context.Context, id uuid.UUID, field string, delta int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if field != "like_count" {
		return 0, fmt.Errorf("%w: %s", gateway.ErrBadField, field)
	}
	e, ok := g.entries[id]
	if !ok {
		return 0, gateway.ErrNotFound
	}
	e.LikeCount += delta
	if e.LikeCount < 0 {
		e.LikeCount = 0
	}
	g.entries[id] = e
	return e.LikeCount, nil
}
