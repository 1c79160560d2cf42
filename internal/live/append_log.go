package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/models"
)

var (
	ErrEmptyBody = errors.New("entry body must not be empty")
	ErrMissingID = errors.New("entry id must be assigned before append")
)

// AppendOnlyLog is one convergent multi-writer collection (questions or
// chat). Appends are optimistic locally, written through to the durable
// store, and fanned out; every remote delivery merges idempotently by id, so
// redelivery and the writer's own echo are harmless.
type AppendOnlyLog struct {
	store     *Store
	ch        *channel.Channel
	gw        gateway.Gateway
	sessionID uint
	kind      models.LogKind
	topic     string
	now       func() time.Time
}

func NewAppendOnlyLog(store *Store, ch *channel.Channel, gw gateway.Gateway, sessionID uint, kind models.LogKind) *AppendOnlyLog {
	topic := channel.TopicQuestions
	if kind == models.LogKindChat {
		topic = channel.TopicChat
	}
	return &AppendOnlyLog{
		store:     store,
		ch:        ch,
		gw:        gw,
		sessionID: sessionID,
		kind:      kind,
		topic:     topic,
		now:       time.Now,
	}
}

// Append validates, inserts locally, persists, and fans out. A persistence
// failure is returned to the caller; the optimistic local insert is kept
// (the next successful write re-syncs peers).
func (l *AppendOnlyLog) Append(ctx context.Context, e models.LogEntry) error {
	if strings.TrimSpace(e.Body) == "" {
		return ErrEmptyBody
	}
	if e.ID == uuid.Nil {
		return ErrMissingID
	}

	e.SessionID = l.sessionID
	e.Kind = l.kind
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}

	l.store.Apply(Event{Type: EventLogInserted, Entry: &e, At: l.now()})

	if err := l.gw.InsertLogEntry(ctx, e); err != nil {
		return err
	}

	l.publish(LogEvent{Op: OpInsert, Entry: &e})
	return nil
}

// updateFlags is the host-only moderation path (highlight/answered). Only the
// host writes these fields, so a plain last-write-wins merge is sufficient.
func (l *AppendOnlyLog) updateFlags(ctx context.Context, id uuid.UUID, f LogFields) error {
	if id == uuid.Nil {
		return ErrMissingID
	}

	fields := make(map[string]any)
	if f.IsHighlighted != nil {
		fields["is_highlighted"] = *f.IsHighlighted
	}
	if f.IsAnswered != nil {
		fields["is_answered"] = *f.IsAnswered
	}
	if len(fields) == 0 {
		return errors.New("no fields to update")
	}

	l.store.Apply(Event{Type: EventLogUpdated, Kind: l.kind, EntryID: id, Fields: f, At: l.now()})

	if err := l.gw.UpdateLogEntry(ctx, id, fields); err != nil {
		return err
	}

	l.publish(LogEvent{Op: OpUpdate, ID: id, Fields: &f})
	return nil
}

// IncrementLike bumps the counter atomically server-side and fans out the
// resulting absolute value, so concurrent likers and redelivered events all
// converge on the store's count.
func (l *AppendOnlyLog) IncrementLike(ctx context.Context, id uuid.UUID) error {
	return l.addLike(ctx, id, +1)
}

func (l *AppendOnlyLog) DecrementLike(ctx context.Context, id uuid.UUID) error {
	return l.addLike(ctx, id, -1)
}

func (l *AppendOnlyLog) addLike(ctx context.Context, id uuid.UUID, delta int) error {
	if id == uuid.Nil {
		return ErrMissingID
	}

	count, err := l.gw.IncrementCounter(ctx, id, "like_count", delta)
	if err != nil {
		return err
	}

	f := LogFields{LikeCount: &count}
	l.store.Apply(Event{Type: EventLogUpdated, Kind: l.kind, EntryID: id, Fields: f, At: l.now()})
	l.publish(LogEvent{Op: OpUpdate, ID: id, Fields: &f})
	return nil
}

// Remove is a hard, irreversible delete propagated to every subscriber.
func (l *AppendOnlyLog) Remove(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrMissingID
	}

	l.store.Apply(Event{Type: EventLogRemoved, Kind: l.kind, EntryID: id, At: l.now()})

	if err := l.gw.DeleteLogEntry(ctx, id); err != nil {
		return err
	}

	l.publish(LogEvent{Op: OpRemove, ID: id})
	return nil
}

// Attach loads the bounded baseline (most recent entries, oldest first), then
// subscribes for live inserts/updates/removes. Same fetch-then-subscribe
// ordering as the scene path.
func (l *AppendOnlyLog) Attach(ctx context.Context) (func(), error) {
	entries, err := l.gw.ListLogEntries(ctx, l.sessionID, l.kind, gateway.DefaultLogLimit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		l.store.Apply(Event{Type: EventLogInserted, Entry: &entries[i], At: l.now()})
	}

	unsub := l.ch.Subscribe(l.topic, l.onRemote)
	return unsub, nil
}

func (l *AppendOnlyLog) onRemote(payload []byte) {
	var ev LogEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("log: dropping bad payload: %v", err)
		return
	}

	switch ev.Op {
	case OpInsert:
		if ev.Entry == nil {
			return
		}
		l.store.Apply(Event{Type: EventLogInserted, Entry: ev.Entry, At: l.now()})
	case OpUpdate:
		if ev.Fields == nil {
			return
		}
		l.store.Apply(Event{Type: EventLogUpdated, Kind: l.kind, EntryID: ev.ID, Fields: *ev.Fields, At: l.now()})
	case OpRemove:
		l.store.Apply(Event{Type: EventLogRemoved, Kind: l.kind, EntryID: ev.ID, At: l.now()})
	default:
		log.Printf("log: unknown op %q", ev.Op)
	}
}

func (l *AppendOnlyLog) publish(ev LogEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("log: marshal error: %v", err)
		return
	}
	if err := l.ch.Publish(l.topic, payload); err != nil {
		log.Printf("log: publish failed: %v", err)
	}
}
