package live

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// Snapshot is the materialized view a client renders from. It is local to one
// process and never transmitted; peers rebuild their own from a fetched
// baseline plus deltas.
type Snapshot struct {
	Scene         scene.Scene
	Questions     map[uuid.UUID]models.LogEntry
	Chat          map[uuid.UUID]models.LogEntry
	LastAppliedAt time.Time
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Scene:     scene.Default(),
		Questions: make(map[uuid.UUID]models.LogEntry),
		Chat:      make(map[uuid.UUID]models.LogEntry),
	}
}

func (s Snapshot) log(kind models.LogKind) map[uuid.UUID]models.LogEntry {
	if kind == models.LogKindChat {
		return s.Chat
	}
	return s.Questions
}

func (s *Snapshot) setLog(kind models.LogKind, m map[uuid.UUID]models.LogEntry) {
	if kind == models.LogKindChat {
		s.Chat = m
	} else {
		s.Questions = m
	}
}

func copyLog(m map[uuid.UUID]models.LogEntry) map[uuid.UUID]models.LogEntry {
	cp := make(map[uuid.UUID]models.LogEntry, len(m)+1)
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Apply is the single reducer all mutations flow through. It is pure: maps
// are copied on write, never mutated in place, so snapshots handed to readers
// stay stable. Duplicate inserts are no-ops keyed by id; updates and removes
// for unknown ids are no-ops; the scene is replaced wholesale, which is how
// the one-active-scene invariant is kept.
func Apply(snap Snapshot, ev Event) Snapshot {
	next := snap

	switch ev.Type {
	case EventSceneChanged:
		if ev.Scene == nil {
			return snap
		}
		next.Scene = *ev.Scene

	case EventLogInserted:
		if ev.Entry == nil {
			return snap
		}
		m := snap.log(ev.Entry.Kind)
		if _, ok := m[ev.Entry.ID]; ok {
			return snap
		}
		cp := copyLog(m)
		cp[ev.Entry.ID] = *ev.Entry
		next.setLog(ev.Entry.Kind, cp)

	case EventLogUpdated:
		m := snap.log(ev.Kind)
		entry, ok := m[ev.EntryID]
		if !ok {
			return snap
		}
		if ev.Fields.LikeCount != nil {
			entry.LikeCount = *ev.Fields.LikeCount
		}
		if ev.Fields.IsHighlighted != nil {
			entry.IsHighlighted = *ev.Fields.IsHighlighted
		}
		if ev.Fields.IsAnswered != nil {
			entry.IsAnswered = *ev.Fields.IsAnswered
		}
		cp := copyLog(m)
		cp[ev.EntryID] = entry
		next.setLog(ev.Kind, cp)

	case EventLogRemoved:
		m := snap.log(ev.Kind)
		if _, ok := m[ev.EntryID]; !ok {
			return snap
		}
		cp := copyLog(m)
		delete(cp, ev.EntryID)
		next.setLog(ev.Kind, cp)

	default:
		return snap
	}

	if ev.At.After(next.LastAppliedAt) {
		next.LastAppliedAt = ev.At
	}
	return next
}

// Store serializes every mutation through the reducer and hands out stable
// snapshots. One Store exists per joined session; it is constructed
// explicitly and passed to the components that write into it.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{snap: NewSnapshot()}
}

func (s *Store) Apply(ev Event) {
	s.mu.Lock()
	s.snap = Apply(s.snap, ev)
	s.mu.Unlock()
}

// Snapshot is safe to hold across further mutations: the reducer never
// mutates a published map.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
