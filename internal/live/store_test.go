package live

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

func entry(body string) models.LogEntry {
	return models.LogEntry{
		ID:         uuid.New(),
		SessionID:  1,
		Kind:       models.LogKindQuestion,
		AuthorName: "anon",
		Body:       body,
		CreatedAt:  time.Now(),
	}
}

// TestInsertIsIdempotent verifies that applying the same insert event twice
// yields the same snapshot as applying it once.
func TestInsertIsIdempotent(t *testing.T) {
	e := entry("does go have generics yet")
	ev := Event{Type: EventLogInserted, Entry: &e, At: e.CreatedAt}

	once := Apply(NewSnapshot(), ev)
	twice := Apply(once, ev)

	if len(twice.Questions) != 1 {
		t.Fatalf("expected 1 entry after duplicate insert, got %d", len(twice.Questions))
	}
	if got := twice.Questions[e.ID]; got != once.Questions[e.ID] {
		t.Errorf("duplicate insert changed the entry: %+v vs %+v", got, once.Questions[e.ID])
	}
	if !twice.LastAppliedAt.Equal(once.LastAppliedAt) {
		t.Errorf("duplicate insert moved LastAppliedAt")
	}
}

// TestConvergenceUnderReordering verifies that any permutation of a set of
// insert events produces the same entry set.
func TestConvergenceUnderReordering(t *testing.T) {
	var events []Event
	for i := 0; i < 8; i++ {
		e := entry("q")
		events = append(events, Event{Type: EventLogInserted, Entry: &e, At: e.CreatedAt})
	}

	apply := func(order []Event) Snapshot {
		snap := NewSnapshot()
		for _, ev := range order {
			snap = Apply(snap, ev)
		}
		return snap
	}

	base := apply(events)
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]Event, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := apply(shuffled)
		if len(got.Questions) != len(base.Questions) {
			t.Fatalf("trial %d: %d entries, want %d", trial, len(got.Questions), len(base.Questions))
		}
		for id, e := range base.Questions {
			if got.Questions[id] != e {
				t.Errorf("trial %d: entry %s differs", trial, id)
			}
		}
	}
}

// TestSingleActiveScene verifies the scene is always exactly one value,
// replaced wholesale.
func TestSingleActiveScene(t *testing.T) {
	snap := NewSnapshot()
	if snap.Scene != scene.Default() {
		t.Fatalf("fresh snapshot should hold the default scene, got %+v", snap.Scene)
	}

	scenes := []scene.Scene{
		{Kind: scene.KindQuiz, ItemIndex: 0},
		{Kind: scene.KindSlides, ItemIndex: 1, SlideIndex: 4},
		{Kind: scene.KindBingo, ItemIndex: 2},
	}
	for i := range scenes {
		snap = Apply(snap, Event{Type: EventSceneChanged, Scene: &scenes[i], At: time.Now()})
		if snap.Scene != scenes[i] {
			t.Errorf("after change %d: got %+v want %+v", i, snap.Scene, scenes[i])
		}
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	v := true
	snap := Apply(NewSnapshot(), Event{
		Type:    EventLogUpdated,
		Kind:    models.LogKindQuestion,
		EntryID: uuid.New(),
		Fields:  LogFields{IsHighlighted: &v},
		At:      time.Now(),
	})
	if len(snap.Questions) != 0 {
		t.Errorf("update for unknown id must not create entries")
	}
}

func TestUpdateMergesOnlySetFields(t *testing.T) {
	e := entry("highlight me")
	e.LikeCount = 3
	snap := Apply(NewSnapshot(), Event{Type: EventLogInserted, Entry: &e, At: e.CreatedAt})

	v := true
	snap = Apply(snap, Event{
		Type:    EventLogUpdated,
		Kind:    models.LogKindQuestion,
		EntryID: e.ID,
		Fields:  LogFields{IsHighlighted: &v},
		At:      time.Now(),
	})

	got := snap.Questions[e.ID]
	if !got.IsHighlighted {
		t.Error("highlight flag not applied")
	}
	if got.LikeCount != 3 || got.IsAnswered {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	e := entry("delete me")
	snap := Apply(NewSnapshot(), Event{Type: EventLogInserted, Entry: &e, At: e.CreatedAt})
	snap = Apply(snap, Event{Type: EventLogRemoved, Kind: e.Kind, EntryID: e.ID, At: time.Now()})
	if len(snap.Questions) != 0 {
		t.Errorf("entry still present after remove")
	}
}

// TestReducerDoesNotMutatePriorSnapshots verifies copy-on-write: a snapshot
// handed to a reader stays stable while new events are applied.
func TestReducerDoesNotMutatePriorSnapshots(t *testing.T) {
	e1 := entry("first")
	before := Apply(NewSnapshot(), Event{Type: EventLogInserted, Entry: &e1, At: e1.CreatedAt})

	e2 := entry("second")
	_ = Apply(before, Event{Type: EventLogInserted, Entry: &e2, At: e2.CreatedAt})

	if len(before.Questions) != 1 {
		t.Errorf("prior snapshot mutated: %d entries", len(before.Questions))
	}
}
