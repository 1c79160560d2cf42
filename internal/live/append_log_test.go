package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/models"
)

func attachedParticipant(t *testing.T, bus channel.Bus, gw gateway.Gateway) *ParticipantSession {
	t.Helper()
	p := NewParticipantSession(Config{Bus: bus, Gateway: gw, SessionID: 1, ClientID: uuid.New()})
	if err := p.Attach(context.Background()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func question(body string) models.LogEntry {
	return models.LogEntry{ID: uuid.New(), AuthorName: "guest", Body: body}
}

func TestAppendRejectsMalformedInput(t *testing.T) {
	p := attachedParticipant(t, channel.NewMemoryBus(), newFakeGateway())

	if err := p.AppendQuestion(context.Background(), models.LogEntry{ID: uuid.New(), Body: "   "}); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("empty body: got %v", err)
	}
	if err := p.AppendQuestion(context.Background(), models.LogEntry{Body: "no id"}); !errors.Is(err, ErrMissingID) {
		t.Errorf("missing id: got %v", err)
	}
	if len(p.Snapshot().Questions) != 0 {
		t.Error("rejected appends must have no side effect")
	}
}

// TestOwnEchoIsNoop verifies the writer receiving its own fan-out event does
// not duplicate the entry.
func TestOwnEchoIsNoop(t *testing.T) {
	p := attachedParticipant(t, channel.NewMemoryBus(), newFakeGateway())

	if err := p.AppendQuestion(context.Background(), question("why kimchi")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if n := len(p.Snapshot().Questions); n != 1 {
		t.Errorf("expected 1 entry after own echo, got %d", n)
	}
}

// TestTwoWritersConverge verifies two participants appending within the same
// instant both end up everywhere, no duplicate, no loss.
func TestTwoWritersConverge(t *testing.T) {
	bus := channel.NewMemoryBus()
	gw := newFakeGateway()
	alice := attachedParticipant(t, bus, gw)
	bob := attachedParticipant(t, bus, gw)
	host := attachedParticipant(t, bus, gw) // read side only

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := alice.AppendChat(context.Background(), question("hi from alice")); err != nil {
			t.Errorf("alice append: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := bob.AppendChat(context.Background(), question("hi from bob")); err != nil {
			t.Errorf("bob append: %v", err)
		}
	}()
	wg.Wait()

	for _, view := range []*ParticipantSession{alice, bob, host} {
		if n := len(view.Snapshot().Chat); n != 2 {
			t.Errorf("view has %d chat entries, want 2", n)
		}
	}
}

func TestLateJoinLoadsExistingEntries(t *testing.T) {
	bus := channel.NewMemoryBus()
	gw := newFakeGateway()
	writer := attachedParticipant(t, bus, gw)

	for i := 0; i < 3; i++ {
		e := question("q")
		e.CreatedAt = time.Now().Add(time.Duration(i) * time.Millisecond)
		if err := writer.AppendQuestion(context.Background(), e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	joiner := attachedParticipant(t, bus, gw)
	if n := len(joiner.Snapshot().Questions); n != 3 {
		t.Errorf("late joiner loaded %d entries, want 3", n)
	}
}

func TestHostModerationFansOut(t *testing.T) {
	bus := channel.NewMemoryBus()
	gw := newFakeGateway()

	host := NewHostSession(Config{Bus: bus, Gateway: gw, SessionID: 1, ClientID: uuid.New()})
	if err := host.Attach(context.Background()); err != nil {
		t.Fatalf("host attach: %v", err)
	}
	defer host.Close()
	p := attachedParticipant(t, bus, gw)

	e := question("pick me")
	if err := p.AppendQuestion(context.Background(), e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := host.SetHighlighted(context.Background(), e.ID, true); err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if err := host.SetAnswered(context.Background(), e.ID, true); err != nil {
		t.Fatalf("answer: %v", err)
	}

	got := p.Snapshot().Questions[e.ID]
	if !got.IsHighlighted || !got.IsAnswered {
		t.Errorf("moderation flags not propagated: %+v", got)
	}
}

// TestLikesConvergeAcrossPeers verifies the like count is a server-side
// atomic increment fanned out as an absolute value, never a client-side
// read-modify-write.
func TestLikesConvergeAcrossPeers(t *testing.T) {
	bus := channel.NewMemoryBus()
	gw := newFakeGateway()
	p1 := attachedParticipant(t, bus, gw)
	p2 := attachedParticipant(t, bus, gw)

	e := question("most liked")
	if err := p1.AppendQuestion(context.Background(), e); err != nil {
		t.Fatalf("append: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := p1.LikeQuestion(context.Background(), e.ID); err != nil {
			t.Fatalf("p1 like: %v", err)
		}
		if err := p2.LikeQuestion(context.Background(), e.ID); err != nil {
			t.Fatalf("p2 like: %v", err)
		}
	}

	for _, view := range []*ParticipantSession{p1, p2} {
		if got := view.Snapshot().Questions[e.ID].LikeCount; got != 10 {
			t.Errorf("like count %d, want 10", got)
		}
	}
	if err := p2.UnlikeQuestion(context.Background(), e.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if got := p1.Snapshot().Questions[e.ID].LikeCount; got != 9 {
		t.Errorf("like count after unlike %d, want 9", got)
	}
}

func TestRemovePropagates(t *testing.T) {
	bus := channel.NewMemoryBus()
	gw := newFakeGateway()

	host := NewHostSession(Config{Bus: bus, Gateway: gw, SessionID: 1, ClientID: uuid.New()})
	if err := host.Attach(context.Background()); err != nil {
		t.Fatalf("host attach: %v", err)
	}
	defer host.Close()
	p := attachedParticipant(t, bus, gw)

	e := question("off topic")
	if err := p.AppendChat(context.Background(), e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := host.RemoveEntry(context.Background(), models.LogKindChat, e.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if n := len(p.Snapshot().Chat); n != 0 {
		t.Errorf("entry still visible after remove: %d", n)
	}
	entries, _ := gw.ListLogEntries(context.Background(), 1, models.LogKindChat, gateway.DefaultLogLimit)
	if len(entries) != 0 {
		t.Errorf("entry still durable after remove")
	}
}

// TestPersistFailureKeepsOptimisticInsert verifies the documented tradeoff:
// a failed durable write surfaces to the caller but the local insert stays.
func TestPersistFailureKeepsOptimisticInsert(t *testing.T) {
	gw := newFakeGateway()
	gw.insertErr = errors.New("durable write rejected")
	p := attachedParticipant(t, channel.NewMemoryBus(), gw)

	e := question("ghost entry")
	if err := p.AppendQuestion(context.Background(), e); err == nil {
		t.Fatal("expected persist error")
	}
	if n := len(p.Snapshot().Questions); n != 1 {
		t.Errorf("optimistic insert rolled back: %d entries", n)
	}
}
