package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/channel"
)

const (
	// ReactionExpiry is how long a received reaction stays visible.
	ReactionExpiry = 2000 * time.Millisecond
	// ReactionMinInterval is the per-emoji send throttle; sends inside the
	// window are dropped, not queued.
	ReactionMinInterval = 500 * time.Millisecond
	// ReactionRingSize bounds the recent-reactions window.
	ReactionRingSize = 20
)

// Reaction is purely ephemeral: never persisted, never part of catch-up,
// gone from every screen about two seconds after it lands.
type Reaction struct {
	ID       uuid.UUID `json:"id"`
	Emoji    string    `json:"emoji"`
	SenderID uuid.UUID `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

// Reactions is the fire-and-forget emoji channel. Sending is throttled per
// emoji kind; receiving keeps a bounded sliding window of recent events.
type Reactions struct {
	ch          *channel.Channel
	senderID    uuid.UUID
	expiry      time.Duration
	minInterval time.Duration
	ringSize    int
	now         func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	recent   []Reaction
}

func NewReactions(ch *channel.Channel, senderID uuid.UUID) *Reactions {
	return &Reactions{
		ch:          ch,
		senderID:    senderID,
		expiry:      ReactionExpiry,
		minInterval: ReactionMinInterval,
		ringSize:    ReactionRingSize,
		now:         time.Now,
		lastSent:    make(map[string]time.Time),
	}
}

// Send publishes one reaction unless the same emoji was sent inside the
// throttle window; throttled sends are silently dropped. The error covers
// only marshal/transport problems, never throttling.
func (r *Reactions) Send(emoji string) error {
	if emoji == "" {
		return nil
	}

	now := r.now()
	r.mu.Lock()
	if last, ok := r.lastSent[emoji]; ok && now.Sub(last) < r.minInterval {
		r.mu.Unlock()
		return nil
	}
	r.lastSent[emoji] = now
	r.mu.Unlock()

	ev := Reaction{
		ID:       uuid.New(),
		Emoji:    emoji,
		SenderID: r.senderID,
		SentAt:   now,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.ch.Publish(channel.TopicReactions, payload)
}

// Attach subscribes to incoming reactions. No baseline fetch exists for this
// topic; missed reactions are simply gone.
func (r *Reactions) Attach() func() {
	return r.ch.Subscribe(channel.TopicReactions, r.onRemote)
}

func (r *Reactions) onRemote(payload []byte) {
	var ev Reaction
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("reactions: dropping bad payload: %v", err)
		return
	}

	r.mu.Lock()
	if len(r.recent) >= r.ringSize {
		r.recent = r.recent[1:]
	}
	r.recent = append(r.recent, ev)
	r.mu.Unlock()

	// Each reaction expires on its own clock, regardless of arrivals
	// after it.
	time.AfterFunc(r.expiry, func() { r.expire(ev.ID) })
}

func (r *Reactions) expire(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ev := range r.recent {
		if ev.ID == id {
			r.recent = append(r.recent[:i], r.recent[i+1:]...)
			return
		}
	}
}

// Recent returns the current sliding window, oldest first.
func (r *Reactions) Recent() []Reaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reaction, len(r.recent))
	copy(out, r.recent)
	return out
}
