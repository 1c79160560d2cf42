package live

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// DefaultDebounce coalesces rapid scene changes (slide next/prev spamming)
// into one broadcast.
const DefaultDebounce = 100 * time.Millisecond

// SceneSynchronizer keeps the host-authoritative scene in sync: the host's
// local store is updated immediately, the broadcast is debounced, and a
// durable snapshot is upserted so late joiners can catch up.
type SceneSynchronizer struct {
	store     *Store
	ch        *channel.Channel
	gw        gateway.Gateway
	sessionID uint
	debounce  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	lastBroadcast time.Time
	pending       *scene.Scene
	timer         *time.Timer
	flushRetries  int
}

// maxFlushRetries bounds how often a failed coalesced flush is re-armed. The
// ChangeScene call that produced it has already returned, so dropping the
// scene on the first failure would lose it silently.
const maxFlushRetries = 3

func NewSceneSynchronizer(store *Store, ch *channel.Channel, gw gateway.Gateway, sessionID uint, debounce time.Duration) *SceneSynchronizer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &SceneSynchronizer{
		store:     store,
		ch:        ch,
		gw:        gw,
		sessionID: sessionID,
		debounce:  debounce,
		now:       time.Now,
	}
}

// ChangeScene validates and applies the scene locally (read-your-writes),
// then broadcasts it. Calls landing inside the debounce window are coalesced:
// the latest scene wins and goes out once when the window closes. The durable
// snapshot is written before the publish so a participant joining right after
// hearing the broadcast always finds at least this scene stored. Persistence
// failures on the immediate path are returned; a coalesced flush that fails
// is retried in the background, since its caller has already returned.
func (s *SceneSynchronizer) ChangeScene(ctx context.Context, sc scene.Scene) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	now := s.now()
	s.store.Apply(Event{Type: EventSceneChanged, Scene: &sc, At: now})

	s.mu.Lock()
	if elapsed := now.Sub(s.lastBroadcast); elapsed < s.debounce {
		s.pending = &sc
		if s.timer == nil {
			s.timer = time.AfterFunc(s.debounce-elapsed, s.flushPending)
		}
		s.mu.Unlock()
		return nil
	}
	s.lastBroadcast = now
	s.mu.Unlock()

	return s.broadcast(ctx, sc)
}

func (s *SceneSynchronizer) flushPending() {
	s.mu.Lock()
	sc := s.pending
	s.pending = nil
	s.timer = nil
	if sc != nil {
		s.lastBroadcast = s.now()
	}
	s.mu.Unlock()

	if sc == nil {
		return
	}
	if err := s.broadcast(context.Background(), *sc); err != nil {
		log.Printf("scene: coalesced broadcast failed: %v", err)
		s.mu.Lock()
		// Only re-arm if no newer change superseded this one meanwhile.
		if s.pending == nil && s.flushRetries < maxFlushRetries {
			s.flushRetries++
			s.pending = sc
			if s.timer == nil {
				s.timer = time.AfterFunc(s.debounce, s.flushPending)
			}
		}
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.flushRetries = 0
	s.mu.Unlock()
}

func (s *SceneSynchronizer) broadcast(ctx context.Context, sc scene.Scene) error {
	if err := s.gw.PutSnapshot(ctx, s.sessionID, sc); err != nil {
		return err
	}

	payload, err := sc.Encode()
	if err != nil {
		return err
	}
	if err := s.ch.Publish(channel.TopicScene, payload); err != nil {
		// No retry: participants keep their last-known scene until the
		// next broadcast or their own re-fetch.
		log.Printf("scene: publish failed: %v", err)
	}
	return nil
}

// Attach performs late-join catch-up: read the persisted snapshot, apply it,
// and only then subscribe to live changes. Fetch-then-subscribe closes the
// gap where a broadcast sent while joining would otherwise be missed. Remote
// scenes are applied unconditionally; the host is authoritative.
func (s *SceneSynchronizer) Attach(ctx context.Context) (func(), error) {
	sc, err := s.gw.GetSnapshot(ctx, s.sessionID)
	if err != nil {
		return nil, err
	}
	if sc != nil {
		s.store.Apply(Event{Type: EventSceneChanged, Scene: sc, At: s.now()})
	}

	unsub := s.ch.Subscribe(channel.TopicScene, func(payload []byte) {
		remote, err := scene.Decode(payload)
		if err != nil {
			log.Printf("scene: dropping bad payload: %v", err)
			return
		}
		s.store.Apply(Event{Type: EventSceneChanged, Scene: &remote, At: s.now()})
	})
	return unsub, nil
}

func (s *SceneSynchronizer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}
