package live

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// Config wires one client's view of a session. Every joined session gets its
// own explicitly constructed store; nothing here is process-global.
type Config struct {
	Bus       channel.Bus
	Gateway   gateway.Gateway
	SessionID uint
	// ClientID identifies this client as reaction sender and default
	// log-entry author.
	ClientID uuid.UUID
	// Debounce overrides the scene rebroadcast window; zero means default.
	Debounce time.Duration
}

// session bundles the components every role shares. Host-only operations are
// deliberately not defined here; they exist only on HostSession, so a
// participant-configured instance cannot reach them.
type session struct {
	store     *Store
	scenes    *SceneSynchronizer
	questions *AppendOnlyLog
	chat      *AppendOnlyLog
	reactions *Reactions
	unsubs    []func()
}

func newSession(cfg Config) *session {
	store := NewStore()
	ch := channel.New(cfg.Bus, strconv.FormatUint(uint64(cfg.SessionID), 10))
	return &session{
		store:     store,
		scenes:    NewSceneSynchronizer(store, ch, cfg.Gateway, cfg.SessionID, cfg.Debounce),
		questions: NewAppendOnlyLog(store, ch, cfg.Gateway, cfg.SessionID, models.LogKindQuestion),
		chat:      NewAppendOnlyLog(store, ch, cfg.Gateway, cfg.SessionID, models.LogKindChat),
		reactions: NewReactions(ch, cfg.ClientID),
	}
}

// attach joins the session: fetch each baseline, then subscribe, component by
// component. On any failure every subscription made so far is released.
func (s *session) attach(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	unsub, err := s.scenes.Attach(ctx)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	unsub, err = s.questions.Attach(ctx)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	unsub, err = s.chat.Attach(ctx)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsub)

	s.unsubs = append(s.unsubs, s.reactions.Attach())
	return nil
}

// Close releases every subscription. Teardown is immediate: no delivery after
// Close returns.
func (s *session) Close() {
	s.scenes.stop()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *session) Snapshot() Snapshot {
	return s.store.Snapshot()
}

func (s *session) RecentReactions() []Reaction {
	return s.reactions.Recent()
}

func (s *session) AppendQuestion(ctx context.Context, e models.LogEntry) error {
	return s.questions.Append(ctx, e)
}

func (s *session) AppendChat(ctx context.Context, e models.LogEntry) error {
	return s.chat.Append(ctx, e)
}

func (s *session) LikeQuestion(ctx context.Context, id uuid.UUID) error {
	return s.questions.IncrementLike(ctx, id)
}

func (s *session) UnlikeQuestion(ctx context.Context, id uuid.UUID) error {
	return s.questions.DecrementLike(ctx, id)
}

func (s *session) SendReaction(emoji string) error {
	return s.reactions.Send(emoji)
}

// ParticipantSession is the surface handed to non-host clients: append, like,
// react, read. No scene mutation, no moderation.
type ParticipantSession struct {
	*session
}

func NewParticipantSession(cfg Config) *ParticipantSession {
	return &ParticipantSession{session: newSession(cfg)}
}

func (s *ParticipantSession) Attach(ctx context.Context) error {
	return s.attach(ctx)
}

// HostSession adds the host-only mutations on top of everything participants
// can do.
type HostSession struct {
	*session
}

func NewHostSession(cfg Config) *HostSession {
	return &HostSession{session: newSession(cfg)}
}

func (s *HostSession) Attach(ctx context.Context) error {
	return s.attach(ctx)
}

func (s *HostSession) ChangeScene(ctx context.Context, sc scene.Scene) error {
	return s.scenes.ChangeScene(ctx, sc)
}

func (s *HostSession) SetHighlighted(ctx context.Context, id uuid.UUID, v bool) error {
	return s.questions.updateFlags(ctx, id, LogFields{IsHighlighted: &v})
}

func (s *HostSession) SetAnswered(ctx context.Context, id uuid.UUID, v bool) error {
	return s.questions.updateFlags(ctx, id, LogFields{IsAnswered: &v})
}

func (s *HostSession) RemoveEntry(ctx context.Context, kind models.LogKind, id uuid.UUID) error {
	if kind == models.LogKindChat {
		return s.chat.Remove(ctx, id)
	}
	return s.questions.Remove(ctx, id)
}
