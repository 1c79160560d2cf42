package live

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/gateway"
)

// Registry holds the server-side host session per live session id. Host
// sessions are created lazily on first use and shared by the host's HTTP
// requests; participant sessions are cheap per-client views and are not
// pooled.
type Registry struct {
	bus channel.Bus
	gw  gateway.Gateway

	mu    sync.Mutex
	hosts map[uint]*HostSession
}

func NewRegistry(bus channel.Bus, gw gateway.Gateway) *Registry {
	return &Registry{
		bus:   bus,
		gw:    gw,
		hosts: make(map[uint]*HostSession),
	}
}

// Host returns the attached host session for a session id, creating it on
// first use.
func (r *Registry) Host(ctx context.Context, sessionID uint) (*HostSession, error) {
	r.mu.Lock()
	if hs, ok := r.hosts[sessionID]; ok {
		r.mu.Unlock()
		return hs, nil
	}
	r.mu.Unlock()

	hs := NewHostSession(Config{Bus: r.bus, Gateway: r.gw, SessionID: sessionID, ClientID: uuid.New()})
	if err := hs.Attach(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.hosts[sessionID]; ok {
		// Lost the race to another request; keep the first one.
		hs.Close()
		return existing, nil
	}
	r.hosts[sessionID] = hs
	return hs, nil
}

// Participant builds an unattached participant view: it can append, like and
// react through the shared bus and gateway, but carries no store of its own.
// Transport handlers that need a materialized view call Attach themselves.
func (r *Registry) Participant(sessionID uint, clientID uuid.UUID) *ParticipantSession {
	return NewParticipantSession(Config{Bus: r.bus, Gateway: r.gw, SessionID: sessionID, ClientID: clientID})
}

// Release tears down the host session for a session id, if present.
func (r *Registry) Release(sessionID uint) {
	r.mu.Lock()
	hs, ok := r.hosts[sessionID]
	delete(r.hosts, sessionID)
	r.mu.Unlock()
	if ok {
		hs.Close()
	}
}
