package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/live"
	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/services"
)

type WSHandler struct {
	hub            *channel.Hub
	registry       *live.Registry
	sessionService *services.SessionService
}

func NewWSHandler(hub *channel.Hub, registry *live.Registry, sessionService *services.SessionService) *WSHandler {
	return &WSHandler{hub: hub, registry: registry, sessionService: sessionService}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsAppend struct {
	ID         uuid.UUID      `json:"id"`
	Kind       models.LogKind `json:"kind"`
	AuthorName string         `json:"author_name"`
	Body       string         `json:"body"`
}

type wsReaction struct {
	Emoji string `json:"emoji"`
}

type wsLike struct {
	ID    uuid.UUID `json:"id"`
	Delta int       `json:"delta"`
}

// HandleSession godoc
// @Summary      WebSocket attach to a live session
// @Description  Pushes scene, log and reaction events; accepts append, like and reaction frames from participants.
// @Tags         websocket
// @Param        id path int true "Session ID"
// @Param        client_id query string false "Stable client UUID"
// @Router       /ws/session/{id} [get]
func (h *WSHandler) HandleSession(c *gin.Context) {
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}
	if _, err := h.sessionService.GetByID(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	clientID, err := uuid.Parse(c.Query("client_id"))
	if err != nil {
		clientID = uuid.New()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	sid := sidString(sessionID)
	h.hub.AddConnection(sid, conn)
	defer h.hub.RemoveConnection(sid, conn)

	// The subscription is live now; pushing the baseline afterwards means a
	// scene change racing the connect is either in the baseline or delivered
	// as an event, never lost.
	if err := h.pushState(c.Request.Context(), sessionID, conn); err != nil {
		log.Printf("ws: initial state push failed: %v", err)
		return
	}

	// Per-connection participant view: carries this client's reaction
	// throttle and append path. Not attached; the hub does the forwarding.
	p := h.registry.Participant(sessionID, clientID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.dispatch(p, clientID, data)
	}
}

func (h *WSHandler) pushState(ctx context.Context, sessionID uint, conn *websocket.Conn) error {
	host, err := h.registry.Host(ctx, sessionID)
	if err != nil {
		return err
	}
	snap := host.Snapshot()

	state, err := json.Marshal(StateResponse{
		Scene:     snap.Scene,
		Questions: sortedEntries(snap.Questions),
		Chat:      sortedEntries(snap.Chat),
	})
	if err != nil {
		return err
	}
	// The connection is already registered, so a broadcast may be writing to
	// it; the hub serializes this write with its own.
	return h.hub.Send(conn, channel.Frame{Type: "state", Data: state})
}

func (h *WSHandler) dispatch(p *live.ParticipantSession, clientID uuid.UUID, data []byte) {
	var frame channel.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("ws: bad frame: %v", err)
		return
	}

	ctx := context.Background()
	switch frame.Type {
	case "append":
		var req wsAppend
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			log.Printf("ws: bad append frame: %v", err)
			return
		}
		entry := models.LogEntry{ID: req.ID, AuthorID: &clientID, AuthorName: req.AuthorName, Body: req.Body}
		var err error
		if req.Kind == models.LogKindChat {
			err = p.AppendChat(ctx, entry)
		} else {
			err = p.AppendQuestion(ctx, entry)
		}
		if err != nil {
			log.Printf("ws: append rejected: %v", err)
		}
	case "like":
		var req wsLike
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			log.Printf("ws: bad like frame: %v", err)
			return
		}
		var err error
		if req.Delta < 0 {
			err = p.UnlikeQuestion(ctx, req.ID)
		} else {
			err = p.LikeQuestion(ctx, req.ID)
		}
		if err != nil {
			log.Printf("ws: like rejected: %v", err)
		}
	case "reaction":
		var req wsReaction
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			log.Printf("ws: bad reaction frame: %v", err)
			return
		}
		if err := p.SendReaction(req.Emoji); err != nil {
			log.Printf("ws: reaction failed: %v", err)
		}
	default:
		log.Printf("ws: unknown frame type %q", frame.Type)
	}
}

func sidString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
