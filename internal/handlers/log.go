package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/live"
	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/services"
)

// LogHandler covers the append-only collections: participant appends and
// likes over HTTP, host moderation behind JWT.
type LogHandler struct {
	sessionService *services.SessionService
	registry       *live.Registry
}

func NewLogHandler(sessionService *services.SessionService, registry *live.Registry) *LogHandler {
	return &LogHandler{sessionService: sessionService, registry: registry}
}

type AppendRequest struct {
	ID         uuid.UUID      `json:"id" binding:"required"`
	Kind       models.LogKind `json:"kind" binding:"required,oneof=question chat"`
	AuthorID   *uuid.UUID     `json:"author_id"`
	AuthorName string         `json:"author_name" binding:"required,max=100"`
	Body       string         `json:"body" binding:"required"`
}

// Append godoc
// @Summary      Append a question or chat message
// @Description  The id is assigned by the client so retries and redeliveries merge instead of duplicating.
// @Tags         logs
// @Accept       json
// @Produce      json
// @Param        id path int true "Session ID"
// @Param        request body AppendRequest true "Entry"
// @Success      201 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/entries [post]
func (h *LogHandler) Append(c *gin.Context) {
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}
	if _, err := h.sessionService.GetByID(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	clientID := req.ID
	if req.AuthorID != nil {
		clientID = *req.AuthorID
	}
	p := h.registry.Participant(sessionID, clientID)

	entry := models.LogEntry{
		ID:         req.ID,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		Body:       req.Body,
	}
	if req.Kind == models.LogKindChat {
		err = p.AppendChat(c.Request.Context(), entry)
	} else {
		err = p.AppendQuestion(c.Request.Context(), entry)
	}
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, live.ErrEmptyBody) && !errors.Is(err, live.ErrMissingID) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "entry appended"})
}

// Like godoc
// @Summary      Like a question
// @Tags         logs
// @Produce      json
// @Param        id path int true "Session ID"
// @Param        entry_id path string true "Entry ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/entries/{entry_id}/like [post]
func (h *LogHandler) Like(c *gin.Context) {
	h.addLike(c, +1)
}

// Unlike godoc
// @Summary      Remove a like from a question
// @Tags         logs
// @Produce      json
// @Param        id path int true "Session ID"
// @Param        entry_id path string true "Entry ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/entries/{entry_id}/like [delete]
func (h *LogHandler) Unlike(c *gin.Context) {
	h.addLike(c, -1)
}

func (h *LogHandler) addLike(c *gin.Context, delta int) {
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}
	entryID, err := uuid.Parse(c.Param("entry_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid entry id"})
		return
	}

	p := h.registry.Participant(sessionID, uuid.New())
	if delta > 0 {
		err = p.LikeQuestion(c.Request.Context(), entryID)
	} else {
		err = p.UnlikeQuestion(c.Request.Context(), entryID)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gateway.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "like updated"})
}

type ModerateRequest struct {
	IsHighlighted *bool `json:"is_highlighted"`
	IsAnswered    *bool `json:"is_answered"`
}

// Moderate godoc
// @Summary      Set moderation flags on a question (host only)
// @Tags         logs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        entry_id path string true "Entry ID"
// @Param        request body ModerateRequest true "Flags"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/entries/{entry_id} [put]
func (h *LogHandler) Moderate(c *gin.Context) {
	host, entryID, ok := h.hostAndEntry(c)
	if !ok {
		return
	}

	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if req.IsHighlighted != nil {
		if err := host.SetHighlighted(c.Request.Context(), entryID, *req.IsHighlighted); err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
	}
	if req.IsAnswered != nil {
		if err := host.SetAnswered(c.Request.Context(), entryID, *req.IsAnswered); err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "entry updated"})
}

// Remove godoc
// @Summary      Delete an entry (host only)
// @Tags         logs
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        entry_id path string true "Entry ID"
// @Param        kind query string false "Entry kind" Enums(question, chat)
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/entries/{entry_id} [delete]
func (h *LogHandler) Remove(c *gin.Context) {
	host, entryID, ok := h.hostAndEntry(c)
	if !ok {
		return
	}

	kind := models.LogKind(c.DefaultQuery("kind", string(models.LogKindQuestion)))
	if err := host.RemoveEntry(c.Request.Context(), kind, entryID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "entry removed"})
}

// hostAndEntry authorizes the host-only moderation routes before any core
// operation runs.
func (h *LogHandler) hostAndEntry(c *gin.Context) (*live.HostSession, uuid.UUID, bool) {
	hostID := c.GetUint("host_id")
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return nil, uuid.Nil, false
	}
	entryID, err := uuid.Parse(c.Param("entry_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid entry id"})
		return nil, uuid.Nil, false
	}

	isHost, err := h.sessionService.IsHost(c.Request.Context(), sessionID, hostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return nil, uuid.Nil, false
	}
	if !isHost {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the session host may moderate entries"})
		return nil, uuid.Nil, false
	}

	host, err := h.registry.Host(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return nil, uuid.Nil, false
	}
	return host, entryID, true
}
