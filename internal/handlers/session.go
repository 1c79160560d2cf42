package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/live"
	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
	"github.com/seolcoding/dajam-sub000/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
	registry       *live.Registry
}

func NewSessionHandler(sessionService *services.SessionService, registry *live.Registry) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, registry: registry}
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"required,max=200" example:"Friday all-hands"`
}

// StateResponse is the late-join baseline: current scene plus the bounded
// tail of each log, oldest first.
type StateResponse struct {
	Session   *models.Session   `json:"session,omitempty"`
	Scene     scene.Scene       `json:"scene"`
	Questions []models.LogEntry `json:"questions"`
	Chat      []models.LogEntry `json:"chat"`
}

// CreateSession godoc
// @Summary      Create a live session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Session data"
// @Success      201 {object} models.Session
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	hostID := c.GetUint("host_id")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), hostID, req.Title)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary      List the host's sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} models.Session
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	hostID := c.GetUint("host_id")

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), hostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// ResolveCode godoc
// @Summary      Resolve a join code to a session
// @Tags         sessions
// @Produce      json
// @Param        code path string true "Join code"
// @Success      200 {object} models.Session
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/code/{code} [get]
func (h *SessionHandler) ResolveCode(c *gin.Context) {
	session, err := h.sessionService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetState godoc
// @Summary      Fetch the late-join baseline for a session
// @Description  Returns the current scene snapshot and the most recent log entries. Clients call this before subscribing to the websocket.
// @Tags         sessions
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {object} StateResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/state [get]
func (h *SessionHandler) GetState(c *gin.Context) {
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	host, err := h.registry.Host(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	snap := host.Snapshot()
	c.JSON(http.StatusOK, StateResponse{
		Session:   session,
		Scene:     snap.Scene,
		Questions: sortedEntries(snap.Questions),
		Chat:      sortedEntries(snap.Chat),
	})
}

// ChangeScene godoc
// @Summary      Change the active scene (host only)
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body scene.Scene true "Next scene"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/scene [post]
func (h *SessionHandler) ChangeScene(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	ok, err := h.sessionService.IsHost(c.Request.Context(), sessionID, hostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the session host may change the scene"})
		return
	}

	var sc scene.Scene
	if err := c.ShouldBindJSON(&sc); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	host, err := h.registry.Host(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if err := host.ChangeScene(c.Request.Context(), sc); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "scene updated"})
}

// EndSession godoc
// @Summary      End a session (host only)
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [delete]
func (h *SessionHandler) EndSession(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	if err := h.sessionService.EndSession(c.Request.Context(), sessionID, hostID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	h.registry.Release(sessionID)

	c.JSON(http.StatusOK, MessageResponse{Message: "session ended"})
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(id), err
}

func sortedEntries(m map[uuid.UUID]models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
