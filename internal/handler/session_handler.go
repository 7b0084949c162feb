package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/padmarajkore/sahayak-store/internal/models"
	"github.com/padmarajkore/sahayak-store/internal/service"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
	"github.com/padmarajkore/sahayak-store/pkg/response"
)

// SessionHandler exposes the session-continuity endpoints.
type SessionHandler struct {
	sessions     *service.SessionService
	defaultAppID string
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService, defaultAppID string) *SessionHandler {
	return &SessionHandler{sessions: sessions, defaultAppID: defaultAppID}
}

func (h *SessionHandler) appID(c *gin.Context) string {
	if app := c.Query("app_id"); app != "" {
		return app
	}
	return h.defaultAppID
}

// List godoc
// @Summary List a user's sessions with state summaries
// @Tags Sessions
// @Produce json
// @Param userId path string true "User ID"
// @Param app_id query string false "Application scope"
// @Success 200 {object} response.Envelope
// @Router /sessions/{userId} [get]
func (h *SessionHandler) List(c *gin.Context) {
	userID := c.Param("userId")
	summaries, err := h.sessions.Summaries(c.Request.Context(), userID, h.appID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, map[string]interface{}{
		"user_id":        userID,
		"total_sessions": len(summaries),
	})
}

// GetOrCreate godoc
// @Summary Get the user's current session, creating one on first contact
// @Tags Sessions
// @Produce json
// @Param userId path string true "User ID"
// @Param app_id query string false "Application scope"
// @Param force_new query bool false "Always start a fresh session"
// @Success 200 {object} response.Envelope
// @Router /sessions/{userId} [post]
func (h *SessionHandler) GetOrCreate(c *gin.Context) {
	userID := c.Param("userId")
	appID := h.appID(c)

	var session *models.Session
	var err error
	if c.Query("force_new") == "true" {
		session, err = h.sessions.StartNew(c.Request.Context(), userID, appID)
	} else {
		session, err = h.sessions.GetOrCreate(c.Request.Context(), userID, appID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Get godoc
// @Summary Get one session with its full state
// @Tags Sessions
// @Produce json
// @Param userId path string true "User ID"
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{userId}/{sessionId} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Load(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if session.UserID != c.Param("userId") {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "session not found for this user"))
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// UpdateState godoc
// @Summary Merge a partial state patch into a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param sessionId path string true "Session ID"
// @Param payload body models.State true "State patch"
// @Success 200 {object} response.Envelope
// @Router /sessions/{userId}/{sessionId}/state [patch]
func (h *SessionHandler) UpdateState(c *gin.Context) {
	var patch models.State
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid state patch"))
		return
	}
	existing, err := h.sessions.Load(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing.UserID != c.Param("userId") {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "session not found for this user"))
		return
	}
	session, err := h.sessions.UpdateState(c.Request.Context(), existing.ID, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}
