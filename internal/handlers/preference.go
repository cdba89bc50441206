package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
)

type PreferenceHandler struct {
	log *logger.Logger
	svc services.PreferenceService
}

func NewPreferenceHandler(log *logger.Logger, svc services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{
		log: log.With("handler", "PreferenceHandler"),
		svc: svc,
	}
}

// Report runs a fresh analysis pass and returns it.
func (h *PreferenceHandler) Report(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	report, err := h.svc.AnalyzeFeedbackPatterns(dbctx.New(c.Request.Context()), userID)
	if err != nil {
		h.log.Error("Preference analysis failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Reset deletes all persisted preferences for the user.
func (h *PreferenceHandler) Reset(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	n, err := h.svc.ResetPreferences(dbctx.New(c.Request.Context()), userID)
	if err != nil {
		h.log.Error("Preference reset failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows_deleted": n})
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("user_id")
	if raw == "" {
		raw = c.Query("user_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return uuid.Nil, false
	}
	return id, true
}
