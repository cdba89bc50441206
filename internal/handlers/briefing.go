package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chief-of-staff/internal/data/repos/user"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
)

type BriefingHandler struct {
	log      *logger.Logger
	svc      services.BriefingService
	userRepo user.UserRepo
}

func NewBriefingHandler(log *logger.Logger, svc services.BriefingService, userRepo user.UserRepo) *BriefingHandler {
	return &BriefingHandler{
		log:      log.With("handler", "BriefingHandler"),
		svc:      svc,
		userRepo: userRepo,
	}
}

// Run generates and delivers a briefing on demand, outside the schedule.
func (h *BriefingHandler) Run(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	dbc := dbctx.New(c.Request.Context())

	u, err := h.userRepo.GetByID(dbc, userID)
	if err != nil {
		h.log.Error("User lookup failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	briefing, err := h.svc.GenerateAndDeliver(dbc, u)
	if err != nil {
		h.log.Error("Briefing run failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "briefing failed"})
		return
	}
	if briefing == nil {
		c.JSON(http.StatusOK, gin.H{"message": "no active issues"})
		return
	}
	c.JSON(http.StatusOK, briefing)
}
