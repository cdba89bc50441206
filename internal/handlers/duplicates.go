package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
)

type DuplicateHandler struct {
	log *logger.Logger
	svc services.DuplicateService
}

func NewDuplicateHandler(log *logger.Logger, svc services.DuplicateService) *DuplicateHandler {
	return &DuplicateHandler{
		log: log.With("handler", "DuplicateHandler"),
		svc: svc,
	}
}

// List returns duplicate pairs across all issues. ?min_similarity=0.7 and
// ?active_only=true tune the scan; ?format=text returns the report instead.
func (h *DuplicateHandler) List(c *gin.Context) {
	minSim := parseFloatQuery(c, "min_similarity", 0.7)
	activeOnly := c.DefaultQuery("active_only", "true") == "true"

	pairs, err := h.svc.FindDuplicates(dbctx.New(c.Request.Context()), minSim, activeOnly)
	if err != nil {
		h.log.Error("Duplicate scan failed", "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "duplicate scan failed"})
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, h.svc.FormatDuplicateReport(pairs))
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairs": pairs, "count": len(pairs)})
}

// CheckIssue returns pairs involving one issue.
func (h *DuplicateHandler) CheckIssue(c *gin.Context) {
	issueID := c.Param("issue_id")
	if issueID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issue_id required"})
		return
	}
	minSim := parseFloatQuery(c, "min_similarity", 0.7)

	pairs, err := h.svc.CheckIssueForDuplicates(dbctx.New(c.Request.Context()), issueID, minSim)
	if err != nil {
		h.log.Error("Duplicate check failed", "issue_id", issueID, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "duplicate check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairs": pairs, "count": len(pairs)})
}

func parseFloatQuery(c *gin.Context, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v > 1 {
		return def
	}
	return v
}
