package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gitscore-backend/internal/scoring"
	"gitscore-backend/internal/shared/server/respond"
	"gitscore-backend/internal/throttle"
)

const (
	freeDealBreakerLimit = 3
	freeStrengthLimit    = 2
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc      *Service
	Throttle *throttle.Service
	poll     *pollLimiter
}

// NewHandler constructs a Handler. Throttle may be nil to disable the
// per-address ceiling (tests).
func NewHandler(svc *Service, throttleSvc *throttle.Service) *Handler {
	return &Handler{
		Svc:      svc,
		Throttle: throttleSvc,
		poll:     newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.createAnalysis)
	rg.GET("/analysis/:uuid", h.getAnalysis)
	rg.GET("/analysis/:uuid/status", h.getAnalysisStatus)
	rg.GET("/analysis/:uuid/full", h.getFullAnalysis)
}

type analyzeRequest struct {
	Username string `json:"username"`
}

func (h *Handler) createAnalysis(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "GitHub username is required.", nil)
		return
	}
	if _, err := NormalizeUsername(req.Username); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid GitHub username format.", nil)
		return
	}

	addr := c.ClientIP()
	if addr == "" {
		addr = "unknown"
	}
	if h.Throttle != nil {
		allowed, err := h.Throttle.Allow(c.Request.Context(), addr)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"message":     "Rate limit exceeded. Please try again later.",
				"retry_after": int(throttle.DefaultWindow.Seconds()),
			})
			return
		}
		if err := h.Throttle.Increment(c.Request.Context(), addr); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
			return
		}
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	analysis, err := h.Svc.Create(ctx, req.Username, addr)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUsername):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid GitHub username format.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"data": gin.H{
			"id":         analysis.UUID,
			"username":   analysis.Username,
			"status":     string(analysis.Status),
			"created_at": analysis.CreatedAt.Format(time.RFC3339),
		},
		"links": gin.H{
			"self":   "/api/analysis/" + analysis.UUID,
			"status": "/api/analysis/" + analysis.UUID + "/status",
		},
	})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysis, ok := h.lookup(c)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"data": reportPayload(analysis)})
}

func (h *Handler) getAnalysisStatus(c *gin.Context) {
	if !h.poll.Allow(c.ClientIP(), c.Param("uuid")) {
		c.Header("Retry-After", strconv.Itoa(h.poll.RetryAfterSeconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message": "Polling too fast. Please slow down.",
		})
		return
	}
	analysis, ok := h.lookup(c)
	if !ok {
		return
	}
	payload := gin.H{
		"id":       analysis.UUID,
		"status":   string(analysis.Status),
		"progress": analysis.Status.Progress(),
	}
	if analysis.Status == StatusCompleted {
		payload["redirect"] = "/analysis/" + analysis.UUID
	}
	if analysis.Status == StatusFailed && analysis.ErrorMessage != nil {
		payload["error"] = *analysis.ErrorMessage
	}
	respond.JSON(c, http.StatusOK, gin.H{"data": payload})
}

func (h *Handler) getFullAnalysis(c *gin.Context) {
	analysis, ok := h.lookup(c)
	if !ok {
		return
	}
	if !analysis.IsPaid {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"message": "Payment required for full report",
			"links": gin.H{
				"checkout": "/api/checkout/create",
			},
		})
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"data": fullReportPayload(analysis)})
}

func (h *Handler) lookup(c *gin.Context) (Analysis, bool) {
	analysisUUID := c.Param("uuid")
	if analysisUUID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return Analysis{}, false
	}
	analysis, err := h.Svc.Get(c.Request.Context(), analysisUUID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis not found.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return Analysis{}, false
	}
	return analysis, true
}

// reportPayload renders the free-tier report. Unpaid reports get truncated
// deal breakers and strengths; the checklist is paid-only.
func reportPayload(a Analysis) gin.H {
	completed := a.Status == StatusCompleted
	level := scoring.LevelForScore(a.OverallScore)

	payload := gin.H{
		"id":            a.UUID,
		"username":      a.Username,
		"status":        string(a.Status),
		"overall_score": a.OverallScore,
		"score_level": gin.H{
			"name":  string(level),
			"label": level.Label(),
			"color": level.Color(),
		},
		"is_paid":      a.IsPaid,
		"created_at":   a.CreatedAt.Format(time.RFC3339),
		"completed_at": formatTimePtr(a.CompletedAt),
	}
	if !completed {
		return payload
	}

	payload["category_scores"] = categoryScores(a)
	payload["summary"] = a.aiField("summary")
	payload["first_impression"] = a.aiField("first_impression")

	dealBreakers := a.DealBreakers()
	strengths := a.Strengths()
	if !a.IsPaid {
		dealBreakers = truncateList(dealBreakers, freeDealBreakerLimit)
		strengths = truncateList(strengths, freeStrengthLimit)
	}
	payload["deal_breakers"] = dealBreakers
	payload["strengths"] = strengths
	if a.IsPaid {
		payload["improvement_checklist"] = a.ImprovementChecklist()
	}
	return payload
}

// fullReportPayload renders the paid report with the complete AI document.
func fullReportPayload(a Analysis) gin.H {
	level := scoring.LevelForScore(a.OverallScore)
	return gin.H{
		"id":            a.UUID,
		"username":      a.Username,
		"status":        string(a.Status),
		"overall_score": a.OverallScore,
		"score_level": gin.H{
			"name":        string(level),
			"label":       level.Label(),
			"color":       level.Color(),
			"description": level.Description(),
		},
		"category_scores":       categoryScores(a),
		"summary":               a.aiField("summary"),
		"first_impression":      a.aiField("first_impression"),
		"recruiter_perspective": a.aiField("recruiter_perspective"),
		"categories":            a.aiField("categories"),
		"deal_breakers":         a.DealBreakers(),
		"strengths":             a.Strengths(),
		"top_projects_analysis": a.aiField("top_projects_analysis"),
		"improvement_checklist": a.ImprovementChecklist(),
		"github_data":           a.GitHubData,
		"is_paid":               a.IsPaid,
		"created_at":            a.CreatedAt.Format(time.RFC3339),
		"completed_at":          formatTimePtr(a.CompletedAt),
	}
}

func categoryScores(a Analysis) gin.H {
	return gin.H{
		"profile":     a.ProfileScore,
		"projects":    a.ProjectsScore,
		"consistency": a.ConsistencyScore,
		"technical":   a.TechnicalScore,
		"community":   a.CommunityScore,
	}
}

func truncateList(list []any, max int) []any {
	if len(list) <= max {
		return list
	}
	return list[:max]
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
