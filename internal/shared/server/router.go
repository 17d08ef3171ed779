package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gitscore-backend/internal/analyses"
	"gitscore-backend/internal/payments"
	"gitscore-backend/internal/shared/config"
	"gitscore-backend/internal/shared/metrics"
	"gitscore-backend/internal/shared/server/middleware"
	"gitscore-backend/internal/shared/server/respond"
)

// RouterDeps carries everything the router needs to register routes.
type RouterDeps struct {
	Config          config.Config
	DB              *sql.DB
	AnalysisHandler *analyses.Handler
	PaymentsHandler *payments.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: "DEFAULT",
			GroupFor:     rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 5, Burst: 20},
				"POLLING": {Rate: 20, Burst: 60},
				// The payment provider retries aggressively; never throttle it.
			},
		}),
	)

	api := r.Group("/api")
	api.GET("/health", healthHandler(deps.DB))
	r.GET("/metrics", metrics.Handler())

	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.PaymentsHandler != nil {
		deps.PaymentsHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimitGroup sorts requests into burst-limit buckets. Status polling
// gets a higher ceiling since the frontend polls it every few seconds, and
// webhooks bypass the bucket entirely.
func rateLimitGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case path == "/api/webhooks/payments":
		return "WEBHOOK"
	case c.Request.Method == http.MethodGet && path == "/api/analysis/:uuid/status":
		return "POLLING"
	default:
		return "DEFAULT"
	}
}

func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"ok": true, "database": "disabled"}
		if db != nil {
			pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unreachable"})
				return
			}
			payload["database"] = "ok"
		}
		respond.JSON(c, http.StatusOK, payload)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
