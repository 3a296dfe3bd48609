package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/account"
	"lexease-backend/internal/analyses"
	googleauth "lexease-backend/internal/auth"
	"lexease-backend/internal/documents"
	"lexease-backend/internal/drafting"
	"lexease-backend/internal/events"
	"lexease-backend/internal/qa"
	"lexease-backend/internal/services/health"
	"lexease-backend/internal/shared/config"
	"lexease-backend/internal/shared/metrics"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/server/respond"
	"lexease-backend/internal/users"
)

const apiPrefix = "/api/v1"

// RouterDeps carries the handlers registered on the router. Nil handlers
// are skipped.
type RouterDeps struct {
	Config     config.Config
	Documents  *documents.Handler
	Analyses   *analyses.Handler
	Events     *events.Handler
	QA         *qa.Handler
	Drafting   *drafting.Handler
	Users      *users.Handler
	Account    *account.Handler
	GoogleAuth *googleauth.GoogleService
	Health     *health.Service
	// RateLimits overrides DefaultRateLimitRules, mainly for tests.
	RateLimits map[string]middleware.RateLimitRule
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET(apiPrefix+"/health", healthHandler(deps.Health))
	r.GET("/metrics", metrics.Handler())

	rules := deps.RateLimits
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}
	limiter := middleware.NewRateLimiter(nil)
	limit := func(group string) gin.HandlerFunc {
		return middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: group,
			Limiter:      limiter,
		})
	}

	api := r.Group(apiPrefix)
	api.Use(middleware.Auth(apiPrefix + "/auth/"))

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(limit(middleware.GroupDefault))
	if deps.Users != nil {
		deps.Users.RegisterRoutes(authed)
	}
	if deps.Account != nil {
		deps.Account.RegisterRoutes(authed)
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(authed, limit(middleware.GroupUpload))
	}
	if deps.Analyses != nil {
		deps.Analyses.RegisterRoutes(authed, limit(middleware.GroupLLM))
	}
	if deps.Events != nil {
		deps.Events.RegisterRoutes(authed)
	}
	if deps.QA != nil {
		deps.QA.RegisterRoutes(authed, limit(middleware.GroupLLM))
	}
	if deps.Drafting != nil {
		deps.Drafting.RegisterRoutes(authed, limit(middleware.GroupLLM))
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "route not found", nil)
	})
	return r
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
