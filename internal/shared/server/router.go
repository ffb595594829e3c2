package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"career-hub/internal/account"
	"career-hub/internal/advisor"
	googleauth "career-hub/internal/auth"
	"career-hub/internal/conversations"
	"career-hub/internal/coverletter"
	"career-hub/internal/documents"
	"career-hub/internal/interview"
	"career-hub/internal/jobs"
	"career-hub/internal/remoteapi"
	"career-hub/internal/services/health"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/server/middleware"
	"career-hub/internal/shared/server/respond"
	"career-hub/internal/usage"
	"career-hub/internal/users"
)

// Rate limit groups.
const (
	groupRemote  = "REMOTE"
	groupLLM     = "LLM"
	groupUploads = "UPLOADS"
	groupDefault = "DEFAULT"
)

var defaultRateLimits = map[string]middleware.RateLimitRule{
	groupRemote:  {Rate: 0.5, Burst: 10},
	groupLLM:     {Rate: 0.5, Burst: 10},
	groupUploads: {Rate: 0.2, Burst: 5},
	groupDefault: {Rate: 5, Burst: 30},
}

// RouterDeps carries the handlers attached to the engine. Nil handlers are
// skipped.
type RouterDeps struct {
	Config              config.Config
	Health              *health.Service
	AccountHandler      *account.Handler
	ReportHandler       *advisor.Handler
	ConversationHandler *conversations.Handler
	CoverLetterHandler  *coverletter.Handler
	DocumentHandler     *documents.Handler
	InterviewHandler    *interview.Handler
	JobHandler          *jobs.Handler
	UsageHandler        *usage.Handler
	UserHandler         *users.Handler
	GoogleAuth          *googleauth.GoogleService
	Remote              *remoteapi.Handler
	RateLimits          map[string]middleware.RateLimitRule
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
	)

	rules := deps.RateLimits
	if rules == nil {
		rules = defaultRateLimits
	}
	limiter := middleware.NewRateLimiter(nil)

	r.GET("/metrics", metrics.Handler())

	if deps.Remote != nil {
		remote := r.Group("")
		remote.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: groupRemote,
			Limiter:      limiter,
		}))
		deps.Remote.RegisterRoutes(remote)
	}

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth("/api/v1/health", "/api/v1/auth/"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: groupDefault,
			Limiter:      limiter,
			GroupFor: middleware.GroupByPrefix(map[string]string{
				"/api/v1/reports":       groupLLM,
				"/api/v1/advice":        groupLLM,
				"/api/v1/conversations": groupLLM,
				"/api/v1/interviews":    groupLLM,
				"/api/v1/cover-letters": groupLLM,
				"/api/v1/documents":     groupUploads,
			}),
		}),
	)

	api.GET("/health", healthHandler(deps.Health))

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}
	if deps.ConversationHandler != nil {
		deps.ConversationHandler.RegisterRoutes(api)
	}
	if deps.InterviewHandler != nil {
		deps.InterviewHandler.RegisterRoutes(api)
	}
	if deps.CoverLetterHandler != nil {
		deps.CoverLetterHandler.RegisterRoutes(api)
	}
	if deps.JobHandler != nil {
		deps.JobHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
		if deps.Config.IsDev() {
			deps.UsageHandler.RegisterDevRoutes(api.Group("/dev"))
		}
	}

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
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
