package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"training-eval/config"
	"training-eval/internal/api/handler"
	"training-eval/internal/api/middleware"
	"training-eval/internal/service"
	"training-eval/pkg/jwt"
)

// Deps 路由所需的外部依赖
// Blacklist 与 Limiter 在未启用 Redis 时为 nil
type Deps struct {
	JWT       *jwt.Manager
	Auth      service.AuthService
	Blacklist service.TokenBlacklist
	Limiter   middleware.RateLimiter
	Logger    *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	cookieName := cfg.Auth.Cookie.Name
	requireAdmin := []gin.HandlerFunc{
		middleware.JWTAuth(d.JWT, d.Blacklist, cookieName, d.Logger),
		middleware.RoleAuth(jwt.RoleAdmin),
	}
	pageGate := middleware.PageGate(d.Auth, cookieName, d.Logger)

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	// ── 页面路由 ──
	r.GET("/", h.Page.Home)
	r.GET("/login", h.Page.Login)
	r.GET("/evaluation/:sessionId", h.Page.Evaluation)
	r.GET("/admin", pageGate, h.Page.Admin)
	r.GET("/instructor-ratings", pageGate, h.Page.InstructorRatings)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Health)
		v1.GET("/catalog", h.Catalog.GetCatalog)

		// 认证模块
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.GET("/session", h.Auth.GetSession)
			auth.GET("/session/events", h.Auth.SessionEvents)
			auth.POST("/logout", append(requireAdmin, h.Auth.Logout)...)
		}

		// 培训场次模块（查询公开，写操作需管理员）
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.Session.ListSessions)
			sessions.GET("/lookup", h.Session.LookupSession)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.POST("/:id/evaluations",
				middleware.RateLimit(d.Limiter, cfg.RateLimit.SubmitLimit, cfg.RateLimit.SubmitWindow, d.Logger),
				h.Evaluation.SubmitEvaluation,
			)

			admin := sessions.Group("", requireAdmin...)
			{
				admin.POST("", h.Session.CreateSession)
				admin.PUT("/:id", h.Session.UpdateSession)
				admin.DELETE("/:id", h.Session.DeleteSession)
				admin.GET("/:id/evaluations", h.Evaluation.ListSessionEvaluations)
				admin.GET("/:id/analytics", h.Analytics.GetSessionAnalytics)
				admin.GET("/:id/recommendations/export", h.Export.ExportRecommendations)
			}
		}

		// 需要管理员的其他路由
		authorized := v1.Group("", requireAdmin...)
		{
			authorized.GET("/evaluations", h.Evaluation.ListEvaluations)
			authorized.GET("/analytics/instructors", h.Analytics.GetInstructorAnalytics)
		}
	}

	return r
}
