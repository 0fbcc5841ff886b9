package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"training-eval/config"
	"training-eval/internal/api/middleware"
	"training-eval/internal/authgate"
	"training-eval/internal/dto"
	"training-eval/internal/service"
	"training-eval/pkg/response"
)

// sseKeepAlive SSE 连接的心跳间隔
const sseKeepAlive = 25 * time.Second

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc   service.AuthService
	cookie    config.CookieConfig
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, cookie config.CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:   authSvc,
		cookie:    cookie,
		keepAlive: sseKeepAlive,
		logger:    logger,
	}
}

// Login 管理员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.authSvc.SignIn(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, 11001, "邮箱或密码错误")
			return
		}
		response.InternalError(c)
		return
	}

	h.setTokenCookie(c, result.AccessToken, result.ExpiresIn)
	response.OK(c, result)
}

// Logout 注销当前 Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	if err := h.authSvc.SignOut(c.Request.Context(), claims); err != nil {
		response.InternalError(c)
		return
	}

	h.setTokenCookie(c, "", -1)
	response.OK(c, nil)
}

// GetSession 当前会话，未登录时 data 为 null
// GET /api/v1/auth/session
func (h *AuthHandler) GetSession(c *gin.Context) {
	info, err := h.authSvc.GetCurrentSession(c.Request.Context(), middleware.ExtractToken(c, h.cookie.Name))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, info)
}

// authStateEvent SSE 推送的门禁状态
type authStateEvent struct {
	authgate.Snapshot
	Decision authgate.Decision `json:"decision"`
}

// SessionEvents 以 SSE 推送认证状态变化
// 连接期间持有一个 Gate，状态变为 anonymous 后推送完毕即关闭连接
// GET /api/v1/auth/session/events
func (h *AuthHandler) SessionEvents(c *gin.Context) {
	ctx := c.Request.Context()

	gate := authgate.New(h.authSvc, middleware.ExtractToken(c, h.cookie.Name), h.logger)
	defer gate.Close()
	gate.Start(ctx)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	changes := gate.Changes()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case snap, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("auth", authStateEvent{Snapshot: snap, Decision: authgate.DecisionFor(snap.State)})
			return snap.State != authgate.StateAnonymous
		}
	})
}

// setTokenCookie 写入（maxAge < 0 时清除）Access Token Cookie
func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, maxAge int) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, token, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
