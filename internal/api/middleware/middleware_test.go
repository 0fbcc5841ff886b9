package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"training-eval/config"
	"training-eval/internal/dto"
	"training-eval/internal/service"
	"training-eval/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── Mocks ──

type mockBlacklist struct {
	revoked map[string]bool
	err     error
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, _ time.Duration) error {
	m.revoked[jti] = true
	return m.err
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.revoked[jti], nil
}

type mockAuthenticator struct {
	bus      *service.AuthEventBus
	sessions map[string]*dto.SessionInfo
}

func (m *mockAuthenticator) GetCurrentSession(_ context.Context, token string) (*dto.SessionInfo, error) {
	return m.sessions[token], nil
}

func (m *mockAuthenticator) OnAuthStateChange(fn func(service.AuthEvent)) func() {
	return m.bus.Subscribe(fn)
}

type mockLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (m *mockLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allowed, m.err
}

// ── Helpers ──

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-at-least-16", AccessTokenTTL: time.Hour})
}

func issueToken(t *testing.T, mgr *jwt.Manager, role string) (string, *jwt.Claims) {
	t.Helper()
	token, claims, err := mgr.GenerateAccessToken("u1", "admin@example.com", role)
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}
	return token, claims
}

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestManager()
	token, claims := issueToken(t, mgr, jwt.RoleAdmin)
	bl := &mockBlacklist{revoked: map[string]bool{}}

	r := gin.New()
	r.GET("/p", JWTAuth(mgr, bl, "access_token", zap.NewNop()), func(c *gin.Context) {
		if c.GetString(CtxUserID) != "u1" || c.GetString(CtxToken) != token {
			t.Errorf("上下文未注入认证信息: user=%q", c.GetString(CtxUserID))
		}
		okHandler(c)
	})

	cases := []struct {
		name string
		prep func(*http.Request)
		want int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token "+token) }, http.StatusUnauthorized},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: token}) }, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/p", nil)
			tc.prep(req)
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}

	// 注销后的 Token 被拒绝
	bl.revoked[claims.ID] = true
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("已注销 Token 期望 401，实际: %d", w.Code)
	}
}

func TestJWTAuth_BlacklistFailOpen(t *testing.T) {
	mgr := newTestManager()
	token, _ := issueToken(t, mgr, jwt.RoleAdmin)
	bl := &mockBlacklist{revoked: map[string]bool{}, err: errors.New("redis down")}

	r := gin.New()
	r.GET("/p", JWTAuth(mgr, bl, "", zap.NewNop()), okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("黑名单不可用时应放行，实际: %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	cases := []struct {
		name string
		role interface{}
		want int
	}{
		{"no role", nil, http.StatusUnauthorized},
		{"wrong role", "viewer", http.StatusForbidden},
		{"admin", jwt.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/p", func(c *gin.Context) {
				if tc.role != nil {
					c.Set(CtxRole, tc.role)
				}
				c.Next()
			}, RoleAuth(jwt.RoleAdmin), okHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

// ── PageGate ──

func TestPageGate(t *testing.T) {
	auth := &mockAuthenticator{
		bus: service.NewAuthEventBus(nil, "", zap.NewNop()),
		sessions: map[string]*dto.SessionInfo{
			"tok": {TokenID: "jti-1", User: dto.UserResponse{ID: "u1", Role: jwt.RoleAdmin}},
		},
	}

	r := gin.New()
	r.GET("/admin", PageGate(auth, "access_token", zap.NewNop()), func(c *gin.Context) {
		u, _ := c.Get(CtxUser)
		if user, ok := u.(*dto.UserResponse); !ok || user.ID != "u1" {
			t.Errorf("期望写入当前用户，实际: %v", u)
		}
		okHandler(c)
	})

	// 未登录 → 跳转登录页
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("期望 302 → /login，实际: %d %s", w.Code, w.Header().Get("Location"))
	}

	// 已登录 → 渲染
	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "tok"})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	if auth.bus.Len() != 0 {
		t.Errorf("请求结束后应取消订阅，实际观察者数: %d", auth.bus.Len())
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	cases := []struct {
		name    string
		limiter RateLimiter
		limit   int
		want    int
	}{
		{"disabled", nil, 5, http.StatusOK},
		{"zero limit", &mockLimiter{allowed: false}, 0, http.StatusOK},
		{"allowed", &mockLimiter{allowed: true}, 5, http.StatusOK},
		{"blocked", &mockLimiter{allowed: false}, 5, http.StatusTooManyRequests},
		{"redis error", &mockLimiter{err: errors.New("redis down")}, 5, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/sessions/:id/evaluations", RateLimit(tc.limiter, tc.limit, time.Minute, zap.NewNop()), okHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/sessions/s1/evaluations", nil))
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestRateLimit_KeyPerRoute(t *testing.T) {
	lim := &mockLimiter{allowed: true}
	r := gin.New()
	r.POST("/sessions/:id/evaluations", RateLimit(lim, 5, time.Minute, zap.NewNop()), okHandler)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/sessions/s1/evaluations", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/sessions/s2/evaluations", nil))

	if len(lim.keys) != 2 || lim.keys[0] != lim.keys[1] {
		t.Errorf("同一路由应共享限流键，实际: %v", lim.keys)
	}
	if !strings.HasSuffix(lim.keys[0], ":/sessions/:id/evaluations") {
		t.Errorf("限流键应包含路由模板，实际: %s", lim.keys[0])
	}
}

// ── CORS / BodyLimit ──

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.POST("/p", okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/p", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("期望回显允许的来源，实际: %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("期望暴露 Content-Disposition 以便下载文件名")
	}
}
