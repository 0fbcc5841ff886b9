package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"training-eval/internal/authgate"
	"training-eval/internal/service"
	"training-eval/pkg/jwt"
	"training-eval/pkg/response"
)

// gin.Context 中的认证信息键
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxClaims = "claims"
	CtxToken  = "token"
	CtxUser   = "user"
)

// ExtractToken 依次从 Authorization: Bearer <token> 与 Cookie 中取 Token
func ExtractToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}

// JWTAuth JWT 认证中间件
// blacklist 为 nil 时不检查注销状态；黑名单查询出错时降级放行
func JWTAuth(jwtMgr *jwt.Manager, blacklist service.TokenBlacklist, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c, cookieName)
		if token == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("查询 Token 黑名单失败", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxClaims, claims)
		c.Set(CtxToken, token)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}

// PageGate 受保护页面的门禁
// 未登录时 302 跳转到登录页；已登录时把当前用户写入上下文
func PageGate(auth authgate.Authenticator, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		gate := authgate.New(auth, ExtractToken(c, cookieName), logger)
		defer gate.Close()
		gate.Start(c.Request.Context())

		decision := gate.Decision()
		if decision.Action != authgate.ActionRender {
			c.Redirect(http.StatusFound, decision.Location)
			c.Abort()
			return
		}

		c.Set(CtxUser, gate.Snapshot().User)
		c.Next()
	}
}
