package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse 当前管理员信息（脱敏）
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// SessionInfo 当前登录会话
type SessionInfo struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // 秒
	ExpiresAt   string       `json:"expires_at"`
	User        UserResponse `json:"user"`
	TokenID     string       `json:"-"` // JWT jti，用于匹配 SIGNED_OUT 事件
}

// LoginResponse 登录响应，redirect 为登录成功后前端应跳转的页面
type LoginResponse struct {
	SessionInfo
	Redirect string `json:"redirect"`
}
