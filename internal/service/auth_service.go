package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"training-eval/internal/dto"
	"training-eval/internal/model"
	"training-eval/internal/repository"
	pkgerrors "training-eval/pkg/errors"
	"training-eval/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrAdminPasswordShort = errors.New("管理员密码至少 8 位")
)

// LoginRedirect 登录成功后前端跳转的页面
const LoginRedirect = "/"

// TokenBlacklist Token 黑名单（Redis）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	SignIn(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	// SignOut 注销当前 Token 并广播 SIGNED_OUT
	SignOut(ctx context.Context, claims *jwt.Claims) error
	// GetCurrentSession 解析 Token 对应的会话；Token 缺失、无效、过期或已注销时返回 (nil, nil)
	GetCurrentSession(ctx context.Context, token string) (*dto.SessionInfo, error)
	// OnAuthStateChange 订阅认证状态变化，返回取消订阅函数
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
	// EnsureAdmin 确保管理员账号存在；已存在时不修改密码
	EnsureAdmin(ctx context.Context, email, password, name string) error
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	events    *AuthEventBus
	now       func() time.Time
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// blacklist 为 nil 时注销只广播事件，Token 在过期前仍然有效
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	events *AuthEventBus,
	logger *zap.Logger,
) AuthService {
	if events == nil {
		events = NewAuthEventBus(nil, "", logger)
	}
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		events:    events,
		now:       time.Now,
		logger:    logger,
	}
}

// ────────────────────── SignIn ──────────────────────

func (s *authService) SignIn(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	// 1. 查询管理员
	user, err := s.repo.AdminUser.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询管理员失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 签发 Token
	token, claims, err := s.jwtMgr.GenerateAccessToken(user.ID, user.Email, jwt.RoleAdmin)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	if err := s.repo.AdminUser.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.events.Publish(ctx, AuthEvent{
		Type:    EventSignedIn,
		UserID:  user.ID,
		TokenID: claims.ID,
		At:      s.now(),
	})
	s.logger.Info("管理员登录", zap.String("user_id", user.ID))

	return &dto.LoginResponse{
		SessionInfo: s.sessionInfo(token, claims, user),
		Redirect:    LoginRedirect,
	}, nil
}

// ────────────────────── SignOut ──────────────────────

func (s *authService) SignOut(ctx context.Context, claims *jwt.Claims) error {
	if claims == nil {
		return nil
	}

	if s.blacklist != nil && claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Time.Sub(s.now())
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
			s.logger.Error("Token 加入黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
			return err
		}
	}

	s.events.Publish(ctx, AuthEvent{
		Type:    EventSignedOut,
		UserID:  claims.UserID,
		TokenID: claims.ID,
		At:      s.now(),
	})
	s.logger.Info("管理员注销", zap.String("user_id", claims.UserID))
	return nil
}

// ────────────────────── GetCurrentSession ──────────────────────

func (s *authService) GetCurrentSession(ctx context.Context, token string) (*dto.SessionInfo, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, nil
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// Redis 出错时降级放行
			s.logger.Warn("查询 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, nil
		}
	}

	user, err := s.repo.AdminUser.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询管理员失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	info := s.sessionInfo(token, claims, user)
	return &info, nil
}

// ────────────────────── OnAuthStateChange ──────────────────────

func (s *authService) OnAuthStateChange(fn func(AuthEvent)) func() {
	return s.events.Subscribe(fn)
}

// ────────────────────── EnsureAdmin ──────────────────────

func (s *authService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	_, err := s.repo.AdminUser.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询管理员失败", zap.Error(err))
		return err
	}

	if len(password) < 8 {
		return ErrAdminPasswordShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &model.AdminUser{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.repo.AdminUser.Create(ctx, user); err != nil {
		// 多实例同时启动时可能被其他实例抢先创建
		if pkgerrors.IsDuplicateKey(err) {
			return nil
		}
		s.logger.Error("创建管理员失败", zap.Error(err))
		return err
	}

	s.logger.Info("已创建初始管理员", zap.String("email", email))
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *authService) sessionInfo(token string, claims *jwt.Claims, user *model.AdminUser) dto.SessionInfo {
	info := dto.SessionInfo{
		AccessToken: token,
		TokenID:     claims.ID,
		User: dto.UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  claims.Role,
		},
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = exp.UTC().Format(time.RFC3339)
		if remaining := exp.Sub(s.now()); remaining > 0 {
			info.ExpiresIn = int(remaining.Seconds())
		}
	}
	return info
}
