// Package authgate 页面访问门禁
//
// Gate 在 checking → authenticated | anonymous 之间切换：Start 时先订阅
// 认证状态变化，再查询当前会话；之后收到与自身 Token 相关的事件时重新切换，
// 直到 Close 取消订阅。受保护页面与 SSE 连接各自持有一个 Gate。
package authgate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"training-eval/internal/dto"
	"training-eval/internal/service"
)

// LoginPath 未登录时跳转的页面
const LoginPath = "/login"

// State 门禁状态
type State string

const (
	StateChecking      State = "checking"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Action 页面应采取的动作
type Action string

const (
	ActionPending  Action = "pending"
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
)

// Decision 状态对应的页面动作，Location 仅在 redirect 时有值
type Decision struct {
	Action   Action `json:"action"`
	Location string `json:"location,omitempty"`
}

// Snapshot 某一时刻的门禁状态
type Snapshot struct {
	State State             `json:"state"`
	User  *dto.UserResponse `json:"user,omitempty"`
}

// Authenticator 门禁依赖的认证能力，由 service.AuthService 实现
type Authenticator interface {
	GetCurrentSession(ctx context.Context, token string) (*dto.SessionInfo, error)
	OnAuthStateChange(fn func(service.AuthEvent)) (unsubscribe func())
}

// 变化通知缓冲；写满时丢弃最旧的一条，只保证最新状态送达
const changesBuffer = 4

// Gate 单个页面请求或 SSE 连接的认证门禁
type Gate struct {
	auth   Authenticator
	token  string
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	user        *dto.UserResponse
	tokenID     string
	unsubscribe func()
	closed      bool
	changes     chan Snapshot
}

// New 创建门禁，token 可以为空（匿名访问）
func New(auth Authenticator, token string, logger *zap.Logger) *Gate {
	return &Gate{
		auth:    auth,
		token:   token,
		logger:  logger,
		state:   StateChecking,
		changes: make(chan Snapshot, changesBuffer),
	}
}

// Start 订阅认证事件并完成首次检查，返回时状态已不再是 checking
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.closed || g.unsubscribe != nil {
		g.mu.Unlock()
		return
	}
	g.setLocked(StateChecking, nil)
	g.mu.Unlock()

	// 先订阅再查询，避免漏掉查询期间发生的注销
	unsub := g.auth.OnAuthStateChange(g.handle)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		unsub()
		return
	}
	g.unsubscribe = unsub
	g.mu.Unlock()

	info, err := g.auth.GetCurrentSession(ctx, g.token)
	if err != nil {
		g.logger.Warn("查询当前会话失败，按未登录处理", zap.Error(err))
		info = nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.state != StateChecking {
		// 查询期间已被事件切换或已关闭
		return
	}
	if info == nil {
		g.setLocked(StateAnonymous, nil)
		return
	}
	user := info.User
	g.tokenID = info.TokenID
	g.setLocked(StateAuthenticated, &user)
}

// handle 处理认证事件：只关心本 Token 的注销
// SIGNED_IN 事件无法与当前连接持有的 Token 对应，由客户端重新连接后生效
func (g *Gate) handle(ev service.AuthEvent) {
	if ev.Type != service.EventSignedOut {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.state != StateAuthenticated || g.tokenID == "" || ev.TokenID != g.tokenID {
		return
	}
	g.setLocked(StateAnonymous, nil)
}

// Close 取消订阅并关闭变化通知，可重复调用
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsub := g.unsubscribe
	g.unsubscribe = nil
	close(g.changes)
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// State 当前状态
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Snapshot 当前状态与用户
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Decision 当前状态对应的页面动作
func (g *Gate) Decision() Decision {
	return DecisionFor(g.State())
}

// Changes 状态变化通知，Close 后关闭
func (g *Gate) Changes() <-chan Snapshot {
	return g.changes
}

// DecisionFor 状态 → 页面动作
func DecisionFor(s State) Decision {
	switch s {
	case StateAuthenticated:
		return Decision{Action: ActionRender}
	case StateAnonymous:
		return Decision{Action: ActionRedirect, Location: LoginPath}
	default:
		return Decision{Action: ActionPending}
	}
}

// ── 内部方法 ──

func (g *Gate) snapshotLocked() Snapshot {
	snap := Snapshot{State: g.state}
	if g.user != nil {
		u := *g.user
		snap.User = &u
	}
	return snap
}

// setLocked 切换状态并发出通知，调用方需持有 mu
func (g *Gate) setLocked(s State, user *dto.UserResponse) {
	g.state = s
	g.user = user
	if s == StateAnonymous {
		g.tokenID = ""
	}

	snap := g.snapshotLocked()
	select {
	case g.changes <- snap:
	default:
		select {
		case <-g.changes:
		default:
		}
		g.changes <- snap
	}
}
