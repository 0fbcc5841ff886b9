package authgate

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"training-eval/internal/dto"
	"training-eval/internal/service"
)

// ── Mock Authenticator ──

type mockAuth struct {
	bus      *service.AuthEventBus
	sessions map[string]*dto.SessionInfo // key: token
	err      error
	// onQuery 在 GetCurrentSession 内部调用，用于观察查询时刻的订阅状态
	onQuery func()
}

func newMockAuth() *mockAuth {
	return &mockAuth{
		bus:      service.NewAuthEventBus(nil, "", zap.NewNop()),
		sessions: make(map[string]*dto.SessionInfo),
	}
}

func (m *mockAuth) GetCurrentSession(_ context.Context, token string) (*dto.SessionInfo, error) {
	if m.onQuery != nil {
		m.onQuery()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.sessions[token], nil
}

func (m *mockAuth) OnAuthStateChange(fn func(service.AuthEvent)) func() {
	return m.bus.Subscribe(fn)
}

func (m *mockAuth) signOut(jti string) {
	m.bus.Publish(context.Background(), service.AuthEvent{Type: service.EventSignedOut, TokenID: jti})
}

func (m *mockAuth) addSession(token, jti, userID string) {
	m.sessions[token] = &dto.SessionInfo{
		AccessToken: token,
		TokenID:     jti,
		User:        dto.UserResponse{ID: userID, Email: userID + "@example.com", Role: "admin"},
	}
}

func drain(ch <-chan Snapshot) []State {
	var states []State
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return states
			}
			states = append(states, s.State)
		default:
			return states
		}
	}
}

// ── 测试用例 ──

func TestGate_InitialState(t *testing.T) {
	g := New(newMockAuth(), "", zap.NewNop())
	if g.State() != StateChecking {
		t.Errorf("期望初始状态为 checking，实际: %s", g.State())
	}
	if d := g.Decision(); d.Action != ActionPending {
		t.Errorf("checking 状态应为 pending，实际: %+v", d)
	}
}

func TestGate_Authenticated(t *testing.T) {
	auth := newMockAuth()
	auth.addSession("tok", "jti-1", "u1")

	g := New(auth, "tok", zap.NewNop())
	defer g.Close()
	g.Start(context.Background())

	if g.State() != StateAuthenticated {
		t.Fatalf("期望 authenticated，实际: %s", g.State())
	}
	snap := g.Snapshot()
	if snap.User == nil || snap.User.ID != "u1" {
		t.Errorf("期望携带用户信息，实际: %+v", snap.User)
	}
	if d := g.Decision(); d.Action != ActionRender {
		t.Errorf("期望 render，实际: %+v", d)
	}

	states := drain(g.Changes())
	if len(states) != 2 || states[0] != StateChecking || states[1] != StateAuthenticated {
		t.Errorf("期望依次通知 checking → authenticated，实际: %v", states)
	}
}

func TestGate_Anonymous(t *testing.T) {
	for _, tc := range []struct {
		name  string
		token string
		err   error
	}{
		{"no token", "", nil},
		{"unknown token", "bogus", nil},
		{"lookup error", "tok", errors.New("db down")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			auth := newMockAuth()
			auth.addSession("tok", "jti-1", "u1")
			auth.err = tc.err

			g := New(auth, tc.token, zap.NewNop())
			defer g.Close()
			g.Start(context.Background())

			if g.State() != StateAnonymous {
				t.Fatalf("期望 anonymous，实际: %s", g.State())
			}
			d := g.Decision()
			if d.Action != ActionRedirect || d.Location != LoginPath {
				t.Errorf("期望跳转 %s，实际: %+v", LoginPath, d)
			}
		})
	}
}

func TestGate_SignedOutEvent(t *testing.T) {
	auth := newMockAuth()
	auth.addSession("tok", "jti-1", "u1")

	g := New(auth, "tok", zap.NewNop())
	defer g.Close()
	g.Start(context.Background())
	drain(g.Changes())

	// 其他 Token 的注销不影响本连接
	auth.signOut("jti-other")
	if g.State() != StateAuthenticated {
		t.Fatalf("其他 Token 注销不应影响状态，实际: %s", g.State())
	}

	auth.signOut("jti-1")
	if g.State() != StateAnonymous {
		t.Fatalf("本 Token 注销后应为 anonymous，实际: %s", g.State())
	}
	if g.Snapshot().User != nil {
		t.Error("注销后不应再携带用户信息")
	}
	if states := drain(g.Changes()); len(states) != 1 || states[0] != StateAnonymous {
		t.Errorf("期望通知一次 anonymous，实际: %v", states)
	}
}

func TestGate_SubscribesBeforeQuery(t *testing.T) {
	auth := newMockAuth()
	auth.addSession("tok", "jti-1", "u1")

	g := New(auth, "tok", zap.NewNop())
	defer g.Close()

	// 查询会话时订阅必须已经建立
	auth.onQuery = func() {
		if auth.bus.Len() != 1 {
			t.Errorf("查询会话前应已订阅，实际观察者数: %d", auth.bus.Len())
		}
	}
	g.Start(context.Background())
	if g.State() != StateAuthenticated {
		t.Fatalf("期望 authenticated，实际: %s", g.State())
	}
}

func TestGate_CloseUnsubscribes(t *testing.T) {
	auth := newMockAuth()
	auth.addSession("tok", "jti-1", "u1")

	g := New(auth, "tok", zap.NewNop())
	g.Start(context.Background())
	if auth.bus.Len() != 1 {
		t.Fatalf("Start 后应有 1 个观察者，实际: %d", auth.bus.Len())
	}

	g.Close()
	g.Close()
	if auth.bus.Len() != 0 {
		t.Errorf("Close 后应取消订阅，实际观察者数: %d", auth.bus.Len())
	}

	// 关闭后的事件被忽略，通知通道已关闭
	auth.signOut("jti-1")
	if g.State() != StateAuthenticated {
		t.Errorf("关闭后状态不应再变化，实际: %s", g.State())
	}
	drain(g.Changes())
	if _, ok := <-g.Changes(); ok {
		t.Error("Close 后通知通道应已关闭")
	}
}

func TestGate_StartAfterClose(t *testing.T) {
	auth := newMockAuth()
	g := New(auth, "", zap.NewNop())
	g.Close()
	g.Start(context.Background())

	if auth.bus.Len() != 0 {
		t.Errorf("关闭后 Start 不应订阅，实际观察者数: %d", auth.bus.Len())
	}
}

func TestDecisionFor(t *testing.T) {
	cases := map[State]Action{
		StateChecking:      ActionPending,
		StateAuthenticated: ActionRender,
		StateAnonymous:     ActionRedirect,
	}
	for s, want := range cases {
		if got := DecisionFor(s).Action; got != want {
			t.Errorf("%s → 期望 %s，实际 %s", s, want, got)
		}
	}
}
