package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AuthEventType 认证状态变化类型
type AuthEventType string

const (
	EventSignedIn  AuthEventType = "SIGNED_IN"
	EventSignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent 认证状态变化事件
// TokenID 为 JWT 的 jti，订阅方据此判断事件是否与自己持有的会话相关
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	UserID  string        `json:"user_id"`
	TokenID string        `json:"token_id"`
	At      time.Time     `json:"at"`
}

// EventRelay 跨进程事件通道（Redis Pub/Sub）
type EventRelay interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, handler func([]byte)) error
}

// AuthEventBus 认证事件的观察者注册表
//
// 未配置 relay 时只在本进程内分发；配置后事件经 relay 广播，
// 包括本进程在内的所有订阅进程都从 relay 收到事件后再分发给本地观察者。
type AuthEventBus struct {
	mu        sync.Mutex
	observers map[uint64]func(AuthEvent)
	nextID    uint64

	relay   EventRelay
	channel string
	relayed bool
	logger  *zap.Logger
}

// NewAuthEventBus 创建事件总线，relay 可以为 nil
func NewAuthEventBus(relay EventRelay, channel string, logger *zap.Logger) *AuthEventBus {
	return &AuthEventBus{
		observers: make(map[uint64]func(AuthEvent)),
		relay:     relay,
		channel:   channel,
		logger:    logger,
	}
}

// Start 订阅 relay 频道，ctx 结束时停止；未配置 relay 时直接返回
func (b *AuthEventBus) Start(ctx context.Context) error {
	if b.relay == nil {
		return nil
	}
	err := b.relay.Subscribe(ctx, b.channel, func(payload []byte) {
		var ev AuthEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			b.logger.Warn("忽略无法解析的认证事件", zap.Error(err))
			return
		}
		b.dispatch(ev)
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.relayed = true
	b.mu.Unlock()
	return nil
}

// Subscribe 注册观察者，返回的取消函数可重复调用
func (b *AuthEventBus) Subscribe(fn func(AuthEvent)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.observers, id)
			b.mu.Unlock()
		})
	}
}

// Publish 发布事件；relay 发布失败时退回本地分发
func (b *AuthEventBus) Publish(ctx context.Context, ev AuthEvent) {
	b.mu.Lock()
	relayed := b.relayed
	b.mu.Unlock()

	if relayed {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = b.relay.Publish(ctx, b.channel, payload)
		}
		if err == nil {
			return
		}
		b.logger.Warn("认证事件广播失败，仅在本进程分发", zap.String("type", string(ev.Type)), zap.Error(err))
	}
	b.dispatch(ev)
}

// Len 当前观察者数量
func (b *AuthEventBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// dispatch 在锁外依次回调观察者
func (b *AuthEventBus) dispatch(ev AuthEvent) {
	b.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
