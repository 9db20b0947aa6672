package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Event 生命周期事件
type Event string

const (
	EventLogin  Event = "login"
	EventLogout Event = "logout"
	EventDelete Event = "delete"
)

// HookFunc 事件回调
type HookFunc[T any] func(ctx context.Context, payload T) error

type namedHook[T any] struct {
	name string
	fn   HookFunc[T]
}

// Hooks 按事件注册的具名回调表，同一事件的回调按注册顺序执行
type Hooks[T any] struct {
	mu    sync.RWMutex
	hooks map[Event][]namedHook[T]
}

// NewHooks 创建回调表
func NewHooks[T any]() *Hooks[T] {
	return &Hooks[T]{
		hooks: make(map[Event][]namedHook[T]),
	}
}

// On 注册回调，同一事件下名称不能重复
func (h *Hooks[T]) On(event Event, name string, fn HookFunc[T]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, hook := range h.hooks[event] {
		if hook.name == name {
			return fmt.Errorf("%w: hook %s/%s", ErrDuplicateCommand, event, name)
		}
	}
	h.hooks[event] = append(h.hooks[event], namedHook[T]{name: name, fn: fn})
	return nil
}

// Fire 触发事件，某个回调失败不影响后续回调，返回合并后的错误
func (h *Hooks[T]) Fire(ctx context.Context, event Event, payload T) error {
	h.mu.RLock()
	hooks := append([]namedHook[T](nil), h.hooks[event]...)
	h.mu.RUnlock()

	var errs []error
	for _, hook := range hooks {
		if err := hook.fn(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("hook %s/%s: %w", event, hook.name, err))
		}
	}
	return errors.Join(errs...)
}

// Names 事件下已注册的回调名称
func (h *Hooks[T]) Names(event Event) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.hooks[event]))
	for _, hook := range h.hooks[event] {
		names = append(names, hook.name)
	}
	return names
}
