package service

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
)

var (
	ErrNoSession        = errors.New("no active player session")
	ErrPermissionDenied = errors.New("permission denied")
	ErrBadArguments     = errors.New("malformed arguments")
	ErrOutOfRange       = errors.New("rate out of range")
	ErrFeatureDisabled  = errors.New("custom xp rates disabled")
	ErrRedundantToggle  = errors.New("redundant toggle")
	ErrMaxLevel         = errors.New("player at max level")
	ErrStorage          = errors.New("rate storage failure")
)

// 宿主通用提示文本
const (
	TextSecurityTooLow = "Your security level is too low for this command."
	TextNoCharSelected = "No character selected."
	TextToggleUsage    = "Usage: .rate xp active [0/1]"
)

// ChatError 需要以聊天消息回复调用者的错误
type ChatError struct {
	Kind     error  // 错误分类，上面的哨兵错误之一
	Text     string // 回复给玩家的文本
	Prefixed bool   // 是否带 [Custom Rates] 前缀
	Cause    error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Text, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Text)
}

func (e *ChatError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Message 转换为发给 to 的聊天消息
func (e *ChatError) Message(to int64) model.ChatMessage {
	if e.Prefixed {
		return model.NewChatMessage(to, e.Text)
	}
	return model.NewSystemMessage(to, e.Text)
}

// AsChatError 提取错误链中的 ChatError
func AsChatError(err error) (*ChatError, bool) {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func chatErrorf(kind error, format string, args ...any) error {
	return &ChatError{Kind: kind, Text: fmt.Sprintf(format, args...), Prefixed: true}
}

func systemError(kind error, text string) error {
	return &ChatError{Kind: kind, Text: text}
}
