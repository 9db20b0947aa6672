package model

// ChatPrefix 聊天消息前缀
const ChatPrefix = "|CFF7BBEF7[Custom Rates]|r: "

// ChatMessage 需要宿主投递给玩家的聊天消息
type ChatMessage struct {
	To   int64  `json:"to"`
	Text string `json:"text"`
}

// NewChatMessage 创建带前缀的聊天消息
func NewChatMessage(to int64, text string) ChatMessage {
	return ChatMessage{To: to, Text: ChatPrefix + text}
}

// NewSystemMessage 创建不带前缀的系统消息，用于宿主通用的提示
func NewSystemMessage(to int64, text string) ChatMessage {
	return ChatMessage{To: to, Text: text}
}

// CommandResult 命令执行结果
type CommandResult struct {
	Success  bool          `json:"success"`
	Messages []ChatMessage `json:"messages"`
}

// LifecycleEvent 玩家生命周期事件载荷
type LifecycleEvent struct {
	Player   *Player
	Settings *Settings
	Messages []ChatMessage // 回调产生的消息
}

// Notify 追加一条发给事件玩家的消息
func (e *LifecycleEvent) Notify(text string) {
	e.Messages = append(e.Messages, NewChatMessage(e.Player.ID, text))
}
