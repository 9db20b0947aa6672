package router

import "fmt"

// Reply 一条聊天回复
type Reply struct {
	To   int64
	Text string
}

// Request 一次命令调用
type Request struct {
	Caller int64  // 调用者 ID
	Level  int    // 调用者权限
	Args   string // 命令路径之后的参数
	Path   []string

	replies []Reply
}

// NewRequest 创建命令调用
func NewRequest(caller int64, level int) *Request {
	return &Request{Caller: caller, Level: level}
}

// Reply 追加一条发送给 to 的回复
func (r *Request) Reply(to int64, text string) {
	r.replies = append(r.replies, Reply{To: to, Text: text})
}

// Replyf 格式化后回复调用者
func (r *Request) Replyf(format string, args ...any) {
	r.Reply(r.Caller, fmt.Sprintf(format, args...))
}

// Replies 已产生的回复，按产生顺序
func (r *Request) Replies() []Reply {
	return r.replies
}
