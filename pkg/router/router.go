package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownCommand 命令不存在
	ErrUnknownCommand = errors.New("router: unknown command")
	// ErrNoPermission 调用者权限不足
	ErrNoPermission = errors.New("router: permission denied")
	// ErrIncompleteCommand 命令不完整，只命中了分组节点
	ErrIncompleteCommand = errors.New("router: incomplete command")
	// ErrDuplicateCommand 同级命令重名
	ErrDuplicateCommand = errors.New("router: duplicate command")
)

// HandlerFunc 命令处理函数，参数通过 req.Args 获取，回复通过 req.Reply 输出
type HandlerFunc func(ctx context.Context, req *Request) error

// Command 命令树节点
type Command struct {
	Name     string
	Level    int // 调用所需的最低权限
	Help     string
	Handler  HandlerFunc
	Children []*Command
}

// Router 命令路由接口
type Router interface {
	// Register 注册顶层命令（含子命令）
	Register(cmd *Command) error
	// Dispatch 解析聊天文本并执行命中的命令
	Dispatch(ctx context.Context, text string, req *Request) error
	// Lookup 按路径查找命令
	Lookup(path ...string) (*Command, bool)
}

type router struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// New 创建命令路由
func New() Router {
	return &router{
		commands: make(map[string]*Command),
	}
}

func (r *router) Register(cmd *Command) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(cmd.Name)
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.commands[name] = cmd
	return nil
}

func validateCommand(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || strings.ContainsAny(cmd.Name, " \t") {
		return errors.New("router: invalid command name")
	}

	seen := make(map[string]struct{}, len(cmd.Children))
	for _, child := range cmd.Children {
		if err := validateCommand(child); err != nil {
			return err
		}
		name := strings.ToLower(child.Name)
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s %s", ErrDuplicateCommand, cmd.Name, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (r *router) Lookup(path ...string) (*Command, bool) {
	if len(path) == 0 {
		return nil, false
	}

	r.mu.RLock()
	cmd, ok := r.commands[strings.ToLower(path[0])]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	for _, name := range path[1:] {
		if cmd = cmd.child(name); cmd == nil {
			return nil, false
		}
	}
	return cmd, true
}

func (r *router) Dispatch(ctx context.Context, text string, req *Request) error {
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, ".")

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return ErrUnknownCommand
	}

	r.mu.RLock()
	cmd, ok := r.commands[strings.ToLower(tokens[0])]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, tokens[0])
	}

	path := []string{cmd.Name}
	rest := tokens[1:]
	for {
		if req.Level < cmd.Level {
			req.Path = path
			return fmt.Errorf("%w: %s", ErrNoPermission, strings.Join(path, " "))
		}
		if len(rest) == 0 {
			break
		}
		next := cmd.child(rest[0])
		if next == nil {
			break
		}
		cmd = next
		path = append(path, cmd.Name)
		rest = rest[1:]
	}

	req.Path = path
	req.Args = strings.Join(rest, " ")

	if cmd.Handler == nil {
		if len(rest) > 0 {
			return fmt.Errorf("%w: %s %s", ErrUnknownCommand, strings.Join(path, " "), rest[0])
		}
		req.Reply(req.Caller, cmd.usage(req.Level))
		return fmt.Errorf("%w: %s", ErrIncompleteCommand, strings.Join(path, " "))
	}

	return cmd.Handler(ctx, req)
}

// child 按名称查找子命令，不区分大小写
func (c *Command) child(name string) *Command {
	for _, child := range c.Children {
		if strings.EqualFold(child.Name, name) {
			return child
		}
	}
	return nil
}

// usage 列出调用者可用的子命令
func (c *Command) usage(level int) string {
	names := make([]string, 0, len(c.Children))
	for _, child := range c.Children {
		if level >= child.Level {
			names = append(names, child.Name)
		}
	}
	sort.Strings(names)
	return fmt.Sprintf("Subcommands of %s: %s", c.Name, strings.Join(names, ", "))
}
