package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/service"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/router"
)

// TextUnknownCommand 宿主的未知命令提示
const TextUnknownCommand = "There is no such command."

type settingsKey struct{}

// withSettings 把本次调用使用的配置快照放入 ctx
func withSettings(ctx context.Context, cfg *model.Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, cfg)
}

func settingsFrom(ctx context.Context) *model.Settings {
	cfg, _ := ctx.Value(settingsKey{}).(*model.Settings)
	return cfg
}

// CommandHandler 聊天命令处理器，注册 .rate xp get|set|active
type CommandHandler struct {
	logger  logger.Logger
	svc     *service.RateService
	router  router.Router
	metrics *metrics.RatesMetrics
}

// NewCommandHandler 创建命令处理器并注册命令表
func NewCommandHandler(l logger.Logger, svc *service.RateService, r router.Router, m *metrics.RatesMetrics) (*CommandHandler, error) {
	h := &CommandHandler{
		logger:  l.Named("handler.command"),
		svc:     svc,
		router:  r,
		metrics: m,
	}

	err := r.Register(&router.Command{
		Name:  "rate",
		Level: int(model.SecurityPlayer),
		Children: []*router.Command{
			{
				Name:  "xp",
				Level: int(model.SecurityPlayer),
				Children: []*router.Command{
					{Name: "set", Level: int(model.SecurityPlayer), Help: "Syntax: .rate xp set <value>", Handler: h.handleSet},
					{Name: "get", Level: int(model.SecurityPlayer), Help: "Syntax: .rate xp get", Handler: h.handleGet},
					{Name: "active", Level: int(model.SecurityAdministrator), Help: "Syntax: .rate xp active <0|1>", Handler: h.handleActive},
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to register rate commands")
	}
	return h, nil
}

// Execute 执行一条聊天命令，返回需要投递的消息和执行结果
func (h *CommandHandler) Execute(ctx context.Context, callerID int64, text string) model.CommandResult {
	start := time.Now()

	caller, ok := h.svc.Player(callerID)
	if !ok {
		h.logger.Debug("command from offline player", "player_id", callerID, "text", text)
		return model.CommandResult{Success: false, Messages: []model.ChatMessage{}}
	}

	req := router.NewRequest(caller.ID, int(caller.Security))
	ctx = withSettings(ctx, h.svc.Settings())
	ctx = logger.WithPlayerID(ctx, caller.ID)

	err := h.router.Dispatch(ctx, text, req)

	messages := make([]model.ChatMessage, 0, len(req.Replies())+1)
	for _, r := range req.Replies() {
		messages = append(messages, model.NewSystemMessage(r.To, r.Text))
	}

	if err != nil {
		if msg, ok := h.errorMessage(ctx, caller.ID, text, err); ok {
			messages = append(messages, msg)
		}
	}

	name := strings.Join(req.Path, " ")
	if name == "" {
		name = "unknown"
	}
	h.metrics.RecordCommand(name, err == nil, time.Since(start).Seconds())

	return model.CommandResult{Success: err == nil, Messages: messages}
}

// errorMessage 把命令错误转换为回复给调用者的消息
func (h *CommandHandler) errorMessage(ctx context.Context, callerID int64, text string, err error) (model.ChatMessage, bool) {
	if ce, ok := service.AsChatError(err); ok {
		return ce.Message(callerID), true
	}

	switch {
	case errors.Is(err, router.ErrNoPermission):
		return model.NewSystemMessage(callerID, service.TextSecurityTooLow), true
	case errors.Is(err, router.ErrUnknownCommand):
		return model.NewSystemMessage(callerID, TextUnknownCommand), true
	case errors.Is(err, router.ErrIncompleteCommand), errors.Is(err, service.ErrNoSession):
		return model.ChatMessage{}, false
	default:
		h.logger.ErrorContext(ctx, "command failed", "text", text, "error", err)
		return model.ChatMessage{}, false
	}
}

// reply 回复带前缀的消息
func reply(req *router.Request, to int64, format string, args ...any) {
	req.Reply(to, model.ChatPrefix+fmt.Sprintf(format, args...))
}

func (h *CommandHandler) handleGet(ctx context.Context, req *router.Request) error {
	rate, err := h.svc.GetRate(ctx, settingsFrom(ctx), req.Caller)
	if err != nil {
		return err
	}
	reply(req, req.Caller, "Your current XP rate is %d.", rate)
	return nil
}

func (h *CommandHandler) handleSet(ctx context.Context, req *router.Request) error {
	res, err := h.svc.SetRate(ctx, settingsFrom(ctx), req.Caller, req.Args)
	if err != nil {
		return err
	}

	if res.SelfTarget() {
		reply(req, req.Caller, "You have set your XP rate to %d.", res.Rate)
		return nil
	}
	reply(req, req.Caller, "You have set %s's XP rate to %d.", res.Target.Name, res.Rate)
	reply(req, res.Target.ID, "%s has set your XP rate to %d.", res.Caller.Name, res.Rate)
	return nil
}

func (h *CommandHandler) handleActive(ctx context.Context, req *router.Request) error {
	enabled, err := h.svc.Toggle(ctx, settingsFrom(ctx), req.Args)
	if err != nil {
		return err
	}

	state := "off"
	if enabled {
		state = "on"
	}
	reply(req, req.Caller, "Custom rates for experience are now %s.", state)
	return nil
}
