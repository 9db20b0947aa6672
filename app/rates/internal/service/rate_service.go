package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/dao"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/manager"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/router"
)

// HookName 服务在生命周期回调表中使用的名称
const HookName = "custom_xp_rate"

// RateStore 倍率持久化，*dao.RateDAO 满足该接口
type RateStore interface {
	Get(ctx context.Context, playerID int64) (rate uint32, found bool, err error)
	Upsert(ctx context.Context, playerID int64, rate uint32) error
	Delete(ctx context.Context, playerID int64) error
}

// LifecycleHooks 玩家生命周期回调表
type LifecycleHooks = router.Hooks[*model.LifecycleEvent]

// SetResult set 命令的执行结果
type SetResult struct {
	Caller model.Player
	Target model.Player
	Rate   uint32
}

// SelfTarget 是否修改的是调用者自己
func (r *SetResult) SelfTarget() bool {
	return r.Caller.ID == r.Target.ID
}

// RateService 自定义经验倍率服务
type RateService struct {
	logger   logger.Logger
	players  *manager.PlayerManager
	settings *manager.SettingsManager
	store    RateStore
	feature  dao.FeatureDAO
	hooks    *LifecycleHooks
	metrics  *metrics.RatesMetrics
}

// NewRateService 创建倍率服务，并把登录、删除回调注册到 hooks
func NewRateService(
	l logger.Logger,
	players *manager.PlayerManager,
	settings *manager.SettingsManager,
	store RateStore,
	feature dao.FeatureDAO,
	hooks *LifecycleHooks,
	m *metrics.RatesMetrics,
) (*RateService, error) {
	s := &RateService{
		logger:   l.Named("service.rate"),
		players:  players,
		settings: settings,
		store:    store,
		feature:  feature,
		hooks:    hooks,
		metrics:  m,
	}

	if err := hooks.On(router.EventLogin, HookName, s.onLogin); err != nil {
		return nil, err
	}
	if err := hooks.On(router.EventDelete, HookName, s.onDelete); err != nil {
		return nil, err
	}
	feature.OnToggle(s.applyRemoteToggle)

	return s, nil
}

// Settings 当前配置快照
func (s *RateService) Settings() *model.Settings {
	return s.settings.Snapshot()
}

// HandleLogin 玩家上线，返回需要发给玩家的消息
func (s *RateService) HandleLogin(ctx context.Context, p model.Player) ([]model.ChatMessage, error) {
	p.XPRate = model.HostDefaultXPRate
	s.players.Add(p)
	s.metrics.SetOnlinePlayers(s.players.Count())

	ev := &model.LifecycleEvent{Player: &p, Settings: s.settings.Snapshot()}
	if err := s.hooks.Fire(ctx, router.EventLogin, ev); err != nil {
		return ev.Messages, err
	}
	return ev.Messages, nil
}

// HandleLogout 玩家下线
func (s *RateService) HandleLogout(ctx context.Context, playerID int64) error {
	p, ok := s.players.Get(playerID)
	if !ok {
		return ErrNoSession
	}

	ev := &model.LifecycleEvent{Player: &p, Settings: s.settings.Snapshot()}
	err := s.hooks.Fire(ctx, router.EventLogout, ev)

	s.players.Remove(playerID)
	s.metrics.SetOnlinePlayers(s.players.Count())
	return err
}

// HandleDelete 角色删除，玩家可以不在线
func (s *RateService) HandleDelete(ctx context.Context, playerID int64) error {
	p, ok := s.players.Get(playerID)
	if !ok {
		p = model.Player{ID: playerID}
	}

	ev := &model.LifecycleEvent{Player: &p, Settings: s.settings.Snapshot()}
	err := s.hooks.Fire(ctx, router.EventDelete, ev)

	if s.players.Remove(playerID) {
		s.metrics.SetOnlinePlayers(s.players.Count())
	}
	return err
}

// onLogin 登录时应用存储的倍率
func (s *RateService) onLogin(ctx context.Context, ev *model.LifecycleEvent) error {
	cfg := ev.Settings
	if !cfg.Enabled {
		s.metrics.RecordLogin("disabled")
		return nil
	}

	p := ev.Player
	rate, found, err := s.store.Get(ctx, p.ID)
	if err != nil {
		// 读取失败按未设置处理
		s.logger.Warn("failed to read xp rate, using default",
			"player_id", p.ID,
			"error", err,
		)
		s.metrics.RecordReadFallback()
		found = false
	}

	if !found || cfg.AtMaxLevel(p.Level) {
		s.apply(p, cfg.DefaultRate)
		s.metrics.RecordLogin("default")
		return nil
	}

	s.apply(p, rate)
	s.metrics.RecordLogin("stored")

	if cfg.ShowOnLogin {
		if rate == 0 {
			ev.Notify("Your XP rate was set to 0. You won't gain any XP anymore.")
		} else {
			ev.Notify("Your XP rate was set to " + strconv.FormatUint(uint64(rate), 10) + ".")
		}
	}
	return nil
}

// onDelete 删除角色的倍率记录
func (s *RateService) onDelete(ctx context.Context, ev *model.LifecycleEvent) error {
	if err := s.store.Delete(ctx, ev.Player.ID); err != nil {
		return errors.Wrap(err, "failed to delete xp rate")
	}
	s.logger.Info("xp rate deleted", "player_id", ev.Player.ID)
	return nil
}

// apply 修改玩家运行时倍率
func (s *RateService) apply(p *model.Player, rate uint32) {
	p.XPRate = rate
	s.players.Update(p.ID, func(online *model.Player) {
		online.XPRate = rate
	})
}

// UpdateLevel 同步玩家等级
func (s *RateService) UpdateLevel(playerID int64, level int32) error {
	if !s.players.Update(playerID, func(p *model.Player) { p.Level = level }) {
		return ErrNoSession
	}
	return nil
}

// Select 同步玩家选中的目标，targetID 为 0 表示取消选中
func (s *RateService) Select(playerID, targetID int64) error {
	if !s.players.Update(playerID, func(p *model.Player) { p.SelectionID = targetID }) {
		return ErrNoSession
	}
	return nil
}

// Player 在线玩家状态的副本
func (s *RateService) Player(playerID int64) (model.Player, bool) {
	return s.players.Get(playerID)
}

// OnlineCount 在线玩家数
func (s *RateService) OnlineCount() int {
	return s.players.Count()
}

// CurrentRate 玩家当前生效的倍率
func (s *RateService) CurrentRate(playerID int64) (uint32, error) {
	p, ok := s.players.Get(playerID)
	if !ok {
		return 0, ErrNoSession
	}
	return p.XPRate, nil
}

// ScaleXP 按玩家当前倍率计算获得的经验，同时返回使用的倍率
func (s *RateService) ScaleXP(playerID int64, base uint32) (rate uint32, xp uint64, err error) {
	p, ok := s.players.Get(playerID)
	if !ok {
		return 0, 0, ErrNoSession
	}
	return p.XPRate, p.ScaleXP(base), nil
}

// GetRate get 命令：查询调用者当前生效的倍率
func (s *RateService) GetRate(ctx context.Context, cfg *model.Settings, callerID int64) (uint32, error) {
	caller, ok := s.players.Get(callerID)
	if !ok {
		return 0, ErrNoSession
	}
	if !cfg.Enabled {
		return 0, chatErrorf(ErrFeatureDisabled, "Viewing your XP rate is disabled at this time.")
	}
	return caller.XPRate, nil
}

// SetRate set 命令：修改调用者或其选中目标的倍率
func (s *RateService) SetRate(ctx context.Context, cfg *model.Settings, callerID int64, args string) (*SetResult, error) {
	caller, ok := s.players.Get(callerID)
	if !ok {
		return nil, ErrNoSession
	}
	if !cfg.Enabled {
		return nil, chatErrorf(ErrFeatureDisabled, "Changing your experience rate is disabled at this time.")
	}
	if cfg.AtMaxLevel(caller.Level) {
		return nil, chatErrorf(ErrMaxLevel, "You are already at maximum level.")
	}
	if caller.Security < cfg.MinSecurity {
		return nil, systemError(ErrPermissionDenied, TextSecurityTooLow)
	}

	target := caller
	if caller.HasSelection() && caller.SelectionID != caller.ID {
		if target, ok = s.players.Get(caller.SelectionID); !ok {
			return nil, systemError(ErrNoSession, TextNoCharSelected)
		}
	}

	rate, err := parseRate(args, cfg.MaxRate)
	if err != nil {
		return nil, err
	}

	if target.ID != caller.ID && caller.Security <= target.Security {
		return nil, systemError(ErrPermissionDenied, TextSecurityTooLow)
	}

	// 先修改运行时状态，再写入存储
	if !s.players.Update(target.ID, func(p *model.Player) { p.XPRate = rate }) {
		return nil, systemError(ErrNoSession, TextNoCharSelected)
	}
	target.XPRate = rate
	if target.ID == caller.ID {
		caller.XPRate = rate
	}

	if err := s.store.Upsert(ctx, target.ID, rate); err != nil {
		s.logger.Error("failed to save xp rate",
			"caller_id", caller.ID,
			"target_id", target.ID,
			"xp_rate", rate,
			"error", err,
		)
		return nil, &ChatError{
			Kind:     ErrStorage,
			Text:     "The XP rate was applied but could not be saved.",
			Prefixed: true,
			Cause:    err,
		}
	}

	s.logger.Info("xp rate set",
		"caller_id", caller.ID,
		"target_id", target.ID,
		"xp_rate", rate,
	)
	return &SetResult{Caller: caller, Target: target, Rate: rate}, nil
}

// parseRate 解析倍率参数，范围 [0, maxRate]
func parseRate(args string, maxRate uint32) (uint32, error) {
	invalid := func(kind error) error {
		return chatErrorf(kind, "Invalid rate specified, must be in interval [0,%d].", maxRate)
	}

	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, invalid(ErrBadArguments)
	}

	v, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, invalid(ErrOutOfRange)
		}
		return 0, invalid(ErrBadArguments)
	}
	if v < 0 || v > int64(maxRate) {
		return 0, invalid(ErrOutOfRange)
	}
	return uint32(v), nil
}

// Toggle active 命令：开启或关闭功能，并广播到其他节点
func (s *RateService) Toggle(ctx context.Context, cfg *model.Settings, args string) (bool, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return false, systemError(ErrBadArguments, TextToggleUsage)
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return false, systemError(ErrBadArguments, TextToggleUsage)
	}

	// 非零即开启，负数同样视为开启
	enabled := v != 0
	if cfg.Enabled == enabled || !s.settings.SetEnabled(enabled) {
		return false, chatErrorf(ErrRedundantToggle, "Custom rates for experience are already %s.", onOff(enabled))
	}
	s.metrics.RecordToggle("local", enabled)

	if err := s.feature.Publish(ctx, enabled); err != nil {
		// 本节点已生效，其他节点需要等待下一次切换
		s.logger.Warn("failed to broadcast toggle",
			"enabled", enabled,
			"error", err,
		)
	}
	return enabled, nil
}

// applyRemoteToggle 应用其他节点广播的开关，状态相同时忽略
func (s *RateService) applyRemoteToggle(enabled bool) {
	if s.settings.SetEnabled(enabled) {
		s.logger.Info("applied remote toggle", "enabled", enabled)
	}
}

// SyncToggle 启动时读取共享的开关状态
func (s *RateService) SyncToggle(ctx context.Context) error {
	enabled, found, err := s.feature.Load(ctx)
	if err != nil {
		return err
	}
	if found {
		s.applyRemoteToggle(enabled)
	}
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
