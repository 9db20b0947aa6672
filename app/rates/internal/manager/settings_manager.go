package manager

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/pkg/config"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
)

// SettingsKey 配置文件中的功能配置段
const SettingsKey = "rates"

// SettingsManager 功能配置管理器
//
// 配置以不可变快照的形式保存，处理一次请求只读取一次 Snapshot。
// 开关由 active 命令（或远端广播）修改，其余字段随配置文件热更新。
type SettingsManager struct {
	logger    logger.Logger
	validator *config.Validator
	current   atomic.Pointer[model.Settings]
}

// NewSettingsManager 创建配置管理器，cfg 为 nil 时使用默认配置
func NewSettingsManager(cfg *model.Settings, l logger.Logger) (*SettingsManager, error) {
	if cfg == nil {
		cfg = model.DefaultSettings()
	}

	m := &SettingsManager{
		logger:    l.Named("manager.settings"),
		validator: config.NewValidator(),
	}
	if err := m.validator.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid rates settings")
	}

	snapshot := *cfg
	m.current.Store(&snapshot)
	return m, nil
}

// Snapshot 当前配置快照，调用方不能修改
func (m *SettingsManager) Snapshot() *model.Settings {
	return m.current.Load()
}

// SetEnabled 修改功能开关，状态未变化时返回 false
func (m *SettingsManager) SetEnabled(enabled bool) bool {
	for {
		old := m.current.Load()
		if old.Enabled == enabled {
			return false
		}
		if m.current.CompareAndSwap(old, old.WithEnabled(enabled)) {
			m.logger.Info("xp rates toggled", "enabled", enabled)
			return true
		}
	}
}

// Reload 替换配置，保留当前的开关状态
func (m *SettingsManager) Reload(cfg *model.Settings) error {
	if cfg == nil {
		return errors.New("nil rates settings")
	}
	if err := m.validator.Validate(cfg); err != nil {
		return errors.Wrap(err, "invalid rates settings")
	}

	for {
		old := m.current.Load()
		next := cfg.WithEnabled(old.Enabled)
		if m.current.CompareAndSwap(old, next) {
			m.logger.Info("rates settings reloaded",
				"default_rate", next.DefaultRate,
				"max_rate", next.MaxRate,
				"min_security", next.MinSecurity.String(),
				"max_player_level", next.MaxPlayerLevel,
				"show_on_login", next.ShowOnLogin,
			)
			return nil
		}
	}
}

// Watch 监听配置文件变化并重新加载，非法配置会被忽略
func (m *SettingsManager) Watch(mgr config.Manager) error {
	return mgr.Watch(func() {
		cfg := model.DefaultSettings()
		if err := mgr.UnmarshalKey(SettingsKey, cfg); err != nil {
			m.logger.Error("failed to read rates settings", "error", err)
			return
		}
		if err := m.Reload(cfg); err != nil {
			m.logger.Error("rejected rates settings", "error", err)
		}
	})
}
