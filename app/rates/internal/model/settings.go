package model

// MaxStoredRate xp_rate 列为 INTEGER，上限不能超过该值
const MaxStoredRate = 2147483647

// Settings 功能配置快照，每次命令或登录处理都使用同一份不可变快照
type Settings struct {
	Enabled        bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	ShowOnLogin    bool          `mapstructure:"show_on_login" json:"show_on_login" yaml:"show_on_login"`
	DefaultRate    uint32        `mapstructure:"default_rate" json:"default_rate" yaml:"default_rate" validate:"ltefield=MaxRate"`
	MaxRate        uint32        `mapstructure:"max_rate" json:"max_rate" yaml:"max_rate" validate:"lte=2147483647"`
	MinSecurity    SecurityLevel `mapstructure:"min_security" json:"min_security" yaml:"min_security" validate:"lte=4"`
	MaxPlayerLevel int32         `mapstructure:"max_player_level" json:"max_player_level" yaml:"max_player_level" validate:"gte=1"`
}

// DefaultSettings 默认配置
func DefaultSettings() *Settings {
	return &Settings{
		Enabled:        true,
		ShowOnLogin:    true,
		DefaultRate:    1,
		MaxRate:        10,
		MinSecurity:    SecurityPlayer,
		MaxPlayerLevel: 80,
	}
}

// WithEnabled 返回修改了开关的副本
func (s Settings) WithEnabled(enabled bool) *Settings {
	s.Enabled = enabled
	return &s
}

// AtMaxLevel 玩家是否已满级
func (s *Settings) AtMaxLevel(level int32) bool {
	return level >= s.MaxPlayerLevel
}
