package metrics

import (
	"fmt"
	"time"

	"github.com/lk2023060901/xdooria-rates/pkg/config"
	"github.com/lk2023060901/xdooria-rates/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-rates/pkg/metrics/system"
	"github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	// SystemCollectInterval 系统指标采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval" json:"system_collect_interval" yaml:"system_collect_interval"`
	// SlidingWindow 命令处理滑动窗口
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:             "rates",
		SystemCollectInterval: 5 * time.Second,
		SlidingWindow:         *sliding.DefaultWindowConfig(),
	}
}

// RatesMetrics 经验倍率服务指标
type RatesMetrics struct {
	config *Config

	// 玩家指标
	OnlinePlayers prometheus.Gauge       // 当前在线玩家数
	LoginsTotal   *prometheus.CounterVec // 登录处理（按应用结果）

	// 命令指标
	CommandTotal    *prometheus.CounterVec   // 命令总数（按命令、结果）
	CommandDuration *prometheus.HistogramVec // 命令处理延迟

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec   // 数据库查询总数（按操作、结果）
	DBQueryDuration *prometheus.HistogramVec // 数据库查询延迟
	ReadFallback    prometheus.Counter       // 读取失败按未设置处理的次数

	// 开关指标
	ToggleTotal *prometheus.CounterVec // 开关切换（按来源、状态）

	systemCollector *system.Collector
	slidingWindow   *sliding.Window
}

// New 创建指标
func New(cfg *Config) (*RatesMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}

	sysCollector, err := system.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create system collector: %w", err)
	}

	slidingWindow, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create sliding window: %w", err)
	}

	m := &RatesMetrics{
		config: newCfg,

		OnlinePlayers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: newCfg.Namespace,
				Name:      "online_players",
				Help:      "当前在线玩家数",
			},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "logins_total",
				Help:      "登录处理总数",
			},
			[]string{"result"}, // result: stored/default/disabled
		),

		CommandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "commands_total",
				Help:      "聊天命令处理总数",
			},
			[]string{"command", "result"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: newCfg.Namespace,
				Name:      "command_duration_seconds",
				Help:      "聊天命令处理延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"command"},
		),

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"}, // operation: select/insert/update/upsert/delete
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: newCfg.Namespace,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),
		ReadFallback: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "rate_read_fallback_total",
				Help:      "读取倍率失败后按未设置处理的次数",
			},
		),

		ToggleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "toggles_total",
				Help:      "功能开关切换次数",
			},
			[]string{"source", "state"}, // source: local/remote
		),

		systemCollector: sysCollector,
		slidingWindow:   slidingWindow,
	}

	sysCollector.Start(newCfg.SystemCollectInterval)

	return m, nil
}

// Register 注册指标到 Prometheus Registry
func (m *RatesMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.OnlinePlayers,
		m.LoginsTotal,
		m.CommandTotal,
		m.CommandDuration,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.ReadFallback,
		m.ToggleTotal,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// RecordLogin 记录登录处理结果
func (m *RatesMetrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// SetOnlinePlayers 更新在线玩家数
func (m *RatesMetrics) SetOnlinePlayers(n int) {
	m.OnlinePlayers.Set(float64(n))
}

// RecordCommand 记录命令处理
func (m *RatesMetrics) RecordCommand(command string, success bool, duration float64) {
	m.CommandTotal.WithLabelValues(command, result(success)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration)
	m.slidingWindow.Record(duration, success)
}

// RecordDBQuery 记录数据库查询
func (m *RatesMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	m.DBQueryTotal.WithLabelValues(operation, result(success)).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordReadFallback 记录读取失败降级
func (m *RatesMetrics) RecordReadFallback() {
	m.ReadFallback.Inc()
}

// RecordToggle 记录开关切换
func (m *RatesMetrics) RecordToggle(source string, enabled bool) {
	state := "off"
	if enabled {
		state = "on"
	}
	m.ToggleTotal.WithLabelValues(source, state).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// Stats 运行统计
type Stats struct {
	// 命令处理（滑动窗口）
	QPS         float64 `json:"qps"`
	AvgLatency  float64 `json:"avg_latency"`
	MaxLatency  float64 `json:"max_latency"`
	SuccessRate float64 `json:"success_rate"`
	// 系统指标
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	Goroutines    int     `json:"goroutines"`
}

// GetStats 获取运行统计
func (m *RatesMetrics) GetStats() Stats {
	windowStats := m.slidingWindow.GetStats()
	sysStats := m.systemCollector.GetStats()

	return Stats{
		QPS:           windowStats.QPS,
		AvgLatency:    windowStats.AvgLatency,
		MaxLatency:    windowStats.MaxLatency,
		SuccessRate:   windowStats.SuccessRate,
		CPUPercent:    sysStats.CPUPercent,
		MemoryPercent: sysStats.MemoryPercent,
		MemoryBytes:   sysStats.MemoryBytes,
		Goroutines:    sysStats.Goroutines,
	}
}

// GetConfig 获取配置
func (m *RatesMetrics) GetConfig() *Config {
	return m.config
}

// Stop 停止所有后台任务
func (m *RatesMetrics) Stop() {
	m.systemCollector.Stop()
	m.slidingWindow.Stop()
}

// Close 实现 app.Closer
func (m *RatesMetrics) Close() error {
	m.Stop()
	return nil
}
