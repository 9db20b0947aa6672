package dao

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/pkg/database/redis"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
)

const (
	// ToggleChannel 开关广播频道，消息内容为 "<节点ID>:0" 或 "<节点ID>:1"
	ToggleChannel = "rates:xp:toggle"
	// ToggleStateKey 开关的共享状态，新节点启动时读取
	ToggleStateKey = "rates:xp:enabled"
)

// ErrInvalidToggle 无法识别的开关消息
var ErrInvalidToggle = errors.New("invalid toggle payload")

// ToggleHandler 收到远端开关变更时的回调
type ToggleHandler func(enabled bool)

// FeatureDAO 功能开关的跨节点同步
type FeatureDAO interface {
	// Load 读取共享状态，未保存过时 found 为 false
	Load(ctx context.Context) (enabled bool, found bool, err error)
	// Publish 保存并广播开关状态
	Publish(ctx context.Context, enabled bool) error
	// OnToggle 设置远端变更回调，需在 Start 之前调用
	OnToggle(h ToggleHandler)
	// Start 开始监听远端变更
	Start() error
	// Stop 停止监听
	Stop() error
}

// featureClient FeatureDAO 依赖的 Redis 操作，*redis.Client 满足该接口
type featureClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Publish(ctx context.Context, channel string, message interface{}) (int64, error)
	Subscribe(ctx context.Context, channels ...string) (*redis.Subscription, error)
}

// RedisFeatureDAO 基于 Redis Pub/Sub 的开关同步
type RedisFeatureDAO struct {
	nodeID  string // 用于识别本节点发出的广播
	client  featureClient
	logger  logger.Logger
	metrics *metrics.RatesMetrics
	handler ToggleHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisFeatureDAO 创建 Redis 开关同步
func NewRedisFeatureDAO(client *redis.Client, l logger.Logger, m *metrics.RatesMetrics) *RedisFeatureDAO {
	return newRedisFeatureDAO(client, l, m)
}

func newRedisFeatureDAO(client featureClient, l logger.Logger, m *metrics.RatesMetrics) *RedisFeatureDAO {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisFeatureDAO{
		nodeID:  uuid.NewString(),
		client:  client,
		logger:  l.Named("dao.feature"),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Load 读取共享状态
func (d *RedisFeatureDAO) Load(ctx context.Context) (bool, bool, error) {
	val, err := d.client.Get(ctx, ToggleStateKey)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return false, false, nil
		}
		return false, false, errors.Wrap(err, "failed to load toggle state")
	}

	enabled, err := decodeToggle(val)
	if err != nil {
		return false, false, err
	}
	return enabled, true, nil
}

// Publish 保存并广播开关状态
func (d *RedisFeatureDAO) Publish(ctx context.Context, enabled bool) error {
	payload := encodeToggle(enabled)

	if err := d.client.Set(ctx, ToggleStateKey, payload, 0); err != nil {
		return errors.Wrap(err, "failed to save toggle state")
	}

	receivers, err := d.client.Publish(ctx, ToggleChannel, d.nodeID+":"+payload)
	if err != nil {
		return errors.Wrap(err, "failed to publish toggle")
	}

	d.logger.Info("toggle published", "enabled", enabled, "receivers", receivers)
	return nil
}

// OnToggle 设置远端变更回调
func (d *RedisFeatureDAO) OnToggle(h ToggleHandler) {
	d.handler = h
}

// Start 订阅开关频道
func (d *RedisFeatureDAO) Start() error {
	sub, err := d.client.Subscribe(d.ctx, ToggleChannel)
	if err != nil {
		return errors.Wrap(err, "redis subscribe failed")
	}

	d.logger.Info("toggle listener started", "channel", ToggleChannel)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.messageLoop(sub)
	}()

	return nil
}

// Stop 停止监听
func (d *RedisFeatureDAO) Stop() error {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("toggle listener stopped")
	return nil
}

// messageLoop 消息处理循环
func (d *RedisFeatureDAO) messageLoop(sub *redis.Subscription) {
	msgChan := sub.Channel()

	for {
		select {
		case <-d.ctx.Done():
			if err := sub.Close(); err != nil {
				d.logger.Warn("close subscription failed", "error", err)
			}
			return

		case msg, ok := <-msgChan:
			if !ok {
				d.logger.Warn("pubsub channel closed")
				return
			}

			if err := d.handleMessage(msg); err != nil {
				d.logger.Error("handle toggle message failed",
					"channel", msg.Channel,
					"payload", msg.Payload,
					"error", err,
				)
			}
		}
	}
}

// handleMessage 处理一条开关消息
func (d *RedisFeatureDAO) handleMessage(msg *redis.Message) error {
	payload := msg.Payload
	if node, state, ok := strings.Cut(payload, ":"); ok {
		if node == d.nodeID {
			// 本节点的回显，状态已在本地生效
			return nil
		}
		payload = state
	}

	enabled, err := decodeToggle(payload)
	if err != nil {
		return err
	}

	d.metrics.RecordToggle("remote", enabled)
	if d.handler != nil {
		d.handler(enabled)
	}
	return nil
}

func encodeToggle(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}

func decodeToggle(payload string) (bool, error) {
	switch payload {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidToggle, "payload %q", payload)
	}
}

// NoopFeatureDAO 未启用 Redis 时使用，开关只在本节点生效
type NoopFeatureDAO struct{}

// NewNoopFeatureDAO 创建空实现
func NewNoopFeatureDAO() *NoopFeatureDAO {
	return &NoopFeatureDAO{}
}

func (NoopFeatureDAO) Load(ctx context.Context) (bool, bool, error)     { return false, false, nil }
func (NoopFeatureDAO) Publish(ctx context.Context, enabled bool) error { return nil }
func (NoopFeatureDAO) OnToggle(h ToggleHandler)                        {}
func (NoopFeatureDAO) Start() error                                    { return nil }
func (NoopFeatureDAO) Stop() error                                     { return nil }
