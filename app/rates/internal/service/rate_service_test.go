package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lk2023060901/xdooria-rates/app/rates/internal/dao"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/manager"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/router"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 内存实现的 RateStore
type memStore struct {
	mu      sync.Mutex
	rows    map[int64]uint32
	inserts int
	updates int

	getErr    error
	upsertErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]uint32)}
}

func (s *memStore) Get(ctx context.Context, playerID int64) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	rate, ok := s.rows[playerID]
	return rate, ok, nil
}

func (s *memStore) Upsert(ctx context.Context, playerID int64, rate uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if _, ok := s.rows[playerID]; ok {
		s.updates++
	} else {
		s.inserts++
	}
	s.rows[playerID] = rate
	return nil
}

func (s *memStore) Delete(ctx context.Context, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.rows, playerID)
	return nil
}

// fakeFeature 记录广播的开关状态
type fakeFeature struct {
	dao.NoopFeatureDAO
	published  []bool
	publishErr error
	handler    dao.ToggleHandler
	stored     *bool
}

func (f *fakeFeature) Publish(ctx context.Context, enabled bool) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, enabled)
	return nil
}

func (f *fakeFeature) OnToggle(h dao.ToggleHandler) { f.handler = h }

func (f *fakeFeature) Load(ctx context.Context) (bool, bool, error) {
	if f.stored == nil {
		return false, false, nil
	}
	return *f.stored, true, nil
}

type fixture struct {
	svc      *RateService
	store    *memStore
	feature  *fakeFeature
	players  *manager.PlayerManager
	settings *manager.SettingsManager
	metrics  *metrics.RatesMetrics
	hooks    *LifecycleHooks
}

func newFixture(t *testing.T, modify ...func(s *model.Settings)) *fixture {
	t.Helper()

	cfg := model.DefaultSettings()
	for _, fn := range modify {
		fn(cfg)
	}

	l := logger.NewNoop()
	settings, err := manager.NewSettingsManager(cfg, l)
	require.NoError(t, err)

	m, err := metrics.New(nil)
	require.NoError(t, err)
	t.Cleanup(m.Stop)

	f := &fixture{
		store:    newMemStore(),
		feature:  &fakeFeature{},
		players:  manager.NewPlayerManager(l),
		settings: settings,
		metrics:  m,
		hooks:    router.NewHooks[*model.LifecycleEvent](),
	}
	f.svc, err = NewRateService(l, f.players, f.settings, f.store, f.feature, f.hooks, m)
	require.NoError(t, err)
	return f
}

func (f *fixture) login(t *testing.T, p model.Player) []model.ChatMessage {
	t.Helper()
	msgs, err := f.svc.HandleLogin(context.Background(), p)
	require.NoError(t, err)
	return msgs
}

func requireChatError(t *testing.T, err error, kind error) *ChatError {
	t.Helper()
	require.ErrorIs(t, err, kind)
	ce, ok := AsChatError(err)
	require.True(t, ok, "expected chat error, got %v", err)
	return ce
}

func TestNewRateServiceRegistersHooks(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{HookName}, f.hooks.Names(router.EventLogin))
	assert.Equal(t, []string{HookName}, f.hooks.Names(router.EventDelete))
	assert.NotNil(t, f.feature.handler)

	_, err := NewRateService(logger.NewNoop(), f.players, f.settings, f.store, f.feature, f.hooks, f.metrics)
	assert.Error(t, err)
}

func TestHandleLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("应用存储的倍率并提示", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Upsert(ctx, 1, 5))

		msgs := f.login(t, model.Player{ID: 1, Level: 10})
		require.Len(t, msgs, 1)
		assert.Equal(t, model.ChatPrefix+"Your XP rate was set to 5.", msgs[0].Text)
		assert.Equal(t, int64(1), msgs[0].To)

		rate, err := f.svc.CurrentRate(1)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), rate)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OnlinePlayers))
	})

	t.Run("零倍率提示", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Upsert(ctx, 1, 0))

		msgs := f.login(t, model.Player{ID: 1, Level: 10})
		require.Len(t, msgs, 1)
		assert.Equal(t, model.ChatPrefix+"Your XP rate was set to 0. You won't gain any XP anymore.", msgs[0].Text)

		rate, _ := f.svc.CurrentRate(1)
		assert.Zero(t, rate)
	})

	t.Run("关闭登录提示", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.ShowOnLogin = false })
		require.NoError(t, f.store.Upsert(ctx, 1, 5))

		assert.Empty(t, f.login(t, model.Player{ID: 1, Level: 10}))
		rate, _ := f.svc.CurrentRate(1)
		assert.Equal(t, uint32(5), rate)
	})

	t.Run("未设置时使用默认倍率", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.DefaultRate = 3 })

		assert.Empty(t, f.login(t, model.Player{ID: 1, Level: 10}))
		rate, _ := f.svc.CurrentRate(1)
		assert.Equal(t, uint32(3), rate)
	})

	t.Run("满级使用默认倍率", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.DefaultRate = 2 })
		require.NoError(t, f.store.Upsert(ctx, 1, 7))

		assert.Empty(t, f.login(t, model.Player{ID: 1, Level: 80}))
		rate, _ := f.svc.CurrentRate(1)
		assert.Equal(t, uint32(2), rate)
	})

	t.Run("读取失败按未设置处理", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.DefaultRate = 4 })
		f.store.getErr = errors.New("connection reset")

		assert.Empty(t, f.login(t, model.Player{ID: 1, Level: 10}))
		rate, _ := f.svc.CurrentRate(1)
		assert.Equal(t, uint32(4), rate)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ReadFallback))
	})

	t.Run("功能关闭时保持宿主默认值", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) {
			s.Enabled = false
			s.DefaultRate = 6
		})
		require.NoError(t, f.store.Upsert(ctx, 1, 5))

		assert.Empty(t, f.login(t, model.Player{ID: 1, Level: 10}))
		rate, _ := f.svc.CurrentRate(1)
		assert.Equal(t, model.HostDefaultXPRate, rate)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("disabled")))
	})
}

func TestHandleLogoutAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(s *model.Settings) { s.DefaultRate = 1 })

	f.login(t, model.Player{ID: 1, Level: 10})
	_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "7")
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleLogout(ctx, 1))
	assert.ErrorIs(t, f.svc.HandleLogout(ctx, 1), ErrNoSession)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.OnlinePlayers))

	// 下线不影响存储
	f.login(t, model.Player{ID: 1, Level: 10})
	rate, _ := f.svc.CurrentRate(1)
	assert.Equal(t, uint32(7), rate)

	// 删除角色后重新登录看到的是未设置
	require.NoError(t, f.svc.HandleDelete(ctx, 1))
	_, err = f.svc.CurrentRate(1)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, f.store.rows)

	assert.Empty(t, f.login(t, model.Player{ID: 1, Level: 10}))
	rate, _ = f.svc.CurrentRate(1)
	assert.Equal(t, uint32(1), rate)

	// 离线角色也可以删除
	require.NoError(t, f.store.Upsert(ctx, 9, 3))
	require.NoError(t, f.svc.HandleDelete(ctx, 9))
	_, found, _ := f.store.Get(ctx, 9)
	assert.False(t, found)

	f.store.deleteErr = errors.New("db down")
	assert.Error(t, f.svc.HandleDelete(ctx, 9))
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, model.Player{ID: 1, Level: 10})

	res, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "4")
	require.NoError(t, err)
	assert.True(t, res.SelfTarget())
	assert.Equal(t, uint32(4), res.Rate)
	assert.Equal(t, uint32(4), res.Caller.XPRate)

	rate, err := f.svc.GetRate(ctx, f.svc.Settings(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), rate)
}

func TestSetInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, model.Player{ID: 1, Level: 10})

	_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.inserts)
	assert.Equal(t, 0, f.store.updates)

	_, err = f.svc.SetRate(ctx, f.svc.Settings(), 1, "3")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.inserts)
	assert.Equal(t, 1, f.store.updates)
	assert.Len(t, f.store.rows, 1)
	assert.Equal(t, uint32(3), f.store.rows[1])
}

func TestSetRateBounds(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		arg     string
		wantErr error
	}{
		{"0", nil},
		{"10", nil},
		{"-1", ErrOutOfRange},
		{"11", ErrOutOfRange},
		{"99999999999999999999", ErrOutOfRange},
		{"abc", ErrBadArguments},
		{"", ErrBadArguments},
		{"1 2", ErrBadArguments},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			f := newFixture(t)
			f.login(t, model.Player{ID: 1, Level: 10})

			_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, tt.arg)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			ce := requireChatError(t, err, tt.wantErr)
			assert.Equal(t, "Invalid rate specified, must be in interval [0,10].", ce.Text)
			assert.True(t, ce.Prefixed)
			assert.Empty(t, f.store.rows)
		})
	}
}

func TestSetRatePreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("调用者不在线", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "1")
		assert.ErrorIs(t, err, ErrNoSession)
		_, ok := AsChatError(err)
		assert.False(t, ok)
	})

	t.Run("功能关闭", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.Enabled = false })
		f.login(t, model.Player{ID: 1, Level: 80, Security: model.SecurityPlayer})

		_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "abc")
		ce := requireChatError(t, err, ErrFeatureDisabled)
		assert.Equal(t, "Changing your experience rate is disabled at this time.", ce.Text)

		_, err = f.svc.GetRate(ctx, f.svc.Settings(), 1)
		ce = requireChatError(t, err, ErrFeatureDisabled)
		assert.Equal(t, "Viewing your XP rate is disabled at this time.", ce.Text)
	})

	t.Run("满级先于权限检查", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.MinSecurity = model.SecurityGameMaster })
		f.login(t, model.Player{ID: 1, Level: 80})

		_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "1")
		ce := requireChatError(t, err, ErrMaxLevel)
		assert.Equal(t, "You are already at maximum level.", ce.Text)
	})

	t.Run("权限低于配置", func(t *testing.T) {
		f := newFixture(t, func(s *model.Settings) { s.MinSecurity = model.SecurityModerator })
		f.login(t, model.Player{ID: 1, Level: 10, Security: model.SecurityPlayer})

		_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "1")
		ce := requireChatError(t, err, ErrPermissionDenied)
		assert.Equal(t, TextSecurityTooLow, ce.Text)
		assert.False(t, ce.Prefixed)
	})

	t.Run("选中的目标已下线", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, model.Player{ID: 1, Level: 10})
		require.NoError(t, f.svc.Select(1, 2))

		_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "1")
		ce := requireChatError(t, err, ErrNoSession)
		assert.Equal(t, TextNoCharSelected, ce.Text)
	})

	t.Run("目标检查先于参数检查", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, model.Player{ID: 1, Level: 10})
		require.NoError(t, f.svc.Select(1, 2))

		_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "-1")
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestSetRateTargets(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		caller   model.SecurityLevel
		target   model.SecurityLevel
		selfOnly bool
		wantErr  error
	}{
		{"自己，普通玩家", model.SecurityPlayer, 0, true, nil},
		{"自己，管理员", model.SecurityAdministrator, 0, true, nil},
		{"更高权限", model.SecurityGameMaster, model.SecurityModerator, false, nil},
		{"相同权限", model.SecurityGameMaster, model.SecurityGameMaster, false, ErrPermissionDenied},
		{"更低权限", model.SecurityModerator, model.SecurityGameMaster, false, ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.login(t, model.Player{ID: 1, Name: "Caller", Level: 10, Security: tt.caller})

			targetID := int64(1)
			if !tt.selfOnly {
				targetID = 2
				f.login(t, model.Player{ID: 2, Name: "Target", Level: 10, Security: tt.target})
			}
			require.NoError(t, f.svc.Select(1, targetID))

			res, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "6")
			if tt.wantErr != nil {
				requireChatError(t, err, tt.wantErr)
				rate, _ := f.svc.CurrentRate(targetID)
				assert.Equal(t, uint32(1), rate)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, targetID, res.Target.ID)
			assert.Equal(t, tt.selfOnly, res.SelfTarget())
			rate, _ := f.svc.CurrentRate(targetID)
			assert.Equal(t, uint32(6), rate)
			assert.Equal(t, uint32(6), f.store.rows[targetID])
		})
	}
}

func TestSetRateStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, model.Player{ID: 1, Level: 10})

	cause := errors.New("disk full")
	f.store.upsertErr = cause

	_, err := f.svc.SetRate(ctx, f.svc.Settings(), 1, "5")
	requireChatError(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)

	// 运行时状态已修改
	rate, _ := f.svc.CurrentRate(1)
	assert.Equal(t, uint32(5), rate)
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Toggle(ctx, f.svc.Settings(), "1")
	ce := requireChatError(t, err, ErrRedundantToggle)
	assert.Equal(t, "Custom rates for experience are already on.", ce.Text)

	enabled, err := f.svc.Toggle(ctx, f.svc.Settings(), "0")
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.False(t, f.svc.Settings().Enabled)
	assert.Equal(t, []bool{false}, f.feature.published)

	_, err = f.svc.Toggle(ctx, f.svc.Settings(), "0")
	ce = requireChatError(t, err, ErrRedundantToggle)
	assert.Equal(t, "Custom rates for experience are already off.", ce.Text)

	// 非零视为开启
	enabled, err = f.svc.Toggle(ctx, f.svc.Settings(), "5")
	require.NoError(t, err)
	assert.True(t, enabled)

	for _, args := range []string{"", "1 0", "on"} {
		_, err = f.svc.Toggle(ctx, f.svc.Settings(), args)
		ce = requireChatError(t, err, ErrBadArguments)
		assert.Equal(t, TextToggleUsage, ce.Text)
		assert.False(t, ce.Prefixed)
	}

	// 广播失败不影响本节点
	f.feature.publishErr = errors.New("redis down")
	enabled, err = f.svc.Toggle(ctx, f.svc.Settings(), "0")
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.False(t, f.svc.Settings().Enabled)

	enabled, err = f.svc.Toggle(ctx, f.svc.Settings(), "-1")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.True(t, f.svc.Settings().Enabled)
}

func TestRemoteToggle(t *testing.T) {
	f := newFixture(t)

	f.feature.handler(false)
	assert.False(t, f.svc.Settings().Enabled)
	f.feature.handler(false)
	assert.False(t, f.svc.Settings().Enabled)

	enabled := true
	f.feature.stored = &enabled
	require.NoError(t, f.svc.SyncToggle(context.Background()))
	assert.True(t, f.svc.Settings().Enabled)
}

func TestPlayerStateUpdates(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.svc.UpdateLevel(1, 20), ErrNoSession)
	assert.ErrorIs(t, f.svc.Select(1, 2), ErrNoSession)
	_, _, err := f.svc.ScaleXP(1, 100)
	assert.ErrorIs(t, err, ErrNoSession)

	f.login(t, model.Player{ID: 1, Level: 10})
	_, err = f.svc.SetRate(context.Background(), f.svc.Settings(), 1, "3")
	require.NoError(t, err)

	rate, xp, err := f.svc.ScaleXP(1, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), rate)
	assert.Equal(t, uint64(300), xp)

	require.NoError(t, f.svc.UpdateLevel(1, 80))
	_, err = f.svc.SetRate(context.Background(), f.svc.Settings(), 1, "3")
	assert.ErrorIs(t, err, ErrMaxLevel)
}
