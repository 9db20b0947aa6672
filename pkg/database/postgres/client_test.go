package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "默认配置有效",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "nil 配置",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "单机与主从同时配置",
			cfg: &Config{
				Standalone: &DBConfig{Host: "a", Port: 5432, User: "u", DBName: "d"},
				Master:     &DBConfig{Host: "b", Port: 5432, User: "u", DBName: "d"},
				Pool:       PoolConfig{MaxConns: 1},
			},
			wantErr: true,
		},
		{
			name:    "两种模式都未配置",
			cfg:     &Config{Pool: PoolConfig{MaxConns: 1}},
			wantErr: true,
		},
		{
			name: "端口越界",
			cfg: &Config{
				Standalone: &DBConfig{Host: "a", Port: 70000, User: "u", DBName: "d"},
				Pool:       PoolConfig{MaxConns: 1},
			},
			wantErr: true,
		},
		{
			name: "最小连接数大于最大连接数",
			cfg: &Config{
				Standalone: &DBConfig{Host: "a", Port: 5432, User: "u", DBName: "d"},
				Pool:       PoolConfig{MaxConns: 1, MinConns: 2},
			},
			wantErr: true,
		},
		{
			name: "从库配置无效",
			cfg: &Config{
				Master: &DBConfig{Host: "a", Port: 5432, User: "u", DBName: "d"},
				Slaves: []DBConfig{{Host: "", Port: 5432, User: "u", DBName: "d"}},
				Pool:   PoolConfig{MaxConns: 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeConfigKeepsDefaults(t *testing.T) {
	merged, err := MergeConfig(DefaultConfig(), &Config{
		Standalone:   &DBConfig{Host: "db.internal", Password: "secret"},
		QueryTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", merged.Standalone.Host)
	assert.Equal(t, 5432, merged.Standalone.Port)
	assert.Equal(t, "xdooria_rates", merged.Standalone.DBName)
	assert.Equal(t, int32(25), merged.Pool.MaxConns)
	assert.Equal(t, 5*time.Second, merged.QueryTimeout)
}

func TestBuildConnString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Standalone.Password = "pw"

	got := buildConnString(cfg, cfg.Standalone)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=xdooria_rates sslmode=disable connect_timeout=10",
		got,
	)
}

type stubRow struct {
	err    error
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		*(dest[i].(*int64)) = r.values[i].(int64)
	}
	return nil
}

func TestRowScan(t *testing.T) {
	t.Run("无数据映射为 ErrNoRows", func(t *testing.T) {
		cancelled := false
		row := &Row{row: stubRow{err: pgx.ErrNoRows}, cancel: func() { cancelled = true }}

		var v int64
		err := row.Scan(&v)
		assert.ErrorIs(t, err, ErrNoRows)
		assert.True(t, cancelled)
	})

	t.Run("其他错误保留原因", func(t *testing.T) {
		cause := errors.New("conn reset")
		row := &Row{row: stubRow{err: cause}, cancel: func() {}}

		var v int64
		err := row.Scan(&v)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrNoRows)
	})

	t.Run("正常读取", func(t *testing.T) {
		row := &Row{row: stubRow{values: []any{int64(7)}}, cancel: func() {}}

		var v int64
		require.NoError(t, row.Scan(&v))
		assert.Equal(t, int64(7), v)
	})
}

func TestApplyQueryTimeout(t *testing.T) {
	c := &Client{cfg: &Config{QueryTimeout: time.Second}}
	ctx, cancel := c.applyQueryTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	c = &Client{cfg: &Config{}}
	ctx, cancel = c.applyQueryTimeout(context.Background())
	defer cancel()
	_, ok = ctx.Deadline()
	assert.False(t, ok)
}

func TestNewMasterSlaveDropsDefaultStandalone(t *testing.T) {
	// 主库地址无效时在建池阶段失败，而不是因单机默认值触发模式冲突
	_, err := New(&Config{
		Master:         &DBConfig{Host: "127.0.0.1", Port: 1, User: "u", DBName: "d"},
		ConnectTimeout: 200 * time.Millisecond,
	}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
