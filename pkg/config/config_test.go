package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type testConfig struct {
	Name   string            `mapstructure:"name" validate:"required"`
	Rate   uint32            `mapstructure:"rate" validate:"lte=10"`
	Tags   []string          `mapstructure:"tags"`
	Labels map[string]string `mapstructure:"labels"`
	Inner  innerConfig       `mapstructure:"inner"`
	Extra  *innerConfig      `mapstructure:"extra"`
}

func TestMergeConfig(t *testing.T) {
	t.Run("非零值覆盖默认值", func(t *testing.T) {
		dst := &testConfig{Name: "default", Rate: 1, Inner: innerConfig{Host: "localhost", Port: 5432}}
		src := &testConfig{Rate: 5, Inner: innerConfig{Port: 6543}}

		merged, err := MergeConfig(dst, src)
		require.NoError(t, err)
		assert.Equal(t, "default", merged.Name)
		assert.Equal(t, uint32(5), merged.Rate)
		assert.Equal(t, "localhost", merged.Inner.Host)
		assert.Equal(t, 6543, merged.Inner.Port)
	})

	t.Run("合并 map 与指针", func(t *testing.T) {
		dst := &testConfig{Labels: map[string]string{"a": "1"}}
		src := &testConfig{
			Labels: map[string]string{"b": "2"},
			Extra:  &innerConfig{Timeout: time.Second},
		}

		merged, err := MergeConfig(dst, src)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged.Labels)
		require.NotNil(t, merged.Extra)
		assert.Equal(t, time.Second, merged.Extra.Timeout)
	})

	t.Run("切片整体替换", func(t *testing.T) {
		dst := &testConfig{Tags: []string{"x", "y"}}
		src := &testConfig{Tags: []string{"z"}}

		merged, err := MergeConfig(dst, src)
		require.NoError(t, err)
		assert.Equal(t, []string{"z"}, merged.Tags)
	})

	t.Run("nil 处理", func(t *testing.T) {
		src := &testConfig{Name: "only"}
		merged, err := MergeConfig(nil, src)
		require.NoError(t, err)
		assert.Same(t, src, merged)

		merged, err = MergeConfig(src, nil)
		require.NoError(t, err)
		assert.Same(t, src, merged)

		_, err = MergeConfig[testConfig](nil, nil)
		assert.ErrorIs(t, err, ErrMergeFailed)
	})
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&testConfig{Name: "ok", Rate: 10}))

	err := v.Validate(&testConfig{Rate: 11})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "testConfig.Name' is required")
	assert.Contains(t, err.Error(), "must be at most 10")

	assert.ErrorIs(t, v.Validate(nil), ErrNilConfig)
}

func TestManagerLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
name: rates
rate: 3
inner:
  host: db.local
  port: 5433
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := NewManager(WithDefaults(map[string]any{"inner.port": 5432}))
	require.NoError(t, m.LoadFile(path))

	var cfg testConfig
	require.NoError(t, m.Unmarshal(&cfg))
	assert.Equal(t, "rates", cfg.Name)
	assert.Equal(t, uint32(3), cfg.Rate)
	assert.Equal(t, "db.local", cfg.Inner.Host)
	assert.Equal(t, 5433, cfg.Inner.Port)
	assert.Equal(t, 2*time.Second, cfg.Inner.Timeout)

	var inner innerConfig
	require.NoError(t, m.UnmarshalKey("inner", &inner))
	assert.Equal(t, "db.local", inner.Host)

	assert.True(t, m.IsSet("rate"))
	assert.Equal(t, 3, m.GetInt("rate"))
}

func TestManagerLoadFileMissing(t *testing.T) {
	m := NewManager()
	err := m.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestManagerBindEnv(t *testing.T) {
	t.Setenv("RATESTEST_INNER_HOST", "from-env")

	m := NewManager(WithDefaults(map[string]any{"inner.host": "default"}))
	m.BindEnv("RATESTEST")

	assert.Equal(t, "from-env", m.GetString("inner.host"))
}

func TestManagerWatchWithoutFile(t *testing.T) {
	m := NewManager()
	assert.ErrorIs(t, m.Watch(func() {}), ErrConfigFileNotFound)
}
