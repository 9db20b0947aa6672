package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// syncBuffer 并发安全的日志捕获
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func newCaptured(t *testing.T, cfg *Config, opts ...Option) (*BaseLogger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Format = JSONFormat
	l, err := New(cfg, append(opts, WithOutput(zapcore.AddSync(buf)))...)
	require.NoError(t, err)
	return l, buf
}

func TestLoggerLevelsAndFields(t *testing.T) {
	l, buf := newCaptured(t, &Config{Level: WarnLevel})

	l.Info("filtered")
	l.Warn("rate rejected", "player_id", int64(7), "error", errors.New("too high"))
	l.Error("odd", "key")

	lines := buf.lines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "rate rejected", lines[0]["msg"])
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, float64(7), lines[0]["player_id"])
	assert.Equal(t, "too high", lines[0]["error"])
	assert.Equal(t, "(MISSING)", lines[1]["key"])
}

func TestLoggerNamedAndWithFields(t *testing.T) {
	l, buf := newCaptured(t, nil, WithName("rates"), WithGlobalFields("node", "n1"))

	l.Named("service").WithFields("component", "rate").Info("hello")
	l.WithFields().Info("same")

	lines := buf.lines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "rates.service", lines[0]["logger"])
	assert.Equal(t, "rate", lines[0]["component"])
	assert.Equal(t, "n1", lines[0]["node"])
	assert.Equal(t, "rates", lines[1]["logger"])
}

func TestLoggerContextExtractor(t *testing.T) {
	l, buf := newCaptured(t, nil)

	ctx := WithPlayerID(context.Background(), 42)
	l.InfoContext(ctx, "with player")
	l.InfoContext(context.Background(), "without player")

	id, ok := PlayerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	lines := buf.lines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, float64(42), lines[0]["player_id"])
	assert.NotContains(t, lines[1], "player_id")
}

func TestLoggerSensitiveKeys(t *testing.T) {
	dropDebug := HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		return entry.Message != "drop me"
	})
	l, buf := newCaptured(t, &Config{SensitiveKeys: []string{"password"}}, WithHooks(dropDebug))

	l.Info("connecting", "host", "localhost", "password", "secret")
	l.Info("drop me")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "***REDACTED***", lines[0]["password"])
	assert.Equal(t, "localhost", lines[0]["host"])
}

func TestLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()

	for _, rt := range []RotationType{RotationBySize, RotationByTime} {
		t.Run(string(rt), func(t *testing.T) {
			path := filepath.Join(dir, string(rt)+".log")
			l, err := New(&Config{
				Format:     JSONFormat,
				EnableFile: true,
				OutputPath: path,
				Rotation:   RotationConfig{Type: rt},
			})
			require.NoError(t, err)

			l.Info("written to file")
			require.NoError(t, l.Sync())

			files, err := filepath.Glob(path + "*")
			require.NoError(t, err)
			require.NotEmpty(t, files)

			var content strings.Builder
			for _, f := range files {
				data, err := os.ReadFile(f)
				require.NoError(t, err)
				content.Write(data)
			}
			assert.Contains(t, content.String(), "written to file")
		})
	}
}

func TestConfigValidate(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	cfg := DefaultConfig()
	cfg.EnableFile = true
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidOutputPath)

	cfg = DefaultConfig()
	cfg.EnableConsole = false
	assert.ErrorIs(t, cfg.Validate(), ErrNoOutputEnabled)
}

func TestNoopAndDefault(t *testing.T) {
	var l Logger = NewNoop()
	l.Info("ignored")
	assert.Same(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())

	SetDefault(l)
	t.Cleanup(func() { SetDefault(nil) })
	assert.Same(t, l, Default())
}

func TestConsoleSyncerIgnoresPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})

	ws := consoleSyncer{w}
	_, err = ws.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.NoError(t, ws.Sync())

	// 控制台开启时 Sync 不因标准输出类型失败
	l, err := New(&Config{Format: JSONFormat})
	require.NoError(t, err)
	l.Info("console")
	assert.NoError(t, l.Sync())
}
