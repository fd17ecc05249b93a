package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	_, err := m.Load()
	require.Error(t, err, "an explicit path must exist")

	path := writeConfig(t, "")
	cfg, err := NewManager(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Store.FlushInterval)
	assert.Equal(t, "/usr/share/X11/xkb/rules/evdev.xml", cfg.Hyprland.EvdevXMLPath)
	assert.Empty(t, cfg.DetectPopup)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
detect_popup:
  - com.raycast.macos
exclude: [com.example.noisy]
queue_size: 32
log:
  level: debug
  file: /tmp/clavy.log
store:
  backend: SQLite
  path: /tmp/sources.db
  flush_interval: 30s
`)
	cfg, err := NewManager(path).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"com.raycast.macos"}, cfg.DetectPopup)
	assert.Equal(t, []string{"com.example.noisy"}, cfg.Exclude)
	assert.Equal(t, 32, cfg.QueueSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/clavy.log", cfg.Log.File)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Store.FlushInterval)

	storePath, err := cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sources.db", storePath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "queue_size: 32\nlog:\n  level: warn\n")
	t.Setenv("CLAVY_QUEUE_SIZE", "64")
	t.Setenv("CLAVY_LOG_LEVEL", "error")

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "detect_popup: [com.apple.Spotlight]\n")

	flags := pflag.NewFlagSet("clavy", pflag.ContinueOnError)
	flags.Bool("debug", false, "")
	flags.StringSlice("detect-popup", nil, "")
	flags.String("log-file", "", "")
	require.NoError(t, flags.Parse([]string{"--debug", "--detect-popup", "com.a,com.b", "--log-file=/tmp/clavy.log"}))

	m := NewManager(path)
	require.NoError(t, m.BindFlags(flags))
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"com.a", "com.b"}, cfg.DetectPopup)
	assert.Equal(t, "/tmp/clavy.log", cfg.Log.File)
}

func TestLoad_Invalid(t *testing.T) {
	for name, content := range map[string]string{
		"backend":  "store:\n  backend: redis\n",
		"queue":    "queue_size: 0\n",
		"level":    "log:\n  level: loud\n",
		"interval": "store:\n  backend: json\n  flush_interval: 0s\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewManager(writeConfig(t, content)).Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestReload(t *testing.T) {
	path := writeConfig(t, "exclude: [com.a]\n")
	m := NewManager(path)
	_, err := m.Load()
	require.NoError(t, err)

	var got []*Config
	var errs []error
	m.OnChange(func(cfg *Config, err error) {
		got = append(got, cfg)
		errs = append(errs, err)
	})

	require.NoError(t, os.WriteFile(path, []byte("exclude: [com.b]\n"), 0o644))
	require.NoError(t, m.viper.ReadInConfig())
	m.reload()

	require.NoError(t, os.WriteFile(path, []byte("queue_size: -1\n"), 0o644))
	require.NoError(t, m.viper.ReadInConfig())
	m.reload()

	require.Len(t, got, 2)
	assert.NoError(t, errs[0])
	assert.Equal(t, []string{"com.b"}, got[0].Exclude)
	assert.ErrorIs(t, errs[1], ErrInvalidConfig)
	assert.Equal(t, []string{"com.b"}, got[1].Exclude, "previous config stays in effect")
	assert.Equal(t, []string{"com.b"}, m.Config().Exclude)
}

func TestReload_ConcurrentOnChange(t *testing.T) {
	path := writeConfig(t, "exclude: [com.a]\n")
	m := NewManager(path)
	_, err := m.Load()
	require.NoError(t, err)

	var lock sync.Mutex
	calls := 0
	count := func(*Config, error) {
		lock.Lock()
		defer lock.Unlock()
		calls++
	}

	// registering from inside a callback must not deadlock
	m.OnChange(func(*Config, error) { m.OnChange(count) })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 4; i++ {
			m.reload()
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.OnChange(count)
		}()
	}
	wg.Wait()

	m.lock.RLock()
	registered := len(m.callbacks)
	m.lock.RUnlock()
	// the nested callback adds one per reload on top of the four direct ones
	assert.Equal(t, 1+4+4, registered)

	lock.Lock()
	defer lock.Unlock()
	assert.LessOrEqual(t, calls, 4*(registered-1))
}

func TestLoad_NoColorEnv(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("NO_COLOR", "1")

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.True(t, cfg.NoColor)
}
