package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	AppName   = "clavy"
	EnvPrefix = "CLAVY"
)

type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreJSON   StoreBackend = "json"
	StoreSQLite StoreBackend = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Debug       bool     `mapstructure:"debug"`
	NoColor     bool     `mapstructure:"no_color"`
	DetectPopup []string `mapstructure:"detect_popup"`
	Exclude     []string `mapstructure:"exclude"`
	QueueSize   int      `mapstructure:"queue_size"`

	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Hyprland HyprlandConfig `mapstructure:"hyprland"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type StoreConfig struct {
	Backend       StoreBackend  `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type HyprlandConfig struct {
	EvdevXMLPath string `mapstructure:"evdev_xml_path"`
	// Keyboard to follow; empty means the main keyboard.
	Keyboard string `mapstructure:"keyboard"`
}

// Manager loads the configuration and notifies subscribers when the file
// changes on disk.
type Manager struct {
	viper *viper.Viper

	lock      sync.RWMutex
	config    *Config
	callbacks []func(*Config, error)
}

// NewManager reads from path when set, otherwise from config.yaml in the
// clavy config directory. A missing file is not an error.
func NewManager(path string) *Manager {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// https://no-color.org
	_ = v.BindEnv("no_color", EnvPrefix+"_NO_COLOR", "NO_COLOR")

	setDefaults(v)

	return &Manager{viper: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)
	v.SetDefault("detect_popup", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("queue_size", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("store.backend", string(StoreMemory))
	v.SetDefault("store.path", "")
	v.SetDefault("store.flush_interval", 5*time.Second)

	v.SetDefault("hyprland.evdev_xml_path", "/usr/share/X11/xkb/rules/evdev.xml")
	v.SetDefault("hyprland.keyboard", "")
}

// BindFlags lets command line flags take precedence over the file. Flag names
// use dashes where keys use underscores.
func (m *Manager) BindFlags(flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"debug":        "debug",
		"no_color":     "no-color",
		"detect_popup": "detect-popup",
		"log.file":     "log-file",
	} {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := m.viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (m *Manager) Load() (*Config, error) {
	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := m.decode()
	if err != nil {
		return nil, err
	}

	m.lock.Lock()
	m.config = cfg
	m.lock.Unlock()

	return cfg, nil
}

func (m *Manager) decode() (*Config, error) {
	cfg := &Config{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.DetectPopup = splitList(cfg.DetectPopup)
	cfg.Exclude = splitList(cfg.Exclude)
	cfg.Store.Backend = StoreBackend(strings.ToLower(string(cfg.Store.Backend)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns the last successfully loaded configuration.
func (m *Manager) Config() *Config {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.config
}

// ConfigFileUsed is empty when no file was found.
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// OnChange registers fn to be called after every reload. On a failed reload
// fn receives the error and the previous configuration stays in effect.
func (m *Manager) OnChange(fn func(*Config, error)) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch starts watching the config file. It is a no-op when no file was
// loaded.
func (m *Manager) Watch() {
	if m.viper.ConfigFileUsed() == "" {
		return
	}

	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.reload()
	})
	m.viper.WatchConfig()
}

func (m *Manager) reload() {
	cfg, err := m.decode()

	m.lock.Lock()
	if err == nil {
		m.config = cfg
	} else {
		cfg = m.config
	}
	callbacks := slices.Clone(m.callbacks)
	m.lock.Unlock()

	for _, fn := range callbacks {
		fn(cfg, err)
	}
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.Store.Backend != StoreMemory && c.Store.FlushInterval <= 0 {
		return fmt.Errorf("%w: store.flush_interval must be positive, got %s", ErrInvalidConfig, c.Store.FlushInterval)
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// StorePath returns the configured persistence path or the default one in
// the clavy data directory.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}

	name := "sources.json"
	if c.Store.Backend == StoreSQLite {
		name = "sources.db"
	}
	path, err := xdg.DataFile(filepath.Join(AppName, name))
	if err != nil {
		return "", fmt.Errorf("get data file: %w", err)
	}
	return path, nil
}

// splitList accepts both YAML lists and comma separated values from the
// environment or flags.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
