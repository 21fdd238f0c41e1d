package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CTRLPANEL_IO_TIMEOUT=2s.
const EnvPrefix = "CTRLPANEL"

// Settings holds client tuning. Every key can be set in settings.yaml or
// through the environment.
type Settings struct {
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	IOTimeout        time.Duration `mapstructure:"io_timeout"`
	SendPacing       time.Duration `mapstructure:"send_pacing"`
	SendLengthPrefix bool          `mapstructure:"send_length_prefix"`
	MaxFrameSize     int           `mapstructure:"max_frame_size"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	CacheDir         string        `mapstructure:"cache_dir"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFile          string        `mapstructure:"log_file"`
}

func setDefaults(v *viper.Viper) error {
	v.SetDefault("connect_timeout", "10s")
	v.SetDefault("io_timeout", "5s")
	v.SetDefault("send_pacing", "1s")
	v.SetDefault("send_length_prefix", false)
	v.SetDefault("max_frame_size", 1<<20)
	v.SetDefault("tick_interval", "50ms")
	v.SetDefault("log_level", "")
	v.SetDefault("log_file", "")

	cacheDir, err := DefaultCacheDir()
	if err != nil {
		return err
	}
	v.SetDefault("cache_dir", cacheDir)
	return nil
}

// LoadSettings reads settings from path. An empty path means the default
// settings file, which may be absent; an explicit path must exist.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, fmt.Errorf("failed to resolve defaults: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		p, err := GetSettingsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the transport cannot run with.
func (s *Settings) Validate() error {
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %v", s.ConnectTimeout)
	}
	if s.IOTimeout <= 0 {
		return fmt.Errorf("io_timeout must be positive, got %v", s.IOTimeout)
	}
	if s.SendPacing < 0 {
		return fmt.Errorf("send_pacing must not be negative, got %v", s.SendPacing)
	}
	if s.MaxFrameSize <= 0 {
		return fmt.Errorf("max_frame_size must be positive, got %d", s.MaxFrameSize)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", s.TickInterval)
	}
	if s.CacheDir == "" {
		return errors.New("cache_dir must not be empty")
	}
	return nil
}
