package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Room    RoomConfig    `mapstructure:"room"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Verbose     bool   `mapstructure:"verbose"` // overrides Level with debug
}

// EffectiveLevel is the level the logger should run at.
func (c LogConfig) EffectiveLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.Level
}

type MetricsConfig struct {
	Address   string `mapstructure:"address"` // empty disables the endpoint
	Namespace string `mapstructure:"namespace"`
}

type RoomConfig struct {
	Name         string        `mapstructure:"name"`
	MinPlayers   int           `mapstructure:"min_players"`
	MaxPlayers   int           `mapstructure:"max_players"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	TurnTimeout  time.Duration `mapstructure:"turn_timeout"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// New returns a viper instance with defaults and TURNSERVER_ env binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.verbose", false)
	v.SetDefault("metrics.address", "")
	v.SetDefault("metrics.namespace", "turnserver")
	v.SetDefault("room.name", "table")
	v.SetDefault("room.min_players", 1)
	v.SetDefault("room.max_players", 8)
	v.SetDefault("room.tick_interval", 100*time.Millisecond)
	v.SetDefault("room.turn_timeout", time.Duration(0))

	v.SetEnvPrefix("TURNSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads config.yaml from path on top of the defaults.
// A missing file is not an error.
func LoadConfig(v *viper.Viper, path string) (config *Config, err error) {
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Room.MinPlayers < 1:
		return fmt.Errorf("%w: room.min_players must be at least 1, got %d", ErrInvalidConfig, c.Room.MinPlayers)
	case c.Room.MaxPlayers < c.Room.MinPlayers:
		return fmt.Errorf("%w: room.max_players (%d) below room.min_players (%d)", ErrInvalidConfig, c.Room.MaxPlayers, c.Room.MinPlayers)
	case c.Room.TickInterval < 0 || c.Room.TurnTimeout < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}
