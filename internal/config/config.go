// Package config loads host settings from defaults, an optional YAML file,
// a .env file and ISOTILE_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "ISOTILE"

// Config is the merged host configuration.
type Config struct {
	Addr    string `mapstructure:"addr"`
	HostKey string `mapstructure:"host_key"`
	MapPath string `mapstructure:"map_path"`
	Assets  string `mapstructure:"assets"`

	Atlas AtlasConfig `mapstructure:"atlas"`
	Log   LogConfig   `mapstructure:"log"`
}

type AtlasConfig struct {
	PageSize      int  `mapstructure:"page_size"`
	Evicting      bool `mapstructure:"evicting"`
	TargetFPS     int  `mapstructure:"target_fps"`
	MaxLoads      int  `mapstructure:"max_loads"`
	PixelCacheMB  int  `mapstructure:"pixel_cache_mb"`
	LoaderWorkers int  `mapstructure:"loader_workers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":2222")
	v.SetDefault("host_key", "host_key")
	v.SetDefault("map_path", "assets/maps/town.json")
	v.SetDefault("assets", "assets/gfx")

	v.SetDefault("atlas.page_size", 2048)
	v.SetDefault("atlas.evicting", true)
	v.SetDefault("atlas.target_fps", 20)
	v.SetDefault("atlas.max_loads", 8)
	v.SetDefault("atlas.pixel_cache_mb", 64)
	v.SetDefault("atlas.loader_workers", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads configuration. file may be empty; envFiles are loaded with
// godotenv before the environment is consulted and may be missing.
func Load(file string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the atlas and server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Atlas.PageSize < 64 {
		errs = append(errs, fmt.Errorf("atlas.page_size %d is below 64", c.Atlas.PageSize))
	}
	if c.Atlas.TargetFPS <= 0 {
		errs = append(errs, fmt.Errorf("atlas.target_fps must be positive, got %d", c.Atlas.TargetFPS))
	}
	if c.Atlas.MaxLoads <= 0 {
		errs = append(errs, fmt.Errorf("atlas.max_loads must be positive, got %d", c.Atlas.MaxLoads))
	}
	if c.Atlas.PixelCacheMB < 0 {
		errs = append(errs, errors.New("atlas.pixel_cache_mb must not be negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
