package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Delay         time.Duration `mapstructure:"delay"`
	Jitter        time.Duration `mapstructure:"jitter"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxBodySize   int           `mapstructure:"max_body_size"`
	RespectRobots bool          `mapstructure:"respect_robots"`

	Log  LogConfig  `mapstructure:"log"`
	Scan ScanConfig `mapstructure:"scan"`
	Bulk BulkConfig `mapstructure:"bulk"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

type ScanConfig struct {
	SWISCodes     []string `mapstructure:"swis_codes"`
	MinID         int      `mapstructure:"min_id"`
	MaxID         int      `mapstructure:"max_id"`
	NotFoundLimit int      `mapstructure:"not_found_limit"`
	Markers       []string `mapstructure:"markers"`
	Workers       int      `mapstructure:"workers"`
	Output        string   `mapstructure:"output"`
}

type BulkConfig struct {
	PageLength int    `mapstructure:"page_length"`
	Output     string `mapstructure:"output"`
}

const envPrefix = "PARCELS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://townofpotsdam.prosgar.com")
	v.SetDefault("user_agent", "Mozilla/5.0 (compatible; bruteforce-scraper/1.0)")
	v.SetDefault("delay", 50*time.Millisecond)
	v.SetDefault("jitter", time.Duration(0))
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("max_body_size", 0)
	v.SetDefault("respect_robots", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", true)

	v.SetDefault("scan.swis_codes", []string{"407401", "407403", "407489"})
	v.SetDefault("scan.min_id", 10000)
	v.SetDefault("scan.max_id", 100000)
	v.SetDefault("scan.not_found_limit", 100)
	v.SetDefault("scan.markers", []string{`id="sales_hdr"`})
	v.SetDefault("scan.workers", 1)
	v.SetDefault("scan.output", "potsdam_bruteforce.csv")

	v.SetDefault("bulk.page_length", 100)
	v.SetDefault("bulk.output", "parcels.csv")
}

// New returns a viper instance with defaults and env overrides wired, so
// command flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path on top of v and decodes it.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// comma separated lists from the environment arrive as one element
	cfg.Scan.SWISCodes = splitList(cfg.Scan.SWISCodes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute url", c.BaseURL))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative"))
	}
	if c.MaxBodySize < 0 {
		errs = append(errs, fmt.Errorf("max_body_size must not be negative"))
	}
	if c.Scan.NotFoundLimit < 1 {
		errs = append(errs, fmt.Errorf("scan.not_found_limit must be at least 1, got %d", c.Scan.NotFoundLimit))
	}
	if c.Scan.MinID > c.Scan.MaxID {
		errs = append(errs, fmt.Errorf("scan.min_id %d is above scan.max_id %d", c.Scan.MinID, c.Scan.MaxID))
	}
	if c.Scan.Workers < 1 {
		errs = append(errs, fmt.Errorf("scan.workers must be at least 1, got %d", c.Scan.Workers))
	}
	if c.Bulk.PageLength < 1 {
		errs = append(errs, fmt.Errorf("bulk.page_length must be at least 1, got %d", c.Bulk.PageLength))
	}
	return errors.Join(errs...)
}
