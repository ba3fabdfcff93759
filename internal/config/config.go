// Package config holds the command line configuration of graphcheck.
package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is decoded from flags, environment (GRAPHCHECK_*) and graphcheck.yaml.
type Config struct {
	Location string `mapstructure:"location" validate:"required"`
	Threads  int    `mapstructure:"threads" validate:"gte=1,lte=4096"`

	CheckGraph          bool  `mapstructure:"check_graph"`
	CheckIndexes        bool  `mapstructure:"check_indexes"`
	SmallIndexThreshold int64 `mapstructure:"small_index_threshold" validate:"gte=0"`

	// Sizes accept humanized values such as "512MiB" or "2GB".
	PageCache     string `mapstructure:"page_cache" validate:"omitempty,bytesize"`
	Heap          string `mapstructure:"heap" validate:"omitempty,bytesize"`
	MachineMemory string `mapstructure:"machine_memory" validate:"omitempty,bytesize"`
	MemoryLimit   string `mapstructure:"memory_limit" validate:"omitempty,bytesize"`
	IOLimit       string `mapstructure:"io_limit" validate:"omitempty,bytesize"`

	Report       string `mapstructure:"report"`
	ReportSQLite string `mapstructure:"report_sqlite"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`

	Remote Remote `mapstructure:"remote"`
}

// Remote configures s3:// and minio:// locations.
type Remote struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
	PathStyle bool   `mapstructure:"path_style"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Insecure  bool   `mapstructure:"insecure"`
	Retries   uint   `mapstructure:"retries" validate:"gte=1,lte=100"`
}

// Sizes are the parsed byte sizes of a Config. Zero means unset.
type Sizes struct {
	PageCache     int64
	Heap          int64
	MachineMemory int64
	MemoryLimit   int64
	IOLimit       int64
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("threads", runtime.NumCPU())
	v.SetDefault("check_graph", true)
	v.SetDefault("check_indexes", true)
	v.SetDefault("small_index_threshold", 10_000)
	v.SetDefault("page_cache", "64MiB")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("remote.retries", 5)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		_, err := humanize.ParseBytes(fl.Field().String())
		return err == nil
	})
	return v
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of c.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Sizes parses the humanized size fields.
func (c Config) Sizes() (Sizes, error) {
	var s Sizes
	fields := []struct {
		name string
		in   string
		out  *int64
	}{
		{"page_cache", c.PageCache, &s.PageCache},
		{"heap", c.Heap, &s.Heap},
		{"machine_memory", c.MachineMemory, &s.MachineMemory},
		{"memory_limit", c.MemoryLimit, &s.MemoryLimit},
		{"io_limit", c.IOLimit, &s.IOLimit},
	}
	for _, f := range fields {
		if f.in == "" {
			continue
		}
		n, err := humanize.ParseBytes(f.in)
		if err != nil {
			return Sizes{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = int64(n)
	}
	return s, nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
