package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/graphcheck"
	"github.com/hupe1980/graphcheck/internal/config"
)

// Exit codes.
const (
	exitConsistent   = 0
	exitInconsistent = 1
	exitFatal        = 2
)

var tracer = otel.Tracer("github.com/hupe1980/graphcheck/cmd/graphcheck")

// errInconsistent is returned by check when the store has inconsistencies.
var errInconsistent = errors.New("inconsistencies found")

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "graphcheck",
		Short: "Check the consistency of a graph record store",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setSpanAttributes(cmd, trace.SpanFromContext(cmd.Context()))
			return initConfig(v, cfgFile)
		},
		// Errors are reported by execute.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	f := root.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "Path to the config file (default: ./graphcheck.yaml)")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("log-format", "text", "Log format: text or json")
	f.String("page-cache", "64MiB", "Page cache size")
	f.String("heap", "", "Heap size assumed for the checker (default: detected)")
	f.String("machine-memory", "", "Physical memory of the machine (default: detected)")
	f.String("remote-region", "", "Region of s3:// locations")
	f.String("remote-endpoint", "", "Endpoint URL of s3:// locations")
	f.Bool("remote-path-style", false, "Use path-style addressing for s3:// locations")
	f.Bool("remote-insecure", false, "Connect to minio:// locations without TLS")
	f.Uint("remote-retries", 5, "Attempts per remote read")
	bindFlags(v, f, map[string]string{
		"log_level":         "log-level",
		"log_format":        "log-format",
		"page_cache":        "page-cache",
		"heap":              "heap",
		"machine_memory":    "machine-memory",
		"remote.region":     "remote-region",
		"remote.endpoint":   "remote-endpoint",
		"remote.path_style": "remote-path-style",
		"remote.insecure":   "remote-insecure",
		"remote.retries":    "remote-retries",
	})
	cobra.CheckErr(v.BindEnv("remote.access_key", "GRAPHCHECK_REMOTE_ACCESS_KEY", "MINIO_ACCESS_KEY"))
	cobra.CheckErr(v.BindEnv("remote.secret_key", "GRAPHCHECK_REMOTE_SECRET_KEY", "MINIO_SECRET_KEY"))

	root.AddCommand(newCheckCmd(v), newInspectCmd(v), newVersionCmd())
	return root
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		cobra.CheckErr(v.BindPFlag(key, fs.Lookup(name)))
	}
}

func initConfig(v *viper.Viper, cfgFile string) error {
	// GRAPHCHECK_PAGE_CACHE overrides page_cache, GRAPHCHECK_REMOTE_REGION remote.region.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GRAPHCHECK")
	v.SetConfigType("yaml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("graphcheck")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "graphcheck"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper, location string) (config.Config, config.Sizes, error) {
	v.Set("location", location)
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, config.Sizes{}, err
	}
	sizes, err := cfg.Sizes()
	if err != nil {
		return config.Config{}, config.Sizes{}, err
	}
	return cfg, sizes, nil
}

func newLogger(cfg config.Config, w io.Writer) *graphcheck.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return graphcheck.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return graphcheck.NewLogger(slog.NewTextHandler(w, opts))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, span := tracer.Start(ctx, "cli")
	defer span.End()

	v := viper.New()
	config.SetDefaults(v)

	root := newRootCmd(v)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitConsistent
	case errors.Is(err, errInconsistent):
		return exitInconsistent
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fmt.Fprintf(stderr, "graphcheck: %v\n", err)
		return exitFatal
	}
}

func commandPath(c *cobra.Command) []string {
	var path []string
	if c.HasParent() {
		path = commandPath(c.Parent())
	}
	return append(path, c.Name())
}

// setSpanAttributes records the command path and every flag set on the
// command line.
func setSpanAttributes(cmd *cobra.Command, span trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.StringSlice("command.path", commandPath(cmd)),
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		k := "command.flag." + f.Name
		switch f.Value.Type() {
		case "bool":
			v, err := cmd.Flags().GetBool(f.Name)
			if err == nil {
				attrs = append(attrs, attribute.Bool(k, v))
			}
		case "int":
			v, err := cmd.Flags().GetInt(f.Name)
			if err == nil {
				attrs = append(attrs, attribute.Int(k, v))
			}
		case "int64":
			v, err := cmd.Flags().GetInt64(f.Name)
			if err == nil {
				attrs = append(attrs, attribute.Int64(k, v))
			}
		default:
			attrs = append(attrs, attribute.String(k, f.Value.String()))
		}
	})
	span.SetAttributes(attrs...)
}
