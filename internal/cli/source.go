package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/mark3labs/docsets/internal/config"
)

// SourceConfig selects where the docsets configuration is read from.
type SourceConfig struct {
	ConfigPath  string
	ConsulKey   string
	ConsulAddr  string
	ConsulToken string
	EnvPrefix   string
	NoEnv       bool

	// ConsulWait makes repeated Consul reads blocking queries.
	ConsulWait time.Duration
}

func resolveSourceConfig(v *viper.Viper) (SourceConfig, error) {
	sc := SourceConfig{
		ConfigPath:  strings.TrimSpace(v.GetString(configKey)),
		ConsulKey:   strings.TrimSpace(v.GetString(consulKeyKey)),
		ConsulAddr:  strings.TrimSpace(v.GetString(consulAddrKey)),
		ConsulToken: strings.TrimSpace(v.GetString(consulTokenKey)),
		EnvPrefix:   strings.TrimSpace(v.GetString(envOverlayKey)),
		NoEnv:       v.GetBool(noEnvKey),
	}
	switch {
	case sc.ConfigPath == "" && sc.ConsulKey == "":
		return sc, newUsageError("missing configuration: pass --config <file> or --consul-key <key>")
	case sc.ConfigPath != "" && sc.ConsulKey != "":
		return sc, newUsageError("--config and --consul-key are mutually exclusive")
	}
	return sc, nil
}

// Location names the configuration in logs and messages.
func (sc SourceConfig) Location() string {
	if sc.ConsulKey != "" {
		return "consul://" + strings.Trim(sc.ConsulKey, "/")
	}
	return sc.ConfigPath
}

func (sc SourceConfig) open() (config.Source, error) {
	if sc.ConsulKey != "" {
		return config.NewConsulSource(sc.ConsulKey,
			config.WithConsulAddress(sc.ConsulAddr),
			config.WithConsulToken(sc.ConsulToken),
			config.WithConsulWait(sc.ConsulWait),
		)
	}
	return config.NewFileSource(sc.ConfigPath)
}

func (sc SourceConfig) loadOptions() []config.Option {
	if sc.NoEnv {
		return nil
	}
	return []config.Option{config.WithEnv(sc.EnvPrefix)}
}

// loader returns a function that reads the configuration afresh on every
// call. The source is opened once.
func (sc SourceConfig) loader() (func(ctx context.Context) (*config.Tree, error), error) {
	src, err := sc.open()
	if err != nil {
		return nil, err
	}
	opts := sc.loadOptions()
	return func(ctx context.Context) (*config.Tree, error) {
		return config.Load(ctx, src, opts...)
	}, nil
}

func loadTree(ctx context.Context, sc SourceConfig) (*config.Tree, error) {
	load, err := sc.loader()
	if err != nil {
		return nil, describeError(err)
	}
	tree, err := load(ctx)
	if err != nil {
		return nil, describeError(err)
	}
	return tree, nil
}

// newLogger builds the structured logger for a command. --verbose lowers
// the level to debug unless --log-level was set explicitly.
func newLogger(v *viper.Viper, w io.Writer) (pslog.Logger, error) {
	levelStr := strings.ToLower(strings.TrimSpace(v.GetString(logLevelKey)))
	if v.GetBool(verboseKey) && !v.IsSet(logLevelKey) {
		levelStr = "debug"
	}
	if levelStr == "" {
		levelStr = "info"
	}
	if levelStr == "none" || levelStr == "off" {
		return pslog.NoopLogger(), nil
	}
	level, ok := pslog.ParseLevel(levelStr)
	if !ok {
		return nil, newUsageError(fmt.Sprintf("invalid --log-level %q", levelStr))
	}
	if level == pslog.NoLevel || level == pslog.Disabled {
		return pslog.NoopLogger(), nil
	}
	return pslog.NewStructured(w).LogLevel(level), nil
}
