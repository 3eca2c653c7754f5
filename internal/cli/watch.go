package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/mark3labs/docsets/internal/docset"
	"github.com/mark3labs/docsets/internal/emitter"
	"github.com/mark3labs/docsets/internal/reload"
)

const (
	watchOutKey      = "watch.out"
	watchFormatKey   = "watch.format"
	watchListenKey   = "watch.metrics-listen"
	watchIntervalKey = "watch.interval"
	watchDebounceKey = "watch.debounce"
)

const defaultConsulInterval = 30 * time.Second

// WatchConfig captures the inputs of the watch command.
type WatchConfig struct {
	Source        SourceConfig
	Out           string
	Format        string
	MetricsListen string
	Interval      time.Duration
	Debounce      time.Duration

	Logger pslog.Logger
	// ready, when set, receives the metrics listener address once serving.
	ready func(addr string)
}

var watchRunner = runWatch

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a live descriptor registry and reassemble on configuration changes",
		Long: "Assemble once, then reassemble whenever the configuration file changes (or on an " +
			"interval for Consul). A failed reload keeps the previous registry. Reload counters " +
			"and the current registry are served over HTTP when --metrics-listen is set.",
		Example: strings.TrimSpace(`  docsets --config docsets.yaml watch --out ./manifests --metrics-listen :9464
  docsets --consul-key config/docsets.yaml watch --interval 1m`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveWatchConfig(cmd, v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchRunner(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("out", "", "Rewrite manifests into this directory after every successful reload")
	flags.String("format", "yaml", "Manifest format (yaml|json)")
	flags.String("metrics-listen", "", "Serve /metrics and /descriptors on this address (e.g. :9464)")
	flags.Duration("interval", 0, "Reload on this period (defaults to 30s for --consul-key)")
	flags.Duration("debounce", reload.DefaultDebounce, "Coalesce file events within this window")
	mustBindFlag(v, watchOutKey, flags.Lookup("out"))
	mustBindFlag(v, watchFormatKey, flags.Lookup("format"))
	mustBindFlag(v, watchListenKey, flags.Lookup("metrics-listen"))
	mustBindFlag(v, watchIntervalKey, flags.Lookup("interval"))
	mustBindFlag(v, watchDebounceKey, flags.Lookup("debounce"))

	return cmd
}

func resolveWatchConfig(cmd *cobra.Command, v *viper.Viper) (*WatchConfig, error) {
	src, err := resolveSourceConfig(v)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(v, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	cfg := &WatchConfig{
		Source:        src,
		Out:           strings.TrimSpace(v.GetString(watchOutKey)),
		Format:        strings.ToLower(strings.TrimSpace(v.GetString(watchFormatKey))),
		MetricsListen: strings.TrimSpace(v.GetString(watchListenKey)),
		Interval:      v.GetDuration(watchIntervalKey),
		Debounce:      v.GetDuration(watchDebounceKey),
		Logger:        logger,
	}
	switch emitter.Format(cfg.Format) {
	case emitter.FormatYAML, emitter.FormatJSON:
	default:
		return nil, newUsageError(fmt.Sprintf("watch: unsupported --format %q (allowed: yaml, json)", cfg.Format))
	}
	if cfg.Interval < 0 || cfg.Debounce < 0 {
		return nil, newUsageError("watch: --interval and --debounce must not be negative")
	}
	if src.ConsulKey != "" {
		if cfg.Interval == 0 {
			cfg.Interval = defaultConsulInterval
		}
		cfg.Source.ConsulWait = cfg.Interval
	}
	return cfg, nil
}

func runWatch(ctx context.Context, cfg *WatchConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	load, err := cfg.Source.loader()
	if err != nil {
		return describeError(err)
	}

	registry := prometheus.NewRegistry()
	holder := reload.NewHolder()
	opts := []reload.Option{
		reload.WithLogger(logger),
		reload.WithMetrics(reload.NewMetrics(registry)),
		reload.WithDebounce(cfg.Debounce),
		reload.WithInterval(cfg.Interval),
	}
	if cfg.Source.ConfigPath != "" {
		path := cfg.Source.ConfigPath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		opts = append(opts, reload.WithFile(path))
	}
	if cfg.Out != "" {
		opts = append(opts, reload.WithOnReload(func(snap *reload.Snapshot) {
			emitSnapshot(ctx, logger, snap, cfg.Out, emitter.Format(cfg.Format))
		}))
	}
	w := reload.NewWatcher(holder, cfg.Source.Location(), load, opts...)

	// The first load must succeed; later failures keep the last good registry.
	if _, err := w.Reload(ctx); err != nil {
		return describeError(err)
	}

	if cfg.MetricsListen != "" {
		srv, ln, err := startMetricsServer(cfg.MetricsListen, newWatchMux(registry, holder), logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("watch.metrics.enabled", "listen", ln.Addr().String())
		if cfg.ready != nil {
			cfg.ready(ln.Addr().String())
		}
	}

	err = w.Run(ctx)
	logger.Info("watch.stopped", "source", cfg.Source.Location())
	return err
}

func emitSnapshot(ctx context.Context, logger pslog.Logger, snap *reload.Snapshot, out string, format emitter.Format) {
	if snap.Disabled() {
		logger.Info("watch.emit.skipped", "reason", "disabled", "revision", snap.Revision)
		return
	}
	ui := snap.Registry.UI()
	res, err := emitter.Emit(ctx, snap.Registry.Descriptors(), emitter.Options{
		OutDir: out,
		Format: format,
		Force:  true,
		Prune:  true,
		UI:     &ui,
	})
	if err != nil {
		logger.Warn("watch.emit.failed", "out", out, "revision", snap.Revision, "error", err)
		return
	}
	logger.Debug("watch.emit.done", "out", out, "revision", snap.Revision, "files", len(res.Planned), "pruned", len(res.Removed))
}

// snapshotView is the JSON body of /descriptors.
type snapshotView struct {
	Revision    string            `json:"revision"`
	LoadedAt    time.Time         `json:"loadedAt"`
	Source      string            `json:"source"`
	Disabled    bool              `json:"disabled"`
	Descriptors []docset.Manifest `json:"descriptors"`
}

func newWatchMux(registry *prometheus.Registry, holder *reload.Holder) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reload.Handler(registry))
	mux.HandleFunc("/descriptors", func(w http.ResponseWriter, r *http.Request) {
		snap := holder.Current()
		if snap == nil {
			http.Error(w, "no configuration loaded", http.StatusServiceUnavailable)
			return
		}
		view := snapshotView{
			Revision:    snap.Revision,
			LoadedAt:    snap.LoadedAt,
			Source:      snap.Source,
			Disabled:    snap.Disabled(),
			Descriptors: []docset.Manifest{},
		}
		if !snap.Disabled() {
			for _, d := range snap.Registry.Descriptors() {
				view.Descriptors = append(view.Descriptors, d.Manifest())
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"`+snap.Revision+`"`)
		_ = json.NewEncoder(w).Encode(view)
	})
	return mux
}

func startMetricsServer(addr string, handler http.Handler, logger pslog.Logger) (*http.Server, net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("watch: metrics listen: %w", err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("watch.metrics.serve_error", "error", err)
		}
	}()
	return srv, ln, nil
}
