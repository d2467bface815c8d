package injector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/telemetry/internal/config"
	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/observability/metrics"
	"github.com/zeusync/telemetry/internal/core/storage"
	"github.com/zeusync/telemetry/internal/engine"
	"github.com/zeusync/telemetry/internal/server"
)

// App is the wired daemon.
type App struct {
	Config   config.Config
	Logger   log.Log
	Source   *datasource.Scripted
	Storage  storage.Storage
	Engine   *engine.Engine
	Feed     *server.Feed
	Registry *prometheus.Registry
}

func ProvideLogger(cfg config.Config) log.Log {
	return log.NewWithConfig(cfg.Log, log.ParseLevel(cfg.Log.Level))
}

func ProvideStorage(cfg config.Config, logger log.Log) (storage.Storage, func(), error) {
	st, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close storage", log.Error(err))
		}
	}
	return st, cleanup, nil
}

func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func ProvideRecorder(reg *prometheus.Registry) metrics.Recorder {
	return metrics.NewPrometheus(reg)
}

func ProvideEngine(cfg config.Config, src datasource.Source, st storage.Storage, logger log.Log, rec metrics.Recorder) (*engine.Engine, error) {
	return engine.New(cfg.Engine, src, st, logger, rec)
}

// ProvideFeed builds the websocket feed and mounts /metrics next to it.
func ProvideFeed(cfg config.Config, eng *engine.Engine, logger log.Log, reg *prometheus.Registry) *server.Feed {
	feed := server.NewFeed(cfg.Feed, eng, logger)
	feed.Mount("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return feed
}
