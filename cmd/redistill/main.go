// Command redistill runs the cache server: it loads configuration, wires
// the keyspace, eviction controller, executor and listener together, and
// serves connections until an OS interrupt triggers graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/redistill/redistill/internal/config"
	"github.com/redistill/redistill/internal/eviction"
	"github.com/redistill/redistill/internal/metrics"
	"github.com/redistill/redistill/internal/server"
	"github.com/redistill/redistill/internal/store"
	"github.com/redistill/redistill/metrics/prom"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	log := newLogger(cfg.Logging)
	if err != nil {
		log.Error().Err(err).Msg("config load failed, continuing with defaults")
	}

	counters := metrics.New()
	st := store.New(cfg.Server.NumShards, cfg.Memory.MaxMemory > 0)
	ctrl := eviction.NewController(cfg.Memory.MaxMemory, cfg.Memory.EvictionPolicy, cfg.Memory.EvictionSampleSize, counters)
	exec := server.NewExecutor(st, ctrl, counters, cfg.Security.Password, cfg.Memory.MaxMemory)

	var tlsConfig *tls.Config
	if cfg.Security.TLSEnabled {
		tlsConfig, err = server.LoadTLSConfig(cfg.Security.TLSCertPath, cfg.Security.TLSKeyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("TLS config load failed")
			return 1
		}
	}

	listener := server.NewListener(
		exec, counters, log,
		cfg.Server.MaxConnections, cfg.Server.ConnectionRateLimit,
		cfg.Server.BufferSize, cfg.Server.BatchSize,
		cfg.TCPNoDelayEffective(), tlsConfig,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("bind failed")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.HealthCheckPort > 0 {
		startHealthServer(ctx, log, counters, cfg.Memory.MaxMemory, cfg.Server.Bind, cfg.Server.HealthCheckPort)
	}

	log.Info().
		Str("addr", addr).
		Bool("tls", tlsConfig != nil).
		Int("num_shards", cfg.Server.NumShards).
		Str("eviction_policy", ctrl.PolicyName()).
		Msg("redistill starting")

	if err := listener.Serve(ctx, ln); err != nil {
		log.Error().Err(err).Msg("accept loop exited with error")
		return 1
	}
	log.Info().Msg("redistill shut down cleanly")
	return 0
}

// startHealthServer binds the optional HTTP health/metrics listener to
// 127.0.0.1 only, regardless of the main server's bind address.
func startHealthServer(ctx context.Context, log zerolog.Logger, counters *metrics.Counters, maxMemory uint64, _ string, port int) {
	registry := prometheus.NewRegistry()
	prom.New(registry, counters, "redistill", "server")
	promHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	mux := server.NewHealthMux(counters, maxMemory, promHandler)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("health endpoint listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health endpoint stopped")
		}
	}()
}

func newLogger(cfg config.Logging) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out zerolog.Logger
	if cfg.Format == "text" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		out = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return out.Level(level)
}
