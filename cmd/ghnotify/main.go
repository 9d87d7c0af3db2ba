// ghnotify polls the GitHub notifications feed on a fixed interval and
// prints the rendered count line to stdout, one line per cycle, for
// consumption by a status bar. Prometheus metrics and a health endpoint are
// served when a metrics address is configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ghnotify/internal/config"
	"ghnotify/pkg/logging"
	"ghnotify/pkg/poller"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghnotify: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	token, err := config.Token()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghnotify: %v\n", err)
		os.Exit(1)
	}

	interval, err := cfg.PollInterval()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghnotify: %v\n", err)
		os.Exit(1)
	}

	redisClient := connectRedis(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	p, err := poller.New(poller.Config{
		APIServer:         cfg.APIServer,
		Token:             token,
		Format:            cfg.Format,
		Interval:          interval,
		HideIfTotalIsZero: cfg.HideIfTotalIsZero,
		MaxPages:          cfg.MaxPages,
		Redis:             redisClient,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghnotify: %v\n", err)
		os.Exit(1)
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("api_server", cfg.APIServer).
		Dur("interval", interval).
		Msg("Starting notification poller")

	run(ctx, p, os.Stdout)

	logger.Info().Msg("Shutting down")
}

// run drives the poll loop until the context is cancelled, printing one
// display line per cycle. A hidden display prints an empty line so the
// consumer clears its slot.
func run(ctx context.Context, p *poller.Poller, out io.Writer) {
	for {
		delay := p.Update(ctx)

		text, show := p.Text()
		if !show {
			text = ""
		}
		fmt.Fprintln(out, text)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectRedis dials the configured Redis instance. Redis only shares rate
// limit state across processes, so a failed connection degrades to
// in-process tracking instead of aborting startup.
func connectRedis(cfg config.RedisConfig, logger zerolog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).
			Msg("Redis unavailable, using in-process rate limit state")
		client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return client
}

// serveMetrics exposes /metrics and /health on the given address.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
