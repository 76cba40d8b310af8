// cache-server exposes the hybrid cache over a small HTTP API:
//
//	GET    /kv/{key}          value or 404
//	PUT    /kv/{key}?ttl=30s  body is the value
//	DELETE /kv/{key}
//	GET    /mget?keys=a,b,c   positional JSON results
//	GET    /status            backend mode and store stats
//	GET    /health            liveness probe
//	GET    /metrics           Prometheus metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sternrassler/hybrid-kv-cache/internal/config"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/cache"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/logging"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/remote"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	c := cache.New(cache.Config{
		RemoteAddr:     cfg.RemoteURL,
		LocalCapacity:  cfg.LocalCapacity,
		SweepInterval:  cfg.SweepInterval,
		ConnectTimeout: cfg.ConnectTimeout,
		Backoff:        remote.DefaultBackoffConfig(),
	})
	if err := c.Init(); err != nil {
		logger.Error().Err(err).Msg("Cache init failed")
		os.Exit(1)
	}
	defer c.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newMux(c),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", server.Addr).
		Str("remote", cfg.RemoteURL).
		Msg("Starting cache server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Server failed")
		os.Exit(1)
	}

	logger.Info().Msg("Cache server stopped")
}

// newMux builds the HTTP routes for the given cache.
func newMux(c *cache.Cache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Stats())
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /kv/{key}", func(w http.ResponseWriter, r *http.Request) {
		v, ok, err := c.Get(r.Context(), r.PathValue("key"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, v)
	})

	mux.HandleFunc("PUT /kv/{key}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}

		var ttl time.Duration
		if raw := r.URL.Query().Get("ttl"); raw != "" {
			ttl, err = time.ParseDuration(raw)
			if err != nil {
				http.Error(w, "invalid ttl: "+err.Error(), http.StatusBadRequest)
				return
			}
		}

		if err := c.Set(r.Context(), r.PathValue("key"), string(body), ttl); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /kv/{key}", func(w http.ResponseWriter, r *http.Request) {
		if err := c.Delete(r.Context(), r.PathValue("key")); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /mget", func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("keys")
		if raw == "" {
			http.Error(w, "missing keys parameter", http.StatusBadRequest)
			return
		}

		results, err := c.MGet(r.Context(), strings.Split(raw, ","))
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, mgetResponse(results))
	})

	return mux
}

// mgetItem is the JSON shape of one MGet result. A null value marks an
// absent key so "" stays distinguishable from a miss.
type mgetItem struct {
	Value *string `json:"value"`
}

func mgetResponse(results []cache.Result) []mgetItem {
	items := make([]mgetItem, len(results))
	for i, r := range results {
		if r.Found {
			v := r.Value
			items[i].Value = &v
		}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
