// Command server exposes the scored token data over a read-only JSON API:
// /tokens/latest lists recent risk reports, /tokens/{address}/report returns
// the latest report for one token.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tokenguard/internal/config"
	"tokenguard/internal/hexutil"
	"tokenguard/internal/logging"
	"tokenguard/internal/observability"
	"tokenguard/internal/storage"
	"tokenguard/internal/storage/memory"
	"tokenguard/internal/storage/migrations"
	pgstore "tokenguard/internal/storage/postgres"
)

const defaultListLimit = 50

func main() {
	cfg := config.FromEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.ValidateStorage(); err != nil {
		logger.Fatalf("error: %v", err)
	}

	reports, cleanup, err := buildReportStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("error: %v", err)
	}
	defer cleanup()

	api := &apiServer{reports: reports, log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/tokens/latest", api.handleLatest)
	mux.HandleFunc("/tokens/", api.handleReport)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("received signal %v, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown error")
		}
		cancel()
	}()

	logger.Infof("listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
	logger.Info("shutdown complete")
}

type apiServer struct {
	reports storage.ReportStore
	log     logrus.FieldLogger
}

// handleLatest serves GET /tokens/latest?limit=N.
func (s *apiServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := s.reports.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("list recent reports")
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, map[string]interface{}{"reports": reports})
}

// handleReport serves GET /tokens/{address}/report.
func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/tokens/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "report" {
		http.NotFound(w, r)
		return
	}

	address, err := hexutil.NormalizeAddress(parts[0])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	report, err := s.reports.GetLatestByAddress(r.Context(), address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no report for token")
			return
		}
		s.log.WithError(err).Error("get latest report")
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, report)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func buildReportStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.ReportStore, func(), error) {
	if cfg.UseMemory {
		logger.Info("using in-memory storage")
		return memory.NewReportStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewReportStore(pool), pool.Close, nil
}
