// Package main implements the named-lock service: one owner per key,
// fenced by client identifier, swept for expiry by a background cleaner.
//
// HTTP API:
//
//	POST /acquire_lock      - {key, client_id, expiry} -> 200 {lock_key, lock_status} / 409
//	POST /release_lock      - {key, client_id} -> 200 / 404
//	GET  /lock_status/{key} - 200 {lock_key, lock_status, client_id} / 404
//	GET  /all_locks         - {locks:{key:status}}
//	GET  /health            - liveness
//	GET  /metrics           - Prometheus
//
// Configuration:
//
//	LOCK_ADDR        - listen address (default ":6000")
//	SWEEP_INTERVAL   - cleaner tick interval (default "10s")
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torua-coordination/ringlock/internal/httpx"
	"github.com/torua-coordination/ringlock/internal/lockapi"
	"github.com/torua-coordination/ringlock/internal/sweeper"
	"github.com/torua-coordination/ringlock/internal/telemetry"
)

func main() {
	logger := telemetry.NewLogger("lockserver")
	defer logger.Sync()
	metrics := telemetry.NewMetrics("ringlock_lock")

	manager := lockapi.NewManager(metrics)

	sweepInterval := getenvDuration("SWEEP_INTERVAL", 10*time.Second)
	cleaner := sweeper.New(sweepInterval, logger, metrics, manager)
	go cleaner.Start(nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/acquire_lock", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key      string `json:"key"`
			ClientID string `json:"client_id"`
			Expiry   int    `json:"expiry"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if req.Key == "" || req.ClientID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "key and client_id required")
			return
		}
		lock, err := manager.Acquire(req.Key, req.ClientID, time.Duration(req.Expiry)*time.Second)
		if err != nil {
			httpx.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"lock_key":    lock.Key,
			"lock_status": string(lockapi.StatusLocked),
		})
	})
	mux.HandleFunc("/release_lock", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key      string `json:"key"`
			ClientID string `json:"client_id"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		ok, err := manager.Release(req.Key, req.ClientID)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		if !ok {
			httpx.WriteError(w, http.StatusNotFound, "not lock owner")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/lock_status/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/lock_status/"):]
		lock, status, err := manager.Status(key)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"lock_key":    lock.Key,
			"lock_status": string(status),
			"client_id":   lock.OwnerClient,
		})
	})
	mux.HandleFunc("/all_locks", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"locks": manager.Enumerate()})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", metrics.Handler())

	addr := getenv("LOCK_ADDR", ":6000")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("lock service listening", "addr", addr, "sweep_interval", sweepInterval)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("listen failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cleaner.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
	logger.Info("lock service stopped")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
