// Package main implements the ephemeral-node service: ZooKeeper-style
// sequential child nodes with FIFO ownership and cascading hand-off on
// session expiry, swept by a background cleaner.
//
// HTTP API:
//
//	POST /create_node        - {path, client_id, expiry} -> 200 {node_path, client_id} / 400
//	POST /delete_node        - {path} -> 200 / 404
//	GET  /node_status/{path} - 200 / 404
//	GET  /all_nodes          - 200
//	GET  /current_lock_owner?path=... - 200 {current_lock_owner} / 404
//	GET  /health             - liveness
//	GET  /metrics            - Prometheus
//
// Configuration:
//
//	EPHEMERAL_ADDR  - listen address (default ":6001")
//	SWEEP_INTERVAL  - cleaner tick interval (default "10s")
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torua-coordination/ringlock/internal/ephemeral"
	"github.com/torua-coordination/ringlock/internal/httpx"
	"github.com/torua-coordination/ringlock/internal/sweeper"
	"github.com/torua-coordination/ringlock/internal/telemetry"
)

func main() {
	logger := telemetry.NewLogger("ephemeralserver")
	defer logger.Sync()
	metrics := telemetry.NewMetrics("ringlock_ephemeral")

	manager := ephemeral.NewManager(metrics)

	sweepInterval := getenvDuration("SWEEP_INTERVAL", 10*time.Second)
	cleaner := sweeper.New(sweepInterval, logger, metrics, manager)
	go cleaner.Start(nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/create_node", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path     string `json:"path"`
			ClientID string `json:"client_id"`
			Expiry   int    `json:"expiry"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if req.Path == "" || req.ClientID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "path and client_id required")
			return
		}
		nodePath, err := manager.Create(req.Path, req.ClientID, time.Duration(req.Expiry)*time.Second)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"node_path": nodePath, "client_id": req.ClientID})
	})
	mux.HandleFunc("/delete_node", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if err := manager.Delete(req.Path); err != nil {
			httpx.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/node_status/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path[len("/node_status/"):]
		node, err := manager.Get(path)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		httpx.WriteJSON(w, http.StatusOK, node)
	})
	mux.HandleFunc("/all_nodes", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"nodes": manager.Enumerate()})
	})
	mux.HandleFunc("/current_lock_owner", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			httpx.WriteError(w, http.StatusBadRequest, "path query parameter required")
			return
		}
		owner, ok := manager.Owner(path)
		if !ok {
			httpx.WriteError(w, http.StatusNotFound, "no owner for path")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"current_lock_owner": owner})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", metrics.Handler())

	addr := getenv("EPHEMERAL_ADDR", ":6001")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("ephemeral node service listening", "addr", addr, "sweep_interval", sweepInterval)
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
	logger.Info("ephemeral node service stopped")
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
