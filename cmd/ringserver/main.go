// Package main implements the consistent-hashing ring service: it owns
// server membership and virtual-node tokens, and routes puts/gets to the
// cache node backend each key hashes to.
//
// HTTP API:
//
//	POST /add_server            - {server}
//	POST /remove_server         - {server}
//	GET  /get_servers           - {servers:[{server, virtual_nodes:[...]}]}
//	POST /put_cache_entry       - {key, value}
//	GET  /get_cache_entry/{key} - 200 value / 404
//	GET  /health                - liveness
//	GET  /metrics               - Prometheus
//
// Configuration:
//
//	CACHE_SIZE          - per-backend LRU capacity (default 100)
//	SERVERS             - comma-separated server names to pre-register
//	REPLICATION_FACTOR  - virtual nodes per server (default 3)
//	RUN_MODE_LOCAL      - "true" to back servers with in-process cache nodes
//	                      instead of forwarding to standalone cache node
//	                      containers over HTTP
//	RING_ADDR           - listen address (default ":6000")
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/torua-coordination/ringlock/internal/cachenode"
	"github.com/torua-coordination/ringlock/internal/httpx"
	"github.com/torua-coordination/ringlock/internal/ring"
	"github.com/torua-coordination/ringlock/internal/telemetry"
)

func main() {
	logger := telemetry.NewLogger("ringserver")
	defer logger.Sync()
	metrics := telemetry.NewMetrics("ringlock_ring")

	cacheSize := getenvInt("CACHE_SIZE", 100)
	replicationFactor := getenvInt("REPLICATION_FACTOR", 3)
	localMode := getenv("RUN_MODE_LOCAL", "false") == "true"

	router := ring.NewRouter(replicationFactor, metrics)

	var nextInstance int
	var mu sync.Mutex
	addServer := func(name string) {
		mu.Lock()
		instanceNo := nextInstance
		nextInstance++
		mu.Unlock()

		if localMode {
			router.AddServer(name, ring.LocalBackend{Node: cachenode.New(instanceNo, cacheSize)})
			return
		}
		remote := cachenode.NewRemoteNode(cachenode.Endpoint{Host: name, Port: 5000, InstanceNo: instanceNo})
		router.AddServer(name, remote)
	}

	for _, name := range splitCSV(getenv("SERVERS", "")) {
		addServer(name)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/add_server", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Server string `json:"server"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if req.Server == "" {
			httpx.WriteError(w, http.StatusBadRequest, "server required")
			return
		}
		addServer(req.Server)
		httpx.WriteJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/remove_server", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Server string `json:"server"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if req.Server == "" {
			httpx.WriteError(w, http.StatusBadRequest, "server required")
			return
		}
		if !router.RemoveServer(req.Server) {
			httpx.WriteError(w, http.StatusNotFound, "server not found")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/get_servers", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"servers": router.Enumerate()})
	})
	mux.HandleFunc("/put_cache_entry", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if req.Key == "" || req.Value == "" {
			httpx.WriteError(w, http.StatusBadRequest, "key and value required")
			return
		}
		if err := router.Put(r.Context(), req.Key, req.Value); err != nil {
			status := http.StatusInternalServerError
			if err == ring.ErrNoServers {
				status = http.StatusBadRequest
			}
			httpx.WriteError(w, status, err.Error())
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/get_cache_entry/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/get_cache_entry/"):]
		if key == "" {
			httpx.WriteError(w, http.StatusBadRequest, "key required")
			return
		}
		value, found, err := router.Get(r.Context(), key)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			httpx.WriteError(w, http.StatusNotFound, "key not found")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", metrics.Handler())

	addr := getenv("RING_ADDR", ":6000")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("ring service listening", "addr", addr, "replication_factor", replicationFactor, "local_mode", localMode)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("listen failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
	logger.Info("ring service stopped")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
