// Package main implements the cache node service: a single LRU cache
// instance addressable over HTTP, meant to run one per container behind
// the ring service.
//
// HTTP API:
//
//	GET  /get_cache_size        - current entry count
//	POST /put_entry             - store {key, value}
//	GET  /get_entry/{key}       - 200 {key, value} / 404
//	GET  /health                - liveness
//	GET  /metrics               - Prometheus
//
// CLI args: instance_no cache_size (mirrors the source's positional args).
// Configuration beyond that is environment-driven:
//
//	CACHE_NODE_ADDR  - listen address (default ":5000")
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/torua-coordination/ringlock/internal/cachenode"
	"github.com/torua-coordination/ringlock/internal/httpx"
	"github.com/torua-coordination/ringlock/internal/telemetry"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <instance_no> <cache_size>", os.Args[0])
	}
	instanceNo, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatalf("invalid instance_no: %v", err)
	}
	cacheSize, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("invalid cache_size: %v", err)
	}

	logger := telemetry.NewLogger("cachenodeserver")
	defer logger.Sync()
	metrics := telemetry.NewMetrics("ringlock_cachenode")

	node := cachenode.New(instanceNo, cacheSize).WithMetrics(metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/get_cache_size", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]int{"cache_size": node.Size()})
	})
	mux.HandleFunc("/put_entry", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		if req.Key == "" {
			httpx.WriteError(w, http.StatusBadRequest, "key required")
			return
		}
		node.Put(req.Key, req.Value)
		httpx.WriteJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/get_entry/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/get_entry/"):]
		if key == "" {
			httpx.WriteError(w, http.StatusBadRequest, "key required")
			return
		}
		value, found := node.Get(key)
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

	addr := getenv("CACHE_NODE_ADDR", ":5000")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("cache node listening", "addr", addr, "instance_no", instanceNo, "cache_size", cacheSize)
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
	logger.Info("cache node stopped")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
