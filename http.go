package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serveHTTP starts the loop mode listener with the webhook, metrics and
// liveness endpoints. A listener failure is fatal for the process, a
// silently dead webhook endpoint would leave the mirror running on the
// interval only.
func serveHTTP(addr string, wh *GithubWebhookHandler, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/webhook", wh)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	log.Info("starting http listener", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("http listener failed", "err", err)
		os.Exit(1)
	}
}
