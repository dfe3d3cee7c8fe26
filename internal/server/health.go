package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redistill/redistill/internal/metrics"
)

// healthResponse is the fixed JSON contract for the health endpoint.
type healthResponse struct {
	Status              string `json:"status"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	ActiveConnections   int64  `json:"active_connections"`
	TotalConnections    uint64 `json:"total_connections"`
	RejectedConnections uint64 `json:"rejected_connections"`
	MemoryUsed          uint64 `json:"memory_used"`
	MaxMemory           uint64 `json:"max_memory"`
	EvictedKeys         uint64 `json:"evicted_keys"`
	TotalCommands       uint64 `json:"total_commands"`
}

// NewHealthMux builds the health endpoint's http.Handler: a catch-all
// `GET /*` route bound to 127.0.0.1 by the caller (ListenAndServe's address,
// not this mux), plus a /metrics route that serves promHandler, or the
// default Prometheus registry's handler when promHandler is nil. The JSON
// body matches the health contract exactly; /metrics is an additive second
// route on the same listener.
func NewHealthMux(counters *metrics.Counters, maxMemory uint64, promHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	if promHandler != nil {
		mux.Handle("/metrics", promHandler)
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:               "ok",
			UptimeSeconds:        counters.UptimeSeconds(),
			ActiveConnections:    counters.ActiveConnections.Load(),
			TotalConnections:     counters.TotalConnections.Load(),
			RejectedConnections:  counters.RejectedConnections.Load(),
			MemoryUsed:           counters.MemoryUsed.Load(),
			MaxMemory:            maxMemory,
			EvictedKeys:          counters.EvictedKeys.Load(),
			TotalCommands:        counters.TotalCommands.Load(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}
