package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/tinoosan/radiofetch/api/v1"
	"github.com/tinoosan/radiofetch/internal/auth"
	"github.com/tinoosan/radiofetch/internal/controller"
	"github.com/tinoosan/radiofetch/internal/suggest"
)

// Probe is one named readiness check, usually an adapter's CheckConnection.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

const readyTimeout = 5 * time.Second

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, svc controller.Service, sugg suggest.Service, probes ...Probe) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, probe := range probes {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			err := probe.Check(ctx)
			cancel()
			if err != nil {
				logger.Error("readiness probe failed", "probe", probe.Name, "err", err)
				http.Error(w, probe.Name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	requestHandler := v1.NewTrackRequestHandler(logger, svc, sugg)

	r.Use(v1.RequestID)
	r.Use(requestHandler.Log)
	r.Use(auth.Middleware)

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/requests", requestHandler.GetRequests)
	get.HandleFunc("/requests/stream", requestHandler.StreamStatuses)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/requests", requestHandler.CreateRequest)
	post.Use(v1.MiddlewareTrackRequestValidation)

	api.HandleFunc("/suggestions", requestHandler.GetSuggestions).Methods("POST")

	// DELETEs
	del := api.Methods("DELETE").Subrouter()
	del.HandleFunc("/requests/{id}", requestHandler.DeleteRequest)

	return r
}
