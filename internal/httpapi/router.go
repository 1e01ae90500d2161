package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route named in §6 onto a *mux.Router.
func NewRouter(h *Handler, registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/cameras", h.RegisterCamera).Methods(http.MethodPost)
	r.HandleFunc("/api/cameras", h.ListCameras).Methods(http.MethodGet)
	r.HandleFunc("/api/cameras/{id}", h.DeregisterCamera).Methods(http.MethodDelete)
	r.HandleFunc("/api/cameras/{id}/frame/latest", h.GetLatestFrame).Methods(http.MethodGet)
	r.HandleFunc("/api/ingest/push/{id}", h.PushFrame).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
