package handlers

import (
	"github.com/gorilla/mux"
)

// NewRouter registers every endpoint on a fresh router.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assets", h.ListAssets).Methods("GET")
	api.HandleFunc("/asset/{rel:.*}", h.GetAsset).Methods("GET")
	api.HandleFunc("/viewport", h.GetViewport).Methods("GET")
	api.HandleFunc("/geometry", h.GetGeometry).Methods("GET")
	api.HandleFunc("/albums", h.ListAlbums).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	api.HandleFunc("/favorites/sync", h.SyncFavorites).Methods("POST")
	api.HandleFunc("/favorites/{rel:.*}", h.SetFavorite).Methods("PUT")

	return r
}
