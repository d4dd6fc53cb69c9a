package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"

	"github.com/gorilla/mux"
)

// SyncFavoritesRequest carries the complete desired favorites set.
type SyncFavoritesRequest struct {
	Rels []string `json:"rels"`
}

// SetFavoriteRequest is the body of PUT /api/favorites/{rel}.
type SetFavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// SyncFavorites makes the favorites flag of every row match the posted set.
func (h *Handlers) SyncFavorites(w http.ResponseWriter, r *http.Request) {
	var req SyncFavoritesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "sync favorites", badRequestError{fmt.Errorf("invalid request body: %w", err)})
		return
	}

	result, err := h.repo.SyncFavorites(r.Context(), req.Rels)
	if err != nil {
		writeError(w, "sync favorites", err)
		return
	}
	writeJSONOK(w, result)
}

// SetFavorite flags or unflags a single row.
func (h *Handlers) SetFavorite(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["rel"]
	if rel == "" {
		writeError(w, "set favorite", assets.ErrMissingRel)
		return
	}

	var req SetFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "set favorite", badRequestError{fmt.Errorf("invalid request body: %w", err)})
		return
	}

	if err := h.repo.SetFavoriteStatus(r.Context(), rel, req.Favorite); err != nil {
		writeError(w, "set favorite", err)
		return
	}
	writeJSONOK(w, map[string]any{"rel": rel, "favorite": req.Favorite})
}
