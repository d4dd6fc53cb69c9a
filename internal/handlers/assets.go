package handlers

import (
	"net/http"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"

	"github.com/gorilla/mux"
)

// ListAssets returns one page of the listing. An invalid or stale cursor
// restarts the listing from the top rather than failing.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	req, err := h.pageRequest(r)
	if err != nil {
		writeError(w, "list assets", err)
		return
	}

	page, err := h.repo.FetchByCursor(r.Context(), r.URL.Query().Get("cursor"), req)
	if err != nil {
		writeError(w, "list assets", err)
		return
	}
	page.Items = emptyIfNil(page.Items)

	writeJSONOK(w, page)
}

// ViewportResponse is the first page of a listing with its total size.
type ViewportResponse struct {
	Items      []assets.Asset `json:"items"`
	Total      int            `json:"total"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// GetViewport returns what a grid needs to render its first screen.
func (h *Handlers) GetViewport(w http.ResponseWriter, r *http.Request) {
	req, err := h.pageRequest(r)
	if err != nil {
		writeError(w, "load viewport", err)
		return
	}

	vp, err := h.repo.FetchFirstViewport(r.Context(), req)
	if err != nil {
		writeError(w, "load viewport", err)
		return
	}

	resp := ViewportResponse{Items: emptyIfNil(vp.Items), Total: vp.Total}
	if vp.Cursor != nil {
		resp.NextCursor = vp.Cursor.Encode()
	}
	writeJSONOK(w, resp)
}

// GetGeometry returns the layout projection of every row in the listing.
func (h *Handlers) GetGeometry(w http.ResponseWriter, r *http.Request) {
	req, err := h.pageRequest(r)
	if err != nil {
		writeError(w, "load geometry", err)
		return
	}
	if !r.URL.Query().Has("limit") {
		req.Limit = 0
	}

	rows, err := h.repo.ReadGeometryOnly(r.Context(), req)
	if err != nil {
		writeError(w, "load geometry", err)
		return
	}
	writeJSONOK(w, emptyIfNil(rows))
}

// GetAsset returns a single row by its library-relative path.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["rel"]
	if rel == "" {
		writeError(w, "get asset", assets.ErrMissingRel)
		return
	}

	asset, err := h.repo.GetByRel(r.Context(), rel)
	if err != nil {
		writeError(w, "get asset", err)
		return
	}
	writeJSONOK(w, asset)
}

// ListAlbums returns every album with its row count.
func (h *Handlers) ListAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.repo.ListAlbums(r.Context())
	if err != nil {
		writeError(w, "list albums", err)
		return
	}
	writeJSONOK(w, emptyIfNil(albums))
}

// GetStats returns row counts by kind.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeError(w, "get stats", err)
		return
	}
	writeJSONOK(w, stats)
}
