package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/cursor"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/query"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONOK writes v with status 200.
func writeJSONOK(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, v)
}

// badRequestError marks an error caused by the request itself.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// writeError maps err to a status code and writes it. Internal errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, op string, err error) {
	var bad badRequestError
	switch {
	case errors.As(err, &bad),
		errors.Is(err, query.ErrInvalidFilterMode),
		errors.Is(err, query.ErrInvalidMediaType),
		errors.Is(err, cursor.ErrInvalidCursor),
		errors.Is(err, assets.ErrMissingRel),
		errors.Is(err, assets.ErrInvalidText):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assets.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logging.Error("%s failed: %v", op, err)
		writeJSONError(w, "Failed to "+op, http.StatusInternalServerError)
	}
}

// emptyIfNil keeps JSON arrays from rendering as null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
