package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/query"
)

// pageRequest reads the listing parameters shared by the read endpoints:
//
//	limit       page size, 1..1000
//	album       album path; absent means the whole library
//	subalbums   include nested albums (default false)
//	hidden      "false" hides Live Photo motion components
//	filter      videos, live or favorites
//	media_type  0 (image) or 1 (video)
func (h *Handlers) pageRequest(r *http.Request) (assets.PageRequest, error) {
	q := r.URL.Query()
	req := assets.PageRequest{Limit: h.pageSize}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxPageSize {
			return req, badRequestError{fmt.Errorf("limit must be between 1 and %d", maxPageSize)}
		}
		req.Limit = n
	}

	if q.Has("album") {
		album := q.Get("album")
		req.AlbumPath = &album
	}

	var err error
	if req.IncludeSubalbums, err = boolParam(q, "subalbums", false); err != nil {
		return req, err
	}
	showHidden, err := boolParam(q, "hidden", true)
	if err != nil {
		return req, err
	}
	req.FilterHidden = !showHidden

	if req.Filter, err = filterParams(q); err != nil {
		return req, err
	}

	return req, nil
}

func boolParam(q url.Values, name string, def bool) (bool, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def, badRequestError{fmt.Errorf("%s must be a boolean", name)}
	}
	return v, nil
}

// filterParams reads the filter and media_type parameters.
func filterParams(q url.Values) (query.FilterParams, error) {
	p := query.FilterParams{FilterMode: q.Get("filter")}
	if s := q.Get("media_type"); s != "" {
		mt, err := strconv.Atoi(s)
		if err != nil {
			return p, badRequestError{fmt.Errorf("media_type must be an integer")}
		}
		p.MediaType = &mt
	}
	return p, p.Validate()
}
