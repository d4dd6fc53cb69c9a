package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFilterMode is returned for a filter mode outside the whitelist.
	ErrInvalidFilterMode = errors.New("invalid filter mode")

	// ErrInvalidMediaType is returned for a media type other than 0 or 1.
	ErrInvalidMediaType = errors.New("invalid media type")
)

// Filter modes accepted by FilterClauses.
const (
	FilterVideos    = "videos"
	FilterLive      = "live"
	FilterFavorites = "favorites"
)

var filterModes = map[string]string{
	FilterVideos:    "media_type = 1",
	FilterLive:      "live_partner_rel IS NOT NULL",
	FilterFavorites: "is_favorite = 1",
}

// OrderBy is the standard listing order. Undated rows sort last.
const OrderBy = "ORDER BY dt IS NULL, dt DESC, id DESC"

// FilterParams is the closed set of extra filters a listing may carry.
type FilterParams struct {
	MediaType  *int   `json:"media_type,omitempty"`
	FilterMode string `json:"filter_mode,omitempty"`
}

// IsZero reports whether no filter is set.
func (p FilterParams) IsZero() bool {
	return p.MediaType == nil && p.FilterMode == ""
}

// Validate checks the params without building anything.
func (p FilterParams) Validate() error {
	_, _, err := FilterClauses(p)
	return err
}

// FilterClauses translates p into WHERE conditions.
func FilterClauses(p FilterParams) ([]string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if p.MediaType != nil {
		mt := *p.MediaType
		if mt != 0 && mt != 1 {
			return nil, nil, fmt.Errorf("%w: %d (expected 0 for images or 1 for videos)", ErrInvalidMediaType, mt)
		}
		clauses = append(clauses, "media_type = ?")
		args = append(args, mt)
	}

	if p.FilterMode != "" {
		clause, ok := filterModes[p.FilterMode]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q (expected one of %s, %s, %s)",
				ErrInvalidFilterMode, p.FilterMode, FilterVideos, FilterLive, FilterFavorites)
		}
		clauses = append(clauses, clause)
	}

	return clauses, args, nil
}

// EscapeLike escapes the LIKE wildcards in s for use with ESCAPE '\'.
func EscapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeAlbumPath trims surrounding slashes so "/Trips/" and "Trips"
// name the same album. The library root is "".
func NormalizeAlbumPath(p string) string {
	return strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
}

// AlbumFilter restricts rows to one album, or with includeSubalbums to the
// album and every album below it. The subtree of the root is everything,
// for which an empty clause is returned.
func AlbumFilter(albumPath string, includeSubalbums bool) (string, []any) {
	albumPath = NormalizeAlbumPath(albumPath)

	if !includeSubalbums {
		return "parent_album_path = ?", []any{albumPath}
	}
	if albumPath == "" {
		return "", nil
	}
	return `(parent_album_path = ? OR parent_album_path LIKE ? ESCAPE '\')`,
		[]any{albumPath, EscapeLike(albumPath) + "/%"}
}

// CursorFilter selects the rows strictly after (dt, id) in listing order.
// A nil dt is a position inside the undated tail.
func CursorFilter(dt *string, id string) (string, []any) {
	if dt == nil {
		return "(dt IS NULL AND id < ?)", []any{id}
	}
	// Row-value comparison is NULL for undated rows, which all follow any
	// dated position.
	return "((dt, id) < (?, ?) OR dt IS NULL)", []any{*dt, id}
}

// Seek is a (dt, id) position in listing order.
type Seek struct {
	DT *string
	ID string
}

// PageQuery describes one listing request.
type PageQuery struct {
	// Columns is the projection; empty selects every column.
	Columns []string
	// After continues the listing from a position; nil starts at the top.
	After *Seek
	// AlbumPath scopes the listing; nil means the whole library.
	AlbumPath        *string
	IncludeSubalbums bool
	// FilterHidden drops hidden Live Photo motion components.
	FilterHidden bool
	Filter       FilterParams
	// Limit caps the row count; zero or less means no limit.
	Limit int
}

// Where composes the WHERE clause for q, excluding the cursor when
// withCursor is false. The returned text is empty when nothing filters.
func Where(q PageQuery, withCursor bool) (string, []any, error) {
	var (
		conds []string
		args  []any
	)

	if withCursor && q.After != nil {
		c, a := CursorFilter(q.After.DT, q.After.ID)
		conds = append(conds, c)
		args = append(args, a...)
	}

	if q.AlbumPath != nil {
		if c, a := AlbumFilter(*q.AlbumPath, q.IncludeSubalbums); c != "" {
			conds = append(conds, c)
			args = append(args, a...)
		}
	}

	if q.FilterHidden {
		conds = append(conds, "live_role = 0")
	}

	extra, extraArgs, err := FilterClauses(q.Filter)
	if err != nil {
		return "", nil, err
	}
	conds = append(conds, extra...)
	args = append(args, extraArgs...)

	if len(conds) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args, nil
}

// BuildSelect assembles a SELECT over the assets table.
func BuildSelect(columns []string, where, order string) string {
	projection := "*"
	if len(columns) > 0 {
		projection = strings.Join(columns, ", ")
	}

	parts := []string{"SELECT " + projection + " FROM assets"}
	if where != "" {
		parts = append(parts, where)
	}
	if order != "" {
		parts = append(parts, order)
	}
	return strings.Join(parts, " ")
}

// BuildPaginationQuery assembles the keyset page query for q.
func BuildPaginationQuery(q PageQuery) (string, []any, error) {
	where, args, err := Where(q, true)
	if err != nil {
		return "", nil, err
	}

	sql := BuildSelect(q.Columns, where, OrderBy)
	if q.Limit > 0 {
		sql += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return sql, args, nil
}

// BuildCountQuery counts every row q would list, ignoring cursor and limit.
func BuildCountQuery(q PageQuery) (string, []any, error) {
	where, args, err := Where(q, false)
	if err != nil {
		return "", nil, err
	}

	sql := "SELECT COUNT(*) FROM assets"
	if where != "" {
		sql += " " + where
	}
	return sql, args, nil
}
