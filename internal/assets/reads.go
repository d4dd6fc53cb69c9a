package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/cursor"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/query"
)

// assetColumns projects every column, mapping NULL ids and album paths
// left by older files to "".
var assetColumns = func() []string {
	cols := database.ColumnNames()
	for i, c := range cols {
		switch c {
		case "id", "parent_album_path":
			cols[i] = fmt.Sprintf("COALESCE(%s, '') AS %s", c, c)
		}
	}
	return cols
}()

var geometryColumns = []string{
	"rel", "COALESCE(id, '') AS id", "dt", "w", "h", "aspect_ratio", "media_type",
	"is_favorite", "live_role", "live_partner_rel", "dur", "micro_thumbnail",
}

// PageRequest selects a slice of the listing.
type PageRequest struct {
	// After continues from a position; nil starts at the newest row.
	After *cursor.Cursor
	Limit int
	// AlbumPath scopes the listing; nil means the whole library.
	AlbumPath        *string
	IncludeSubalbums bool
	FilterHidden     bool
	Filter           query.FilterParams
}

// AlbumRequest returns a request scoped to albumPath.
func AlbumRequest(albumPath string, includeSubalbums bool) PageRequest {
	return PageRequest{AlbumPath: &albumPath, IncludeSubalbums: includeSubalbums}
}

func (p PageRequest) pageQuery(columns []string, limit int) query.PageQuery {
	q := query.PageQuery{
		Columns:          columns,
		AlbumPath:        p.AlbumPath,
		IncludeSubalbums: p.IncludeSubalbums,
		FilterHidden:     p.FilterHidden,
		Filter:           p.Filter,
		Limit:            limit,
	}
	if p.After != nil {
		q.After = &query.Seek{DT: p.After.DT, ID: p.After.ID}
	}
	return q
}

func (p PageRequest) limit() int {
	if p.Limit <= 0 {
		return DefaultPageSize
	}
	return p.Limit
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (r *Repository) selectAssets(ctx context.Context, op string, q query.PageQuery) ([]Asset, error) {
	sqlText, args, err := query.BuildPaginationQuery(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var items []Asset
	err = r.withRecovery(ctx, op, func() error {
		items = items[:0]
		return sqlx.SelectContext(ctx, r.mgr.Queryer(ctx), &items, sqlText, args...)
	})
	recordOperation(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RepositoryItemsReturned.WithLabelValues(op).Observe(float64(len(items)))
	return items, nil
}

// ReadAll returns every row, newest first when sortByDate is set.
func (r *Repository) ReadAll(ctx context.Context, sortByDate, filterHidden bool) ([]Asset, error) {
	if sortByDate {
		return r.selectAssets(ctx, "read_all", query.PageQuery{Columns: assetColumns, FilterHidden: filterHidden})
	}

	where, args, err := query.Where(query.PageQuery{FilterHidden: filterHidden}, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var items []Asset
	q := query.BuildSelect(assetColumns, where, "")
	err = r.withRecovery(ctx, "read_all", func() error {
		items = items[:0]
		return sqlx.SelectContext(ctx, r.mgr.Queryer(ctx), &items, q, args...)
	})
	recordOperation("read_all", start, err)
	if err != nil {
		return nil, fmt.Errorf("read_all: %w", err)
	}
	return items, nil
}

// GetAssetsPage returns up to req.Limit rows after req.After in
// (dt DESC, id DESC) order. A short page is the last one.
func (r *Repository) GetAssetsPage(ctx context.Context, req PageRequest) ([]Asset, error) {
	return r.selectAssets(ctx, "get_assets_page", req.pageQuery(assetColumns, req.limit()))
}

// FetchByCursor is GetAssetsPage driven by an opaque cursor token. An empty
// token starts at the top. A token that does not decode is logged and
// treated as empty, so a stale link restarts the listing instead of failing.
func (r *Repository) FetchByCursor(ctx context.Context, token string, req PageRequest) (*Page, error) {
	req.After = nil
	if token != "" {
		c, err := cursor.Decode(token)
		if err != nil {
			metrics.InvalidCursorsTotal.Inc()
			logging.Warn("Ignoring invalid cursor, restarting from the beginning: %v", err)
		} else {
			req.After = &c
		}
	}

	limit := req.limit()
	items, err := r.selectAssets(ctx, "fetch_by_cursor", req.pageQuery(assetColumns, limit+1))
	if err != nil {
		return nil, err
	}

	page := &Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = page.Items[n-1].Cursor().Encode()
	}
	return page, nil
}

// FetchFirstViewport returns the first page of a listing plus the total
// number of rows it contains, for first paint.
func (r *Repository) FetchFirstViewport(ctx context.Context, req PageRequest) (*Viewport, error) {
	req.After = nil
	limit := req.limit()

	items, err := r.selectAssets(ctx, "fetch_first_viewport", req.pageQuery(assetColumns, limit+1))
	if err != nil {
		return nil, err
	}

	total, err := r.count(ctx, "fetch_first_viewport", req.pageQuery(nil, 0))
	if err != nil {
		return nil, err
	}

	vp := &Viewport{Items: items, Total: total}
	if len(items) > limit {
		vp.Items = items[:limit]
		c := vp.Items[limit-1].Cursor()
		vp.Cursor = &c
	}
	return vp, nil
}

// ReadGeometryOnly returns the layout projection of every row the request
// selects. Limit is ignored unless set explicitly.
func (r *Repository) ReadGeometryOnly(ctx context.Context, req PageRequest) ([]Geometry, error) {
	sqlText, args, err := query.BuildPaginationQuery(req.pageQuery(geometryColumns, req.Limit))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var items []Geometry
	err = r.withRecovery(ctx, "read_geometry_only", func() error {
		items = items[:0]
		return sqlx.SelectContext(ctx, r.mgr.Queryer(ctx), &items, sqlText, args...)
	})
	recordOperation("read_geometry_only", start, err)
	if err != nil {
		return nil, fmt.Errorf("read_geometry_only: %w", err)
	}

	metrics.RepositoryItemsReturned.WithLabelValues("read_geometry_only").Observe(float64(len(items)))
	return items, nil
}

// ReadAlbumAssets returns every row of an album, newest first.
func (r *Repository) ReadAlbumAssets(ctx context.Context, albumPath string, includeSubalbums, filterHidden bool, filter query.FilterParams) ([]Asset, error) {
	req := AlbumRequest(albumPath, includeSubalbums)
	req.FilterHidden = filterHidden
	req.Filter = filter
	return r.selectAssets(ctx, "read_album_assets", req.pageQuery(assetColumns, 0))
}

// ListAlbums returns every distinct album with its row count, including the
// library root as "" when it holds files directly.
func (r *Repository) ListAlbums(ctx context.Context) ([]Album, error) {
	const q = `SELECT COALESCE(parent_album_path, '') AS path, COUNT(*) AS count, MAX(dt) AS latest
		FROM assets
		GROUP BY COALESCE(parent_album_path, '')
		ORDER BY path`

	start := time.Now()
	var albums []Album
	err := r.withRecovery(ctx, "list_albums", func() error {
		albums = albums[:0]
		return sqlx.SelectContext(ctx, r.mgr.Queryer(ctx), &albums, q)
	})
	recordOperation("list_albums", start, err)
	if err != nil {
		return nil, fmt.Errorf("list_albums: %w", err)
	}
	return albums, nil
}

// Count returns the number of rows in the whole library.
func (r *Repository) Count(ctx context.Context, filterHidden bool, filter query.FilterParams) (int, error) {
	return r.count(ctx, "count", query.PageQuery{FilterHidden: filterHidden, Filter: filter})
}

// CountAlbumAssets returns the number of rows in an album.
func (r *Repository) CountAlbumAssets(ctx context.Context, albumPath string, includeSubalbums, filterHidden bool, filter query.FilterParams) (int, error) {
	req := AlbumRequest(albumPath, includeSubalbums)
	req.FilterHidden = filterHidden
	req.Filter = filter
	return r.count(ctx, "count_album_assets", req.pageQuery(nil, 0))
}

func (r *Repository) count(ctx context.Context, op string, q query.PageQuery) (int, error) {
	sqlText, args, err := query.BuildCountQuery(q)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var n int
	err = r.withRecovery(ctx, op, func() error {
		return sqlx.GetContext(ctx, r.mgr.Queryer(ctx), &n, sqlText, args...)
	})
	recordOperation(op, start, err)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ListTrash returns rows that carry restore provenance, newest first.
func (r *Repository) ListTrash(ctx context.Context) ([]Asset, error) {
	q := query.BuildSelect(assetColumns, "WHERE original_rel_path IS NOT NULL", query.OrderBy)

	start := time.Now()
	var items []Asset
	err := r.withRecovery(ctx, "list_trash", func() error {
		items = items[:0]
		return sqlx.SelectContext(ctx, r.mgr.Queryer(ctx), &items, q)
	})
	recordOperation("list_trash", start, err)
	if err != nil {
		return nil, fmt.Errorf("list_trash: %w", err)
	}
	return items, nil
}
