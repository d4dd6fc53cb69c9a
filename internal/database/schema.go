package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

// TableName is the single logical table of the index.
const TableName = "assets"

// Column describes one column of the assets table.
type Column struct {
	Name string
	Decl string
	// Backfill, when set, populates the column for pre-existing rows right
	// after it has been added.
	Backfill string
}

// Columns is the current column set, in table order. Files written by older
// revisions may lack any of them except rel; missing ones are added on open.
var Columns = []Column{
	{Name: "rel", Decl: "TEXT PRIMARY KEY"},
	{
		Name: "id",
		Decl: "TEXT",
		// Keyset pagination compares ids, so legacy rows must not keep NULL.
		Backfill: `UPDATE assets SET id = rel WHERE id IS NULL OR id = ''`,
	},
	{Name: "dt", Decl: "TEXT"},
	{Name: "ts", Decl: "INTEGER"},
	{Name: "bytes", Decl: "INTEGER"},
	{Name: "mime", Decl: "TEXT"},
	{Name: "make", Decl: "TEXT"},
	{Name: "model", Decl: "TEXT"},
	{Name: "lens", Decl: "TEXT"},
	{Name: "iso", Decl: "INTEGER"},
	{Name: "f_number", Decl: "REAL"},
	{Name: "exposure_time", Decl: "REAL"},
	{Name: "exposure_compensation", Decl: "REAL"},
	{Name: "focal_length", Decl: "REAL"},
	{Name: "w", Decl: "INTEGER"},
	{Name: "h", Decl: "INTEGER"},
	{Name: "gps", Decl: "TEXT"},
	{Name: "content_id", Decl: "TEXT"},
	{Name: "frame_rate", Decl: "REAL"},
	{Name: "codec", Decl: "TEXT"},
	{Name: "still_image_time", Decl: "REAL"},
	{Name: "dur", Decl: "REAL"},
	{Name: "original_rel_path", Decl: "TEXT"},
	{Name: "original_album_id", Decl: "TEXT"},
	{Name: "original_album_subpath", Decl: "TEXT"},
	{Name: "live_role", Decl: "INTEGER NOT NULL DEFAULT 0"},
	{Name: "live_partner_rel", Decl: "TEXT"},
	{
		Name:     "aspect_ratio",
		Decl:     "REAL",
		Backfill: `UPDATE assets SET aspect_ratio = CAST(w AS REAL) / h WHERE aspect_ratio IS NULL AND w > 0 AND h > 0`,
	},
	{
		Name:     "year",
		Decl:     "INTEGER",
		Backfill: `UPDATE assets SET year = CAST(substr(dt, 1, 4) AS INTEGER) WHERE year IS NULL AND length(dt) >= 4`,
	},
	{
		Name:     "month",
		Decl:     "INTEGER",
		Backfill: `UPDATE assets SET month = CAST(substr(dt, 6, 2) AS INTEGER) WHERE month IS NULL AND length(dt) >= 7`,
	},
	{Name: "media_type", Decl: "INTEGER"},
	{Name: "is_favorite", Decl: "INTEGER NOT NULL DEFAULT 0"},
	{Name: "location", Decl: "TEXT"},
	{Name: "micro_thumbnail", Decl: "BLOB"},
	{
		Name: "parent_album_path",
		Decl: "TEXT",
		// rtrim(rel, <rel without slashes>) strips the final path segment and
		// leaves the trailing slash, which the substr then drops.
		Backfill: `UPDATE assets SET parent_album_path = CASE
			WHEN instr(rel, '/') = 0 THEN ''
			ELSE substr(rtrim(rel, replace(rel, '/', '')), 1, length(rtrim(rel, replace(rel, '/', ''))) - 1)
		END
		WHERE parent_album_path IS NULL`,
	},
}

// Index is a named secondary index on the assets table.
type Index struct {
	Name string
	Def  string
}

// Indexes is the fixed index set kept on every open.
var Indexes = []Index{
	{Name: "idx_assets_dt_id", Def: "(dt DESC, id DESC)"},
	{Name: "idx_assets_favorite", Def: "(is_favorite, dt DESC, id DESC)"},
	{Name: "idx_assets_year_month", Def: "(year, month, dt DESC)"},
	{Name: "idx_assets_media_type", Def: "(media_type, dt DESC, id DESC)"},
	{Name: "idx_assets_album", Def: "(parent_album_path, dt DESC, id DESC)"},
	{Name: "idx_assets_global_sort", Def: "(live_role, dt DESC, id DESC)"},
}

// ColumnNames returns the names of all columns in table order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether name is part of the current column set.
func HasColumn(name string) bool {
	for _, c := range Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func createTableSQL() string {
	defs := make([]string, len(Columns))
	for i, c := range Columns {
		defs[i] = "\t\t" + c.Name + " " + c.Decl
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n\t)", TableName, strings.Join(defs, ",\n"))
}

// InitializeSchema brings the assets table up to the current revision. It
// creates the table when absent, adds any missing columns and ensures the
// index set. It is idempotent and runs on every open.
//
// Index creation failures are logged and counted but never returned, so a
// damaged index cannot block an otherwise readable file.
func InitializeSchema(ctx context.Context, db sqlx.ExtContext) error {
	if _, err := db.ExecContext(ctx, createTableSQL()); err != nil {
		return fmt.Errorf("failed to create %s table: %w", TableName, err)
	}

	if err := migrateColumns(ctx, db); err != nil {
		return err
	}

	for _, idx := range Indexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s%s", idx.Name, TableName, idx.Def)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			metrics.SchemaIndexErrors.Inc()
			logging.Warn("Failed to create index %s: %v", idx.Name, err)
		}
	}

	return nil
}

func migrateColumns(ctx context.Context, db sqlx.ExtContext) error {
	existing, err := existingColumns(ctx, db)
	if err != nil {
		return err
	}

	for _, col := range Columns {
		if existing[col.Name] || strings.Contains(col.Decl, "PRIMARY KEY") {
			continue
		}

		logging.Info("Migrating index: adding %s column to %s table", col.Name, TableName)

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", TableName, col.Name, col.Decl)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add %s column: %w", col.Name, err)
		}
		metrics.SchemaColumnsAdded.Inc()

		if err := backfill(ctx, db, col); err != nil {
			return err
		}
	}

	return nil
}

func backfill(ctx context.Context, db sqlx.ExecerContext, col Column) error {
	if col.Backfill == "" {
		return nil
	}
	res, err := db.ExecContext(ctx, col.Backfill)
	if err != nil {
		return fmt.Errorf("failed to initialize %s values: %w", col.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logging.Info("Migration complete: %s initialized for %d rows", col.Name, n)
	}
	return nil
}

// backfillAll fills derived columns left NULL, as after reinserting rows
// salvaged from an older revision.
func backfillAll(ctx context.Context, db sqlx.ExecerContext) error {
	for _, col := range Columns {
		if err := backfill(ctx, db, col); err != nil {
			return err
		}
	}
	return nil
}

func existingColumns(ctx context.Context, db sqlx.ExtContext) (map[string]bool, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, db, &names, `SELECT name FROM pragma_table_info('assets')`); err != nil {
		return nil, fmt.Errorf("failed to inspect %s columns: %w", TableName, err)
	}

	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}
	return existing, nil
}
