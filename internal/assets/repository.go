package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

const (
	// WorkDirName is the per-library directory holding the index.
	WorkDirName = ".iPhoto"
	// IndexFileName is the index file inside WorkDirName.
	IndexFileName = "global_index.db"

	// DefaultPageSize is used when a request carries no limit.
	DefaultPageSize = 100

	// removeChunkSize keeps IN lists below SQLite's bound-parameter limit.
	removeChunkSize = 500

	statsTimeout = 10 * time.Second
)

// IndexPath returns the index file location for a library root.
func IndexPath(libraryRoot string) string {
	return filepath.Join(libraryRoot, WorkDirName, IndexFileName)
}

// Options configures Open.
type Options struct {
	Database database.Options
	// SkipIntegrityCheck skips the quick_check run at open. Damage is then
	// only noticed when a query trips over it.
	SkipIntegrityCheck bool
}

// Repository is the asset index of one library. It is safe for concurrent
// use: writes are serialised, reads run in parallel.
type Repository struct {
	root string
	mgr  *database.Manager

	mu           sync.Mutex
	lastRecovery *database.RecoveryReport
}

// Open opens the index of the library at libraryRoot, creating it when
// missing. A damaged index is repaired before Open returns; callers never
// see corruption errors from here.
func Open(ctx context.Context, libraryRoot string, opts Options) (*Repository, error) {
	dbPath := IndexPath(libraryRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	logging.Info("Opening asset index: %s", dbPath)

	mgr, err := openAndPrepare(ctx, dbPath, opts)
	var report *database.RecoveryReport
	if err != nil {
		if !database.IsCorruption(err) {
			return nil, err
		}

		logging.Warn("Asset index %s is damaged: %v", dbPath, err)
		report, err = database.Recover(ctx, dbPath, opts.Database)
		if err != nil {
			return nil, err
		}

		mgr, err = openAndPrepare(ctx, dbPath, opts)
		if err != nil {
			return nil, fmt.Errorf("index unusable after recovery: %w", err)
		}
	}

	return &Repository{
		root:         libraryRoot,
		mgr:          mgr,
		lastRecovery: report,
	}, nil
}

func openAndPrepare(ctx context.Context, dbPath string, opts Options) (*database.Manager, error) {
	mgr, err := database.Open(ctx, dbPath, opts.Database)
	if err != nil {
		return nil, err
	}

	if err := mgr.InitializeSchema(ctx); err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	if !opts.SkipIntegrityCheck {
		if err := mgr.IntegrityCheck(ctx); err != nil {
			_ = mgr.Close()
			return nil, err
		}
	}

	return mgr, nil
}

// Close releases the index file.
func (r *Repository) Close() error {
	return r.mgr.Close()
}

// LibraryRoot returns the library this index belongs to.
func (r *Repository) LibraryRoot() string {
	return r.root
}

// DBPath returns the index file path.
func (r *Repository) DBPath() string {
	return r.mgr.Path()
}

// Manager exposes the connection manager for maintenance tasks.
func (r *Repository) Manager() *database.Manager {
	return r.mgr
}

// LastRecovery returns the report of the most recent repair, or nil when
// the index has not needed one since it was opened.
func (r *Repository) LastRecovery() *database.RecoveryReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRecovery
}

// Check runs the integrity check without repairing anything.
func (r *Repository) Check(ctx context.Context) error {
	return r.mgr.IntegrityCheck(ctx)
}

// Repair runs the recovery stages on the index regardless of its state.
func (r *Repository) Repair(ctx context.Context) (*database.RecoveryReport, error) {
	report, err := r.mgr.Recover(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.lastRecovery = report
	r.mu.Unlock()
	return report, nil
}

// Transaction groups several repository calls into one commit. Calls made
// with the ctx passed to fn join the transaction; a failure in any of them
// rolls back everything.
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.mgr.Transaction(ctx, func(ctx context.Context, _ *database.Tx) error {
		return fn(ctx)
	})
}

// withRecovery runs a read and, when it fails on a damaged file, repairs
// the index once and retries. Inside a transaction the error is returned
// as is.
func (r *Repository) withRecovery(ctx context.Context, op string, fn func() error) error {
	if !database.InTransaction(ctx) && r.mgr.DB() == nil {
		return database.ErrClosed
	}

	err := fn()
	if err == nil || !database.IsCorruption(err) || database.InTransaction(ctx) {
		return err
	}

	logging.Warn("Asset index damaged during %s: %v", op, err)
	if _, rerr := r.Repair(ctx); rerr != nil {
		return fmt.Errorf("%s: %w (recovery failed: %v)", op, err, rerr)
	}
	return fn()
}

func recordOperation(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RepositoryOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

var insertSQL = func() string {
	cols := database.ColumnNames()
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		database.TableName, strings.Join(cols, ", "), strings.Join(named, ", "))
}()

// WriteRows replaces the whole index with rows.
func (r *Repository) WriteRows(ctx context.Context, rows []Asset) (err error) {
	start := time.Now()
	defer func() { recordOperation("write_rows", start, err) }()

	prepared, err := prepareRows(rows)
	if err != nil {
		return err
	}

	return r.mgr.Transaction(ctx, func(ctx context.Context, tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM assets")
		if err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			logging.Debug("write_rows cleared %d rows", n)
		}
		return insertRows(ctx, tx, prepared)
	})
}

// AppendRows inserts rows, replacing any existing row with the same rel.
// Rows absent from the batch are left untouched, and applying the same
// batch again changes nothing.
func (r *Repository) AppendRows(ctx context.Context, rows []Asset) (err error) {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { recordOperation("append_rows", start, err) }()

	prepared, err := prepareRows(rows)
	if err != nil {
		return err
	}

	return r.mgr.Transaction(ctx, func(ctx context.Context, tx *database.Tx) error {
		return insertRows(ctx, tx, prepared)
	})
}

// UpsertRow writes a single row under rel.
func (r *Repository) UpsertRow(ctx context.Context, rel string, row Asset) error {
	row.Rel = rel
	return r.AppendRows(ctx, []Asset{row})
}

func prepareRows(rows []Asset) ([]Asset, error) {
	prepared := make([]Asset, len(rows))
	for i := range rows {
		prepared[i] = rows[i]
		if err := prepared[i].normalize(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(prepared[i].Extra) > 0 {
			logging.Debug("Ignoring %d unknown fields of %s", len(prepared[i].Extra), prepared[i].Rel)
		}
	}
	return prepared, nil
}

func insertRows(ctx context.Context, tx *database.Tx, rows []Asset) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logging.Debug("failed to close insert statement: %v", closeErr)
		}
	}()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s: %w", rows[i].Rel, err)
		}
	}

	metrics.DBRowsAffected.WithLabelValues("insert").Observe(float64(len(rows)))
	return nil
}

// RemoveRows deletes the rows with the given rels and returns how many
// were removed. It is the only way rows leave the index apart from
// WriteRows.
func (r *Repository) RemoveRows(ctx context.Context, rels []string) (removed int64, err error) {
	if len(rels) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() { recordOperation("remove_rows", start, err) }()

	keys := make([]string, 0, len(rels))
	for _, rel := range rels {
		if rel = NormalizeRel(rel); rel != "" {
			keys = append(keys, rel)
		}
	}

	err = r.mgr.Transaction(ctx, func(ctx context.Context, tx *database.Tx) error {
		for lo := 0; lo < len(keys); lo += removeChunkSize {
			hi := min(lo+removeChunkSize, len(keys))

			q, args, err := sqlx.In("DELETE FROM assets WHERE rel IN (?)", keys[lo:hi])
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
			if err != nil {
				return fmt.Errorf("failed to remove rows: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				removed += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.DBRowsAffected.WithLabelValues("delete").Observe(float64(removed))
	return removed, nil
}

// GetByRel returns the row stored under rel.
func (r *Repository) GetByRel(ctx context.Context, rel string) (*Asset, error) {
	var a Asset
	q := "SELECT " + strings.Join(assetColumns, ", ") + " FROM assets WHERE rel = ?"
	err := r.withRecovery(ctx, "get_by_rel", func() error {
		return sqlx.GetContext(ctx, r.mgr.Queryer(ctx), &a, q, NormalizeRel(rel))
	})
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, err
	}
	return &a, nil
}

// UpdateLocation sets the human-readable location of a row. An empty
// location clears it.
func (r *Repository) UpdateLocation(ctx context.Context, rel, location string) error {
	var value any
	if location != "" {
		value = location
	}
	return r.updateOne(ctx, "update_location", "UPDATE assets SET location = ? WHERE rel = ?", value, rel)
}

func (r *Repository) updateOne(ctx context.Context, op, stmt string, value any, rel string) (err error) {
	start := time.Now()
	defer func() { recordOperation(op, start, err) }()

	res, err := r.mgr.ExecuteInTransaction(ctx, stmt, value, NormalizeRel(rel))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return nil
}
