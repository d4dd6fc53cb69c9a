package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

const (
	driverName = "sqlite3"

	// Default timeout for connectivity checks
	defaultTimeout = 5 * time.Second
)

// Options tunes how the index file is opened.
type Options struct {
	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration
	// MaxOpenConns bounds the reader pool. Writes are serialised regardless.
	MaxOpenConns int
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 8,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = def.BusyTimeout
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = def.MaxOpenConns
	}
	return o
}

func (o Options) dsn(path string) string {
	return fmt.Sprintf("%s?_busy_timeout=%d&_synchronous=NORMAL&_cache_size=10000",
		path, o.BusyTimeout.Milliseconds())
}

// Manager owns the connection pool of one index file and hands out
// transactions. One writer at a time, any number of readers.
type Manager struct {
	path string
	opts Options

	mu sync.RWMutex // guards db across Reset and Close
	db *sqlx.DB

	writeMu sync.Mutex
}

// Open opens (creating if needed) the index file at path. The parent
// directory must exist. The schema is not touched; see InitializeSchema.
func Open(ctx context.Context, path string, opts Options) (*Manager, error) {
	opts = opts.withDefaults()

	logging.Debug("Opening index database: %s", path)

	if err := diagnoseDatabasePermissions(path); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	db, err := connect(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	return newManager(db, path, opts), nil
}

func newManager(db *sqlx.DB, path string, opts Options) *Manager {
	return &Manager{
		path: path,
		opts: opts,
		db:   db,
	}
}

func connect(ctx context.Context, path string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, opts.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	// WAL is a persistent property of the file. A read-only directory or a
	// damaged header makes this fail; the schema pass surfaces real damage.
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		logging.Warn("Could not enable WAL journal mode for %s: %v", path, err)
	} else if !strings.EqualFold(mode, "wal") {
		logging.Warn("Journal mode for %s is %q, expected wal", path, mode)
	}

	return db, nil
}

// Path returns the index file path.
func (m *Manager) Path() string {
	return m.path
}

// DB returns the current pool handle. The handle changes after Reset, so
// callers should not hold on to it.
func (m *Manager) DB() *sqlx.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Queryer returns the transaction carried by ctx, or the pool when there is
// none, so that reads inside a transaction observe its own writes.
func (m *Manager) Queryer(ctx context.Context) sqlx.ExtContext {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Tx
	}
	return m.DB()
}

// Close closes the pool. Further use returns ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// Reset closes the pool and opens a fresh one on the same file. Any
// in-flight transaction must have finished; Reset takes the writer lock.
func (m *Manager) Reset(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	return m.rebind(ctx, nil)
}

// rebind swaps the pool, running between() while no handle is open. The
// writer lock must be held.
func (m *Manager) rebind(ctx context.Context, between func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			logging.Warn("Failed to close index database before reset: %v", err)
		}
		m.db = nil
	}

	if between != nil {
		if err := between(); err != nil {
			return err
		}
	}

	db, err := connect(ctx, m.path, m.opts)
	if err != nil {
		return err
	}
	m.db = db
	return nil
}

// Recover closes the pool, runs the recovery stages on the file and reopens
// it. It is the manual counterpart of the automatic recovery done at open.
func (m *Manager) Recover(ctx context.Context) (*RecoveryReport, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var report *RecoveryReport
	err := m.rebind(ctx, func() error {
		var rerr error
		report, rerr = Recover(ctx, m.path, m.opts)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// InitializeSchema runs the schema migrator against this file.
func (m *Manager) InitializeSchema(ctx context.Context) error {
	start := time.Now()
	err := m.Transaction(ctx, func(ctx context.Context, tx *Tx) error {
		return InitializeSchema(ctx, tx)
	})
	recordQuery("initialize_schema", start, err)
	return err
}

// IntegrityCheck runs PRAGMA quick_check. A report other than "ok" is
// returned as an error wrapping ErrCorrupt.
func (m *Manager) IntegrityCheck(ctx context.Context) error {
	db := m.DB()
	if db == nil {
		return ErrClosed
	}

	start := time.Now()
	err := quickCheck(ctx, db)
	recordQuery("integrity_check", start, err)
	return err
}

func quickCheck(ctx context.Context, db sqlx.QueryerContext) error {
	var results []string
	if err := sqlx.SelectContext(ctx, db, &results, "PRAGMA quick_check"); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if len(results) == 1 && results[0] == "ok" {
		return nil
	}
	if len(results) > 5 {
		results = append(results[:5], fmt.Sprintf("(%d more)", len(results)-5))
	}
	return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(results, "; "))
}

// Vacuum rebuilds the file to reclaim space.
func (m *Manager) Vacuum(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	db := m.DB()
	if db == nil {
		return ErrClosed
	}

	start := time.Now()
	_, err := db.ExecContext(ctx, "VACUUM")
	recordQuery("vacuum", start, err)
	if err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	return nil
}

// Checkpoint folds the WAL back into the main file and truncates it.
func (m *Manager) Checkpoint(ctx context.Context) error {
	db := m.DB()
	if db == nil {
		return ErrClosed
	}

	start := time.Now()
	_, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	recordQuery("checkpoint", start, err)
	if err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// UpdateDBMetrics refreshes the connection pool gauge.
func (m *Manager) UpdateDBMetrics() {
	db := m.DB()
	if db == nil {
		metrics.DBConnectionsOpen.Set(0)
		return
	}
	stats := db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// UpdateSizeMetrics reports the on-disk size of the file and its side files.
func (m *Manager) UpdateSizeMetrics() {
	for label, p := range SideFiles(m.path) {
		info, err := os.Stat(p)
		if err != nil {
			metrics.DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		metrics.DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}

// SideFiles maps the metric label of each on-disk file of the index to its path.
func SideFiles(path string) map[string]string {
	return map[string]string{
		"main": path,
		"wal":  path + "-wal",
		"shm":  path + "-shm",
	}
}

func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	if dbInfo, err := os.Stat(dbPath); err == nil {
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", dbPath, dbInfo.Mode(), dbInfo.Size())
		if dbInfo.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file is read-only! Mode: %v", dbInfo.Mode())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot stat database file: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		side := dbPath + suffix
		info, err := os.Stat(side)
		if err != nil {
			continue
		}
		logging.Debug("Side file exists: %s (mode: %v, size: %d bytes)", side, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Side file %s is read-only! Mode: %v - this will cause write failures", side, info.Mode())
			if chmodErr := os.Chmod(side, 0o600); chmodErr != nil {
				logging.Error("Failed to fix %s permissions: %v", side, chmodErr)
			} else {
				logging.Info("Fixed %s permissions", side)
			}
		}
	}

	return nil
}
