package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/filesystem"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

// RecoveryStage names the recovery step that produced a usable file.
type RecoveryStage string

const (
	StageReindex RecoveryStage = "reindex"
	StageReset   RecoveryStage = "reset"
)

// SalvagedRow is one row read out of a damaged file, keyed by column name.
type SalvagedRow map[string]any

// RecoveryReport summarises a recovery run.
type RecoveryReport struct {
	Stage    RecoveryStage
	Salvaged int // rows written into the rebuilt file
	Skipped  int // rows that could not be read or re-inserted
	Duration time.Duration

	// IgnoredColumns lists columns of the damaged file that the current
	// schema does not know. Their values are not carried over.
	IgnoredColumns []string
}

// Recover repairs the index file at path. No connection to the file may be
// open. The stages run in order and stop at the first that succeeds:
//
//  1. reindex: rebuild indexes in place, rerun the schema pass and require a
//     clean quick_check.
//  2. salvage: read whatever rows are still reachable, row by row.
//  3. reset: delete the file and its side files, create an empty schema and
//     insert the salvaged rows.
//
// An error is returned only when even the reset could not produce a usable
// file.
func Recover(ctx context.Context, path string, opts Options) (*RecoveryReport, error) {
	opts = opts.withDefaults()
	start := time.Now()

	logging.Warn("Index database %s is damaged, starting recovery", path)

	rerr := reindex(ctx, path, opts)
	if rerr == nil {
		report := &RecoveryReport{Stage: StageReindex, Duration: time.Since(start)}
		finishRecovery(report)
		return report, nil
	}
	logging.Warn("Reindex of %s did not repair it: %v", path, rerr)

	rows, skipped, ignored := salvage(ctx, path, opts)
	logging.Info("Salvaged %d rows from %s (%d unreadable)", len(rows), path, skipped)
	if len(ignored) > 0 {
		logging.Warn("Salvage dropped values of unknown columns: %s", strings.Join(ignored, ", "))
	}

	inserted, failed, err := forceReset(ctx, path, opts, rows)
	if err != nil {
		metrics.RecoveryDuration.Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to rebuild index database: %w", err)
	}

	report := &RecoveryReport{
		Stage:    StageReset,
		Salvaged: inserted,
		Skipped:  skipped + failed,
		Duration: time.Since(start),

		IgnoredColumns: ignored,
	}
	finishRecovery(report)
	return report, nil
}

func finishRecovery(report *RecoveryReport) {
	metrics.RecoveryTotal.WithLabelValues(string(report.Stage)).Inc()
	metrics.RecoveryDuration.Observe(report.Duration.Seconds())
	metrics.RecoveryRowsSalvaged.Add(float64(report.Salvaged))
	metrics.RecoveryRowsSkipped.Add(float64(report.Skipped))

	logging.Info("Index recovery finished: stage=%s salvaged=%d skipped=%d duration=%v",
		report.Stage, report.Salvaged, report.Skipped, report.Duration)
}

func reindex(ctx context.Context, path string, opts Options) (err error) {
	start := time.Now()
	defer func() { recordQuery("recovery_reindex", start, err) }()

	db, err := connect(ctx, path, opts)
	if err != nil {
		return err
	}
	defer closeQuietly(db)

	if _, err := db.ExecContext(ctx, "REINDEX"); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if err := InitializeSchema(ctx, db); err != nil {
		return err
	}
	// Rebuilding the file drops pages orphaned by a damaged index, which
	// quick_check reports as never used.
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum after reindex failed: %w", err)
	}
	return quickCheck(ctx, db)
}

// salvage returns every row it could read and the sorted names of columns
// the current schema does not know. Rows without a rel or with
// unconvertible values are skipped; a failure of the scan itself ends the
// list early.
func salvage(ctx context.Context, path string, opts Options) ([]SalvagedRow, int, []string) {
	start := time.Now()
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", path, opts.BusyTimeout.Milliseconds())

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		recordQuery("recovery_salvage", start, err)
		logging.Warn("Salvage could not open %s: %v", path, err)
		return nil, 0, nil
	}
	defer closeQuietly(db)

	rows, err := db.QueryxContext(ctx, "SELECT * FROM assets")
	if err != nil {
		recordQuery("recovery_salvage", start, err)
		logging.Warn("Salvage could not read %s: %v", path, err)
		return nil, 0, nil
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Debug("failed to close salvage rows: %v", closeErr)
		}
	}()

	var (
		out     []SalvagedRow
		skipped int
		unknown = make(map[string]bool)
	)
	for rows.Next() {
		raw := make(map[string]any)
		if err := rows.MapScan(raw); err != nil {
			skipped++
			logging.Debug("Skipping unreadable row during salvage: %v", err)
			continue
		}
		row, ignored, err := convertSalvaged(raw)
		for _, name := range ignored {
			unknown[name] = true
		}
		if err != nil {
			skipped++
			logging.Debug("Skipping row during salvage: %v", err)
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		logging.Warn("Salvage scan of %s stopped after %d rows: %v", path, len(out), err)
	}

	ignored := make([]string, 0, len(unknown))
	for name := range unknown {
		ignored = append(ignored, name)
	}
	sort.Strings(ignored)

	recordQuery("recovery_salvage", start, nil)
	return out, skipped, ignored
}

// convertSalvaged maps a raw row onto the current columns. Names outside
// the schema are returned as ignored. A missing id falls back to rel so the
// row stays reachable by keyset pagination.
func convertSalvaged(raw map[string]any) (SalvagedRow, []string, error) {
	row := make(SalvagedRow, len(raw))
	var ignored []string
	for name, value := range raw {
		if !HasColumn(name) {
			ignored = append(ignored, name)
			continue
		}
		// The driver hands TEXT back as []byte in some affinities.
		if b, ok := value.([]byte); ok && name != "micro_thumbnail" {
			value = string(b)
		}
		row[name] = value
	}

	sort.Strings(ignored)

	rel, _ := row["rel"].(string)
	if strings.TrimSpace(rel) == "" {
		return nil, ignored, fmt.Errorf("row has no rel")
	}
	if id, ok := row["id"]; !ok || id == nil || id == "" {
		row["id"] = rel
	}
	return row, ignored, nil
}

func forceReset(ctx context.Context, path string, opts Options, rows []SalvagedRow) (inserted, failed int, err error) {
	start := time.Now()
	defer func() { recordQuery("recovery_reset", start, err) }()

	targets := []string{path, path + "-wal", path + "-shm", path + "-journal"}
	if left := filesystem.RemoveAllBestEffort(targets, filesystem.DefaultRetryConfig()); len(left) > 0 {
		logging.Warn("Could not remove damaged index files: %s", strings.Join(left, ", "))
	}

	db, err := connect(ctx, path, opts)
	if err != nil {
		return 0, 0, err
	}
	defer closeQuietly(db)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}

	if err := InitializeSchema(ctx, tx); err != nil {
		_ = tx.Rollback()
		return 0, 0, err
	}

	for _, row := range rows {
		query, args := insertSalvaged(row)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			failed++
			logging.Debug("Dropping salvaged row %v: %v", row["rel"], err)
			continue
		}
		inserted++
	}

	if err := backfillAll(ctx, tx); err != nil {
		_ = tx.Rollback()
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit rebuilt index: %w", err)
	}
	return inserted, failed, nil
}

func insertSalvaged(row SalvagedRow) (string, []any) {
	cols := make([]string, 0, len(row))
	for name := range row {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, name := range cols {
		args[i] = row[name]
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(cols, ", "), placeholders)
	return query, args
}

func closeQuietly(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logging.Debug("failed to close database handle: %v", err)
	}
}
