package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

// Tx is a write transaction. It is shared by every reentrant Transaction
// call made with a context derived from the one passed to the outermost fn.
type Tx struct {
	*sqlx.Tx

	mu    sync.Mutex
	cause error
}

func (t *Tx) abort(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cause == nil {
		t.cause = err
	}
}

// Aborted reports whether an inner call has failed. An aborted transaction
// will roll back when the outermost call returns.
func (t *Tx) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cause != nil
}

type txKey struct{}

func txFromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txKey{}).(*Tx)
	return tx
}

// InTransaction reports whether ctx carries an active transaction.
func InTransaction(ctx context.Context) bool {
	return txFromContext(ctx) != nil
}

// Transaction runs fn inside a write transaction. It commits when fn returns
// nil and rolls back on error or panic.
//
// Calls are reentrant but not nested: when ctx already carries a transaction
// fn joins it and no savepoint is created. A failing inner call marks the
// shared transaction aborted, and the outermost call then rolls back and
// returns ErrTransactionAborted even if its own fn swallowed the inner error.
//
// fn must pass the ctx it receives to any further store calls. Using the
// outer context instead would wait on the writer lock held by this call.
func (m *Manager) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	if tx := txFromContext(ctx); tx != nil {
		return runInner(ctx, tx, fn)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	db := m.DB()
	if db == nil {
		return ErrClosed
	}

	start := time.Now()
	sqlTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{Tx: sqlTx}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if r := recover(); r != nil {
			rollback(tx, start, "rollback")
			panic(r)
		}
	}()

	if fnErr := fn(txCtx, tx); fnErr != nil {
		if rbErr := rollback(tx, start, "rollback"); rbErr != nil {
			return errors.Join(fnErr, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return fnErr
	}

	if tx.Aborted() {
		tx.mu.Lock()
		cause := tx.cause
		tx.mu.Unlock()
		logging.Warn("Rolling back transaction aborted by inner failure: %v", cause)
		if rbErr := rollback(tx, start, "aborted"); rbErr != nil {
			return errors.Join(ErrTransactionAborted, rbErr)
		}
		return fmt.Errorf("%w: %w", ErrTransactionAborted, cause)
	}

	if err := tx.Commit(); err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(start).Seconds())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(time.Since(start).Seconds())
	return nil
}

func runInner(ctx context.Context, tx *Tx, fn func(ctx context.Context, tx *Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			tx.abort(fmt.Errorf("panic in inner transaction: %v", r))
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.abort(err)
		return err
	}
	return nil
}

func rollback(tx *Tx, start time.Time, result string) error {
	metrics.DBTransactionDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// ExecuteInTransaction runs one statement, joining the transaction in ctx or
// opening its own.
func (m *Manager) ExecuteInTransaction(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	start := time.Now()
	err := m.Transaction(ctx, func(ctx context.Context, tx *Tx) error {
		var execErr error
		result, execErr = tx.ExecContext(ctx, query, args...)
		return execErr
	})
	recordQuery("execute", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteManyInTransaction runs query once per argument set inside a single
// transaction and returns the total number of affected rows.
func (m *Manager) ExecuteManyInTransaction(ctx context.Context, query string, argsList [][]any) (int64, error) {
	if len(argsList) == 0 {
		return 0, nil
	}

	var total int64
	start := time.Now()
	err := m.Transaction(ctx, func(ctx context.Context, tx *Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() {
			if closeErr := stmt.Close(); closeErr != nil {
				logging.Debug("failed to close statement: %v", closeErr)
			}
		}()

		for _, args := range argsList {
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				total += n
			}
		}
		return nil
	})
	recordQuery("execute_many", start, err)
	if err != nil {
		return 0, err
	}
	metrics.DBRowsAffected.WithLabelValues("execute_many").Observe(float64(total))
	return total, nil
}
