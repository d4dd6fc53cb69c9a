package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/unicode/norm"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

// FavoritesSyncResult counts the rows a sync changed.
type FavoritesSyncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// canonicalRel is the comparison key for paths that may differ only in
// Unicode normalization, as happens between filesystems.
func canonicalRel(rel string) string {
	return norm.NFC.String(NormalizeRel(rel))
}

// SyncFavorites makes is_favorite true for exactly the rows named in
// desired. Paths are compared in NFC, so "é" precomposed and "e" plus a
// combining accent name the same row.
func (r *Repository) SyncFavorites(ctx context.Context, desired []string) (result *FavoritesSyncResult, err error) {
	start := time.Now()
	defer func() { recordOperation("sync_favorites", start, err) }()

	want := make(map[string]bool, len(desired))
	for _, rel := range desired {
		if key := canonicalRel(rel); key != "" {
			want[key] = true
		}
	}

	result = &FavoritesSyncResult{}
	err = r.mgr.Transaction(ctx, func(ctx context.Context, tx *database.Tx) error {
		var rows []struct {
			Rel        string `db:"rel"`
			IsFavorite bool   `db:"is_favorite"`
		}
		if err := sqlx.SelectContext(ctx, tx, &rows, "SELECT rel, is_favorite FROM assets"); err != nil {
			return fmt.Errorf("failed to read favorites: %w", err)
		}

		var set, unset []string
		for _, row := range rows {
			wanted := want[canonicalRel(row.Rel)]
			switch {
			case wanted && !row.IsFavorite:
				set = append(set, row.Rel)
			case !wanted && row.IsFavorite:
				unset = append(unset, row.Rel)
			}
		}

		if err := setFavorites(ctx, tx, set, true); err != nil {
			return err
		}
		if err := setFavorites(ctx, tx, unset, false); err != nil {
			return err
		}

		result.Added, result.Removed = len(set), len(unset)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.FavoritesSyncChanges.WithLabelValues("added").Add(float64(result.Added))
	metrics.FavoritesSyncChanges.WithLabelValues("removed").Add(float64(result.Removed))
	logging.Debug("Favorites synced: +%d -%d", result.Added, result.Removed)
	return result, nil
}

func setFavorites(ctx context.Context, tx *database.Tx, rels []string, favorite bool) error {
	for lo := 0; lo < len(rels); lo += removeChunkSize {
		hi := min(lo+removeChunkSize, len(rels))

		q, args, err := sqlx.In("UPDATE assets SET is_favorite = ? WHERE rel IN (?)", favorite, rels[lo:hi])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("failed to update favorites: %w", err)
		}
	}
	return nil
}

// SetFavoriteStatus flags or unflags one row. When rel matches no row
// byte for byte, a row whose path is canonically equal is used instead.
func (r *Repository) SetFavoriteStatus(ctx context.Context, rel string, favorite bool) error {
	const stmt = "UPDATE assets SET is_favorite = ? WHERE rel = ?"

	err := r.updateOne(ctx, "set_favorite_status", stmt, favorite, rel)
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	stored, rerr := r.resolveCanonical(ctx, rel)
	if rerr != nil {
		return err
	}
	return r.updateOne(ctx, "set_favorite_status", stmt, favorite, stored)
}

func (r *Repository) resolveCanonical(ctx context.Context, rel string) (string, error) {
	key := canonicalRel(rel)

	var rels []string
	if err := sqlx.SelectContext(ctx, r.mgr.Queryer(ctx), &rels, "SELECT rel FROM assets"); err != nil {
		return "", err
	}
	for _, candidate := range rels {
		if canonicalRel(candidate) == key {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}
