package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
)

// ApplyLiveRoleUpdates replaces all Live Photo pairings with updates. Every
// row is first reset to a visible, unpaired still, so no pairing from an
// earlier pass survives unless it is repeated here.
func (r *Repository) ApplyLiveRoleUpdates(ctx context.Context, updates []LiveRoleUpdate) (err error) {
	start := time.Now()
	defer func() { recordOperation("apply_live_role_updates", start, err) }()

	for _, u := range updates {
		if u.Role != LiveRolePrimary && u.Role != LiveRoleMotion {
			return fmt.Errorf("live role update for %s: invalid role %d", u.Rel, u.Role)
		}
	}

	return r.mgr.Transaction(ctx, func(ctx context.Context, tx *database.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE assets SET live_role = 0, live_partner_rel = NULL WHERE live_role != 0 OR live_partner_rel IS NOT NULL")
		if err != nil {
			return fmt.Errorf("failed to reset live roles: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			logging.Debug("Reset live pairing of %d rows", n)
		}

		if len(updates) == 0 {
			return nil
		}

		stmt, err := tx.PreparexContext(ctx, "UPDATE assets SET live_role = ?, live_partner_rel = ? WHERE rel = ?")
		if err != nil {
			return fmt.Errorf("failed to prepare live role update: %w", err)
		}
		defer func() {
			if closeErr := stmt.Close(); closeErr != nil {
				logging.Debug("failed to close live role statement: %v", closeErr)
			}
		}()

		missing := 0
		for _, u := range updates {
			var partner any
			if u.PartnerRel != nil {
				partner = NormalizeRel(*u.PartnerRel)
			}
			res, err := stmt.ExecContext(ctx, u.Role, partner, NormalizeRel(u.Rel))
			if err != nil {
				return fmt.Errorf("failed to update live role of %s: %w", u.Rel, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				missing++
			}
		}
		if missing > 0 {
			logging.Debug("%d live role updates named rows that are not indexed", missing)
		}
		return nil
	})
}
