package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

// Stats summarises the index.
type Stats struct {
	Total     int `db:"total" json:"total"`
	Images    int `db:"images" json:"images"`
	Videos    int `db:"videos" json:"videos"`
	Albums    int `db:"albums" json:"albums"`
	Favorites int `db:"favorites" json:"favorites"`
	LivePairs int `db:"live_pairs" json:"live_pairs"`
	Trash     int `db:"trash" json:"trash"`
}

const statsSQL = `SELECT
	COUNT(*) AS total,
	COALESCE(SUM(media_type = 0), 0) AS images,
	COALESCE(SUM(media_type = 1), 0) AS videos,
	COUNT(DISTINCT COALESCE(parent_album_path, '')) AS albums,
	COALESCE(SUM(is_favorite = 1), 0) AS favorites,
	COALESCE(SUM(live_role = 0 AND live_partner_rel IS NOT NULL), 0) AS live_pairs,
	COALESCE(SUM(original_rel_path IS NOT NULL), 0) AS trash
FROM assets`

// Stats counts rows by kind.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	start := time.Now()
	var s Stats
	err := r.withRecovery(ctx, "stats", func() error {
		return sqlx.GetContext(ctx, r.mgr.Queryer(ctx), &s, statsSQL)
	})
	recordOperation("stats", start, err)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &s, nil
}

// GetStats implements metrics.StatsProvider.
func (r *Repository) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	s, err := r.Stats(ctx)
	if err != nil {
		logging.Warn("Failed to collect index statistics: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		TotalAssets:    s.Total,
		TotalImages:    s.Images,
		TotalVideos:    s.Videos,
		TotalAlbums:    s.Albums,
		TotalFavorites: s.Favorites,
		TotalLivePairs: s.LivePairs,
	}
}

// UpdateDBMetrics implements metrics.DBMetricsUpdater.
func (r *Repository) UpdateDBMetrics() {
	r.mgr.UpdateDBMetrics()
}
