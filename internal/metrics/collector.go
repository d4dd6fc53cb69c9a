package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// DBMetricsUpdater refreshes connection pool gauges.
type DBMetricsUpdater interface {
	UpdateDBMetrics()
}

// Stats holds the current library statistics
type Stats struct {
	TotalAssets    int
	TotalImages    int
	TotalVideos    int
	TotalAlbums    int
	TotalFavorites int
	TotalLivePairs int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbUpdater     DBMetricsUpdater
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector. dbPath may be empty, in which
// case database file sizes are not reported.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// SetDBMetricsUpdater registers a connection pool gauge updater.
func (c *Collector) SetDBMetricsUpdater(u DBMetricsUpdater) {
	c.dbUpdater = u
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectDBSize()

	if c.dbUpdater != nil {
		c.dbUpdater.UpdateDBMetrics()
	}

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	AssetsTotal.WithLabelValues("image").Set(float64(stats.TotalImages))
	AssetsTotal.WithLabelValues("video").Set(float64(stats.TotalVideos))
	AlbumsTotal.Set(float64(stats.TotalAlbums))
	FavoritesTotal.Set(float64(stats.TotalFavorites))
	LivePairsTotal.Set(float64(stats.TotalLivePairs))

	logging.Debug("Metrics collected: assets=%d, albums=%d, favorites=%d, live=%d",
		stats.TotalAssets, stats.TotalAlbums, stats.TotalFavorites, stats.TotalLivePairs)
}

// collectDBSize reports the size of the primary file and its WAL/SHM side files.
func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}

	files := map[string]string{
		"main": c.dbPath,
		"wal":  c.dbPath + "-wal",
		"shm":  c.dbPath + "-shm",
	}

	for label, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				DBStorageErrors.WithLabelValues(label).Inc()
				logging.Debug("Failed to stat %s database file %s: %v", label, path, err)
			}
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
