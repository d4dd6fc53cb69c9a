package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_index_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_index_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_index_db_transaction_duration_seconds",
			Help:    "Duration of write transactions by outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"}, // "commit", "rollback", "aborted"
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_index_db_rows_affected",
			Help:    "Rows affected by write operations",
			Buckets: []float64{1, 10, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_index_db_size_bytes",
			Help: "Size of the index database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	DBStorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_db_storage_errors_total",
			Help: "Filesystem errors while touching the index database files",
		},
		[]string{"file"},
	)

	SchemaColumnsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_schema_columns_added_total",
			Help: "Columns added to legacy index files by the schema migrator",
		},
	)

	SchemaIndexErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_schema_index_errors_total",
			Help: "Index creation failures during schema initialization",
		},
	)
)

// Recovery metrics
var (
	RecoveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_recovery_total",
			Help: "Corruption recoveries by the stage that succeeded",
		},
		[]string{"stage"}, // "reindex", "reset"
	)

	RecoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_index_recovery_duration_seconds",
			Help:    "Time spent recovering a corrupted index",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	RecoveryRowsSalvaged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_recovery_rows_salvaged_total",
			Help: "Rows carried over into a rebuilt index",
		},
	)

	RecoveryRowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_recovery_rows_skipped_total",
			Help: "Unreadable rows dropped during salvage",
		},
	)
)

// Repository and merge metrics
var (
	RepositoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_repository_operations_total",
			Help: "Total number of repository operations",
		},
		[]string{"operation", "status"},
	)

	RepositoryItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_index_repository_items_returned",
			Help:    "Number of rows returned by repository reads",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	InvalidCursorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_invalid_cursors_total",
			Help: "Cursors that failed to decode and restarted from the first page",
		},
	)

	FavoritesSyncChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_favorites_sync_changes_total",
			Help: "Rows whose favorite flag changed during favorites sync",
		},
		[]string{"direction"}, // "added", "removed"
	)

	MergeItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_merge_items_total",
			Help: "Items emitted by k-way merge providers",
		},
	)

	MergeSources = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_index_merge_sources",
			Help:    "Number of sources per k-way merge provider",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	IteratorPageFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_iterator_page_fetches_total",
			Help: "Pages fetched by asset iterators",
		},
	)
)

// Library content metrics
var (
	AssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_index_assets_total",
			Help: "Number of indexed assets by media type",
		},
		[]string{"type"},
	)

	AlbumsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_albums_total",
			Help: "Number of distinct albums",
		},
	)

	FavoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_favorites_total",
			Help: "Number of favorite assets",
		},
	)

	LivePairsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_live_pairs_total",
			Help: "Number of primary assets with a live partner",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale handle",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_index_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_index_memory_paused",
			Help: "1 while batch writes are paused for memory pressure",
		},
	)

	MemoryPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_index_memory_pauses_total",
			Help: "Times batch writes were paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_index_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
