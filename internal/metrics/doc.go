// Package metrics provides Prometheus instrumentation for the asset index.
//
// All metrics are prefixed with "asset_index_" and registered through
// promauto at package initialisation.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Database Metrics
//
//   - DBQueryTotal / DBQueryDuration: per-operation query accounting
//   - DBTransactionDuration: write transactions by outcome (commit, rollback, aborted)
//   - DBRowsAffected: rows touched by write operations
//   - DBConnectionsOpen: open pool connections
//   - DBSizeBytes: size of the main, WAL and SHM files
//   - SchemaColumnsAdded / SchemaIndexErrors: migrator activity
//
// ## Recovery Metrics
//
//   - RecoveryTotal: successful recoveries by stage (reindex, reset)
//   - RecoveryRowsSalvaged / RecoveryRowsSkipped: salvage yield
//
// ## Repository and Merge Metrics
//
//   - RepositoryOperationsTotal, RepositoryItemsReturned
//   - InvalidCursorsTotal: foreign or stale cursors that restarted paging
//   - FavoritesSyncChanges: favorite flag flips during reconciliation
//   - MergeItemsTotal, MergeSources, IteratorPageFetches
//
// ## Library Metrics
//
// Updated by Collector from a StatsProvider: AssetsTotal, AlbumsTotal,
// FavoritesTotal, LivePairsTotal.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	c := metrics.NewCollector(repo, repo.DBPath(), time.Minute)
//	c.Start()
//	defer c.Stop()
package metrics
