package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
		DBStorageErrors.WithLabelValues(file)
	}

	for _, result := range []string{"commit", "rollback", "aborted"} {
		DBTransactionDuration.WithLabelValues(result)
	}

	for _, stage := range []string{"reindex", "reset"} {
		RecoveryTotal.WithLabelValues(stage)
	}

	for _, direction := range []string{"added", "removed"} {
		FavoritesSyncChanges.WithLabelValues(direction)
	}

	for _, t := range []string{"image", "video"} {
		AssetsTotal.WithLabelValues(t)
	}

	for _, op := range []string{"stat", "remove"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}
