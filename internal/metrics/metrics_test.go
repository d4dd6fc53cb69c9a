package metrics

import (
	"testing"
)

func TestDatabaseMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBTransactionDuration", DBTransactionDuration},
		{"DBRowsAffected", DBRowsAffected},
		{"DBConnectionsOpen", DBConnectionsOpen},
		{"DBSizeBytes", DBSizeBytes},
		{"SchemaColumnsAdded", SchemaColumnsAdded},
		{"SchemaIndexErrors", SchemaIndexErrors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestRecoveryMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"RecoveryTotal", RecoveryTotal},
		{"RecoveryDuration", RecoveryDuration},
		{"RecoveryRowsSalvaged", RecoveryRowsSalvaged},
		{"RecoveryRowsSkipped", RecoveryRowsSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestRepositoryMetricsUsable(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("recording repository metrics panicked: %v", r)
		}
	}()

	RepositoryOperationsTotal.WithLabelValues("append_rows", "success").Inc()
	RepositoryItemsReturned.WithLabelValues("get_assets_page").Observe(100)
	InvalidCursorsTotal.Inc()
	FavoritesSyncChanges.WithLabelValues("added").Add(3)
	MergeItemsTotal.Add(10)
	MergeSources.Observe(4)
	IteratorPageFetches.Inc()
	MemoryUsageRatio.Set(0.4)
	MemoryPaused.Set(0)
	MemoryPauses.Inc()
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()

	InitializeMetrics()
	// Calling twice must be harmless.
	InitializeMetrics()
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.0.0", "abc123", "go1.25")
	SetAppInfo("dev", "unknown", "go1.25")
}
