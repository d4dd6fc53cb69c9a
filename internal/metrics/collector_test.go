package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDBUpdater struct {
	mu    sync.Mutex
	calls int
}

func (m *mockDBUpdater) UpdateDBMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalAssets: 100, TotalImages: 80, TotalVideos: 20}}

	collector := NewCollector(provider, "/tmp/test.db", 5*time.Second)

	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}
	if collector.dbPath != "/tmp/test.db" {
		t.Errorf("dbPath = %q, want %q", collector.dbPath, "/tmp/test.db")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect() panicked with nil provider: %v", r)
		}
	}()

	NewCollector(nil, "", time.Second).collect()
}

func TestCollectCallsProviderAndUpdater(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalAssets: 3, TotalImages: 2, TotalVideos: 1, TotalAlbums: 2}}
	updater := &mockDBUpdater{}

	collector := NewCollector(provider, "", time.Second)
	collector.SetDBMetricsUpdater(updater)
	collector.collect()

	if provider.callCount() != 1 {
		t.Errorf("GetStats called %d times, want 1", provider.callCount())
	}
	if updater.calls != 1 {
		t.Errorf("UpdateDBMetrics called %d times, want 1", updater.calls)
	}
}

func TestCollectDBSizeWithSideFiles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "global_index.db")
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", p, err)
		}
	}

	NewCollector(nil, dbPath, time.Second).collectDBSize()
}

func TestCollectDBSizeWithMissingDatabase(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collectDBSize() panicked: %v", r)
		}
	}()

	NewCollector(nil, "/nonexistent/path/db.db", time.Second).collectDBSize()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalAssets: 50}}
	collector := NewCollector(provider, "", 10*time.Millisecond)

	collector.Start()
	time.Sleep(50 * time.Millisecond)
	collector.Stop()

	if provider.callCount() < 1 {
		t.Error("collector never collected")
	}
}

func TestCollectorMultipleStops(_ *testing.T) {
	collector := NewCollector(nil, "", time.Second)
	collector.Start()
	collector.Stop()
	collector.Stop()
}
