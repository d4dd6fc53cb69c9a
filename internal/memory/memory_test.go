package memory

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"testing"
	"time"
)

// restoreLimit resets the process memory limit after a test changes it.
func restoreLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		ratio      float64
		configured bool
		container  int64
		ratioUsed  float64
	}{
		{name: "empty", limit: "", ratio: 0.85},
		{name: "bytes", limit: "1073741824", ratio: 0.5, configured: true, container: 1 << 30, ratioUsed: 0.5},
		{name: "humanized", limit: "2GiB", ratio: 0.75, configured: true, container: 2 << 30, ratioUsed: 0.75},
		{name: "ratio too high", limit: "1GiB", ratio: 1.5, configured: true, container: 1 << 30, ratioUsed: DefaultMemoryRatio},
		{name: "ratio zero", limit: "1GiB", ratio: 0, configured: true, container: 1 << 30, ratioUsed: DefaultMemoryRatio},
		{name: "garbage", limit: "lots", ratio: 0.85},
		{name: "zero bytes", limit: "0", ratio: 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			restoreLimit(t)

			got := Configure(tt.limit, tt.ratio)
			if got.Configured != tt.configured {
				t.Fatalf("Configured = %v, want %v", got.Configured, tt.configured)
			}
			if !tt.configured {
				if got.Source != SourceNone {
					t.Errorf("Source = %q, want %q", got.Source, SourceNone)
				}
				return
			}
			if got.Source != SourceConfig {
				t.Errorf("Source = %q, want %q", got.Source, SourceConfig)
			}
			if got.ContainerLimit != tt.container {
				t.Errorf("ContainerLimit = %d, want %d", got.ContainerLimit, tt.container)
			}
			if got.Ratio != tt.ratioUsed {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.ratioUsed)
			}
			want := int64(float64(tt.container) * tt.ratioUsed)
			if got.GoMemLimit != want {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, want)
			}
			if current := debug.SetMemoryLimit(-1); current != want {
				t.Errorf("runtime limit = %d, want %d", current, want)
			}
		})
	}
}

func TestConfigureGOMEMLIMITWins(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "512MiB")
	debug.SetMemoryLimit(512 << 20)

	got := Configure("4GiB", 0.5)
	if got.Source != SourceGoMemLimit {
		t.Fatalf("Source = %q, want %q", got.Source, SourceGoMemLimit)
	}
	if got.GoMemLimit != 512<<20 {
		t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, 512<<20)
	}
	if got.ContainerLimit != 0 {
		t.Errorf("ContainerLimit = %d, want 0", got.ContainerLimit)
	}
}

func newTestMonitor(limit int64, alloc *atomic.Uint64) *Monitor {
	cfg := DefaultConfig()
	cfg.LimitBytes = limit
	m := NewMonitor(cfg)
	m.readAlloc = alloc.Load
	return m
}

func TestMonitorPauseAndResume(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)
	defer m.Stop()

	alloc.Store(500)
	m.check()
	if m.IsPaused() {
		t.Fatal("paused at 50%")
	}
	if got := m.Usage(); got != 0.5 {
		t.Errorf("Usage() = %v, want 0.5", got)
	}

	alloc.Store(900)
	m.check()
	if !m.IsPaused() {
		t.Fatal("not paused at 90%")
	}

	done := make(chan error, 1)
	go func() { done <- m.WaitIfPaused(context.Background()) }()

	// Between the marks the monitor stays paused.
	alloc.Store(800)
	m.check()
	select {
	case err := <-done:
		t.Fatalf("WaitIfPaused returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	alloc.Store(100)
	m.check()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitIfPaused() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after recovery")
	}
	if m.IsPaused() {
		t.Error("still paused after recovery")
	}
}

func TestMonitorWaitIfPausedCancel(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)
	defer m.Stop()

	alloc.Store(950)
	m.check()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.WaitIfPaused(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitIfPaused() error = %v, want context.Canceled", err)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	alloc.Store(950)
	m.check()
	m.Stop()
	m.Stop()

	if err := m.WaitIfPaused(context.Background()); !errors.Is(err, ErrMonitorStopped) {
		t.Errorf("WaitIfPaused() error = %v, want ErrMonitorStopped", err)
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	restoreLimit(t)
	debug.SetMemoryLimit(1<<63 - 1)

	m := NewMonitor(DefaultConfig())
	defer m.Stop()
	m.Start()

	if m.Limit() != 0 {
		t.Fatalf("Limit() = %d, want 0", m.Limit())
	}
	m.check()
	if m.IsPaused() || m.Usage() != 0 {
		t.Error("monitor without limit should never pause")
	}
	if err := m.WaitIfPaused(context.Background()); err != nil {
		t.Errorf("WaitIfPaused() error = %v", err)
	}
}

func TestMonitorStartSamples(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(990)

	cfg := DefaultConfig()
	cfg.LimitBytes = 1000
	cfg.CheckInterval = 5 * time.Millisecond
	m := NewMonitor(cfg)
	m.readAlloc = alloc.Load
	m.Start()
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for !m.IsPaused() {
		if time.Now().After(deadline) {
			t.Fatal("sampling loop never paused the monitor")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
