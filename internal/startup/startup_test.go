package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/memory"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	root := t.TempDir()
	v := NewViper()
	v.Set(KeyLibrary, root)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LibraryRoot != root {
		t.Errorf("LibraryRoot = %q, want %q", cfg.LibraryRoot, root)
	}
	if cfg.IndexPath != assets.IndexPath(root) {
		t.Errorf("IndexPath = %q", cfg.IndexPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.PageSize != assets.DefaultPageSize {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if cfg.MetricsInterval != time.Minute {
		t.Errorf("MetricsInterval = %v", cfg.MetricsInterval)
	}
	if cfg.MemoryLimit != "" || cfg.MemoryRatio != memory.DefaultMemoryRatio {
		t.Errorf("memory = %q/%v, want unset/%v", cfg.MemoryLimit, cfg.MemoryRatio, memory.DefaultMemoryRatio)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ASSET_INDEX_LIBRARY", root)
	t.Setenv("ASSET_INDEX_PORT", "9999")
	t.Setenv("ASSET_INDEX_BUSY_TIMEOUT", "250ms")
	t.Setenv("ASSET_INDEX_SKIP_INTEGRITY_CHECK", "true")
	t.Setenv("ASSET_INDEX_PAGE_SIZE", "-3")
	t.Setenv("ASSET_INDEX_MEMORY_LIMIT", "2GiB")
	t.Setenv("ASSET_INDEX_MEMORY_RATIO", "7")

	cfg, err := LoadConfig(NewViper())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.BusyTimeout != 250*time.Millisecond {
		t.Errorf("BusyTimeout = %v", cfg.BusyTimeout)
	}
	if !cfg.SkipIntegrityCheck {
		t.Error("SkipIntegrityCheck should be true")
	}
	if cfg.PageSize != assets.DefaultPageSize {
		t.Errorf("invalid page size should fall back, got %d", cfg.PageSize)
	}
	if cfg.MemoryLimit != "2GiB" {
		t.Errorf("MemoryLimit = %q", cfg.MemoryLimit)
	}
	if cfg.MemoryRatio != memory.DefaultMemoryRatio {
		t.Errorf("out of range ratio should fall back, got %v", cfg.MemoryRatio)
	}

	opts := cfg.RepositoryOptions()
	if opts.Database.BusyTimeout != 250*time.Millisecond || !opts.SkipIntegrityCheck {
		t.Errorf("RepositoryOptions() = %+v", opts)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	library := filepath.Join(dir, "photos")
	file := filepath.Join(dir, "assetindex.yaml")
	content := "library: " + library + "\nport: \"7000\"\npage_size: 25\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewViper()
	v.Set(KeyConfigFile, file)
	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LibraryRoot != library || cfg.Port != "7000" || cfg.PageSize != 25 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.ConfigFile != file {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if info, err := os.Stat(library); err != nil || !info.IsDir() {
		t.Error("library directory should be created")
	}
}

func TestLoadConfigRejectsFileAsLibrary(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	v := NewViper()
	v.Set(KeyLibrary, file)
	if _, err := LoadConfig(v); err == nil {
		t.Error("expected error for a library path that is a file")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("ASSET_INDEX_TEST_ONLY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ASSET_INDEX_TEST_ONLY") })

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if got := os.Getenv("ASSET_INDEX_TEST_ONLY"); got != "from-file" {
		t.Errorf("env = %q, want from-file", got)
	}
}

func TestPrepareWorkDir(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{LibraryRoot: root, IndexPath: assets.IndexPath(root)}
	if err := PrepareWorkDir(cfg); err != nil {
		t.Fatalf("PrepareWorkDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, assets.WorkDirName)); err != nil {
		t.Errorf("work dir not created: %v", err)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/assets", "api/assets"},
		{"/api/favorites/{rel:.*}", "api/favorites"},
		{"/health", "health"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/health", nil).Methods("GET", "HEAD")
	r.HandleFunc("/api/assets", nil).Methods("GET").Name("assets")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 3 {
		t.Fatalf("got %d routes, want 3", len(routes))
	}
	if routes[2].Name != "assets" || routes[2].Path != "/api/assets" {
		t.Errorf("route = %+v", routes[2])
	}
}
