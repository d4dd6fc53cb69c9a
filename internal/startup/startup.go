package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/memory"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "ASSET_INDEX"

// Configuration keys. Each maps to ASSET_INDEX_<KEY> in the environment.
const (
	KeyConfigFile         = "config"
	KeyLibrary            = "library"
	KeyPort               = "port"
	KeyMetricsInterval    = "metrics_interval"
	KeyLogLevel           = "log_level"
	KeyLogHealthChecks    = "log_health_checks"
	KeyBusyTimeout        = "busy_timeout"
	KeySkipIntegrityCheck = "skip_integrity_check"
	KeyPageSize           = "page_size"
	KeyMemoryLimit        = "memory_limit"
	KeyMemoryRatio        = "memory_ratio"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	LibraryRoot        string
	Port               string
	MetricsInterval    time.Duration
	LogLevel           string
	LogHealthChecks    bool
	BusyTimeout        time.Duration
	SkipIntegrityCheck bool
	PageSize           int

	// MemoryLimit is the container memory limit ("2GiB", "512MB" or bytes).
	// Empty leaves GOMEMLIMIT alone.
	MemoryLimit string
	MemoryRatio float64

	// Derived
	IndexPath  string
	ConfigFile string
}

// RepositoryOptions translates the configuration into options for assets.Open.
func (c *Config) RepositoryOptions() assets.Options {
	opts := assets.Options{
		Database:           database.DefaultOptions(),
		SkipIntegrityCheck: c.SkipIntegrityCheck,
	}
	if c.BusyTimeout > 0 {
		opts.Database.BusyTimeout = c.BusyTimeout
	}
	return opts
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLibrary, ".")
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyMetricsInterval, time.Minute)
	v.SetDefault(KeyLogHealthChecks, false)
	v.SetDefault(KeyBusyTimeout, database.DefaultOptions().BusyTimeout)
	v.SetDefault(KeySkipIntegrityCheck, false)
	v.SetDefault(KeyPageSize, assets.DefaultPageSize)
	v.SetDefault(KeyMemoryRatio, memory.DefaultMemoryRatio)
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are ignored; variables already set win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		logging.Debug("Loaded environment from %s", p)
	}
	return nil
}

// LoadConfig reads an optional config file, then resolves and validates
// the settings held by v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		LibraryRoot:        v.GetString(KeyLibrary),
		Port:               v.GetString(KeyPort),
		MetricsInterval:    v.GetDuration(KeyMetricsInterval),
		LogLevel:           v.GetString(KeyLogLevel),
		LogHealthChecks:    v.GetBool(KeyLogHealthChecks),
		BusyTimeout:        v.GetDuration(KeyBusyTimeout),
		SkipIntegrityCheck: v.GetBool(KeySkipIntegrityCheck),
		PageSize:           v.GetInt(KeyPageSize),
		MemoryLimit:        v.GetString(KeyMemoryLimit),
		MemoryRatio:        v.GetFloat64(KeyMemoryRatio),
		ConfigFile:         v.ConfigFileUsed(),
	}

	if cfg.LibraryRoot == "" {
		return nil, fmt.Errorf("%s_LIBRARY is required", EnvPrefix)
	}
	root, err := filepath.Abs(cfg.LibraryRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}
	cfg.LibraryRoot = root
	cfg.IndexPath = assets.IndexPath(root)

	if cfg.PageSize <= 0 {
		logging.Warn("Invalid %s_PAGE_SIZE %d, using default: %d", EnvPrefix, cfg.PageSize, assets.DefaultPageSize)
		cfg.PageSize = assets.DefaultPageSize
	}
	if cfg.MetricsInterval <= 0 {
		logging.Warn("Invalid %s_METRICS_INTERVAL, using default: 1m", EnvPrefix)
		cfg.MetricsInterval = time.Minute
	}

	if cfg.MemoryRatio <= 0 || cfg.MemoryRatio > 1 {
		logging.Warn("%s_MEMORY_RATIO %.2f out of range (0.0-1.0), using default %.2f",
			EnvPrefix, cfg.MemoryRatio, memory.DefaultMemoryRatio)
		cfg.MemoryRatio = memory.DefaultMemoryRatio
	}

	if err := ensureDirectory(cfg.LibraryRoot, "library"); err != nil {
		return nil, fmt.Errorf("library directory error: %w", err)
	}

	return cfg, nil
}

// PrepareWorkDir makes sure the index directory exists and is writable.
func PrepareWorkDir(cfg *Config) error {
	dir := filepath.Dir(cfg.IndexPath)
	if err := ensureDirectory(dir, "index"); err != nil {
		return err
	}
	logging.Debug("  Testing index directory write access...")
	if err := testWriteAccess(dir); err != nil {
		return fmt.Errorf("index directory is not writable: %w", err)
	}
	logging.Info("  [OK] Index directory is writable")
	return nil
}

// LogConfig prints the banner, system information and resolved settings.
func LogConfig(cfg *Config) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if cfg.ConfigFile != "" {
		logging.Info("  Config file:          %s", cfg.ConfigFile)
	}
	logging.Info("  LIBRARY:              %s", cfg.LibraryRoot)
	logging.Info("  INDEX:                %s", cfg.IndexPath)
	logging.Info("  PORT:                 %s", cfg.Port)
	logging.Info("  METRICS_INTERVAL:     %s", cfg.MetricsInterval)
	logging.Info("  BUSY_TIMEOUT:         %s", cfg.BusyTimeout)
	logging.Info("  SKIP_INTEGRITY_CHECK: %v", cfg.SkipIntegrityCheck)
	logging.Info("  PAGE_SIZE:            %d", cfg.PageSize)
	logging.Info("  LOG_HEALTH_CHECKS:    %v", cfg.LogHealthChecks)
	if cfg.MemoryLimit != "" {
		logging.Info("  MEMORY_LIMIT:         %s (ratio %.2f)", cfg.MemoryLimit, cfg.MemoryRatio)
	}
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
	logging.Info("")
}

// LogIndexOpened logs index initialization, including any recovery that
// ran while opening.
func LogIndexOpened(path string, duration time.Duration, report *database.RecoveryReport) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INDEX INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Index file: %s", path)
	if report != nil {
		logging.Warn("  Index was repaired (%s): %d rows salvaged, %d skipped",
			report.Stage, report.Salvaged, report.Skipped)
	}
	logging.Info("  [OK] Index opened in %v", duration)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level, grouped by
// their first path segments.
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		prefix := getRouteGroup(route.Path)
		groups[prefix] = append(groups[prefix], route)
	}
	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	for _, group := range groupKeys {
		label := group
		if label == "" {
			label = "root"
		}
		logging.Debug("  [%s]", label)
		for _, route := range groups[group] {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		sub := strings.SplitN(parts[1], "/", 2)
		return "api/" + sub[0]
	}
	return first
}

// LogServerStarted logs successful server start
func LogServerStarted(port string, startup time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startup)
	logging.Info("  Application:     http://localhost:%s", port)
	logging.Info("  Metrics:         http://localhost:%s/metrics", port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
     _                 _     ___           _
    / \   ___ ___  ___| |_  |_ _|_ __   __| | _____  __
   / _ \ / __/ __|/ _ \ __|  | || '_ \ / _' |/ _ \ \/ /
  / ___ \\__ \__ \  __/ |_   | || | | | (_| |  __/>  <
 /_/   \_\___/___/\___|\__| |___|_| |_|\__,_|\___/_/\_\

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory: %s", path)
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
