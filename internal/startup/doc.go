// Package startup handles configuration loading and startup/shutdown
// logging for the asset index commands.
//
// # Configuration
//
// Settings are read through viper in this order of precedence: command
// line flags, ASSET_INDEX_* environment variables (optionally seeded from a
// .env file by [LoadEnvFiles]), a config file named by --config or
// ASSET_INDEX_CONFIG, and finally the defaults registered by [SetDefaults].
//
//   - ASSET_INDEX_LIBRARY: library root; the index lives in <root>/.iPhoto (default: .)
//   - ASSET_INDEX_PORT: HTTP port for serve (default: 8080)
//   - ASSET_INDEX_METRICS_INTERVAL: stats collection interval (default: 1m)
//   - ASSET_INDEX_LOG_LEVEL: debug, info, warn, error (default: info)
//   - ASSET_INDEX_LOG_HEALTH_CHECKS: log /health and /livez requests (default: false)
//   - ASSET_INDEX_BUSY_TIMEOUT: SQLite busy timeout (default: 5s)
//   - ASSET_INDEX_SKIP_INTEGRITY_CHECK: skip quick_check on open (default: false)
//   - ASSET_INDEX_PAGE_SIZE: default listing page size (default: 100)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogConfig]: banner, system information and resolved settings
//   - [LogIndexOpened]: index open timing and any recovery performed
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted], [LogShutdownInitiated], [LogShutdownComplete]
package startup
