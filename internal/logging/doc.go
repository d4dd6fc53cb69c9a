// Package logging provides a simple leveled logging interface for the
// asset index.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (SQL text, cursor positions)
//   - INFO: General operational messages
//   - WARN: Degraded but recoverable conditions (pragma failures, skipped rows)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is read from DEBUG, ASSET_INDEX_LOG_LEVEL or LOG_LEVEL on first
// use and can be overridden with SetLevel.
package logging
