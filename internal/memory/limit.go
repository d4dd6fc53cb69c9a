package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strings"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"

	"github.com/dustin/go-humanize"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest covers SQLite's page cache, cgo and goroutine stacks.
const DefaultMemoryRatio = 0.85

// Sources reported in LimitResult.
const (
	SourceNone       = "none"
	SourceGoMemLimit = "GOMEMLIMIT"
	SourceConfig     = "memory_limit"
)

// LimitResult describes what Configure did.
type LimitResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// Configure sets the Go soft memory limit from a container limit.
//
// limit accepts humanized sizes ("2GiB", "512 MB") or a plain byte count,
// which is what the Kubernetes Downward API provides. ratio outside (0, 1]
// falls back to DefaultMemoryRatio. A GOMEMLIMIT environment variable takes
// precedence and is only reported.
func Configure(limit string, ratio float64) LimitResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := LimitResult{Source: SourceGoMemLimit}
		if current := debug.SetMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = current
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	limit = strings.TrimSpace(limit)
	if limit == "" {
		logging.Debug("No memory limit configured, GOMEMLIMIT left unset")
		return LimitResult{Source: SourceNone}
	}

	parsed, err := humanize.ParseBytes(limit)
	if err != nil || parsed == 0 || parsed > math.MaxInt64 {
		logging.Warn("Ignoring invalid memory limit %q: %v", limit, err)
		return LimitResult{Source: SourceNone}
	}
	containerLimit := int64(parsed)

	if ratio <= 0 || ratio > 1 {
		logging.Warn("Memory ratio %.2f out of range (0.0-1.0), using default %.2f", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		humanize.IBytes(uint64(goMemLimit)),
		ratio*100,
		humanize.IBytes(uint64(containerLimit)),
	)

	return LimitResult{
		Configured:     true,
		Source:         SourceConfig,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}
