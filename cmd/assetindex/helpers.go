package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// maxLineBytes bounds one JSON line; micro thumbnails make rows large.
const maxLineBytes = 64 << 20

// openRepository opens the configured library's index, logging any repair
// that happened on the way.
func (a *app) openRepository(ctx context.Context) (*assets.Repository, error) {
	start := time.Now()
	repo, err := assets.Open(ctx, a.cfg.LibraryRoot, a.cfg.RepositoryOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if report := repo.LastRecovery(); report != nil {
		logging.Warn("Index was repaired (%s): %d rows salvaged, %d skipped",
			report.Stage, report.Salvaged, report.Skipped)
	}
	logging.Debug("Opened %s in %v", repo.DBPath(), time.Since(start))
	return repo, nil
}

// openInput returns the named file, or the command's stdin for "-".
func (a *app) openInput(name string) (io.ReadCloser, error) {
	if name == "-" || name == "" {
		return io.NopCloser(a.in), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// eachLine calls fn for every non-blank line of r that is not a # comment.
// lineNo counts from 1.
func eachLine(r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newProgress returns a spinner-style counter on errOut, or nil when
// output is not interactive or quiet was requested.
func (a *app) newProgress(description, unit string) *progressbar.ProgressBar {
	if a.quiet || !isTerminal(a.errOut) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(a.errOut),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// addFilterFlags registers the listing filter flags on cmd.
func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("album", "", "album path; the root album is \"\"")
	f.Bool("subalbums", false, "include nested albums")
	f.String("filter", "", "videos, live or favorites")
	f.Int("media-type", -1, "0 for images, 1 for videos")
	f.Bool("hide-motion", false, "hide the motion component of Live Photos")
}

// pageRequest builds a listing request from the filter flags.
func pageRequest(cmd *cobra.Command) (assets.PageRequest, error) {
	f := cmd.Flags()
	var req assets.PageRequest

	if f.Changed("album") {
		album, _ := f.GetString("album")
		req.AlbumPath = &album
	}
	req.IncludeSubalbums, _ = f.GetBool("subalbums")
	req.FilterHidden, _ = f.GetBool("hide-motion")
	req.Filter.FilterMode, _ = f.GetString("filter")
	if mt, _ := f.GetInt("media-type"); mt >= 0 {
		req.Filter.MediaType = &mt
	}
	return req, req.Filter.Validate()
}
