package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/startup"
)

const sampleJSONL = `{"rel": "Trips/a.jpg", "dt": "2023-01-04T00:00:00Z"}
{"rel": "Trips/Japan/b.jpg", "dt": "2023-01-03T00:00:00Z"}

# comment lines are skipped
{"rel": "Family/c.mov", "dt": "2023-01-02T00:00:00Z", "mime": "video/quicktime"}
{"rel": "d.jpg", "scanner_note": "kept out of the index"}
`

// run executes the CLI against library with stdin and returns stdout.
func run(t *testing.T, library, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	base := []string{"--library", library, "--env-file", filepath.Join(library, "missing.env"), "-q"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, library, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, library, stdin, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func listedRels(out string) []string {
	var rels []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			rels = append(rels, fields[1])
		}
	}
	return rels
}

func importSample(t *testing.T) string {
	t.Helper()
	library := t.TempDir()
	out := mustRun(t, library, sampleJSONL, "import")
	if !strings.Contains(out, "Imported 4 rows") {
		t.Fatalf("import output = %q", out)
	}
	return library
}

func TestImportAndList(t *testing.T) {
	library := importSample(t)

	got := listedRels(mustRun(t, library, "", "list", "--all", "-n", "2"))
	want := []string{"Trips/a.jpg", "Trips/Japan/b.jpg", "Family/c.mov", "d.jpg"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("list = %v, want %v", got, want)
	}

	merged := listedRels(mustRun(t, library, "", "list", "--merged", "--all", "-n", "1"))
	if strings.Join(merged, ",") != strings.Join(want, ",") {
		t.Errorf("merged list = %v, want %v", merged, want)
	}
}

func TestListScopesAndCounts(t *testing.T) {
	library := importSample(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"list", "--count"}, "4"},
		{[]string{"list", "--count", "--filter", "videos"}, "1"},
		{[]string{"list", "--count", "--album", "Trips"}, "1"},
		{[]string{"list", "--count", "--album", "Trips", "--subalbums"}, "2"},
		{[]string{"list", "--count", "--media-type", "0"}, "3"},
	}
	for _, tt := range tests {
		if got := strings.TrimSpace(mustRun(t, library, "", tt.args...)); got != tt.want {
			t.Errorf("%v = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestListRejectsBadFilter(t *testing.T) {
	library := t.TempDir()
	if _, err := run(t, library, "", "list", "--filter", "bogus"); err == nil {
		t.Error("expected error for invalid filter")
	}
	if _, err := run(t, library, "", "list", "--merged", "--album", "x"); err == nil {
		t.Error("expected error for --merged with --album")
	}
}

func TestImportReplace(t *testing.T) {
	library := importSample(t)

	out := mustRun(t, library, `{"rel": "only.jpg"}`+"\n", "import", "--replace")
	if !strings.Contains(out, "Replaced index with 1 rows") {
		t.Errorf("output = %q", out)
	}
	if got := strings.TrimSpace(mustRun(t, library, "", "list", "--count")); got != "1" {
		t.Errorf("count after replace = %s", got)
	}
}

func TestImportReportsBadLine(t *testing.T) {
	library := t.TempDir()
	_, err := run(t, library, "{\"rel\": \"a.jpg\"}\n{broken\n", "import")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error = %v, want mention of line 2", err)
	}
}

func TestRemove(t *testing.T) {
	library := importSample(t)

	out := mustRun(t, library, "d.jpg\n", "remove", "Trips/a.jpg", "--from", "-")
	if !strings.Contains(out, "Removed 2 rows") {
		t.Errorf("output = %q", out)
	}
	if _, err := run(t, library, "", "remove"); err == nil {
		t.Error("remove without rels should fail")
	}
}

func TestAlbumsAndStats(t *testing.T) {
	library := importSample(t)

	albums := mustRun(t, library, "", "albums")
	for _, want := range []string{"(root)", "Trips/Japan", "Family"} {
		if !strings.Contains(albums, want) {
			t.Errorf("albums output missing %q:\n%s", want, albums)
		}
	}

	stats := mustRun(t, library, "", "stats")
	for _, want := range []string{"Assets:", "Videos:", "Index main:", "Index total:"} {
		if !strings.Contains(stats, want) {
			t.Errorf("stats output missing %q:\n%s", want, stats)
		}
	}
}

func TestCheck(t *testing.T) {
	library := importSample(t)

	if out := mustRun(t, library, "", "check"); !strings.Contains(out, "Index OK") {
		t.Errorf("check output = %q", out)
	}
	out := mustRun(t, library, "", "check", "--repair", "--vacuum")
	if !strings.Contains(out, "Repaired (reindex)") || !strings.Contains(out, "Index compacted") {
		t.Errorf("check --repair output = %q", out)
	}
	if got := strings.TrimSpace(mustRun(t, library, "", "list", "--count")); got != "4" {
		t.Errorf("rows after repair = %s", got)
	}
}

func TestFavoritesCommands(t *testing.T) {
	library := importSample(t)

	out := mustRun(t, library, "Trips/a.jpg\nd.jpg\n", "favorites", "sync")
	if !strings.Contains(out, "2 added, 0 removed") {
		t.Errorf("sync output = %q", out)
	}
	mustRun(t, library, "", "favorites", "set", "d.jpg", "--off")
	if got := strings.TrimSpace(mustRun(t, library, "", "list", "--count", "--filter", "favorites")); got != "1" {
		t.Errorf("favorites count = %s, want 1", got)
	}
	if _, err := run(t, library, "", "favorites", "set", "missing.jpg"); err == nil {
		t.Error("setting an unknown rel should fail")
	}
}

func TestLiveApply(t *testing.T) {
	library := t.TempDir()
	mustRun(t, library, `{"rel": "IMG_1.HEIC", "dt": "2023-01-01T00:00:00Z"}
{"rel": "IMG_1.MOV", "dt": "2023-01-01T00:00:00Z"}
`, "import")

	out := mustRun(t, library, `{"rel": "IMG_1.HEIC", "role": 0, "partner_rel": "IMG_1.MOV"}
{"rel": "IMG_1.MOV", "role": 1, "partner_rel": "IMG_1.HEIC"}
`, "live", "apply")
	if !strings.Contains(out, "Applied 2") {
		t.Errorf("output = %q", out)
	}
	if got := strings.TrimSpace(mustRun(t, library, "", "list", "--count", "--hide-motion")); got != "1" {
		t.Errorf("visible rows = %s, want 1", got)
	}
}

func TestSetupRouterServesHealth(t *testing.T) {
	root := t.TempDir()
	repo, err := assets.Open(context.Background(), root, assets.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	router := setupRouter(repo, &startup.Config{PageSize: 10})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health = %d", rec.Code)
	}
}

func TestFailedCommandLeavesReportingToMain(t *testing.T) {
	library := t.TempDir()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out, &errOut)
	cmd.SetArgs([]string{"--library", library, "--env-file", filepath.Join(library, "missing.env"),
		"-q", "list", "--filter", "bogus"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown filter")
	}
	if strings.Contains(errOut.String(), "Error:") {
		t.Errorf("command printed its own error, main would report it twice: %q", errOut.String())
	}
}
