package assets

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
)

func seedAndClose(t *testing.T, root string, rows []Asset) {
	t.Helper()

	repo, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendRows(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}
}

func overwrite(t *testing.T, path string, offset int64, data []byte) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteAt(data, offset); err != nil {
		t.Fatal(err)
	}
}

func TestOpenRecoversFromDamagedHeader(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file corruption test in short mode")
	}

	root := t.TempDir()
	seedAndClose(t, root, []Asset{{Rel: "a.jpg"}, {Rel: "b.jpg"}})
	overwrite(t, IndexPath(root), 0, bytes.Repeat([]byte("X"), 100))

	repo, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Open() of damaged index error = %v", err)
	}
	defer func() { _ = repo.Close() }()

	report := repo.LastRecovery()
	if report == nil || report.Stage != database.StageReset {
		t.Fatalf("LastRecovery() = %+v, want reset", report)
	}

	// The rebuilt index is usable.
	if err := repo.AppendRows(context.Background(), []Asset{{Rel: "c.jpg"}}); err != nil {
		t.Fatalf("AppendRows() after recovery error = %v", err)
	}
	if n := mustCount(t, repo); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestOpenRecoveryKeepsSalvageableRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file corruption test in short mode")
	}

	root := t.TempDir()
	seedAndClose(t, root, []Asset{
		{Rel: "2023/a.jpg", DT: sp("2023-01-01T00:00:00Z")},
		{Rel: "2023/b.jpg", DT: sp("2023-01-02T00:00:00Z")},
	})

	// Damage one index b-tree page; the table pages stay intact.
	m, err := database.Open(context.Background(), IndexPath(root), database.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var rootPage, pageSize int64
	if err := m.DB().Get(&rootPage, "SELECT rootpage FROM sqlite_master WHERE name = 'idx_assets_album'"); err != nil {
		t.Fatal(err)
	}
	if err := m.DB().Get(&pageSize, "PRAGMA page_size"); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	overwrite(t, IndexPath(root), (rootPage-1)*pageSize, bytes.Repeat([]byte{0xFF}, int(pageSize)))

	repo, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Open() of damaged index error = %v", err)
	}
	defer func() { _ = repo.Close() }()

	if repo.LastRecovery() == nil {
		t.Error("expected a recovery report")
	}

	items, err := repo.ReadAll(context.Background(), true, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := rels(items); len(got) != 2 || got[0] != "2023/b.jpg" || got[1] != "2023/a.jpg" {
		t.Errorf("rows after recovery = %v, want both", got)
	}
}
