package assets

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/text/unicode/norm"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/query"
)

func favoriteRels(t *testing.T, repo *Repository) map[string]bool {
	t.Helper()
	items, err := repo.ReadAll(context.Background(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]bool{}
	for _, a := range items {
		if a.IsFavorite {
			out[a.Rel] = true
		}
	}
	return out
}

func TestSyncFavorites(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	err := repo.AppendRows(ctx, []Asset{
		{Rel: "a.jpg", IsFavorite: true},
		{Rel: "b.jpg", IsFavorite: true},
		{Rel: "c.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := repo.SyncFavorites(ctx, []string{"b.jpg", "c.jpg", "not-indexed.jpg"})
	if err != nil {
		t.Fatalf("SyncFavorites() error = %v", err)
	}
	if res.Added != 1 || res.Removed != 1 {
		t.Errorf("SyncFavorites() = %+v, want added 1 removed 1", res)
	}

	favs := favoriteRels(t, repo)
	if len(favs) != 2 || !favs["b.jpg"] || !favs["c.jpg"] {
		t.Errorf("favorites = %v, want b.jpg and c.jpg", favs)
	}

	res, err = repo.SyncFavorites(ctx, []string{"b.jpg", "c.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Removed != 0 {
		t.Errorf("second sync changed rows: %+v", res)
	}
}

func TestSyncFavoritesUnicodeNormalization(t *testing.T) {
	name := "Café/crème brûlée.jpg"
	nfc := norm.NFC.String(name)
	nfd := norm.NFD.String(name)
	if nfc == nfd {
		t.Fatal("test paths must differ byte-wise")
	}

	tests := []struct {
		name   string
		stored string
		synced string
	}{
		{"stored NFD synced NFC", nfd, nfc},
		{"stored NFC synced NFD", nfc, nfd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := setupTestRepo(t)
			ctx := context.Background()

			if err := repo.AppendRows(ctx, []Asset{{Rel: tt.stored}}); err != nil {
				t.Fatal(err)
			}
			if _, err := repo.SyncFavorites(ctx, []string{tt.synced}); err != nil {
				t.Fatal(err)
			}

			a, err := repo.GetByRel(ctx, tt.stored)
			if err != nil {
				t.Fatal(err)
			}
			if !a.IsFavorite {
				t.Error("canonically equal path was not favorited")
			}
			if a.Rel != tt.stored {
				t.Errorf("stored rel rewritten to %q", a.Rel)
			}

			// Syncing again with the same form must not unfavorite it.
			res, err := repo.SyncFavorites(ctx, []string{tt.synced})
			if err != nil {
				t.Fatal(err)
			}
			if res.Removed != 0 {
				t.Errorf("re-sync removed %d favorites", res.Removed)
			}
		})
	}
}

func TestSetFavoriteStatus(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	stored := norm.NFD.String("Été/plage.jpg")
	if err := repo.AppendRows(ctx, []Asset{{Rel: "a.jpg"}, {Rel: stored}}); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetFavoriteStatus(ctx, "a.jpg", true); err != nil {
		t.Fatalf("SetFavoriteStatus() error = %v", err)
	}
	if err := repo.SetFavoriteStatus(ctx, norm.NFC.String(stored), true); err != nil {
		t.Fatalf("SetFavoriteStatus() by canonical path error = %v", err)
	}

	n, err := repo.Count(ctx, false, query.FilterParams{FilterMode: query.FilterFavorites})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("favorites = %d, want 2", n)
	}

	if err := repo.SetFavoriteStatus(ctx, "a.jpg", false); err != nil {
		t.Fatal(err)
	}
	if favs := favoriteRels(t, repo); favs["a.jpg"] {
		t.Error("a.jpg still favorite after unset")
	}

	if err := repo.SetFavoriteStatus(ctx, "missing.jpg", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetFavoriteStatus() on missing row = %v, want ErrNotFound", err)
	}
}
