package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/merge"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type listOptions struct {
	limit  int
	cursor string
	merged bool
	all    bool
	count  bool
	asJSON bool
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets newest first",
		Long: `List one page of assets in (dt, id) descending order, undated assets last.

Pass the printed cursor back with --cursor to continue. --merged reads the
whole library by merging one listing per album, the way the all-photos view
does; --all keeps reading until the listing is exhausted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := pageRequest(cmd)
			if err != nil {
				return err
			}
			if opts.limit <= 0 {
				opts.limit = a.cfg.PageSize
			}
			req.Limit = opts.limit

			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			switch {
			case opts.count:
				return a.printCount(cmd.Context(), repo, req)
			case opts.merged:
				return a.listMerged(cmd.Context(), repo, req, opts)
			default:
				return a.listPages(cmd.Context(), repo, req, opts)
			}
		},
	}
	addFilterFlags(cmd)
	f := cmd.Flags()
	f.IntVarP(&opts.limit, "limit", "n", 0, "page size (default from configuration)")
	f.StringVar(&opts.cursor, "cursor", "", "continue after this cursor")
	f.BoolVar(&opts.merged, "merged", false, "merge per-album listings")
	f.BoolVar(&opts.all, "all", false, "read every page")
	f.BoolVar(&opts.count, "count", false, "print only the number of matching assets")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON lines")
	return cmd
}

func (a *app) printAssets(items []assets.Asset, asJSON bool) error {
	enc := json.NewEncoder(a.out)
	for _, item := range items {
		if asJSON {
			if err := enc.Encode(item); err != nil {
				return err
			}
			continue
		}
		dt := "-"
		if item.DT != nil {
			dt = *item.DT
		}
		fmt.Fprintf(a.out, "%-25s  %s\n", dt, item.Rel)
	}
	return nil
}

func (a *app) listPages(ctx context.Context, repo *assets.Repository, req assets.PageRequest, opts listOptions) error {
	token := opts.cursor
	for {
		page, err := repo.FetchByCursor(ctx, token, req)
		if err != nil {
			return err
		}
		if err := a.printAssets(page.Items, opts.asJSON); err != nil {
			return err
		}
		if !page.HasMore {
			return nil
		}
		if !opts.all {
			fmt.Fprintf(a.errOut, "next cursor: %s\n", page.NextCursor)
			return nil
		}
		token = page.NextCursor
	}
}

func (a *app) listMerged(ctx context.Context, repo *assets.Repository, req assets.PageRequest, opts listOptions) error {
	if opts.cursor != "" {
		return fmt.Errorf("--cursor cannot be combined with --merged")
	}
	if req.AlbumPath != nil {
		return fmt.Errorf("--album cannot be combined with --merged")
	}

	provider, err := merge.NewAllPhotosProvider(ctx, repo, nil, req.Limit, req.FilterHidden, req.Filter)
	if err != nil {
		return err
	}

	for {
		items, err := provider.FetchPage(ctx, req.Limit)
		if err != nil {
			return err
		}
		if err := a.printAssets(items, opts.asJSON); err != nil {
			return err
		}
		more, err := provider.HasMore(ctx)
		if err != nil {
			return err
		}
		if !more || !opts.all {
			return nil
		}
	}
}

func (a *app) printCount(ctx context.Context, repo *assets.Repository, req assets.PageRequest) error {
	var (
		n   int
		err error
	)
	if req.AlbumPath != nil {
		n, err = repo.CountAlbumAssets(ctx, *req.AlbumPath, req.IncludeSubalbums, req.FilterHidden, req.Filter)
	} else {
		n, err = repo.Count(ctx, req.FilterHidden, req.Filter)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, humanize.Comma(int64(n)))
	return nil
}
