package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newAlbumsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "albums",
		Short: "List albums with their asset counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			albums, err := repo.ListAlbums(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ALBUM\tASSETS\tLATEST")
			for _, album := range albums {
				name := album.Path
				if name == "" {
					name = "(root)"
				}
				latest := "-"
				if album.Latest != nil {
					latest = *album.Latest
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, humanize.Comma(int64(album.Count)), latest)
			}
			return tw.Flush()
		},
	}
}
