package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show asset counts and index size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.Stats(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			rows := []struct {
				label string
				n     int
			}{
				{"Assets", s.Total},
				{"Images", s.Images},
				{"Videos", s.Videos},
				{"Albums", s.Albums},
				{"Favorites", s.Favorites},
				{"Live pairs", s.LivePairs},
				{"Trash", s.Trash},
			}
			for _, r := range rows {
				fmt.Fprintf(tw, "%s:\t%s\n", r.label, humanize.Comma(int64(r.n)))
			}

			files := database.SideFiles(repo.DBPath())
			labels := make([]string, 0, len(files))
			for label := range files {
				labels = append(labels, label)
			}
			sort.Strings(labels)

			var total int64
			for _, label := range labels {
				info, err := os.Stat(files[label])
				if err != nil {
					continue
				}
				total += info.Size()
				fmt.Fprintf(tw, "Index %s:\t%s\n", label, humanize.Bytes(uint64(info.Size())))
			}
			fmt.Fprintf(tw, "Index total:\t%s\n", humanize.Bytes(uint64(total)))
			fmt.Fprintf(tw, "Index path:\t%s\n", repo.DBPath())
			return tw.Flush()
		},
	}
}
