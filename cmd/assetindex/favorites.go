package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite flags",
	}

	sync := &cobra.Command{
		Use:   "sync [FILE]",
		Short: "Make the favorites set match a list of rels",
		Long: `Read the complete favorites set, one rel per line, and flag exactly those
rows. Paths that differ only in Unicode normalization still match.

FILE defaults to standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			in, err := a.openInput(name)
			if err != nil {
				return err
			}
			defer in.Close()

			rels := []string{}
			if err := eachLine(in, func(_ int, line string) error {
				rels = append(rels, line)
				return nil
			}); err != nil {
				return err
			}

			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			result, err := repo.SyncFavorites(cmd.Context(), rels)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Favorites synced: %d added, %d removed\n", result.Added, result.Removed)
			return nil
		},
	}

	var off bool
	set := &cobra.Command{
		Use:   "set REL",
		Short: "Flag one row as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.SetFavoriteStatus(cmd.Context(), args[0], !off); err != nil {
				return err
			}
			state := "favorite"
			if off {
				state = "not favorite"
			}
			fmt.Fprintf(a.out, "%s: %s\n", args[0], state)
			return nil
		},
	}
	set.Flags().BoolVar(&off, "off", false, "clear the flag instead")

	cmd.AddCommand(sync, set)
	return cmd
}
