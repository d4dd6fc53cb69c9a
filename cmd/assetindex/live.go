package main

import (
	"encoding/json"
	"fmt"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"

	"github.com/spf13/cobra"
)

func newLiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Manage Live Photo pairings",
	}

	apply := &cobra.Command{
		Use:   "apply [FILE]",
		Short: "Replace all Live Photo pairings",
		Long: `Read pairings as JSON lines of {"rel", "role", "partner_rel"} and make them
the complete set: every row not listed is reset to an unpaired still.
Role 0 is the still, role 1 the motion component.

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

			var updates []assets.LiveRoleUpdate
			if err := eachLine(in, func(lineNo int, line string) error {
				var u assets.LiveRoleUpdate
				if err := json.Unmarshal([]byte(line), &u); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
				updates = append(updates, u)
				return nil
			}); err != nil {
				return err
			}

			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.ApplyLiveRoleUpdates(cmd.Context(), updates); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Applied %d live role updates\n", len(updates))
			return nil
		},
	}

	cmd.AddCommand(apply)
	return cmd
}
