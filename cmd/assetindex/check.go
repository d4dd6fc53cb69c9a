package main

import (
	"fmt"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var repair, vacuum bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the index and repair it if damaged",
		Long: `Run an integrity check on the index. A damaged index is rebuilt: indexes
are recreated when possible, otherwise readable rows are copied into a fresh
file. --repair runs the rebuild even when the check passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if report := repo.LastRecovery(); report != nil {
				printRecovery(a, "Repaired while opening", report)
			}

			checkErr := repo.Check(ctx)
			switch {
			case checkErr == nil && !repair:
				fmt.Fprintln(a.out, "Index OK")
			case checkErr != nil && !database.IsCorruption(checkErr):
				return checkErr
			default:
				if checkErr != nil {
					fmt.Fprintf(a.out, "Index damaged: %v\n", checkErr)
				}
				report, err := repo.Repair(ctx)
				if err != nil {
					return fmt.Errorf("repair failed: %w", err)
				}
				printRecovery(a, "Repaired", report)
			}

			if vacuum {
				if err := repo.Manager().Vacuum(ctx); err != nil {
					return fmt.Errorf("vacuum failed: %w", err)
				}
				fmt.Fprintln(a.out, "Index compacted")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "rebuild the index even if it looks healthy")
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "compact the index afterwards")
	return cmd
}

func printRecovery(a *app, prefix string, report *database.RecoveryReport) {
	fmt.Fprintf(a.out, "%s (%s): %d rows salvaged, %d skipped in %v\n",
		prefix, report.Stage, report.Salvaged, report.Skipped, report.Duration.Round(1e6))
}
