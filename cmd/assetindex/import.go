package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/memory"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const defaultImportBatch = 500

func newImportCmd(a *app) *cobra.Command {
	var (
		replace   bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Import scanner records from JSON lines",
		Long: `Import one asset record per line. Records are upserted by rel in batches,
each batch in one transaction. With --replace the whole index is replaced by
the file's contents in a single transaction.

FILE defaults to standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			return a.importRecords(cmd.Context(), name, replace, batchSize)
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace the whole index with the imported rows")
	cmd.Flags().IntVar(&batchSize, "batch", defaultImportBatch, "rows per transaction when appending")
	return cmd
}

func (a *app) importRecords(ctx context.Context, name string, replace bool, batchSize int) error {
	if batchSize <= 0 {
		batchSize = defaultImportBatch
	}

	in, err := a.openInput(name)
	if err != nil {
		return err
	}
	defer in.Close()

	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	mon := memory.NewMonitor(memory.DefaultConfig())
	mon.Start()
	defer mon.Stop()

	start := time.Now()
	bar := a.newProgress("Importing", "rows")

	var (
		batch    []assets.Asset
		imported int
	)
	flush := func() error {
		if len(batch) == 0 || replace {
			return nil
		}
		if err := mon.WaitIfPaused(ctx); err != nil {
			return err
		}
		if err := repo.AppendRows(ctx, batch); err != nil {
			return err
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	err = eachLine(in, func(lineNo int, line string) error {
		var row assets.Asset
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(row.Extra) > 0 {
			logging.Debug("line %d: %d unknown fields kept out of the index", lineNo, len(row.Extra))
		}
		batch = append(batch, row)
		if bar != nil {
			_ = bar.Add(1)
		}
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err == nil && replace {
		err = repo.WriteRows(ctx, batch)
		imported = len(batch)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("import failed after %d rows: %w", imported, err)
	}

	verb := "Imported"
	if replace {
		verb = "Replaced index with"
	}
	fmt.Fprintf(a.out, "%s %s rows in %v\n", verb, humanize.Comma(int64(imported)), time.Since(start).Round(time.Millisecond))
	return nil
}

func newRemoveCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "remove [REL...]",
		Short: "Remove rows by rel",
		Long: `Remove the rows with the given library-relative paths. With --from, rels
are also read one per line from a file, or standard input for "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rels := append([]string(nil), args...)
			if from != "" {
				in, err := a.openInput(from)
				if err != nil {
					return err
				}
				defer in.Close()
				if err := eachLine(in, func(_ int, line string) error {
					rels = append(rels, line)
					return nil
				}); err != nil {
					return err
				}
			}
			if len(rels) == 0 {
				return fmt.Errorf("no rels given")
			}

			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := repo.RemoveRows(cmd.Context(), rels)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s rows\n", humanize.Comma(n))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "read rels from FILE, one per line")
	return cmd
}
