package main

import (
	"io"
	"os"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/memory"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/startup"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every subcommand shares: the resolved configuration
// and the streams it reads and writes.
type app struct {
	v      *viper.Viper
	cfg    *startup.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{v: startup.NewViper(), in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "assetindex",
		Short: "Maintain and query a photo library's asset index",
		Long: `assetindex manages the SQLite index kept in <library>/.iPhoto/global_index.db.

Scanner output is imported as JSON lines, listings are read newest first
with opaque cursors, and the serve command exposes the same reads over HTTP.
A damaged index is repaired automatically when it is opened.`,
		Version:           startup.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (YAML, TOML or JSON)")
	pf.StringP("library", "l", "", "library root (default is the current directory)")
	pf.String("env-file", ".env", "environment file loaded before configuration")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.BoolP("quiet", "q", false, "quiet output (errors only)")

	_ = a.v.BindPFlag(startup.KeyConfigFile, pf.Lookup("config"))
	_ = a.v.BindPFlag(startup.KeyLibrary, pf.Lookup("library"))

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newRemoveCmd(a),
		newListCmd(a),
		newAlbumsCmd(a),
		newStatsCmd(a),
		newCheckCmd(a),
		newFavoritesCmd(a),
		newLiveCmd(a),
	)
	return root
}

// init runs before every subcommand: environment files first, then
// configuration, then the log level.
func (a *app) init(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := startup.LoadEnvFiles(envFile); err != nil {
		return err
	}

	cfg, err := startup.LoadConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	verbose, _ := cmd.Flags().GetBool("verbose")
	a.quiet, _ = cmd.Flags().GetBool("quiet")
	switch {
	case verbose:
		logging.SetLevel(logging.LevelDebug)
	case a.quiet:
		logging.SetLevel(logging.LevelError)
	case cfg.LogLevel != "":
		logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}

	memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)
	return nil
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		startup.LogFatal("%v", err)
	}
}
