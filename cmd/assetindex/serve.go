package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/handlers"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/middleware"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/startup"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API over HTTP",
		Long: `Serve listings, viewports, geometry, albums and stats over HTTP, together
with favorites updates, health probes and Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringP("port", "p", "", "HTTP port (default 8080)")
	_ = a.v.BindPFlag(startup.KeyPort, cmd.Flags().Lookup("port"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	startTime := time.Now()
	cfg := a.cfg

	startup.LogConfig(cfg)
	if err := startup.PrepareWorkDir(cfg); err != nil {
		return err
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	openStart := time.Now()
	repo, err := assets.Open(ctx, cfg.LibraryRoot, cfg.RepositoryOptions())
	if err != nil {
		return err
	}
	defer repo.Close()
	startup.LogIndexOpened(repo.DBPath(), time.Since(openStart), repo.LastRecovery())

	collector := metrics.NewCollector(repo, repo.DBPath(), cfg.MetricsInterval)
	collector.SetDBMetricsUpdater(repo)
	collector.Start()
	defer collector.Stop()

	router := setupRouter(repo, cfg)
	startup.LogHTTPRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	startup.LogServerStarted(cfg.Port, time.Since(startTime))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case <-ctx.Done():
		startup.LogShutdownInitiated(ctx.Err().Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Checkpointing index")
	if err := repo.Manager().Checkpoint(shutdownCtx); err != nil {
		logging.Warn("WAL checkpoint failed: %v", err)
	} else {
		startup.LogShutdownStepComplete("Index checkpointed")
	}

	startup.LogShutdownComplete()
	return nil
}

func setupRouter(repo *assets.Repository, cfg *startup.Config) *mux.Router {
	router := handlers.NewRouter(handlers.New(repo, cfg))

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = cfg.LogHealthChecks
	router.Use(
		middleware.Metrics(middleware.DefaultMetricsConfig()),
		middleware.Logger(loggingConfig),
	)
	return router
}
