package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/config"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/report"
	"github.com/lvillar/psyreport/server"
	"github.com/lvillar/psyreport/store"
)

// shutdownTimeout bounds the wait for in-flight requests on exit.
const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	files, err := filestore.NewDisk(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	ai, err := assist.New(ctx, cfg.AI)
	if err != nil {
		return err
	}

	app := server.App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, st),
		Files:        files,
		Reports:      report.NewService(files, cfg.Render.MaxConcurrent, cfg.RenderOptions()...),
		AI:           ai,
		TokenSecret:  cfg.Auth.TokenSecret,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		filestore.RunPurger(gctx, files, cfg.Storage.PurgeInterval, cfg.Storage.TempMaxAge)
		return nil
	})
	g.Go(func() error {
		purgeTokens(gctx, st, cfg.Storage.PurgeInterval)
		return nil
	})
	g.Go(func() error {
		return runServer(gctx, cfg, server.Wire(app))
	})
	return g.Wait()
}

func runServer(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Listening on " + cfg.URL())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// purgeTokens drops expired refresh tokens every interval until ctx is done.
func purgeTokens(ctx context.Context, st *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := st.PurgeTokens(ctx)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("store: purging tokens")
		} else if n > 0 {
			log.Debugf("store: purged %d expired tokens", n)
		}
	}
}
