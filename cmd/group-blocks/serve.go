package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joestump/group-blocks/internal/auth"
	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/build"
	"github.com/joestump/group-blocks/internal/config"
	"github.com/joestump/group-blocks/internal/db"
	"github.com/joestump/group-blocks/internal/groupview"
	"github.com/joestump/group-blocks/internal/handler"
	"github.com/joestump/group-blocks/internal/i18n"
	"github.com/joestump/group-blocks/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireOIDC(); err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			catalog, err := i18n.LoadEmbedded(cfg.DefaultLocale)
			if err != nil {
				return err
			}
			if err := catalog.Register(); err != nil {
				return err
			}

			// Site settings are read per request, so the registry carries none.
			registry, err := block.NewRegistry(cfg.Blocks, nil, block.DefaultRoutes())
			if err != nil {
				return err
			}

			userStore := store.NewUserStore(database)
			groupStore := store.NewGroupStore(database)
			contentStore := store.NewContentStore(database)
			settingsStore := store.NewSettingsStore(database)

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, cfg.SessionLifetime, !cfg.InsecureCookies)
			oidcProvider, err := auth.NewProvider(ctx, cfg)
			if err != nil {
				return err
			}

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				AuthHandlers:   auth.NewHandlers(oidcProvider, sessionManager, userStore, cfg.AdminEmail, !cfg.InsecureCookies, logger),
				AuthMiddleware: auth.NewMiddleware(sessionManager, userStore, logger),
				GroupView:      groupview.NewService(registry, groupStore, settingsStore, logger),
				GroupStore:     groupStore,
				ContentStore:   contentStore,
				SettingsStore:  settingsStore,
				Catalog:        catalog,
				Logger:         logger,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening",
					zap.String("addr", cfg.HTTP.Addr),
					zap.String("version", build.Version),
					zap.Int("blocks", len(registry.List())))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
