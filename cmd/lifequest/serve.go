package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/push"
	"github.com/dukerupert/lifequest/internal/server"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/dukerupert/lifequest/internal/tracker"
	ws "github.com/dukerupert/lifequest/internal/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		stores := store.New(db)
		hub := ws.NewHub(logger.With("component", "websocket"))
		svc := tracker.New(stores, logger.With("component", "tracker"),
			tracker.WithNotifier(hub),
			tracker.WithLocation(cfg.Location),
		)
		issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

		var opts []server.Option
		var pushSvc *push.Service
		pushCfg := push.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
		}
		if pushCfg.Enabled() {
			pushSvc = push.NewService(pushCfg)
			opts = append(opts, server.WithPush(pushSvc))
		} else {
			logger.Info("push notifications disabled: VAPID keys not configured")
		}

		oidcCfg := auth.OIDCConfig{
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
		}
		if oidcCfg.Enabled() {
			discoverCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			sso, err := auth.NewSSO(discoverCtx, oidcCfg)
			cancel()
			if err != nil {
				return err
			}
			opts = append(opts, server.WithSSO(sso))
			logger.Info("single sign-on enabled", "issuer", oidcCfg.Issuer)
		}

		srv := server.New(db, stores, svc, hub, issuer, logger, opts...)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv.Router(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("lifequest running", "addr", "http://localhost:"+cfg.Port, "timezone", cfg.Location.String())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			srv.RateLimiter().RunCleanup(gctx, 5*time.Minute)
			return nil
		})
		if pushSvc != nil {
			reminder := push.NewReminder(pushSvc, stores.Push, svc, cfg.Push.ReminderHour, cfg.Location,
				logger.With("component", "reminder"))
			g.Go(func() error {
				reminder.Run(gctx, time.Minute)
				return nil
			})
		}
		if bm := newBackupManager(); bm.Enabled() && cfg.Backup.Interval > 0 {
			if cfg.Backup.Passphrase == "" {
				logger.Warn("scheduled backups disabled: LIFEQUEST_BACKUP_PASSPHRASE is not set")
			} else {
				logger.Info("scheduled backups enabled", "interval", cfg.Backup.Interval, "retention", cfg.Backup.Retention)
				g.Go(func() error {
					bm.Schedule(gctx, cfg.Backup.Passphrase, cfg.Backup.Interval, cfg.Backup.Retention)
					return nil
				})
			}
		}
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
