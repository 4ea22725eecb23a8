package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()

	rootCmd := &cobra.Command{
		Use:   "social-publisher",
		Short: "Publish posts to connected social networks",
		RunE:  runServe,
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, the scheduler and the worker pool",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Run only the scheduler and the worker pool",
			RunE:  runWorker,
		},
		&cobra.Command{
			Use:   "validate-config",
			Short: "Report missing OAuth credentials and endpoints",
			RunE:  runValidateConfig,
		},
		newTokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := buildApp(ctx, configuration.C)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := configuration.C.App
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.GetLogger().WithFields(map[string]interface{}{"port": cfg.Port, "tls": cfg.TLSEnabled}).Info("Starting application")
		var err error
		if cfg.TLSEnabled && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			if cfg.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.scheduler.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		return err
	}
	return nil
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	app, err := buildApp(ctx, configuration.C)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.GetLogger().Info("Starting worker")
	return app.scheduler.Start(ctx)
}

func runValidateConfig(cmd *cobra.Command, _ []string) error {
	result := configuration.NewOAuthRegistry(configuration.C).ValidateAll()
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%d configuration problems", len(result.Errors))
	}
	return nil
}

// newTokenCommand signs a development JWT for the API.
func newTokenCommand() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configuration.C.App.SecretKey == "" {
				return errors.New("SECRET_KEY is not set")
			}
			now := utils.GetCurrentTime()
			token, err := utils.GenerateToken(map[string]interface{}{
				"sub": userID,
				"iat": now.Unix(),
				"exp": now.Add(ttl).Unix(),
			}, configuration.C.App.SecretKey)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
