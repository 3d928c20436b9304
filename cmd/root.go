// Package cmd defines and implements the CLI commands for the transit-ingest executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/app"
	"github.com/JakeFAU/transit-ingest/internal/config"
	"github.com/JakeFAU/transit-ingest/internal/flatten"
	"github.com/JakeFAU/transit-ingest/internal/ingest"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use, so tests can
// inject a fake.
type App interface {
	Close()
	Logger() *zap.Logger
	RunFetch(ctx context.Context) ([]ingest.RouteResult, error)
	RunFlatten(ctx context.Context, opts app.FlattenOptions) (flatten.Stats, error)
}

// newApp is the application factory, replaced in tests.
var newApp = func(cfgFile string) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

// newRootCmd builds the command tree. The returned func closes the App built
// by PersistentPreRunE, if any, and must run after Execute returns whether or
// not the command failed.
func newRootCmd() (*cobra.Command, func()) {
	var (
		cfgFile     string
		appInstance App
	)

	cmd := &cobra.Command{
		Use:   "transit-ingest",
		Short: "Ingests public-transit route data and flattens it for the warehouse.",
		Long: `transit-ingest fetches route payloads from the transit REST API,
publishes them to Pub/Sub and archives them in Cloud Storage (fetch), and
flattens stored payloads into one warehouse row per schedule window, stop
and service (flatten).`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := newApp(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			appInstance = instance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, instance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); TRANSIT_* env vars override it")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newFlattenCmd())

	closeApp := func() {
		if appInstance != nil {
			appInstance.Close()
			appInstance = nil
		}
	}
	return cmd, closeApp
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI until completion or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, closeApp := newRootCmd()
	err := root.ExecuteContext(ctx)
	closeApp()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
