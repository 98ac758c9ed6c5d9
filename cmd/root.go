// Package cmd defines the cambutal-seo command line: the page router server
// and the build-time prerender, sitemap, deploy, generate and audit runs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/config"
	"github.com/JakeFAU/cambutal-seo/internal/logging"
	"github.com/JakeFAU/cambutal-seo/internal/server"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp builds the dependency container. Tests replace it.
var newApp = func(_ context.Context, cfgPath string) (*server.App, error) {
	cfg, err := config.Load(config.ResolvePath(cfgPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return server.New(cfg, logger), nil
}

// newRootCmd returns the command tree and a func releasing whatever app the
// run opened. Cobra skips post-run hooks when a command fails, so callers
// close explicitly.
func newRootCmd() (*cobra.Command, func()) {
	var (
		cfgFile string
		opened  *server.App
	)
	cmd := &cobra.Command{
		Use:   "cambutal-seo",
		Short: "Crawler-facing SEO for the Playa Cambutal directory.",
		Long: `cambutal-seo serves crawler-ready HTML for the Playa Cambutal single-page
app, manages the page metadata store, and runs the build-time prerender,
sitemap and deployment pipelines.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			opened = app
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $"+config.PathEnv+" or ./config.yaml)")

	cmd.AddCommand(
		newServeCmd(),
		newPrerenderCmd(),
		newSitemapCmd(),
		newDeployCmd(),
		newGenerateCmd(),
		newAuditCmd(),
	)
	closeApp := func() {
		if opened != nil {
			opened.Close(context.Background())
			opened = nil
		}
	}
	return cmd, closeApp
}

func resolveApp(ctx context.Context) (*server.App, error) {
	app, ok := ctx.Value(appKey).(*server.App)
	if !ok || app == nil {
		return nil, errors.New("application services not initialized")
	}
	return app, nil
}

// Execute is the main entry point.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, closeApp := newRootCmd()
	defer closeApp()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
