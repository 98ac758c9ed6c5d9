package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/deploy"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the page router and admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.InitTracing(cmd.Context()); err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

// newPrerenderCmd takes no flags; point it at a config with CAMBUTAL_CONFIG.
// Only a missing client build or template exits non-zero.
func newPrerenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prerender",
		Short: "Bake every public route of the client build into static HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.InitTracing(cmd.Context()); err != nil {
				return err
			}
			pipeline, err := app.Prerender(cmd.Context())
			if err != nil {
				return err
			}
			report, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "prerendered %d/%d routes (%d failed, %d loading shell) in %s\n",
				report.Succeeded, report.Total, report.Failed, report.Shell, report.Duration.Round(time.Millisecond))
			printList(out, "warning", report.Warnings)
			printList(out, "error", report.Errors)
			return nil
		},
	}
}

func newSitemapCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Write sitemap.xml from static routes, listings and stored metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			generator, err := app.Sitemap(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = app.Config().Sitemap.OutputPath
			}
			n, err := generator.WriteFile(cmd.Context(), output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d URLs to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "sitemap path (default sitemap.output_path)")
	return cmd
}

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Generate crawler HTML for every known page and deploy it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.InitTracing(cmd.Context()); err != nil {
				return err
			}
			metadata, _, err := app.OpenData(cmd.Context())
			if err != nil {
				return err
			}
			manager, err := app.OpenDeployer(cmd.Context())
			if err != nil {
				return err
			}
			files, err := deploy.CollectFiles(cmd.Context(), metadata, app.Site(), app.Fallbacks())
			if err != nil {
				return err
			}
			stat := manager.Deploy(cmd.Context(), files, app.ManifestInfo())
			if err := writeJSON(cmd.OutOrStdout(), stat); err != nil {
				return err
			}
			if !stat.Success {
				return fmt.Errorf("deployment to %s incomplete: %d of %d files failed", app.DeployTarget().Root(), stat.Failed, stat.Total)
			}
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var (
		kinds         []string
		includeStatic bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate stored metadata for listings and static pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			req := seo.BulkRequest{IncludeStatic: includeStatic}
			for _, raw := range kinds {
				kind, ok := seo.ParseListingKind(raw)
				if !ok {
					return fmt.Errorf("unknown listing kind %q", raw)
				}
				req.Kinds = append(req.Kinds, kind)
			}
			metadata, listings, err := app.OpenData(cmd.Context())
			if err != nil {
				return err
			}
			result, err := metadata.BulkGenerate(cmd.Context(), listings, app.Fallbacks(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "listing kinds to regenerate (default all)")
	cmd.Flags().BoolVar(&includeStatic, "static", false, "also write the static section pages")
	return cmd
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <path-or-url>...",
		Short: "Fetch pages as a crawler and report their SEO tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			auditor := app.Auditor()
			base := app.Config().AuditBaseURL()
			var failed []string
			for _, arg := range args {
				target := arg
				if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
					target = base + seo.NormalizePath(arg)
				}
				result, err := auditor.Inspect(cmd.Context(), target)
				if err != nil {
					app.Logger().Warn("audit failed", zap.String("url", target), zap.Error(err))
					failed = append(failed, target)
					continue
				}
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			if len(failed) > 0 {
				return errors.New("audit failed for " + strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printList(w io.Writer, label string, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "  %s: %s\n", label, item)
	}
}
