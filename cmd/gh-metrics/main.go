package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SatelliteQE/repo-metrics/internal/config"
	"github.com/SatelliteQE/repo-metrics/internal/ghclient"
	"github.com/SatelliteQE/repo-metrics/internal/metrics"
	"github.com/SatelliteQE/repo-metrics/internal/report"
	"github.com/SatelliteQE/repo-metrics/internal/review"
	"github.com/SatelliteQE/repo-metrics/internal/server"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:           "gh-metrics",
	Short:         "Review latency and reviewer activity metrics for GitHub repositories",
	Long:          "Collect time-to-review and tiered reviewer activity metrics from GitHub pull request timelines.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

var prMetricsCmd = &cobra.Command{
	Use:     "pr-metrics",
	Aliases: []string{"time-to-review"},
	Short:   "Per pull request review latencies and their statistics",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		agg, rosters, err := setup(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		roster, err := rosters.Roster(cmd.Context(), cfg.Org, cfg.Repo)
		if err != nil {
			return err
		}

		rows, stats, err := agg.SinglePRMetrics(cmd.Context(), cfg.Org, cfg.Repo, cfg.PRCount, roster)
		if err != nil {
			return err
		}
		payload := map[string]any{"pull_requests": rows, "stats": stats}
		return output(cmd, cfg, "pr-metrics", payload, report.PRTable(rows), report.StatTable(stats))
	},
}

var reviewerActionsCmd = &cobra.Command{
	Use:   "reviewer-actions",
	Short: "Weekly review actions per tier1 and tier2 reviewer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		agg, rosters, err := setup(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		roster, err := rosters.Roster(cmd.Context(), cfg.Org, cfg.Repo)
		if err != nil {
			return err
		}

		tier1, tier2, err := agg.ReviewerActions(cmd.Context(), cfg.Org, cfg.Repo, cfg.PRCount, roster)
		if err != nil {
			return err
		}
		payload := map[string]any{"tier1": tier1, "tier2": tier2}
		return output(cmd, cfg, "reviewer-actions", payload,
			report.WeeklyTable("Tier1 reviewer actions", tier1),
			report.WeeklyTable("Tier2 reviewer actions", tier2))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			cfg.Listen = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		agg, rosters, err := setup(ctx, cfg)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           server.New(agg, rosters, cfg.PRCount, slog.Default()).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			slog.Info("server starting", "addr", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	},
}

// loadConfig reads the configuration files and applies flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	strs := map[string]*string{
		"token":              &cfg.Token,
		"org-name":           &cfg.Org,
		"repo-name":          &cfg.Repo,
		"file-output-prefix": &cfg.OutputPrefix,
		"output-dir":         &cfg.OutputDir,
	}
	for name, dst := range strs {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Lookup("pr-count") != nil && flags.Changed("pr-count") {
		cfg.PRCount, _ = flags.GetInt("pr-count")
	}
	return cfg.Validate()
}

func setup(ctx context.Context, cfg *config.Config) (*metrics.Aggregator, *rosterResolver, error) {
	if cfg.Token == "" {
		return nil, nil, fmt.Errorf("GitHub token is required. Set --token flag or %sGH_TOKEN environment variable", config.EnvPrefix)
	}
	client, err := ghclient.New(ctx, ghclient.Options{
		Token:         cfg.Token,
		APIURL:        cfg.APIURL,
		PageSize:      cfg.PageSize,
		IgnoredLogins: cfg.IgnoredUsers,
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, nil, err
	}
	return metrics.NewAggregator(client), &rosterResolver{cfg: cfg, teams: client}, nil
}

type teamLookup interface {
	Roster(ctx context.Context, org, repo, tier1Slug, tier2Slug string) (review.Roster, error)
}

// rosterResolver maps a repository to its configured teams and resolves their members.
type rosterResolver struct {
	cfg   *config.Config
	teams teamLookup
}

func (r *rosterResolver) Roster(ctx context.Context, org, repo string) (review.Roster, error) {
	t, ok := r.cfg.ReviewerTeams(org, repo)
	if !ok {
		slog.Warn("no reviewer teams configured", "repo", org+"/"+repo)
	}
	return r.teams.Roster(ctx, org, repo, t.Tier1, t.Tier2)
}

// output renders the tables to stdout and saves payload as JSON.
func output(cmd *cobra.Command, cfg *config.Config, metric string, payload any, tables ...report.Table) error {
	name, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), format, cfg, metric, time.Now(), payload, tables...)
}

func emit(w io.Writer, format report.Format, cfg *config.Config, metric string, now time.Time, payload any, tables ...report.Table) error {
	if err := report.Render(w, format, payload, tables...); err != nil {
		return fmt.Errorf("failed to render %s: %w", metric, err)
	}
	path := report.OutputPath(cfg.OutputDir, cfg.OutputPrefix, metric, now)
	if err := report.WriteFile(path, payload); err != nil {
		return err
	}
	slog.Info("wrote metrics file", "path", path)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (YAML); defaults to settings.yaml and .secrets.yaml")
	rootCmd.PersistentFlags().StringP("token", "t", "", "GitHub personal access token (or set METRICS_GH_TOKEN / GITHUB_TOKEN)")
	rootCmd.PersistentFlags().String("org-name", "", "GitHub organization")
	rootCmd.PersistentFlags().String("repo-name", "", "GitHub repository")
	rootCmd.PersistentFlags().String("file-output-prefix", "", "Prefix of the JSON output file name")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "Directory for JSON output files")
	rootCmd.PersistentFlags().StringP("format", "f", "table", "Console output format: table, csv or json")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	prMetricsCmd.Flags().IntP("pr-count", "n", 0, "Number of recent pull requests to analyze")
	reviewerActionsCmd.Flags().IntP("pr-count", "n", 0, "Number of recent pull requests to analyze")
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().IntP("pr-count", "n", 0, "Default number of pull requests per request")

	rootCmd.AddCommand(prMetricsCmd)
	rootCmd.AddCommand(reviewerActionsCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
