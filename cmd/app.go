package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"conflation_service/internal/config"
	"conflation_service/internal/core"
	"conflation_service/internal/domain/model"
	"conflation_service/internal/domain/repository"
	"conflation_service/internal/infrastructure/download"
	"conflation_service/internal/infrastructure/geojsonio"
	"conflation_service/internal/infrastructure/metrics"
	"conflation_service/internal/infrastructure/retry"
	"conflation_service/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	rawFileName   = "semaforos_raw.geojson"
	cleanFileName = "clean_traffic_lights.geojson"
)

// App carries configuration and the logger between commands.
type App struct {
	configFile string
	logLevel   string
	logFormat  string

	config *config.Config
	logger zerolog.Logger
}

func NewApp() *App {
	return &App{logger: logging.NewLogger(logging.DefaultConfig())}
}

func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "conflate-signals",
		Short: "Compare municipal traffic signals with OpenStreetMap",
		Long: `conflate-signals reconciles the municipal traffic-signal dataset with
OpenStreetMap highway=traffic_signals nodes and writes three GeoJSON files:
signals missing in OSM, OSM signals lacking ref/start_date, and OSM signals
with no municipal counterpart.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: console, json")

	root.AddCommand(a.runCommand())
	root.AddCommand(a.cleanCommand())
	root.AddCommand(a.conflateCommand())
	root.AddCommand(a.historyCommand())
	return root
}

// setup loads configuration once flags are parsed. Flags beat env and file.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	a.config = cfg
	a.logger = logging.NewLogger(cfg.Logging())
	return nil
}

func (a *App) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:      a.config.OverpassMaxRetries,
		InitialInterval: a.config.RetryBackoff,
		MaxInterval:     a.config.MaxRetryBackoff,
	}
}

func (a *App) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Download, clean and conflate the municipal dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.config.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			rawPath := filepath.Join(a.config.InputDir, rawFileName)
			cleanPath := filepath.Join(a.config.OutputDir, cleanFileName)

			downloader := download.NewHTTPDownloader(a.config.DownloadTimeout, a.config.InsecureDownload, a.retryPolicy(), a.logger)
			if _, err := downloader.Download(ctx, a.config.DataURL, rawPath); err != nil {
				return err
			}

			a.logger.Info().Msg("Running cleaning step")
			if _, err := a.clean(rawPath, cleanPath); err != nil {
				return err
			}

			a.logger.Info().Msg("Running conflation step")
			if _, err := a.conflate(ctx, cleanPath, a.config.OutputDir); err != nil {
				return err
			}

			a.logger.Info().Msg("Done")
			return nil
		},
	}
}

func (a *App) cleanCommand() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Convert a raw municipal export into OSM-tagged points",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.clean(in, out)
			return err
		},
	}
	cmd.Flags().StringVar(&in, "in", rawFileName, "raw municipal GeoJSON")
	cmd.Flags().StringVar(&out, "out", cleanFileName, "cleaned GeoJSON")
	return cmd
}

func (a *App) conflateCommand() *cobra.Command {
	var in, outDir string
	var radius float64
	cmd := &cobra.Command{
		Use:   "conflate",
		Short: "Conflate a cleaned file against OpenStreetMap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("radius") {
				a.config.BufferMeters = radius
			}
			if outDir == "" {
				outDir = a.config.OutputDir
			}
			if err := a.config.Validate(); err != nil {
				return err
			}
			_, err := a.conflate(cmd.Context(), in, outDir)
			return err
		},
	}
	cmd.Flags().StringVar(&in, "in", cleanFileName, "cleaned GeoJSON")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the result files (default OUTPUT_DIR)")
	cmd.Flags().Float64Var(&radius, "radius", core.DefaultRadiusMeters, "match radius in meters")
	return cmd
}

func (a *App) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.config.PostgresURL == "" {
				return model.NewConfigError("postgres_url", "", "required to read run history")
			}
			repo, err := repository.NewPostgresRepository(cmd.Context(), a.config.PostgresURL)
			if err != nil {
				return err
			}
			defer repo.Close()

			runs, err := repo.LatestRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\tradius=%.0f\tmissing=%d\tincomplete=%d\textra=%d\n",
					r.ID, r.BBox, r.Radius, r.Missing, r.Incomplete, r.Extra)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func (a *App) clean(in, out string) (core.CleanStats, error) {
	raw, err := geojsonio.ReadFile(in)
	if err != nil {
		return core.CleanStats{}, err
	}
	fc, stats := core.NewCleaner(a.logger).Clean(raw)
	if err := geojsonio.WriteFile(out, fc); err != nil {
		return stats, err
	}
	a.logger.Info().Str("path", out).Int("features", fc.Len()).Msg("Saved cleaned data")
	return stats, nil
}

func (a *App) conflate(ctx context.Context, in, outDir string) (*model.RunReport, error) {
	local, skipped, err := geojsonio.ReadLocal(in)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		a.logger.Warn().Int("skipped", skipped).Msg("Ignored non-point local features")
	}

	source, closeSource, err := a.referenceSource()
	if err != nil {
		return nil, err
	}
	defer closeSource()

	opts := []core.Option{}
	if b, ok := a.config.Bound(); ok {
		opts = append(opts, core.WithBound(b))
	}
	if a.config.SaveRunHistory {
		repo, err := repository.NewPostgresRepository(ctx, a.config.PostgresURL)
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, core.WithRecorder(repository.NewPostgresRunRecorder(repo.DB)))
	}

	svc, err := core.NewConflationService(a.config.Conflation(), source, geojsonio.NewFileSink(outDir), a.logger, opts...)
	if err != nil {
		return nil, err
	}

	report, err := svc.Run(ctx, local)
	if err != nil {
		return nil, err
	}

	if !report.EmptyReference {
		if _, err := geojsonio.WriteManifest(outDir, report); err != nil {
			return report, err
		}
	}
	if a.config.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.config.MetricsFile, report); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to export metrics")
		}
	}

	a.logger.Info().
		Int("missing", report.Missing).
		Int("incomplete", report.Incomplete).
		Int("extra", report.Extra).
		Msg("Conflation finished")
	return report, nil
}

// referenceSource builds the Overpass repository, wrapped in the Redis cache
// when one is configured.
func (a *App) referenceSource() (core.ReferenceSource, func(), error) {
	overpassRepo := repository.NewOverpassRepository(
		a.config.OverpassURL,
		a.config.OverpassTimeout,
		a.config.OverpassParallel,
		a.retryPolicy(),
		a.logger,
	)
	if a.config.RedisURL == "" {
		return overpassRepo, func() {}, nil
	}

	rdb, err := repository.NewRedisClient(a.config.RedisURL)
	if err != nil {
		return nil, nil, errors.Join(model.ErrInvalidConfig, err)
	}
	cached := repository.NewCachedReferenceSource(overpassRepo, rdb, a.config.CacheTTL, a.logger)
	return cached, func() { _ = rdb.Close() }, nil
}
