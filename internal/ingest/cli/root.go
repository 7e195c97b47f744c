// Package cli holds the npsload command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/nps-insights/internal/cachekey"
	"github.com/godilite/nps-insights/internal/config"
	"github.com/godilite/nps-insights/internal/ingest"
	"github.com/godilite/nps-insights/internal/repository"
	"github.com/godilite/nps-insights/pkg/cache"
	dbbuilder "github.com/godilite/nps-insights/pkg/database"
	"github.com/godilite/nps-insights/pkg/docstore"
)

const connectTimeout = 30 * time.Second

type loadFlags struct {
	survey     string
	file       string
	target     string
	fields     string
	dbPath     string
	envFile    string
	verbose    bool
	invalidate bool
}

// NewRootCommand builds the npsload command.
func NewRootCommand() *cobra.Command {
	var f loadFlags

	cmd := &cobra.Command{
		Use:   "npsload",
		Short: "Load a survey CSV export into the response store",
		Long: `npsload reads a CSV export with a header row and inserts its rows as raw
survey responses. Column names are matched case-insensitively:

  score | nps-score     review     date     sentiment
  aspects | checkbox_fts             rebuy

Rows with the wrong number of columns are rejected and reported by line number.
Malformed cell values are stored as-is and reported when metrics are computed.

Examples:
  npsload --survey mobile --file export.csv
  npsload --survey web --file - --target mongo < export.csv
  npsload --survey mobile --file export.csv --fields score,review,date
  npsload --survey mobile --file export.csv --invalidate

Without --invalidate a running server keeps serving cached metrics and response
lists for the survey until CACHE_TTL expires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.survey, "survey", "s", "", "survey name (required)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "CSV file to load, - for stdin (required)")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "response store: sqlite or mongo (default RESPONSE_SOURCE)")
	cmd.Flags().StringVar(&f.fields, "fields", "", "comma separated fields to keep (default all)")
	cmd.Flags().StringVar(&f.dbPath, "db-path", "", "sqlite database path (default DB_PATH)")
	cmd.Flags().StringVar(&f.envFile, "env", ".env", "dotenv file to read")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")
	cmd.Flags().BoolVar(&f.invalidate, "invalidate", false, "drop the survey's cached metrics and response lists from REDIS_ADDR after loading")
	_ = cmd.MarkFlagRequired("survey")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runLoad(cmd *cobra.Command, f loadFlags) error {
	cfg := config.Load(f.envFile)
	if f.target != "" {
		cfg.ResponseSource = f.target
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}

	logger := zap.NewNop()
	if f.verbose {
		var err error
		if logger, err = config.NewLogger(cfg); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync()
	}

	fields, err := ingest.ParseFields(f.fields)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, f.file)
	if err != nil {
		return err
	}
	defer closeIn()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	report, err := ingest.NewLoader(sink, ingest.NewReader(fields, logger), logger).Load(ctx, f.survey, in)
	if err != nil {
		return err
	}

	if f.invalidate && report.Inserted > 0 {
		if err := invalidateSurvey(ctx, cfg, f.survey, logger); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: rows loaded but cache invalidation failed: %v\n", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// invalidateSurvey drops the cache entries derived from a survey's responses. The
// digest is left alone since loading rows does not change it.
func invalidateSurvey(ctx context.Context, cfg *config.Config, survey string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c, err := cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Delete(ctx, cachekey.Metrics(survey)); err != nil {
		return fmt.Errorf("delete metrics: %w", err)
	}
	n, err := c.DeleteMatching(ctx, cachekey.ResponsesPattern(survey))
	if err != nil {
		return err
	}
	logger.Info("cache invalidated", zap.String("survey", survey), zap.Int("response_lists", n))
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, func() { file.Close() }, nil
}

func openSink(ctx context.Context, cfg *config.Config) (ingest.Sink, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.ResponseSource {
	case config.SourceSQLite:
		db, err := dbbuilder.New(ctx,
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
			dbbuilder.WithJournalMode("WAL"),
		)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewSurveyRepository(db), func() { db.Close() }, nil

	case config.SourceMongo:
		client, err := docstore.New(ctx, docstore.WithURI(cfg.MongoURI), docstore.WithAppName("npsload"))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			_ = client.Disconnect(dctx)
		}
		return repository.NewMongoSurveyRepository(client.Database(cfg.MongoDatabase)), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown target %q: want %s or %s", cfg.ResponseSource, config.SourceSQLite, config.SourceMongo)
	}
}
