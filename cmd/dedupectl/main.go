// Command dedupectl is the batch-pipeline entrypoint: a single binary
// exposing the §6 callable surface (standardize, auto_map, preview,
// run_matching) as subcommands over the job configuration documents and
// dedup store wired up the way cmd/server/main.go wires its subsystems.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ignite/dedupe/internal/config"
	"github.com/ignite/dedupe/internal/dedupstore"
	"github.com/ignite/dedupe/internal/ingest"
	"github.com/ignite/dedupe/internal/jobconfig"
	"github.com/ignite/dedupe/internal/pipeline"
	"github.com/ignite/dedupe/internal/pkg/distlock"
	"github.com/ignite/dedupe/internal/pkg/logger"
	"github.com/ignite/dedupe/internal/record"
	"github.com/ignite/dedupe/internal/standardize"

	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Println("============================================================")
	fmt.Println("  dedupectl — record-linkage batch pipeline")
	fmt.Println("============================================================")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfgPath := envOrDefault("DEDUPE_CONFIG", "config/config.yaml")
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dedupectl: failed to load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}
	fmt.Printf("Config loaded: %s (jobs.output_dir=%s)\n", cfgPath, cfg.Jobs.OutputDir)

	cache := jobconfig.NewCache()

	var cmdErr error
	switch os.Args[1] {
	case "standardize":
		cmdErr = runStandardize(cfg, cache, os.Args[2:])
	case "auto_map":
		cmdErr = runAutoMap(cfg, cache, os.Args[2:])
	case "preview":
		cmdErr = runPreview(os.Args[2:])
	case "run_matching":
		cmdErr = runMatching(cfg, cache, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "dedupectl: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "dedupectl: %s failed: %v\n", os.Args[1], cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: dedupectl <command> [flags]

commands:
  standardize   -in FILE -out DIR               map a raw CSV onto canonical columns, emit a processed CSV + analytics JSON
  auto_map      -in FILE                        print the header->canonical-column mapping dedupectl would use, without writing files
  preview       -in FILE [-rows N]               print the first N data rows of a CSV alongside its total row count
  run_matching  -in FILE -out DIR [-rules FILE] [-confidence]  run the full normalize/block/match pipeline and update the dedup store
                [-s3-bucket BUCKET -s3-key KEY]                fetch the input CSV from S3 instead of local disk, and upload matched.csv back`)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runStandardize implements the standardize() callable surface.
func runStandardize(cfg *config.Config, cache *jobconfig.Cache, args []string) error {
	fs := flag.NewFlagSet("standardize", flag.ExitOnError)
	in := fs.String("in", "", "input CSV path (required)")
	out := fs.String("out", cfg.Jobs.OutputDir, "output directory for the processed CSV and analytics JSON")
	columnsPath := fs.String("columns", cfg.Jobs.ColumnsMetadataPath, "columns_metadata.json path")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("standardize: -in is required")
	}

	meta, err := cache.ColumnsMetadata(*columnsPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("standardize: create output dir %s: %w", *out, err)
	}

	result, err := standardize.Standardize(*in, *out, meta)
	if err != nil {
		return err
	}

	fmt.Printf("Standardized %d rows, %d columns (%d unmapped source columns)\n",
		result.TotalRows, result.TotalColumns, len(result.UnmappedColumns))
	fmt.Printf("Processed CSV:  %s\n", result.ProcessedFilename)
	fmt.Printf("Analytics JSON: %s\n", result.AnalyticsFilename)
	fmt.Printf("Quality grade:  %s (score %.1f)\n", result.Analytics.DataQuality.Grade, result.Analytics.DataQuality.OverallScore)
	return printJSON(result)
}

// runAutoMap implements the auto_map() callable surface: scores headers
// against columns_metadata.json without writing any output file.
func runAutoMap(cfg *config.Config, cache *jobconfig.Cache, args []string) error {
	fs := flag.NewFlagSet("auto_map", flag.ExitOnError)
	in := fs.String("in", "", "input CSV path (required)")
	columnsPath := fs.String("columns", cfg.Jobs.ColumnsMetadataPath, "columns_metadata.json path")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("auto_map: -in is required")
	}

	meta, err := cache.ColumnsMetadata(*columnsPath)
	if err != nil {
		return err
	}

	headers, _, totalRows, err := ingest.Preview(*in, 0)
	if err != nil {
		return err
	}

	mapResult := standardize.AutoMap(headers, meta)
	fmt.Printf("%d headers, %d data rows, %d mapped, %d unmapped\n",
		len(headers), totalRows, len(mapResult.Mapping), len(headers)-len(mapResult.Mapping))
	return printJSON(mapResult)
}

// runPreview implements the preview() callable surface.
func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	in := fs.String("in", "", "input CSV path (required)")
	rows := fs.Int("rows", 10, "number of data rows to preview")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("preview: -in is required")
	}

	headers, preview, totalRows, err := ingest.Preview(*in, *rows)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d total data rows, showing %d\n", *in, totalRows, len(preview))
	return printJSON(struct {
		Headers []string        `json:"headers"`
		Rows    []record.Record `json:"rows"`
		Total   int             `json:"total_rows"`
	}{Headers: headers, Rows: preview, Total: totalRows})
}

// runMatching implements the run_matching() callable surface: the full
// ingest -> pipeline.Run -> dedup-store-save -> output-CSV orchestration,
// with the dedup store's load-mutate-save cycle held under a distlock so
// concurrently invoked jobs against the same store serialize their writes
// (§5).
func runMatching(cfg *config.Config, cache *jobconfig.Cache, args []string) error {
	fs := flag.NewFlagSet("run_matching", flag.ExitOnError)
	in := fs.String("in", "", "input CSV path (required unless -s3-key is set)")
	out := fs.String("out", cfg.Jobs.OutputDir, "output directory for the matched CSV")
	rulesPath := fs.String("rules", cfg.Jobs.RulesPath, "rules.json path")
	settingsPath := fs.String("settings", cfg.Jobs.SettingsPath, "settings.json path")
	storePath := fs.String("store", cfg.Jobs.DedupStorePath, "dedup store JSON path")
	confidence := fs.Bool("confidence", false, "attach OVERALL_CONFIDENCE and ADDRESS_CONFIDENCE to matched rows")
	s3Bucket := fs.String("s3-bucket", cfg.Storage.S3Bucket, "fetch -s3-key from this bucket instead of reading -in from local disk")
	s3Key := fs.String("s3-key", "", "object key of the input CSV in -s3-bucket")
	s3OutKey := fs.String("s3-out-key", "", "object key to upload the matched CSV to in -s3-bucket (default: same basename as -s3-key, prefixed matched/)")
	fs.Parse(args)

	ctx := context.Background()

	var s3 *ingest.S3Source
	if *s3Key != "" {
		if *s3Bucket == "" {
			return fmt.Errorf("run_matching: -s3-key requires -s3-bucket (or storage.s3_bucket in config)")
		}
		var err error
		s3, err = ingest.NewS3Source(ctx, cfg.Storage.S3Region, cfg.Storage.GetAWSProfile(), "", "", *s3Bucket)
		if err != nil {
			return err
		}
		fetched, err := s3.Fetch(ctx, *s3Key)
		if err != nil {
			return err
		}
		defer os.Remove(fetched)
		*in = fetched
		if *s3OutKey == "" {
			*s3OutKey = "matched/" + filepath.Base(*s3Key)
		}
		fmt.Printf("Fetched s3://%s/%s\n", *s3Bucket, *s3Key)
	}
	if *in == "" {
		return fmt.Errorf("run_matching: -in or -s3-key is required")
	}

	rulesDoc, err := cache.Rules(*rulesPath)
	if err != nil {
		return err
	}
	settingsDoc, err := cache.Settings(*settingsPath)
	if err != nil {
		return err
	}

	rows, err := ingest.ReadCSV(*in)
	if err != nil {
		return err
	}
	fmt.Printf("Read %d rows from %s (%d rules loaded)\n", len(rows.Records), *in, len(rulesDoc.Rules))

	store := dedupstore.NewJSONFileStore(*storePath)

	// Only Redis gives distlock.NewLock something to lock with here:
	// dedupectl's JSON-file store has no SQL connection for the PG
	// advisory-lock fallback, so an unconfigured Redis means this
	// invocation proceeds unlocked, matching a single-process CLI run where
	// no sibling job can be racing the same store file.
	if redisClient := redisClientFromConfig(cfg); redisClient != nil {
		lock := distlock.NewRedisLock(redisClient, *storePath, 2*time.Minute)
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("run_matching: acquire dedup store lock: %w", err)
		}
		if !acquired {
			return fmt.Errorf("run_matching: dedup store %s is locked by another job", *storePath)
		}
		defer lock.Release(ctx)
	}

	mapping, err := store.Load(ctx)
	if err != nil {
		return err
	}

	result := pipeline.Run(rows.Headers, rows.Records, mapping, rulesDoc.Sorted(), pipeline.Options{
		Lookups:           settingsDoc.QualityScores.Email,
		IncludeConfidence: *confidence,
	})

	saveErr := store.Save(ctx, mapping)
	if saveErr != nil {
		result.Stats.WriteError = saveErr.Error()
		logger.Error("run_matching: dedup store save failed", "error", saveErr.Error())
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("run_matching: create output dir %s: %w", *out, err)
	}
	outPath := filepath.Join(*out, "matched.csv")
	if err := ingest.WriteCSV(outPath, result.Columns, result.Rows); err != nil {
		return err
	}

	if s3 != nil {
		if err := s3.Put(ctx, *s3OutKey, outPath); err != nil {
			return err
		}
		fmt.Printf("Uploaded s3://%s/%s\n", *s3Bucket, *s3OutKey)
	}

	fmt.Printf("Matched: %d new, %d existing, %d errors (wrote %s)\n",
		result.Stats.NewDedupKeys, result.Stats.MatchedExisting, result.Stats.Errors, outPath)
	if err := printJSON(result.Stats); err != nil {
		return err
	}
	if saveErr != nil {
		return fmt.Errorf("%w: %v", record.ErrStorePersist, saveErr)
	}
	return nil
}

// redisClientFromConfig returns a Redis client for distlock when the
// service config enables one, or nil to fall back to a PostgreSQL advisory
// lock — unusable here since dedupectl's default store has no SQL backend,
// so an unconfigured Redis means run_matching proceeds unlocked against a
// process-local JSONFileStore (single-job CLI invocations are the common
// case; §5's cross-job serialization matters once a Redis-backed deployment
// runs many invocations concurrently against the same store file).
func redisClientFromConfig(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
