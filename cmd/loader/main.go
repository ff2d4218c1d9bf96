package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/geo"
	"github.com/pdetsolar/footprints/internal/logger"
	"github.com/pdetsolar/footprints/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"     env:"CONFIG_FILE"     description:"Path to configuration file" default:"config.yaml"`
	MongoURI   string `short:"m" long:"mongo-uri"  env:"MONGO_URI"       description:"Override the store connection URI"`
	Source     string `short:"s" long:"source"     env:"LOAD_SOURCE"     description:"Load a single source (default all configured)"`
	Input      string `short:"i" long:"input"      env:"LOAD_INPUT"      description:"Input GeoJSONL file, requires --source"`
	BatchSize  int    `short:"b" long:"batch-size" env:"LOAD_BATCH_SIZE" description:"Documents per bulk insert, overrides the configuration"`
	Version    string `long:"version"              env:"LOAD_VERSION"    description:"Version stamped into the load metadata, overrides the configuration"`
}

func main() {
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.LoadOrDefault(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.MongoURI != "" {
		cfg.Mongo.URI = opts.MongoURI
	}
	if opts.BatchSize > 0 {
		cfg.Load.BatchSize = opts.BatchSize
	}
	if opts.Version != "" {
		cfg.Load.Version = opts.Version
	}
	if opts.Input != "" && opts.Source == "" {
		log.Fatal().Msg("The input flag requires a source")
	}

	sources := cfg.SourceNames()
	if opts.Source != "" {
		if _, ok := cfg.BuildingCollection(opts.Source); !ok {
			log.Fatal().Str("source", opts.Source).Strs("configured", sources).Msg("Unknown source")
		}
		sources = []string{opts.Source}
	}

	ctx := context.Background()
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer func() { _ = s.Close(ctx) }()

	var total store.LoadStats
	for _, name := range sources {
		coll, _ := cfg.BuildingCollection(name)

		path := opts.Input
		if path == "" {
			path = filepath.Join(cfg.Data.Dir, name, name+"_co.geojsonl")
		}

		f, err := os.Open(path)
		if os.IsNotExist(err) && opts.Source == "" {
			log.Warn().Str("source", name).Str("file", path).Msg("No data file for source, skipping")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to open input file")
		}

		log.Info().
			Str("source", name).
			Str("collection", coll).
			Str("file", path).
			Int("batch_size", cfg.Load.BatchSize).
			Msg("Loading footprints")

		meta := store.NewLoadMetadata(cfg.Load.Version)
		stats := loadFile(ctx, s, f, coll, store.SourceLabel(name), meta, cfg.Load.BatchSize)
		_ = f.Close()

		stats.Log(coll)
		total.Merge(stats)
	}

	log.Info().
		Int("read", total.Read).
		Int("inserted", total.Inserted).
		Int("invalid", total.Invalid).
		Int("failed", total.Failed).
		Msg("Loader finished successfully")
}

// loadFile streams one GeoJSONL file into a collection in batches. Lines
// that fail to decode or map are counted and skipped; documents the
// collection validator rejects are counted per batch. Only transport
// failures abort the run.
func loadFile(ctx context.Context, s *store.Store, r io.Reader, coll, label string, meta store.BuildingMetadata, batchSize int) store.LoadStats {
	var stats store.LoadStats

	reader := geo.NewReader(r)
	batch := make([]store.BuildingDoc, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}

		inserted, failed, err := s.BulkInsertBuildings(ctx, coll, batch)
		if err != nil {
			log.Fatal().Err(err).Str("collection", coll).Msg("Bulk insert failed")
		}
		stats.Inserted += inserted
		stats.Failed += failed
		batch = batch[:0]

		log.Debug().
			Str("collection", coll).
			Int("read", stats.Read).
			Int("inserted", stats.Inserted).
			Msg("Batch flushed")
	}

	for {
		feature, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var lineErr *geo.LineError
		if errors.As(err, &lineErr) {
			stats.Read++
			stats.Invalid++
			log.Debug().Err(err).Msg("Skipping malformed line")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read input file")
		}

		stats.Read++
		doc, err := store.BuildingFromFeature(feature, label, meta)
		if err != nil {
			stats.Invalid++
			log.Debug().Err(err).Int("line", reader.Line()).Msg("Skipping unmappable record")
			continue
		}

		batch = append(batch, doc)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	return stats
}
