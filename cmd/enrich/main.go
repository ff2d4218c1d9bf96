package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/logger"
	"github.com/pdetsolar/footprints/internal/pipeline"
	"github.com/pdetsolar/footprints/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"    env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	MongoURI   string `short:"m" long:"mongo-uri" env:"MONGO_URI"      description:"Override the store connection URI"`
	Input      string `short:"i" long:"input"     env:"ENRICH_INPUT"   description:"Input GeoJSONL file (default stdin)"`
	Output     string `short:"o" long:"output"    env:"ENRICH_OUTPUT"  description:"Output GeoJSONL file (default stdout)"`
	Workers    int    `short:"w" long:"workers"   env:"ENRICH_WORKERS" description:"Concurrent workers, overrides the configuration"`
	Chunk      int    `long:"chunk"               env:"ENRICH_CHUNK"   description:"Records per worker dispatch, overrides the configuration"`
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
	if opts.Workers > 0 {
		cfg.Enrich.Workers = opts.Workers
	}
	if opts.Chunk > 0 {
		cfg.Enrich.ChunkSize = opts.Chunk
	}

	ctx := context.Background()
	index := loadIndex(ctx, cfg)

	in := openInput(opts.Input)
	defer func() { _ = in.Close() }()

	out := openOutput(opts.Output)
	defer func() { _ = out.Close() }()

	log.Info().
		Int("municipalities", index.Size()).
		Int("workers", cfg.Enrich.Workers).
		Int("chunk", cfg.Enrich.ChunkSize).
		Msg("Enriching footprints")

	p := pipeline.New(index, cfg.Enrich.Workers, cfg.Enrich.ChunkSize)
	stats, err := p.Run(ctx, in, out)
	if err != nil {
		log.Fatal().Err(err).Msg("Enrichment failed")
	}

	stats.Log()
}

// loadIndex reads the stored boundaries into the in-memory assignment index.
func loadIndex(ctx context.Context, cfg *config.Config) *assign.Index {
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer func() { _ = s.Close(ctx) }()

	docs, err := s.Municipalities(ctx, cfg.Mongo.Municipalities)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read municipalities")
	}

	candidates, err := store.Candidates(docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Stored boundary failed to parse")
	}

	index := assign.NewIndex(candidates)
	if index.Size() == 0 {
		log.Warn().Msg("No municipalities loaded, every footprint will stay unassigned")
	}

	return index
}

func openInput(path string) io.ReadCloser {
	if path == "" {
		return os.Stdin
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open input file")
	}

	return f
}

func openOutput(path string) io.WriteCloser {
	if path == "" {
		return os.Stdout
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to create output directory")
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to create output file")
	}

	return f
}
