package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/geo"
	"github.com/pdetsolar/footprints/internal/logger"
	"github.com/pdetsolar/footprints/internal/sample"
	"github.com/pdetsolar/footprints/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"    env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	MongoURI   string `short:"m" long:"mongo-uri" env:"MONGO_URI"     description:"Override the store connection URI"`
	Source     string `short:"s" long:"source"    env:"SAMPLE_SOURCE" description:"Source name stamped into the footprints" default:"sample"`
	Output     string `short:"o" long:"output"    env:"SAMPLE_OUTPUT" description:"Output GeoJSONL file (default <data-dir>/<source>/<source>_co.geojsonl)"`
	Count      int    `short:"n" long:"count"     env:"SAMPLE_COUNT"  description:"Footprints per municipality, overrides the configuration"`
	Seed       int64  `long:"seed"                env:"SAMPLE_SEED"   description:"Random seed, overrides the configuration"`
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
	if opts.Count > 0 {
		cfg.Sample.PerMunicipality = opts.Count
	}
	if opts.Seed != 0 {
		cfg.Sample.Seed = opts.Seed
	}

	ctx := context.Background()
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer func() { _ = s.Close(ctx) }()

	docs, err := s.Municipalities(ctx, cfg.Mongo.Municipalities)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read municipalities")
	}
	if len(docs) == 0 {
		log.Fatal().Str("collection", cfg.Mongo.Municipalities).Msg("No municipalities in the store, load boundaries first")
	}

	candidates, err := store.Candidates(docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Stored boundary failed to parse")
	}

	output := opts.Output
	if output == "" {
		output = filepath.Join(cfg.Data.Dir, opts.Source, opts.Source+"_co.geojsonl")
	}

	gen := sample.New(sample.Options{
		Source:          store.SourceLabel(opts.Source),
		PerMunicipality: cfg.Sample.PerMunicipality,
		SizeM:           cfg.Sample.SizeM,
		Seed:            cfg.Sample.Seed,
		MinConfidence:   cfg.Sample.MinConfidence,
		MaxConfidence:   cfg.Sample.MaxConfidence,
	})

	log.Info().
		Int("municipalities", len(candidates)).
		Int("per_municipality", cfg.Sample.PerMunicipality).
		Str("file", output).
		Msg("Generating sample footprints")

	total := writeSample(gen, candidates, output)

	log.Info().
		Int("footprints", total).
		Str("file", output).
		Msg("Sample generation finished successfully")
}

// writeSample generates footprints for every candidate boundary and streams
// them to one GeoJSONL file.
func writeSample(gen *sample.Generator, candidates []*assign.Municipality, output string) int {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		log.Fatal().Err(err).Str("file", output).Msg("Failed to create output directory")
	}

	f, err := os.Create(output)
	if err != nil {
		log.Fatal().Err(err).Str("file", output).Msg("Failed to create output file")
	}
	defer func() { _ = f.Close() }()

	w := geo.NewWriter(f)
	total := 0
	for _, m := range candidates {
		features := gen.Generate(m)
		for _, feature := range features {
			if err := w.Write(feature); err != nil {
				log.Fatal().Err(err).Str("file", output).Msg("Failed to write footprint")
			}
		}
		total += len(features)

		log.Debug().
			Str("municipality", m.Code).
			Int("footprints", len(features)).
			Msg("Municipality sampled")
	}

	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Str("file", output).Msg("Failed to flush output file")
	}

	return total
}
