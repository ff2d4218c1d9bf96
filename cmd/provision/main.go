package main

import (
	"context"
	"os"

	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/logger"
	"github.com/pdetsolar/footprints/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"    env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	MongoURI   string `short:"m" long:"mongo-uri" env:"MONGO_URI"   description:"Override the store connection URI"`
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

	ctx := context.Background()
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer func() { _ = s.Close(ctx) }()

	log.Info().Str("database", cfg.Mongo.Database).Msg("Provisioning collections")

	specs := store.Specs(cfg)
	if err := s.EnsureCollections(ctx, specs...); err != nil {
		log.Fatal().Err(err).Msg("Failed to provision collections")
	}

	printSummary(ctx, s, specs)

	log.Info().Msg("Provisioning finished successfully")
}

// printSummary reports each collection's document count and indexes.
func printSummary(ctx context.Context, s *store.Store, specs []store.CollectionSpec) {
	for _, spec := range specs {
		count, err := s.Count(ctx, spec.Name)
		if err != nil {
			log.Error().Err(err).Str("collection", spec.Name).Msg("Failed to count documents")
			continue
		}

		indexes, err := s.IndexNames(ctx, spec.Name)
		if err != nil {
			log.Error().Err(err).Str("collection", spec.Name).Msg("Failed to list indexes")
			continue
		}

		log.Info().
			Str("collection", spec.Name).
			Int64("documents", count).
			Strs("indexes", indexes).
			Msg("Collection ready")
	}
}
