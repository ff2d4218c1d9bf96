package main

import (
	"context"
	"os"

	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/logger"
	"github.com/pdetsolar/footprints/internal/report"
	"github.com/pdetsolar/footprints/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"    env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	MongoURI   string `short:"m" long:"mongo-uri" env:"MONGO_URI"   description:"Override the store connection URI"`
	Output     string `short:"o" long:"output"    env:"REPORT_DIR"  description:"Output directory (default from configuration)"`
	TopN       int    `short:"n" long:"top"       env:"REPORT_TOP"  description:"Municipalities per ranking, overrides the configuration"`
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
	if opts.TopN > 0 {
		cfg.Report.TopN = opts.TopN
	}

	output := opts.Output
	if output == "" {
		output = cfg.Data.Results
	}

	ctx := context.Background()
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer func() { _ = s.Close(ctx) }()

	log.Info().
		Str("database", cfg.Mongo.Database).
		Int("top", cfg.Report.TopN).
		Str("dir", output).
		Msg("Building report")

	data, err := report.NewBuilder(s, cfg).Collect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to aggregate collections")
	}

	if err := report.Write(data, output); err != nil {
		log.Fatal().Err(err).Msg("Failed to write report")
	}

	log.Info().Str("dir", output).Msg("Report finished successfully")
}
