package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

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
	SkipFiles  bool   `long:"skip-files"                            description:"Probe only the store, not the data and report files"`
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
	checks := storeChecks(ctx, cfg)
	if !opts.SkipFiles {
		checks = append(checks, fileChecks(cfg)...)
	}

	failed := 0
	for _, c := range checks {
		if c.OK {
			log.Info().Str("check", c.Name).Str("detail", c.Detail).Msg("Check passed")
			continue
		}
		failed++
		log.Error().Str("check", c.Name).Str("detail", c.Detail).Msg("Check failed")
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(checks)).Msg("Verification failed")
		os.Exit(1)
	}

	log.Info().Int("checks", len(checks)).Msg("Verification finished successfully")
}

// storeChecks probes the store side: connectivity, document counts, spatial
// indexes and assignment rates. An unreachable store is itself a failed
// check, every dependent probe is skipped.
func storeChecks(ctx context.Context, cfg *config.Config) []store.Check {
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		return []store.Check{{Name: "store connection", Detail: err.Error()}}
	}
	defer func() { _ = s.Close(ctx) }()

	checks := []store.Check{{
		Name:   "store connection",
		OK:     true,
		Detail: "database " + cfg.Mongo.Database + " reachable",
	}}

	colls := []string{cfg.Mongo.Municipalities}
	buildings := make([]string, 0, len(cfg.Mongo.Buildings))
	for _, name := range cfg.SourceNames() {
		coll, _ := cfg.BuildingCollection(name)
		colls = append(colls, coll)
		buildings = append(buildings, coll)
	}

	counts, err := s.CollectionCounts(ctx, colls...)
	if err != nil {
		checks = append(checks, store.Check{Name: "document counts", Detail: err.Error()})
	} else {
		checks = append(checks, counts...)
	}

	spatial, err := s.SpatialIndexes(ctx, colls...)
	if err != nil {
		checks = append(checks, store.Check{Name: "spatial indexes", Detail: err.Error()})
	} else {
		checks = append(checks, spatial...)
	}

	for _, coll := range buildings {
		rate, err := s.AssignmentRate(ctx, coll)
		if err != nil {
			checks = append(checks, store.Check{Name: rate.Name, Detail: err.Error()})
			continue
		}
		checks = append(checks, rate)
	}

	return checks
}

// fileChecks probes the pipeline's file artifacts: one GeoJSONL per source
// and the report outputs.
func fileChecks(cfg *config.Config) []store.Check {
	checks := []store.Check{fileCheck("boundary file", cfg.Data.Boundaries)}

	for _, name := range cfg.SourceNames() {
		path := filepath.Join(cfg.Data.Dir, name, name+"_co.geojsonl")
		checks = append(checks, fileCheck("data file for "+name, path))

		table := report.SourceReport{Source: name}.CSVName()
		checks = append(checks, fileCheck("report table for "+name, filepath.Join(cfg.Data.Results, table)))
	}

	checks = append(checks, fileCheck("report summary", filepath.Join(cfg.Data.Results, "summary.csv")))
	checks = append(checks, fileCheck("report page", filepath.Join(cfg.Data.Results, "index.html")))

	return checks
}

func fileCheck(name, path string) store.Check {
	info, err := os.Stat(path)
	if err != nil {
		return store.Check{Name: name, Detail: path + " is missing"}
	}
	if info.Size() == 0 {
		return store.Check{Name: name, Detail: path + " is empty"}
	}

	return store.Check{
		Name:   name,
		OK:     true,
		Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size()),
	}
}
