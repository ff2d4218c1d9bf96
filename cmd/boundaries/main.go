package main

import (
	"context"
	"os"
	"sort"

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

	ConfigFile string `short:"c" long:"config"    env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	MongoURI   string `short:"m" long:"mongo-uri" env:"MONGO_URI"     description:"Override the store connection URI"`
	File       string `short:"f" long:"file"      env:"BOUNDARY_FILE" description:"Municipality boundary GeoJSON file (default from configuration)"`
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
	if opts.File == "" {
		opts.File = cfg.Data.Boundaries
	}

	docs := readBoundaries(opts.File)
	if len(docs) == 0 {
		log.Fatal().Str("file", opts.File).Msg("No usable boundaries in file")
	}

	ctx := context.Background()
	s, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the store")
	}
	defer func() { _ = s.Close(ctx) }()

	count, err := s.ReplaceMunicipalities(ctx, cfg.Mongo.Municipalities, docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load municipalities")
	}

	printDepartments(docs)

	log.Info().
		Int("loaded", count).
		Str("collection", cfg.Mongo.Municipalities).
		Msg("Boundary load finished successfully")
}

// printDepartments reports how many municipalities each department got.
func printDepartments(docs []store.MunicipalityDoc) {
	counts := make(map[string]int)
	for _, doc := range docs {
		counts[doc.Departamento]++
	}

	departments := make([]string, 0, len(counts))
	for name := range counts {
		departments = append(departments, name)
	}
	sort.Strings(departments)

	for _, name := range departments {
		log.Info().
			Str("department", name).
			Int("municipalities", counts[name]).
			Msg("Department loaded")
	}
}

// readBoundaries parses the boundary file into store documents, keeping the
// file order so overlap ties resolve the same way on every load. Features
// with broken geometry or no DANE code are dropped with a warning.
func readBoundaries(path string) []store.MunicipalityDoc {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open boundary file")
	}
	defer func() { _ = f.Close() }()

	fc, err := geo.ReadFeatureCollection(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to parse boundary file")
	}

	log.Info().Int("features", len(fc.Features)).Str("file", path).Msg("Boundary file read")

	docs := make([]store.MunicipalityDoc, 0, len(fc.Features))
	skipped := 0
	for i := range fc.Features {
		feature := &fc.Features[i]

		g, err := feature.Geom()
		if err == nil {
			err = geo.Validate(g)
		}
		if err != nil {
			log.Warn().Err(err).Int("feature", i).Msg("Skipping boundary with invalid geometry")
			skipped++
			continue
		}

		doc, err := store.BoundaryFromFeature(i, feature)
		if err != nil {
			log.Warn().Err(err).Int("feature", i).Msg("Skipping boundary with missing attributes")
			skipped++
			continue
		}
		docs = append(docs, doc)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("Some boundaries were dropped")
	}

	return docs
}
