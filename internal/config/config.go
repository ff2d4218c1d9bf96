// Package config handles configuration loading and shared data structures.
package config

import (
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Sources map[string]string `yaml:"sources,omitempty"` // dataset name -> download URL

	Mongo  Mongo  `yaml:"mongo"`
	Data   Data   `yaml:"data"`
	Enrich Enrich `yaml:"enrich"`
	Load   Loader `yaml:"load"`
	Sample Sample `yaml:"sample"`
	Report Report `yaml:"report"`
}

// Mongo holds document store connection settings and collection names.
type Mongo struct {
	Buildings      map[string]string `yaml:"buildings,omitempty"` // source name -> collection
	URI            string            `yaml:"uri"`
	Database       string            `yaml:"database"`
	Municipalities string            `yaml:"municipalities,omitempty"`
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
}

// Data holds the working directories and the boundary file location.
type Data struct {
	Dir        string `yaml:"dir,omitempty"`
	Results    string `yaml:"results,omitempty"`
	Boundaries string `yaml:"boundaries,omitempty"`
}

// Enrich tunes the enrichment pass.
type Enrich struct {
	Workers   int `yaml:"workers,omitempty"`
	ChunkSize int `yaml:"chunk_size,omitempty"`
}

// Loader tunes the bulk loader.
type Loader struct {
	Version   string `yaml:"version,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`
}

// Sample tunes the footprint generator.
type Sample struct {
	PerMunicipality int     `yaml:"per_municipality,omitempty"`
	SizeM           float64 `yaml:"size_m,omitempty"`
	Seed            int64   `yaml:"seed,omitempty"`
	MinConfidence   float64 `yaml:"min_confidence,omitempty"`
	MaxConfidence   float64 `yaml:"max_confidence,omitempty"`
}

// Report tunes the aggregate exports.
type Report struct {
	TopN          int     `yaml:"top_n,omitempty"`
	ChartWidthIn  float64 `yaml:"chart_width_in,omitempty"`
	ChartHeightIn float64 `yaml:"chart_height_in,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Mongo: Mongo{
			URI:            "mongodb://localhost:27017",
			Database:       "pdet_solar",
			Municipalities: "municipalities",
			Buildings: map[string]string{
				"microsoft": "buildings_microsoft",
				"google":    "buildings_google",
			},
			TimeoutSeconds: 10,
		},
		Data: Data{
			Dir:        "data",
			Results:    "results",
			Boundaries: "data/MGN2024_MUNICIPIOS_PDET.geojson",
		},
		Enrich: Enrich{Workers: 4, ChunkSize: 512},
		Load:   Loader{Version: "v1.0", BatchSize: 10000},
		Sample: Sample{PerMunicipality: 500, SizeM: 10, MinConfidence: 0.7, MaxConfidence: 0.99},
		Report: Report{TopN: 15, ChartWidthIn: 12, ChartHeightIn: 7},
	}
}

// Load reads and parses the YAML configuration file from the specified path.
// Zero values are backfilled from Default so a partial file stays valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	return &cfg, nil
}

// LoadOrDefault loads the configuration file, falling back to Default when
// the file does not exist. A file that exists but fails to parse is still
// an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		log.Debug().Str("file", path).Msg("No configuration file, using defaults")
		return Default(), nil
	}

	return nil, err
}

func (c *Config) fillDefaults() {
	def := Default()

	if c.Mongo.URI == "" {
		c.Mongo.URI = def.Mongo.URI
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = def.Mongo.Database
	}
	if c.Mongo.Municipalities == "" {
		c.Mongo.Municipalities = def.Mongo.Municipalities
	}
	if len(c.Mongo.Buildings) == 0 {
		c.Mongo.Buildings = def.Mongo.Buildings
	}
	if c.Mongo.TimeoutSeconds <= 0 {
		c.Mongo.TimeoutSeconds = def.Mongo.TimeoutSeconds
	}
	if c.Data.Dir == "" {
		c.Data.Dir = def.Data.Dir
	}
	if c.Data.Results == "" {
		c.Data.Results = def.Data.Results
	}
	if c.Data.Boundaries == "" {
		c.Data.Boundaries = def.Data.Boundaries
	}
	if c.Enrich.Workers <= 0 {
		c.Enrich.Workers = def.Enrich.Workers
	}
	if c.Enrich.ChunkSize <= 0 {
		c.Enrich.ChunkSize = def.Enrich.ChunkSize
	}
	if c.Load.Version == "" {
		c.Load.Version = def.Load.Version
	}
	if c.Load.BatchSize <= 0 {
		c.Load.BatchSize = def.Load.BatchSize
	}
	if c.Sample.PerMunicipality <= 0 {
		c.Sample.PerMunicipality = def.Sample.PerMunicipality
	}
	if c.Sample.SizeM <= 0 {
		c.Sample.SizeM = def.Sample.SizeM
	}
	if c.Sample.MinConfidence <= 0 {
		c.Sample.MinConfidence = def.Sample.MinConfidence
	}
	if c.Sample.MaxConfidence <= 0 {
		c.Sample.MaxConfidence = def.Sample.MaxConfidence
	}
	if c.Report.TopN <= 0 {
		c.Report.TopN = def.Report.TopN
	}
	if c.Report.ChartWidthIn <= 0 {
		c.Report.ChartWidthIn = def.Report.ChartWidthIn
	}
	if c.Report.ChartHeightIn <= 0 {
		c.Report.ChartHeightIn = def.Report.ChartHeightIn
	}
}

// Timeout returns the store connect timeout as a duration.
func (m Mongo) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// SourceNames returns the configured building source names, sorted for
// deterministic iteration.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Mongo.Buildings))
	for name := range c.Mongo.Buildings {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// BuildingCollection resolves the collection holding one source's footprints.
func (c *Config) BuildingCollection(source string) (string, bool) {
	coll, ok := c.Mongo.Buildings[source]
	return coll, ok
}
