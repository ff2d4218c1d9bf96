// Package sample synthesizes building footprints inside municipal
// boundaries, for pipeline runs without a real footprint dataset.
package sample

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/geo"
)

// Options controls the generator.
type Options struct {
	Source          string  // stamped into every feature's properties
	PerMunicipality int     // footprints per boundary
	SizeM           float64 // footprint edge length in meters
	Seed            int64   // 0 seeds from the clock
	MinConfidence   float64
	MaxConfidence   float64
}

// Generator produces pseudo-random square footprints whose center points are
// guaranteed to fall inside their source boundary. With an explicit seed the
// output is reproducible; this is the only stage of the pipeline allowed to
// be nondeterministic.
type Generator struct {
	rng  *rand.Rand
	opts Options
}

// New builds a generator.
func New(opts Options) *Generator {
	if opts.PerMunicipality <= 0 {
		opts.PerMunicipality = 500
	}
	if opts.SizeM <= 0 {
		opts.SizeM = 10
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 0.7
	}
	if opts.MaxConfidence <= opts.MinConfidence {
		opts.MaxConfidence = 0.99
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{rng: rand.New(rand.NewSource(seed)), opts: opts}
}

// Generate samples footprints for one municipality. Candidate centers are
// drawn uniformly over the bounding box and rejected until they fall inside
// the boundary; after 10x the target count of attempts the municipality is
// returned short, with a warning.
func (g *Generator) Generate(m *assign.Municipality) []*geo.Feature {
	bounds := m.Geom().Bounds()
	minX, minY := bounds.Min(0), bounds.Min(1)
	maxX, maxY := bounds.Max(0), bounds.Max(1)

	want := g.opts.PerMunicipality
	maxAttempts := want * 10

	features := make([]*geo.Feature, 0, want)
	for attempts := 0; len(features) < want && attempts < maxAttempts; attempts++ {
		lon := minX + g.rng.Float64()*(maxX-minX)
		lat := minY + g.rng.Float64()*(maxY-minY)
		if !geo.Contains(m.Geom(), lon, lat) {
			continue
		}

		confidence := g.opts.MinConfidence +
			g.rng.Float64()*(g.opts.MaxConfidence-g.opts.MinConfidence)

		f, err := geo.NewFeature(g.footprint(lon, lat), map[string]interface{}{
			"source":     g.opts.Source,
			"confidence": geo.Round(confidence, 2),
		})
		if err != nil {
			continue
		}

		features = append(features, f)
	}

	if len(features) < want {
		log.Warn().
			Str("municipality", m.Code).
			Int("generated", len(features)).
			Int("want", want).
			Msg("Attempt budget exhausted before reaching the target count")
	}

	return features
}

// footprint builds an axis-aligned square of roughly SizeM meters centered
// on the point, with the meter-to-degree conversion taken at the point's
// latitude.
func (g *Generator) footprint(lon, lat float64) *geom.Polygon {
	halfLat, halfLon := geo.MetersToDegrees(g.opts.SizeM/2, lat)

	ring := []geom.Coord{
		{lon - halfLon, lat - halfLat},
		{lon + halfLon, lat - halfLat},
		{lon + halfLon, lat + halfLat},
		{lon - halfLon, lat + halfLat},
		{lon - halfLon, lat - halfLat},
	}

	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}
