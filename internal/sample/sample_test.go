package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/geo"
)

func boundary(t *testing.T, code string, ring []geom.Coord) *assign.Municipality {
	t.Helper()
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
	m, err := assign.NewMunicipality(0, assign.Identity{Code: code, Name: "N" + code}, "", p)
	require.NoError(t, err)
	return m
}

// triangle covers only half its bounding box, so rejection sampling has to
// actually reject.
func triangle(t *testing.T) *assign.Municipality {
	return boundary(t, "05001", []geom.Coord{
		{-75.6, 6.2}, {-75.4, 6.2}, {-75.6, 6.4}, {-75.6, 6.2},
	})
}

func TestGenerate(t *testing.T) {
	gen := New(Options{
		Source:          "microsoft",
		PerMunicipality: 200,
		SizeM:           10,
		Seed:            42,
	})

	m := triangle(t)
	features := gen.Generate(m)
	require.Len(t, features, 200)

	for i, f := range features {
		g, err := f.Geom()
		require.NoError(t, err, "feature %d", i)

		// The center point is what the assigner will test; it must fall
		// inside the source boundary.
		lon, lat := geo.RepresentativePoint(g)
		assert.True(t, geo.Contains(m.Geom(), lon, lat), "feature %d center (%g, %g)", i, lon, lat)

		// Footprints are measurable and roughly the requested size.
		area, err := geo.AreaM2(g)
		require.NoError(t, err, "feature %d", i)
		assert.InEpsilon(t, 100, area, 0.02, "feature %d", i)

		assert.Equal(t, "microsoft", f.Properties["source"])
		conf, ok := f.Properties["confidence"].(float64)
		require.True(t, ok, "feature %d", i)
		assert.GreaterOrEqual(t, conf, 0.7)
		assert.LessOrEqual(t, conf, 0.99)
	}
}

func TestGenerateSeededIsReproducible(t *testing.T) {
	opts := Options{Source: "microsoft", PerMunicipality: 50, SizeM: 10, Seed: 7}

	one := New(opts).Generate(triangle(t))
	two := New(opts).Generate(triangle(t))

	require.Len(t, two, len(one))
	for i := range one {
		assert.Equal(t, string(one[i].Geometry), string(two[i].Geometry), "feature %d", i)
		assert.Equal(t, one[i].Properties["confidence"], two[i].Properties["confidence"], "feature %d", i)
	}
}

func TestGenerateStopsAtAttemptBudget(t *testing.T) {
	// A diagonal sliver covering a vanishing fraction of its bounding box:
	// nearly every candidate point misses, so the attempt cap kicks in
	// before the target count.
	sliver := boundary(t, "05002", []geom.Coord{
		{0, 0}, {80, 80}, {0, 0.0001}, {0, 0},
	})

	gen := New(Options{Source: "google", PerMunicipality: 1000, SizeM: 10, Seed: 1})
	features := gen.Generate(sliver)

	assert.Less(t, len(features), 1000)
}

func TestNewAppliesDefaults(t *testing.T) {
	gen := New(Options{Source: "microsoft", Seed: 3})

	assert.Equal(t, 500, gen.opts.PerMunicipality)
	assert.Equal(t, 10.0, gen.opts.SizeM)
	assert.Equal(t, 0.7, gen.opts.MinConfidence)
	assert.Equal(t, 0.99, gen.opts.MaxConfidence)
}
