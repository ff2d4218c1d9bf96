package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func square(minX, minY, maxX, maxY float64) []geom.Coord {
	return closedRing(
		geom.Coord{minX, minY},
		geom.Coord{maxX, minY},
		geom.Coord{maxX, maxY},
		geom.Coord{minX, maxY},
	)
}

func TestContains(t *testing.T) {
	holed := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		square(0, 0, 10, 10),
		square(4, 4, 6, 6),
	})

	tests := []struct {
		name string
		g    geom.T
		lon  float64
		lat  float64
		want bool
	}{
		{"inside", holed, 2, 2, true},
		{"outside", holed, 12, 2, false},
		{"inside the hole", holed, 5, 5, false},
		{"between hole and edge", holed, 7, 5, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Contains(tc.g, tc.lon, tc.lat))
		})
	}

	t.Run("multipolygon members", func(t *testing.T) {
		mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
			{square(0, 0, 1, 1)},
			{square(10, 10, 20, 20)},
		})

		assert.True(t, Contains(mp, 0.5, 0.5))
		assert.True(t, Contains(mp, 15, 15))
		assert.False(t, Contains(mp, 5, 5))
	})
}

func TestRepresentativePoint(t *testing.T) {
	t.Run("convex uses the centroid", func(t *testing.T) {
		p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{square(0, 0, 2, 2)})

		lon, lat := RepresentativePoint(p)
		assert.InDelta(t, 1.0, lon, 1e-9)
		assert.InDelta(t, 1.0, lat, 1e-9)
	})

	t.Run("concave U-shape", func(t *testing.T) {
		u := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			closedRing(
				geom.Coord{0, 0}, geom.Coord{4, 0}, geom.Coord{4, 3},
				geom.Coord{3, 3}, geom.Coord{3, 1}, geom.Coord{1, 1},
				geom.Coord{1, 3}, geom.Coord{0, 3},
			),
		})

		// The raw centroid lands in the notch, outside the shape.
		cx, cy := Centroid(u)
		assert.False(t, Contains(u, cx, cy))

		lon, lat := RepresentativePoint(u)
		assert.True(t, Contains(u, lon, lat), "representative point (%g, %g) must be on the surface", lon, lat)
	})

	t.Run("centroid inside a hole", func(t *testing.T) {
		p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			square(0, 0, 10, 10),
			square(4, 4, 6, 6),
		})

		lon, lat := RepresentativePoint(p)
		assert.True(t, Contains(p, lon, lat))
	})

	t.Run("multipolygon picks the largest member", func(t *testing.T) {
		mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
			{square(0, 0, 1, 1)},
			{square(10, 10, 20, 20)},
		})

		lon, lat := RepresentativePoint(mp)
		assert.True(t, lon >= 10 && lon <= 20)
		assert.True(t, lat >= 10 && lat <= 20)
	})

	t.Run("stable across calls", func(t *testing.T) {
		u := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			closedRing(
				geom.Coord{0, 0}, geom.Coord{4, 0}, geom.Coord{4, 3},
				geom.Coord{3, 3}, geom.Coord{3, 1}, geom.Coord{1, 1},
				geom.Coord{1, 3}, geom.Coord{0, 3},
			),
		})

		lon1, lat1 := RepresentativePoint(u)
		lon2, lat2 := RepresentativePoint(u)
		assert.Equal(t, lon1, lon2)
		assert.Equal(t, lat1, lat2)
	})
}
