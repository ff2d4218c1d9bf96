package assign

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/pdetsolar/footprints/internal/geo"
)

func squareBoundary(t *testing.T, minX, minY, maxX, maxY float64) *geom.Polygon {
	t.Helper()
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})
}

func candidate(t *testing.T, seq int, code string, minX, minY, maxX, maxY float64) *Municipality {
	t.Helper()
	m, err := NewMunicipality(seq,
		Identity{Code: code, Name: "M" + code, Department: "D" + code},
		"",
		squareBoundary(t, minX, minY, maxX, maxY))
	require.NoError(t, err)
	return m
}

func TestNewMunicipalityRejectsInvalidBoundary(t *testing.T) {
	degenerate := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {1, 1}, {0, 0},
	}})

	_, err := NewMunicipality(0, Identity{Code: "00000"}, "", degenerate)
	require.Error(t, err)

	var invalid *geo.InvalidGeometryError
	assert.True(t, errors.As(err, &invalid))
}

func TestLocate(t *testing.T) {
	a := candidate(t, 0, "05001", 0, 0, 10, 10)
	b := candidate(t, 1, "05002", 20, 0, 30, 10)
	ix := NewIndex([]*Municipality{a, b})

	t.Run("inside exactly one", func(t *testing.T) {
		id := ix.Locate(5, 5)
		require.NotNil(t, id)
		assert.Equal(t, "05001", id.Code)
		assert.Equal(t, "M05001", id.Name)
		assert.Equal(t, "D05001", id.Department)

		id = ix.Locate(25, 5)
		require.NotNil(t, id)
		assert.Equal(t, "05002", id.Code)
	})

	t.Run("outside all is unassigned", func(t *testing.T) {
		assert.Nil(t, ix.Locate(15, 5))
		assert.Nil(t, ix.Locate(-5, -5))
		assert.Nil(t, ix.Locate(5, 50))
	})
}

func TestLocateTieBreakFollowsLoadOrder(t *testing.T) {
	// Two overlapping boundaries; any point in the overlap is contained by
	// both, so the load order decides.
	first := candidate(t, 0, "05001", 0, 0, 10, 10)
	second := candidate(t, 1, "05002", 5, 0, 15, 10)

	t.Run("first candidate wins", func(t *testing.T) {
		ix := NewIndex([]*Municipality{first, second})
		id := ix.Locate(7, 5)
		require.NotNil(t, id)
		assert.Equal(t, "05001", id.Code)
	})

	t.Run("reordering flips the winner", func(t *testing.T) {
		swappedA := candidate(t, 0, "05002", 5, 0, 15, 10)
		swappedB := candidate(t, 1, "05001", 0, 0, 10, 10)

		ix := NewIndex([]*Municipality{swappedA, swappedB})
		id := ix.Locate(7, 5)
		require.NotNil(t, id)
		assert.Equal(t, "05002", id.Code)
	})

	t.Run("construction order does not matter, seq does", func(t *testing.T) {
		ix := NewIndex([]*Municipality{second, first})
		id := ix.Locate(7, 5)
		require.NotNil(t, id)
		assert.Equal(t, "05001", id.Code)
	})
}

func TestLocateMatchesLinearScan(t *testing.T) {
	// A patchwork of boundaries, some overlapping. Every grid point must
	// resolve identically through the tree and through a plain ordered scan.
	ms := []*Municipality{
		candidate(t, 0, "05001", 0, 0, 4, 4),
		candidate(t, 1, "05002", 3, 0, 8, 5),
		candidate(t, 2, "05003", 0, 3, 5, 9),
		candidate(t, 3, "05004", 6, 6, 12, 12),
		candidate(t, 4, "05005", -4, -4, 0.5, 0.5),
	}
	ix := NewIndex(ms)

	linear := func(lon, lat float64) *Identity {
		for _, m := range ms {
			if geo.Contains(m.Geom(), lon, lat) {
				id := m.Identity
				return &id
			}
		}
		return nil
	}

	for x := -5.0; x <= 13.0; x += 0.7 {
		for y := -5.0; y <= 13.0; y += 0.7 {
			want := linear(x, y)
			got := ix.Locate(x, y)

			if want == nil {
				assert.Nil(t, got, "point (%g, %g)", x, y)
				continue
			}
			require.NotNil(t, got, "point (%g, %g)", x, y)
			assert.Equal(t, want.Code, got.Code, "point (%g, %g)", x, y)
		}
	}
}

func TestAssignUsesRepresentativePoint(t *testing.T) {
	// A U-shaped building whose centroid falls in the notch, over a
	// boundary that only covers the U itself. The raw centroid would miss.
	boundary := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {4, 0}, {4, 3}, {3, 3}, {3, 1}, {1, 1}, {1, 3}, {0, 3}, {0, 0},
	}})
	m, err := NewMunicipality(0, Identity{Code: "05001", Name: "Shaped"}, "", boundary)
	require.NoError(t, err)
	ix := NewIndex([]*Municipality{m})

	building := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0.1, 0.1}, {3.9, 0.1}, {3.9, 2.9}, {3.1, 2.9}, {3.1, 0.9},
		{0.9, 0.9}, {0.9, 2.9}, {0.1, 2.9}, {0.1, 0.1},
	}})

	id := ix.Assign(building)
	require.NotNil(t, id)
	assert.Equal(t, "05001", id.Code)
}

func TestIndexScales(t *testing.T) {
	// More candidates than a tree node holds, to exercise splits.
	ms := make([]*Municipality, 0, 200)
	for i := 0; i < 200; i++ {
		x := float64(i%20) * 10
		y := float64(i/20) * 10
		ms = append(ms, candidate(t, i, fmt.Sprintf("%05d", i), x, y, x+9, y+9))
	}
	ix := NewIndex(ms)
	assert.Equal(t, 200, ix.Size())

	for i, m := range ms {
		lon, lat := geo.RepresentativePoint(m.Geom())
		id := ix.Locate(lon, lat)
		require.NotNil(t, id, "candidate %d", i)
		assert.Equal(t, m.Code, id.Code)
	}
}
