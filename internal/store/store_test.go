package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/geo"
)

// testStore connects to the database named by TEST_MONGO_URI and drops the
// test database afterwards. Tests using it are skipped when the variable is
// unset.
func testStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, uri, "footprints_test", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	})

	return s, ctx
}

func testBoundaryDoc(t *testing.T, seq int, code, name string, minX, minY, maxX, maxY float64) MunicipalityDoc {
	t.Helper()

	geometry := fmt.Sprintf(`{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}`,
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY)

	doc, err := BoundaryFromFeature(seq, &geo.Feature{
		Type:     "Feature",
		Geometry: json.RawMessage(geometry),
		Properties: map[string]interface{}{
			"mpio_cdpmp": code,
			"mpio_cnmbr": name,
			"dpto_cnmbr": "Antioquia",
			"dpto_ccdgo": "05",
		},
	})
	require.NoError(t, err)

	return doc
}

func testBuildingDoc(t *testing.T, code, name string, lon, lat, area float64, meta BuildingMetadata) BuildingDoc {
	t.Helper()

	d := 0.0001
	geometry := fmt.Sprintf(`{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}`,
		lon-d, lat-d, lon+d, lat-d, lon+d, lat+d, lon-d, lat+d, lon-d, lat-d)

	props := map[string]interface{}{"area_m2": area}
	if code != "" {
		props["municipality_code"] = code
		props["municipality_name"] = name
		props["department"] = "Antioquia"
	}

	doc, err := BuildingFromFeature(&geo.Feature{
		Type:       "Feature",
		Geometry:   json.RawMessage(geometry),
		Properties: props,
	}, "Test", meta)
	require.NoError(t, err)

	return doc
}

func TestStoreRoundTrip(t *testing.T) {
	s, ctx := testStore(t)

	specs := []CollectionSpec{
		MunicipalitySpec("municipalities"),
		BuildingSpec("buildings_test", "Test"),
	}
	require.NoError(t, s.EnsureCollections(ctx, specs...))
	// Provisioning twice must be a no-op.
	require.NoError(t, s.EnsureCollections(ctx, specs...))

	names, err := s.IndexNames(ctx, "municipalities")
	require.NoError(t, err)
	assert.Contains(t, names, "geometry_2dsphere")
	assert.Contains(t, names, "codigo_dane_unique")
	assert.Contains(t, names, "is_pdet_index")

	names, err = s.IndexNames(ctx, "buildings_test")
	require.NoError(t, err)
	assert.Contains(t, names, "geometry_2dsphere")
	assert.Contains(t, names, "municipality_code_index")
	assert.Contains(t, names, "area_m2_index")

	t.Run("municipalities", func(t *testing.T) {
		docs := []MunicipalityDoc{
			testBoundaryDoc(t, 1, "05088", "Bello", -75, 7, -74, 8),
			testBoundaryDoc(t, 0, "05045", "Apartadó", -76, 7, -75, 8),
		}
		n, err := s.ReplaceMunicipalities(ctx, "municipalities", docs)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Replacing again must not duplicate.
		n, err = s.ReplaceMunicipalities(ctx, "municipalities", docs)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := s.Municipalities(ctx, "municipalities")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "05045", got[0].CodigoDane)
		assert.Equal(t, "05088", got[1].CodigoDane)

		candidates, err := Candidates(got)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		index := assign.NewIndex(candidates)
		id := index.Locate(-75.5, 7.5)
		require.NotNil(t, id)
		assert.Equal(t, "05045", id.Code)
	})

	meta := NewLoadMetadata("v1.0")

	t.Run("bulk insert tolerates validator rejections", func(t *testing.T) {
		docs := []BuildingDoc{
			testBuildingDoc(t, "05045", "Apartadó", -75.5, 7.5, 120, meta),
			testBuildingDoc(t, "05045", "Apartadó", -75.4, 7.4, 80, meta),
			testBuildingDoc(t, "05088", "Bello", -74.5, 7.5, 300, meta),
			testBuildingDoc(t, "", "", -70.0, 2.0, 50, meta),
		}
		rejected := testBuildingDoc(t, "05045", "Apartadó", -75.6, 7.6, 10, meta)
		rejected.Source = "Wrong"
		docs = append(docs, rejected)

		inserted, failed, err := s.BulkInsertBuildings(ctx, "buildings_test", docs)
		require.NoError(t, err)
		assert.Equal(t, 4, inserted)
		assert.Equal(t, 1, failed)

		total, err := s.Count(ctx, "buildings_test")
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
	})

	t.Run("collection stats", func(t *testing.T) {
		stats, err := s.CollectionStats(ctx, "buildings_test")
		require.NoError(t, err)

		assert.EqualValues(t, 4, stats.Total)
		assert.EqualValues(t, 3, stats.WithMunicipality)
		assert.EqualValues(t, 1, stats.WithoutMunicipality)
		assert.InDelta(t, 550, stats.TotalAreaM2, 1e-6)
		assert.InDelta(t, 137.5, stats.AvgAreaM2, 1e-6)
		assert.InDelta(t, 50, stats.MinAreaM2, 1e-6)
		assert.InDelta(t, 300, stats.MaxAreaM2, 1e-6)
	})

	t.Run("top municipalities", func(t *testing.T) {
		aggs, err := s.TopMunicipalities(ctx, "buildings_test", "municipalities", 10)
		require.NoError(t, err)
		require.Len(t, aggs, 2)

		assert.Equal(t, "05088", aggs[0].Code)
		assert.Equal(t, "Bello", aggs[0].Name)
		assert.Equal(t, "Antioquia", aggs[0].Department)
		assert.EqualValues(t, 1, aggs[0].Buildings)
		assert.InDelta(t, 300, aggs[0].TotalAreaM2, 1e-6)

		assert.Equal(t, "05045", aggs[1].Code)
		assert.EqualValues(t, 2, aggs[1].Buildings)
		assert.InDelta(t, 200, aggs[1].TotalAreaM2, 1e-6)
		assert.InDelta(t, 100, aggs[1].AvgAreaM2, 1e-6)
	})

	t.Run("verification probes", func(t *testing.T) {
		counts, err := s.CollectionCounts(ctx, "municipalities", "buildings_test")
		require.NoError(t, err)
		for _, c := range counts {
			assert.True(t, c.OK, c.Name)
		}

		spatial, err := s.SpatialIndexes(ctx, "municipalities", "buildings_test")
		require.NoError(t, err)
		for _, c := range spatial {
			assert.True(t, c.OK, c.Name)
		}

		rate, err := s.AssignmentRate(ctx, "buildings_test")
		require.NoError(t, err)
		assert.True(t, rate.OK, rate.Detail)
	})
}
