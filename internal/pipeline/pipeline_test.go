package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/geo"
	"github.com/pdetsolar/footprints/internal/sample"
)

func boundary(t *testing.T, seq int, code string, minX, minY, maxX, maxY float64) *assign.Municipality {
	t.Helper()

	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})

	m, err := assign.NewMunicipality(seq, assign.Identity{
		Code:       code,
		Name:       "Municipality " + code,
		Department: "Antioquia",
	}, "Bajo Cauca", poly)
	require.NoError(t, err)

	return m
}

func buildingLine(t *testing.T, id string, lon, lat float64) string {
	t.Helper()

	dLat, dLon := geo.MetersToDegrees(5, lat)
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{lon - dLon, lat - dLat},
		{lon + dLon, lat - dLat},
		{lon + dLon, lat + dLat},
		{lon - dLon, lat + dLat},
		{lon - dLon, lat - dLat},
	}})

	f, err := geo.NewFeature(poly, map[string]interface{}{"id": id})
	require.NoError(t, err)

	var buf bytes.Buffer
	w := geo.NewWriter(&buf)
	require.NoError(t, w.Write(f))
	require.NoError(t, w.Flush())

	return buf.String()
}

func readAll(t *testing.T, r io.Reader) []*geo.Feature {
	t.Helper()

	var out []*geo.Feature
	reader := geo.NewReader(r)
	for {
		f, err := reader.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, f)
	}

	return out
}

func TestRunEnriches(t *testing.T) {
	index := assign.NewIndex([]*assign.Municipality{
		boundary(t, 0, "05045", -76, 7, -75, 8),
	})

	input := buildingLine(t, "a", -75.5, 7.5) + buildingLine(t, "b", -75.2, 7.1)

	var out bytes.Buffer
	stats, err := New(index, 1, 0).Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 2, stats.Assigned)
	assert.Equal(t, 0, stats.Unassigned)
	assert.Greater(t, stats.TotalAreaM2, 0.0)

	features := readAll(t, &out)
	require.Len(t, features, 2)
	for _, f := range features {
		assert.Equal(t, "05045", f.Properties["municipality_code"])
		assert.Equal(t, "Municipality 05045", f.Properties["municipality_name"])
		assert.Equal(t, "Antioquia", f.Properties["department"])
		assert.InEpsilon(t, 100.0, f.Properties["area_m2"].(float64), 0.02)
	}
}

func TestRunLeavesOutsidersUnassigned(t *testing.T) {
	index := assign.NewIndex([]*assign.Municipality{
		boundary(t, 0, "05045", -76, 7, -75, 8),
	})

	input := buildingLine(t, "inside", -75.5, 7.5) + buildingLine(t, "outside", -70.0, 2.0)

	var out bytes.Buffer
	stats, err := New(index, 1, 0).Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Assigned)
	assert.Equal(t, 1, stats.Unassigned)
	assert.Equal(t, 2, stats.Written)

	features := readAll(t, &out)
	require.Len(t, features, 2)

	outsider := features[1]
	assert.NotContains(t, outsider.Properties, "municipality_code")
	assert.NotContains(t, outsider.Properties, "municipality_name")
	assert.NotContains(t, outsider.Properties, "department")
	assert.Contains(t, outsider.Properties, "area_m2")
}

func TestRunSkipsBadRecordsAndKeepsGoing(t *testing.T) {
	index := assign.NewIndex([]*assign.Municipality{
		boundary(t, 0, "05045", -76, 7, -75, 8),
	})

	degenerate := `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[-75.5,7.5],[-75.5,7.5],[-75.5,7.5],[-75.5,7.5]]]},"properties":{"id":"flat"}}` + "\n"
	point := `{"type":"Feature","geometry":{"type":"Point","coordinates":[-75.5,7.5]},"properties":{"id":"pt"}}` + "\n"

	input := buildingLine(t, "first", -75.5, 7.5) +
		"{this is not json\n" +
		degenerate +
		point +
		buildingLine(t, "last", -75.3, 7.3)

	var out bytes.Buffer
	stats, err := New(index, 2, 2).Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 1, stats.SkippedJSON)
	assert.Equal(t, 2, stats.SkippedGeom)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 2, stats.Assigned)

	features := readAll(t, &out)
	require.Len(t, features, 2)
	assert.Equal(t, "first", features[0].Properties["id"])
	assert.Equal(t, "last", features[1].Properties["id"])
}

func TestRunPreservesInputOrder(t *testing.T) {
	index := assign.NewIndex([]*assign.Municipality{
		boundary(t, 0, "05045", -76, 7, -75, 8),
	})

	const n = 200
	var input strings.Builder
	for i := 0; i < n; i++ {
		lon := -75.9 + 0.8*float64(i)/n
		input.WriteString(buildingLine(t, fmt.Sprintf("f%03d", i), lon, 7.5))
	}

	var out bytes.Buffer
	stats, err := New(index, 8, 16).Run(context.Background(), strings.NewReader(input.String()), &out)
	require.NoError(t, err)
	require.Equal(t, n, stats.Written)

	features := readAll(t, &out)
	require.Len(t, features, n)
	for i, f := range features {
		assert.Equal(t, fmt.Sprintf("f%03d", i), f.Properties["id"])
	}
}

func TestRunIsDeterministic(t *testing.T) {
	index := assign.NewIndex([]*assign.Municipality{
		boundary(t, 0, "05045", -76, 7, -75, 8),
		boundary(t, 1, "05088", -75, 7, -74, 8),
	})

	var input strings.Builder
	for i := 0; i < 50; i++ {
		input.WriteString(buildingLine(t, fmt.Sprintf("f%02d", i), -75.95+0.038*float64(i), 7.4))
	}

	run := func() []byte {
		var out bytes.Buffer
		_, err := New(index, 4, 8).Run(context.Background(), strings.NewReader(input.String()), &out)
		require.NoError(t, err)

		return out.Bytes()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestRunAssignsGeneratedFootprints(t *testing.T) {
	municipalities := []*assign.Municipality{
		boundary(t, 0, "05045", -76.0, 7, -75.7, 8),
		boundary(t, 1, "05088", -75.7, 7, -75.4, 8),
		boundary(t, 2, "05120", -75.4, 7, -75.1, 8),
	}
	index := assign.NewIndex(municipalities)

	gen := sample.New(sample.Options{Source: "test", PerMunicipality: 500, Seed: 7})

	var input bytes.Buffer
	w := geo.NewWriter(&input)
	want := map[string]int{}
	for _, m := range municipalities {
		features := gen.Generate(m)
		want[m.Code] = len(features)
		for _, f := range features {
			require.NoError(t, w.Write(f))
		}
	}
	require.NoError(t, w.Flush())

	var out bytes.Buffer
	stats, err := New(index, 4, 32).Run(context.Background(), &input, &out)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Unassigned)
	assert.Equal(t, 0, stats.SkippedJSON+stats.SkippedGeom)
	assert.Equal(t, want["05045"]+want["05088"]+want["05120"], stats.Assigned)

	got := map[string]int{}
	for _, f := range readAll(t, &out) {
		got[f.Properties["municipality_code"].(string)]++
	}
	assert.Equal(t, want, got)
}

func TestRunHonorsCancellation(t *testing.T) {
	index := assign.NewIndex(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := New(index, 1, 0).Run(ctx, strings.NewReader(buildingLine(t, "a", -75.5, 7.5)), &out)
	assert.ErrorIs(t, err, context.Canceled)
}
