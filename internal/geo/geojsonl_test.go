package geo

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const featureLine = `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"source":"test"}}`

func TestReader(t *testing.T) {
	input := featureLine + "\n" +
		"\n" +
		"not json\n" +
		featureLine + "\n"

	r := NewReader(strings.NewReader(input))

	first, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "Feature", first.Type)
	assert.Equal(t, "test", first.Properties["source"])
	assert.Equal(t, 1, r.Line())

	_, err = r.Read()
	require.Error(t, err)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 3, lineErr.Line)

	// The stream survives a bad line.
	third, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "Feature", third.Type)
	assert.Equal(t, 4, r.Line())

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriterDeterministic(t *testing.T) {
	f := &Feature{
		Type:     "Feature",
		Geometry: []byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`),
		Properties: map[string]interface{}{
			"zeta":   1.0,
			"alpha":  "x",
			"middle": true,
		},
	}

	render := func() []byte {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.Write(f))
		require.NoError(t, w.Flush())
		return buf.Bytes()
	}

	one := render()
	two := render()
	assert.Equal(t, one, two, "identical features must render to identical bytes")
	assert.Equal(t, byte('\n'), one[len(one)-1])

	// Map keys marshal sorted.
	line := string(one)
	assert.Less(t, strings.Index(line, "alpha"), strings.Index(line, "middle"))
	assert.Less(t, strings.Index(line, "middle"), strings.Index(line, "zeta"))
}

func TestReadWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Write(&Feature{
			Type:       "Feature",
			Geometry:   []byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`),
			Properties: map[string]interface{}{"i": float64(i)},
		}))
	}
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	for i := 0; i < 3; i++ {
		f, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, float64(i), f.Properties["i"])
	}

	_, err := r.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFeatureCollection(t *testing.T) {
	t.Run("valid collection", func(t *testing.T) {
		input := `{"type":"FeatureCollection","features":[` + featureLine + `]}`

		fc, err := ReadFeatureCollection(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, fc.Features, 1)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := ReadFeatureCollection(strings.NewReader(featureLine))
		assert.Error(t, err)
	})
}

func TestFeatureGeom(t *testing.T) {
	t.Run("polygon parses", func(t *testing.T) {
		var f Feature
		f.Geometry = []byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`)

		g, err := f.Geom()
		require.NoError(t, err)
		_, ok := g.(*geom.Polygon)
		assert.True(t, ok)
	})

	t.Run("missing geometry", func(t *testing.T) {
		var f Feature

		_, err := f.Geom()
		var invalid *InvalidGeometryError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("null geometry", func(t *testing.T) {
		f := Feature{Geometry: []byte("null")}

		_, err := f.Geom()
		var invalid *InvalidGeometryError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("round trip through SetGeom", func(t *testing.T) {
		p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			closedRing(geom.Coord{0, 0}, geom.Coord{1, 0}, geom.Coord{1, 1}),
		})

		f, err := NewFeature(p, map[string]interface{}{"a": 1.0})
		require.NoError(t, err)

		g, err := f.Geom()
		require.NoError(t, err)
		back, ok := g.(*geom.Polygon)
		require.True(t, ok)
		assert.Equal(t, p.FlatCoords(), back.FlatCoords())
	})
}
