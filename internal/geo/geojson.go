// Package geo handles geographic data structures, the GeoJSONL codec and the
// UTM-projected area math used across the pipeline.
package geo

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a single geographic feature with geometry and
// properties. The geometry member stays raw until a caller needs it parsed,
// so untouched geometries pass through the pipeline byte for byte.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// NewFeature builds a feature around the given geometry.
func NewFeature(g geom.T, props map[string]interface{}) (*Feature, error) {
	f := &Feature{Type: "Feature", Properties: props}
	if err := f.SetGeom(g); err != nil {
		return nil, err
	}

	return f, nil
}

// Geom parses the raw geometry member.
func (f *Feature) Geom() (geom.T, error) {
	if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
		return nil, &InvalidGeometryError{Reason: "missing geometry"}
	}

	var g geom.T
	if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
		return nil, &InvalidGeometryError{Reason: err.Error()}
	}

	return g, nil
}

// SetGeom replaces the raw geometry member.
func (f *Feature) SetGeom(g geom.T) error {
	data, err := geojson.Marshal(g)
	if err != nil {
		return err
	}
	f.Geometry = data

	return nil
}
