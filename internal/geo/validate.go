package geo

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// InvalidGeometryError marks a shape the pipeline cannot measure: wrong
// geometry type, open or degenerate rings, coordinates outside the
// geographic range. Records failing with it are skipped and counted, never
// fatal.
type InvalidGeometryError struct {
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return "invalid geometry: " + e.Reason
}

func invalidf(format string, args ...interface{}) error {
	return &InvalidGeometryError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that g is a Polygon or MultiPolygon usable for area and
// containment math. The closing vertex does not count: a ring needs at least
// 3 distinct vertices and a nonzero area.
func Validate(g geom.T) error {
	polys, err := polygons(g)
	if err != nil {
		return err
	}

	for _, p := range polys {
		for i := 0; i < p.NumLinearRings(); i++ {
			if err := validateRing(p.LinearRing(i).Coords()); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateRing(ring []geom.Coord) error {
	distinct := make(map[[2]float64]struct{}, len(ring))
	for _, c := range ring {
		lon, lat := c[0], c[1]
		if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
			return invalidf("non-finite coordinate")
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return invalidf("coordinate out of range: %g, %g", lon, lat)
		}
		distinct[[2]float64{lon, lat}] = struct{}{}
	}

	if len(distinct) < 3 {
		return invalidf("ring has %d distinct vertices, need at least 3", len(distinct))
	}
	if shoelace(ring) == 0 {
		return invalidf("degenerate ring with zero area")
	}

	return nil
}

// polygons normalizes g to its polygon members.
func polygons(g geom.T) ([]*geom.Polygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil, invalidf("empty polygon")
		}
		return []*geom.Polygon{t}, nil

	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil, invalidf("empty multipolygon")
		}
		out := make([]*geom.Polygon, t.NumPolygons())
		for i := range out {
			out[i] = t.Polygon(i)
			if out[i].NumLinearRings() == 0 {
				return nil, invalidf("empty polygon in multipolygon")
			}
		}
		return out, nil

	case nil:
		return nil, invalidf("missing geometry")

	default:
		return nil, invalidf("unsupported geometry type %T", g)
	}
}

// shoelace is the signed double-area sum over a ring, halved. It closes the
// ring implicitly, so open and closed vertex lists measure the same.
func shoelace(ring []geom.Coord) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}

	return sum / 2
}
