package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// AreaM2 computes the shape's area in square meters: the geometry is
// projected into the UTM zone of its centroid and measured with the shoelace
// formula, holes subtracted, absolute value taken. The result is rounded to
// 2 decimal places.
//
// A shape spanning two zones is measured entirely in the centroid's zone;
// the distortion near the zone edge is an accepted approximation.
func AreaM2(g geom.T) (float64, error) {
	if err := Validate(g); err != nil {
		return 0, err
	}

	lon, lat := Centroid(g)
	zone := ZoneFor(lon, lat)

	polys, err := polygons(g)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, p := range polys {
		outer := math.Abs(shoelace(projectRing(zone, p.LinearRing(0).Coords())))

		var holes float64
		for i := 1; i < p.NumLinearRings(); i++ {
			holes += math.Abs(shoelace(projectRing(zone, p.LinearRing(i).Coords())))
		}

		total += outer - holes
	}

	return Round(total, 2), nil
}

// projectRing maps every ring vertex into the zone's planar coordinates.
func projectRing(z Zone, ring []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(ring))
	for i, c := range ring {
		x, y := z.Project(c[0], c[1])
		out[i] = geom.Coord{x, y}
	}

	return out
}

// Centroid returns the area-weighted centroid in geographic coordinates,
// holes subtracted. The weighting runs on unprojected degree areas; for what
// the centroid anchors (zone selection, the scanline) that distortion does
// not matter.
func Centroid(g geom.T) (lon, lat float64) {
	polys, err := polygons(g)
	if err != nil {
		return 0, 0
	}

	var wSum, lonSum, latSum float64
	for _, p := range polys {
		for i := 0; i < p.NumLinearRings(); i++ {
			ring := p.LinearRing(i).Coords()
			w := math.Abs(shoelace(ring))
			if i > 0 {
				w = -w
			}

			cx, cy := ringCentroid(ring)
			wSum += w
			lonSum += cx * w
			latSum += cy * w
		}
	}

	if wSum == 0 {
		// Degenerate shape, fall back to the outer-ring vertex mean.
		var n int
		lonSum, latSum = 0, 0
		for _, p := range polys {
			for _, c := range p.LinearRing(0).Coords() {
				lonSum += c[0]
				latSum += c[1]
				n++
			}
		}
		if n == 0 {
			return 0, 0
		}
		return lonSum / float64(n), latSum / float64(n)
	}

	return lonSum / wSum, latSum / wSum
}

// ringCentroid is the standard polygon centroid of one ring, not the vertex
// mean.
func ringCentroid(ring []geom.Coord) (cx, cy float64) {
	n := len(ring)
	a := shoelace(ring)
	if n < 3 || a == 0 {
		for _, c := range ring {
			cx += c[0]
			cy += c[1]
		}
		return cx / float64(n), cy / float64(n)
	}

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
		cx += (ring[i][0] + ring[j][0]) * cross
		cy += (ring[i][1] + ring[j][1]) * cross
	}

	return cx / (6 * a), cy / (6 * a)
}
