package geo

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Contains reports whether the geographic point lies inside the shape:
// inside the outer ring and outside every hole (even-odd rule). MultiPolygon
// members are tested in order.
func Contains(g geom.T, lon, lat float64) bool {
	polys, err := polygons(g)
	if err != nil {
		return false
	}

	pt := geom.Coord{lon, lat}
	for _, p := range polys {
		if !xy.IsPointInRing(geom.XY, pt, p.LinearRing(0).FlatCoords()) {
			continue
		}

		inHole := false
		for i := 1; i < p.NumLinearRings(); i++ {
			if xy.IsPointInRing(geom.XY, pt, p.LinearRing(i).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}

	return false
}

// RepresentativePoint returns a point guaranteed to lie on the shape's
// surface. The centroid is used when it falls inside (the common case);
// otherwise the midpoint of the widest inside-interval on the horizontal
// line through the centroid, which stays correct for concave and holed
// shapes. A MultiPolygon defers to its largest member.
func RepresentativePoint(g geom.T) (lon, lat float64) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return 0, 0
		}
		return RepresentativePoint(largestMember(t))

	case *geom.Polygon:
		cx, cy := Centroid(t)
		if Contains(t, cx, cy) {
			return cx, cy
		}
		return surfacePoint(t, cy)

	case nil:
		return 0, 0

	default:
		b := g.Bounds()
		return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2
	}
}

// largestMember picks the member polygon with the biggest outer ring area.
func largestMember(mp *geom.MultiPolygon) *geom.Polygon {
	best := mp.Polygon(0)
	bestArea := -1.0

	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if p.NumLinearRings() == 0 {
			continue
		}
		if a := math.Abs(shoelace(p.LinearRing(0).Coords())); a > bestArea {
			bestArea = a
			best = p
		}
	}

	return best
}

// surfacePoint finds the widest run of polygon interior along the horizontal
// line y by collecting ring crossings and pairing them even-odd.
func surfacePoint(p *geom.Polygon, y float64) (lon, lat float64) {
	xs := crossings(p, y)
	if len(xs) < 2 || len(xs)%2 != 0 {
		// The line grazed a vertex; nudge it and retry once.
		b := p.Bounds()
		y += (b.Max(1) - b.Min(1)) * 1e-9
		xs = crossings(p, y)
	}
	if len(xs) < 2 {
		return Centroid(p)
	}

	sort.Float64s(xs)

	bestWidth := -1.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			lon = (xs[i] + xs[i+1]) / 2
		}
	}

	return lon, y
}

// crossings collects the x coordinates where any ring crosses the horizontal
// line y. Segments are tested with the strict straddle rule so a shared
// vertex is counted once.
func crossings(p *geom.Polygon, y float64) []float64 {
	var xs []float64
	for r := 0; r < p.NumLinearRings(); r++ {
		ring := p.LinearRing(r).Coords()
		n := len(ring)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			y1, y2 := ring[i][1], ring[j][1]
			if (y1 > y) == (y2 > y) {
				continue
			}
			x1, x2 := ring[i][0], ring[j][0]
			xs = append(xs, x1+(y-y1)*(x2-x1)/(y2-y1))
		}
	}

	return xs
}
