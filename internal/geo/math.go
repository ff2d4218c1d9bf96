package geo

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and transverse Mercator constants.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563
	scaleFactor   = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0 // southern hemisphere offset
)

// Zone identifies the UTM zone an area computation projects into.
type Zone struct {
	Number int
	North  bool
}

// ZoneFor derives the UTM zone of a geographic point: the number from the
// 6-degree longitude band, the hemisphere from the latitude sign.
func ZoneFor(lon, lat float64) Zone {
	n := int(math.Floor((lon+180)/6)) + 1
	if n < 1 {
		n = 1
	}
	if n > 60 {
		n = 60
	}

	return Zone{Number: n, North: lat >= 0}
}

// EPSG returns the zone's EPSG code (326xx north, 327xx south).
func (z Zone) EPSG() int {
	if z.North {
		return 32600 + z.Number
	}
	return 32700 + z.Number
}

func (z Zone) String() string {
	return fmt.Sprintf("EPSG:%d", z.EPSG())
}

// centralMeridian returns the zone's central meridian in degrees.
func (z Zone) centralMeridian() float64 {
	return float64(z.Number-1)*6 - 180 + 3
}

// Project converts geographic coordinates (degrees) into the zone's planar
// easting/northing in meters, using the standard transverse Mercator series
// (USGS Professional Paper 1395, eq. 8-9 through 8-15) on the WGS84
// ellipsoid. Accuracy is well under a meter anywhere inside the zone.
func (z Zone) Project(lon, lat float64) (x, y float64) {
	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	lambda0 := z.centralMeridian() * math.Pi / 180

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	nu := semiMajorAxis / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lambda - lambda0) * cosPhi

	m := semiMajorAxis * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*phi -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*phi) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*phi) -
		(35*e2*e2*e2/3072)*math.Sin(6*phi))

	x = scaleFactor*nu*(a+
		(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*ep2)*a*a*a*a*a/120) + falseEasting

	y = scaleFactor * (m + nu*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*a*a*a*a/24+
		(61-58*t+t*t+600*c-330*ep2)*a*a*a*a*a*a/720))

	if !z.North {
		y += falseNorthing
	}

	return x, y
}

// MetersToDegrees converts a ground distance at the given latitude into the
// equivalent degree spans along the meridian and the parallel, using the
// WGS84 meridional and prime-vertical curvature radii.
func MetersToDegrees(meters, lat float64) (dLat, dLon float64) {
	phi := lat * math.Pi / 180
	e2 := flattening * (2 - flattening)
	sin2 := math.Sin(phi) * math.Sin(phi)

	rm := semiMajorAxis * (1 - e2) / math.Pow(1-e2*sin2, 1.5)
	rn := semiMajorAxis / math.Sqrt(1-e2*sin2)

	dLat = meters / rm * 180 / math.Pi
	dLon = meters / (rn * math.Cos(phi)) * 180 / math.Pi

	return dLat, dLon
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
