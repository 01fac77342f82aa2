package geometry

import (
	"math"
	"tzf/util"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

// EarthDiameterKm is the mean diameter of the earth. All distances are computed on a sphere with this diameter.
const EarthDiameterKm = 12_742.0

// MaxDistanceKm is larger than any distance between two points on the earth.
const MaxDistanceKm = 40_100.0

type DistanceMetric int

const (
	// DistanceVertices measures the distance to the closest vertex of a ring.
	DistanceVertices DistanceMetric = iota
	// DistanceEdges measures the exact distance to the closest point on any edge of a ring.
	DistanceEdges
)

func (m DistanceMetric) String() string {
	switch m {
	case DistanceVertices:
		return "vertices"
	case DistanceEdges:
		return "edges"
	}
	return "unknown"
}

func Radians(degree float64) float64 {
	return (s1.Angle(degree) * s1.Degree).Radians()
}

func Degrees(radians float64) float64 {
	return s1.Angle(radians).Degrees()
}

// Haversine returns the great-circle distance in km between two points given in radians.
func Haversine(lngRad1, latRad1, lngRad2, latRad2 float64) float64 {
	sinLat := math.Sin((latRad1 - latRad2) / 2)
	sinLng := math.Sin((lngRad1 - lngRad2) / 2)
	return EarthDiameterKm * safeAsin(math.Sqrt(sinLat*sinLat+math.Cos(latRad2)*math.Cos(latRad1)*sinLng*sinLng))
}

// DistanceToPointOnEquator is the haversine distance in km between (lngRad, latRad) and the point (lngRadP1, 0).
func DistanceToPointOnEquator(lngRad, latRad, lngRadP1 float64) float64 {
	sinLat := math.Sin(latRad / 2)
	sinLng := math.Sin((lngRad - lngRadP1) / 2)
	return EarthDiameterKm * safeAsin(math.Sqrt(sinLat*sinLat+math.Cos(latRad)*sinLng*sinLng))
}

// ComputeMinDistance returns the shortest distance in km between the point (lngRad, latRad) and the two edges
// pPrev-p0 and p0-pNext. All coordinates are in radians.
//
// The sphere is rotated so that p0 becomes the origin. For each neighbour a second rotation around the x-axis moves
// that neighbour onto the equator. The closest point of the edge then is the point on the equator whose longitude is
// the point's longitude clamped to the edge.
func ComputeMinDistance(lngRad, latRad, p0Lng, p0Lat, pPrevLng, pPrevLat, pNextLng, pNextLat float64) float64 {
	point := yRotate(p0Lat, toCartesian(lngRad-p0Lng, latRad))
	next := yRotate(p0Lat, toCartesian(pNextLng-p0Lng, pNextLat))
	previous := yRotate(p0Lat, toCartesian(pPrevLng-p0Lng, pPrevLat))

	return math.Min(distanceToEdgeOnEquator(point, next), distanceToEdgeOnEquator(point, previous))
}

// distanceToEdgeOnEquator expects the edge to start at the origin (0,0) and to end at "neighbour".
func distanceToEdgeOnEquator(point r3.Vector, neighbour r3.Vector) float64 {
	rotation := math.Atan2(neighbour.Z, neighbour.Y)
	rotatedNeighbour := xRotate(rotation, neighbour)
	neighbourLng := math.Atan2(rotatedNeighbour.Y, rotatedNeighbour.X)

	rotatedPoint := xRotate(rotation, point)
	pointLng := math.Atan2(rotatedPoint.Y, rotatedPoint.X)
	pointLat := safeAsin(rotatedPoint.Z)

	return DistanceToPointOnEquator(pointLng, pointLat, math.Max(math.Min(pointLng, neighbourLng), 0))
}

// DistanceToPolygon returns the distance in km between the point (in radians) and the closest vertex of the ring.
func DistanceToPolygon(lngRad, latRad float64, ring FixedRing) float64 {
	minDistance := MaxDistanceKm
	for i := 0; i < ring.Len(); i++ {
		minDistance = math.Min(minDistance, Haversine(lngRad, latRad, fixedToRadians(ring.X[i]), fixedToRadians(ring.Y[i])))
	}
	return minDistance
}

// DistanceToPolygonExact returns the distance in km between the point (in radians) and the closest point on any
// edge of the ring. Every second vertex is used as p0 of ComputeMinDistance, which covers both of its edges, so every
// edge is evaluated once.
func DistanceToPolygonExact(lngRad, latRad float64, ring FixedRing) float64 {
	n := ring.Len()
	if n == 0 {
		return MaxDistanceKm
	}
	if n < 3 {
		return DistanceToPolygon(lngRad, latRad, ring)
	}

	lngs := make([]float64, n)
	lats := make([]float64, n)
	for i := 0; i < n; i++ {
		lngs[i] = fixedToRadians(ring.X[i])
		lats[i] = fixedToRadians(ring.Y[i])
	}

	// The last vertex with its neighbours n-2 and 0 (closing edge)
	minDistance := ComputeMinDistance(lngRad, latRad, lngs[n-1], lats[n-1], lngs[0], lats[0], lngs[n-2], lats[n-2])

	previous := 0
	iterations := int(math.Ceil(float64(n)/2 - 1))
	for i, p0 := 0, 1; i < iterations; i, p0 = i+1, p0+2 {
		next := p0 + 1
		minDistance = math.Min(minDistance, ComputeMinDistance(lngRad, latRad, lngs[p0], lats[p0], lngs[previous], lats[previous], lngs[next], lats[next]))
		previous = next
	}

	return minDistance
}

func fixedToRadians(value int32) float64 {
	return Radians(util.FromFixed(value))
}

func toCartesian(lngRad, latRad float64) r3.Vector {
	return r3.Vector{
		X: math.Cos(lngRad) * math.Cos(latRad),
		Y: math.Sin(lngRad) * math.Cos(latRad),
		Z: math.Sin(latRad),
	}
}

// xRotate rotates around the x-axis. The angle is in radians.
func xRotate(rad float64, p r3.Vector) r3.Vector {
	sin, cos := math.Sincos(rad)
	return r3.Vector{
		X: p.X,
		Y: p.Y*cos + p.Z*sin,
		Z: p.Z*cos - p.Y*sin,
	}
}

// yRotate rotates around the y-axis by -rad.
func yRotate(rad float64, p r3.Vector) r3.Vector {
	sin, cos := math.Sincos(rad)
	return r3.Vector{
		X: p.X*cos + p.Z*sin,
		Y: p.Y,
		Z: p.Z*cos - p.X*sin,
	}
}

// safeAsin clamps rounding errors that would otherwise produce NaN.
func safeAsin(value float64) float64 {
	return math.Asin(math.Max(-1, math.Min(1, value)))
}
