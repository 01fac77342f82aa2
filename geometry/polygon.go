package geometry

import (
	"tzf/util"

	"github.com/paulmach/orb"
)

// FixedRing is a polygon ring in fixed-point coordinates as it is stored in the index: all x values followed by all
// y values. The closing vertex is implicit.
type FixedRing struct {
	X []int32
	Y []int32
}

func (r FixedRing) Len() int {
	return len(r.X)
}

// NewFixedRing converts an orb ring into fixed-point coordinates. A closing vertex equal to the first one is dropped.
func NewFixedRing(ring orb.Ring) FixedRing {
	points := []orb.Point(ring)
	if len(points) > 1 && points[0].Equal(points[len(points)-1]) {
		points = points[:len(points)-1]
	}

	fixedRing := FixedRing{
		X: make([]int32, len(points)),
		Y: make([]int32, len(points)),
	}
	for i, p := range points {
		fixedRing.X[i] = util.ToFixed(p.Lon())
		fixedRing.Y[i] = util.ToFixed(p.Lat())
	}
	return fixedRing
}

// ToOrbRing converts the ring back into degrees and appends the closing vertex.
func (r FixedRing) ToOrbRing() orb.Ring {
	ring := make(orb.Ring, 0, r.Len()+1)
	for i := 0; i < r.Len(); i++ {
		ring = append(ring, orb.Point{util.FromFixed(r.X[i]), util.FromFixed(r.Y[i])})
	}
	if r.Len() > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

// PositionToLine tells whether the point (x,y) is left (-1), on (0) or right (1) of the directed line from (x1,y1) to
// (x2,y2). The result is only meaningful when y lies within ]y1;y2] (or ]y2;y1] for a downward line). This
// precondition guarantees y1 != y2, so no degenerate horizontal cases have to be handled.
func PositionToLine(x, y, x1, x2, y1, y2 int64) int {
	// side is -1 when the point lies west of where the line crosses the latitude y, 1 when it lies east.
	var side int

	switch {
	case x > max(x1, x2):
		side = 1
	case x < min(x1, x2):
		side = -1
	case x1 == x2:
		// x equals x1 here
		return 0
	default:
		// Divide first, the products of fixed-point values get large.
		deltaX := float64(y-y1)*(float64(x2-x1)/float64(y2-y1)) + float64(x1-x)
		if deltaX == 0 {
			return 0
		} else if deltaX > 0 {
			side = -1
		} else {
			side = 1
		}
	}

	if y1 > y2 {
		return -side
	}
	return side
}

// InsidePolygon uses the winding number algorithm to determine whether (x,y) lies within the ring. An upward edge
// crossing the latitude y with the point on its left increases the winding number, a downward edge with the point on
// its right decreases it. Crossings are counted on the half-open interval ]y1;y2] so that a point on the latitude of a
// shared vertex is attributed to exactly one edge.
func InsidePolygon(x, y int64, ring FixedRing) bool {
	n := ring.Len()
	if n < 3 {
		return false
	}

	windingNumber := 0
	for i := 0; i < n; i++ {
		// Edge from the previous vertex to vertex i. For i=0 this is the implicit closing edge.
		previous := i - 1
		if previous < 0 {
			previous = n - 1
		}

		x1, y1 := int64(ring.X[previous]), int64(ring.Y[previous])
		x2, y2 := int64(ring.X[i]), int64(ring.Y[i])

		if y1 < y {
			if y2 >= y && PositionToLine(x, y, x1, x2, y1, y2) == -1 {
				windingNumber++
			}
		} else if y2 < y && PositionToLine(x, y, x1, x2, y1, y2) == 1 {
			windingNumber--
		}
	}

	return windingNumber != 0
}
