package index

import (
	"tzf/geometry"
	"tzf/util"

	"github.com/paulmach/orb"
)

// PolygonRecord is one polygon of the builder input. Rings may or may not repeat their first vertex at the end.
type PolygonRecord struct {
	ZoneName string
	Outer    orb.Ring
	Holes    []orb.Ring
}

// Polygon returns the record as orb polygon with the outer ring first.
func (r PolygonRecord) Polygon() orb.Polygon {
	polygon := orb.Polygon{closeRing(r.Outer)}
	for _, hole := range r.Holes {
		polygon = append(polygon, closeRing(hole))
	}
	return polygon
}

func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 || ring[0].Equal(ring[len(ring)-1]) {
		return ring
	}
	return append(append(orb.Ring{}, ring...), ring[0])
}

// fixedBounds is the bounding box of a ring in the order stored in the index.
type fixedBounds struct {
	XMax int32
	XMin int32
	YMax int32
	YMin int32
}

func boundsOfRing(ring geometry.FixedRing) fixedBounds {
	bounds := fixedBounds{
		XMax: ring.X[0],
		XMin: ring.X[0],
		YMax: ring.Y[0],
		YMin: ring.Y[0],
	}
	for i := 1; i < ring.Len(); i++ {
		bounds.XMax = max(bounds.XMax, ring.X[i])
		bounds.XMin = min(bounds.XMin, ring.X[i])
		bounds.YMax = max(bounds.YMax, ring.Y[i])
		bounds.YMin = min(bounds.YMin, ring.Y[i])
	}
	return bounds
}

func (b fixedBounds) contains(x int64, y int64) bool {
	return x <= int64(b.XMax) && x >= int64(b.XMin) && y <= int64(b.YMax) && y >= int64(b.YMin)
}

func (b fixedBounds) toOrbBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{util.FromFixed(b.XMin), util.FromFixed(b.YMin)},
		Max: orb.Point{util.FromFixed(b.XMax), util.FromFixed(b.YMax)},
	}
}
