package index

import (
	"math"
	"sort"
	"tzf/common"
	"tzf/geometry"
	"tzf/util"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// isBigZone returns true if a polygon with the given bound could touch more than four shortcut cells. Only for such
// polygons the exact rasterization is worth it.
func isBigZone(bound orb.Bound) bool {
	return bound.Max.Lon()-bound.Min.Lon() > 2.0/common.ShortcutsPerLng &&
		bound.Max.Lat()-bound.Min.Lat() > 2.0/common.ShortcutsPerLat
}

// shortcutCellsOf returns the shortcut cells of the ring in x-major order. Small zones simply use all cells of their
// bounding box, big zones are rasterized.
func shortcutCellsOf(ring geometry.FixedRing, bound orb.Bound) ([]common.CellIndex, bool, error) {
	extent := common.GetCellExtentForBound(bound).Clamp()

	if !isBigZone(bound) {
		return extent.GetCellIndices(), false, nil
	}

	rasterizedCells, err := rasterize(ring, bound)
	if err != nil {
		return nil, true, err
	}

	var cells []common.CellIndex
	for cell := range rasterizedCells {
		if extent.Contains(cell) {
			cells = append(cells, cell)
		}
	}

	err = checkRasterization(len(cells), extent)
	if err != nil {
		return nil, true, err
	}

	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Ordinal() < cells[j].Ordinal()
	})

	sigolo.Tracef("Rasterized big zone to %d of %d cells of its bounding box", len(cells), extent.Size())

	return cells, true, nil
}

func checkRasterization(numberOfCells int, extent common.CellExtent) error {
	if numberOfCells > extent.Size() {
		return errors.Wrapf(ErrRasterization, "%d cells found but the bounding box only covers %d cells", numberOfCells, extent.Size())
	}
	if numberOfCells < 3 {
		return errors.Wrapf(ErrRasterization, "only %d cells found for a big zone", numberOfCells)
	}
	return nil
}

// rasterize determines all cells the ring covers. Every horizontal gridline crossing the bounding box is intersected
// with the ring. Between each pair of intersections the ring is inside and all cells along that interval are added.
// The same is done for the vertical gridlines to find cells that are only entered across their left or right border.
// The result is not yet clipped to the bounding box.
func rasterize(ring geometry.FixedRing, bound orb.Bound) (map[common.CellIndex]bool, error) {
	cells := map[common.CellIndex]bool{}

	xs := make([]int64, ring.Len()+1)
	ys := make([]int64, ring.Len()+1)
	for i := 0; i < ring.Len(); i++ {
		xs[i] = int64(ring.X[i])
		ys[i] = int64(ring.Y[i])
	}
	xs[ring.Len()] = xs[0]
	ys[ring.Len()] = ys[0]

	for _, lat := range gridlines(bound.Min.Lat(), bound.Max.Lat(), common.ShortcutsPerLat) {
		latFixed := int64(util.ToFixed(lat))
		row := common.RowOf(lat)

		intersections, err := gridlineIntersections(latFixed, ys, xs)
		if err != nil {
			return nil, errors.Wrapf(err, "at latitude %f", lat)
		}

		for i := 0; i < len(intersections); i += 2 {
			in, out := intersections[i], intersections[i+1]

			if in == out {
				// The ring only touches the gridline. The cell above is only used when the ring continues there.
				if geometry.InsidePolygon(int64(util.ToFixed(in)), latFixed+1, ring) {
					cells[common.CellIndex{common.ColumnOf(in), row - 1}] = true
				}
				cells[common.CellIndex{common.ColumnOf(in), row}] = true
				continue
			}

			middle := in + (out-in)/2
			crossesGridline := geometry.InsidePolygon(int64(util.ToFixed(middle)), latFixed+1, ring)
			for column := common.ColumnOf(in); column <= common.ColumnOf(out); column++ {
				cells[common.CellIndex{column, row}] = true
				if crossesGridline {
					cells[common.CellIndex{column, row - 1}] = true
				}
			}
		}
	}

	for _, lng := range gridlines(bound.Min.Lon(), bound.Max.Lon(), common.ShortcutsPerLng) {
		lngFixed := int64(util.ToFixed(lng))
		column := common.ColumnOf(lng)

		intersections, err := gridlineIntersections(lngFixed, xs, ys)
		if err != nil {
			return nil, errors.Wrapf(err, "at longitude %f", lng)
		}

		for i := 0; i < len(intersections); i += 2 {
			in, out := intersections[i], intersections[i+1]

			if in == out {
				// Same as above, the left cell is only used when the ring continues there.
				if geometry.InsidePolygon(lngFixed-1, int64(util.ToFixed(in)), ring) {
					cells[common.CellIndex{column - 1, common.RowOf(in)}] = true
				}
				cells[common.CellIndex{column, common.RowOf(in)}] = true
				continue
			}

			middle := in + (out-in)/2
			crossesGridline := geometry.InsidePolygon(lngFixed-1, int64(util.ToFixed(middle)), ring)
			// Intersections are sorted ascending, so "out" is the northern one with the smaller row number.
			for row := common.RowOf(out); row <= common.RowOf(in); row++ {
				cells[common.CellIndex{column, row}] = true
				if crossesGridline {
					cells[common.CellIndex{column - 1, row}] = true
				}
			}
		}
	}

	return cells, nil
}

// gridlines returns all gridline positions (in degrees) between the two values with the given number of lines per
// degree. The last gridline below the maximum is always part of the result, even when it is below the minimum.
func gridlines(minValue float64, maxValue float64, linesPerDegree int) []float64 {
	first := int(math.Ceil(minValue * float64(linesPerDegree)))
	last := int(math.Floor(maxValue * float64(linesPerDegree)))

	var lines []float64
	for i := first; i < last; i++ {
		lines = append(lines, float64(i)/float64(linesPerDegree))
	}
	return append(lines, float64(last)/float64(linesPerDegree))
}

// gridlineIntersections intersects the closed ring with the line "a = value" and returns the "b" coordinates of all
// intersections in degrees, sorted ascending. For horizontal gridlines "a" are the y and "b" the x coordinates, for
// vertical gridlines the other way around. An edge intersects when its start is on or below the line and its end
// above, or vice versa.
func gridlineIntersections(value int64, as []int64, bs []int64) ([]float64, error) {
	var intersections []float64

	for i := 0; i < len(as)-1; i++ {
		a1, a2 := as[i], as[i+1]
		if (a1 <= value && a2 > value) || (a1 > value && a2 <= value) {
			intersection := float64(bs[i]) + float64(value-a1)*float64(bs[i+1]-bs[i])/float64(a2-a1)
			intersections = append(intersections, util.FromFixed64(intersection))
		}
	}

	if len(intersections)%2 != 0 {
		return nil, errors.Wrapf(ErrRasterization, "odd number of %d gridline intersections", len(intersections))
	}

	sort.Float64s(intersections)
	return intersections, nil
}
