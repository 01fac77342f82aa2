package common

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	ShortcutsPerLng = 1 // Cells per degree longitude
	ShortcutsPerLat = 2 // Cells per degree latitude

	NumberOfColumns   = 360 * ShortcutsPerLng
	NumberOfRows      = 180 * ShortcutsPerLat
	NumberOfShortcuts = NumberOfColumns * NumberOfRows
)

// CellIndex identifies one shortcut cell. X is the column counted eastwards from -180°, Y is the row counted
// southwards from 90°.
type CellIndex [2]int

// ColumnOf returns the (unclamped) column of the given longitude.
func ColumnOf(lng float64) int {
	return int(math.Floor((lng + 180) * ShortcutsPerLng))
}

// RowOf returns the (unclamped) row of the given latitude.
func RowOf(lat float64) int {
	return int(math.Floor((90 - lat) * ShortcutsPerLat))
}

// GetCellIndexForCoordinate returns the cell of the coordinate. Coordinates on the eastern or southern border of the
// grid (lng=180 or lat=-90) are clamped into the last column or row.
func GetCellIndexForCoordinate(lng float64, lat float64) CellIndex {
	return CellIndex{ColumnOf(lng), RowOf(lat)}.Clamp()
}

func (c CellIndex) X() int { return c[0] }

func (c CellIndex) Y() int { return c[1] }

// Ordinal is the position of the cell in the x-major ordered list of all shortcut cells.
func (c CellIndex) Ordinal() int {
	return c.X()*NumberOfRows + c.Y()
}

func (c CellIndex) IsValid() bool {
	return c.X() >= 0 && c.X() < NumberOfColumns && c.Y() >= 0 && c.Y() < NumberOfRows
}

func (c CellIndex) Clamp() CellIndex {
	return CellIndex{clamp(c.X(), 0, NumberOfColumns-1), clamp(c.Y(), 0, NumberOfRows-1)}
}

func (c CellIndex) isBelowOrLeftOf(other CellIndex) bool {
	return c.X() < other.X() || c.Y() < other.Y()
}

func (c CellIndex) isAboveOrRightOf(other CellIndex) bool {
	return c.X() > other.X() || c.Y() > other.Y()
}

// ToBound returns the area in degrees covered by this cell.
func (c CellIndex) ToBound() orb.Bound {
	minLng := float64(c.X())/ShortcutsPerLng - 180
	maxLat := 90 - float64(c.Y())/ShortcutsPerLat
	return orb.Bound{
		Min: orb.Point{minLng, maxLat - 1.0/ShortcutsPerLat},
		Max: orb.Point{minLng + 1.0/ShortcutsPerLng, maxLat},
	}
}

// CellExtent is a rectangle of cells. The first cell has the smallest, the second cell the largest column and row.
type CellExtent [2]CellIndex

// GetCellExtentForBound returns all cells touched by the given bound in degrees. The extent is not clamped.
func GetCellExtentForBound(bound orb.Bound) CellExtent {
	return CellExtent{
		CellIndex{ColumnOf(bound.Min.Lon()), RowOf(bound.Max.Lat())},
		CellIndex{ColumnOf(bound.Max.Lon()), RowOf(bound.Min.Lat())},
	}
}

func (c CellExtent) LowerLeftCell() CellIndex { return c[0] }

func (c CellExtent) UpperRightCell() CellIndex { return c[1] }

func (c CellExtent) Width() int {
	return c.UpperRightCell().X() - c.LowerLeftCell().X() + 1
}

func (c CellExtent) Height() int {
	return c.UpperRightCell().Y() - c.LowerLeftCell().Y() + 1
}

// Size is the number of cells within this extent.
func (c CellExtent) Size() int {
	return c.Width() * c.Height()
}

func (c CellExtent) Clamp() CellExtent {
	return CellExtent{c.LowerLeftCell().Clamp(), c.UpperRightCell().Clamp()}
}

func (c CellExtent) Contains(cell CellIndex) bool {
	return !cell.isAboveOrRightOf(c.UpperRightCell()) && !cell.isBelowOrLeftOf(c.LowerLeftCell())
}

// GetCellIndices returns all cells of the extent, column by column.
func (c CellExtent) GetCellIndices() []CellIndex {
	var indices []CellIndex

	for x := c.LowerLeftCell().X(); x <= c.UpperRightCell().X(); x++ {
		for y := c.LowerLeftCell().Y(); y <= c.UpperRightCell().Y(); y++ {
			indices = append(indices, CellIndex{x, y})
		}
	}

	return indices
}

func (c CellExtent) ToBound() orb.Bound {
	return c.LowerLeftCell().ToBound().Union(c.UpperRightCell().ToBound())
}

func (c CellExtent) ToPolygon() orb.Polygon {
	return c.ToBound().ToPolygon()
}

func clamp(value, lower, upper int) int {
	return max(lower, min(value, upper))
}
