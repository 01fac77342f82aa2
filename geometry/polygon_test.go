package geometry

import (
	"testing"
	"tzf/util"

	"github.com/paulmach/orb"
)

var testPoints = [][2]int64{
	{-1, 1},
	{0, 1},
	{1, 1},
	{-1, 0},
	{0, 0},
	{1, 0},
	{-1, -1},
	{0, -1},
	{1, -1},
}

func TestPositionToLine(t *testing.T) {
	// Each line: x1, x2, y1, y2
	lines := [][4]int64{
		{-1, 1, -1, 1},
		{1, -1, 1, -1},
		{-1, 1, 1, -1},
		{1, -1, -1, 1},
	}
	expectedResults := [][]int{
		{-1, -1, 0, -1, 0, 1, 0, 1, 1},
		{1, 1, 0, 1, 0, -1, 0, -1, -1},
		{0, -1, -1, 1, 0, -1, 1, 1, 0},
		{0, 1, 1, -1, 0, 1, -1, -1, 0},
	}

	for n, line := range lines {
		for i, p := range testPoints {
			result := PositionToLine(p[0], p[1], line[0], line[1], line[2], line[3])
			if result != expectedResults[n][i] {
				t.Errorf("Line %v, point %v: expected %d but got %d", line, p, expectedResults[n][i], result)
			}
		}
	}
}

func TestPositionToLine_verticalLine(t *testing.T) {
	util.AssertEqual(t, 0, PositionToLine(5, 3, 5, 5, 0, 10))
	util.AssertEqual(t, -1, PositionToLine(4, 3, 5, 5, 0, 10))
	util.AssertEqual(t, 1, PositionToLine(6, 3, 5, 5, 0, 10))

	// Downward line mirrors the result
	util.AssertEqual(t, 1, PositionToLine(4, 3, 5, 5, 10, 0))
	util.AssertEqual(t, -1, PositionToLine(6, 3, 5, 5, 10, 0))
}

func TestInsidePolygon(t *testing.T) {
	// Arrange
	ring := squareRing(0.5)
	expectedResults := []bool{false, false, false, false, true, false, false, false, false}

	for i, p := range testPoints {
		// Act
		inside := InsidePolygon(int64(util.ToFixed(float64(p[0]))), int64(util.ToFixed(float64(p[1]))), ring)

		// Assert
		if inside != expectedResults[i] {
			t.Errorf("Point %v: expected %v but got %v", p, expectedResults[i], inside)
		}
	}
}

func TestInsidePolygon_concaveRing(t *testing.T) {
	// U-shape opening to the north
	ring := NewFixedRing(orb.Ring{{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}, {0, 0}})

	util.AssertTrue(t, InsidePolygon(fixed(0.5), fixed(2), ring))
	util.AssertTrue(t, InsidePolygon(fixed(2.5), fixed(2), ring))
	util.AssertTrue(t, InsidePolygon(fixed(1.5), fixed(0.5), ring))
	util.AssertFalse(t, InsidePolygon(fixed(1.5), fixed(2), ring))
	util.AssertFalse(t, InsidePolygon(fixed(4), fixed(2), ring))
}

func TestInsidePolygon_degenerateRing(t *testing.T) {
	ring := FixedRing{X: []int32{0, 10}, Y: []int32{0, 10}}
	util.AssertFalse(t, InsidePolygon(5, 5, ring))
}

func TestNewFixedRing_dropsClosingVertex(t *testing.T) {
	// Act
	ring := NewFixedRing(orb.Ring{{1, 2}, {3, 2}, {3, 4}, {1, 2}})

	// Assert
	util.AssertEqual(t, 3, ring.Len())
	util.AssertEqual(t, []int32{10_000_000, 30_000_000, 30_000_000}, ring.X)
	util.AssertEqual(t, []int32{20_000_000, 20_000_000, 40_000_000}, ring.Y)

	orbRing := ring.ToOrbRing()
	util.AssertEqual(t, 4, len(orbRing))
	util.AssertTrue(t, orbRing.Closed())
}

func squareRing(halfSize float64) FixedRing {
	return NewFixedRing(orb.Ring{
		{halfSize, halfSize},
		{-halfSize, halfSize},
		{-halfSize, -halfSize},
		{halfSize, -halfSize},
	})
}

func fixed(degree float64) int64 {
	return int64(util.ToFixed(degree))
}
