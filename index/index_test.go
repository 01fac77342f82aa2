package index

import (
	"bytes"
	"encoding/binary"
	"os"
	"path"
	"testing"
	"tzf/common"
	"tzf/util"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

func TestIndex_writeAndOpen(t *testing.T) {
	// Arrange
	baseFolder := path.Join(t.TempDir(), "index")

	// Act
	stats, err := WriteIndex(baseFolder, testRecords())
	util.AssertNil(t, err)

	index, err := Open(baseFolder)
	util.AssertNil(t, err)
	defer index.Close()

	// Assert
	util.AssertEqual(t, 8, stats.Polygons)
	util.AssertEqual(t, 8, index.NumberOfPolygons())
	util.AssertEqual(t, 1, index.NumberOfHoles())
	util.AssertEqual(t, testZoneNames, index.ZoneNames())

	zoneName, found, err := index.TimezoneAt(28.5099, -29.3914)
	util.AssertNil(t, err)
	util.AssertTrue(t, found)
	util.AssertEqual(t, "Africa/Maseru", zoneName)

	dataFileInfo, err := os.Stat(path.Join(baseFolder, DataFilename))
	util.AssertNil(t, err)
	util.AssertEqual(t, stats.TotalBytes, dataFileInfo.Size())

	// No temporary files are left behind
	entries, err := os.ReadDir(baseFolder)
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(entries))
}

func TestIndex_writeReplacesExistingIndex(t *testing.T) {
	// Arrange
	baseFolder := t.TempDir()
	_, err := WriteIndex(baseFolder, testRecords())
	util.AssertNil(t, err)

	// Act
	_, err = WriteIndex(baseFolder, testRecords()[:1])
	util.AssertNil(t, err)

	// Assert
	index, err := Open(baseFolder)
	util.AssertNil(t, err)
	defer index.Close()
	util.AssertEqual(t, 1, index.NumberOfPolygons())
	util.AssertEqual(t, []string{"Europe/Madrid"}, index.ZoneNames())
}

func TestIndex_failedBuildKeepsExistingIndex(t *testing.T) {
	// Arrange
	baseFolder := t.TempDir()
	_, err := WriteIndex(baseFolder, testRecords())
	util.AssertNil(t, err)

	// Act
	_, err = WriteIndex(baseFolder, []PolygonRecord{{ZoneName: "Broken", Outer: orb.Ring{{0, 0}, {1, 1}}}})

	// Assert
	util.AssertNotNil(t, err)

	index, err := Open(baseFolder)
	util.AssertNil(t, err)
	defer index.Close()
	util.AssertEqual(t, 8, index.NumberOfPolygons())
}

func TestIndex_openMissingFolder(t *testing.T) {
	_, err := Open(path.Join(t.TempDir(), "does-not-exist"))
	util.AssertNotNil(t, err)
}

func TestIndex_withIndex(t *testing.T) {
	// Arrange
	baseFolder := t.TempDir()
	_, err := WriteIndex(baseFolder, testRecords())
	util.AssertNil(t, err)

	var usedIndex *Index
	expectedErr := errors.New("expected error")

	// Act
	err = WithIndex(baseFolder, func(index *Index) error {
		usedIndex = index
		return expectedErr
	})

	// Assert
	util.AssertErrorIs(t, expectedErr, err)
	util.AssertNotNil(t, usedIndex)
	util.AssertNil(t, usedIndex.closer)
}

func TestIndex_invalidData(t *testing.T) {
	result, err := BuildIndex(testRecords())
	util.AssertNil(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"too small for header", result.Data[:5]},
		{"no polygons", make([]byte, headerSize)},
		{"truncated shortcut section", result.Data[:binary.LittleEndian.Uint32(result.Data[2:])+100]},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewIndex(bytes.NewReader(test.data), result.ZoneNames)
			util.AssertErrorIs(t, ErrInvalidIndex, err)
		})
	}
}

func TestIndex_unknownZoneID(t *testing.T) {
	// Arrange
	result, err := BuildIndex(testRecords())
	util.AssertNil(t, err)

	// Act
	_, err = NewIndex(bytes.NewReader(result.Data), result.ZoneNames[:3])

	// Assert
	util.AssertErrorIs(t, ErrInvalidIndex, err)
}

func buildIndexDataWithHoles(t *testing.T) []byte {
	square := func(minLng float64, minLat float64, size float64) orb.Ring {
		return orb.Ring{{minLng, minLat}, {minLng + size, minLat}, {minLng + size, minLat + size}, {minLng, minLat + size}}
	}

	result, err := BuildIndex([]PolygonRecord{
		{ZoneName: "A", Outer: square(0, 0, 0.9), Holes: []orb.Ring{square(0.1, 0.1, 0.1), square(0.5, 0.5, 0.1)}},
		{ZoneName: "B", Outer: square(2, 0, 0.9), Holes: []orb.Ring{square(2.1, 0.1, 0.1)}},
	})
	if err != nil {
		t.Fatalf("Unable to build index: %+v", err)
	}
	return result.Data
}

func TestIndex_holeRegistry(t *testing.T) {
	// Arrange
	data := buildIndexDataWithHoles(t)

	// Act
	index, err := NewIndex(bytes.NewReader(data), []string{"A", "B"})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []int{0, 1}, index.holesOf(0))
	util.AssertEqual(t, []int{2}, index.holesOf(1))

	// Within the first hole of polygon 0
	_, found, err := index.CertainTimezoneAt(0.15, 0.15)
	util.AssertNil(t, err)
	util.AssertFalse(t, found)

	zoneName, found, err := index.CertainTimezoneAt(0.3, 0.3)
	util.AssertNil(t, err)
	util.AssertTrue(t, found)
	util.AssertEqual(t, "A", zoneName)
}

func TestIndex_holesNotNextToEachOther(t *testing.T) {
	// Arrange
	data := buildIndexDataWithHoles(t)
	holesStart := binary.LittleEndian.Uint32(data[8:])

	// Related polygons [0, 0, 1] become [0, 1, 0]
	binary.LittleEndian.PutUint16(data[holesStart+2:], 1)
	binary.LittleEndian.PutUint16(data[holesStart+4:], 0)

	// Act
	_, err := NewIndex(bytes.NewReader(data), []string{"A", "B"})

	// Assert
	util.AssertErrorIs(t, ErrInvalidIndex, err)
}

func TestIndex_holeOfUnknownPolygon(t *testing.T) {
	// Arrange
	data := buildIndexDataWithHoles(t)
	holesStart := binary.LittleEndian.Uint32(data[8:])
	binary.LittleEndian.PutUint16(data[holesStart+4:], 5)

	// Act
	_, err := NewIndex(bytes.NewReader(data), []string{"A", "B"})

	// Assert
	util.AssertErrorIs(t, ErrInvalidIndex, err)
}

func TestIndex_accessors(t *testing.T) {
	// Arrange
	index := buildTestIndex(t)

	// Act & Assert
	zoneID, err := index.ZoneIDOf(maseruID)
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, zoneID)

	zoneName, err := index.ZoneNameOf(madridID)
	util.AssertNil(t, err)
	util.AssertEqual(t, "Europe/Madrid", zoneName)

	_, err = index.ZoneIDOf(8)
	util.AssertNotNil(t, err)
	_, err = index.ZoneNameOf(-1)
	util.AssertNotNil(t, err)

	bound, err := index.BoundsOf(madridID)
	util.AssertNil(t, err)
	util.AssertApprox(t, -9.5, bound.Min.Lon(), 1e-7)
	util.AssertApprox(t, 36.0, bound.Min.Lat(), 1e-7)
	util.AssertApprox(t, 3.3, bound.Max.Lon(), 1e-7)
	util.AssertApprox(t, 43.8, bound.Max.Lat(), 1e-7)

	_, err = index.BoundsOf(100)
	util.AssertNotNil(t, err)

	// Zone names are copied
	names := index.ZoneNames()
	names[0] = "changed"
	util.AssertEqual(t, testZoneNames, index.ZoneNames())
}

func TestIndex_polygonRoundTrip(t *testing.T) {
	// Arrange
	index := buildTestIndex(t)

	for polygonID, record := range testRecords() {
		// Act
		polygon, err := index.Polygon(polygonID)

		// Assert
		util.AssertNil(t, err)
		expected := record.Polygon()
		util.AssertEqual(t, len(expected), len(polygon))

		for ringIndex := 0; ringIndex < min(len(expected), len(polygon)); ringIndex++ {
			util.AssertRingApprox(t, expected[ringIndex], polygon[ringIndex], 1e-7)
		}
	}
}

func TestIndex_shortcutCandidates(t *testing.T) {
	// Arrange
	index := buildTestIndex(t)

	// Act
	candidates, err := index.ShortcutCandidates(common.CellIndex{208, 238})
	util.AssertNil(t, err)
	emptyCandidates, err := index.ShortcutCandidates(common.CellIndex{0, 0})
	util.AssertNil(t, err)
	_, invalidErr := index.ShortcutCandidates(common.CellIndex{360, 0})

	// Assert
	util.AssertEqual(t, []int{johannesburgID, maseruID}, candidates)
	util.AssertEqual(t, 0, len(emptyCandidates))
	util.AssertNotNil(t, invalidErr)
}
