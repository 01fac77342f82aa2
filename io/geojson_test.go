package io

import (
	"bytes"
	"os"
	"path"
	"sort"
	"strings"
	"testing"
	"tzf/index"
	"tzf/util"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const testGeoJson = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"tzid": "Africa/Johannesburg"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [
          [[16.5, -28.6], [32.9, -26.8], [25.6, -34.0], [16.5, -28.6]],
          [[27.0, -30.7], [29.5, -30.7], [29.5, -28.6], [27.0, -28.6], [27.0, -30.7]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {"tzid": "Europe/Copenhagen", "other": 42},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[11.5, 55.0], [12.7, 55.0], [12.7, 56.0], [11.5, 56.0], [11.5, 55.0]]],
          [[[12.3, 56.1], [12.6, 56.1], [12.6, 56.3], [12.3, 56.3], [12.3, 56.1]]]
        ]
      }
    }
  ]
}`

func testRecords() []index.PolygonRecord {
	return []index.PolygonRecord{
		{
			ZoneName: "Africa/Johannesburg",
			Outer:    orb.Ring{{16.5, -28.6}, {32.9, -26.8}, {25.6, -34.0}, {16.5, -28.6}},
			Holes:    []orb.Ring{{{27.0, -30.7}, {29.5, -30.7}, {29.5, -28.6}, {27.0, -28.6}, {27.0, -30.7}}},
		},
		{
			ZoneName: "Europe/Copenhagen",
			Outer:    orb.Ring{{11.5, 55.0}, {12.7, 55.0}, {12.7, 56.0}, {11.5, 56.0}, {11.5, 55.0}},
		},
		{
			ZoneName: "Europe/Copenhagen",
			Outer:    orb.Ring{{12.3, 56.1}, {12.6, 56.1}, {12.6, 56.3}, {12.3, 56.3}, {12.3, 56.1}},
		},
	}
}

func assertRecordsApprox(t *testing.T, expected []index.PolygonRecord, actual []index.PolygonRecord) {
	util.AssertEqual(t, len(expected), len(actual))
	if len(expected) != len(actual) {
		return
	}

	for i := range expected {
		util.AssertEqual(t, expected[i].ZoneName, actual[i].ZoneName)

		expectedPolygon := expected[i].Polygon()
		actualPolygon := actual[i].Polygon()
		util.AssertEqual(t, len(expectedPolygon), len(actualPolygon))
		if len(expectedPolygon) != len(actualPolygon) {
			continue
		}

		for j := range expectedPolygon {
			util.AssertRingApprox(t, expectedPolygon[j], actualPolygon[j], 1e-7)
		}
	}
}

// sortRecords orders the records by zone name and first vertex.
func sortRecords(records []index.PolygonRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ZoneName != records[j].ZoneName {
			return records[i].ZoneName < records[j].ZoneName
		}
		return records[i].Outer[0].Lon() < records[j].Outer[0].Lon()
	})
}

func TestGeoJson_read(t *testing.T) {
	// Act
	records, err := ReadGeoJson(strings.NewReader(testGeoJson), DefaultZoneProperty)

	// Assert
	util.AssertNil(t, err)
	assertRecordsApprox(t, testRecords(), records)
}

func TestGeoJson_readOtherZoneProperty(t *testing.T) {
	data := `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {"name": "Asia/Singapore"},
		"geometry": {"type": "Polygon", "coordinates": [[[103.6, 1.15], [104.1, 1.15], [104.1, 1.47], [103.6, 1.15]]]}}]}`

	records, err := ReadGeoJson(strings.NewReader(data), "name")

	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(records))
	util.AssertEqual(t, "Asia/Singapore", records[0].ZoneName)
	util.AssertEqual(t, 0, len(records[0].Holes))
}

func TestGeoJson_malformedFeatures(t *testing.T) {
	tests := map[string]string{
		"missing zone property": `{"type": "Feature", "properties": {},
			"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}}`,
		"zone property is no string": `{"type": "Feature", "properties": {"tzid": 5},
			"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}}`,
		"unsupported geometry": `{"type": "Feature", "properties": {"tzid": "A"},
			"geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 0], [1, 1]]}}`,
		"too few vertices": `{"type": "Feature", "properties": {"tzid": "A"},
			"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [0, 0]]]}}`,
		"too few hole vertices": `{"type": "Feature", "properties": {"tzid": "A"},
			"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]], [[0.1, 0.1], [0.2, 0.1]]]}}`,
		"out of bounds": `{"type": "Feature", "properties": {"tzid": "A"},
			"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [181, 0], [1, 1], [0, 0]]]}}`,
	}

	for name, feature := range tests {
		t.Run(name, func(t *testing.T) {
			data := `{"type": "FeatureCollection", "features": [` + feature + `]}`

			_, err := ReadGeoJson(strings.NewReader(data), DefaultZoneProperty)

			util.AssertErrorIs(t, ErrMalformedGeometry, err)
		})
	}
}

func TestSource_validateRing(t *testing.T) {
	util.AssertNil(t, validateRing(orb.Ring{{0, 0}, {1, 0}, {1, 1}}))
	util.AssertNil(t, validateRing(orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}))

	// Closed rings with only two distinct vertices
	util.AssertErrorIs(t, ErrMalformedGeometry, validateRing(orb.Ring{{0, 0}, {1, 0}, {0, 0}}))
	util.AssertErrorIs(t, ErrMalformedGeometry, validateRing(orb.Ring{{0, 0}, {0, 0}}))
	util.AssertErrorIs(t, ErrMalformedGeometry, validateRing(orb.Ring{}))
}

func TestGeoJson_invalidJson(t *testing.T) {
	_, err := ReadGeoJson(strings.NewReader(`{"type": "FeatureCollection", "features": [`), DefaultZoneProperty)
	util.AssertNotNil(t, err)
}

func TestSource_readByExtension(t *testing.T) {
	// Arrange
	folder := t.TempDir()
	geoJsonFile := path.Join(folder, "timezones.geojson")
	util.AssertNil(t, os.WriteFile(geoJsonFile, []byte(testGeoJson), 0644))

	// Act
	records, err := ReadPolygonRecords(geoJsonFile, "")

	// Assert
	util.AssertNil(t, err)
	assertRecordsApprox(t, testRecords(), records)

	_, err = ReadPolygonRecords(path.Join(folder, "timezones.shp"), DefaultZoneProperty)
	util.AssertNotNil(t, err)

	_, err = ReadPolygonRecords(path.Join(folder, "missing.geojson"), DefaultZoneProperty)
	util.AssertNotNil(t, err)
}

func buildTestIndex(t *testing.T) *index.Index {
	result, err := index.BuildIndex(testRecords())
	if err != nil {
		t.Fatalf("Unable to build test index: %+v", err)
	}

	idx, err := index.NewIndex(bytes.NewReader(result.Data), result.ZoneNames)
	if err != nil {
		t.Fatalf("Unable to open test index: %+v", err)
	}
	return idx
}

func TestGeoJson_exportIndex(t *testing.T) {
	// Arrange
	idx := buildTestIndex(t)
	buffer := &bytes.Buffer{}

	// Act
	err := WriteIndexAsGeoJson(idx, DefaultZoneProperty, buffer)

	// Assert
	util.AssertNil(t, err)

	records, err := ReadGeoJson(buffer, DefaultZoneProperty)
	util.AssertNil(t, err)
	assertRecordsApprox(t, testRecords(), records)
}

func TestGeoJson_exportIndexToFile(t *testing.T) {
	// Arrange
	idx := buildTestIndex(t)
	file := path.Join(t.TempDir(), "export.geojson")

	// Act
	err := WriteIndexAsGeoJsonFile(idx, "zone", file)

	// Assert
	util.AssertNil(t, err)

	records, err := ReadPolygonRecords(file, "zone")
	util.AssertNil(t, err)
	util.AssertEqual(t, 3, len(records))
}

func TestGeoJson_exportShortcutCells(t *testing.T) {
	// Arrange
	idx := buildTestIndex(t)
	buffer := &bytes.Buffer{}

	// Act
	err := WriteShortcutCellsAsGeoJson(idx, buffer)

	// Assert
	util.AssertNil(t, err)

	featureCollection, err := geojson.UnmarshalFeatureCollection(buffer.Bytes())
	util.AssertNil(t, err)
	util.AssertTrue(t, len(featureCollection.Features) > 0)

	// Cell (192,67) only contains the Copenhagen island
	var islandCell *geojson.Feature
	for _, feature := range featureCollection.Features {
		if feature.Properties.MustInt("x") == 192 && feature.Properties.MustInt("y") == 67 {
			islandCell = feature
		}
	}
	util.AssertNotNil(t, islandCell)
	util.AssertEqual(t, []interface{}{"Europe/Copenhagen"}, islandCell.Properties["zones"])

	bound := islandCell.Geometry.Bound()
	util.AssertApprox(t, 12.0, bound.Min.Lon(), 1e-9)
	util.AssertApprox(t, 56.0, bound.Min.Lat(), 1e-9)
	util.AssertApprox(t, 13.0, bound.Max.Lon(), 1e-9)
	util.AssertApprox(t, 56.5, bound.Max.Lat(), 1e-9)
}

func TestGeoJson_exportShortcutCellsToFile(t *testing.T) {
	// Arrange
	idx := buildTestIndex(t)
	file := path.Join(t.TempDir(), "cells.geojson")

	// Act
	err := WriteShortcutCellsAsGeoJsonFile(idx, file)

	// Assert
	util.AssertNil(t, err)

	data, err := os.ReadFile(file)
	util.AssertNil(t, err)
	featureCollection, err := geojson.UnmarshalFeatureCollection(data)
	util.AssertNil(t, err)
	util.AssertTrue(t, len(featureCollection.Features) > 0)

	err = WriteShortcutCellsAsGeoJsonFile(idx, path.Join(t.TempDir(), "missing", "cells.geojson"))
	util.AssertNotNil(t, err)
}
