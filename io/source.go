package io

import (
	"path/filepath"
	"strings"
	"tzf/index"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const DefaultZoneProperty = "tzid"

// ErrMalformedGeometry is returned for source features that cannot be turned into polygon records.
var ErrMalformedGeometry = errors.New("malformed source geometry")

// ReadPolygonRecords reads all polygons of the source file. The format is determined by the file extension: .geojson
// and .json are read as GeoJSON feature collection, .fgb as FlatGeobuf. The zone name of each polygon is taken from
// the given feature property.
func ReadPolygonRecords(filename string, zoneProperty string) ([]index.PolygonRecord, error) {
	if zoneProperty == "" {
		zoneProperty = DefaultZoneProperty
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".geojson", ".json":
		return ReadGeoJsonFile(filename, zoneProperty)
	case ".fgb":
		return ReadFlatGeobufFile(filename, zoneProperty)
	}

	return nil, errors.Errorf("Unsupported input file %s, expected a .geojson, .json or .fgb file", filename)
}

// recordsOfGeometry turns a Polygon or MultiPolygon into one record per polygon. The first ring of each polygon is
// its outer ring, all further rings are holes.
func recordsOfGeometry(zoneName string, geometry orb.Geometry) ([]index.PolygonRecord, error) {
	if zoneName == "" {
		return nil, errors.Wrap(ErrMalformedGeometry, "Feature has no zone name")
	}

	var polygons []orb.Polygon
	switch g := geometry.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		polygons = g
	case nil:
		return nil, errors.Wrapf(ErrMalformedGeometry, "Feature of zone %s has no geometry", zoneName)
	default:
		return nil, errors.Wrapf(ErrMalformedGeometry, "Feature of zone %s has unsupported geometry type %s", zoneName, geometry.GeoJSONType())
	}

	var records []index.PolygonRecord
	for i, polygon := range polygons {
		if len(polygon) == 0 {
			return nil, errors.Wrapf(ErrMalformedGeometry, "Polygon %d of zone %s has no rings", i, zoneName)
		}

		for j, ring := range polygon {
			err := validateRing(ring)
			if err != nil {
				return nil, errors.Wrapf(err, "Invalid ring %d of polygon %d of zone %s", j, i, zoneName)
			}
		}

		records = append(records, index.PolygonRecord{
			ZoneName: zoneName,
			Outer:    polygon[0],
			Holes:    polygon[1:],
		})
	}

	return records, nil
}

func validateRing(ring orb.Ring) error {
	for _, point := range ring {
		if !(point.Lon() >= -180 && point.Lon() <= 180 && point.Lat() >= -90 && point.Lat() <= 90) {
			return errors.Wrapf(ErrMalformedGeometry, "Coordinate %v out of bounds", point)
		}
	}

	distinctVertices := len(ring)
	if len(ring) > 1 && ring[0].Equal(ring[len(ring)-1]) {
		distinctVertices--
	}
	if distinctVertices < 3 {
		return errors.Wrapf(ErrMalformedGeometry, "Ring has %d distinct vertices but at least 3 are needed", max(distinctVertices, 0))
	}

	return nil
}
