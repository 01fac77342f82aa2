package io

import (
	"io"
	"os"
	"time"
	"tzf/common"
	"tzf/index"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

func ReadGeoJsonFile(filename string, zoneProperty string) ([]index.PolygonRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open GeoJSON file %s", filename)
	}
	defer file.Close()

	records, err := ReadGeoJson(file, zoneProperty)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read GeoJSON file %s", filename)
	}
	return records, nil
}

// ReadGeoJson reads a feature collection of Polygon and MultiPolygon features.
func ReadGeoJson(reader io.Reader, zoneProperty string) ([]index.PolygonRecord, error) {
	sigolo.Debug("Read GeoJSON features")
	readStartTime := time.Now()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read GeoJSON data")
	}

	featureCollection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse GeoJSON feature collection")
	}

	var records []index.PolygonRecord
	for i, feature := range featureCollection.Features {
		zoneName, _ := feature.Properties[zoneProperty].(string)

		featureRecords, err := recordsOfGeometry(zoneName, feature.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid feature %d", i)
		}
		records = append(records, featureRecords...)
	}

	sigolo.Debugf("Read %d polygons from %d features in %s", len(records), len(featureCollection.Features), time.Since(readStartTime))
	return records, nil
}

// recordsOfIndex reads all polygons back from the index. The position of a record is its polygon id.
func recordsOfIndex(idx *index.Index) ([]index.PolygonRecord, error) {
	records := make([]index.PolygonRecord, idx.NumberOfPolygons())
	for polygonID := range records {
		polygon, err := idx.Polygon(polygonID)
		if err != nil {
			return nil, err
		}

		zoneName, err := idx.ZoneNameOf(polygonID)
		if err != nil {
			return nil, err
		}

		records[polygonID] = index.PolygonRecord{
			ZoneName: zoneName,
			Outer:    polygon[0],
			Holes:    polygon[1:],
		}
	}
	return records, nil
}

func WriteIndexAsGeoJsonFile(idx *index.Index, zoneProperty string, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", filename)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "Unable to close file handle for GeoJSON file %s", filename)
		}
	}()

	return WriteIndexAsGeoJson(idx, zoneProperty, file)
}

// WriteIndexAsGeoJson writes one feature per polygon of the index. Each feature has the zone name and the polygon id
// as properties.
func WriteIndexAsGeoJson(idx *index.Index, zoneProperty string, writer io.Writer) error {
	sigolo.Info("Write index polygons to GeoJSON")
	writeStartTime := time.Now()

	records, err := recordsOfIndex(idx)
	if err != nil {
		return err
	}

	featureCollection := geojson.NewFeatureCollection()
	for polygonID, record := range records {
		feature := geojson.NewFeature(record.Polygon())
		feature.Properties[zoneProperty] = record.ZoneName
		feature.Properties["polygon_id"] = polygonID
		featureCollection.Append(feature)
	}

	err = writeFeatureCollection(featureCollection, writer)
	if err != nil {
		return err
	}

	sigolo.Infof("Finished writing %d polygons in %s", len(records), time.Since(writeStartTime))
	return nil
}

func WriteShortcutCellsAsGeoJsonFile(idx *index.Index, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", filename)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "Unable to close file handle for GeoJSON file %s", filename)
		}
	}()

	return WriteShortcutCellsAsGeoJson(idx, file)
}

// WriteShortcutCellsAsGeoJson writes one feature per non-empty shortcut cell with the ids and zone names of the
// polygons stored for that cell.
func WriteShortcutCellsAsGeoJson(idx *index.Index, writer io.Writer) error {
	sigolo.Info("Write shortcut cells to GeoJSON")
	writeStartTime := time.Now()

	featureCollection := geojson.NewFeatureCollection()
	for x := 0; x < common.NumberOfColumns; x++ {
		for y := 0; y < common.NumberOfRows; y++ {
			cell := common.CellIndex{x, y}

			polygonIDs, err := idx.ShortcutCandidates(cell)
			if err != nil {
				return err
			}
			if len(polygonIDs) == 0 {
				continue
			}

			zoneNames := make([]string, len(polygonIDs))
			for i, polygonID := range polygonIDs {
				zoneNames[i], err = idx.ZoneNameOf(polygonID)
				if err != nil {
					return err
				}
			}

			feature := geojson.NewFeature(common.CellExtent{cell, cell}.ToPolygon())
			feature.Properties["x"] = x
			feature.Properties["y"] = y
			feature.Properties["polygon_ids"] = polygonIDs
			feature.Properties["zones"] = zoneNames
			featureCollection.Append(feature)
		}
	}

	err := writeFeatureCollection(featureCollection, writer)
	if err != nil {
		return err
	}

	sigolo.Infof("Finished writing %d cells in %s", len(featureCollection.Features), time.Since(writeStartTime))
	return nil
}

func writeFeatureCollection(featureCollection *geojson.FeatureCollection, writer io.Writer) error {
	geojsonBytes, err := featureCollection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Unable to marshal GeoJSON feature collection")
	}

	_, err = writer.Write(geojsonBytes)
	if err != nil {
		return errors.Wrap(err, "Unable to write GeoJSON data")
	}
	return nil
}
