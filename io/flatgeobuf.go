package io

import (
	"encoding/binary"
	"io"
	"os"
	"time"
	"tzf/index"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Sizes of fixed-width property values. All other column types are stored as uint32 length followed by the bytes.
var fixedPropertySizes = map[flattypes.ColumnType]int{
	flattypes.ColumnTypeBool:   1,
	flattypes.ColumnTypeByte:   1,
	flattypes.ColumnTypeUByte:  1,
	flattypes.ColumnTypeShort:  2,
	flattypes.ColumnTypeUShort: 2,
	flattypes.ColumnTypeInt:    4,
	flattypes.ColumnTypeUInt:   4,
	flattypes.ColumnTypeFloat:  4,
	flattypes.ColumnTypeLong:   8,
	flattypes.ColumnTypeULong:  8,
	flattypes.ColumnTypeDouble: 8,
}

func ReadFlatGeobufFile(filename string, zoneProperty string) ([]index.PolygonRecord, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read FlatGeobuf file %s", filename)
	}

	records, err := ReadFlatGeobuf(data, zoneProperty)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read FlatGeobuf file %s", filename)
	}
	return records, nil
}

// ReadFlatGeobuf reads all Polygon and MultiPolygon features. The data must contain a spatial index, features are
// returned in the order of that index.
func ReadFlatGeobuf(data []byte, zoneProperty string) ([]index.PolygonRecord, error) {
	sigolo.Debug("Read FlatGeobuf features")
	readStartTime := time.Now()

	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse FlatGeobuf data")
	}

	header := fgb.Header()
	if header == nil {
		return nil, errors.New("FlatGeobuf data has no header")
	}
	if header.FeaturesCount() == 0 {
		return nil, nil
	}
	if header.IndexNodeSize() == 0 || header.EnvelopeLength() < 4 {
		return nil, errors.New("FlatGeobuf data has no spatial index, which is needed to read its features")
	}

	columnTypes, zoneColumn, err := columnsOf(header, zoneProperty)
	if err != nil {
		return nil, err
	}

	features, err := fgb.Search(header.Envelope(0), header.Envelope(1), header.Envelope(2), header.Envelope(3))
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read FlatGeobuf features")
	}

	var records []index.PolygonRecord
	for i, feature := range features {
		zoneName, err := zoneNameOf(feature, columnTypes, zoneColumn)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid feature %d", i)
		}

		var fgbGeometry flattypes.Geometry
		geometry, err := geometryOf(feature.Geometry(&fgbGeometry), header.GeometryType())
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid feature %d of zone %s", i, zoneName)
		}

		featureRecords, err := recordsOfGeometry(zoneName, geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid feature %d", i)
		}
		records = append(records, featureRecords...)
	}

	sigolo.Debugf("Read %d polygons from %d features in %s", len(records), len(features), time.Since(readStartTime))
	return records, nil
}

// columnsOf returns the type of each column and the position of the zone column.
func columnsOf(header *flattypes.Header, zoneProperty string) ([]flattypes.ColumnType, int, error) {
	columnTypes := make([]flattypes.ColumnType, header.ColumnsLength())
	zoneColumn := -1

	for i := range columnTypes {
		var column flattypes.Column
		if !header.Columns(&column, i) {
			return nil, 0, errors.Errorf("Unable to read column %d of FlatGeobuf header", i)
		}

		columnTypes[i] = column.Type()
		if string(column.Name()) == zoneProperty {
			zoneColumn = i
		}
	}

	if zoneColumn == -1 {
		return nil, 0, errors.Wrapf(ErrMalformedGeometry, "FlatGeobuf data has no column %s", zoneProperty)
	}
	if columnTypes[zoneColumn] != flattypes.ColumnTypeString {
		return nil, 0, errors.Wrapf(ErrMalformedGeometry, "Column %s has type %s but must be a string column", zoneProperty, flattypes.EnumNamesColumnType[columnTypes[zoneColumn]])
	}

	return columnTypes, zoneColumn, nil
}

// zoneNameOf decodes the properties of the feature until the zone column is found. Properties are stored as uint16
// column index followed by the value.
func zoneNameOf(feature *flattypes.Feature, columnTypes []flattypes.ColumnType, zoneColumn int) (string, error) {
	properties := make([]byte, feature.PropertiesLength())
	for i := range properties {
		properties[i] = byte(feature.Properties(i))
	}

	offset := 0
	for offset+2 <= len(properties) {
		column := int(binary.LittleEndian.Uint16(properties[offset:]))
		offset += 2
		if column >= len(columnTypes) {
			return "", errors.Wrapf(ErrMalformedGeometry, "Property of unknown column %d", column)
		}

		size, ok := fixedPropertySizes[columnTypes[column]]
		if !ok {
			if offset+4 > len(properties) {
				return "", errors.Wrapf(ErrMalformedGeometry, "Property of column %d is truncated", column)
			}
			size = 4 + int(binary.LittleEndian.Uint32(properties[offset:]))
		}
		if offset+size > len(properties) {
			return "", errors.Wrapf(ErrMalformedGeometry, "Property of column %d is truncated", column)
		}

		if column == zoneColumn {
			return string(properties[offset+4 : offset+size]), nil
		}
		offset += size
	}

	return "", nil
}

// geometryOf converts Polygon and MultiPolygon geometries. Features of files with a single geometry type usually
// don't store their type, so the type of the header is used then.
func geometryOf(fgbGeometry *flattypes.Geometry, headerType flattypes.GeometryType) (orb.Geometry, error) {
	if fgbGeometry == nil {
		return nil, nil
	}

	geometryType := fgbGeometry.Type()
	if geometryType == flattypes.GeometryTypeUnknown {
		geometryType = headerType
	}

	switch geometryType {
	case flattypes.GeometryTypePolygon:
		return polygonOf(fgbGeometry), nil
	case flattypes.GeometryTypeMultiPolygon:
		multiPolygon := orb.MultiPolygon{}
		for i := 0; i < fgbGeometry.PartsLength(); i++ {
			var part flattypes.Geometry
			if fgbGeometry.Parts(&part, i) {
				multiPolygon = append(multiPolygon, polygonOf(&part))
			}
		}
		return multiPolygon, nil
	}

	return nil, errors.Wrapf(ErrMalformedGeometry, "Unsupported geometry type %s", flattypes.EnumNamesGeometryType[geometryType])
}

// polygonOf splits the coordinates into rings at the ring ends. Without ends, all coordinates form one ring.
func polygonOf(fgbGeometry *flattypes.Geometry) orb.Polygon {
	numberOfPoints := uint32(fgbGeometry.XyLength() / 2)

	ends := []uint32{numberOfPoints}
	if fgbGeometry.EndsLength() > 0 {
		ends = make([]uint32, fgbGeometry.EndsLength())
		for i := range ends {
			ends[i] = min(fgbGeometry.Ends(i), numberOfPoints)
		}
	}

	polygon := make(orb.Polygon, 0, len(ends))
	start := uint32(0)
	for _, end := range ends {
		ring := make(orb.Ring, 0, max(end, start)-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{fgbGeometry.Xy(int(2 * j)), fgbGeometry.Xy(int(2*j + 1))})
		}
		polygon = append(polygon, ring)
		start = end
	}

	return polygon
}

func WriteIndexAsFlatGeobufFile(idx *index.Index, zoneProperty string, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create FlatGeobuf file %s", filename)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "Unable to close file handle for FlatGeobuf file %s", filename)
		}
	}()

	records, err := recordsOfIndex(idx)
	if err != nil {
		return err
	}

	return WriteFlatGeobuf(records, zoneProperty, file)
}

// WriteFlatGeobuf writes one Polygon feature with a spatial index per record. The zone name is stored in the string
// column named after the zone property.
func WriteFlatGeobuf(records []index.PolygonRecord, zoneProperty string, w io.Writer) error {
	sigolo.Info("Write polygons to FlatGeobuf")
	writeStartTime := time.Now()

	if len(records) == 0 {
		return errors.New("Cannot write FlatGeobuf data without polygons")
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetName("timezones")
	header.SetGeometryType(flattypes.GeometryTypePolygon)

	column := writer.NewColumn(builder)
	column.SetName(zoneProperty)
	column.SetTitle(zoneProperty)
	column.SetType(flattypes.ColumnTypeString)
	column.SetNullable(false)
	header.SetColumns([]*writer.Column{column})

	generator := &recordFeatureGenerator{records: records}

	_, err := writer.NewWriter(header, true, generator, nil).Write(w)
	if err != nil {
		return errors.Wrap(err, "Unable to write FlatGeobuf data")
	}

	sigolo.Infof("Finished writing %d polygons in %s", len(records), time.Since(writeStartTime))
	return nil
}

type recordFeatureGenerator struct {
	records []index.PolygonRecord
	next    int
}

func (g *recordFeatureGenerator) Generate() *writer.Feature {
	if g.next >= len(g.records) {
		return nil
	}

	record := g.records[g.next]
	g.next++

	builder := flatbuffers.NewBuilder(1024)

	var xy []float64
	var ends []uint32
	for _, ring := range record.Polygon() {
		for _, point := range ring {
			xy = append(xy, point.Lon(), point.Lat())
		}
		ends = append(ends, uint32(len(xy)/2))
	}

	geometry := writer.NewGeometry(builder)
	geometry.SetType(flattypes.GeometryTypePolygon)
	geometry.SetXY(xy)
	geometry.SetEnds(ends)

	feature := writer.NewFeature(builder)
	feature.SetGeometry(geometry)
	feature.SetProperties(encodeStringProperty(0, record.ZoneName))

	return feature
}

func encodeStringProperty(column uint16, value string) []byte {
	data := make([]byte, 2+4+len(value))
	binary.LittleEndian.PutUint16(data, column)
	binary.LittleEndian.PutUint32(data[2:], uint32(len(value)))
	copy(data[6:], value)
	return data
}
