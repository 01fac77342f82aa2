package index

import (
	"tzf/common"
	"tzf/util"
)

// Layout of the index data (all values little-endian):
//
//	[HEADER]
//	0                      uint16   N  number of polygons
//	2                      uint32   S  address of shortcut section
//	6                      uint16   H  number of holes
//	8                      uint32   HS address of hole section
//	[POLYGONS]
//	12                     uint16   zone id, N times
//	12+2N                  uint16   number of vertices, N times
//	12+4N                  uint32   address of vertex data, N times
//	12+8N                  int32    xmax, xmin, ymax, ymin, N times
//	12+24N                 int32    vertex data per polygon: all x values, then all y values
//	[SHORTCUTS]
//	S                      uint16   number of polygons per cell, 129600 times in x-major order
//	S+259200               uint32   address of the id list per cell (0 for empty cells), 129600 times
//	S+777600               uint16   polygon ids of all cells
//	[HOLES]
//	HS                     uint16   id of the polygon the hole belongs to, H times
//	HS+2H                  uint16   number of vertices, H times
//	HS+4H                  uint32   address of vertex data, H times
//	HS+8H                  int32    vertex data per hole: all x values, then all y values
const (
	headerSize        = 12
	boundsSize        = 16
	polygonEntrySize  = 2 + 2 + 4 + boundsSize
	holeEntrySize     = 2 + 2 + 4
	shortcutEntrySize = 2 + 4

	MaxPolygonsPerCell = 300
	maxUint16          = 1<<16 - 1
	maxAddress         = 1<<32 - 1
)

type header struct {
	NumberOfPolygons int
	ShortcutsStart   int64
	NumberOfHoles    int
	HolesStart       int64
}

var headerSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryDataItem{FieldName: "NumberOfPolygons", BinaryType: util.DatatypeUint16},
		&util.BinaryDataItem{FieldName: "ShortcutsStart", BinaryType: util.DatatypeUint32},
		&util.BinaryDataItem{FieldName: "NumberOfHoles", BinaryType: util.DatatypeUint16},
		&util.BinaryDataItem{FieldName: "HolesStart", BinaryType: util.DatatypeUint32},
	},
}

// polygonTable contains the per-polygon arrays directly following the header.
type polygonTable struct {
	ZoneIDs      []uint16
	VertexCounts []uint16
	Addresses    []uint32
	Bounds       []int32 // Four values per polygon: xmax, xmin, ymax, ymin
}

var polygonTableSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryArrayItem{FieldName: "ZoneIDs", BinaryType: util.DatatypeUint16},
		&util.BinaryArrayItem{FieldName: "VertexCounts", BinaryType: util.DatatypeUint16},
		&util.BinaryArrayItem{FieldName: "Addresses", BinaryType: util.DatatypeUint32},
		&util.BinaryArrayItem{FieldName: "Bounds", BinaryType: util.DatatypeInt32},
	},
}

// ringSchema writes a geometry.FixedRing as all x values followed by all y values.
var ringSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryArrayItem{FieldName: "X", BinaryType: util.DatatypeInt32},
		&util.BinaryArrayItem{FieldName: "Y", BinaryType: util.DatatypeInt32},
	},
}

type shortcutTable struct {
	Counts    []uint16
	Addresses []uint32
	IDs       []uint16
}

var shortcutTableSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryArrayItem{FieldName: "Counts", BinaryType: util.DatatypeUint16},
		&util.BinaryArrayItem{FieldName: "Addresses", BinaryType: util.DatatypeUint32},
		&util.BinaryArrayItem{FieldName: "IDs", BinaryType: util.DatatypeUint16},
	},
}

type holeTable struct {
	RelatedPolygons []uint16
	VertexCounts    []uint16
	Addresses       []uint32
}

var holeTableSchema = util.BinarySchema{
	Items: []util.BinaryItem{
		&util.BinaryArrayItem{FieldName: "RelatedPolygons", BinaryType: util.DatatypeUint16},
		&util.BinaryArrayItem{FieldName: "VertexCounts", BinaryType: util.DatatypeUint16},
		&util.BinaryArrayItem{FieldName: "Addresses", BinaryType: util.DatatypeUint32},
	},
}

func (h header) zoneIDAddress(polygonID int) int64 {
	return headerSize + 2*int64(polygonID)
}

func (h header) vertexCountAddress(polygonID int) int64 {
	return headerSize + 2*int64(h.NumberOfPolygons) + 2*int64(polygonID)
}

func (h header) vertexDataAddressAddress(polygonID int) int64 {
	return headerSize + 4*int64(h.NumberOfPolygons) + 4*int64(polygonID)
}

func (h header) boundsAddress(polygonID int) int64 {
	return headerSize + 8*int64(h.NumberOfPolygons) + boundsSize*int64(polygonID)
}

func (h header) polygonDataStart() int64 {
	return headerSize + polygonEntrySize*int64(h.NumberOfPolygons)
}

func (h header) shortcutCountAddress(cell common.CellIndex) int64 {
	return h.ShortcutsStart + 2*int64(cell.Ordinal())
}

func (h header) shortcutListAddressAddress(cell common.CellIndex) int64 {
	return h.ShortcutsStart + 2*common.NumberOfShortcuts + 4*int64(cell.Ordinal())
}

func (h header) shortcutDataStart() int64 {
	return h.ShortcutsStart + shortcutEntrySize*common.NumberOfShortcuts
}

func (h header) holeRelatedPolygonAddress(holeID int) int64 {
	return h.HolesStart + 2*int64(holeID)
}

func (h header) holeVertexCountAddress(holeID int) int64 {
	return h.HolesStart + 2*int64(h.NumberOfHoles) + 2*int64(holeID)
}

func (h header) holeVertexDataAddressAddress(holeID int) int64 {
	return h.HolesStart + 4*int64(h.NumberOfHoles) + 4*int64(holeID)
}

func (h header) holeDataStart() int64 {
	return h.HolesStart + holeEntrySize*int64(h.NumberOfHoles)
}
