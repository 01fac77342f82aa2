package index

import (
	"io"
	"os"
	"path"
	"tzf/common"
	"tzf/geometry"
	"tzf/util"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Index provides read access to a built index. All accessors seek within the underlying data before reading, so an
// Index must not be used by multiple goroutines at the same time. Open one Index per goroutine instead.
type Index struct {
	reader    *util.IndexedReader
	closer    io.Closer
	header    header
	zoneNames []string

	// Polygon id -> holes of that polygon. Polygons without holes have no entry.
	holeRegistry map[int]holeRange

	ringCache *lruRingCache
}

type holeRange struct {
	count int
	first int
}

// Open opens the index files within the given folder. The returned Index must be closed by the caller.
func Open(baseFolder string) (*Index, error) {
	return OpenFiles(path.Join(baseFolder, DataFilename), path.Join(baseFolder, ZoneNamesFilename))
}

func OpenFiles(dataFile string, zoneNamesFile string) (*Index, error) {
	zoneNames, err := LoadZoneNames(zoneNamesFile)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(dataFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open index data file %s", dataFile)
	}

	index, err := NewIndex(file, zoneNames)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "Unable to open index data file %s", dataFile)
	}
	index.closer = file

	sigolo.Debugf("Opened index %s with %d polygons, %d holes and %d zones", dataFile, index.NumberOfPolygons(), index.NumberOfHoles(), len(zoneNames))
	return index, nil
}

// NewIndex reads the header of the index data, validates it and builds the hole registry. The source is not closed
// by Close.
func NewIndex(source io.ReadSeeker, zoneNames []string) (*Index, error) {
	reader, err := util.NewIndexedReader(source)
	if err != nil {
		return nil, err
	}

	if reader.Size() < headerSize {
		return nil, errors.Wrapf(ErrInvalidIndex, "Index data has only %d bytes", reader.Size())
	}

	headerBytes, err := reader.Bytes(0, headerSize)
	if err != nil {
		return nil, err
	}

	index := &Index{
		reader:    reader,
		zoneNames: zoneNames,
		ringCache: newLruRingCache(DefaultRingCacheSize),
	}
	_, err = headerSchema.Read(&index.header, headerBytes, 0)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read index header")
	}

	err = index.validateLayout()
	if err != nil {
		return nil, err
	}

	err = index.validateZoneIDs()
	if err != nil {
		return nil, err
	}

	err = index.buildHoleRegistry()
	if err != nil {
		return nil, err
	}

	return index, nil
}

// WithIndex opens the index in the given folder, passes it to the function and closes it afterward, also when the
// function fails.
func WithIndex(baseFolder string, f func(index *Index) error) (err error) {
	index, err := Open(baseFolder)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := index.Close()
		if err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	return f(index)
}

func (i *Index) Close() error {
	if i.closer == nil {
		return nil
	}

	err := i.closer.Close()
	i.closer = nil
	if err != nil {
		return errors.Wrap(err, "Unable to close index data")
	}
	return nil
}

func (i *Index) validateLayout() error {
	h := i.header
	size := i.reader.Size()

	if h.NumberOfPolygons == 0 {
		return errors.Wrap(ErrInvalidIndex, "Index contains no polygons")
	}
	if h.ShortcutsStart < h.polygonDataStart() || h.shortcutDataStart() > size {
		return errors.Wrapf(ErrInvalidIndex, "Shortcut section at %d does not fit into the index data of size %d", h.ShortcutsStart, size)
	}
	if h.HolesStart < h.shortcutDataStart() || h.holeDataStart() > size {
		return errors.Wrapf(ErrInvalidIndex, "Hole section at %d does not fit into the index data of size %d", h.HolesStart, size)
	}

	return nil
}

func (i *Index) validateZoneIDs() error {
	zoneIDs, err := i.reader.Uint16s(i.header.zoneIDAddress(0), i.header.NumberOfPolygons)
	if err != nil {
		return err
	}

	for polygonID, zoneID := range zoneIDs {
		if int(zoneID) >= len(i.zoneNames) {
			return errors.Wrapf(ErrInvalidIndex, "Polygon %d has zone id %d but only %d zone names exist", polygonID, zoneID, len(i.zoneNames))
		}
	}

	return nil
}

// buildHoleRegistry groups all holes by their polygon. The holes of a polygon must be stored next to each other.
func (i *Index) buildHoleRegistry() error {
	i.holeRegistry = map[int]holeRange{}
	if i.header.NumberOfHoles == 0 {
		return nil
	}

	relatedPolygons, err := i.reader.Uint16s(i.header.holeRelatedPolygonAddress(0), i.header.NumberOfHoles)
	if err != nil {
		return err
	}

	for holeID, related := range relatedPolygons {
		polygonID := int(related)
		if polygonID >= i.header.NumberOfPolygons {
			return errors.Wrapf(ErrInvalidIndex, "Hole %d belongs to polygon %d but there are only %d polygons", holeID, polygonID, i.header.NumberOfPolygons)
		}

		holes, ok := i.holeRegistry[polygonID]
		if !ok {
			i.holeRegistry[polygonID] = holeRange{count: 1, first: holeID}
			continue
		}

		if holes.first+holes.count != holeID {
			return errors.Wrapf(ErrInvalidIndex, "Holes of polygon %d are not stored next to each other (hole %d)", polygonID, holeID)
		}
		holes.count++
		i.holeRegistry[polygonID] = holes
	}

	sigolo.Tracef("Hole registry: %+v", i.holeRegistry)
	return nil
}

func (i *Index) NumberOfPolygons() int {
	return i.header.NumberOfPolygons
}

func (i *Index) NumberOfHoles() int {
	return i.header.NumberOfHoles
}

// ZoneNames returns all zone names. The position of a name is its zone id.
func (i *Index) ZoneNames() []string {
	return append([]string{}, i.zoneNames...)
}

func (i *Index) checkPolygonID(polygonID int) error {
	if polygonID < 0 || polygonID >= i.header.NumberOfPolygons {
		return errors.Errorf("Polygon id %d out of range, index contains %d polygons", polygonID, i.header.NumberOfPolygons)
	}
	return nil
}

func (i *Index) ZoneIDOf(polygonID int) (int, error) {
	err := i.checkPolygonID(polygonID)
	if err != nil {
		return 0, err
	}

	zoneID, err := i.reader.Uint16(i.header.zoneIDAddress(polygonID))
	if err != nil {
		return 0, err
	}
	return int(zoneID), nil
}

func (i *Index) ZoneNameOf(polygonID int) (string, error) {
	zoneID, err := i.ZoneIDOf(polygonID)
	if err != nil {
		return "", err
	}
	return i.zoneNames[zoneID], nil
}

func (i *Index) zoneIDsOf(polygonIDs []int) ([]int, error) {
	zoneIDs := make([]int, len(polygonIDs))
	for j, polygonID := range polygonIDs {
		zoneID, err := i.ZoneIDOf(polygonID)
		if err != nil {
			return nil, err
		}
		zoneIDs[j] = zoneID
	}
	return zoneIDs, nil
}

func (i *Index) BoundsOf(polygonID int) (orb.Bound, error) {
	bounds, err := i.fixedBoundsOf(polygonID)
	if err != nil {
		return orb.Bound{}, err
	}
	return bounds.toOrbBound(), nil
}

func (i *Index) fixedBoundsOf(polygonID int) (fixedBounds, error) {
	err := i.checkPolygonID(polygonID)
	if err != nil {
		return fixedBounds{}, err
	}

	values, err := i.reader.Int32s(i.header.boundsAddress(polygonID), 4)
	if err != nil {
		return fixedBounds{}, err
	}

	return fixedBounds{
		XMax: values[0],
		XMin: values[1],
		YMax: values[2],
		YMin: values[3],
	}, nil
}

// Polygon returns the outer ring followed by all holes of the polygon in degrees.
func (i *Index) Polygon(polygonID int) (orb.Polygon, error) {
	ring, err := i.polygonRing(polygonID)
	if err != nil {
		return nil, err
	}

	polygon := orb.Polygon{ring.ToOrbRing()}

	for _, holeID := range i.holesOf(polygonID) {
		hole, err := i.holeRing(holeID)
		if err != nil {
			return nil, err
		}
		polygon = append(polygon, hole.ToOrbRing())
	}

	return polygon, nil
}

func (i *Index) polygonRing(polygonID int) (geometry.FixedRing, error) {
	err := i.checkPolygonID(polygonID)
	if err != nil {
		return geometry.FixedRing{}, err
	}

	if ring, ok := i.ringCache.get(polygonID); ok {
		return ring, nil
	}

	ring, err := i.readRing(i.header.vertexCountAddress(polygonID), i.header.vertexDataAddressAddress(polygonID))
	if err != nil {
		return geometry.FixedRing{}, errors.Wrapf(err, "Unable to read vertices of polygon %d", polygonID)
	}

	err = i.ringCache.insert(polygonID, ring)
	if err != nil {
		util.LogFatalBug("Unable to cache ring of polygon %d: %+v", polygonID, err)
	}
	return ring, nil
}

func (i *Index) holeRing(holeID int) (geometry.FixedRing, error) {
	ring, err := i.readRing(i.header.holeVertexCountAddress(holeID), i.header.holeVertexDataAddressAddress(holeID))
	if err != nil {
		return geometry.FixedRing{}, errors.Wrapf(err, "Unable to read vertices of hole %d", holeID)
	}
	return ring, nil
}

func (i *Index) readRing(countAddress int64, dataAddressAddress int64) (geometry.FixedRing, error) {
	count, err := i.reader.Uint16(countAddress)
	if err != nil {
		return geometry.FixedRing{}, err
	}

	dataAddress, err := i.reader.Uint32(dataAddressAddress)
	if err != nil {
		return geometry.FixedRing{}, err
	}

	values, err := i.reader.Int32s(int64(dataAddress), 2*int(count))
	if err != nil {
		return geometry.FixedRing{}, err
	}

	return geometry.FixedRing{
		X: values[:count],
		Y: values[count:],
	}, nil
}

// holesOf returns the ids of all holes of the polygon. A polygon without holes has no entry in the registry.
func (i *Index) holesOf(polygonID int) []int {
	holes, ok := i.holeRegistry[polygonID]
	if !ok {
		return nil
	}

	holeIDs := make([]int, holes.count)
	for j := range holeIDs {
		holeIDs[j] = holes.first + j
	}
	return holeIDs
}

// ShortcutCandidates returns the ids of all polygons stored for the given cell in ascending order.
func (i *Index) ShortcutCandidates(cell common.CellIndex) ([]int, error) {
	if !cell.IsValid() {
		return nil, errors.Errorf("Cell %v is not within the shortcut grid", cell)
	}

	count, err := i.reader.Uint16(i.header.shortcutCountAddress(cell))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	address, err := i.reader.Uint32(i.header.shortcutListAddressAddress(cell))
	if err != nil {
		return nil, err
	}

	ids, err := i.reader.Uint16s(int64(address), int(count))
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read polygons of cell %v", cell)
	}

	polygonIDs := make([]int, len(ids))
	for j, id := range ids {
		polygonIDs[j] = int(id)
	}
	return polygonIDs, nil
}
