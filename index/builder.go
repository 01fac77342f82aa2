package index

import (
	"sort"
	"time"
	"tzf/common"
	"tzf/geometry"
	"tzf/util"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

type BuildStatistics struct {
	Polygons      int
	Holes         int
	Zones         int
	Vertices      int
	HoleVertices  int
	BigZones      int
	FilledCells   int
	CellEntries   int
	PolygonBytes  int64
	ShortcutBytes int64
	HoleBytes     int64
	TotalBytes    int64
}

type BuildResult struct {
	Data       []byte
	ZoneNames  []string
	Statistics BuildStatistics
}

// BuildIndex creates the complete index data for the given polygons. The polygon ids within the index are the
// positions within "records".
func BuildIndex(records []PolygonRecord) (*BuildResult, error) {
	sigolo.Infof("Start building index of %d polygons", len(records))
	buildStartTime := time.Now()

	if len(records) == 0 {
		return nil, errors.Errorf("Cannot build an index without polygons")
	}
	if len(records) > maxUint16 {
		return nil, errors.Wrapf(ErrStorageWidth, "%d polygons given but at most %d are supported", len(records), maxUint16)
	}

	zoneNames, zoneIDs, err := collectZones(records)
	if err != nil {
		return nil, err
	}

	stats := BuildStatistics{
		Polygons: len(records),
		Zones:    len(zoneNames),
	}

	rings := make([]geometry.FixedRing, len(records))
	var holes []geometry.FixedRing
	var relatedPolygons []uint16
	for i, record := range records {
		rings[i], err = toStoredRing(record.Outer)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid outer ring of polygon %d (zone %s)", i, record.ZoneName)
		}
		stats.Vertices += rings[i].Len()

		// Holes are added in polygon order, which keeps all holes of one polygon next to each other.
		for j, hole := range record.Holes {
			fixedHole, err := toStoredRing(hole)
			if err != nil {
				return nil, errors.Wrapf(err, "Invalid hole %d of polygon %d (zone %s)", j, i, record.ZoneName)
			}
			holes = append(holes, fixedHole)
			relatedPolygons = append(relatedPolygons, uint16(i))
			stats.HoleVertices += fixedHole.Len()
		}
	}

	if len(holes) > maxUint16 {
		return nil, errors.Wrapf(ErrStorageWidth, "%d holes given but at most %d are supported", len(holes), maxUint16)
	}
	stats.Holes = len(holes)

	sigolo.Debug("Compute shortcuts")
	shortcutStartTime := time.Now()
	cells, err := computeShortcuts(rings, &stats)
	if err != nil {
		return nil, err
	}
	sigolo.Debugf("Computing the shortcuts took %s", time.Since(shortcutStartTime))

	data, err := serialize(rings, zoneIDs, cells, holes, relatedPolygons, &stats)
	if err != nil {
		return nil, err
	}

	logStatistics(stats)
	sigolo.Infof("Finished building index in %s", time.Since(buildStartTime))

	return &BuildResult{
		Data:       data,
		ZoneNames:  zoneNames,
		Statistics: stats,
	}, nil
}

// collectZones returns the sorted and deduplicated zone names and the zone id of each record.
func collectZones(records []PolygonRecord) ([]string, []uint16, error) {
	nameSet := map[string]bool{}
	for i, record := range records {
		if record.ZoneName == "" {
			return nil, nil, errors.Errorf("Polygon %d has no zone name", i)
		}
		nameSet[record.ZoneName] = true
	}

	if len(nameSet) > maxUint16 {
		return nil, nil, errors.Wrapf(ErrStorageWidth, "%d zones given but at most %d are supported", len(nameSet), maxUint16)
	}

	zoneNames := make([]string, 0, len(nameSet))
	for name := range nameSet {
		zoneNames = append(zoneNames, name)
	}
	sort.Strings(zoneNames)

	nameToID := map[string]uint16{}
	for id, name := range zoneNames {
		nameToID[name] = uint16(id)
	}

	zoneIDs := make([]uint16, len(records))
	for i, record := range records {
		zoneIDs[i] = nameToID[record.ZoneName]
	}

	return zoneNames, zoneIDs, nil
}

func toStoredRing(ring orb.Ring) (geometry.FixedRing, error) {
	fixedRing := geometry.NewFixedRing(ring)
	if fixedRing.Len() < 3 {
		return fixedRing, errors.Errorf("Ring has %d vertices but at least 3 are needed", fixedRing.Len())
	}
	if fixedRing.Len() > maxUint16 {
		return fixedRing, errors.Wrapf(ErrStorageWidth, "Ring has %d vertices but at most %d are supported", fixedRing.Len(), maxUint16)
	}
	return fixedRing, nil
}

// computeShortcuts returns the polygon ids of each cell, indexed by the cell ordinal. Polygons are processed in id
// order, so each list is sorted ascending.
func computeShortcuts(rings []geometry.FixedRing, stats *BuildStatistics) ([][]uint16, error) {
	cells := make([][]uint16, common.NumberOfShortcuts)

	for polygonID, ring := range rings {
		if polygonID%1000 == 0 {
			sigolo.Debugf("Compute shortcuts of polygon %d", polygonID)
		}

		bound := boundsOfRing(ring).toOrbBound()
		polygonCells, bigZone, err := shortcutCellsOf(ring, bound)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to compute shortcuts of polygon %d", polygonID)
		}
		if bigZone {
			stats.BigZones++
		}

		for _, cell := range polygonCells {
			ordinal := cell.Ordinal()
			cells[ordinal] = append(cells[ordinal], uint16(polygonID))
		}
	}

	for ordinal, ids := range cells {
		if len(ids) > MaxPolygonsPerCell {
			x := ordinal / common.NumberOfRows
			y := ordinal % common.NumberOfRows
			return nil, errors.Wrapf(ErrStorageWidth, "Cell (%d,%d) contains %d polygons but at most %d are supported", x, y, len(ids), MaxPolygonsPerCell)
		}
		if len(ids) > 0 {
			stats.FilledCells++
			stats.CellEntries += len(ids)
		}
	}

	return cells, nil
}

func serialize(rings []geometry.FixedRing, zoneIDs []uint16, cells [][]uint16, holes []geometry.FixedRing, relatedPolygons []uint16, stats *BuildStatistics) ([]byte, error) {
	h := header{
		NumberOfPolygons: len(rings),
		NumberOfHoles:    len(holes),
	}

	polygons := polygonTable{
		ZoneIDs:      zoneIDs,
		VertexCounts: make([]uint16, len(rings)),
		Addresses:    make([]uint32, len(rings)),
		Bounds:       make([]int32, 0, 4*len(rings)),
	}
	address := h.polygonDataStart()
	for i, ring := range rings {
		polygons.VertexCounts[i] = uint16(ring.Len())
		polygons.Addresses[i] = uint32(address)
		address += 8 * int64(ring.Len())

		bounds := boundsOfRing(ring)
		polygons.Bounds = append(polygons.Bounds, bounds.XMax, bounds.XMin, bounds.YMax, bounds.YMin)
	}
	h.ShortcutsStart = address

	shortcuts := shortcutTable{
		Counts:    make([]uint16, common.NumberOfShortcuts),
		Addresses: make([]uint32, common.NumberOfShortcuts),
		IDs:       make([]uint16, 0, stats.CellEntries),
	}
	address = h.shortcutDataStart()
	for ordinal, ids := range cells {
		if len(ids) == 0 {
			continue
		}
		shortcuts.Counts[ordinal] = uint16(len(ids))
		shortcuts.Addresses[ordinal] = uint32(address)
		shortcuts.IDs = append(shortcuts.IDs, ids...)
		address += 2 * int64(len(ids))
	}
	h.HolesStart = address

	holeEntries := holeTable{
		RelatedPolygons: relatedPolygons,
		VertexCounts:    make([]uint16, len(holes)),
		Addresses:       make([]uint32, len(holes)),
	}
	address = h.holeDataStart()
	for i, hole := range holes {
		if int(relatedPolygons[i]) >= len(rings) {
			util.LogFatalBug("Hole %d belongs to polygon %d but there are only %d polygons", i, relatedPolygons[i], len(rings))
		}
		holeEntries.VertexCounts[i] = uint16(hole.Len())
		holeEntries.Addresses[i] = uint32(address)
		address += 8 * int64(hole.Len())
	}

	totalSize := address
	if totalSize > maxAddress {
		return nil, errors.Wrapf(ErrStorageWidth, "Index would be %d bytes large but addresses only support %d bytes", totalSize, int64(maxAddress))
	}

	stats.PolygonBytes = h.ShortcutsStart
	stats.ShortcutBytes = h.HolesStart - h.ShortcutsStart
	stats.HoleBytes = totalSize - h.HolesStart
	stats.TotalBytes = totalSize

	data := make([]byte, totalSize)

	index, err := headerSchema.Write(&h, data, 0)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to write header")
	}

	index, err = polygonTableSchema.Write(&polygons, data, index)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to write polygon table")
	}

	for i := range rings {
		index, err = ringSchema.Write(&rings[i], data, index)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to write vertices of polygon %d", i)
		}
	}
	if int64(index) != h.ShortcutsStart {
		util.LogFatalBug("Polygon data ends at %d but the shortcut section should start at %d", index, h.ShortcutsStart)
	}

	index, err = shortcutTableSchema.Write(&shortcuts, data, index)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to write shortcut section")
	}
	if int64(index) != h.HolesStart {
		util.LogFatalBug("Shortcut data ends at %d but the hole section should start at %d", index, h.HolesStart)
	}

	index, err = holeTableSchema.Write(&holeEntries, data, index)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to write hole table")
	}

	for i := range holes {
		index, err = ringSchema.Write(&holes[i], data, index)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to write vertices of hole %d", i)
		}
	}
	if int64(index) != totalSize {
		util.LogFatalBug("Index data ends at %d but should have a size of %d bytes", index, totalSize)
	}

	return data, nil
}

func logStatistics(stats BuildStatistics) {
	percentage := func(part int64) float64 {
		return float64(part) / float64(stats.TotalBytes) * 100
	}

	sigolo.Infof("Number of polygons: %d (%d vertices)", stats.Polygons, stats.Vertices)
	sigolo.Infof("Number of holes: %d (%d vertices)", stats.Holes, stats.HoleVertices)
	sigolo.Infof("Number of zones: %d", stats.Zones)
	sigolo.Infof("Number of big zones (exact shortcuts): %d", stats.BigZones)
	sigolo.Infof("Filled shortcut cells: %d (%.2f%% of all cells, %d entries)", stats.FilledCells, float64(stats.FilledCells)/common.NumberOfShortcuts*100, stats.CellEntries)
	sigolo.Infof("Index size: %d bytes", stats.TotalBytes)
	sigolo.Infof("  polygon section:  %d bytes (%.2f%%)", stats.PolygonBytes, percentage(stats.PolygonBytes))
	sigolo.Infof("  shortcut section: %d bytes (%.2f%%)", stats.ShortcutBytes, percentage(stats.ShortcutBytes))
	sigolo.Infof("  hole section:     %d bytes (%.2f%%)", stats.HoleBytes, percentage(stats.HoleBytes))
}
