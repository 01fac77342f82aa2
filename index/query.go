package index

import (
	"math"
	"tzf/common"
	"tzf/geometry"
	"tzf/util"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

type ClosestOptions struct {
	// DeltaDegree is the search radius in cells. The window covers this many columns and twice as many rows in each
	// direction around the cell of the point.
	DeltaDegree     int
	Metric          geometry.DistanceMetric
	ReturnDistances bool // Fill ClosestResult.Distances and ClosestResult.ZoneNames
	ForceEvaluation bool // Compute the distance of every candidate, not only of the ones that could change the result
}

func DefaultClosestOptions() ClosestOptions {
	return ClosestOptions{
		DeltaDegree: 1,
		Metric:      geometry.DistanceVertices,
	}
}

type ClosestResult struct {
	ZoneName string
	Found    bool

	// Candidate polygons within the search window in the order they were gathered.
	PolygonIDs []int

	// Distance in km and zone name per candidate polygon. Only set when requested. Distances of polygons that didn't
	// need to be evaluated are NaN.
	Distances []float64
	ZoneNames []string
}

// TimezoneAt returns the zone of the polygon containing the point. When all candidates of the point's shortcut cell
// belong to the same zone, that zone is returned without any geometric test. The result may therefore be a zone near
// the point, even though no polygon contains it. Use CertainTimezoneAt to avoid this.
func (i *Index) TimezoneAt(lng float64, lat float64) (string, bool, error) {
	err := checkBounds(lng, lat)
	if err != nil {
		return "", false, err
	}

	candidates, err := i.ShortcutCandidates(common.GetCellIndexForCoordinate(lng, lat))
	if err != nil {
		return "", false, err
	}

	sigolo.Tracef("Candidates for (%f, %f): %v", lng, lat, candidates)

	if len(candidates) == 0 {
		return "", false, nil
	}
	if len(candidates) == 1 {
		zoneName, err := i.ZoneNameOf(candidates[0])
		return zoneName, err == nil, err
	}

	zoneIDs, err := i.zoneIDsOf(candidates)
	if err != nil {
		return "", false, err
	}

	if allTheSame(zoneIDs) {
		return i.zoneNames[zoneIDs[0]], true, nil
	}

	x := int64(util.ToFixed(lng))
	y := int64(util.ToFixed(lat))

	for j, polygonID := range candidates {
		contained, err := i.contains(polygonID, x, y)
		if err != nil {
			return "", false, err
		}
		if contained {
			return i.zoneNames[zoneIDs[j]], true, nil
		}

		// Only polygons of one zone left, so this zone is the result
		remaining := zoneIDs[j+1:]
		if len(remaining) > 0 && allTheSame(remaining) {
			return i.zoneNames[remaining[0]], true, nil
		}
	}

	return "", false, nil
}

// CertainTimezoneAt returns the zone of the polygon containing the point. Other than TimezoneAt, every candidate is
// tested, so a zone is only returned if one of its polygons really contains the point.
func (i *Index) CertainTimezoneAt(lng float64, lat float64) (string, bool, error) {
	err := checkBounds(lng, lat)
	if err != nil {
		return "", false, err
	}

	candidates, err := i.ShortcutCandidates(common.GetCellIndexForCoordinate(lng, lat))
	if err != nil {
		return "", false, err
	}

	x := int64(util.ToFixed(lng))
	y := int64(util.ToFixed(lat))

	for _, polygonID := range candidates {
		contained, err := i.contains(polygonID, x, y)
		if err != nil {
			return "", false, err
		}
		if contained {
			zoneName, err := i.ZoneNameOf(polygonID)
			return zoneName, err == nil, err
		}
	}

	return "", false, nil
}

// contains checks if the fixed-point coordinate lies within the polygon but outside all of its holes.
func (i *Index) contains(polygonID int, x int64, y int64) (bool, error) {
	bounds, err := i.fixedBoundsOf(polygonID)
	if err != nil {
		return false, err
	}
	if !bounds.contains(x, y) {
		return false, nil
	}

	for _, holeID := range i.holesOf(polygonID) {
		hole, err := i.holeRing(holeID)
		if err != nil {
			return false, err
		}
		if geometry.InsidePolygon(x, y, hole) {
			return false, nil
		}
	}

	ring, err := i.polygonRing(polygonID)
	if err != nil {
		return false, err
	}
	return geometry.InsidePolygon(x, y, ring), nil
}

// ClosestTimezoneAt searches the polygon closest to the point within the window of cells around it. Only polygons
// with at least one shortcut cell within that window are considered, so there might be closer polygons outside of it.
// The window does not wrap around at the 180° meridian.
func (i *Index) ClosestTimezoneAt(lng float64, lat float64, options ClosestOptions) (*ClosestResult, error) {
	err := checkBounds(lng, lat)
	if err != nil {
		return nil, err
	}
	if options.DeltaDegree < 0 {
		return nil, errors.Errorf("Search radius must not be negative but was %d", options.DeltaDegree)
	}

	candidates, err := i.candidatesAround(common.GetCellIndexForCoordinate(lng, lat), options.DeltaDegree)
	if err != nil {
		return nil, err
	}

	result := &ClosestResult{
		PolygonIDs: candidates,
	}
	if len(candidates) == 0 {
		return result, nil
	}

	zoneIDs, err := i.zoneIDsOf(candidates)
	if err != nil {
		return nil, err
	}

	if allTheSame(zoneIDs) && !options.ReturnDistances && !options.ForceEvaluation {
		result.ZoneName = i.zoneNames[zoneIDs[0]]
		result.Found = true
		return result, nil
	}

	lngRad := geometry.Radians(lng)
	latRad := geometry.Radians(lat)

	distances := make([]float64, len(candidates))
	for j := range distances {
		distances[j] = math.NaN()
	}

	minDistance := geometry.MaxDistanceKm
	closestZoneID := -1

	if options.ForceEvaluation {
		for j, polygonID := range candidates {
			distances[j], err = i.distanceTo(polygonID, lngRad, latRad, options.Metric)
			if err != nil {
				return nil, err
			}

			if distances[j] < minDistance {
				minDistance = distances[j]
				closestZoneID = zoneIDs[j]
			}
		}
	} else {
		// Candidates are visited circularly. Polygons of the currently closest zone are skipped, they cannot change
		// the result. Each time a closer polygon is found, all other polygons need to be visited again.
		alreadyChecked := make([]bool, len(candidates))
		polygonsChecked := 0
		pointer := 0

		for polygonsChecked < len(candidates) {
			if alreadyChecked[pointer] || zoneIDs[pointer] == closestZoneID {
				polygonsChecked++
			} else {
				distances[pointer], err = i.distanceTo(candidates[pointer], lngRad, latRad, options.Metric)
				if err != nil {
					return nil, err
				}
				alreadyChecked[pointer] = true

				if distances[pointer] < minDistance {
					minDistance = distances[pointer]
					closestZoneID = zoneIDs[pointer]
					polygonsChecked = 1
				}
			}

			pointer = (pointer + 1) % len(candidates)
		}
	}

	if closestZoneID >= 0 {
		result.ZoneName = i.zoneNames[closestZoneID]
		result.Found = true
	}

	if options.ReturnDistances {
		result.Distances = distances
		result.ZoneNames = make([]string, len(zoneIDs))
		for j, zoneID := range zoneIDs {
			result.ZoneNames[j] = i.zoneNames[zoneID]
		}
	}

	sigolo.Tracef("Closest zone to (%f, %f) is %s with %f km", lng, lat, result.ZoneName, minDistance)

	return result, nil
}

// candidatesAround collects the polygons of all cells within the search window, column by column, without
// duplicates.
func (i *Index) candidatesAround(center common.CellIndex, deltaDegree int) ([]int, error) {
	deltaColumns := deltaDegree * common.ShortcutsPerLng
	deltaRows := deltaDegree * common.ShortcutsPerLat

	window := common.CellExtent{
		common.CellIndex{center.X() - deltaColumns, center.Y() - deltaRows},
		common.CellIndex{center.X() + deltaColumns, center.Y() + deltaRows},
	}.Clamp()

	var candidates []int
	seen := map[int]bool{}
	for _, cell := range window.GetCellIndices() {
		polygonIDs, err := i.ShortcutCandidates(cell)
		if err != nil {
			return nil, err
		}

		for _, polygonID := range polygonIDs {
			if !seen[polygonID] {
				seen[polygonID] = true
				candidates = append(candidates, polygonID)
			}
		}
	}

	return candidates, nil
}

func (i *Index) distanceTo(polygonID int, lngRad float64, latRad float64, metric geometry.DistanceMetric) (float64, error) {
	ring, err := i.polygonRing(polygonID)
	if err != nil {
		return 0, err
	}

	switch metric {
	case geometry.DistanceVertices:
		return geometry.DistanceToPolygon(lngRad, latRad, ring), nil
	case geometry.DistanceEdges:
		return geometry.DistanceToPolygonExact(lngRad, latRad, ring), nil
	}
	return 0, errors.Errorf("Unknown distance metric %d", metric)
}

func allTheSame(values []int) bool {
	if len(values) == 0 {
		return true
	}
	for _, value := range values[1:] {
		if value != values[0] {
			return false
		}
	}
	return true
}
