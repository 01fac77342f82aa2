package index

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidIndex is returned when index data or the zone-name table is inconsistent.
	ErrInvalidIndex = errors.New("invalid index data")

	// ErrRasterization is returned when the exact shortcut computation of a polygon produced an impossible result.
	ErrRasterization = errors.New("shortcut rasterization failed")

	// ErrStorageWidth is returned when the input data does not fit into the fixed field widths of the index layout.
	ErrStorageWidth = errors.New("data exceeds storage width of index layout")
)

// OutOfBoundsError is returned by all queries for coordinates outside of [-180;180] x [-90;90].
type OutOfBoundsError struct {
	Lng float64
	Lat float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("The coordinates are out of bounds: (%f, %f)", e.Lng, e.Lat)
}

func checkBounds(lng float64, lat float64) error {
	// Written negated so that NaN values are rejected as well.
	if !(lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90) {
		return &OutOfBoundsError{Lng: lng, Lat: lat}
	}
	return nil
}
