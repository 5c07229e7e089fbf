// Package geo derives H3 spatial cells and related location strings from a
// sampling site's latitude and longitude.
package geo

import (
	"fmt"
	"math"
	"strconv"

	"github.com/uber/h3-go/v4"

	"github.com/c360studio/isamples/core"
)

// MaxResolution is the finest H3 resolution.
const MaxResolution = 15

// ValidLatitude reports whether lat is within [-90, 90].
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lon is within [-180, 180].
func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}

// Coordinate extracts a numeric coordinate from a decoded JSON value.
// Booleans, strings, and nil are rejected.
func Coordinate(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// CellID returns the H3 cell containing (lat, lon) at resolution, as a
// lowercase hex string. It returns false when either coordinate is missing or
// out of range, or the resolution is not within 0 to 15.
func CellID(lat, lon *float64, resolution int) (string, bool) {
	if lat == nil || lon == nil {
		return "", false
	}
	if !ValidLatitude(*lat) || !ValidLongitude(*lon) {
		return "", false
	}
	if resolution < 0 || resolution > MaxResolution {
		return "", false
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(*lat, *lon), resolution)
	if err != nil {
		return "", false
	}
	return cell.String(), true
}

// Cells returns the cell at every resolution from 0 through 15, or nil when
// the location is unusable.
func Cells(lat, lon *float64) []string {
	cells := make([]string, MaxResolution+1)
	for res := 0; res <= MaxResolution; res++ {
		cell, ok := CellID(lat, lon, res)
		if !ok {
			return nil
		}
		cells[res] = cell
	}
	return cells
}

// Expand returns the search fields for every resolution, keyed
// producedBy_samplingSite_location_h3_<r>. It returns nil when the location
// is unusable.
func Expand(lat, lon *float64) map[string]string {
	cells := Cells(lat, lon)
	if cells == nil {
		return nil
	}
	fields := make(map[string]string, len(cells))
	for res, cell := range cells {
		fields[core.H3Field(res)] = cell
	}
	return fields
}

// LatLon formats a "lat,lon" centroid string.
func LatLon(lat, lon float64) string {
	return fmt.Sprintf("%s,%s", formatFloat(lat), formatFloat(lon))
}

// Point formats a WKT point. WKT orders coordinates x (longitude) then y.
func Point(lat, lon float64) string {
	return fmt.Sprintf("POINT(%s %s)", formatFloat(lon), formatFloat(lat))
}

// Envelope formats a degenerate bounding box around a point in the
// ENVELOPE(minX, maxX, maxY, minY) form used by the search index.
func Envelope(lat, lon float64) string {
	x, y := formatFloat(lon), formatFloat(lat)
	return fmt.Sprintf("ENVELOPE(%s, %s, %s, %s)", x, x, y, y)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
