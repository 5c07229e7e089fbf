package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestCellIDKnownValues(t *testing.T) {
	lat, lon := ptr(5.8943), ptr(95.25293)

	cell, ok := CellID(lat, lon, 0)
	require.True(t, ok)
	assert.Equal(t, "8065fffffffffff", cell)

	cell, ok = CellID(lat, lon, 14)
	require.True(t, ok)
	assert.Equal(t, "8e65534b37a2c0f", cell)

	cell, ok = CellID(lat, lon, 15)
	require.True(t, ok)
	assert.Equal(t, "8f65534b37a2c0d", cell)
}

func TestCellIDDeterministic(t *testing.T) {
	for res := 0; res <= MaxResolution; res++ {
		a, okA := CellID(ptr(30.3287), ptr(35.4421), res)
		b, okB := CellID(ptr(30.3287), ptr(35.4421), res)
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, a, b)
	}
}

func TestCellIDRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		lat  *float64
		lon  *float64
		res  int
	}{
		{"nil lat", nil, ptr(10), 5},
		{"nil lon", ptr(10), nil, 5},
		{"lat too high", ptr(90.5), ptr(10), 5},
		{"lon too low", ptr(10), ptr(-180.1), 5},
		{"negative resolution", ptr(10), ptr(10), -1},
		{"resolution too fine", ptr(10), ptr(10), 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := CellID(tt.lat, tt.lon, tt.res)
			assert.False(t, ok)
		})
	}

	for res := 0; res <= MaxResolution; res++ {
		_, ok := CellID(nil, nil, res)
		assert.False(t, ok)
	}
}

func TestCells(t *testing.T) {
	cells := Cells(ptr(5.8943), ptr(95.25293))
	require.Len(t, cells, 16)
	assert.Equal(t, "8065fffffffffff", cells[0])
	assert.Equal(t, "8a65534b37a7fff", cells[10])
	assert.Equal(t, "8f65534b37a2c0d", cells[15])

	assert.Nil(t, Cells(nil, ptr(1)))
}

func TestCoordinate(t *testing.T) {
	v, ok := Coordinate(12.5)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = Coordinate(true)
	assert.False(t, ok)
	_, ok = Coordinate("12.5")
	assert.False(t, ok)
	_, ok = Coordinate(nil)
	assert.False(t, ok)
}

func TestLocationStrings(t *testing.T) {
	assert.Equal(t, "5.8943,95.25293", LatLon(5.8943, 95.25293))
	assert.Equal(t, "POINT(95.25293 5.8943)", Point(5.8943, 95.25293))
	assert.Equal(t, "ENVELOPE(95.25293, 95.25293, 5.8943, 5.8943)", Envelope(5.8943, 95.25293))
}

func TestExpand(t *testing.T) {
	fields := Expand(ptr(5.8943), ptr(95.25293))
	require.Len(t, fields, 16)
	assert.Equal(t, "8065fffffffffff", fields["producedBy_samplingSite_location_h3_0"])
	assert.Equal(t, "8f65534b37a2c0d", fields["producedBy_samplingSite_location_h3_15"])

	assert.Nil(t, Expand(nil, nil))
	assert.Nil(t, Expand(ptr(91), ptr(0)))
}
