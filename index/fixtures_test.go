package index

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"
)

// Polygon ids of the test records
const (
	madridID = iota
	copenhagenID
	copenhagenIslandID
	stockholmID
	singaporeID
	kualaLumpurID
	johannesburgID
	maseruID
)

// Synthetic and much simplified zones. They are just good enough to contain (or not contain) the points used in the
// tests.
func testRecords() []PolygonRecord {
	return []PolygonRecord{
		{
			ZoneName: "Europe/Madrid",
			Outer: orb.Ring{
				{-9.3, 43.8}, {-1.8, 43.4}, {3.3, 42.4}, {3.2, 41.9}, {0.2, 39.9}, {-0.3, 38.2},
				{-2.1, 36.7}, {-5.6, 36.0}, {-7.4, 37.2}, {-7.0, 39.5}, {-9.5, 42.0}, {-9.3, 43.8},
			},
		},
		{
			ZoneName: "Europe/Copenhagen",
			Outer:    orb.Ring{{11.5, 55.0}, {12.7, 55.0}, {12.7, 55.578}, {12.7, 56.0}, {11.5, 56.0}},
		},
		{
			ZoneName: "Europe/Copenhagen",
			Outer:    orb.Ring{{12.3, 56.1}, {12.6, 56.1}, {12.6, 56.3}, {12.3, 56.3}, {12.3, 56.1}},
		},
		{
			ZoneName: "Europe/Stockholm",
			Outer:    orb.Ring{{13.2, 55.3}, {14.5, 55.3}, {14.5, 56.5}, {13.2, 56.5}},
		},
		{
			ZoneName: "Asia/Singapore",
			Outer:    orb.Ring{{103.6, 1.15}, {104.1, 1.15}, {104.1, 1.47}, {103.6, 1.47}},
		},
		{
			ZoneName: "Asia/Kuala_Lumpur",
			Outer:    orb.Ring{{103.5, 1.47}, {104.5, 1.47}, {104.5, 2.5}, {103.5, 2.5}},
		},
		{
			ZoneName: "Africa/Johannesburg",
			Outer: orb.Ring{
				{16.5, -28.6}, {20.0, -24.7}, {25.3, -25.7}, {31.4, -22.1}, {32.9, -26.8},
				{30.2, -31.3}, {25.6, -34.0}, {20.0, -34.8}, {18.4, -34.2}, {17.8, -31.0},
			},
			Holes: []orb.Ring{
				{{27.0, -30.7}, {29.5, -30.7}, {29.5, -28.6}, {27.0, -28.6}},
			},
		},
		{
			ZoneName: "Africa/Maseru",
			Outer:    orb.Ring{{27.0, -30.7}, {29.5, -30.7}, {29.5, -28.6}, {27.0, -28.6}},
		},
	}
}

var testZoneNames = []string{
	"Africa/Johannesburg",
	"Africa/Maseru",
	"Asia/Kuala_Lumpur",
	"Asia/Singapore",
	"Europe/Copenhagen",
	"Europe/Madrid",
	"Europe/Stockholm",
}

func buildTestIndex(t *testing.T) *Index {
	result, err := BuildIndex(testRecords())
	if err != nil {
		t.Fatalf("Unable to build test index: %+v", err)
	}

	index, err := NewIndex(bytes.NewReader(result.Data), result.ZoneNames)
	if err != nil {
		t.Fatalf("Unable to open test index: %+v", err)
	}

	return index
}
