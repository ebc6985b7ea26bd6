package main

import (
	"fmt"

	"github.com/sells-group/urbanopt/internal/geometry"
)

// demoSnapshot builds a synthetic four-block district: a 2x2 parcel grid,
// one building per parcel, and a small amenity cluster at the center. Useful
// for trying the engine without shapefile inputs.
func demoSnapshot() (*geometry.Snapshot, error) {
	var (
		buildings []geometry.Building
		parcels   []geometry.Parcel
	)

	// 200 m blocks centered on the origin.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			id := fmt.Sprintf("p%d%d", i, j)
			cx := float64(i)*200 - 100
			cy := float64(j)*200 - 100
			parcels = append(parcels, geometry.Parcel{
				ID:     id,
				ZoneID: "demo",
				Area:   200 * 200,
			})
			buildings = append(buildings, geometry.Building{
				ID:            "b" + id,
				ParcelID:      id,
				Centroid:      geometry.Point{X: cx, Y: cy},
				FootprintArea: 1200,
			})
		}
	}

	amenities := []geometry.Amenity{
		{ID: "a1", Position: geometry.Point{X: 0, Y: 0}, Category: "grocery", Weight: 3},
		{ID: "a2", Position: geometry.Point{X: 40, Y: 0}, Category: "school", Weight: 2},
		{ID: "a3", Position: geometry.Point{X: 0, Y: 40}, Category: "transit", Weight: 2},
		{ID: "a4", Position: geometry.Point{X: -40, Y: -40}, Category: "park", Weight: 1},
	}

	zones := []geometry.Zone{{ID: "demo", TotalArea: 4 * 200 * 200}}

	return geometry.NewSnapshot(buildings, amenities, parcels, zones, nil)
}
