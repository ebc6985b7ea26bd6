package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrInvalidGeometry indicates a reference geometry snapshot that cannot be
// used for a run (non-finite coordinates, negative areas, malformed rings).
var ErrInvalidGeometry = eris.New("geometry: invalid reference geometry")

// Point is a position in the planar scene coordinate system, in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance from p to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// finite reports whether both coordinates are finite numbers.
func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Building is one building footprint in the study area. The centroid is the
// query point for proximity metrics; FootprintArea is the ground floor area
// in square meters.
type Building struct {
	ID            string  `json:"id"`
	ParcelID      string  `json:"parcel_id"`
	Centroid      Point   `json:"centroid"`
	FootprintArea float64 `json:"footprint_area"`
}

// Amenity is a point of interest that contributes to walkability. Weight
// expresses relative importance (a grocery store outweighs a kiosk).
type Amenity struct {
	ID       string  `json:"id"`
	Position Point   `json:"position"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// Parcel is one land parcel polygon, assigned to a zone. Its land-use
// category is a decision variable, not part of the snapshot.
type Parcel struct {
	ID      string        `json:"id"`
	ZoneID  string        `json:"zone_id"`
	Polygon *geom.Polygon `json:"-"`
	Area    float64       `json:"area"`
}

// Zone groups parcels for green-space allocation. TotalArea is the sum of
// member parcel areas plus any unparceled public land.
type Zone struct {
	ID        string  `json:"id"`
	TotalArea float64 `json:"total_area"`
}

// StreetEdge is one edge of the street network.
type StreetEdge struct {
	From   Point   `json:"from"`
	To     Point   `json:"to"`
	Length float64 `json:"length"`
}

// Snapshot is the read-only reference geometry shared by every scenario in a
// run. Construct it once with NewSnapshot; the core never mutates it.
type Snapshot struct {
	Buildings []Building
	Amenities []Amenity
	Parcels   []Parcel
	Zones     []Zone
	Streets   []StreetEdge
}

// NewSnapshot validates the layers and derives missing parcel areas from
// their polygons. Validation failures are fatal for the run.
func NewSnapshot(buildings []Building, amenities []Amenity, parcels []Parcel, zones []Zone, streets []StreetEdge) (*Snapshot, error) {
	s := &Snapshot{
		Buildings: buildings,
		Amenities: amenities,
		Parcels:   parcels,
		Zones:     zones,
		Streets:   streets,
	}

	for i := range s.Parcels {
		p := &s.Parcels[i]
		if p.Area == 0 && p.Polygon != nil {
			p.Area = p.Polygon.Area()
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every layer for coordinates and areas a metric function
// could choke on. It returns ErrInvalidGeometry wrapped with the first
// offending entity.
func (s *Snapshot) Validate() error {
	for i, b := range s.Buildings {
		if !b.Centroid.finite() {
			return eris.Wrapf(ErrInvalidGeometry, "building %d (%s): non-finite centroid", i, b.ID)
		}
		if b.FootprintArea < 0 || math.IsNaN(b.FootprintArea) || math.IsInf(b.FootprintArea, 0) {
			return eris.Wrapf(ErrInvalidGeometry, "building %d (%s): bad footprint area", i, b.ID)
		}
	}
	for i, a := range s.Amenities {
		if !a.Position.finite() {
			return eris.Wrapf(ErrInvalidGeometry, "amenity %d (%s): non-finite position", i, a.ID)
		}
		if a.Weight < 0 || math.IsNaN(a.Weight) {
			return eris.Wrapf(ErrInvalidGeometry, "amenity %d (%s): negative weight", i, a.ID)
		}
	}
	for i, p := range s.Parcels {
		if p.Area < 0 || math.IsNaN(p.Area) || math.IsInf(p.Area, 0) {
			return eris.Wrapf(ErrInvalidGeometry, "parcel %d (%s): bad area", i, p.ID)
		}
	}
	for i, z := range s.Zones {
		if z.TotalArea < 0 || math.IsNaN(z.TotalArea) || math.IsInf(z.TotalArea, 0) {
			return eris.Wrapf(ErrInvalidGeometry, "zone %d (%s): bad total area", i, z.ID)
		}
	}
	for i, e := range s.Streets {
		if !e.From.finite() || !e.To.finite() {
			return eris.Wrapf(ErrInvalidGeometry, "street edge %d: non-finite endpoint", i)
		}
	}
	return nil
}

// AmenityPoints returns the amenity positions in insertion order, for
// building the spatial index.
func (s *Snapshot) AmenityPoints() []Point {
	pts := make([]Point, len(s.Amenities))
	for i, a := range s.Amenities {
		pts[i] = a.Position
	}
	return pts
}

// ParcelIndex maps parcel ID to its position in the Parcels slice.
func (s *Snapshot) ParcelIndex() map[string]int {
	idx := make(map[string]int, len(s.Parcels))
	for i, p := range s.Parcels {
		idx[p.ID] = i
	}
	return idx
}

// ZoneIndex maps zone ID to its position in the Zones slice.
func (s *Snapshot) ZoneIndex() map[string]int {
	idx := make(map[string]int, len(s.Zones))
	for i, z := range s.Zones {
		idx[z.ID] = i
	}
	return idx
}

// TotalZoneArea is the sum of all zone areas.
func (s *Snapshot) TotalZoneArea() float64 {
	var total float64
	for _, z := range s.Zones {
		total += z.TotalArea
	}
	return total
}

// TotalParcelArea is the sum of all parcel areas.
func (s *Snapshot) TotalParcelArea() float64 {
	var total float64
	for _, p := range s.Parcels {
		total += p.Area
	}
	return total
}
