// Package metrics computes the per-scenario objective scores. Every function
// is pure given its (scenario, snapshot, index) inputs; that purity is what
// makes fingerprint-keyed memoization of results sound. A metric that grew
// hidden state would silently poison the cache.
package metrics

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urbanopt/internal/geometry"
	"github.com/sells-group/urbanopt/internal/scenario"
	"github.com/sells-group/urbanopt/internal/spatial"
)

// Metric names, used as keys in Result, weight maps, and direction maps.
const (
	GreenSpace  = "green_space"
	Walkability = "walkability"
	MixedUse    = "mixed_use"
	Energy      = "energy"
	InfraCost   = "infra_cost"
)

// Names lists every metric in a fixed order.
var Names = []string{GreenSpace, Walkability, MixedUse, Energy, InfraCost}

// ErrDegenerateGeometry indicates a metric was asked to score against empty
// required geometry (no buildings, no zones). Callers either supply a
// non-empty snapshot or let the constraint layer reject the scenario first.
var ErrDegenerateGeometry = eris.New("metrics: degenerate reference geometry")

// Direction declares whether a metric is better when larger or smaller.
type Direction string

const (
	Maximize Direction = "maximize"
	Minimize Direction = "minimize"
)

// DefaultDirections maps each metric to its natural objective direction.
func DefaultDirections() map[string]Direction {
	return map[string]Direction{
		GreenSpace:  Maximize,
		Walkability: Maximize,
		MixedUse:    Maximize,
		Energy:      Minimize,
		InfraCost:   Minimize,
	}
}

// Result maps metric name to its scalar score for one scenario. All entries
// are computed on the same (scenario, snapshot) pair.
type Result map[string]float64

// Params holds the tunable constants the metric functions depend on.
type Params struct {
	// WalkRadius is the amenity search radius in meters around each
	// building centroid. The default approximates a ten-minute walk.
	WalkRadius float64 `json:"walk_radius"`
	// WalkScale converts summed amenity weight to walkability points
	// before the per-building cap at 100.
	WalkScale float64 `json:"walk_scale"`
	// FloorHeight is the assumed story height in meters for deriving
	// floor counts from building heights.
	FloorHeight float64 `json:"floor_height"`
	// CostPerSqm is the base infrastructure cost per square meter of
	// parcel area before category and density adjustment.
	CostPerSqm float64 `json:"cost_per_sqm"`
}

// DefaultParams returns the default metric constants.
func DefaultParams() Params {
	return Params{
		WalkRadius:  800,
		WalkScale:   10,
		FloorHeight: 3,
		CostPerSqm:  120,
	}
}

// energyIntensity is the annual energy use per square meter of floor area,
// by assigned land-use category.
var energyIntensity = map[scenario.LandUse]float64{
	scenario.UseResidential: 50,
	scenario.UseCommercial:  90,
	scenario.UseMixed:       70,
	scenario.UseIndustrial:  120,
	scenario.UseGreen:       5,
	scenario.UseCivic:       60,
}

// costFactor scales infrastructure cost by land-use category.
var costFactor = map[scenario.LandUse]float64{
	scenario.UseResidential: 1.0,
	scenario.UseCommercial:  1.4,
	scenario.UseMixed:       1.2,
	scenario.UseIndustrial:  1.6,
	scenario.UseGreen:       0.3,
	scenario.UseCivic:       1.1,
}

// GreenSpaceRatio is the area-weighted share of zone area allocated to green
// space. Range [0,1].
func GreenSpaceRatio(s *scenario.Scenario, geo *geometry.Snapshot) (float64, error) {
	if len(geo.Zones) == 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "green space: no zones")
	}
	total := geo.TotalZoneArea()
	if total <= 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "green space: zero total zone area")
	}

	var allocated float64
	for i, z := range geo.Zones {
		frac := 0.0
		if i < len(s.GreenFractions) {
			frac = s.GreenFractions[i]
		}
		allocated += z.TotalArea * frac
	}
	return allocated / total, nil
}

// WalkabilityScore is the mean over buildings of the capped, scaled amenity
// weight found within WalkRadius of each centroid. Range [0,100].
func WalkabilityScore(geo *geometry.Snapshot, ix *spatial.Index, p Params) (float64, error) {
	if len(geo.Buildings) == 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "walkability: no buildings")
	}

	var sum float64
	for _, b := range geo.Buildings {
		var raw float64
		for _, ai := range ix.QueryRadius(b.Centroid, p.WalkRadius) {
			raw += geo.Amenities[ai].Weight
		}
		sum += math.Min(raw*p.WalkScale, 100)
	}
	return sum / float64(len(geo.Buildings)), nil
}

// MixedUseDensity is the mean per-zone Shannon diversity of assigned
// land-use categories, normalized to [0,1]. A zone with every parcel in one
// category scores 0; an even split across all known categories scores 1.
func MixedUseDensity(s *scenario.Scenario, geo *geometry.Snapshot) (float64, error) {
	if len(geo.Parcels) == 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "mixed use: no parcels")
	}

	zoneIdx := geo.ZoneIndex()
	counts := make([]map[scenario.LandUse]int, len(geo.Zones))
	totals := make([]int, len(geo.Zones))

	for i := range geo.Parcels {
		zi, ok := zoneIdx[geo.Parcels[i].ZoneID]
		if !ok {
			continue
		}
		use := scenario.UseResidential
		if i < len(s.LandUses) {
			use = s.LandUses[i]
		}
		if counts[zi] == nil {
			counts[zi] = make(map[scenario.LandUse]int)
		}
		counts[zi][use]++
		totals[zi]++
	}

	norm := math.Log(float64(len(scenario.KnownUses)))
	var sum float64
	var zones int
	for zi := range counts {
		if totals[zi] == 0 {
			continue
		}
		var h float64
		for _, n := range counts[zi] {
			p := float64(n) / float64(totals[zi])
			h -= p * math.Log(p)
		}
		sum += h / norm
		zones++
	}
	if zones == 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "mixed use: no parcels assigned to zones")
	}
	return sum / float64(zones), nil
}

// EnergyConsumption sums per-building annual energy use from floor area and
// the use category of the building's parcel. Lower is better.
func EnergyConsumption(s *scenario.Scenario, geo *geometry.Snapshot, p Params) (float64, error) {
	if len(geo.Buildings) == 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "energy: no buildings")
	}

	parcelIdx := geo.ParcelIndex()
	var total float64
	for i, b := range geo.Buildings {
		height := 0.0
		if i < len(s.Heights) {
			height = s.Heights[i]
		}
		floors := math.Max(1, math.Round(height/p.FloorHeight))
		total += b.FootprintArea * floors * energyIntensity[buildingUse(s, parcelIdx, b)]
	}
	return total, nil
}

// InfrastructureCost prices parcel servicing by category, scaled up by the
// floor-area density the scenario's heights imply. Lower is better.
func InfrastructureCost(s *scenario.Scenario, geo *geometry.Snapshot, p Params) (float64, error) {
	if len(geo.Parcels) == 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "infra cost: no parcels")
	}
	parcelArea := geo.TotalParcelArea()
	if parcelArea <= 0 {
		return 0, eris.Wrap(ErrDegenerateGeometry, "infra cost: zero total parcel area")
	}

	density := FloorAreaRatio(s, geo, p)

	var cost float64
	for i := range geo.Parcels {
		use := scenario.UseResidential
		if i < len(s.LandUses) {
			use = s.LandUses[i]
		}
		cost += geo.Parcels[i].Area * p.CostPerSqm * costFactor[use]
	}
	return cost * (1 + density), nil
}

// FloorAreaRatio is total built floor area over total parcel area — the
// density measure shared by the cost metric and the density constraint.
func FloorAreaRatio(s *scenario.Scenario, geo *geometry.Snapshot, p Params) float64 {
	parcelArea := geo.TotalParcelArea()
	if parcelArea <= 0 {
		return 0
	}
	var floorArea float64
	for i, b := range geo.Buildings {
		height := 0.0
		if i < len(s.Heights) {
			height = s.Heights[i]
		}
		floors := math.Max(1, math.Round(height/p.FloorHeight))
		floorArea += b.FootprintArea * floors
	}
	return floorArea / parcelArea
}

// Compute evaluates every metric for the scenario.
func Compute(s *scenario.Scenario, geo *geometry.Snapshot, ix *spatial.Index, p Params) (Result, error) {
	green, err := GreenSpaceRatio(s, geo)
	if err != nil {
		return nil, err
	}
	walk, err := WalkabilityScore(geo, ix, p)
	if err != nil {
		return nil, err
	}
	mixed, err := MixedUseDensity(s, geo)
	if err != nil {
		return nil, err
	}
	energy, err := EnergyConsumption(s, geo, p)
	if err != nil {
		return nil, err
	}
	cost, err := InfrastructureCost(s, geo, p)
	if err != nil {
		return nil, err
	}

	return Result{
		GreenSpace:  green,
		Walkability: walk,
		MixedUse:    mixed,
		Energy:      energy,
		InfraCost:   cost,
	}, nil
}

// buildingUse resolves the land-use category governing a building via its
// parcel. Buildings without a parcel link default to residential.
func buildingUse(s *scenario.Scenario, parcelIdx map[string]int, b geometry.Building) scenario.LandUse {
	if pi, ok := parcelIdx[b.ParcelID]; ok && pi < len(s.LandUses) {
		return s.LandUses[pi]
	}
	return scenario.UseResidential
}
