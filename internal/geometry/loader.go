package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadSnapshot reads the building, amenity, and parcel layers from
// shapefiles and assembles a validated Snapshot. Zones are derived from the
// parcel layer's zone attribute. Any path may be empty to skip that layer.
//
// The data-processing pipeline that produces these files is outside the
// core; this loader only maps cleaned layers into the in-memory snapshot.
func LoadSnapshot(buildingsPath, amenitiesPath, parcelsPath string) (*Snapshot, error) {
	var (
		buildings []Building
		amenities []Amenity
		parcels   []Parcel
	)

	if buildingsPath != "" {
		var err error
		buildings, err = loadBuildings(buildingsPath)
		if err != nil {
			return nil, err
		}
	}
	if amenitiesPath != "" {
		var err error
		amenities, err = loadAmenities(amenitiesPath)
		if err != nil {
			return nil, err
		}
	}
	if parcelsPath != "" {
		var err error
		parcels, err = loadParcels(parcelsPath)
		if err != nil {
			return nil, err
		}
	}

	zones := zonesFromParcels(parcels)

	zap.L().Info("geometry: snapshot loaded",
		zap.Int("buildings", len(buildings)),
		zap.Int("amenities", len(amenities)),
		zap.Int("parcels", len(parcels)),
		zap.Int("zones", len(zones)),
	)

	return NewSnapshot(buildings, amenities, parcels, zones, nil)
}

func loadBuildings(path string) ([]Building, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: open buildings shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndexes(reader)
	var out []Building
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}
		out = append(out, Building{
			ID:            attrOrDefault(reader, idx, "id", fmt.Sprintf("bldg-%d", n)),
			ParcelID:      attrOrDefault(reader, idx, "parcel", ""),
			Centroid:      Point{X: pt.X, Y: pt.Y},
			FootprintArea: attrFloat(reader, idx, "area"),
		})
	}
	if skipped > 0 {
		zap.L().Debug("geometry: skipped non-point building records", zap.Int("skipped", skipped))
	}
	return out, nil
}

func loadAmenities(path string) ([]Amenity, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: open amenities shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndexes(reader)
	var out []Amenity
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}
		weight := attrFloat(reader, idx, "weight")
		if weight == 0 {
			weight = 1
		}
		out = append(out, Amenity{
			ID:       attrOrDefault(reader, idx, "id", fmt.Sprintf("amen-%d", n)),
			Position: Point{X: pt.X, Y: pt.Y},
			Category: attrOrDefault(reader, idx, "category", "generic"),
			Weight:   weight,
		})
	}
	if skipped > 0 {
		zap.L().Debug("geometry: skipped non-point amenity records", zap.Int("skipped", skipped))
	}
	return out, nil
}

func loadParcels(path string) ([]Parcel, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: open parcels shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndexes(reader)
	var out []Parcel
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()
		sp, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		poly := shapePolygon(sp)
		if poly == nil {
			skipped++
			continue
		}
		out = append(out, Parcel{
			ID:      attrOrDefault(reader, idx, "id", fmt.Sprintf("parcel-%d", n)),
			ZoneID:  attrOrDefault(reader, idx, "zone", "default"),
			Polygon: poly,
		})
	}
	if skipped > 0 {
		zap.L().Debug("geometry: skipped malformed parcel records", zap.Int("skipped", skipped))
	}
	return out, nil
}

// shapePolygon converts the first ring of a shapefile polygon to a
// geom.Polygon. Interior rings (holes) are carried as additional rings.
func shapePolygon(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	poly := geom.NewPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geometry: skipping malformed parcel ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if poly.NumLinearRings() == 0 {
		return nil
	}
	return poly
}

// zonesFromParcels aggregates parcel areas per zone ID, in first-seen order.
func zonesFromParcels(parcels []Parcel) []Zone {
	var zones []Zone
	byID := make(map[string]int)
	for i := range parcels {
		p := &parcels[i]
		if p.Area == 0 && p.Polygon != nil {
			p.Area = p.Polygon.Area()
		}
		zi, ok := byID[p.ZoneID]
		if !ok {
			zi = len(zones)
			byID[p.ZoneID] = zi
			zones = append(zones, Zone{ID: p.ZoneID})
		}
		zones[zi].TotalArea += p.Area
	}
	return zones
}

// fieldIndexes builds a lowercase field name → column index map.
func fieldIndexes(reader *shp.Reader) map[string]int {
	fields := reader.Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		idx[strings.ToLower(name)] = i
	}
	return idx
}

func attrOrDefault(reader *shp.Reader, idx map[string]int, field, fallback string) string {
	i, ok := idx[field]
	if !ok {
		return fallback
	}
	val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
	if val == "" {
		return fallback
	}
	return val
}

func attrFloat(reader *shp.Reader, idx map[string]int, field string) float64 {
	i, ok := idx[field]
	if !ok {
		return 0
	}
	val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return f
}
