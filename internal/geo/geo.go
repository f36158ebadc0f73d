package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Coordinate is an immutable latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Distance returns the great-circle distance between two coordinates in
// meters using the haversine formula. It is a total function over valid
// degree ranges; NaN inputs propagate NaN instead of producing an error,
// callers validate upstream.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// ProximityStatus classifies a position sample relative to the office fence.
type ProximityStatus string

const (
	StatusOffice ProximityStatus = "office"
	StatusRemote ProximityStatus = "remote"
)

// Classify maps a position sample onto the office geofence. The boundary is
// inclusive: a sample exactly radiusMeters away counts as at the office.
func Classify(sample, office Coordinate, radiusMeters float64) (ProximityStatus, bool) {
	atOffice := Distance(sample.Lat, sample.Lon, office.Lat, office.Lon) <= radiusMeters
	if atOffice {
		return StatusOffice, true
	}
	return StatusRemote, false
}
