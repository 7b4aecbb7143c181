// Package rules is the portable eligibility core shared by the backend and
// the mobile client mirror. It must stay dependency-free (standard library
// only) so both surfaces link the exact same logic and agree on every edge
// case: boundary distances, lifecycle instants and tie-break ordering.
package rules

import (
	"math"
	"strings"
)

// Scope levels for a tournament boundary.
const (
	ScopeState  = "STATE"
	ScopeRegion = "REGION"
	ScopeLocal  = "LOCAL"
	ScopeRadius = "RADIUS"
)

// Boundary failure reasons.
const (
	ReasonOutsideState    = "OUTSIDE_STATE"
	ReasonOutsideRegion   = "OUTSIDE_REGION"
	ReasonOutsideBoundary = "OUTSIDE_BOUNDARY"
	ReasonLocationUnknown = "LOCATION_UNKNOWN"
)

const (
	// EarthRadiusKm is the haversine sphere radius. Both surfaces must use
	// the same value or they disagree about points near the fence line.
	EarthRadiusKm = 6371.0

	// BoundarySafetyBufferKm absorbs GPS jitter at the fence line. A point at
	// exactly radius+buffer is allowed; anything beyond is denied.
	BoundarySafetyBufferKm = 0.1

	// DefaultPermittedRadiusKm applies when a RADIUS tournament carries no
	// usable radius, matching the original client behavior.
	DefaultPermittedRadiusKm = 200.0
)

// Location is a resolved device fix. StateCode and RegionLabel come from
// reverse geocoding and are only meaningful for STATE/REGION/LOCAL scopes.
type Location struct {
	Lat         float64
	Lng         float64
	StateCode   string
	RegionLabel string
}

// Boundary describes where a tournament allows catches.
type Boundary struct {
	Scope      string
	StateCode  string
	RegionName string
	CenterLat  float64
	CenterLng  float64
	RadiusKm   float64
}

// GeofenceVerdict is the result of a boundary check. DistanceKm and
// PermittedRadiusKm are populated only for RADIUS denials so callers can
// render "you are X km out of a Y km boundary" messaging.
type GeofenceVerdict struct {
	Allowed           bool    `json:"allowed"`
	Reason            string  `json:"reason,omitempty"`
	DistanceKm        float64 `json:"distance_km,omitempty"`
	PermittedRadiusKm float64 `json:"permitted_radius_km,omitempty"`
}

// EvaluateGeofence decides whether a location counts as inside a tournament
// boundary. Pure and side-effect free; safe to call on either surface.
func EvaluateGeofence(loc Location, b Boundary) GeofenceVerdict {
	switch b.Scope {
	case ScopeState:
		return matchLabels(loc.StateCode, b.StateCode, ReasonOutsideState)
	case ScopeRegion, ScopeLocal:
		return matchLabels(loc.RegionLabel, b.RegionName, ReasonOutsideRegion)
	case ScopeRadius:
		return evaluateRadius(loc, b)
	default:
		return GeofenceVerdict{Allowed: false, Reason: ReasonLocationUnknown}
	}
}

func matchLabels(got, want, failReason string) GeofenceVerdict {
	got = strings.TrimSpace(got)
	want = strings.TrimSpace(want)
	if got == "" || want == "" {
		return GeofenceVerdict{Allowed: false, Reason: ReasonLocationUnknown}
	}
	if strings.EqualFold(got, want) {
		return GeofenceVerdict{Allowed: true}
	}
	return GeofenceVerdict{Allowed: false, Reason: failReason}
}

func evaluateRadius(loc Location, b Boundary) GeofenceVerdict {
	if !validCoordinates(loc.Lat, loc.Lng) || !validCoordinates(b.CenterLat, b.CenterLng) {
		return GeofenceVerdict{Allowed: false, Reason: ReasonLocationUnknown}
	}

	distance := DistanceKm(loc.Lat, loc.Lng, b.CenterLat, b.CenterLng)
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return GeofenceVerdict{Allowed: false, Reason: ReasonLocationUnknown}
	}

	permitted := DefaultPermittedRadiusKm
	if b.RadiusKm > 0 {
		permitted = b.RadiusKm + BoundarySafetyBufferKm
	}

	if distance <= permitted {
		return GeofenceVerdict{Allowed: true}
	}
	return GeofenceVerdict{
		Allowed:           false,
		Reason:            ReasonOutsideBoundary,
		DistanceKm:        distance,
		PermittedRadiusKm: permitted,
	}
}

// validCoordinates rejects NaN/Inf, out-of-range values and the (0,0) null
// island fix, which in practice only appears when a device has no GPS lock.
func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceKm computes the great-circle distance between two points using the
// haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
