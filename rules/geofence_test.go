package rules

import (
	"math"
	"testing"
)

// latOffsetForKm returns the latitude delta that puts a point the given
// great-circle distance due north of a reference latitude. Along a meridian
// the haversine collapses to distance = EarthRadiusKm * dLat, so this is
// exact up to float rounding.
func latOffsetForKm(km float64) float64 {
	return km / EarthRadiusKm * 180 / math.Pi
}

func TestEvaluateGeofence_Radius(t *testing.T) {
	center := Boundary{
		Scope:     ScopeRadius,
		CenterLat: 26.14,
		CenterLng: -81.79,
		RadiusKm:  140,
	}

	pointAt := func(km float64) Location {
		return Location{Lat: center.CenterLat + latOffsetForKm(km), Lng: center.CenterLng}
	}

	t.Run("inside radius is allowed", func(t *testing.T) {
		v := EvaluateGeofence(pointAt(139.95), center)
		if !v.Allowed {
			t.Fatalf("expected allowed at 139.95km of a 140km boundary, got %+v", v)
		}
	})

	t.Run("boundary plus buffer is allowed", func(t *testing.T) {
		v := EvaluateGeofence(pointAt(140+BoundarySafetyBufferKm-1e-6), center)
		if !v.Allowed {
			t.Fatalf("expected allowed at the buffer edge, got %+v", v)
		}
	})

	t.Run("just past the buffer is denied", func(t *testing.T) {
		v := EvaluateGeofence(pointAt(140.1001), center)
		if v.Allowed {
			t.Fatal("expected denied just past the buffer")
		}
		if v.Reason != ReasonOutsideBoundary {
			t.Errorf("expected reason %s, got %s", ReasonOutsideBoundary, v.Reason)
		}
	})

	t.Run("denial carries distance and permitted radius", func(t *testing.T) {
		v := EvaluateGeofence(pointAt(140.2), center)
		if v.Allowed {
			t.Fatal("expected denied at 140.2km")
		}
		if math.Abs(v.DistanceKm-140.2) > 0.01 {
			t.Errorf("expected distance ≈140.2, got %f", v.DistanceKm)
		}
		if v.PermittedRadiusKm != 140.1 {
			t.Errorf("expected permitted radius 140.1, got %f", v.PermittedRadiusKm)
		}
	})

	t.Run("missing radius falls back to default permitted radius", func(t *testing.T) {
		open := center
		open.RadiusKm = 0
		if v := EvaluateGeofence(pointAt(199), open); !v.Allowed {
			t.Errorf("expected allowed inside the default radius, got %+v", v)
		}
		if v := EvaluateGeofence(pointAt(201), open); v.Allowed {
			t.Error("expected denied outside the default radius")
		}
	})

	t.Run("null island fix is unknown", func(t *testing.T) {
		v := EvaluateGeofence(Location{Lat: 0, Lng: 0}, center)
		if v.Allowed || v.Reason != ReasonLocationUnknown {
			t.Errorf("expected LOCATION_UNKNOWN, got %+v", v)
		}
	})

	t.Run("NaN coordinates are unknown", func(t *testing.T) {
		v := EvaluateGeofence(Location{Lat: math.NaN(), Lng: -81.79}, center)
		if v.Allowed || v.Reason != ReasonLocationUnknown {
			t.Errorf("expected LOCATION_UNKNOWN, got %+v", v)
		}
	})

	t.Run("out of range coordinates are unknown", func(t *testing.T) {
		v := EvaluateGeofence(Location{Lat: 91, Lng: -81.79}, center)
		if v.Allowed || v.Reason != ReasonLocationUnknown {
			t.Errorf("expected LOCATION_UNKNOWN, got %+v", v)
		}
	})
}

func TestEvaluateGeofence_StateAndRegion(t *testing.T) {
	t.Run("matching state code allowed", func(t *testing.T) {
		v := EvaluateGeofence(Location{StateCode: "fl"}, Boundary{Scope: ScopeState, StateCode: "FL"})
		if !v.Allowed {
			t.Fatalf("expected case-insensitive state match, got %+v", v)
		}
	})

	t.Run("wrong state denied", func(t *testing.T) {
		v := EvaluateGeofence(Location{StateCode: "GA"}, Boundary{Scope: ScopeState, StateCode: "FL"})
		if v.Allowed || v.Reason != ReasonOutsideState {
			t.Errorf("expected OUTSIDE_STATE, got %+v", v)
		}
	})

	t.Run("missing state info on either side is unknown", func(t *testing.T) {
		for _, pair := range []struct{ got, want string }{{"", "FL"}, {"FL", ""}, {"  ", "FL"}} {
			v := EvaluateGeofence(Location{StateCode: pair.got}, Boundary{Scope: ScopeState, StateCode: pair.want})
			if v.Allowed || v.Reason != ReasonLocationUnknown {
				t.Errorf("got=%q want=%q: expected LOCATION_UNKNOWN, got %+v", pair.got, pair.want, v)
			}
		}
	})

	t.Run("region label trimmed and case-insensitive", func(t *testing.T) {
		v := EvaluateGeofence(
			Location{RegionLabel: "  gulf coast "},
			Boundary{Scope: ScopeRegion, RegionName: "Gulf Coast"},
		)
		if !v.Allowed {
			t.Fatalf("expected region match, got %+v", v)
		}
	})

	t.Run("wrong region denied for LOCAL scope too", func(t *testing.T) {
		v := EvaluateGeofence(Location{RegionLabel: "Panhandle"}, Boundary{Scope: ScopeLocal, RegionName: "Gulf Coast"})
		if v.Allowed || v.Reason != ReasonOutsideRegion {
			t.Errorf("expected OUTSIDE_REGION, got %+v", v)
		}
	})

	t.Run("unknown scope denied", func(t *testing.T) {
		v := EvaluateGeofence(Location{Lat: 26, Lng: -81}, Boundary{Scope: "COUNTY"})
		if v.Allowed || v.Reason != ReasonLocationUnknown {
			t.Errorf("expected LOCATION_UNKNOWN for unknown scope, got %+v", v)
		}
	})
}

func TestDistanceKm(t *testing.T) {
	// Naples, FL to Miami, FL is roughly 170km over ground.
	d := DistanceKm(26.1420, -81.7948, 25.7617, -80.1918)
	if d < 160 || d > 175 {
		t.Errorf("expected Naples-Miami distance around 166km, got %f", d)
	}

	if d := DistanceKm(26.14, -81.79, 26.14, -81.79); d != 0 {
		t.Errorf("expected zero distance for identical points, got %f", d)
	}
}
