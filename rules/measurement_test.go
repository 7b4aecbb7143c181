package rules

import "testing"

func TestPrizeEligibility(t *testing.T) {
	goodMeasurement := func() *Measurement {
		return &Measurement{
			Status:          MeasurementStatusOK,
			Confidence:      0.92,
			ReferenceObject: ReferenceObject{Detected: true, Confidence: 0.9},
		}
	}

	t.Run("no prize pool is always eligible", func(t *testing.T) {
		if v := PrizeEligibility(0, nil); !v.Eligible {
			t.Errorf("expected eligible with zero prize pool, got %+v", v)
		}
	})

	t.Run("good measurement is eligible", func(t *testing.T) {
		v := PrizeEligibility(1200, goodMeasurement())
		if !v.Eligible || v.Reason != "" {
			t.Errorf("expected eligible, got %+v", v)
		}
	})

	t.Run("missing measurement", func(t *testing.T) {
		v := PrizeEligibility(1200, nil)
		if v.Eligible || v.Reason != ReasonNoMeasurement {
			t.Errorf("expected NO_MEASUREMENT, got %+v", v)
		}
	})

	t.Run("error status", func(t *testing.T) {
		m := goodMeasurement()
		m.Status = MeasurementStatusError
		v := PrizeEligibility(1200, m)
		if v.Eligible || v.Reason != ReasonMeasurementError {
			t.Errorf("expected MEASUREMENT_ERROR, got %+v", v)
		}
	})

	t.Run("idle status", func(t *testing.T) {
		m := goodMeasurement()
		m.Status = MeasurementStatusIdle
		v := PrizeEligibility(1200, m)
		if v.Eligible || v.Reason != ReasonNotMeasured {
			t.Errorf("expected NOT_MEASURED, got %+v", v)
		}
	})

	t.Run("confidence below threshold", func(t *testing.T) {
		m := goodMeasurement()
		m.Confidence = 0.60
		v := PrizeEligibility(1200, m)
		if v.Eligible || v.Reason != ReasonLowConfidence {
			t.Errorf("expected LOW_CONFIDENCE, got %+v", v)
		}
	})

	t.Run("confidence exactly at threshold passes", func(t *testing.T) {
		m := goodMeasurement()
		m.Confidence = PrizeConfidenceThreshold
		if v := PrizeEligibility(1200, m); !v.Eligible {
			t.Errorf("expected eligible at the threshold, got %+v", v)
		}
	})

	t.Run("no reference object", func(t *testing.T) {
		m := goodMeasurement()
		m.ReferenceObject.Detected = false
		v := PrizeEligibility(1200, m)
		if v.Eligible || v.Reason != ReasonNoReferenceFound {
			t.Errorf("expected NO_REFERENCE_FOUND, got %+v", v)
		}
	})

	t.Run("critical flag", func(t *testing.T) {
		m := goodMeasurement()
		m.Flags = []string{"MARKER_UNCLEAR", "FISH_NOT_DETECTED"}
		v := PrizeEligibility(1200, m)
		if v.Eligible || v.Reason != ReasonCriticalFlag {
			t.Errorf("expected CRITICAL_FLAG, got %+v", v)
		}
	})

	t.Run("soft flags alone do not disqualify", func(t *testing.T) {
		m := goodMeasurement()
		m.Flags = []string{"MARKER_UNCLEAR"}
		if v := PrizeEligibility(1200, m); !v.Eligible {
			t.Errorf("expected eligible with only soft flags, got %+v", v)
		}
	})
}

func TestVerifiedMeasurement(t *testing.T) {
	m := &Measurement{
		Status:          MeasurementStatusOK,
		Confidence:      0.85,
		ReferenceObject: ReferenceObject{Detected: true},
	}
	if !VerifiedMeasurement(m) {
		t.Error("expected verified at 0.85 with reference detected")
	}

	m.Confidence = 0.84
	if VerifiedMeasurement(m) {
		t.Error("expected not verified below 0.85")
	}

	m.Confidence = 0.95
	m.ReferenceObject.Detected = false
	if VerifiedMeasurement(m) {
		t.Error("expected not verified without reference object")
	}

	if VerifiedMeasurement(nil) {
		t.Error("expected nil measurement not verified")
	}
}

func TestQualityScore(t *testing.T) {
	t.Run("unusable measurements score zero", func(t *testing.T) {
		if s := QualityScore(nil); s != 0 {
			t.Errorf("expected 0 for nil, got %d", s)
		}
		if s := QualityScore(&Measurement{Status: MeasurementStatusError}); s != 0 {
			t.Errorf("expected 0 for error status, got %d", s)
		}
	})

	t.Run("perfect measurement hits the cap", func(t *testing.T) {
		m := &Measurement{
			Status:          MeasurementStatusOK,
			Confidence:      1,
			ReferenceObject: ReferenceObject{Detected: true, Confidence: 1},
		}
		if s := QualityScore(m); s != 100 {
			t.Errorf("expected 100, got %d", s)
		}
	})

	t.Run("flags deduct points", func(t *testing.T) {
		m := &Measurement{
			Status:          MeasurementStatusOK,
			Confidence:      1,
			ReferenceObject: ReferenceObject{Detected: true, Confidence: 1},
			Flags:           []string{"LOW_CONFIDENCE"},
		}
		if s := QualityScore(m); s != 90 {
			t.Errorf("expected 90 with a -10 flag, got %d", s)
		}
	})

	t.Run("low confidence status earns half the status bonus", func(t *testing.T) {
		m := &Measurement{Status: MeasurementStatusLowConfidence, Confidence: 0.5}
		// 0.5*70 + 7.5 rounds to 43.
		if s := QualityScore(m); s != 43 {
			t.Errorf("expected 43, got %d", s)
		}
	})
}
