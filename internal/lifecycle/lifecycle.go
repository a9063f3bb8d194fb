// Package lifecycle implements the Life-cycle & Bias Layer (spec.md
// §4.4): the rules governing filter start, cold reset, and the
// bias-plausible seed taken from the first target-GPS observation.
package lifecycle

import (
	"math"

	"github.com/asgard/landing-estimator/internal/assembler"
	"github.com/asgard/landing-estimator/internal/estimator"
	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// ResetReason names why the estimator was reset, used for logging/metrics
// labels (spec.md §7's diagnostic counter).
type ResetReason string

const (
	ResetNone             ResetReason = ""
	ResetMeasurementGap   ResetReason = "measurement_timeout"
	ResetPredictGap       ResetReason = "predict_gap_exceeded"
	ResetConfigChange     ResetReason = "config_change"
	ResetNumericFault     ResetReason = "numeric_fault"
)

// MaxPredictGapSeconds is the spec.md §4.3 limit on a single predict step;
// a larger gap forces a reset rather than a clipped predict.
const MaxPredictGapSeconds = 1.0

// SeedFromObservation builds the InitSeed spec.md §4.4 describes: p0 from
// the observation, v0/vᵤ0 from vehicle GPS velocity only for
// CoupledMovingAug, aT0 implicitly zero, and b0 either zero or the
// bias-plausible component of a target-GPS displacement — in which case
// that same component is subtracted out of p0, so the two sub-states
// don't both claim the same displacement.
func SeedFromObservation(cfg estimatorcfg.Config, obs assembler.Observation, veh assembler.VehicleState, variant estimator.Variant) estimator.InitSeed {
	seed := estimator.InitSeed{Position: obs.Z, Cov: cfg.InitCov()}

	if obs.Type == messages.SensorTargetGPS || obs.Type == messages.SensorMissionLanding {
		seed.Bias = biasPlausibleComponent(obs.Z, cfg.PosUncIn)
		for i := range seed.Position {
			seed.Position[i] -= seed.Bias[i]
		}
	}

	if variant == estimator.VariantCoupledMovingAug && veh.GPS.Valid {
		seed.VehicleVelocity = veh.GPS.VelNED
	}
	return seed
}

// biasPlausibleComponent implements spec.md §4.4's "b0 is set to the GPS
// displacement's bias-plausible component, i.e. the part exceeding
// POS_UNC_IN": the portion of each axis's magnitude beyond one
// position-uncertainty standard deviation is attributed to bias rather
// than true relative position. This resolves an open ambiguity in
// spec.md; see DESIGN.md.
func biasPlausibleComponent(z [3]float64, posUncIn float64) [3]float64 {
	std := math.Sqrt(posUncIn)
	var b [3]float64
	for i, v := range z {
		mag := math.Abs(v)
		if mag <= std {
			continue
		}
		excess := mag - std
		if v < 0 {
			excess = -excess
		}
		b[i] = excess
	}
	return b
}

// ShouldResetForGap reports whether the elapsed time since the last
// predict forces a reset, per spec.md §4.3: "if Δt ≤ 0 or Δt > 1 s, skip
// predict (and if >1 s, reset the estimator)".
func ShouldResetForGap(dt float64) (skip bool, reset bool) {
	if dt <= 0 {
		return true, false
	}
	if dt > MaxPredictGapSeconds {
		return true, true
	}
	return false, false
}

// ShouldResetForTimeout reports whether the sustained-sensor-gap rule in
// spec.md §4.3/§4.4(a) fires: no accepted update for longer than BTOUT.
func ShouldResetForTimeout(secondsSinceLastUpdate, timeout float64) bool {
	return secondsSinceLastUpdate > timeout
}

// HasNaN reports whether any value in a state vector or covariance
// diagonal is NaN or infinite, triggering the numeric-fault reset in
// spec.md §4.4(d)/§7.
func HasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
