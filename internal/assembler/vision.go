package assembler

import (
	"math"
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// Vision converts a fiducial_marker_report into a position observation,
// per spec.md §4.2: rotate sensor-frame pose into body frame via SENS_ROT,
// translate by the sensor mount offset, then rotate body→NED via the
// current attitude. Vision never observes bias (H_bias = 0, per spec.md
// §9's preserved open question).
func Vision(cfg estimatorcfg.Config, veh VehicleState, report messages.FiducialMarkerReport, now time.Time) (Observation, bool) {
	if !veh.AttitudeValid {
		return Observation{}, false
	}
	if !withinTimeout(report.Timestamp, now, cfg.MeasurementUpdatedTimeout) {
		return Observation{}, false
	}

	body := rotateMount(int(cfg.SensorRotation), report.PositionSensor)
	body = addVec(body, [3]float64{cfg.SensorOffsetX, cfg.SensorOffsetY, cfg.SensorOffsetZ})
	ned := rotateBodyToNED(veh.Attitude, body)
	ned = applyScale(ned, cfg.ScaleX, cfg.ScaleY)

	var rDiag [3]float64
	if report.HasCovariance && cfg.EVNoiseMode == 0 {
		rDiag = report.Covariance
	} else {
		dist := veh.DistBottom
		if dist < 1 {
			dist = 1
		}
		v := cfg.EVPNoise * cfg.EVPNoise * dist
		rDiag = [3]float64{v, v, v}
	}
	// A message-supplied covariance is still lower-bounded by the
	// configured floor regardless of mode, so a sensor reporting
	// unrealistically tight covariance can't starve the gate.
	floor := cfg.EVPNoise * cfg.EVPNoise
	for i := range rDiag {
		if rDiag[i] < floor {
			rDiag[i] = floor
		}
	}

	return Observation{
		Type:      messages.SensorVision,
		Timestamp: report.Timestamp,
		Mask:      maskAll(),
		Z:         ned,
		RDiag:     rDiag,
		WithBias:  false,
	}, true
}

// visionRoundTripError is a test helper exposed for spec.md §8's frame
// round-trip property: rotating a zero-displacement observation
// body→NED→body should return the original within 1e-5 m.
func visionRoundTripError(q messages.Quaternion, v [3]float64) float64 {
	ned := rotateBodyToNED(q, v)
	back := rotateNEDToBody(q, ned)
	dx := back[0] - v[0]
	dy := back[1] - v[1]
	dz := back[2] - v[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
