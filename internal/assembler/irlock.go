package assembler

import (
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// IRLock converts an irlock_report into a position observation, per
// spec.md §4.2: reconstruct a body-frame displacement from the two
// tangent-of-angle readings scaled by distance-to-ground, apply the
// sensor mount rotation and offset, then rotate body→NED via attitude.
func IRLock(cfg estimatorcfg.Config, veh VehicleState, report messages.IRLockReport, now time.Time) (Observation, bool) {
	if !veh.AttitudeValid || !veh.DistBottomValid {
		return Observation{}, false
	}
	if !withinTimeout(report.Timestamp, now, cfg.MeasurementUpdatedTimeout) {
		return Observation{}, false
	}

	dist := veh.DistBottom
	sensorVec := [3]float64{
		report.AngleX * dist,
		report.AngleY * dist,
		-dist,
	}
	body := rotateMount(int(cfg.SensorRotation), sensorVec)
	body = addVec(body, [3]float64{cfg.SensorOffsetX, cfg.SensorOffsetY, cfg.SensorOffsetZ})
	ned := rotateBodyToNED(veh.Attitude, body)
	ned = applyScale(ned, cfg.ScaleX, cfg.ScaleY)

	v := cfg.MeasUnc * cfg.MeasUnc * dist * dist
	return Observation{
		Type:      messages.SensorIRLock,
		Timestamp: report.Timestamp,
		Mask:      maskAll(),
		Z:         ned,
		RDiag:     [3]float64{v, v, v},
		WithBias:  false,
	}, true
}
