package assembler

import (
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// UWB converts a uwb_distance message into a position observation, per
// spec.md §4.2: transform grid→body using the UWB grid orientation, then
// body→NED using the vehicle attitude.
func UWB(cfg estimatorcfg.Config, veh VehicleState, report messages.UWBDistance, now time.Time) (Observation, bool) {
	if !veh.AttitudeValid {
		return Observation{}, false
	}
	if !withinTimeout(report.Timestamp, now, cfg.MeasurementUpdatedTimeout) {
		return Observation{}, false
	}

	body := rotateMount(int(cfg.UWBGridRotation), report.GridPos)
	ned := rotateBodyToNED(veh.Attitude, body)
	ned = applyScale(ned, cfg.ScaleX, cfg.ScaleY)

	v := cfg.MeasUnc * cfg.MeasUnc
	return Observation{
		Type:      messages.SensorUWB,
		Timestamp: report.Timestamp,
		Mask:      maskAll(),
		Z:         ned,
		RDiag:     [3]float64{v, v, v},
		WithBias:  false,
	}, true
}
