package assembler

import (
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// VehicleGPSVelocity converts the vehicle's own GPS-derived velocity into
// an observation of the vehicle-velocity sub-state, valid only in
// moving-augmented models (spec.md §4.2).
func VehicleGPSVelocity(cfg estimatorcfg.Config, veh VehicleState, now time.Time) (Observation, bool) {
	if !veh.GPS.Valid {
		return Observation{}, false
	}
	if !withinTimeout(veh.GPS.Timestamp, now, cfg.MeasurementValidTimeout) {
		return Observation{}, false
	}

	return Observation{
		Type:       messages.SensorVehicleGPSVel,
		Timestamp:  veh.GPS.Timestamp,
		Mask:       maskAll(),
		Z:          veh.GPS.VelNED,
		RDiag:      [3]float64{cfg.GPSVelNoise * cfg.GPSVelNoise, cfg.GPSVelNoise * cfg.GPSVelNoise, cfg.GPSVelNoise * cfg.GPSVelNoise},
		IsVelocity: true,
	}, true
}
