package assembler

import (
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// MissionLanding converts a position_setpoint_triplet into a pseudo
// target-GPS observation, used only when target GPS is not enabled or
// unavailable (spec.md §4.2, §4.3 "Target GPS and mission-landing are
// mutually exclusive (target GPS wins when both enabled)").
// cfg.MissionLandingMinInterval, measured from lastFused, throttles it to the "low rate" spec.md §9 leaves to the implementer.
func MissionLanding(cfg estimatorcfg.Config, veh VehicleState, sp messages.PositionSetpointTriplet, now, lastFused time.Time) (Observation, bool) {
	if !sp.Valid || !veh.GPS.Valid {
		return Observation{}, false
	}
	if now.Sub(lastFused).Seconds() < cfg.MissionLandingMinInterval {
		return Observation{}, false
	}
	if !withinTimeout(veh.GPS.Timestamp, now, cfg.MeasurementValidTimeout) {
		return Observation{}, false
	}

	ned := equirectangularNED(veh.GPS.LatDeg, veh.GPS.LonDeg, veh.GPS.AltM, sp.LatDeg, sp.LonDeg, sp.AltM)
	ned = applyScale(ned, cfg.ScaleX, cfg.ScaleY)

	return Observation{
		Type:      messages.SensorMissionLanding,
		Timestamp: sp.Timestamp,
		Mask:      maskAll(),
		Z:         ned,
		RDiag: [3]float64{
			cfg.GPSPosNoise * cfg.GPSPosNoise,
			cfg.GPSPosNoise * cfg.GPSPosNoise,
			4 * cfg.GPSPosNoise * cfg.GPSPosNoise,
		},
		WithBias: true,
	}, true
}
