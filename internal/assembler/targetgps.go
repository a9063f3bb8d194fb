package assembler

import (
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

// TargetGPS converts a target_GNSS_report plus the cached vehicle GPS fix
// into a canonical position observation, per spec.md §4.2: "requires both
// vehicle GPS fix and target GPS report valid within
// measurement_valid_TIMEOUT". The vehicle GPS position is used as the
// local-tangent origin for the equirectangular projection.
func TargetGPS(cfg estimatorcfg.Config, veh VehicleState, report messages.TargetGNSSReport, now time.Time) (Observation, bool) {
	if !report.Valid || !veh.GPS.Valid {
		return Observation{}, false
	}
	if !withinTimeout(report.Timestamp, now, cfg.MeasurementValidTimeout) {
		return Observation{}, false
	}
	if !withinTimeout(veh.GPS.Timestamp, now, cfg.MeasurementValidTimeout) {
		return Observation{}, false
	}

	ned := equirectangularNED(veh.GPS.LatDeg, veh.GPS.LonDeg, veh.GPS.AltM, report.LatDeg, report.LonDeg, report.AltM)
	ned = applyScale(ned, cfg.ScaleX, cfg.ScaleY)

	return Observation{
		Type:      messages.SensorTargetGPS,
		Timestamp: report.Timestamp,
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
