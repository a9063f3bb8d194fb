// landing-estimator runs the fusion orchestrator against a synthetic
// IRLOCK lock-on scenario and logs the published pose on every 50 ms
// tick for about ten seconds.
// It stands in for the periodic scheduler that would otherwise drive
// ticks and deliver uORB-style messages in the embedded system this
// estimator is built for; no CLI flags or file I/O belong in the
// estimator's own contract (spec.md §6), so this harness takes none.
package main

import (
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/asgard/landing-estimator/internal/assembler"
	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
	"github.com/asgard/landing-estimator/internal/orchestrator"
	"github.com/asgard/landing-estimator/pkg/telemetry"
)

func main() {
	log := telemetry.NewLogger("info")
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidIRLock | estimatorcfg.AidTargetGPS
	orch := orchestrator.New(cfg, log, metrics)

	veh := assembler.VehicleState{
		Attitude:        messages.Quaternion{W: 1},
		AttitudeValid:   true,
		DistBottom:      8.0,
		DistBottomValid: true,
		GPS: messages.VehicleGPSPosition{
			Valid:  true,
			LatDeg: 47.3977,
			LonDeg: 8.5456,
			AltM:   488,
		},
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for range ticker.C {
		now := time.Now()
		veh.GPS.Timestamp = now
		irlock := messages.IRLockReport{
			Timestamp: now,
			AngleX:    0.08 + 0.002*rand.NormFloat64(),
			AngleY:    -0.03 + 0.002*rand.NormFloat64(),
		}

		result := orch.Tick(now, orchestrator.TickInputs{
			Vehicle: veh,
			IRLock:  &irlock,
		})

		log.WithFields(map[string]interface{}{
			"variant":      result.State.Variant,
			"rel_pos_ned":  result.Pose.RelPositionNED,
			"rel_vel_ned":  result.Pose.RelVelocityNED,
			"rel_pos_valid": result.Pose.RelPosValid,
		}).Info("landing target pose")

		if now.Sub(start) > 10*time.Second {
			return
		}
	}
}
