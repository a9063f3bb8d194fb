package assembler

import (
	"time"

	"github.com/asgard/landing-estimator/internal/messages"
)

// Observation is the canonical output of the Assembler (spec.md §4.2):
// a value vector, per-axis validity mask, diagonal covariance, and
// whether the measurement constrains the GPS bias sub-state.
type Observation struct {
	Type      messages.SensorKind
	Timestamp time.Time
	Mask      [3]bool
	Z         [3]float64
	RDiag     [3]float64
	WithBias  bool
	// IsVelocity marks a vehicle-GPS-velocity observation, which is fused
	// through the bank's UpdateVehicleVelocity path rather than
	// UpdatePosition.
	IsVelocity bool
}

// VehicleState is the cached vehicle state the Orchestrator refreshes
// every tick and passes into the Assembler (spec.md §3: "owned by the
// Orchestrator and refreshed each tick before observation processing").
type VehicleState struct {
	Attitude        messages.Quaternion
	AttitudeValid   bool
	AccelNED        [3]float64
	LocalPositionNED [3]float64
	DistBottom      float64
	DistBottomValid bool
	GPS             messages.VehicleGPSPosition
}

func maskAll() [3]bool { return [3]bool{true, true, true} }

func withinTimeout(t time.Time, now time.Time, timeout float64) bool {
	if t.IsZero() {
		return false
	}
	age := now.Sub(t).Seconds()
	return age >= 0 && age <= timeout
}
