package assembler

import (
	"math"
	"testing"
	"time"

	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

func identityQuat() messages.Quaternion { return messages.Quaternion{W: 1} }

func TestFrameRoundTrip(t *testing.T) {
	quats := []messages.Quaternion{
		identityQuat(),
		{W: 0.7071, X: 0, Y: 0, Z: 0.7071}, // 90 deg yaw
		{W: 0.9239, X: 0.3827, Y: 0, Z: 0}, // 45 deg roll
	}
	vecs := [][3]float64{{0, 0, 0}, {1, 2, 3}, {-5, 10, -2}}
	for _, q := range quats {
		for _, v := range vecs {
			err := visionRoundTripError(q, v)
			if err > 1e-5 {
				t.Errorf("round trip error %.8f exceeds 1e-5 for q=%v v=%v", err, q, v)
			}
		}
	}
}

func TestIRLock_StaticLockOnObservation(t *testing.T) {
	cfg := estimatorcfg.Default()
	now := time.Now()
	veh := VehicleState{
		Attitude:        identityQuat(),
		AttitudeValid:   true,
		DistBottom:      5.0,
		DistBottomValid: true,
	}
	report := messages.IRLockReport{Timestamp: now, AngleX: 0.1, AngleY: 0.0}

	obs, ok := IRLock(cfg, veh, report, now)
	if !ok {
		t.Fatal("expected IRLock observation to be produced")
	}
	wantX := 0.1 * 5.0
	if math.Abs(obs.Z[0]-wantX) > 1e-9 {
		t.Errorf("Z[0] = %v, want %v", obs.Z[0], wantX)
	}
	if math.Abs(obs.Z[2]-(-5.0)) > 1e-9 {
		t.Errorf("Z[2] = %v, want -5.0", obs.Z[2])
	}
	if obs.WithBias {
		t.Error("IRLock must not observe bias")
	}
}

func TestIRLock_MissingDistBottomIsTransientGap(t *testing.T) {
	cfg := estimatorcfg.Default()
	now := time.Now()
	veh := VehicleState{Attitude: identityQuat(), AttitudeValid: true, DistBottomValid: false}
	_, ok := IRLock(cfg, veh, messages.IRLockReport{Timestamp: now}, now)
	if ok {
		t.Error("expected no observation when dist_bottom is invalid")
	}
}

func TestTargetGPS_RequiresBothFixes(t *testing.T) {
	cfg := estimatorcfg.Default()
	now := time.Now()
	veh := VehicleState{GPS: messages.VehicleGPSPosition{Valid: false, Timestamp: now}}
	report := messages.TargetGNSSReport{Valid: true, Timestamp: now, LatDeg: 1, LonDeg: 1, AltM: 0}
	if _, ok := TargetGPS(cfg, veh, report, now); ok {
		t.Error("expected no observation without a vehicle GPS fix")
	}
}

func TestTargetGPS_StaleTimeoutRejected(t *testing.T) {
	cfg := estimatorcfg.Default()
	now := time.Now()
	veh := VehicleState{GPS: messages.VehicleGPSPosition{Valid: true, Timestamp: now.Add(-2 * time.Second)}}
	report := messages.TargetGNSSReport{Valid: true, Timestamp: now.Add(-2 * time.Second)}
	if _, ok := TargetGPS(cfg, veh, report, now); ok {
		t.Error("expected stale GPS pair to be rejected as a transient gap")
	}
}

func TestVision_NeverObservesBias(t *testing.T) {
	cfg := estimatorcfg.Default()
	now := time.Now()
	veh := VehicleState{Attitude: identityQuat(), AttitudeValid: true, DistBottom: 5}
	obs, ok := Vision(cfg, veh, messages.FiducialMarkerReport{Timestamp: now, PositionSensor: [3]float64{1, 0, -5}}, now)
	if !ok {
		t.Fatal("expected vision observation")
	}
	if obs.WithBias {
		t.Error("vision must never observe bias")
	}
}
