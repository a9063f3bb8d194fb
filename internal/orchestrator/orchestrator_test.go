package orchestrator

import (
	"math"
	"testing"
	"time"

	"github.com/asgard/landing-estimator/internal/assembler"
	"github.com/asgard/landing-estimator/internal/estimator"
	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

func identityQuat() messages.Quaternion { return messages.Quaternion{W: 1} }

func lockedOnVehicle() assembler.VehicleState {
	return assembler.VehicleState{
		Attitude:        identityQuat(),
		AttitudeValid:   true,
		DistBottom:      5.0,
		DistBottomValid: true,
		GPS: messages.VehicleGPSPosition{
			Valid:  true,
			LatDeg: 47.0,
			LonDeg: 8.0,
			AltM:   500,
		},
	}
}

// TestStaticIRLockLockOnConverges exercises spec.md §8 scenario 1: a
// stationary target tracked purely by IRLOCK angle reports converges to
// the expected NED offset.
func TestStaticIRLockLockOnConverges(t *testing.T) {
	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidIRLock
	o := New(cfg, nil, nil)

	now := time.Now()
	veh := lockedOnVehicle()
	for i := 0; i < 300; i++ {
		now = now.Add(20 * time.Millisecond)
		report := messages.IRLockReport{Timestamp: now, AngleX: 0.1, AngleY: -0.04}
		o.Tick(now, TickInputs{Vehicle: veh, IRLock: &report})
	}

	if !o.Initialized() {
		t.Fatal("expected estimator to initialize from IRLOCK")
	}
	res := o.Tick(now, TickInputs{Vehicle: veh})
	wantX, wantY, wantZ := 0.5, -0.2, -5.0
	pos := res.Pose.RelPositionNED
	if math.Abs(pos[0]-wantX) > 0.05 || math.Abs(pos[1]-wantY) > 0.05 || math.Abs(pos[2]-wantZ) > 0.05 {
		t.Errorf("position = %v, want approx (%v,%v,%v)", pos, wantX, wantY, wantZ)
	}
}

// TestMovingTargetViaVisionTracks exercises spec.md §8 scenario 2: a
// target translating at constant velocity, observed only through vision,
// is tracked by the decoupled-moving variant.
func TestMovingTargetViaVisionTracks(t *testing.T) {
	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidVision
	cfg.Mode = estimator.ModeMoving
	cfg.Model = estimator.ModelDecoupled
	o := New(cfg, nil, nil)

	now := time.Now()
	veh := assembler.VehicleState{Attitude: identityQuat(), AttitudeValid: true, DistBottom: 5, DistBottomValid: true}
	targetVel := [3]float64{1.0, 0, 0}
	pos := [3]float64{0, 0, -5}
	dt := 0.05
	for i := 0; i < 400; i++ {
		now = now.Add(time.Duration(dt * float64(time.Second)))
		pos[0] += targetVel[0] * dt
		report := messages.FiducialMarkerReport{Timestamp: now, PositionSensor: pos}
		o.Tick(now, TickInputs{Vehicle: veh, Vision: &report})
	}

	res := o.Tick(now, TickInputs{Vehicle: veh})
	if math.Abs(res.Pose.RelVelocityNED[0]-targetVel[0]) > 0.2 {
		t.Errorf("tracked velocity x = %v, want approx %v", res.Pose.RelVelocityNED[0], targetVel[0])
	}
	if math.Abs(res.Pose.RelPositionNED[0]-pos[0]) > 0.3 {
		t.Errorf("tracked position x = %v, want approx %v", res.Pose.RelPositionNED[0], pos[0])
	}
}

// TestBiasIdentificationFromTargetGPS exercises spec.md §8 scenario 3: a
// target-GPS displacement larger than POS_UNC_IN's plausible radius is
// absorbed into the bias sub-state rather than the position estimate, and
// converges to the injected bias within BIAS_LIM.
func TestBiasIdentificationFromTargetGPS(t *testing.T) {
	const earthRadiusM = 6371000.0
	wantBias := [3]float64{0.5, 0.3, 0}

	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidTargetGPS
	cfg.PosUncIn = 1e-6 // std ~1mm: a sub-meter offset is almost entirely bias-plausible

	o := New(cfg, nil, nil)

	now := time.Now()
	veh := lockedOnVehicle()
	// Lat/lon offsets chosen so the equirectangular projection (frames.go)
	// yields a persistent GPS-to-GPS bias of exactly wantBias, north/east,
	// rather than any true relative displacement.
	lat0 := veh.GPS.LatDeg * math.Pi / 180
	dLatDeg := wantBias[0] / earthRadiusM * 180 / math.Pi
	dLonDeg := wantBias[1] / (earthRadiusM * math.Cos(lat0)) * 180 / math.Pi
	report := messages.TargetGNSSReport{
		Valid:  true,
		LatDeg: veh.GPS.LatDeg + dLatDeg,
		LonDeg: veh.GPS.LonDeg + dLonDeg,
		AltM:   veh.GPS.AltM,
	}
	for i := 0; i < 200; i++ {
		now = now.Add(50 * time.Millisecond)
		report.Timestamp = now
		veh.GPS.Timestamp = now
		o.Tick(now, TickInputs{Vehicle: veh, TargetGNSS: &report})
	}

	if !o.Initialized() {
		t.Fatal("expected estimator to initialize from target GPS")
	}

	bias := o.bank.Bias()
	for i := range wantBias {
		if math.Abs(bias[i]-wantBias[i]) > 0.1 {
			t.Errorf("bias axis %d = %v, want %v ±0.1", i, bias[i], wantBias[i])
		}
		if math.Abs(bias[i]) > cfg.BiasLimit {
			t.Errorf("bias axis %d = %v exceeds BIAS_LIM %v", i, bias[i], cfg.BiasLimit)
		}
	}
}

// TestSensorTimeoutResets exercises spec.md §8 scenario 4: once the
// filter has gone longer than FilterTimeout without a fused update, it
// resets rather than continuing to coast.
func TestSensorTimeoutResets(t *testing.T) {
	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidIRLock
	cfg.FilterTimeout = 0.5
	o := New(cfg, nil, nil)

	now := time.Now()
	veh := lockedOnVehicle()
	report := messages.IRLockReport{Timestamp: now, AngleX: 0.1}
	o.Tick(now, TickInputs{Vehicle: veh, IRLock: &report})
	if !o.Initialized() {
		t.Fatal("expected initialization on first observation")
	}

	// Advance past FilterTimeout with no further sensor input, but in
	// sub-second steps so the predict-gap reset doesn't fire first.
	for i := 0; i < 8; i++ {
		now = now.Add(200 * time.Millisecond)
		o.Tick(now, TickInputs{Vehicle: veh})
	}

	if o.Initialized() {
		t.Error("expected estimator to reset after sustained sensor gap")
	}
}

// TestGateRejectsOutlierObservation exercises spec.md §8 scenario 5: a
// single wildly inconsistent vision report is rejected by the innovation
// gate and does not corrupt the converged estimate.
func TestGateRejectsOutlierObservation(t *testing.T) {
	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidVision
	o := New(cfg, nil, nil)

	now := time.Now()
	veh := assembler.VehicleState{Attitude: identityQuat(), AttitudeValid: true, DistBottom: 5, DistBottomValid: true}
	steady := [3]float64{1, 0, -5}
	for i := 0; i < 200; i++ {
		now = now.Add(20 * time.Millisecond)
		report := messages.FiducialMarkerReport{Timestamp: now, PositionSensor: steady}
		o.Tick(now, TickInputs{Vehicle: veh, Vision: &report})
	}
	before := o.bank.Position()

	now = now.Add(20 * time.Millisecond)
	outlier := messages.FiducialMarkerReport{Timestamp: now, PositionSensor: [3]float64{500, 500, 500}}
	res := o.Tick(now, TickInputs{Vehicle: veh, Vision: &outlier})

	if len(res.Innovations) != 1 || res.Innovations[0].Fused {
		t.Fatalf("expected the outlier observation to be gated out, got %+v", res.Innovations)
	}
	after := o.bank.Position()
	for i := range before {
		if math.Abs(after[i]-before[i]) > 0.1 {
			t.Errorf("axis %d moved by %v after a gated observation", i, after[i]-before[i])
		}
	}
}

// TestModeSwitchForcesReset exercises spec.md §8 scenario 6: changing
// MODE or MODEL at runtime resets the filter bank to the newly resolved
// variant.
func TestModeSwitchForcesReset(t *testing.T) {
	cfg := estimatorcfg.Default()
	cfg.AidMask = estimatorcfg.AidIRLock
	o := New(cfg, nil, nil)

	now := time.Now()
	veh := lockedOnVehicle()
	report := messages.IRLockReport{Timestamp: now, AngleX: 0.1}
	o.Tick(now, TickInputs{Vehicle: veh, IRLock: &report})
	if !o.Initialized() {
		t.Fatal("expected initialization on first observation")
	}

	next := cfg
	next.Mode = estimator.ModeMoving
	o.SetConfig(next)

	if o.Initialized() {
		t.Error("expected mode switch to reset the estimator")
	}
	if o.Variant() != estimator.VariantDecoupledMoving {
		t.Errorf("variant = %v, want decoupled_moving", o.Variant())
	}
}
