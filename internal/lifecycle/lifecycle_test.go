package lifecycle

import (
	"math"
	"testing"

	"github.com/asgard/landing-estimator/internal/assembler"
	"github.com/asgard/landing-estimator/internal/estimator"
	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/messages"
)

func TestBiasPlausibleComponent(t *testing.T) {
	got := biasPlausibleComponent([3]float64{11, 1, -11}, 4) // std = 2
	want := [3]float64{9, 0, -9}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("axis %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSeedFromObservation_TargetGPSSeedsBias(t *testing.T) {
	cfg := estimatorcfg.Default()
	cfg.PosUncIn = 4
	obs := assembler.Observation{Type: messages.SensorTargetGPS, Z: [3]float64{11, 0, 0}, WithBias: true}
	seed := SeedFromObservation(cfg, obs, assembler.VehicleState{}, estimator.VariantDecoupledStatic)
	if seed.Bias[0] <= 0 {
		t.Errorf("expected a positive bias seed from an 11m displacement, got %v", seed.Bias[0])
	}
	wantPos := [3]float64{obs.Z[0] - seed.Bias[0], obs.Z[1], obs.Z[2]}
	if seed.Position != wantPos {
		t.Errorf("seed position = %v, want %v (displacement minus the bias-plausible component)", seed.Position, wantPos)
	}
}

func TestSeedFromObservation_VisionNeverSeedsBias(t *testing.T) {
	cfg := estimatorcfg.Default()
	obs := assembler.Observation{Type: messages.SensorVision, Z: [3]float64{11, 0, 0}}
	seed := SeedFromObservation(cfg, obs, assembler.VehicleState{}, estimator.VariantDecoupledStatic)
	if seed.Bias != ([3]float64{}) {
		t.Errorf("expected zero bias seed from vision, got %v", seed.Bias)
	}
}

func TestSeedFromObservation_CoupledMovingAugSeedsVehicleVelocity(t *testing.T) {
	cfg := estimatorcfg.Default()
	veh := assembler.VehicleState{GPS: messages.VehicleGPSPosition{Valid: true, VelNED: [3]float64{1, 2, 3}}}
	obs := assembler.Observation{Type: messages.SensorVision, Z: [3]float64{1, 0, -5}}
	seed := SeedFromObservation(cfg, obs, veh, estimator.VariantCoupledMovingAug)
	if seed.VehicleVelocity != veh.GPS.VelNED {
		t.Errorf("vehicle velocity seed = %v, want %v", seed.VehicleVelocity, veh.GPS.VelNED)
	}
}

func TestShouldResetForGap(t *testing.T) {
	cases := []struct {
		dt         float64
		wantSkip   bool
		wantReset  bool
	}{
		{-0.1, true, false},
		{0, true, false},
		{0.02, false, false},
		{1.5, true, true},
	}
	for _, c := range cases {
		skip, reset := ShouldResetForGap(c.dt)
		if skip != c.wantSkip || reset != c.wantReset {
			t.Errorf("ShouldResetForGap(%v) = (%v,%v), want (%v,%v)", c.dt, skip, reset, c.wantSkip, c.wantReset)
		}
	}
}

func TestShouldResetForTimeout(t *testing.T) {
	if !ShouldResetForTimeout(4, 3) {
		t.Error("expected timeout to fire past the configured limit")
	}
	if ShouldResetForTimeout(2, 3) {
		t.Error("did not expect timeout before the configured limit")
	}
}

func TestHasNaN(t *testing.T) {
	if HasNaN([]float64{1, 2, 3}) {
		t.Error("unexpected NaN detection on clean values")
	}
	if !HasNaN([]float64{1, math.NaN(), 3}) {
		t.Error("expected NaN to be detected")
	}
	if !HasNaN([]float64{1, math.Inf(1), 3}) {
		t.Error("expected Inf to be detected")
	}
}
