package estimator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testNoise() NoiseParams {
	return NoiseParams{AccDroneVar: 1.0, AccTargetVar: 0.5, BiasVar: 0.01}
}

func TestResolveVariant(t *testing.T) {
	cases := []struct {
		mode   TargetMode
		model  TargetModel
		want   Variant
		forced bool
	}{
		{ModeStatic, ModelDecoupled, VariantDecoupledStatic, false},
		{ModeMoving, ModelDecoupled, VariantDecoupledMoving, false},
		{ModeMovingAug, ModelDecoupled, VariantCoupledMovingAug, true},
		{ModeStatic, ModelCoupled, VariantCoupledStatic, false},
		{ModeMoving, ModelCoupled, VariantCoupledMovingAug, false},
		{ModeMovingAug, ModelCoupled, VariantCoupledMovingAug, false},
	}
	for _, c := range cases {
		got, forced := ResolveVariant(c.mode, c.model)
		if got != c.want || forced != c.forced {
			t.Errorf("ResolveVariant(%v,%v) = (%v,%v), want (%v,%v)", c.mode, c.model, got, forced, c.want, c.forced)
		}
	}
}

func TestDecoupledBank_InitGetters(t *testing.T) {
	bank := NewDecoupledBank(false, testNoise(), DefaultGateConfig(), 1.0)
	if bank.Initialized() {
		t.Fatal("expected uninitialized bank before Init")
	}
	bank.Init(InitSeed{Position: [3]float64{1, 2, 3}, Cov: InitCov{Pos: 10, Vel: 10, Bias: 1, Acc: 1}})
	if !bank.Initialized() {
		t.Fatal("expected initialized bank after Init")
	}
	p := bank.Position()
	if p != [3]float64{1, 2, 3} {
		t.Errorf("Position = %v, want (1,2,3)", p)
	}
}

func TestDecoupledBank_PredictThenGPSUpdateConverges(t *testing.T) {
	bank := NewDecoupledBank(false, testNoise(), DefaultGateConfig(), 1.0)
	bank.Init(InitSeed{Position: [3]float64{0, 0, 0}, Cov: InitCov{Pos: 100, Vel: 10, Bias: 1, Acc: 1}})

	dt := 0.02
	for i := 0; i < 200; i++ {
		if err := bank.Predict(dt, [3]float64{0, 0, 0}); err != nil {
			t.Fatalf("predict: %v", err)
		}
		mask := [3]bool{true, true, true}
		z := [3]float64{10, -5, -2}
		r := [3]float64{0.5, 0.5, 2.0}
		if _, err := bank.UpdatePosition(mask, z, r, true); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got := bank.Position()
	want := [3]float64{10, -5, -2}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 0.2 {
			t.Errorf("axis %d: Position = %.3f, want ~%.3f", i, got[i], want[i])
		}
	}
}

func TestAxisFilter_GateRejectsOutlier(t *testing.T) {
	axis := NewDecoupledStaticAxis(testNoise(), DefaultGateConfig(), 1.0)
	axis.Init(0, 0, 0, InitCov{Pos: 1, Vel: 1, Bias: 1, Acc: 1})

	inno, err := axis.Update(1000, 0.01, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if inno.GatePass {
		t.Fatal("expected gate to reject a 1000-sigma outlier")
	}
	if inno.Fused {
		t.Fatal("rejected update should not be fused")
	}
	if axis.Position() != 0 {
		t.Errorf("state should not move on a rejected update, got Position=%v", axis.Position())
	}
}

func TestAxisFilter_BiasClampedToLimit(t *testing.T) {
	axis := NewDecoupledStaticAxis(testNoise(), DefaultGateConfig(), 0.5)
	axis.Init(0, 0, 0, InitCov{Pos: 1, Vel: 1, Bias: 100, Acc: 1})

	for i := 0; i < 50; i++ {
		if _, err := axis.Update(10, 0.01, []float64{0, 0, 1}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if math.Abs(axis.Bias()) > 0.5+1e-9 {
		t.Errorf("Bias() = %v, want |b| <= 0.5", axis.Bias())
	}
}

func TestCoupledBank_MovingAugVehicleVelocityUpdate(t *testing.T) {
	bank := NewCoupledBank(true, testNoise(), DefaultGateConfig(), 1.0)
	bank.Init(InitSeed{
		Position:        [3]float64{5, 5, -5},
		VehicleVelocity: [3]float64{1, 0, 0},
		Cov:             InitCov{Pos: 10, Vel: 10, Bias: 1, Acc: 1},
	})

	mask := [3]bool{true, true, true}
	z := [3]float64{2, 0, 0}
	r := [3]float64{0.1, 0.1, 0.1}
	before := bank.RelativeVelocity()
	if _, err := bank.UpdateVehicleVelocity(mask, z, r); err != nil {
		t.Fatalf("UpdateVehicleVelocity: %v", err)
	}
	vel := bank.RelativeVelocity()
	if vel[0] == before[0] {
		t.Error("expected relative velocity to shift after vehicle-velocity update")
	}
}

func TestDecoupledBank_NoVehicleVelocityState(t *testing.T) {
	bank := NewDecoupledBank(false, testNoise(), DefaultGateConfig(), 1.0)
	bank.Init(InitSeed{Cov: InitCov{Pos: 1, Vel: 1, Bias: 1, Acc: 1}})
	_, err := bank.UpdateVehicleVelocity([3]bool{true, true, true}, [3]float64{}, [3]float64{1, 1, 1})
	if err != ErrNoVehicleVelocityState {
		t.Errorf("expected ErrNoVehicleVelocityState, got %v", err)
	}
}

func TestCovariancePSD_AfterPredictAndUpdate(t *testing.T) {
	bank := NewCoupledBank(false, testNoise(), DefaultGateConfig(), 1.0)
	bank.Init(InitSeed{Cov: InitCov{Pos: 5, Vel: 5, Bias: 1, Acc: 1}})

	for i := 0; i < 20; i++ {
		bank.Predict(0.02, [3]float64{0.1, -0.1, 0})
		bank.UpdatePosition([3]bool{true, true, true}, [3]float64{1, 2, 3}, [3]float64{0.5, 0.5, 0.5}, true)
	}
	diag := bank.CovarianceDiag()
	for i, v := range diag {
		if v < 0 {
			t.Errorf("covariance diag[%d] = %v, want >= 0", i, v)
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(bank.f.p, false) {
		t.Fatal("eigendecomposition of the covariance failed")
	}
	for i, ev := range eig.Values(nil) {
		if ev < -1e-9 {
			t.Errorf("covariance eigenvalue[%d] = %v, want >= 0", i, ev)
		}
	}
}
