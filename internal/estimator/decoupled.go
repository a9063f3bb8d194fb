package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// AxisFilter is a single-axis (scalar) linear Kalman filter. It backs both
// the Decoupled-Static (3-state: p, v, b) and Decoupled-Moving (4-state:
// p, v, b, aₜ) variants; the two share an implementation because the
// Decoupled-Moving dynamics are a strict superposition of the Static ones
// (spec.md §9: "model as separate types chosen at filter-bank
// construction" — realized here as two constructors selecting the state
// dimension and F/G/Q builders, rather than one growable vector).
type AxisFilter struct {
	moving bool // true => 4-state (adds target acceleration)
	gate   GateConfig
	bias   NoiseParams
	limit  float64

	initialized bool
	x           *mat.VecDense
	p           *mat.SymDense
}

const (
	axisStaticDim = 3 // p, v, b
	axisMovingDim = 4 // p, v, b, aT
)

// NewDecoupledStaticAxis constructs a 3-state per-axis filter: relative
// position, relative velocity, GPS bias.
func NewDecoupledStaticAxis(noise NoiseParams, gate GateConfig, biasLimit float64) *AxisFilter {
	return &AxisFilter{moving: false, bias: noise, gate: gate, limit: biasLimit}
}

// NewDecoupledMovingAxis constructs a 4-state per-axis filter, adding
// target acceleration to the static state.
func NewDecoupledMovingAxis(noise NoiseParams, gate GateConfig, biasLimit float64) *AxisFilter {
	return &AxisFilter{moving: true, bias: noise, gate: gate, limit: biasLimit}
}

func (f *AxisFilter) dim() int {
	if f.moving {
		return axisMovingDim
	}
	return axisStaticDim
}

// Init sets the state mean and covariance, per the Filter Bank contract in
// spec.md §4.1.
func (f *AxisFilter) Init(p0, v0, b0 float64, init InitCov) {
	n := f.dim()
	x := mat.NewVecDense(n, nil)
	x.SetVec(0, p0)
	x.SetVec(1, v0)
	x.SetVec(2, b0)
	if f.moving {
		x.SetVec(3, 0) // aT0 = 0
	}

	diag := []float64{init.Pos, init.Vel, init.Bias}
	if f.moving {
		diag = append(diag, init.Acc)
	}
	p := mat.NewSymDense(n, nil)
	for i, v := range diag {
		p.SetSym(i, i, v)
	}

	f.x = x
	f.p = p
	f.initialized = true
}

func (f *AxisFilter) Initialized() bool { return f.initialized }

// buildFG returns the exact-integration state transition F(Δt) and the
// column vector G(Δt) multiplying the scalar vehicle-acceleration input u,
// per the dynamics in spec.md §4.1.
func (f *AxisFilter) buildFG(dt float64) (*mat.Dense, *mat.VecDense) {
	n := f.dim()
	F := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		F.Set(i, i, 1)
	}
	F.Set(0, 1, dt) // p += v*dt
	g := mat.NewVecDense(n, nil)
	g.SetVec(0, -0.5*dt*dt) // p -= 0.5*u*dt^2
	g.SetVec(1, -dt)        // v -= u*dt
	if f.moving {
		F.Set(0, 3, 0.5*dt*dt) // p += 0.5*aT*dt^2
		F.Set(1, 3, dt)        // v += aT*dt
	}
	return F, g
}

func (f *AxisFilter) buildQ(dt float64) *mat.SymDense {
	n := f.dim()
	q := mat.NewSymDense(n, nil)
	pp, pv, vv := whiteAccelBlock(f.bias.AccDroneVar, dt)
	q.SetSym(0, 0, pp)
	q.SetSym(0, 1, pv)
	q.SetSym(1, 1, vv)
	q.SetSym(2, 2, randomWalkVar(f.bias.BiasVar, dt))
	if f.moving {
		tpp, tpv, tvv := whiteAccelBlock(f.bias.AccTargetVar, dt)
		q.SetSym(0, 0, q.At(0, 0)+tpp)
		q.SetSym(0, 1, q.At(0, 1)+tpv)
		q.SetSym(1, 1, q.At(1, 1)+tvv)
		q.SetSym(3, 3, randomWalkVar(f.bias.AccTargetVar, dt))
	}
	return q
}

// Predict advances the filter by dt seconds under vehicle acceleration u
// (scalar, this axis's component of aᵤ), per spec.md §4.1. dt is assumed
// already clipped to [0, 1s] by the caller (the Fusion Orchestrator).
func (f *AxisFilter) Predict(dt float64, u float64) error {
	if !f.initialized {
		return fmt.Errorf("estimator: axis filter predict before init")
	}
	F, g := f.buildFG(dt)

	var x mat.VecDense
	x.MulVec(F, f.x)
	x.AddScaledVec(&x, u, g)
	f.x = &x

	var fp mat.Dense
	fp.Mul(F, f.p)
	var fpft mat.Dense
	fpft.Mul(&fp, F.T())

	q := f.buildQ(dt)
	n := f.dim()
	p := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			p.SetSym(i, j, fpft.At(i, j)+q.At(i, j))
		}
	}
	clampSym(p)
	f.p = p
	return nil
}

// Update applies a scalar measurement z with variance r through a 1×n
// observation row h, returning the innovation diagnostics. The state is
// only mutated when the gate passes or the gate is configured advisory.
func (f *AxisFilter) Update(z, r float64, h []float64) (*Innovation, error) {
	if !f.initialized {
		return nil, fmt.Errorf("estimator: axis filter update before init")
	}
	n := f.dim()
	H := mat.NewDense(1, n, h)

	var hx mat.Dense
	hx.Mul(H, f.x)
	y := z - hx.At(0, 0)

	var hp mat.Dense
	hp.Mul(H, f.p)
	var hpht mat.Dense
	hpht.Mul(&hp, H.T())
	s := hpht.At(0, 0) + r

	yv := mat.NewVecDense(1, []float64{y})
	sSym := mat.NewSymDense(1, []float64{s})
	ratio, err := mahalanobis(yv, sSym)
	if err != nil {
		return nil, err
	}
	gatePass := ratio <= f.gate.threshold(1)

	inno := &Innovation{Y: yv, S: sSym, TestRatio: ratio, GatePass: gatePass}
	if !gatePass && f.gate.Reject {
		inno.Fused = false
		return inno, nil
	}

	k := mat.NewVecDense(n, nil)
	var pht mat.Dense
	pht.Mul(f.p, H.T())
	for i := 0; i < n; i++ {
		k.SetVec(i, pht.At(i, 0)/s)
	}

	var x mat.VecDense
	x.AddScaledVec(f.x, y, k)
	// Bias is always index 2 across both variants.
	clamped := clampBias(x.AtVec(2), f.limit)
	x.SetVec(2, clamped)
	f.x = &x

	ident := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ident.Set(i, i, 1)
	}
	var kh mat.Dense
	kh.Mul(k, H)
	var imkh mat.Dense
	imkh.Sub(ident, &kh)
	var newP mat.Dense
	newP.Mul(&imkh, f.p)

	p := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			p.SetSym(i, j, newP.At(i, j))
		}
	}
	clampSym(p)
	f.p = p

	inno.Fused = true
	return inno, nil
}

func (f *AxisFilter) Position() float64 { return f.x.AtVec(0) }
func (f *AxisFilter) Velocity() float64 { return f.x.AtVec(1) }
func (f *AxisFilter) Bias() float64     { return f.x.AtVec(2) }
func (f *AxisFilter) Acceleration() float64 {
	if f.moving {
		return f.x.AtVec(3)
	}
	return 0
}

func (f *AxisFilter) PositionVar() float64 { return f.p.At(0, 0) }
func (f *AxisFilter) VelocityVar() float64 { return f.p.At(1, 1) }
func (f *AxisFilter) BiasVar() float64     { return f.p.At(2, 2) }
func (f *AxisFilter) AccelerationVar() float64 {
	if f.moving {
		return f.p.At(3, 3)
	}
	return 0
}

// CovarianceDiag returns the diagonal of the state covariance, used to
// populate target_estimator_state (spec.md §6).
func (f *AxisFilter) CovarianceDiag() []float64 {
	n := f.dim()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = f.p.At(i, i)
	}
	return out
}
