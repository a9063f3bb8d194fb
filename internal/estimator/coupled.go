package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// block index layout for the two coupled variants. Static uses only
// {blockP, blockV, blockB}; MovingAug uses {blockP, blockV, blockB,
// blockAT, blockVT}, with blockV holding the vehicle velocity vᵤ. Each
// block spans 3 consecutive scalars (x, y, z).
const (
	blockP = iota
	blockV // static: relative velocity. aug: vehicle velocity vᵤ
	blockB
	blockAT
	blockVT
)

// CoupledFilter is the single joint 3-axis Kalman filter backing
// Coupled-Static (9-state: p, v, b) and Coupled-MovingAug (15-state: p,
// vᵤ, b, aₜ, vₜ — see SPEC_FULL.md §3 for why this module resolves the
// "(12 components)" annotation in spec.md §3 to the full 15-scalar state
// implied by the dynamics equations in spec.md §4.1).
type CoupledFilter struct {
	augmented bool
	gate      GateConfig
	noise     NoiseParams
	limit     float64

	initialized bool
	x           *mat.VecDense
	p           *mat.SymDense
}

func coupledDim(augmented bool) int {
	if augmented {
		return 15
	}
	return 9
}

// NewCoupledStatic constructs the 9-state joint filter (p, v, b).
func NewCoupledStatic(noise NoiseParams, gate GateConfig, biasLimit float64) *CoupledFilter {
	return &CoupledFilter{augmented: false, noise: noise, gate: gate, limit: biasLimit}
}

// NewCoupledMovingAug constructs the 15-state joint filter (p, vᵤ, b, aₜ, vₜ).
func NewCoupledMovingAug(noise NoiseParams, gate GateConfig, biasLimit float64) *CoupledFilter {
	return &CoupledFilter{augmented: true, noise: noise, gate: gate, limit: biasLimit}
}

func (f *CoupledFilter) dim() int { return coupledDim(f.augmented) }

// Init sets p0/v0/b0 (each a 3-vector) and, for the augmented variant,
// vt0 (target velocity). aT0 is always zero per spec.md §4.4.
func (f *CoupledFilter) Init(p0, v0, b0, vt0 [3]float64, init InitCov) {
	n := f.dim()
	x := mat.NewVecDense(n, nil)
	setBlock3(x, blockP, p0)
	setBlock3(x, blockV, v0) // also serves as vU0 in the augmented layout
	setBlock3(x, blockB, b0)
	if f.augmented {
		setBlock3(x, blockAT, [3]float64{0, 0, 0})
		setBlock3(x, blockVT, vt0)
	}

	p := mat.NewSymDense(n, nil)
	setDiagBlock3(p, blockP, init.Pos)
	setDiagBlock3(p, blockV, init.Vel)
	setDiagBlock3(p, blockB, init.Bias)
	if f.augmented {
		setDiagBlock3(p, blockAT, init.Acc)
		setDiagBlock3(p, blockVT, init.Vel)
	}

	f.x = x
	f.p = p
	f.initialized = true
}

func (f *CoupledFilter) Initialized() bool { return f.initialized }

func setBlock3(v *mat.VecDense, block int, val [3]float64) {
	base := block * 3
	for i := 0; i < 3; i++ {
		v.SetVec(base+i, val[i])
	}
}

func getBlock3(v mat.Vector, block int) [3]float64 {
	base := block * 3
	return [3]float64{v.AtVec(base), v.AtVec(base + 1), v.AtVec(base + 2)}
}

func setDiagBlock3(m *mat.SymDense, block int, val float64) {
	base := block * 3
	for i := 0; i < 3; i++ {
		m.SetSym(base+i, base+i, val)
	}
}

// buildFG returns F(Δt) (n×n) and G(Δt) (n×3, multiplying the 3-vector
// vehicle-acceleration input u) per the dynamics in spec.md §4.1.
func (f *CoupledFilter) buildFG(dt float64) (*mat.Dense, *mat.Dense) {
	n := f.dim()
	F := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		F.Set(i, i, 1)
	}
	G := mat.NewDense(n, 3, nil)

	if !f.augmented {
		// ṗ = v, v̇ = -aᵤ, ḃ = 0
		for i := 0; i < 3; i++ {
			F.Set(blockP*3+i, blockV*3+i, dt)
			G.Set(blockP*3+i, i, -0.5*dt*dt)
			G.Set(blockV*3+i, i, -dt)
		}
		return F, G
	}

	// Augmented: ṗ = vₜ - vᵤ, v̇ᵤ = aᵤ, v̇ₜ = aₜ, ḃ = 0, ȧₜ = 0.
	for i := 0; i < 3; i++ {
		F.Set(blockP*3+i, blockV*3+i, -dt)   // p -= vU*dt  (blockV doubles as vU)
		F.Set(blockP*3+i, blockAT*3+i, 0.5*dt*dt)
		F.Set(blockP*3+i, blockVT*3+i, dt)
		F.Set(blockVT*3+i, blockAT*3+i, dt)
		G.Set(blockP*3+i, i, -0.5*dt*dt)
		G.Set(blockV*3+i, i, dt)
	}
	return F, G
}

func (f *CoupledFilter) buildQ(dt float64) *mat.SymDense {
	n := f.dim()
	q := mat.NewSymDense(n, nil)

	if !f.augmented {
		pp, pv, vv := whiteAccelBlock(f.noise.AccDroneVar, dt)
		for i := 0; i < 3; i++ {
			pi, vi := blockP*3+i, blockV*3+i
			q.SetSym(pi, pi, pp)
			q.SetSym(pi, vi, pv)
			q.SetSym(vi, vi, vv)
			q.SetSym(blockB*3+i, blockB*3+i, randomWalkVar(f.noise.BiasVar, dt))
		}
		return q
	}

	pp, pv, vv := whiteAccelBlock(f.noise.AccTargetVar, dt)
	vuVar := randomWalkVar(f.noise.AccDroneVar, dt)
	atVar := randomWalkVar(f.noise.AccTargetVar, dt)
	bVar := randomWalkVar(f.noise.BiasVar, dt)
	for i := 0; i < 3; i++ {
		pi, vui, bi, ati, vti := blockP*3+i, blockV*3+i, blockB*3+i, blockAT*3+i, blockVT*3+i
		q.SetSym(pi, pi, pp)
		q.SetSym(pi, vti, pv)
		q.SetSym(vti, vti, vv)
		q.SetSym(vui, vui, vuVar)
		q.SetSym(ati, ati, atVar)
		q.SetSym(bi, bi, bVar)
	}
	return q
}

// Predict advances the joint filter by dt seconds under vehicle
// acceleration u (NED 3-vector).
func (f *CoupledFilter) Predict(dt float64, u [3]float64) error {
	if !f.initialized {
		return fmt.Errorf("estimator: coupled filter predict before init")
	}
	F, G := f.buildFG(dt)
	uVec := mat.NewVecDense(3, u[:])

	var x mat.VecDense
	x.MulVec(F, f.x)
	var gu mat.VecDense
	gu.MulVec(G, uVec)
	x.AddVec(&x, &gu)
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

// Update applies a joint measurement z (rows x 1) with covariance R
// (rows x rows) through observation matrix H (rows x n). After the state
// correction, the bias block is clamped to ±limit (spec.md §4.4).
func (f *CoupledFilter) Update(z *mat.VecDense, r *mat.SymDense, h *mat.Dense) (*Innovation, error) {
	if !f.initialized {
		return nil, fmt.Errorf("estimator: coupled filter update before init")
	}
	rows, n := h.Dims()

	var hx mat.VecDense
	hx.MulVec(h, f.x)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		y.SetVec(i, z.AtVec(i)-hx.AtVec(i))
	}

	var hp mat.Dense
	hp.Mul(h, f.p)
	var hpht mat.Dense
	hpht.Mul(&hp, h.T())
	s := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			v := hpht.At(i, j)
			if i == j {
				v += r.At(i, i)
			}
			s.SetSym(i, j, v)
		}
	}

	ratio, err := mahalanobis(y, s)
	if err != nil {
		return nil, err
	}
	gatePass := ratio <= f.gate.threshold(rows)
	inno := &Innovation{Y: y, S: s, TestRatio: ratio, GatePass: gatePass}
	if !gatePass && f.gate.Reject {
		inno.Fused = false
		return inno, nil
	}

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return nil, err
	}
	var pht mat.Dense
	pht.Mul(f.p, h.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, y)
	var x mat.VecDense
	x.AddVec(f.x, &correction)
	clampBiasBlock(&x, f.limit)
	f.x = &x

	ident := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ident.Set(i, i, 1)
	}
	var kh mat.Dense
	kh.Mul(&k, h)
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

func clampBiasBlock(x *mat.VecDense, limit float64) {
	base := blockB * 3
	for i := 0; i < 3; i++ {
		x.SetVec(base+i, clampBias(x.AtVec(base+i), limit))
	}
}

func (f *CoupledFilter) Position() [3]float64 { return getBlock3(f.x, blockP) }

// Velocity returns the relative velocity for the static variant, or the
// vehicle velocity sub-state for the augmented variant (spec.md §3's
// "vehicle velocity vᵤ").
func (f *CoupledFilter) Velocity() [3]float64 { return getBlock3(f.x, blockV) }
func (f *CoupledFilter) Bias() [3]float64     { return getBlock3(f.x, blockB) }

// Acceleration returns the target acceleration sub-state (augmented only).
func (f *CoupledFilter) Acceleration() [3]float64 {
	if !f.augmented {
		return [3]float64{}
	}
	return getBlock3(f.x, blockAT)
}

// TargetVelocity returns the modeled target velocity sub-state, valid only
// for the augmented variant.
func (f *CoupledFilter) TargetVelocity() [3]float64 {
	if !f.augmented {
		return [3]float64{}
	}
	return getBlock3(f.x, blockVT)
}

// RelativeVelocity returns vₜ - vᵤ, the quantity decoupled filters track
// directly, so callers that need a uniform "relative velocity" regardless
// of variant don't need to branch on augmentation.
func (f *CoupledFilter) RelativeVelocity() [3]float64 {
	if !f.augmented {
		return f.Velocity()
	}
	vu := f.Velocity()
	vt := f.TargetVelocity()
	return [3]float64{vt[0] - vu[0], vt[1] - vu[1], vt[2] - vu[2]}
}

// CovarianceDiag returns the diagonal of the joint covariance, used to
// populate target_estimator_state (spec.md §6).
func (f *CoupledFilter) CovarianceDiag() []float64 {
	n := f.dim()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = f.p.At(i, i)
	}
	return out
}

func getDiagBlock3(m *mat.SymDense, block int) [3]float64 {
	base := block * 3
	return [3]float64{m.At(base, base), m.At(base+1, base+1), m.At(base+2, base+2)}
}

// PositionVarNED returns the per-axis position variance.
func (f *CoupledFilter) PositionVarNED() [3]float64 { return getDiagBlock3(f.p, blockP) }

// VelocityVarNED returns the per-axis variance of RelativeVelocity: the
// blockV variance for static, and var(vₜ − vᵤ) = Pₜₜ + Pᵤᵤ − 2·Pₜᵤ for
// augmented.
func (f *CoupledFilter) VelocityVarNED() [3]float64 {
	if !f.augmented {
		return getDiagBlock3(f.p, blockV)
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		u, t := blockV*3+i, blockVT*3+i
		out[i] = f.p.At(t, t) + f.p.At(u, u) - 2*f.p.At(t, u)
	}
	return out
}

// BiasVarNED returns the per-axis GPS-bias variance.
func (f *CoupledFilter) BiasVarNED() [3]float64 { return getDiagBlock3(f.p, blockB) }

// AccelerationVarNED returns the per-axis target-acceleration variance,
// zero for the static variant.
func (f *CoupledFilter) AccelerationVarNED() [3]float64 {
	if !f.augmented {
		return [3]float64{}
	}
	return getDiagBlock3(f.p, blockAT)
}
