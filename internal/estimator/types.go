// Package estimator implements the landing-target filter bank: the four
// concrete Kalman filter variants (decoupled/coupled x static/moving) that
// back the position, velocity, acceleration and GPS-bias estimate of a
// landing target relative to the vehicle.
package estimator

import "gonum.org/v1/gonum/mat"

// TargetMode selects whether the target is assumed fixed in NED or moving
// with its own (random-walk) acceleration.
type TargetMode int

const (
	ModeStatic TargetMode = iota
	ModeMoving
	ModeMovingAug
)

func (m TargetMode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeMoving:
		return "moving"
	case ModeMovingAug:
		return "moving_aug"
	default:
		return "unknown"
	}
}

// TargetModel selects whether the bank runs three independent per-axis
// filters or a single filter spanning all three axes with cross-covariance.
type TargetModel int

const (
	ModelDecoupled TargetModel = iota
	ModelCoupled
)

func (m TargetModel) String() string {
	if m == ModelCoupled {
		return "coupled"
	}
	return "decoupled"
}

// Variant names the four concrete filter types the bank can instantiate.
type Variant int

const (
	VariantDecoupledStatic Variant = iota
	VariantDecoupledMoving
	VariantCoupledStatic
	VariantCoupledMovingAug
)

// ResolveVariant maps the (mode, model) configuration pair onto one of the
// four concrete filter types, applying the two conflict-resolution rules
// recorded in SPEC_FULL.md §3: MovingAug forces Coupled, and Coupled+Moving
// shares the augmented coupled state vector since no separate non-augmented
// coupled-moving state is defined.
func ResolveVariant(mode TargetMode, model TargetModel) (Variant, bool) {
	forced := false
	if mode == ModeMovingAug && model == ModelDecoupled {
		model = ModelCoupled
		forced = true
	}
	switch {
	case model == ModelDecoupled && mode == ModeStatic:
		return VariantDecoupledStatic, forced
	case model == ModelDecoupled && mode == ModeMoving:
		return VariantDecoupledMoving, forced
	case model == ModelCoupled && mode == ModeStatic:
		return VariantCoupledStatic, forced
	default: // ModelCoupled && (ModeMoving || ModeMovingAug)
		return VariantCoupledMovingAug, forced
	}
}

// String returns the variant's canonical diagnostic name, used as the
// Prometheus label value and the published TargetEstimatorState.Variant.
func (v Variant) String() string {
	switch v {
	case VariantDecoupledStatic:
		return "decoupled_static"
	case VariantDecoupledMoving:
		return "decoupled_moving"
	case VariantCoupledStatic:
		return "coupled_static"
	case VariantCoupledMovingAug:
		return "coupled_moving_aug"
	default:
		return "unknown"
	}
}

// IsStatic reports whether a variant models a stationary target.
func (v Variant) IsStatic() bool {
	return v == VariantDecoupledStatic || v == VariantCoupledStatic
}

// IsCoupled reports whether a variant is the single joint filter form.
func (v Variant) IsCoupled() bool {
	return v == VariantCoupledStatic || v == VariantCoupledMovingAug
}

// NoiseParams carries the process-noise variances used to build Q(Δt),
// matching the AID_MASK-adjacent configuration knobs in spec.md §6.
type NoiseParams struct {
	AccDroneVar  float64 // ACC_D_UNC, vehicle-acceleration process variance
	AccTargetVar float64 // ACC_T_UNC, target-acceleration process variance (moving only)
	BiasVar      float64 // BIAS_UNC, bias random-walk variance
}

// InitCov carries the initial covariance diagonal values from spec.md §6
// (POS_UNC_IN, VEL_UNC_IN, BIA_UNC_IN, ACC_UNC_IN).
type InitCov struct {
	Pos  float64
	Vel  float64
	Bias float64
	Acc  float64
}

// BiasLimit is the per-axis clamp on the GPS bias sub-state (BIAS_LIM).
type BiasLimit float64

// clampSym sets each mirrored off-diagonal pair of p to its mean,
// P ← ½(P + Pᵀ). A SymDense stores each pair once, so the pair is already
// equal here; the symmetry of P after predict/update comes from the
// callers building p from the upper triangle of the computed product.
func clampSym(p *mat.SymDense) {
	n, _ := p.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := 0.5 * (p.At(i, j) + p.At(j, i))
			p.SetSym(i, j, avg)
		}
	}
}

// clampBias projects a bias scalar back onto ±limit when it would otherwise
// exceed the configured magnitude (spec.md §3, §4.4).
func clampBias(b float64, limit float64) float64 {
	if limit <= 0 {
		return b
	}
	if b > limit {
		return limit
	}
	if b < -limit {
		return -limit
	}
	return b
}
