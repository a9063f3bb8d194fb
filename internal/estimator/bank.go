package estimator

import "gonum.org/v1/gonum/mat"

// InitSeed carries the first-observation seed values spec.md §4.4
// describes, in a shape common to both bank implementations.
type InitSeed struct {
	Position        [3]float64
	Bias            [3]float64
	VehicleVelocity [3]float64 // used only by CoupledMovingAug
	Cov             InitCov
}

// Bank is the capability set spec.md §9 asks for: {init, predict, update,
// getState}, implemented by concrete per-variant types rather than a class
// hierarchy. DecoupledBank and CoupledBank are the only two
// implementations; which one backs a given Variant is decided once, at
// construction, by the Fusion Orchestrator.
type Bank interface {
	Variant() Variant
	Initialized() bool
	Init(seed InitSeed)
	Predict(dt float64, accelNED [3]float64) error
	// UpdatePosition fuses a position-like observation (target GPS,
	// vision, IRLOCK, UWB). mask marks which axes are valid; withBias
	// selects whether the observation also constrains the GPS bias
	// sub-state (true only for target GPS / mission landing).
	UpdatePosition(mask [3]bool, z [3]float64, rDiag [3]float64, withBias bool) ([]*Innovation, error)
	// UpdateVehicleVelocity fuses the vehicle-GPS-velocity observation.
	// Only CoupledMovingAug carries a vehicle-velocity sub-state; other
	// variants report ErrNoVehicleVelocityState.
	UpdateVehicleVelocity(mask [3]bool, z [3]float64, rDiag [3]float64) ([]*Innovation, error)
	Position() [3]float64
	RelativeVelocity() [3]float64
	Bias() [3]float64
	Acceleration() [3]float64
	CovarianceDiag() []float64
	// PositionVarNED, VelocityVarNED, BiasVarNED and AccelerationVarNED
	// return the per-axis variance of each quantity above, grouped the
	// same way Position/RelativeVelocity/Bias/Acceleration are — unlike
	// CovarianceDiag, which exposes each variant's raw internal state
	// layout (grouped by axis for DecoupledBank, by quantity for
	// CoupledBank) for diagnostics.
	PositionVarNED() [3]float64
	VelocityVarNED() [3]float64
	BiasVarNED() [3]float64
	AccelerationVarNED() [3]float64
}

// ErrNoVehicleVelocityState is returned by UpdateVehicleVelocity on
// variants that have no vehicle-velocity sub-state to update.
var ErrNoVehicleVelocityState = errNoVehicleVelocityState{}

type errNoVehicleVelocityState struct{}

func (errNoVehicleVelocityState) Error() string {
	return "estimator: variant has no vehicle-velocity sub-state"
}

// DecoupledBank runs three independent per-axis filters with no
// cross-axis covariance (spec.md §3/§4.1).
type DecoupledBank struct {
	variant Variant
	axes    [3]*AxisFilter
}

// NewDecoupledBank constructs a decoupled bank. moving selects between the
// 3-state and 4-state axis filters.
func NewDecoupledBank(moving bool, noise NoiseParams, gate GateConfig, biasLimit float64) *DecoupledBank {
	b := &DecoupledBank{variant: VariantDecoupledStatic}
	if moving {
		b.variant = VariantDecoupledMoving
	}
	for i := range b.axes {
		if moving {
			b.axes[i] = NewDecoupledMovingAxis(noise, gate, biasLimit)
		} else {
			b.axes[i] = NewDecoupledStaticAxis(noise, gate, biasLimit)
		}
	}
	return b
}

func (b *DecoupledBank) Variant() Variant { return b.variant }

func (b *DecoupledBank) Initialized() bool {
	for _, a := range b.axes {
		if !a.Initialized() {
			return false
		}
	}
	return true
}

// Init seeds all three axes from the observation described in spec.md
// §4.4: p0 from the observation, v0 zero (decoupled variants never carry
// a vehicle-velocity sub-state so MovingAug's vᵤ₀ rule does not apply),
// b0 per-axis bias, and aT0 implicitly zero inside AxisFilter.Init.
func (b *DecoupledBank) Init(seed InitSeed) {
	for i := range b.axes {
		b.axes[i].Init(seed.Position[i], 0, seed.Bias[i], seed.Cov)
	}
}

func (b *DecoupledBank) Predict(dt float64, accelNED [3]float64) error {
	for i, a := range b.axes {
		if err := a.Predict(dt, accelNED[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *DecoupledBank) UpdatePosition(mask [3]bool, z, rDiag [3]float64, withBias bool) ([]*Innovation, error) {
	var out []*Innovation
	for i, a := range b.axes {
		if !mask[i] {
			continue
		}
		h := []float64{1, 0, 0}
		if a.moving {
			h = []float64{1, 0, 0, 0}
		}
		if withBias {
			h[2] = 1
		}
		inno, err := a.Update(z[i], rDiag[i], h)
		if err != nil {
			return out, err
		}
		out = append(out, inno)
	}
	return out, nil
}

func (b *DecoupledBank) UpdateVehicleVelocity(mask [3]bool, z, rDiag [3]float64) ([]*Innovation, error) {
	return nil, ErrNoVehicleVelocityState
}

func (b *DecoupledBank) Position() [3]float64 {
	return [3]float64{b.axes[0].Position(), b.axes[1].Position(), b.axes[2].Position()}
}

func (b *DecoupledBank) RelativeVelocity() [3]float64 {
	return [3]float64{b.axes[0].Velocity(), b.axes[1].Velocity(), b.axes[2].Velocity()}
}

func (b *DecoupledBank) Bias() [3]float64 {
	return [3]float64{b.axes[0].Bias(), b.axes[1].Bias(), b.axes[2].Bias()}
}

func (b *DecoupledBank) Acceleration() [3]float64 {
	return [3]float64{b.axes[0].Acceleration(), b.axes[1].Acceleration(), b.axes[2].Acceleration()}
}

func (b *DecoupledBank) CovarianceDiag() []float64 {
	var out []float64
	for _, a := range b.axes {
		out = append(out, a.CovarianceDiag()...)
	}
	return out
}

func (b *DecoupledBank) PositionVarNED() [3]float64 {
	return [3]float64{b.axes[0].PositionVar(), b.axes[1].PositionVar(), b.axes[2].PositionVar()}
}

func (b *DecoupledBank) VelocityVarNED() [3]float64 {
	return [3]float64{b.axes[0].VelocityVar(), b.axes[1].VelocityVar(), b.axes[2].VelocityVar()}
}

func (b *DecoupledBank) BiasVarNED() [3]float64 {
	return [3]float64{b.axes[0].BiasVar(), b.axes[1].BiasVar(), b.axes[2].BiasVar()}
}

func (b *DecoupledBank) AccelerationVarNED() [3]float64 {
	return [3]float64{b.axes[0].AccelerationVar(), b.axes[1].AccelerationVar(), b.axes[2].AccelerationVar()}
}

// CoupledBank wraps the single joint filter (static or moving-augmented).
type CoupledBank struct {
	variant Variant
	f       *CoupledFilter
}

// NewCoupledBank constructs a coupled bank. augmented selects the 15-state
// moving-augmented filter over the 9-state static filter.
func NewCoupledBank(augmented bool, noise NoiseParams, gate GateConfig, biasLimit float64) *CoupledBank {
	if augmented {
		return &CoupledBank{variant: VariantCoupledMovingAug, f: NewCoupledMovingAug(noise, gate, biasLimit)}
	}
	return &CoupledBank{variant: VariantCoupledStatic, f: NewCoupledStatic(noise, gate, biasLimit)}
}

func (b *CoupledBank) Variant() Variant     { return b.variant }
func (b *CoupledBank) Initialized() bool    { return b.f.Initialized() }
func (b *CoupledBank) Position() [3]float64 { return b.f.Position() }
func (b *CoupledBank) RelativeVelocity() [3]float64 {
	return b.f.RelativeVelocity()
}
func (b *CoupledBank) Bias() [3]float64              { return b.f.Bias() }
func (b *CoupledBank) Acceleration() [3]float64      { return b.f.Acceleration() }
func (b *CoupledBank) CovarianceDiag() []float64     { return b.f.CovarianceDiag() }
func (b *CoupledBank) PositionVarNED() [3]float64     { return b.f.PositionVarNED() }
func (b *CoupledBank) VelocityVarNED() [3]float64     { return b.f.VelocityVarNED() }
func (b *CoupledBank) BiasVarNED() [3]float64         { return b.f.BiasVarNED() }
func (b *CoupledBank) AccelerationVarNED() [3]float64 { return b.f.AccelerationVarNED() }

// Init seeds the joint filter. seed.VehicleVelocity is used as vᵤ₀ for the
// augmented variant when a vehicle GPS velocity is available at init time
// (spec.md §4.4); it is ignored for the static variant.
func (b *CoupledBank) Init(seed InitSeed) {
	v0 := seed.VehicleVelocity
	if b.variant != VariantCoupledMovingAug {
		v0 = [3]float64{}
	}
	b.f.Init(seed.Position, v0, seed.Bias, [3]float64{}, seed.Cov)
}

func (b *CoupledBank) Predict(dt float64, accelNED [3]float64) error {
	return b.f.Predict(dt, accelNED)
}

func (b *CoupledBank) UpdatePosition(mask [3]bool, z, rDiag [3]float64, withBias bool) ([]*Innovation, error) {
	rows := maskCount(mask)
	if rows == 0 {
		return nil, nil
	}
	n := coupledDim(b.variant == VariantCoupledMovingAug)
	H := mat.NewDense(rows, n, nil)
	zVec := mat.NewVecDense(rows, nil)
	R := mat.NewSymDense(rows, nil)

	row := 0
	for i := 0; i < 3; i++ {
		if !mask[i] {
			continue
		}
		H.Set(row, blockP*3+i, 1)
		if withBias {
			H.Set(row, blockB*3+i, 1)
		}
		zVec.SetVec(row, z[i])
		R.SetSym(row, row, rDiag[i])
		row++
	}

	inno, err := b.f.Update(zVec, R, H)
	if err != nil {
		return nil, err
	}
	return []*Innovation{inno}, nil
}

func (b *CoupledBank) UpdateVehicleVelocity(mask [3]bool, z, rDiag [3]float64) ([]*Innovation, error) {
	if b.variant != VariantCoupledMovingAug {
		return nil, ErrNoVehicleVelocityState
	}
	rows := maskCount(mask)
	if rows == 0 {
		return nil, nil
	}
	n := coupledDim(true)
	H := mat.NewDense(rows, n, nil)
	zVec := mat.NewVecDense(rows, nil)
	R := mat.NewSymDense(rows, nil)

	row := 0
	for i := 0; i < 3; i++ {
		if !mask[i] {
			continue
		}
		H.Set(row, blockV*3+i, 1) // blockV doubles as vU in the augmented layout
		zVec.SetVec(row, z[i])
		R.SetSym(row, row, rDiag[i])
		row++
	}

	inno, err := b.f.Update(zVec, R, H)
	if err != nil {
		return nil, err
	}
	return []*Innovation{inno}, nil
}

// NewBank constructs the concrete Bank implementation for the given
// resolved variant (see ResolveVariant).
func NewBank(v Variant, noise NoiseParams, gate GateConfig, biasLimit float64) Bank {
	switch v {
	case VariantDecoupledStatic:
		return NewDecoupledBank(false, noise, gate, biasLimit)
	case VariantDecoupledMoving:
		return NewDecoupledBank(true, noise, gate, biasLimit)
	case VariantCoupledStatic:
		return NewCoupledBank(false, noise, gate, biasLimit)
	default:
		return NewCoupledBank(true, noise, gate, biasLimit)
	}
}

func maskCount(mask [3]bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}
