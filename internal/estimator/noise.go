package estimator

// whiteAccelBlock returns the position/velocity process-noise terms for a
// double integrator driven by white acceleration noise of variance sigma2
// over a Δt-second step, per spec.md §4.1: "variance terms scale as
// Δt⁵/20, Δt⁴/8, Δt³/3 for position/velocity".
func whiteAccelBlock(sigma2, dt float64) (pp, pv, vv float64) {
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	dt5 := dt4 * dt
	pp = sigma2 * dt5 / 20
	pv = sigma2 * dt4 / 8
	vv = sigma2 * dt3 / 3
	return
}

// randomWalkVar returns the process-noise variance for a random-walk
// scalar state (bias, target acceleration) accumulated over dt seconds,
// per spec.md §4.1: "Δt for bias and target-acc random walk".
func randomWalkVar(sigma2, dt float64) float64 {
	return sigma2 * dt
}
