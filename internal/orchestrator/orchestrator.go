// Package orchestrator implements the Fusion Orchestrator (spec.md §4.3):
// the per-tick driver that refreshes the cached vehicle state, predicts
// the filter bank forward, routes each available sensor message through
// the Assembler and into the bank's update path in a fixed priority
// order, and publishes the resulting pose, full state, and per-sensor
// innovation diagnostics.
package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/asgard/landing-estimator/internal/assembler"
	"github.com/asgard/landing-estimator/internal/estimator"
	"github.com/asgard/landing-estimator/internal/estimatorcfg"
	"github.com/asgard/landing-estimator/internal/lifecycle"
	"github.com/asgard/landing-estimator/internal/messages"
	"github.com/asgard/landing-estimator/pkg/telemetry"
)

// knownVariants lists every Variant.String() value, for the active-variant
// gauge's fixed label set.
var knownVariants = []string{
	estimator.VariantDecoupledStatic.String(),
	estimator.VariantDecoupledMoving.String(),
	estimator.VariantCoupledStatic.String(),
	estimator.VariantCoupledMovingAug.String(),
}

// TickInputs carries the vehicle state refresh plus whichever sensor
// messages arrived since the previous tick. A nil field means that
// sensor produced nothing new this tick.
type TickInputs struct {
	Vehicle         assembler.VehicleState
	TargetGNSS      *messages.TargetGNSSReport
	MissionSetpoint *messages.PositionSetpointTriplet
	Vision          *messages.FiducialMarkerReport
	IRLock          *messages.IRLockReport
	UWB             *messages.UWBDistance
}

// TickResult is everything a tick may publish.
type TickResult struct {
	Pose        messages.LandingTargetPose
	State       messages.TargetEstimatorState
	Innovations []messages.InnovationRecord
}

// Orchestrator owns the filter bank's life cycle and drives it one tick
// at a time. It is not safe for concurrent use from multiple goroutines;
// the embedding scheduler is expected to serialize ticks (spec.md §4.3).
type Orchestrator struct {
	cfg     estimatorcfg.Config
	bank    estimator.Bank
	log     *logrus.Logger
	metrics *telemetry.Metrics

	veh          assembler.VehicleState
	initialized  bool
	lastTick     time.Time
	lastUpdate   time.Time
	lastMission  time.Time
}

// New constructs an Orchestrator for the given configuration. log and
// metrics may be nil; a nil logger is replaced with an error-level one
// (which suppresses the orchestrator's info and warn messages), a
// nil metrics recorder simply no-ops (see telemetry.Metrics's nil
// receivers).
func New(cfg estimatorcfg.Config, log *logrus.Logger, metrics *telemetry.Metrics) *Orchestrator {
	cfg.Validate()
	if log == nil {
		log = telemetry.NewLogger("error")
	}
	variant, _ := estimator.ResolveVariant(cfg.Mode, cfg.Model)
	o := &Orchestrator{
		cfg:     cfg,
		bank:    estimator.NewBank(variant, cfg.NoiseParams(), cfg.Gate, cfg.BiasLimit),
		log:     log,
		metrics: metrics,
	}
	o.metrics.SetActiveVariant(variant.String(), knownVariants)
	return o
}

// SetConfig applies a new configuration, per spec.md §4.4(c) resetting
// the filter bank whenever MODE or MODEL changes.
func (o *Orchestrator) SetConfig(cfg estimatorcfg.Config) {
	cfg.Validate()
	if cfg.StructuralDiff(o.cfg) {
		o.cfg = cfg
		o.rebuild(lifecycle.ResetConfigChange)
		return
	}
	o.cfg = cfg
}

func (o *Orchestrator) rebuild(reason lifecycle.ResetReason) {
	variant, _ := estimator.ResolveVariant(o.cfg.Mode, o.cfg.Model)
	o.bank = estimator.NewBank(variant, o.cfg.NoiseParams(), o.cfg.Gate, o.cfg.BiasLimit)
	o.initialized = false
	o.lastUpdate = time.Time{}
	o.metrics.RecordReset(string(reason))
	if reason == lifecycle.ResetNumericFault {
		o.metrics.RecordNumericFault()
	}
	o.metrics.SetActiveVariant(variant.String(), knownVariants)
	o.log.WithField("reason", string(reason)).Info("landing target estimator reset")
}

// Tick advances the estimator by one step. now is the tick's timestamp;
// inputs carries the refreshed vehicle state and whatever sensor
// messages are available this tick.
func (o *Orchestrator) Tick(now time.Time, inputs TickInputs) TickResult {
	o.veh = inputs.Vehicle

	obsList := o.assemble(now, inputs)

	if !o.initialized {
		if seedObs, ok := firstBiasCapableOrAny(obsList); ok {
			o.bank.Init(lifecycle.SeedFromObservation(o.cfg, seedObs, o.veh, o.bank.Variant()))
			o.initialized = true
			o.lastTick = now
			o.lastUpdate = now
			o.log.WithField("variant", o.bank.Variant().String()).Info("landing target estimator initialized")
		}
		return o.publish(now, nil)
	}

	dt := now.Sub(o.lastTick).Seconds()
	skip, reset := lifecycle.ShouldResetForGap(dt)
	if reset {
		o.rebuild(lifecycle.ResetPredictGap)
		o.lastTick = now
		return o.publish(now, nil)
	}
	if !skip {
		if err := o.bank.Predict(dt, o.veh.AccelNED); err != nil {
			o.log.WithError(err).Warn("predict step failed")
			o.rebuild(lifecycle.ResetNumericFault)
			o.lastTick = now
			return o.publish(now, nil)
		}
	}
	o.lastTick = now

	var records []messages.InnovationRecord
	anyFused := false
	for _, obs := range obsList {
		rec, fused := o.applyObservation(obs)
		records = append(records, rec)
		if fused {
			anyFused = true
		}
	}
	if anyFused {
		o.lastUpdate = now
	}

	if lifecycle.ShouldResetForTimeout(now.Sub(o.lastUpdate).Seconds(), o.cfg.FilterTimeout) {
		o.rebuild(lifecycle.ResetMeasurementGap)
		return o.publish(now, records)
	}

	if lifecycle.HasNaN(o.bank.CovarianceDiag()) {
		o.rebuild(lifecycle.ResetNumericFault)
		return o.publish(now, records)
	}

	return o.publish(now, records)
}

// assemble runs every enabled sensor through the Assembler in the fixed
// priority order spec.md §4.3 specifies, enforcing the target-GPS /
// mission-landing mutual exclusion.
func (o *Orchestrator) assemble(now time.Time, inputs TickInputs) []assembler.Observation {
	var out []assembler.Observation

	if o.cfg.AidMask.Has(estimatorcfg.AidTargetGPS) && inputs.TargetGNSS != nil {
		if obs, ok := assembler.TargetGPS(o.cfg, o.veh, *inputs.TargetGNSS, now); ok {
			out = append(out, obs)
		}
	} else if o.cfg.AidMask.Has(estimatorcfg.AidMissionLanding) && inputs.MissionSetpoint != nil {
		if obs, ok := assembler.MissionLanding(o.cfg, o.veh, *inputs.MissionSetpoint, now, o.lastMission); ok {
			out = append(out, obs)
			o.lastMission = now
		}
	}

	if o.cfg.AidMask.Has(estimatorcfg.AidRelGPSVel) && o.bank.Variant() == estimator.VariantCoupledMovingAug {
		if obs, ok := assembler.VehicleGPSVelocity(o.cfg, o.veh, now); ok {
			out = append(out, obs)
		}
	}

	if o.cfg.AidMask.Has(estimatorcfg.AidVision) && inputs.Vision != nil {
		if obs, ok := assembler.Vision(o.cfg, o.veh, *inputs.Vision, now); ok {
			out = append(out, obs)
		}
	}

	if o.cfg.AidMask.Has(estimatorcfg.AidIRLock) && inputs.IRLock != nil {
		if obs, ok := assembler.IRLock(o.cfg, o.veh, *inputs.IRLock, now); ok {
			out = append(out, obs)
		}
	}

	if o.cfg.AidMask.Has(estimatorcfg.AidUWB) && inputs.UWB != nil {
		if obs, ok := assembler.UWB(o.cfg, o.veh, *inputs.UWB, now); ok {
			out = append(out, obs)
		}
	}

	return out
}

func firstBiasCapableOrAny(obs []assembler.Observation) (assembler.Observation, bool) {
	for _, o := range obs {
		if o.WithBias {
			return o, true
		}
	}
	if len(obs) > 0 {
		return obs[0], true
	}
	return assembler.Observation{}, false
}

// applyObservation gates and fuses a single observation, returning its
// diagnostic record and whether it was actually fused.
func (o *Orchestrator) applyObservation(obs assembler.Observation) (messages.InnovationRecord, bool) {
	var innos []*estimator.Innovation
	var err error
	if obs.IsVelocity {
		innos, err = o.bank.UpdateVehicleVelocity(obs.Mask, obs.Z, obs.RDiag)
	} else {
		innos, err = o.bank.UpdatePosition(obs.Mask, obs.Z, obs.RDiag, obs.WithBias)
	}
	if err != nil || len(innos) == 0 {
		return messages.InnovationRecord{
			ID:        uuid.NewString(),
			Sensor:    obs.Type,
			Timestamp: obs.Timestamp,
		}, false
	}

	fused := false
	y := make([]float64, 0, 3)
	v := make([]float64, 0, 3)
	testRatio := 0.0
	for _, in := range innos {
		if in == nil {
			continue
		}
		if in.Fused {
			fused = true
		}
		testRatio = in.TestRatio
		n := in.Y.Len()
		for i := 0; i < n; i++ {
			y = append(y, in.Y.AtVec(i))
			v = append(v, in.S.At(i, i))
		}
	}

	if fused {
		o.metrics.RecordUpdate(string(obs.Type))
	} else {
		o.metrics.RecordGateRejection(string(obs.Type))
	}

	return messages.InnovationRecord{
		ID:            uuid.NewString(),
		Sensor:        obs.Type,
		Timestamp:     obs.Timestamp,
		Innovation:    y,
		InnovationVar: v,
		TestRatio:     testRatio,
		Fused:         fused,
	}, fused
}

func (o *Orchestrator) publish(now time.Time, records []messages.InnovationRecord) TickResult {
	posVar := o.bank.PositionVarNED()
	velVar := o.bank.VelocityVarNED()
	covDiag := covarianceVector(o.bank)
	trace := 0.0
	for _, v := range covDiag {
		trace += v
	}
	o.metrics.SetCovarianceTrace(trace)

	pose := messages.LandingTargetPose{
		Timestamp:      now,
		RelPositionNED: o.bank.Position(),
		RelVelocityNED: o.bank.RelativeVelocity(),
		PosCovDiag:     posVar,
		VelCovDiag:     velVar,
		IsStatic:       o.bank.Variant().IsStatic(),
		RelPosValid:    o.initialized,
		RelVelValid:    o.initialized,
		AbsPosValid:    o.initialized && o.veh.GPS.Valid,
	}

	state := messages.TargetEstimatorState{
		Timestamp:      now,
		Variant:        o.bank.Variant().String(),
		State:          stateVector(o.bank),
		CovarianceDiag: covDiag,
	}

	return TickResult{Pose: pose, State: state, Innovations: records}
}

// stateVector and covarianceVector both flatten the bank's per-quantity
// accessors in the same [p,v,b,acc] order, so State[k] and
// CovarianceDiag[k] describe the same component regardless of how the
// underlying variant lays out its own state vector internally
// (DecoupledBank groups by axis, CoupledBank by quantity).
func stateVector(b estimator.Bank) []float64 {
	p := b.Position()
	v := b.RelativeVelocity()
	bias := b.Bias()
	acc := b.Acceleration()
	return []float64{
		p[0], p[1], p[2],
		v[0], v[1], v[2],
		bias[0], bias[1], bias[2],
		acc[0], acc[1], acc[2],
	}
}

func covarianceVector(b estimator.Bank) []float64 {
	p := b.PositionVarNED()
	v := b.VelocityVarNED()
	bias := b.BiasVarNED()
	acc := b.AccelerationVarNED()
	return []float64{
		p[0], p[1], p[2],
		v[0], v[1], v[2],
		bias[0], bias[1], bias[2],
		acc[0], acc[1], acc[2],
	}
}

// Variant reports the currently active filter variant.
func (o *Orchestrator) Variant() estimator.Variant { return o.bank.Variant() }

// Initialized reports whether the filter bank has been seeded.
func (o *Orchestrator) Initialized() bool { return o.initialized }
