// Package estimatorcfg holds the estimator's configuration surface
// (spec.md §6): a plain struct reloaded by the embedding scheduler on
// parameter_update, with no CLI flags and no on-disk state, in the style
// of the teacher's FusionConfig / GPSConfig structs
// (PossumXI-Asgard_Arobi/Valkyrie/internal/fusion, .../internal/orbital/hal).
package estimatorcfg

import "github.com/asgard/landing-estimator/internal/estimator"

// AidMask is the bitmask selecting which sensors are active (spec.md §6).
type AidMask uint8

const (
	AidTargetGPS AidMask = 1 << iota
	AidRelGPSVel
	AidVision
	AidIRLock
	AidUWB
	AidMissionLanding
)

func (m AidMask) Has(bit AidMask) bool { return m&bit != 0 }

// Config mirrors the parameter table in spec.md §6.
type Config struct {
	AidMask AidMask
	Mode    estimator.TargetMode
	Model   estimator.TargetModel

	// BTOUT: filter timeout before reset (sustained sensor gap).
	FilterTimeout float64

	// Process noise variances.
	AccDroneVar  float64 // ACC_D_UNC
	AccTargetVar float64 // ACC_T_UNC
	BiasVar      float64 // BIAS_UNC

	// Measurement noise.
	MeasUnc    float64 // MEAS_UNC, IRLOCK/UWB angle-projected noise
	GPSPosNoise float64 // GPS_P_NOISE
	GPSVelNoise float64 // GPS_V_NOISE
	EVANoise    float64 // EVA_NOISE, vision attitude noise (unused by position core, kept for completeness)
	EVPNoise    float64 // EVP_NOISE, vision position noise
	EVNoiseMode int     // EV_NOISE_MD: 0 = use message covariance, else derive from EVPNoise

	// Initial covariance.
	PosUncIn  float64
	VelUncIn  float64
	BiasUncIn float64
	AccUncIn  float64

	// Bias clamp.
	BiasLimit float64

	// Horizontal measurement scale.
	ScaleX float64
	ScaleY float64

	// IRLOCK sensor mount.
	SensorRotation SensorRotation
	SensorOffsetX  float64
	SensorOffsetY  float64
	SensorOffsetZ  float64

	// UWBGridRotation orients the UWB anchor grid frame relative to body
	// frame. spec.md §4.2 requires this transform but does not name a
	// parameter for it; exposed here as an implementer's choice, noted in
	// DESIGN.md.
	UWBGridRotation SensorRotation

	// Gate configuration, exposed per spec.md §9's open question.
	Gate estimator.GateConfig

	// MissionLandingMinInterval throttles mission-landing-position
	// fusion to a "low rate", per spec.md §9's implementer's-choice note.
	MissionLandingMinInterval float64

	MeasurementUpdatedTimeout float64 // 0.1s nominal, freshness window per sample
	MeasurementValidTimeout   float64 // 1s nominal, GPS-pair validity window
}

// SensorRotation enumerates the mount-rotation values SENS_ROT can take:
// None plus the five 90°-multiple rotations the assembler applies
// (yaw 90/180/270, roll 180, pitch 180).
type SensorRotation int

const (
	RotNone SensorRotation = iota
	RotYaw90
	RotYaw180
	RotYaw270
	RotRoll180
	RotPitch180
)

// Default returns a Config with the nominal values spec.md's scenarios use.
func Default() Config {
	return Config{
		AidMask:       AidTargetGPS | AidVision | AidIRLock,
		Mode:          estimator.ModeStatic,
		Model:         estimator.ModelDecoupled,
		FilterTimeout: 3.0, // BTOUT
		AccDroneVar:   1.0,
		AccTargetVar:  0.5,
		BiasVar:       0.05,
		MeasUnc:       0.05,
		GPSPosNoise:   0.5,
		GPSVelNoise:   0.3,
		EVPNoise:      0.1,
		EVNoiseMode:   0,
		PosUncIn:      100,
		VelUncIn:      10,
		BiasUncIn:     1,
		AccUncIn:      1,
		BiasLimit:     1.0,
		ScaleX:        1.0,
		ScaleY:        1.0,
		Gate:          estimator.DefaultGateConfig(),
		MeasurementUpdatedTimeout: 0.1,
		MeasurementValidTimeout:   1.0,
		MissionLandingMinInterval: 1.0,
	}
}

// NoiseParams projects the process-noise fields into the estimator
// package's own parameter struct.
func (c Config) NoiseParams() estimator.NoiseParams {
	return estimator.NoiseParams{
		AccDroneVar:  c.AccDroneVar,
		AccTargetVar: c.AccTargetVar,
		BiasVar:      c.BiasVar,
	}
}

func (c Config) InitCov() estimator.InitCov {
	return estimator.InitCov{Pos: c.PosUncIn, Vel: c.VelUncIn, Bias: c.BiasUncIn, Acc: c.AccUncIn}
}

// StructuralDiff reports whether two configs differ in a way that forces
// the filter structure to change — MODE or MODEL — per spec.md §4.4(c).
func (c Config) StructuralDiff(prev Config) bool {
	return c.Mode != prev.Mode || c.Model != prev.Model
}

// Validate applies the spec.md §7 configuration-conflict rule (MovingAug
// without Coupled forces Coupled) and returns whether it fired.
func (c *Config) Validate() (forced bool) {
	_, forced = estimator.ResolveVariant(c.Mode, c.Model)
	if forced {
		c.Model = estimator.ModelCoupled
	}
	if c.FilterTimeout <= 0 {
		c.FilterTimeout = 3.0
	}
	if c.MeasurementUpdatedTimeout <= 0 {
		c.MeasurementUpdatedTimeout = 0.1
	}
	if c.MeasurementValidTimeout <= 0 {
		c.MeasurementValidTimeout = 1.0
	}
	if c.ScaleX == 0 {
		c.ScaleX = 1.0
	}
	if c.ScaleY == 0 {
		c.ScaleY = 1.0
	}
	return forced
}
