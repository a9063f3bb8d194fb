// Package messages defines the typed subscribed/published structs at the
// estimator's data-flow boundary (spec.md §6). The message bus itself —
// topic plumbing, subscription handles, serialization — is an external
// collaborator out of scope for this module (spec.md §1); these structs
// are what a scheduler hands to the Orchestrator and what it publishes
// back, independent of whatever transport carries them.
package messages

import "time"

// Quaternion rotates body frame into NED (spec.md §6, vehicle_attitude).
type Quaternion struct {
	W, X, Y, Z float64
}

// VehicleAttitude is the subscribed vehicle_attitude message.
type VehicleAttitude struct {
	Timestamp time.Time
	Q         Quaternion
}

// VehicleAcceleration is the subscribed vehicle_acceleration message,
// NED meters/s².
type VehicleAcceleration struct {
	Timestamp time.Time
	NED       [3]float64
}

// VehicleLocalPosition is the subscribed vehicle_local_position message.
type VehicleLocalPosition struct {
	Timestamp       time.Time
	NED             [3]float64
	DistBottom      float64
	DistBottomValid bool
}

// VehicleGPSPosition is the subscribed vehicle_gps_position message.
type VehicleGPSPosition struct {
	Timestamp  time.Time
	LatDeg     float64
	LonDeg     float64
	AltM       float64
	VelNED     [3]float64
	EPH        float64 // horizontal accuracy, m
	EPV        float64 // vertical accuracy, m
	FixType    int
	NumSats    int
	Valid      bool
}

// IRLockReport is the subscribed irlock_report message: tangent-of-angle
// offsets in sensor frame.
type IRLockReport struct {
	Timestamp    time.Time
	AngleX       float64 // tan(angle), sensor frame
	AngleY       float64
	SignalQuality float64
}

// UWBDistance is the subscribed uwb_distance message: position in the
// anchor/grid frame.
type UWBDistance struct {
	Timestamp time.Time
	GridPos   [3]float64
}

// FiducialMarkerReport is the subscribed fiducial_marker_report message.
type FiducialMarkerReport struct {
	Timestamp      time.Time
	PositionSensor [3]float64 // position in sensor/body frame, pre-rotation
	HasCovariance  bool
	Covariance     [3]float64 // diagonal, sensor-reported (optional)
}

// TargetGNSSReport is the subscribed target_GNSS_report message.
type TargetGNSSReport struct {
	Timestamp time.Time
	LatDeg    float64
	LonDeg    float64
	AltM      float64
	Valid     bool
}

// PositionSetpointTriplet is the subscribed position_setpoint_triplet
// message (mission landing point).
type PositionSetpointTriplet struct {
	Timestamp time.Time
	LatDeg    float64
	LonDeg    float64
	AltM      float64
	Valid     bool
}

// LandingTargetPose is the published landing_target_pose message.
type LandingTargetPose struct {
	Timestamp     time.Time
	RelPositionNED [3]float64
	RelVelocityNED [3]float64
	PosCovDiag    [3]float64
	VelCovDiag    [3]float64
	IsStatic      bool
	RelPosValid   bool
	RelVelValid   bool
	AbsPosValid   bool
}

// TargetEstimatorState is the published target_estimator_state message:
// the full internal state and covariance diagonal, for diagnostics.
type TargetEstimatorState struct {
	Timestamp      time.Time
	Variant        string
	State          []float64
	CovarianceDiag []float64
}

// SensorKind identifies which sensor an InnovationRecord came from.
type SensorKind string

const (
	SensorTargetGPS       SensorKind = "target_gps_pos"
	SensorVehicleGPSVel   SensorKind = "uav_gps_vel"
	SensorVision          SensorKind = "vision"
	SensorIRLock          SensorKind = "irlock"
	SensorUWB             SensorKind = "uwb"
	SensorMissionLanding  SensorKind = "mission_landing"
)

// InnovationRecord is the published per-sensor diagnostic record
// (spec.md §6).
type InnovationRecord struct {
	ID           string
	Sensor       SensorKind
	Timestamp    time.Time
	Innovation   []float64
	InnovationVar []float64
	TestRatio    float64
	Fused        bool
}
