// Package assembler implements the Observation Assembler (spec.md §4.2):
// it turns each raw sensor sample into a canonical Observation — a value
// vector, per-axis validity mask, covariance, and effective sensor-type
// tag — applying mount rotation/offset, scale, altitude scaling and
// GPS ENU→NED transforms along the way. No frame-mixed value is allowed
// to leave this package (spec.md §9).
package assembler

import (
	"math"

	"github.com/asgard/landing-estimator/internal/messages"
)

const earthRadiusM = 6371000.0

// rotateBodyToNED rotates a body-frame vector into NED using the
// body→NED attitude quaternion, the standard quaternion-sandwich rotation
// v' = q * v * q⁻¹ expanded into a rotation matrix.
func rotateBodyToNED(q messages.Quaternion, v [3]float64) [3]float64 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	// Normalize defensively; a non-unit quaternion would bias every
	// downstream position fix.
	n := math.Sqrt(w*w + x*x + y*y + z*z)
	if n == 0 {
		return v
	}
	w, x, y, z = w/n, x/n, y/n, z/n

	r00 := 1 - 2*(y*y+z*z)
	r01 := 2 * (x*y - w*z)
	r02 := 2 * (x*z + w*y)
	r10 := 2 * (x*y + w*z)
	r11 := 1 - 2*(x*x+z*z)
	r12 := 2 * (y*z - w*x)
	r20 := 2 * (x*z - w*y)
	r21 := 2 * (y*z + w*x)
	r22 := 1 - 2*(x*x+y*y)

	return [3]float64{
		r00*v[0] + r01*v[1] + r02*v[2],
		r10*v[0] + r11*v[1] + r12*v[2],
		r20*v[0] + r21*v[1] + r22*v[2],
	}
}

// rotateNEDToBody applies the inverse (transpose) rotation, used by the
// frame round-trip test in spec.md §8.
func rotateNEDToBody(q messages.Quaternion, v [3]float64) [3]float64 {
	inv := messages.Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	return rotateBodyToNED(inv, v)
}

// rotateMount applies one of the five non-identity mount rotations
// (SENS_ROT values 1–5: yaw 90/180/270, roll 180, pitch 180) to a
// sensor-frame vector before it is treated as body-frame; any other value
// leaves the vector unrotated.
func rotateMount(rot int, v [3]float64) [3]float64 {
	switch rot {
	case 1: // yaw 90
		return [3]float64{-v[1], v[0], v[2]}
	case 2: // yaw 180
		return [3]float64{-v[0], -v[1], v[2]}
	case 3: // yaw 270
		return [3]float64{v[1], -v[0], v[2]}
	case 4: // roll 180
		return [3]float64{v[0], -v[1], -v[2]}
	case 5: // pitch 180
		return [3]float64{-v[0], v[1], -v[2]}
	default:
		return v
	}
}

// enuToNED swaps an East-North-Up vector into North-East-Down.
func enuToNED(enu [3]float64) [3]float64 {
	return [3]float64{enu[1], enu[0], -enu[2]}
}

// equirectangularNED projects a target lat/lon/alt into a NED displacement
// from an origin lat/lon/alt, using the small-angle equirectangular
// approximation spec.md §4.2 names explicitly.
func equirectangularNED(originLatDeg, originLonDeg, originAltM, latDeg, lonDeg, altM float64) [3]float64 {
	lat0 := originLatDeg * math.Pi / 180
	dLat := (latDeg - originLatDeg) * math.Pi / 180
	dLon := (lonDeg - originLonDeg) * math.Pi / 180

	north := dLat * earthRadiusM
	east := dLon * earthRadiusM * math.Cos(lat0)
	down := -(altM - originAltM)
	return [3]float64{north, east, down}
}

// applyScale scales the horizontal components of a NED vector by
// SCALE_X/SCALE_Y, per spec.md §4.2's closing rule ("All position
// observations are additionally scaled...").
func applyScale(v [3]float64, scaleX, scaleY float64) [3]float64 {
	return [3]float64{v[0] * scaleX, v[1] * scaleY, v[2]}
}

func addVec(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
