package math

import "math"

// FixedOne is the PSX GTE fixed-point unit: 4096 = 1.0, and 4096 = 360
// degrees for angles.
const FixedOne = 4096

// FixedToFloat converts a 1.0 = 4096 fixed-point value.
func FixedToFloat(v int32) float32 {
	return float32(v) / FixedOne
}

// FixedToRadians converts a 4096 = full turn angle to radians.
func FixedToRadians(v int32) float32 {
	return float32(float64(v) / FixedOne * 2 * math.Pi)
}

// FixedVec3 converts three fixed-point components.
func FixedVec3(x, y, z int32) Vec3 {
	return Vec3{FixedToFloat(x), FixedToFloat(y), FixedToFloat(z)}
}

// RadiansVec3 converts three 4096 = full turn angles to radians.
func RadiansVec3(x, y, z int32) Vec3 {
	return Vec3{FixedToRadians(x), FixedToRadians(y), FixedToRadians(z)}
}
