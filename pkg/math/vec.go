// Package math provides the vector, matrix and fixed-point helpers shared by
// the scene and animation packages.
package math

import "math"

// Vec2 is a 2D vector, used for texture coordinates.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns a unit vector, or the zero vector for zero input.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Min returns the component-wise minimum.
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{min(v.X, other.X), min(v.Y, other.Y), min(v.Z, other.Z)}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{max(v.X, other.X), max(v.Y, other.Y), max(v.Z, other.Z)}
}

// Lerp interpolates linearly from v to other.
func (v Vec3) Lerp(other Vec3, t float32) Vec3 {
	return Vec3{
		v.X + t*(other.X-v.X),
		v.Y + t*(other.Y-v.Y),
		v.Z + t*(other.Z-v.Z),
	}
}

// Bezier evaluates a cubic Bezier curve through four control points.
func Bezier(p0, p1, p2, p3 Vec3, t float32) Vec3 {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return p0.Scale(b0).Add(p1.Scale(b1)).Add(p2.Scale(b2)).Add(p3.Scale(b3))
}

// BSpline evaluates a uniform cubic B-spline segment.
func BSpline(p0, p1, p2, p3 Vec3, t float32) Vec3 {
	t2 := t * t
	t3 := t2 * t
	b0 := (1 - 3*t + 3*t2 - t3) / 6
	b1 := (4 - 6*t2 + 3*t3) / 6
	b2 := (1 + 3*t + 3*t2 - 3*t3) / 6
	b3 := t3 / 6
	return p0.Scale(b0).Add(p1.Scale(b1)).Add(p2.Scale(b2)).Add(p3.Scale(b3))
}
