package math

import (
	"errors"
	"fmt"
	"math"
)

// Mat4 is a 4x4 matrix in column-major order.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// ErrUnsupportedRotationOrder is returned for rotation-order codes outside 0..5.
var ErrUnsupportedRotationOrder = errors.New("unsupported rotation order")

// RotationOrder names the axis order Euler angles are applied in.
type RotationOrder uint8

const (
	OrderXYZ RotationOrder = iota
	OrderXZY
	OrderYXZ
	OrderYZX
	OrderZXY
	OrderZYX
)

// String returns the axis order, e.g. "XYZ".
func (o RotationOrder) String() string {
	switch o {
	case OrderXYZ:
		return "XYZ"
	case OrderXZY:
		return "XZY"
	case OrderYXZ:
		return "YXZ"
	case OrderYZX:
		return "YZX"
	case OrderZXY:
		return "ZXY"
	case OrderZYX:
		return "ZYX"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the six known orders.
func (o RotationOrder) Valid() bool {
	return o <= OrderZYX
}

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// RotateX returns a rotation matrix around the X axis. angle is in radians.
func RotateX(angle float32) Mat4 {
	c, s := sincos(angle)
	return Mat4{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

// RotateY returns a rotation matrix around the Y axis. angle is in radians.
func RotateY(angle float32) Mat4 {
	c, s := sincos(angle)
	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotateZ returns a rotation matrix around the Z axis. angle is in radians.
func RotateZ(angle float32) Mat4 {
	c, s := sincos(angle)
	return Mat4{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Euler builds a rotation from per-axis angles (radians) applied in the
// given order: OrderXYZ rotates about X first, then Y, then Z.
func Euler(angles Vec3, order RotationOrder) (Mat4, error) {
	x, y, z := RotateX(angles.X), RotateY(angles.Y), RotateZ(angles.Z)
	switch order {
	case OrderXYZ:
		return z.Mul(y).Mul(x), nil
	case OrderXZY:
		return y.Mul(z).Mul(x), nil
	case OrderYXZ:
		return z.Mul(x).Mul(y), nil
	case OrderYZX:
		return x.Mul(z).Mul(y), nil
	case OrderZXY:
		return y.Mul(x).Mul(z), nil
	case OrderZYX:
		return x.Mul(y).Mul(z), nil
	default:
		return Identity(), fmt.Errorf("%w: %d", ErrUnsupportedRotationOrder, uint8(order))
	}
}

// Compose returns Translate(t) * rotation * Scale(s).
func Compose(t Vec3, rotation Mat4, s Vec3) Mat4 {
	return Translate(t.X, t.Y, t.Z).Mul(rotation).Mul(Scale(s.X, s.Y, s.Z))
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// TransformPoint transforms a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12],
		m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13],
		m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14],
	}
}

// TransformDirection transforms a direction vector, ignoring translation.
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// ApproxEqual reports whether every element differs by at most eps.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := range m {
		d := m[i] - other[i]
		if d < -eps || d > eps {
			return false
		}
	}
	return true
}

func sincos(angle float32) (c, s float32) {
	sn, cs := math.Sincos(float64(angle))
	return float32(cs), float32(sn)
}
