package anim

import "github.com/Faultbox/psxscan/pkg/math"

// Pose is an object's transform at one point in time.
type Pose struct {
	Translation math.Vec3
	Rotation    math.Vec3
	Scale       math.Vec3
	Order       math.RotationOrder

	HasTranslation, HasRotation, HasScale bool
}

// Matrix composes the pose into a local transform.
func (p Pose) Matrix() (math.Mat4, error) {
	rot := math.Identity()
	if p.HasRotation {
		var err error
		if rot, err = math.Euler(p.Rotation, p.Order); err != nil {
			return math.Identity(), err
		}
	}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}
	if p.HasScale {
		scale = p.Scale
	}
	return math.Compose(p.Translation, rot, scale), nil
}

// Eval returns the channel value at u in [0, 1] across its frame.
func (c *Channel) Eval(u float32) math.Vec3 {
	u = min(max(u, 0), 1)
	switch c.Interp.Base() {
	case InterpLinear:
		if c.HasFinal {
			return c.Value.Lerp(c.Final, u)
		}
	case InterpBezier:
		if len(c.Points) == 4 {
			return math.Bezier(c.Points[0], c.Points[1], c.Points[2], c.Points[3], u)
		}
		if c.HasFinal {
			return c.Value.Lerp(c.Final, u)
		}
	case InterpBSpline:
		if len(c.Points) == 4 {
			return math.BSpline(c.Points[0], c.Points[1], c.Points[2], c.Points[3], u)
		}
		if c.HasFinal {
			return c.Value.Lerp(c.Final, u)
		}
	}
	return c.Value
}

// Sample evaluates the object's pose at time t. Before the first frame the
// first frame's start values are used; after the last, its final values.
func (o *Object) Sample(t float32) Pose {
	var pose Pose
	if len(o.times) == 0 {
		return pose
	}

	idx := 0
	for i, ft := range o.times {
		if float32(ft) > t {
			break
		}
		idx = i
	}
	f := o.frames[o.times[idx]]
	u := (t - float32(f.Time)) / float32(f.Duration)

	pose.Order = f.RotationOrder
	if f.Translation != nil {
		pose.Translation, pose.HasTranslation = f.Translation.Eval(u), true
	}
	if f.Rotation != nil {
		pose.Rotation, pose.HasRotation = f.Rotation.Eval(u), true
	}
	if f.Scale != nil {
		pose.Scale, pose.HasScale = f.Scale.Eval(u), true
	}
	return pose
}
