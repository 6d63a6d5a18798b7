// Package anim is the keyframe timeline shared by every format decoder.
//
// An Animation maps object ids to Objects; an Object maps strictly
// increasing frame times to Frames. Frames describe transitions rather than
// absolute samples: each channel carries its starting value and, where the
// source encodes it, the final value reached at the end of the frame.
package anim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Faultbox/psxscan/pkg/asset"
	"github.com/Faultbox/psxscan/pkg/math"
)

// Timeline errors.
var (
	ErrDuplicateFrameTime       = errors.New("duplicate frame time")
	ErrZeroDuration             = errors.New("frame duration must be at least 1")
	ErrUnsupportedInterpolation = errors.New("unsupported interpolation")
)

// Interpolation tags how a channel moves across its frame. Bit 7 marks the
// starred variants whose parameters are stored as packed int16 values.
type Interpolation uint8

const (
	InterpNone    Interpolation = 0
	InterpLinear  Interpolation = 1
	InterpBezier  Interpolation = 2
	InterpBSpline Interpolation = 3

	InterpPacked Interpolation = 0x80
)

// Base strips the packed flag.
func (i Interpolation) Base() Interpolation {
	return i &^ InterpPacked
}

// Packed reports whether this is a starred (int16-packed) variant.
func (i Interpolation) Packed() bool {
	return i&InterpPacked != 0
}

// Valid reports whether the code names a known algorithm.
func (i Interpolation) Valid() bool {
	return i.Base() <= InterpBSpline
}

// ControlPoints returns how many extra control points a key of this kind
// carries besides its value.
func (i Interpolation) ControlPoints() int {
	switch i.Base() {
	case InterpBezier, InterpBSpline:
		return 2
	default:
		return 0
	}
}

// String returns a human-readable name, with a '*' suffix for packed codes.
func (i Interpolation) String() string {
	var name string
	switch i.Base() {
	case InterpNone:
		name = "None"
	case InterpLinear:
		name = "Linear"
	case InterpBezier:
		name = "Bezier"
	case InterpBSpline:
		name = "BSpline"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(i))
	}
	if i.Packed() {
		name += "*"
	}
	return name
}

// Channel is one transform component of a frame.
type Channel struct {
	Interp   Interpolation
	Value    math.Vec3
	Final    math.Vec3 // value reached by the end of the frame
	HasFinal bool
	Points   []math.Vec3 // control points for Bezier and BSpline
}

// Frame is one transition on an object's timeline.
type Frame struct {
	Time     uint32
	Duration uint32

	Translation *Channel
	Rotation    *Channel // Euler angles in radians
	Scale       *Channel

	RotationOrder math.RotationOrder
}

// End returns the time at which the frame's transition completes.
func (f *Frame) End() uint32 {
	return f.Time + f.Duration
}

// Object is the timeline of one animated object.
type Object struct {
	ID uint32

	frames map[uint32]*Frame
	times  []uint32
}

// NewObject returns an empty timeline for the given object id.
func NewObject(id uint32) *Object {
	return &Object{ID: id, frames: make(map[uint32]*Frame)}
}

// AddFrame inserts f, keeping frame times strictly increasing and unique.
func (o *Object) AddFrame(f *Frame) error {
	if f.Duration < 1 {
		return fmt.Errorf("%w: object %d at time %d", ErrZeroDuration, o.ID, f.Time)
	}
	if _, ok := o.frames[f.Time]; ok {
		return fmt.Errorf("%w: object %d at time %d", ErrDuplicateFrameTime, o.ID, f.Time)
	}
	o.frames[f.Time] = f
	i, _ := slices.BinarySearch(o.times, f.Time)
	o.times = slices.Insert(o.times, i, f.Time)
	return nil
}

// Frame returns the frame starting at time t.
func (o *Object) Frame(t uint32) (*Frame, bool) {
	f, ok := o.frames[t]
	return f, ok
}

// Frames returns the frames in time order.
func (o *Object) Frames() []*Frame {
	frames := make([]*Frame, len(o.times))
	for i, t := range o.times {
		frames[i] = o.frames[t]
	}
	return frames
}

// Len returns the number of frames.
func (o *Object) Len() int {
	return len(o.times)
}

// End returns the time at which the last frame completes.
func (o *Object) End() uint32 {
	if len(o.times) == 0 {
		return 0
	}
	return o.frames[o.times[len(o.times)-1]].End()
}

// Animation is an object-indexed keyframe timeline.
type Animation struct {
	Origin asset.Origin
	Label  string
	FPS    float32

	objects map[uint32]*Object
	ids     []uint32
}

// New returns an empty animation.
func New() *Animation {
	return &Animation{FPS: 60, objects: make(map[uint32]*Object)}
}

// Object returns the timeline for id, creating it on first use.
func (a *Animation) Object(id uint32) *Object {
	if o, ok := a.objects[id]; ok {
		return o
	}
	o := NewObject(id)
	a.objects[id] = o
	i, _ := slices.BinarySearch(a.ids, id)
	a.ids = slices.Insert(a.ids, i, id)
	return o
}

// Lookup returns the timeline for id without creating it.
func (a *Animation) Lookup(id uint32) (*Object, bool) {
	o, ok := a.objects[id]
	return o, ok
}

// RemoveObject drops the timeline for id.
func (a *Animation) RemoveObject(id uint32) {
	if _, ok := a.objects[id]; !ok {
		return
	}
	delete(a.objects, id)
	if i, found := slices.BinarySearch(a.ids, id); found {
		a.ids = slices.Delete(a.ids, i, i+1)
	}
}

// Objects returns the timelines ordered by object id.
func (a *Animation) Objects() []*Object {
	objects := make([]*Object, len(a.ids))
	for i, id := range a.ids {
		objects[i] = a.objects[id]
	}
	return objects
}

// Len returns the number of objects.
func (a *Animation) Len() int {
	return len(a.ids)
}

// FrameCount returns the end time of the longest object timeline.
func (a *Animation) FrameCount() uint32 {
	var end uint32
	for _, o := range a.objects {
		end = max(end, o.End())
	}
	return end
}

// Empty reports whether no object has any frame.
func (a *Animation) Empty() bool {
	for _, o := range a.objects {
		if o.Len() > 0 {
			return false
		}
	}
	return true
}
