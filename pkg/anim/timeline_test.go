package anim

import (
	"errors"
	"testing"

	"github.com/Faultbox/psxscan/pkg/math"
)

func TestObjectFramesOrdered(t *testing.T) {
	o := NewObject(3)
	for _, tm := range []uint32{20, 0, 10} {
		if err := o.AddFrame(&Frame{Time: tm, Duration: 10}); err != nil {
			t.Fatalf("AddFrame(%d): %v", tm, err)
		}
	}

	frames := o.Frames()
	for i, want := range []uint32{0, 10, 20} {
		if frames[i].Time != want {
			t.Errorf("frame %d time = %d, want %d", i, frames[i].Time, want)
		}
	}
	if o.End() != 30 {
		t.Errorf("End = %d, want 30", o.End())
	}
}

func TestObjectRejectsBadFrames(t *testing.T) {
	o := NewObject(0)
	if err := o.AddFrame(&Frame{Time: 5, Duration: 1}); err != nil {
		t.Fatalf("AddFrame: %v", err)
	}
	if err := o.AddFrame(&Frame{Time: 5, Duration: 2}); !errors.Is(err, ErrDuplicateFrameTime) {
		t.Errorf("expected ErrDuplicateFrameTime, got %v", err)
	}
	if err := o.AddFrame(&Frame{Time: 9, Duration: 0}); !errors.Is(err, ErrZeroDuration) {
		t.Errorf("expected ErrZeroDuration, got %v", err)
	}
}

func TestAnimationObjects(t *testing.T) {
	a := New()
	a.Object(7)
	a.Object(2)
	a.Object(7)

	objs := a.Objects()
	if len(objs) != 2 || objs[0].ID != 2 || objs[1].ID != 7 {
		t.Fatalf("unexpected objects %v", objs)
	}
	if !a.Empty() {
		t.Error("expected animation without frames to be empty")
	}

	_ = a.Object(2).AddFrame(&Frame{Time: 0, Duration: 12})
	if a.Empty() || a.FrameCount() != 12 {
		t.Errorf("FrameCount = %d, want 12", a.FrameCount())
	}

	a.RemoveObject(2)
	if _, ok := a.Lookup(2); ok || a.Len() != 1 {
		t.Error("RemoveObject did not drop object 2")
	}
}

func TestSampleLinear(t *testing.T) {
	o := NewObject(0)
	_ = o.AddFrame(&Frame{
		Time:     0,
		Duration: 10,
		Translation: &Channel{
			Interp:   InterpLinear,
			Value:    math.Vec3{X: 0},
			Final:    math.Vec3{X: 10},
			HasFinal: true,
		},
	})

	tests := []struct {
		at   float32
		want float32
	}{
		{-5, 0},
		{0, 0},
		{5, 5},
		{10, 10},
		{20, 10},
	}
	for _, tt := range tests {
		p := o.Sample(tt.at)
		if !p.HasTranslation || p.Translation.X != tt.want {
			t.Errorf("Sample(%v) = %v, want X=%v", tt.at, p.Translation, tt.want)
		}
	}
}

func TestSampleNoneHolds(t *testing.T) {
	o := NewObject(0)
	_ = o.AddFrame(&Frame{
		Time:     0,
		Duration: 4,
		Scale: &Channel{
			Interp:   InterpNone,
			Value:    math.Vec3{X: 2, Y: 2, Z: 2},
			Final:    math.Vec3{X: 9, Y: 9, Z: 9},
			HasFinal: true,
		},
	})
	p := o.Sample(3)
	if p.Scale.X != 2 {
		t.Errorf("None interpolation should hold its value, got %v", p.Scale)
	}

	m, err := p.Matrix()
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if m[0] != 2 || m[5] != 2 || m[10] != 2 {
		t.Errorf("scale matrix diagonal = %v %v %v", m[0], m[5], m[10])
	}
}

func TestWordParamsPacked(t *testing.T) {
	words := []uint32{
		ParamHeader(InterpBezier|InterpPacked, ChannelTranslation, math.OrderZYX, 0),
		0xFFFE<<16 | 5, 7, // value (5, -2, 7)
		1 | 1<<16, 1, // control point 1
		2 | 2<<16, 2, // control point 2
	}
	key, err := WordParams{Words: words}.Param(0)
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	if key.Delta != 1 {
		t.Errorf("zero delta should clamp to 1, got %d", key.Delta)
	}
	if key.Order != math.OrderZYX {
		t.Errorf("order = %v, want ZYX", key.Order)
	}
	v := key.Translation.Value
	if v.X != 5 || v.Y != -2 || v.Z != 7 {
		t.Errorf("value = %v, want (5, -2, 7)", v)
	}
	if len(key.Translation.Points) != 2 || key.Translation.Points[1].X != 2 {
		t.Errorf("control points = %v", key.Translation.Points)
	}
}

func TestWordParamsTruncated(t *testing.T) {
	words := []uint32{ParamHeader(InterpLinear, ChannelTranslation|ChannelScale, math.OrderXYZ, 1), 0, 0, 0, 0}
	if _, err := (WordParams{Words: words}).Param(0); !errors.Is(err, ErrParamRange) {
		t.Errorf("expected ErrParamRange, got %v", err)
	}
	if _, err := (WordParams{Words: words}).Param(99); !errors.Is(err, ErrParamRange) {
		t.Errorf("expected ErrParamRange for bad index, got %v", err)
	}
}

func TestInterpolationString(t *testing.T) {
	if s := (InterpLinear | InterpPacked).String(); s != "Linear*" {
		t.Errorf("String = %q, want Linear*", s)
	}
	if (Interpolation(0x05)).Valid() {
		t.Error("0x05 should not be valid")
	}
}
