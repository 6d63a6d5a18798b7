package formats

import (
	"errors"
	"testing"

	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/limits"
	"github.com/Faultbox/psxscan/pkg/math"
	"github.com/Faultbox/psxscan/pkg/scan"
	"github.com/Faultbox/psxscan/pkg/scene"
)

func triObject() testObject {
	return testObject{
		verts:   [][3]int16{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}},
		normals: [][3]int16{{0, 0, 4096}},
		prims:   [][]byte{primFlatTri(0, [3]uint16{0, 1, 2})},
	}
}

func sampleHMD() testHMD {
	return testHMD{
		name: "ROBOT",
		coords: []testCoord{
			{parent: -1, t: [3]int32{100, 0, 0}},
			{parent: 0, t: [3]int32{0, 50, 0}},
		},
		objects: []testObject{triObject(), triObject()},
		tracks:  []HMDTrack{{ObjectID: 1, Entry: 0, Direction: 1, StreamID: 0}},
		seq: []anim.Descriptor{
			anim.NormalDescriptor(0, 0),
			anim.NormalDescriptor(0, 4),
			anim.JumpDescriptor(anim.AnyStream, anim.AnyStream, 0),
		},
		params: []uint32{
			anim.ParamHeader(anim.InterpLinear, anim.ChannelTranslation, math.OrderXYZ, 6), 0, 0, 0,
			anim.ParamHeader(anim.InterpLinear, anim.ChannelTranslation, math.OrderXYZ, 4), 8, 0, 0,
		},
		tims: [][]byte{buildTIM(TIM16BPP, 64, 0, 4, 2, nil)},
	}
}

func TestHMDDecode(t *testing.T) {
	data := sampleHMD().build()

	r, _, err := decodeAt(t, NewHMDDecoder(limits.Limits{}), data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(r.Entities) != 1 || len(r.Textures) != 1 || len(r.Animations) != 1 {
		t.Fatalf("expected 1/1/1 candidates, got %d/%d/%d", len(r.Entities), len(r.Textures), len(r.Animations))
	}

	e := r.Entities[0]
	if e.Label != "ROBOT" {
		t.Errorf("label = %q", e.Label)
	}
	if e.Hierarchy == nil || e.Hierarchy.Len() != 2 {
		t.Fatal("expected a 2-node hierarchy")
	}
	if len(e.Batches) != 2 || e.Batches[0].Coordinate != 0 || e.Batches[1].Coordinate != 1 {
		t.Fatalf("each object should produce one batch bound to its coordinate")
	}
	if err := e.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := e.Batches[1].World.Translation(); got != (math.Vec3{X: 100, Y: 50}) {
		t.Errorf("child world translation = %v, want (100, 50, 0)", got)
	}

	tex := r.Textures[0]
	defer tex.Dispose()
	if tex.Origin.SubFormat != "TIM" || tex.Key != 1 {
		t.Errorf("texture sub-format %q key %d", tex.Origin.SubFormat, tex.Key)
	}
	if len(e.Textures) != 1 || e.Textures[0] != tex {
		t.Error("entity does not own the nested texture")
	}

	a := r.Animations[0]
	obj, ok := a.Lookup(1)
	if !ok || obj.Len() != 2 {
		t.Fatalf("expected object 1 with 2 frames")
	}
	frames := obj.Frames()
	if frames[0].Duration != 6 || frames[1].Duration != 4 {
		t.Errorf("durations = %d, %d; want 6, 4", frames[0].Duration, frames[1].Duration)
	}
	if frames[0].Translation.Final.X != 8 || frames[1].Translation.Final.X != 0 {
		t.Errorf("finals = %v, %v", frames[0].Translation.Final, frames[1].Translation.Final)
	}
}

func TestHMDAbsoluteCoordinate(t *testing.T) {
	h := sampleHMD()
	h.coords[1].absolute = true
	r, _, err := decodeAt(t, NewHMDDecoder(limits.Limits{}), h.build())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	defer r.Textures[0].Dispose()

	m, err := r.Entities[0].Hierarchy.WorldMatrix(1)
	if err != nil {
		t.Fatalf("WorldMatrix: %v", err)
	}
	if got := m.Translation(); got != (math.Vec3{Y: 50}) {
		t.Errorf("absolute coordinate world = %v, want local (0, 50, 0)", got)
	}
}

func TestHMDCyclicHierarchy(t *testing.T) {
	h := sampleHMD()
	h.coords[0].parent = 1
	_, _, err := decodeAt(t, NewHMDDecoder(limits.Limits{}), h.build())
	if !errors.Is(err, scan.ErrMismatch) || !errors.Is(err, scene.ErrInvalidHierarchy) {
		t.Errorf("expected a mismatch wrapping ErrInvalidHierarchy, got %v", err)
	}
}

func TestHMDBadAnimationKeepsModel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testHMD)
	}{
		{"unsupported interpolation", func(h *testHMD) {
			h.params[0] = anim.ParamHeader(anim.Interpolation(0x09), anim.ChannelTranslation, math.OrderXYZ, 6)
		}},
		{"unsupported rotation order", func(h *testHMD) {
			h.params[0] = anim.ParamHeader(anim.InterpLinear, anim.ChannelTranslation, math.RotationOrder(7), 6)
		}},
		{"track object out of range", func(h *testHMD) {
			h.tracks[0].ObjectID = 5
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := sampleHMD()
			tt.mutate(&h)
			r, _, err := decodeAt(t, NewHMDDecoder(limits.Limits{}), h.build())
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			defer r.Textures[0].Dispose()
			if len(r.Animations) != 0 || len(r.Entities[0].Animations) != 0 {
				t.Error("broken animation should be dropped")
			}
			if len(r.Entities) != 1 {
				t.Error("model should survive a broken animation")
			}
		})
	}
}

func TestHMDRejectsHeader(t *testing.T) {
	good := sampleHMD().build()
	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"bad id", func(b []byte) { b[0] = 0x51 }},
		{"flags", func(b []byte) { b[4] = 1 }},
		{"section in header", func(b []byte) { b[0x0C] = 0x10 }},
		{"name not text", func(b []byte) { b[0x30] = 0x01 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), good...)
			tt.mutate(data)
			if _, _, err := decodeAt(t, NewHMDDecoder(limits.Limits{}), data); !errors.Is(err, scan.ErrMismatch) {
				t.Errorf("expected mismatch, got %v", err)
			}
		})
	}
}
