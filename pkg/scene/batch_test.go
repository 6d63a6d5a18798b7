package scene

import (
	"testing"

	"github.com/Faultbox/psxscan/pkg/math"
)

func triAt(x float32) Triangle {
	return NewTriangle(
		[3]math.Vec3{{X: x}, {X: x + 1}, {X: x, Y: 1}},
		[3]math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}},
	)
}

func TestAssemblerGroupsByKey(t *testing.T) {
	a := NewAssembler()
	keyA := RenderInfo{TexturePage: 3}
	keyB := RenderInfo{Flags: FlagUnlit}
	keyC := RenderInfo{TexturePage: 3, Mixture: MixtureAdd}

	a.Add(keyB, triAt(0))
	a.Add(keyA, triAt(1))
	a.Add(keyB, triAt(2))
	a.Add(keyC, triAt(3))
	a.Add(keyA, triAt(4))

	batches := a.Flush(math.Translate(0, 0, 1), 2)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}

	want := []struct {
		info RenderInfo
		xs   []float32
	}{
		{keyB, []float32{0, 2}},
		{keyA, []float32{1, 4}},
		{keyC, []float32{3}},
	}
	for i, w := range want {
		b := batches[i]
		if b.Info != w.info {
			t.Errorf("batch %d info = %+v, want %+v", i, b.Info, w.info)
		}
		if len(b.Triangles) != len(w.xs) {
			t.Fatalf("batch %d has %d triangles, want %d", i, len(b.Triangles), len(w.xs))
		}
		for j, x := range w.xs {
			if b.Triangles[j].Vertices[0].X != x {
				t.Errorf("batch %d triangle %d out of order", i, j)
			}
		}
		if b.Coordinate != 2 || b.Transform.Translation().Z != 1 {
			t.Errorf("batch %d missing transform or coordinate", i)
		}
	}

	if a.Len() != 0 {
		t.Errorf("assembler not cleared, %d triangles left", a.Len())
	}
	if again := a.Flush(math.Identity(), NoCoordinate); len(again) != 0 {
		t.Errorf("second flush returned %d batches", len(again))
	}
}

func TestAssemblerUVSeams(t *testing.T) {
	tri := triAt(0)
	tri.UVs = [3]math.Vec2{TexelUV(0, 0), TexelUV(255, 0), TexelUV(0, 255)}

	a := NewAssembler()
	a.Add(RenderInfo{Flags: FlagTextured}, tri)
	a.Add(RenderInfo{}, tri)
	batches := a.Flush(math.Identity(), NoCoordinate)

	fixed := batches[0].Triangles[0].UVs
	if fixed[1].X != 1 || fixed[2].Y != 1 {
		t.Errorf("textured seam not extended: %v", fixed)
	}
	if fixed[0].X != 0 || fixed[0].Y != 0 {
		t.Errorf("low corner moved: %v", fixed[0])
	}

	plain := batches[1].Triangles[0].UVs
	if plain[1].X != lastTexel {
		t.Errorf("untextured UVs should be left alone: %v", plain)
	}
}

func TestRenderFlagsString(t *testing.T) {
	tests := []struct {
		flags RenderFlags
		want  string
	}{
		{0, "None"},
		{FlagTextured, "Textured"},
		{FlagTextured | FlagSemiTransparent, "Textured|SemiTransparent"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
