package scene

import (
	"errors"
	"testing"

	"github.com/Faultbox/psxscan/pkg/math"
)

func TestEntityFinalize(t *testing.T) {
	a := NewAssembler()
	a.Add(RenderInfo{}, triAt(0))

	e := &Entity{
		Hierarchy: NewHierarchy(chain(math.Translate(10, 0, 0))),
	}
	e.AddBatches(a.Flush(math.Identity(), 0)...)

	if err := e.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if e.Batches[0].World.Translation().X != 10 {
		t.Errorf("world matrix not resolved: %v", e.Batches[0].World.Translation())
	}
	if !e.Bounds.Valid || e.Bounds.Min.X != 10 || e.Bounds.Max.X != 11 {
		t.Errorf("bounds = %+v, want X in [10, 11]", e.Bounds)
	}
}

func TestEntityFinalizeErrors(t *testing.T) {
	if err := (&Entity{}).Finalize(); !errors.Is(err, ErrEmptyEntity) {
		t.Errorf("expected ErrEmptyEntity, got %v", err)
	}

	a := NewAssembler()
	a.Add(RenderInfo{}, triAt(0))
	orphan := &Entity{}
	orphan.AddBatches(a.Flush(math.Identity(), 4)...)
	if err := orphan.Finalize(); !errors.Is(err, ErrInvalidHierarchy) {
		t.Errorf("expected ErrInvalidHierarchy for missing hierarchy, got %v", err)
	}

	a.Add(RenderInfo{}, triAt(0))
	cyclic := &Entity{Hierarchy: NewHierarchy([]Coordinate{{ParentID: 0, Local: math.Identity()}})}
	cyclic.AddBatches(a.Flush(math.Identity(), NoCoordinate)...)
	if err := cyclic.Finalize(); !errors.Is(err, ErrInvalidHierarchy) {
		t.Errorf("expected ErrInvalidHierarchy for cycle, got %v", err)
	}
}

func TestTextureLifecycle(t *testing.T) {
	before := LiveTextures()
	tex := NewTexture(5, 16, 16, 4)
	if LiveTextures() != before+1 {
		t.Fatalf("live textures = %d, want %d", LiveTextures(), before+1)
	}

	e := &Entity{}
	e.OwnTexture(tex)
	if !tex.Owned() {
		t.Error("owned texture reports no owner")
	}
	if !e.RemoveTexture(tex) || len(e.Textures) != 0 || tex.Owned() {
		t.Error("RemoveTexture did not detach")
	}
	if e.RemoveTexture(tex) {
		t.Error("second RemoveTexture should report false")
	}

	tex.Dispose()
	tex.Dispose()
	if !tex.Disposed() || LiveTextures() != before {
		t.Errorf("live textures = %d after dispose, want %d", LiveTextures(), before)
	}
}

func TestEntityDisposeReleasesOwnership(t *testing.T) {
	before := LiveTextures()
	shared := NewTexture(1, 4, 4, 16)
	a, b := &Entity{}, &Entity{}
	a.OwnTexture(shared)
	b.OwnTexture(shared)

	a.Dispose()
	if !shared.Owned() || shared.Disposed() {
		t.Error("texture should stay live while the second entity owns it")
	}
	b.Dispose()
	if shared.Owned() || !shared.Disposed() || LiveTextures() != before {
		t.Errorf("owned %v disposed %v live %d", shared.Owned(), shared.Disposed(), LiveTextures())
	}
}

func TestTexturePaletteFlags(t *testing.T) {
	tex := NewTexture(0, 4, 1, 4)
	defer tex.Dispose()
	tex.Palettes = [][]uint16{{0x0000, 0x7FFF, 0x801F}}
	tex.ScanPalettes()
	if !tex.HasBlackKey || !tex.SemiTransparent {
		t.Errorf("flags: black %v stp %v", tex.HasBlackKey, tex.SemiTransparent)
	}
	if tex.Colors() != 16 || !tex.Indexed() {
		t.Errorf("4bpp texture should be indexed with 16 colors")
	}
}

func TestTextureSetResolve(t *testing.T) {
	tex := NewTexture(7, 8, 8, 16)
	defer tex.Dispose()
	set := NewTextureSet()
	set.Add(tex)

	a := NewAssembler()
	a.Add(RenderInfo{TexturePage: 7, Flags: FlagTextured}, triAt(0))
	a.Add(RenderInfo{TexturePage: 9, Flags: FlagTextured}, triAt(1))
	a.Add(RenderInfo{TexturePage: 9}, triAt(2))
	e := &Entity{}
	e.AddBatches(a.Flush(math.Identity(), NoCoordinate)...)

	found, missing := set.Resolve(e)
	if found[e.Batches[0]] != tex {
		t.Error("page 7 batch not resolved")
	}
	if len(missing) != 1 || missing[0] != 9 {
		t.Errorf("missing = %v, want [9]", missing)
	}
}
