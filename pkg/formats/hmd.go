package formats

import (
	"fmt"

	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/encoding"
	"github.com/Faultbox/psxscan/pkg/limits"
	"github.com/Faultbox/psxscan/pkg/math"
	"github.com/Faultbox/psxscan/pkg/scan"
	"github.com/Faultbox/psxscan/pkg/scene"
)

// HMD constants.
const (
	HMDID = 0x50

	hmdNameSize      = 16
	hmdHeaderSize    = 0x40
	hmdTrackSize     = 8
	hmdCoordSize     = 32
	hmdCoordAbsolute = 0x01
	hmdTimSubFormat  = "TIM"
)

// HMDHeader is the fixed part of an HMD container. Every top is a byte
// offset from the start of the header.
type HMDHeader struct {
	ID          uint32
	Flags       uint32
	ObjectCount uint32
	CoordTop    uint32
	ModelTop    uint32
	SeqTop      uint32
	SeqCount    uint32
	ParamTop    uint32
	ParamCount  uint32
	TIMTop      uint32
	TIMCount    uint32
	TrackCount  uint32
	Name        string
}

// HMDTrack binds one object to an entry point of the instruction table.
type HMDTrack struct {
	ObjectID  uint16
	Entry     uint16
	Direction int8
	StreamID  uint8
}

// HMDDecoder recovers HMD-style containers: a coordinate hierarchy, one TMD
// object per coordinate, embedded TIM textures and animation tracks.
type HMDDecoder struct {
	Limits limits.Limits
}

// NewHMDDecoder returns an HMD decoder bounded by lim.
func NewHMDDecoder(lim limits.Limits) *HMDDecoder {
	return &HMDDecoder{Limits: lim.Merge(limits.Default())}
}

func (d *HMDDecoder) Format() string { return "HMD" }

func (d *HMDDecoder) MinIncrement() int64 { return 4 }

func readHMDHeader(c *scan.Cursor) (HMDHeader, error) {
	h := HMDHeader{
		ID:          c.U32(),
		Flags:       c.U32(),
		ObjectCount: c.U32(),
		CoordTop:    c.U32(),
		ModelTop:    c.U32(),
		SeqTop:      c.U32(),
		SeqCount:    c.U32(),
		ParamTop:    c.U32(),
		ParamCount:  c.U32(),
		TIMTop:      c.U32(),
		TIMCount:    c.U32(),
		TrackCount:  c.U32(),
	}
	if err := c.Err(); err != nil {
		return h, err
	}
	if h.ID != HMDID {
		return h, scan.Mismatch("HMD id 0x%X", h.ID)
	}
	if h.Flags != 0 {
		return h, scan.Mismatch("HMD flags 0x%X", h.Flags)
	}
	name := c.Bytes(hmdNameSize)
	if err := c.Err(); err != nil {
		return h, err
	}
	h.Name = encoding.FixedStringToUTF8(name)
	if !encoding.Printable(h.Name) {
		return h, scan.Mismatch("HMD name is not text")
	}
	return h, nil
}

func (h HMDHeader) check(lim limits.Limits) error {
	checks := []struct {
		what    string
		n       uint32
		max     int
		nonZero bool
	}{
		{"objects", h.ObjectCount, lim.MaxObjects, true},
		{"coordinates", h.ObjectCount, lim.MaxCoordinates, true},
		{"instructions", h.SeqCount, lim.MaxInstructions, false},
		{"parameter words", h.ParamCount, lim.MaxParameterWord, false},
		{"textures", h.TIMCount, lim.MaxTextures, false},
		{"animation tracks", h.TrackCount, lim.MaxAnimObjects, false},
	}
	for _, ck := range checks {
		check := limits.Check
		if ck.nonZero {
			check = limits.CheckNonZero
		}
		if err := check(ck.what, int64(ck.n), ck.max); err != nil {
			return err
		}
	}
	for _, top := range []uint32{h.CoordTop, h.ModelTop} {
		if top < hmdHeaderSize {
			return scan.Mismatch("HMD section inside header at 0x%X", top)
		}
	}
	return nil
}

// Decode reads an HMD container at the cursor base.
func (d *HMDDecoder) Decode(c *scan.Cursor, r *scan.Results) error {
	h, err := readHMDHeader(c)
	if err != nil {
		return err
	}
	if err := h.check(d.Limits); err != nil {
		return err
	}

	c.SeekRel(hmdHeaderSize)
	tracks := make([]HMDTrack, h.TrackCount)
	for i := range tracks {
		tracks[i] = HMDTrack{ObjectID: c.U16(), Entry: c.U16(), Direction: c.I8(), StreamID: c.U8()}
		c.U16()
	}
	if err := c.Err(); err != nil {
		return err
	}

	hier, err := readHMDCoordinates(c, int64(h.CoordTop), int(h.ObjectCount))
	if err != nil {
		return err
	}

	objects, err := readTMDObjects(c, int64(h.ModelTop), int(h.ObjectCount))
	if err != nil {
		return err
	}
	entity := &scene.Entity{Label: h.Name, Hierarchy: hier.Claim()}
	asm := scene.NewAssembler()
	for i, obj := range objects {
		if err := decodeTMDObject(c, obj, int64(h.ModelTop), d.Limits, asm); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		entity.AddBatches(asm.Flush(obj.Transform(), i)...)
	}

	if h.TIMCount > 0 {
		c.SeekRel(int64(h.TIMTop))
		for i := uint32(0); i < h.TIMCount; i++ {
			tex, err := parseTIM(c, d.Limits)
			if err != nil {
				return fmt.Errorf("texture %d: %w", i, err)
			}
			tex.Origin.SubFormat = hmdTimSubFormat
			tex.Label = h.Name
			r.AddTexture(tex)
			entity.OwnTexture(tex)
		}
	}

	if a := d.decodeAnimation(c, h, tracks); a != nil {
		r.AddAnimation(a)
		entity.OwnAnimation(a)
	}

	r.AddEntity(entity)
	return nil
}

func readHMDCoordinates(c *scan.Cursor, rel int64, n int) (*scene.Hierarchy, error) {
	c.SeekRel(rel)
	nodes := make([]scene.Coordinate, n)
	for i := range nodes {
		flags := c.U32()
		parent := c.I32()
		rx, ry, rz := c.I32(), c.I32(), c.I32()
		tx, ty, tz := c.I32(), c.I32(), c.I32()
		if err := c.Err(); err != nil {
			return nil, err
		}
		if flags&^hmdCoordAbsolute != 0 {
			return nil, scan.Mismatch("coordinate %d flags 0x%X", i, flags)
		}
		rot, err := math.Euler(math.RadiansVec3(rx, ry, rz), math.OrderXYZ)
		if err != nil {
			return nil, err
		}
		nodes[i] = scene.Coordinate{
			ID:       i,
			ParentID: int(parent),
			Local:    math.Translate(float32(tx), float32(ty), float32(tz)).Mul(rot),
			Absolute: flags&hmdCoordAbsolute != 0,
		}
	}
	hier := scene.NewHierarchy(nodes)
	if err := hier.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", scan.ErrMismatch, err)
	}
	return hier, nil
}

// decodeAnimation runs every track through the instruction table. Any
// failure drops the animation and leaves the rest of the container intact.
func (d *HMDDecoder) decodeAnimation(c *scan.Cursor, h HMDHeader, tracks []HMDTrack) *anim.Animation {
	if h.SeqCount == 0 || len(tracks) == 0 {
		return nil
	}
	c.SeekRel(int64(h.SeqTop))
	words := c.U32s(int(h.SeqCount))
	c.SeekRel(int64(h.ParamTop))
	params := c.U32s(int(h.ParamCount))
	if c.Err() != nil {
		return nil
	}

	descs := make([]anim.Descriptor, len(words))
	for i, w := range words {
		descs[i] = anim.Descriptor(w)
	}
	seq := &anim.Sequencer{
		Descriptors: descs,
		Params:      anim.WordParams{Words: params},
		MaxSteps:    d.Limits.MaxInstructions,
		MaxFrames:   d.Limits.MaxAnimFrames,
	}

	a := anim.New()
	a.Label = h.Name
	for _, t := range tracks {
		if uint32(t.ObjectID) >= h.ObjectCount {
			return nil
		}
		if err := seq.Run(a.Object(uint32(t.ObjectID)), int(t.Entry), int(t.Direction), t.StreamID); err != nil {
			return nil
		}
	}
	if a.Empty() {
		return nil
	}
	return a
}
