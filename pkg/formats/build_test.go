package formats

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/encoding"
	"github.com/Faultbox/psxscan/pkg/scan"
)

func le(buf *bytes.Buffer, vs ...any) {
	for _, v := range vs {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

// testObject is one TMD object: vertices, normals and raw primitive packets.
type testObject struct {
	verts   [][3]int16
	normals [][3]int16
	prims   [][]byte
}

// primFlatQuad is a lit, flat, untextured quad (mode 0x28).
func primFlatQuad(normal uint16, v [4]uint16, r, g, b uint8) []byte {
	buf := new(bytes.Buffer)
	le(buf, uint8(8), uint8(4), uint8(0), uint8(0x28))
	le(buf, r, g, b, uint8(0x28))
	le(buf, normal, v[0], v[1], v[2], v[3], uint16(0))
	return buf.Bytes()
}

// primFlatTri is a lit, flat, untextured triangle (mode 0x20).
func primFlatTri(normal uint16, v [3]uint16) []byte {
	buf := new(bytes.Buffer)
	le(buf, uint8(4), uint8(3), uint8(0), uint8(0x20))
	le(buf, uint8(200), uint8(100), uint8(50), uint8(0x20))
	le(buf, normal, v[0], v[1], v[2])
	return buf.Bytes()
}

// primTexturedTri is a lit, flat, textured triangle (mode 0x24) sampling
// page with the given mode bits or'ed in.
func primTexturedTri(normal uint16, v [3]uint16, page uint16, extraMode uint8) []byte {
	buf := new(bytes.Buffer)
	le(buf, uint8(7), uint8(5), uint8(0), uint8(0x24)|extraMode)
	le(buf, uint8(0), uint8(0), uint16(0))
	le(buf, uint8(255), uint8(0), page)
	le(buf, uint8(0), uint8(255), uint16(0))
	le(buf, normal, v[0], v[1], v[2])
	return buf.Bytes()
}

// primLine is a two-point line packet, which decoders skip.
func primLine() []byte {
	buf := new(bytes.Buffer)
	le(buf, uint8(3), uint8(2), uint8(1), uint8(0x40))
	le(buf, uint8(255), uint8(255), uint8(255), uint8(0x40))
	le(buf, uint16(0), uint16(1))
	return buf.Bytes()
}

// buildTMDObjects lays out an object table followed by each object's data.
// Pointers are relative to the start of the table.
func buildTMDObjects(objs ...testObject) []byte {
	tableSize := len(objs) * tmdObjectSize
	table := new(bytes.Buffer)
	data := new(bytes.Buffer)
	for _, o := range objs {
		vertTop := tableSize + data.Len()
		for _, v := range o.verts {
			le(data, v[0], v[1], v[2], int16(0))
		}
		normalTop := tableSize + data.Len()
		for _, n := range o.normals {
			le(data, n[0], n[1], n[2], int16(0))
		}
		primTop := tableSize + data.Len()
		for _, p := range o.prims {
			data.Write(p)
		}
		le(table,
			uint32(vertTop), uint32(len(o.verts)),
			uint32(normalTop), uint32(len(o.normals)),
			uint32(primTop), uint32(len(o.prims)),
			int32(0),
		)
	}
	return append(table.Bytes(), data.Bytes()...)
}

func buildTMD(objs ...testObject) []byte {
	buf := new(bytes.Buffer)
	le(buf, uint32(TMDID), uint32(0), uint32(len(objs)))
	buf.Write(buildTMDObjects(objs...))
	return buf.Bytes()
}

// sampleObject is a unit quad plus a textured triangle on page 5.
func sampleObject() testObject {
	return testObject{
		verts:   [][3]int16{{0, 0, 0}, {100, 0, 0}, {0, 100, 0}, {100, 100, 0}},
		normals: [][3]int16{{0, 0, -4096}},
		prims: [][]byte{
			primFlatQuad(0, [4]uint16{0, 1, 2, 3}, 10, 20, 30),
			primTexturedTri(0, [3]uint16{0, 1, 2}, 5, 0),
		},
	}
}

// buildTIM lays out a TIM image. clut may be nil for 16-bit images.
func buildTIM(mode TIMPixelMode, x, y, wUnits, h uint16, clut [][]uint16) []byte {
	buf := new(bytes.Buffer)
	flags := uint32(mode)
	if clut != nil {
		flags |= TIMFlagCLUT
	}
	le(buf, uint32(TIMID), flags)
	if clut != nil {
		cw, ch := uint16(len(clut[0])), uint16(len(clut))
		le(buf, uint32(timBlockHeader)+uint32(cw)*uint32(ch)*2, uint16(0), uint16(480), cw, ch)
		for _, pal := range clut {
			le(buf, pal)
		}
	}
	le(buf, uint32(timBlockHeader)+uint32(wUnits)*uint32(h)*2, x, y, wUnits, h)
	for i := 0; i < int(wUnits)*int(h); i++ {
		le(buf, uint16(i))
	}
	return buf.Bytes()
}

type testCoord struct {
	absolute bool
	parent   int32
	t        [3]int32
}

type testHMD struct {
	name    string
	coords  []testCoord
	objects []testObject
	tracks  []HMDTrack
	seq     []anim.Descriptor
	params  []uint32
	tims    [][]byte
}

// build lays out the header, tracks, coordinates, model table, instruction
// table, parameter words and TIM section in that order.
func (h testHMD) build() []byte {
	body := new(bytes.Buffer)
	at := func() uint32 { return uint32(hmdHeaderSize + body.Len()) }

	for _, t := range h.tracks {
		le(body, t.ObjectID, t.Entry, t.Direction, t.StreamID, uint16(0))
	}
	coordTop := at()
	for _, c := range h.coords {
		flags := uint32(0)
		if c.absolute {
			flags = hmdCoordAbsolute
		}
		le(body, flags, c.parent, int32(0), int32(0), int32(0), c.t[0], c.t[1], c.t[2])
	}
	modelTop := at()
	body.Write(buildTMDObjects(h.objects...))
	seqTop := at()
	for _, d := range h.seq {
		le(body, uint32(d))
	}
	paramTop := at()
	le(body, h.params)
	timTop := at()
	for _, t := range h.tims {
		body.Write(t)
	}

	buf := new(bytes.Buffer)
	le(buf,
		uint32(HMDID), uint32(0), uint32(len(h.objects)),
		coordTop, modelTop,
		seqTop, uint32(len(h.seq)),
		paramTop, uint32(len(h.params)),
		timTop, uint32(len(h.tims)),
		uint32(len(h.tracks)),
	)
	buf.Write(encoding.UTF8ToFixedString(h.name, hmdNameSize))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// decodeAt runs d once on data with the cursor based at 0.
func decodeAt(t *testing.T, d scan.Decoder, data []byte) (*scan.Results, *scan.Cursor, error) {
	t.Helper()
	c, err := scan.NewCursor(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	r := &scan.Results{}
	return r, c, d.Decode(c, r)
}
