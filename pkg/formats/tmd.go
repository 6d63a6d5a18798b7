package formats

import (
	"fmt"

	"github.com/Faultbox/psxscan/pkg/limits"
	"github.com/Faultbox/psxscan/pkg/math"
	"github.com/Faultbox/psxscan/pkg/scan"
	"github.com/Faultbox/psxscan/pkg/scene"
)

// TMD constants.
const (
	TMDID          = 0x41
	TMDFlagAbsPtrs = 0x01 // FIXP: object pointers are relative to the file, not the object table

	tmdHeaderSize = 12
	tmdObjectSize = 28
)

// TMD primitive mode bits.
const (
	tmdModeBrightOff = 0x01 // TGE
	tmdModeSemiTrans = 0x02 // ABE
	tmdModeTextured  = 0x04 // TME
	tmdModeQuad      = 0x08
	tmdModeGouraud   = 0x10 // IIP

	tmdCodePolygon = 1
)

// TMD primitive flag bits.
const (
	tmdFlagUnlit       = 0x01 // LGT set: no light source calculation
	tmdFlagDoubleSided = 0x02 // FCE
	tmdFlagGradation   = 0x04 // GRD
)

// TMDObject is one entry of a TMD object table. Tops are byte offsets from
// the pointer base of the containing record.
type TMDObject struct {
	VertTop    uint32
	VertCount  uint32
	NormalTop  uint32
	NormalCnt  uint32
	PrimTop    uint32
	PrimCount  uint32
	ScaleShift int32
}

// Check validates counts against lim.
func (o TMDObject) Check(lim limits.Limits) error {
	if err := limits.Check("vertices", int64(o.VertCount), lim.MaxVertices); err != nil {
		return err
	}
	if err := limits.Check("normals", int64(o.NormalCnt), lim.MaxNormals); err != nil {
		return err
	}
	if err := limits.CheckNonZero("primitives", int64(o.PrimCount), lim.MaxPrimitives); err != nil {
		return err
	}
	if o.VertCount == 0 {
		return scan.Mismatch("object without vertices")
	}
	return nil
}

// Transform returns the scale implied by ScaleShift.
func (o TMDObject) Transform() math.Mat4 {
	if o.ScaleShift == 0 || o.ScaleShift < -16 || o.ScaleShift > 16 {
		return math.Identity()
	}
	f := float32(1)
	for i := int32(0); i < o.ScaleShift; i++ {
		f *= 2
	}
	for i := o.ScaleShift; i < 0; i++ {
		f /= 2
	}
	return math.Scale(f, f, f)
}

// TMDDecoder recovers TMD models.
type TMDDecoder struct {
	Limits limits.Limits
}

// NewTMDDecoder returns a TMD decoder bounded by lim; zero fields fall back
// to the defaults.
func NewTMDDecoder(lim limits.Limits) *TMDDecoder {
	return &TMDDecoder{Limits: lim.Merge(limits.Default())}
}

func (d *TMDDecoder) Format() string { return "TMD" }

func (d *TMDDecoder) MinIncrement() int64 { return 1 }

// Decode reads a TMD record at the cursor base.
func (d *TMDDecoder) Decode(c *scan.Cursor, r *scan.Results) error {
	id := c.U32()
	flags := c.U32()
	count := c.U32()
	if err := c.Err(); err != nil {
		return err
	}
	if id != TMDID {
		return scan.Mismatch("TMD id 0x%X", id)
	}
	if flags&^TMDFlagAbsPtrs != 0 {
		return scan.Mismatch("TMD flags 0x%X", flags)
	}
	if err := limits.CheckNonZero("objects", int64(count), d.Limits.MaxObjects); err != nil {
		return err
	}

	ptrBase := int64(tmdHeaderSize)
	if flags&TMDFlagAbsPtrs != 0 {
		ptrBase = 0
	}

	objects, err := readTMDObjects(c, tmdHeaderSize, int(count))
	if err != nil {
		return err
	}

	entity := &scene.Entity{}
	asm := scene.NewAssembler()
	for i, obj := range objects {
		if err := decodeTMDObject(c, obj, ptrBase, d.Limits, asm); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		entity.AddBatches(asm.Flush(obj.Transform(), scene.NoCoordinate)...)
	}
	r.AddEntity(entity)
	return nil
}

func readTMDObjects(c *scan.Cursor, tableRel int64, count int) ([]TMDObject, error) {
	c.SeekRel(tableRel)
	objects := make([]TMDObject, count)
	for i := range objects {
		objects[i] = TMDObject{
			VertTop:    c.U32(),
			VertCount:  c.U32(),
			NormalTop:  c.U32(),
			NormalCnt:  c.U32(),
			PrimTop:    c.U32(),
			PrimCount:  c.U32(),
			ScaleShift: c.I32(),
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return objects, nil
}

// readVec16 reads n int16 x, y, z, pad records.
func readVec16(c *scan.Cursor, rel int64, n uint32, scale float32) ([]math.Vec3, error) {
	c.SeekRel(rel)
	raw := c.Bytes(int(n) * 8)
	if err := c.Err(); err != nil {
		return nil, err
	}
	out := make([]math.Vec3, n)
	for i := range out {
		p := raw[i*8:]
		out[i] = math.Vec3{
			X: float32(int16(uint16(p[0])|uint16(p[1])<<8)) * scale,
			Y: float32(int16(uint16(p[2])|uint16(p[3])<<8)) * scale,
			Z: float32(int16(uint16(p[4])|uint16(p[5])<<8)) * scale,
		}
	}
	return out, nil
}

// decodeTMDObject reads one object's geometry and feeds its triangles to asm.
func decodeTMDObject(c *scan.Cursor, obj TMDObject, ptrBase int64, lim limits.Limits, asm *scene.Assembler) error {
	if err := obj.Check(lim); err != nil {
		return err
	}
	verts, err := readVec16(c, ptrBase+int64(obj.VertTop), obj.VertCount, 1)
	if err != nil {
		return err
	}
	normals, err := readVec16(c, ptrBase+int64(obj.NormalTop), obj.NormalCnt, 1.0/math.FixedOne)
	if err != nil {
		return err
	}

	pos := ptrBase + int64(obj.PrimTop)
	for i := uint32(0); i < obj.PrimCount; i++ {
		c.SeekRel(pos)
		p := tmdPrimitive{olen: c.U8(), ilen: c.U8(), flag: c.U8(), mode: c.U8()}
		if err := c.Err(); err != nil {
			return err
		}
		if p.ilen == 0 {
			return scan.Mismatch("primitive %d with empty packet", i)
		}
		pos += 4 + int64(p.ilen)*4

		if !p.supported() {
			if lim.Strict {
				return scan.Mismatch("primitive %d: unsupported mode 0x%02X flag 0x%02X", i, p.mode, p.flag)
			}
			continue
		}
		if err := p.decode(c, verts, normals, asm); err != nil {
			return fmt.Errorf("primitive %d: %w", i, err)
		}
	}
	// Make the packet data of a trailing skipped primitive count as consumed.
	c.SeekRel(pos - 1)
	c.U8()
	return c.Err()
}

type tmdPrimitive struct {
	olen, ilen uint8
	flag, mode uint8
}

func (p tmdPrimitive) code() uint8       { return p.mode >> 5 }
func (p tmdPrimitive) textured() bool    { return p.mode&tmdModeTextured != 0 }
func (p tmdPrimitive) gouraud() bool     { return p.mode&tmdModeGouraud != 0 }
func (p tmdPrimitive) lit() bool         { return p.flag&tmdFlagUnlit == 0 }
func (p tmdPrimitive) gradation() bool   { return p.flag&tmdFlagGradation != 0 }
func (p tmdPrimitive) semiTrans() bool   { return p.mode&tmdModeSemiTrans != 0 }
func (p tmdPrimitive) brightOff() bool   { return p.mode&tmdModeBrightOff != 0 }
func (p tmdPrimitive) doubleSided() bool { return p.flag&tmdFlagDoubleSided != 0 }

func (p tmdPrimitive) vertexCount() int {
	if p.mode&tmdModeQuad != 0 {
		return 4
	}
	return 3
}

// layout returns the word counts of the packet sections: texture
// coordinates, colors, and the vertex/normal index count.
func (p tmdPrimitive) layout() (uvWords, colorWords, indices int) {
	n := p.vertexCount()
	if p.textured() {
		uvWords = n
	}
	perVertex := p.gouraud()
	if p.lit() {
		perVertex = p.gradation()
	}
	switch {
	case p.lit() && p.textured():
		colorWords = 0
	case perVertex:
		colorWords = n
	default:
		colorWords = 1
	}
	switch {
	case !p.lit():
		indices = n
	case p.gouraud():
		indices = 2 * n
	default:
		indices = 1 + n
	}
	return uvWords, colorWords, indices
}

func (p tmdPrimitive) supported() bool {
	if p.code() != tmdCodePolygon {
		return false
	}
	uv, color, idx := p.layout()
	return uv+color+(idx+1)/2 == int(p.ilen)
}

func (p tmdPrimitive) info(tsb uint16) scene.RenderInfo {
	info := scene.RenderInfo{Mixture: scene.MixtureNone}
	if p.textured() {
		info.Flags |= scene.FlagTextured
		info.TexturePage = uint32(tsb & 0x1F)
	}
	if !p.lit() || p.brightOff() {
		info.Flags |= scene.FlagUnlit
	}
	if p.doubleSided() {
		info.Flags |= scene.FlagDoubleSided
	}
	if p.gouraud() {
		info.Flags |= scene.FlagGouraud
	}
	if p.semiTrans() {
		info.Flags |= scene.FlagSemiTransparent
		info.Mixture = scene.MixtureBlend50
		if p.textured() {
			info.Mixture = scene.MixtureRate((tsb >> 5) & 3)
		}
	}
	return info
}

func (p tmdPrimitive) decode(c *scan.Cursor, verts, normals []math.Vec3, asm *scene.Assembler) error {
	n := p.vertexCount()
	uvWords, colorWords, indices := p.layout()

	var uvs [4]math.Vec2
	var tsb uint16
	for k := range uvWords {
		uvs[k] = scene.TexelUV(c.U8(), c.U8())
		extra := c.U16()
		if k == 1 {
			tsb = extra
		}
	}

	colors := [4]scene.Color{scene.White, scene.White, scene.White, scene.White}
	for k := range colorWords {
		col := scene.Color{R: c.U8(), G: c.U8(), B: c.U8()}
		c.U8()
		if colorWords == 1 {
			colors = [4]scene.Color{col, col, col, col}
			break
		}
		colors[k] = col
	}

	idx := make([]uint16, indices+indices%2)
	for k := range idx {
		idx[k] = c.U16()
	}
	if err := c.Err(); err != nil {
		return err
	}

	var vi, ni [4]int
	switch {
	case !p.lit():
		for k := range n {
			vi[k], ni[k] = int(idx[k]), -1
		}
	case p.gouraud():
		for k := range n {
			ni[k], vi[k] = int(idx[2*k]), int(idx[2*k+1])
		}
	default:
		for k := range n {
			ni[k], vi[k] = int(idx[0]), int(idx[1+k])
		}
	}

	var pv, pn [4]math.Vec3
	for k := range n {
		if vi[k] >= len(verts) {
			return scan.Mismatch("vertex index %d of %d", vi[k], len(verts))
		}
		pv[k] = verts[vi[k]]
		if ni[k] >= 0 {
			if ni[k] >= len(normals) {
				return scan.Mismatch("normal index %d of %d", ni[k], len(normals))
			}
			pn[k] = normals[ni[k]]
		}
	}

	info := p.info(tsb)
	corners := [][3]int{{0, 1, 2}}
	if n == 4 {
		corners = append(corners, [3]int{1, 3, 2})
	}
	for _, cs := range corners {
		tri := scene.NewTriangle(
			[3]math.Vec3{pv[cs[0]], pv[cs[1]], pv[cs[2]]},
			[3]math.Vec3{pn[cs[0]], pn[cs[1]], pn[cs[2]]},
		)
		if !p.lit() {
			fn := tri.FaceNormal()
			tri.Normals = [3]math.Vec3{fn, fn, fn}
		}
		tri.Colors = [3]scene.Color{colors[cs[0]], colors[cs[1]], colors[cs[2]]}
		tri.UVs = [3]math.Vec2{uvs[cs[0]], uvs[cs[1]], uvs[cs[2]]}
		asm.Add(info, tri)
	}
	return nil
}
