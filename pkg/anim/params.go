package anim

import (
	"errors"
	"fmt"

	"github.com/Faultbox/psxscan/pkg/math"
)

// ErrParamRange is returned when a parameter block runs past its table.
var ErrParamRange = errors.New("parameter index out of range")

// ChannelMask selects which channels a parameter block carries.
type ChannelMask uint8

const (
	ChannelTranslation ChannelMask = 1 << iota
	ChannelRotation
	ChannelScale
)

// ChannelKey is one channel of a decoded parameter block.
type ChannelKey struct {
	Set    bool
	Value  math.Vec3
	Points []math.Vec3
}

// Key is a decoded parameter block: one keyframe's worth of channel data
// plus the time until the next key.
type Key struct {
	Interp Interpolation
	Delta  uint32
	Order  math.RotationOrder

	Translation ChannelKey
	Rotation    ChannelKey
	Scale       ChannelKey
}

// ParamSource resolves the parameter index of a Normal descriptor.
type ParamSource interface {
	Param(index uint32) (Key, error)
}

// ParamHeader encodes the first word of a parameter block.
func ParamHeader(interp Interpolation, mask ChannelMask, order math.RotationOrder, delta uint16) uint32 {
	return uint32(interp)<<24 | uint32(mask&0xF)<<20 | uint32(order&0xF)<<16 | uint32(delta)
}

// WordParams reads parameter blocks from a table of 32-bit words.
//
// Block layout: header word (interpolation bits 31-24, channel mask bits
// 23-20, rotation order bits 19-16, delta bits 15-0), then for each channel
// present in T, R, S order its value followed by Interp.ControlPoints()
// extra points. A vector is three int32 words, or for packed codes two words
// holding x and y in the low and high halves of the first and z in the low
// half of the second. Rotations use 4096 = full turn; scales 4096 = 1.0.
type WordParams struct {
	Words []uint32
}

// Param decodes the block that starts at word index.
func (p WordParams) Param(index uint32) (Key, error) {
	pos := int(index)
	if pos < 0 || pos >= len(p.Words) {
		return Key{}, fmt.Errorf("%w: %d of %d", ErrParamRange, index, len(p.Words))
	}
	header := p.Words[pos]
	pos++

	key := Key{
		Interp: Interpolation(header >> 24),
		Order:  math.RotationOrder((header >> 16) & 0xF),
		Delta:  max(header&0xFFFF, 1),
	}
	if !key.Interp.Valid() {
		return Key{}, fmt.Errorf("%w: 0x%02X", ErrUnsupportedInterpolation, uint8(key.Interp))
	}
	mask := ChannelMask((header >> 20) & 0xF)

	channels := []struct {
		bit     ChannelMask
		dst     *ChannelKey
		convert func(x, y, z int32) math.Vec3
	}{
		{ChannelTranslation, &key.Translation, func(x, y, z int32) math.Vec3 {
			return math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}
		}},
		{ChannelRotation, &key.Rotation, math.RadiansVec3},
		{ChannelScale, &key.Scale, math.FixedVec3},
	}
	for _, ch := range channels {
		if mask&ch.bit == 0 {
			continue
		}
		ch.dst.Set = true
		for i := 0; i <= key.Interp.ControlPoints(); i++ {
			x, y, z, next, err := p.vector(pos, key.Interp.Packed())
			if err != nil {
				return Key{}, err
			}
			pos = next
			v := ch.convert(x, y, z)
			if i == 0 {
				ch.dst.Value = v
			} else {
				ch.dst.Points = append(ch.dst.Points, v)
			}
		}
	}
	return key, nil
}

func (p WordParams) vector(pos int, packed bool) (x, y, z int32, next int, err error) {
	need := 3
	if packed {
		need = 2
	}
	if pos+need > len(p.Words) {
		return 0, 0, 0, pos, fmt.Errorf("%w: vector at %d of %d", ErrParamRange, pos, len(p.Words))
	}
	if packed {
		w0, w1 := p.Words[pos], p.Words[pos+1]
		return int32(int16(w0)), int32(int16(w0 >> 16)), int32(int16(w1)), pos + 2, nil
	}
	return int32(p.Words[pos]), int32(p.Words[pos+1]), int32(p.Words[pos+2]), pos + 3, nil
}
