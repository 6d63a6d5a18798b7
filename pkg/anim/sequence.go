package anim

import (
	"errors"
	"fmt"

	"github.com/Faultbox/psxscan/pkg/math"
)

// Sequencer errors.
var (
	ErrRunaway        = errors.New("instruction stream exceeded step limit")
	ErrUnknownControl = errors.New("unknown control descriptor")
	ErrTooManyFrames  = errors.New("too many frames")
)

// AnyStream matches every stream id in a condition field, and keeps the
// current stream id in a jump destination field.
const AnyStream = 0x7F

// Kind is the descriptor class held in the top bits of a descriptor word.
type Kind uint8

const (
	KindNormal Kind = iota
	KindJump
	KindControl
)

// Control codes.
const (
	ControlEnd  = 0
	ControlWork = 1
)

// Descriptor is one fixed-width instruction of an animation control stream.
//
//	Normal   0 sssssss pppppppppppppppppppppppp   stream id, parameter index
//	Jump    10 ccccccc ddddddd tttttttttttttttt   condition sid, dest sid, target
//	Control 11 oooooo x ccccccc ................   code, condition sid
type Descriptor uint32

// Kind returns the descriptor class.
func (d Descriptor) Kind() Kind {
	switch {
	case d>>31 == 0:
		return KindNormal
	case d>>30 == 0b10:
		return KindJump
	default:
		return KindControl
	}
}

// StreamID returns the stream id of a Normal descriptor.
func (d Descriptor) StreamID() uint8 { return uint8(d>>24) & 0x7F }

// ParamIndex returns the parameter index of a Normal descriptor.
func (d Descriptor) ParamIndex() uint32 { return uint32(d) & 0xFFFFFF }

// JumpCondition returns the stream id a Jump requires, or AnyStream.
func (d Descriptor) JumpCondition() uint8 { return uint8(d>>23) & 0x7F }

// JumpStream returns the stream id a Jump switches to, or AnyStream to keep it.
func (d Descriptor) JumpStream() uint8 { return uint8(d>>16) & 0x7F }

// JumpTarget returns the instruction index a Jump moves to.
func (d Descriptor) JumpTarget() int { return int(d & 0xFFFF) }

// ControlCode returns the code of a Control descriptor.
func (d Descriptor) ControlCode() uint8 { return uint8(d>>24) & 0x3F }

// ControlCondition returns the stream id an End requires, or AnyStream.
func (d Descriptor) ControlCondition() uint8 { return uint8(d>>16) & 0x7F }

// NormalDescriptor encodes a Normal instruction.
func NormalDescriptor(sid uint8, param uint32) Descriptor {
	return Descriptor(uint32(sid&0x7F)<<24 | param&0xFFFFFF)
}

// JumpDescriptor encodes a Jump instruction.
func JumpDescriptor(cond, dst uint8, target uint16) Descriptor {
	return Descriptor(0b10<<30 | uint32(cond&0x7F)<<23 | uint32(dst&0x7F)<<16 | uint32(target))
}

// EndDescriptor encodes an End control instruction.
func EndDescriptor(cond uint8) Descriptor {
	return Descriptor(0b11<<30 | ControlEnd<<24 | uint32(cond&0x7F)<<16)
}

// WorkDescriptor encodes a no-op Work control instruction.
func WorkDescriptor() Descriptor {
	return Descriptor(0b11<<30 | ControlWork<<24)
}

// Sequencer executes an animation control stream into an object timeline.
type Sequencer struct {
	Descriptors []Descriptor
	Params      ParamSource

	// MaxSteps bounds the number of executed instructions; zero means
	// 128 visits per instruction, the size of the visited state space.
	MaxSteps int
	// MaxFrames bounds the committed frames; zero disables the bound.
	MaxFrames int
}

type state struct {
	sid   uint8
	index int
}

type pendingKey struct {
	key  Key
	time uint32
}

// Run executes from entry, stepping forward for direction >= 0 and
// backward otherwise, starting on stream id sid.
//
// A Normal descriptor is only committed as a frame once the following
// Normal for the same stream id is reached, because its duration and final
// values come from that next key. Execution halts at the stream bounds, at
// an End, or when a (stream id, index) state repeats. The first repeat of a
// Normal for the current stream closes the pending frame before halting so
// a looping animation keeps its last transition.
func (s *Sequencer) Run(obj *Object, entry int, direction int, sid uint8) error {
	step := 1
	if direction < 0 {
		step = -1
	}
	maxSteps := s.MaxSteps
	if maxSteps <= 0 {
		maxSteps = len(s.Descriptors)*128 + 1
	}

	var (
		pending *pendingKey
		now     uint32
		frames  int
	)
	visited := make(map[state]struct{})

	commit := func(next *Key) error {
		if s.MaxFrames > 0 && frames >= s.MaxFrames {
			return fmt.Errorf("%w: object %d", ErrTooManyFrames, obj.ID)
		}
		if err := obj.AddFrame(buildFrame(pending, now, next)); err != nil {
			return err
		}
		frames++
		return nil
	}

	idx := entry
	for steps := 0; idx >= 0 && idx < len(s.Descriptors); steps++ {
		if steps >= maxSteps {
			return fmt.Errorf("%w: %d steps", ErrRunaway, steps)
		}
		d := s.Descriptors[idx]
		st := state{sid: sid, index: idx}

		if _, seen := visited[st]; seen {
			if d.Kind() == KindNormal && d.StreamID() == sid && pending != nil {
				key, err := s.key(d)
				if err != nil {
					return err
				}
				return commit(&key)
			}
			return nil
		}
		visited[st] = struct{}{}

		switch d.Kind() {
		case KindNormal:
			if d.StreamID() != sid {
				idx += step
				continue
			}
			key, err := s.key(d)
			if err != nil {
				return err
			}
			if pending != nil {
				if err := commit(&key); err != nil {
					return err
				}
			}
			pending = &pendingKey{key: key, time: now}
			if now+key.Delta < now {
				return fmt.Errorf("%w: time overflow", ErrRunaway)
			}
			now += key.Delta
			idx += step

		case KindJump:
			cond := d.JumpCondition()
			if cond != AnyStream && cond != sid {
				idx += step
				continue
			}
			if dst := d.JumpStream(); dst != AnyStream {
				sid = dst
			}
			idx = d.JumpTarget()

		case KindControl:
			switch d.ControlCode() {
			case ControlEnd:
				if cond := d.ControlCondition(); cond == AnyStream || cond == sid {
					return nil
				}
				idx += step
			case ControlWork:
				idx += step
			default:
				return fmt.Errorf("%w: code %d at %d", ErrUnknownControl, d.ControlCode(), idx)
			}
		}
	}
	return nil
}

func (s *Sequencer) key(d Descriptor) (Key, error) {
	key, err := s.Params.Param(d.ParamIndex())
	if err != nil {
		return Key{}, err
	}
	if !key.Interp.Valid() {
		return Key{}, fmt.Errorf("%w: 0x%02X", ErrUnsupportedInterpolation, uint8(key.Interp))
	}
	if !key.Order.Valid() {
		return Key{}, fmt.Errorf("%w: %d", math.ErrUnsupportedRotationOrder, uint8(key.Order))
	}
	key.Delta = max(key.Delta, 1)
	return key, nil
}

func buildFrame(p *pendingKey, now uint32, next *Key) *Frame {
	f := &Frame{
		Time:          p.time,
		Duration:      max(now-p.time, 1),
		RotationOrder: p.key.Order,
	}
	interp := p.key.Interp.Base()
	f.Translation = buildChannel(interp, p.key.Translation, next.Translation)
	f.Rotation = buildChannel(interp, p.key.Rotation, next.Rotation)
	f.Scale = buildChannel(interp, p.key.Scale, next.Scale)
	return f
}

func buildChannel(interp Interpolation, cur, next ChannelKey) *Channel {
	if !cur.Set {
		return nil
	}
	ch := &Channel{Interp: interp, Value: cur.Value}
	if next.Set {
		ch.Final, ch.HasFinal = next.Value, true
	}
	if interp.ControlPoints() > 0 && len(cur.Points) == interp.ControlPoints() {
		end := cur.Value
		if ch.HasFinal {
			end = ch.Final
		}
		ch.Points = append([]math.Vec3{cur.Value}, cur.Points...)
		ch.Points = append(ch.Points, end)
	}
	return ch
}
