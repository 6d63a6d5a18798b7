// Package scan probes a raw byte stream at every offset of a window with one
// format decoder and forwards whatever the decoder recovers.
package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/asset"
	"github.com/Faultbox/psxscan/pkg/scene"
)

// Options describe the scan window and stepping.
type Options struct {
	StartOffset int64
	StopOffset  int64 // exclusive; 0 scans to the end of the stream

	// NextOffset continues past the bytes a successful decode consumed
	// instead of probing inside the record.
	NextOffset bool

	// Alignment rounds every probe offset, the first included, up to a
	// multiple of itself.
	Alignment int64

	// BytesPerProgress is the advance between progress callbacks. 0 disables
	// them.
	BytesPerProgress int64

	// FileTitle is the base of every generated display name.
	FileTitle string

	Logger *zap.Logger
}

// Handlers receive forwarded candidates. All of them run on the scanning
// goroutine and must not block.
type Handlers struct {
	// Entity receives finalized entities.
	Entity func(*scene.Entity)

	// Texture decides whether to keep a texture. Returning false, or a nil
	// handler, disposes it and detaches it from every entity of the attempt.
	Texture func(*scene.Texture) bool

	Animation func(*anim.Animation)

	Progress func(Progress)
}

// Progress is passed to the progress handler.
type Progress struct {
	Offset int64
	Start  int64
	Stop   int64
	Stats  Stats
}

// Fraction returns the completed share of the window.
func (p Progress) Fraction() float64 {
	if p.Stop <= p.Start {
		return 1
	}
	return float64(p.Offset-p.Start) / float64(p.Stop-p.Start)
}

// Stats counts the outcome of a scan.
type Stats struct {
	Offset int64 // next offset that would have been probed

	Attempts   int
	Matches    int
	Mismatches int
	Faults     int

	Entities         int
	Textures         int
	Animations       int
	RejectedTextures int
	DroppedEntities  int
}

// Scanner drives one decoder over one cursor. It is not safe for concurrent
// use: the cursor position is shared state.
type Scanner struct {
	cursor   *Cursor
	decoder  Decoder
	opts     Options
	handlers Handlers
	log      *zap.Logger

	start, stop int64
	results     Results
}

// New validates the configuration. A nil decoder, a missing cursor, or a
// window that is empty after clamping to the stream and aligning the start
// returns ErrFatalConfig.
func New(c *Cursor, d Decoder, opts Options, h Handlers) (*Scanner, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: no decoder", ErrFatalConfig)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: no stream", ErrFatalConfig)
	}

	stop := opts.StopOffset
	if stop <= 0 || stop > c.Size() {
		stop = c.Size()
	}
	start := max(opts.StartOffset, 0)
	if a := opts.Alignment; a > 1 {
		start = alignUp(start, a)
	}
	if start >= stop {
		return nil, fmt.Errorf("%w: empty window [0x%X, 0x%X) in stream of %d bytes", ErrFatalConfig, start, stop, c.Size())
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Scanner{
		cursor:   c,
		decoder:  d,
		opts:     opts,
		handlers: h,
		log:      log.With(zap.String("format", d.Format())),
		start:    start,
		stop:     stop,
	}, nil
}

// Window returns the clamped [start, stop) range.
func (s *Scanner) Window() (start, stop int64) {
	return s.start, s.stop
}

// Run probes every offset of the window. It returns ctx.Err() when canceled
// and a wrapped error when the stream can no longer be positioned; Stats is
// valid in every case.
func (s *Scanner) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	var sinceProgress int64

	s.log.Debug("scan started",
		zap.Int64("start", s.start),
		zap.Int64("stop", s.stop),
		zap.Bool("next_offset", s.opts.NextOffset),
	)

	off := s.start
	for off < s.stop {
		if err := ctx.Err(); err != nil {
			stats.Offset = off
			return stats, err
		}
		if err := s.cursor.Reset(off); err != nil {
			stats.Offset = off
			return stats, fmt.Errorf("seek to 0x%X: %w", off, err)
		}

		stats.Attempts++
		matched := s.attempt(off, &stats)

		next := off + s.advance(off, matched)
		if a := s.opts.Alignment; a > 1 {
			next = alignUp(next, a)
		}
		sinceProgress += next - off
		off = next

		if s.handlers.Progress != nil && s.opts.BytesPerProgress > 0 && sinceProgress >= s.opts.BytesPerProgress {
			sinceProgress = 0
			stats.Offset = off
			s.handlers.Progress(Progress{Offset: min(off, s.stop), Start: s.start, Stop: s.stop, Stats: stats})
		}
	}

	stats.Offset = off
	s.log.Debug("scan finished",
		zap.Int("attempts", stats.Attempts),
		zap.Int("matches", stats.Matches),
		zap.Int("faults", stats.Faults),
	)
	return stats, nil
}

func alignUp(off, a int64) int64 {
	return (off + a - 1) / a * a
}

func (s *Scanner) advance(off int64, matched bool) int64 {
	adv := max(s.decoder.MinIncrement(), 1)
	if matched && s.opts.NextOffset {
		adv = max(adv, s.cursor.End()-off)
	}
	return adv
}

// attempt decodes at off and forwards the results. It reports whether
// anything was forwarded.
func (s *Scanner) attempt(off int64, stats *Stats) bool {
	r := &s.results
	r.reset()

	if err := s.decode(off); err != nil {
		var fault *DecodeFault
		if errors.As(err, &fault) {
			stats.Faults++
			s.log.Debug("decoder fault", zap.Int64("offset", off), zap.Error(err))
		} else {
			stats.Mismatches++
		}
		r.discard()
		return false
	}
	if r.Empty() {
		stats.Mismatches++
		return false
	}

	var entities []*scene.Entity
	for _, e := range r.Entities {
		if err := e.Finalize(); err != nil {
			s.log.Debug("entity dropped", zap.Int64("offset", off), zap.Error(err))
			stats.DroppedEntities++
			// Textures in the result set are still offered on their own.
			for _, tex := range r.Textures {
				e.RemoveTexture(tex)
			}
			e.Dispose()
			continue
		}
		entities = append(entities, e)
	}
	if len(entities) == 0 && len(r.Textures) == 0 && len(r.Animations) == 0 {
		stats.Mismatches++
		return false
	}

	stats.Matches++
	s.stamp(off, entities)

	for _, tex := range r.Textures {
		if s.handlers.Texture != nil && s.handlers.Texture(tex) {
			stats.Textures++
			continue
		}
		stats.RejectedTextures++
		r.reject(tex)
	}
	for _, e := range entities {
		stats.Entities++
		if s.handlers.Entity != nil {
			s.handlers.Entity(e)
		}
	}
	for _, a := range r.Animations {
		stats.Animations++
		if s.handlers.Animation != nil {
			s.handlers.Animation(a)
		}
	}

	s.log.Debug("match",
		zap.Int64("offset", off),
		zap.Int("entities", len(entities)),
		zap.Int("textures", len(r.Textures)),
		zap.Int("animations", len(r.Animations)),
	)
	return true
}

// decode runs the decoder, turning a panic into a DecodeFault.
func (s *Scanner) decode(off int64) (err error) {
	defer func() {
		if v := recover(); v != nil {
			s.log.Debug("decoder panic", zap.Int64("offset", off), zap.ByteString("stack", debug.Stack()))
			err = &DecodeFault{Format: s.decoder.Format(), Offset: off, Value: v}
		}
	}()
	return s.decoder.Decode(s.cursor, &s.results)
}

func (s *Scanner) stamp(off int64, entities []*scene.Entity) {
	name := asset.DisplayName(s.opts.FileTitle, off)
	origin := func(o *asset.Origin, i int) {
		o.Name = name
		o.Format = asset.FormatID(s.decoder.Format(), o.SubFormat)
		o.Offset = off
		o.Index = i
	}
	for i, e := range entities {
		origin(&e.Origin, i)
	}
	for i, t := range s.results.Textures {
		origin(&t.Origin, i)
	}
	for i, a := range s.results.Animations {
		origin(&a.Origin, i)
	}
}
