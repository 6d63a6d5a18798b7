package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/psxscan/internal/config"
	"github.com/Faultbox/psxscan/internal/logger"
	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/asset"
	"github.com/Faultbox/psxscan/pkg/cdsector"
	"github.com/Faultbox/psxscan/pkg/formats"
	"github.com/Faultbox/psxscan/pkg/scan"
	"github.com/Faultbox/psxscan/pkg/scene"
	"github.com/Faultbox/psxscan/pkg/texture"
)

func cmdScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	dump := fs.Bool("dump", false, "Print full details of every match")
	flags := config.BindFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: psxscan scan [options] <file>...")
		return 1
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := &reporter{w: os.Stdout, dump: *dump, export: cfg.Export}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scan.Workers)
	for _, path := range fs.Args() {
		g.Go(func() error {
			return scanFile(ctx, cfg, path, out)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("scan failed", zap.Error(err))
		return 1
	}
	return 0
}

// scanFile runs every configured decoder over one input file in turn.
func scanFile(ctx context.Context, cfg *config.Config, path string, out *reporter) error {
	decoders, err := formats.Decoders(cfg.Scan.Formats, cfg.Limits)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	log := logger.Named(filepath.Base(path))

	var stream io.ReadSeeker = f
	if cfg.Scan.RawSectors {
		layout, ok := cdsector.Detect(stream)
		if !ok {
			layout = cdsector.Mode2Form1
			log.Warn("no sector sync pattern, assuming mode 2 form 1")
		}
		r, err := cdsector.NewReader(stream, layout)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("unwrapped raw sectors", zap.String("user_bytes", humanize.IBytes(uint64(r.Size()))))
		stream = r
	} else if cdsector.LooksRaw(info.Size()) {
		log.Info("size is a whole number of raw sectors, consider -raw")
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	log.Info("scanning",
		zap.String("size", humanize.IBytes(uint64(info.Size()))),
		zap.Int("decoders", len(decoders)))

	for _, d := range decoders {
		c, err := scan.NewCursor(stream)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		opts := cfg.Scan.Options(title)
		opts.Logger = log
		s, err := scan.New(c, d, opts, out.handlers(log))
		if err != nil {
			if errors.Is(err, scan.ErrFatalConfig) {
				log.Warn("skipping decoder", zap.String("format", d.Format()), zap.Error(err))
				continue
			}
			return err
		}

		stats, err := s.Run(ctx)
		out.summary(path, d.Format(), stats)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", path, d.Format(), err)
		}
	}
	return nil
}

// reporter serializes output from concurrent scans.
type reporter struct {
	mu     sync.Mutex
	w      io.Writer
	dump   bool
	export config.ExportConfig
}

func (r *reporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}

func (r *reporter) detail(v any) {
	if !r.dump {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	spew.Fdump(r.w, v)
}

// handlers reports candidates and releases them. Nothing is kept in memory
// beyond one attempt. Textures an entity owns are released with the entity.
func (r *reporter) handlers(log *zap.Logger) scan.Handlers {
	return scan.Handlers{
		Entity: func(e *scene.Entity) {
			r.printf("%-24s %-8s model     batches=%d tris=%d textures=%d size=%v\n",
				e.Origin.Name, e.Origin.Format, len(e.Batches), e.TriangleCount(), len(e.Textures), e.Bounds.Size())
			r.detail(entityDetail(e))
			e.Dispose()
		},
		Texture: func(t *scene.Texture) bool {
			r.printf("%-24s %-8s texture   %dx%d %dbpp page=%d clut=%d\n",
				t.Origin.Name, t.Origin.Format, t.Width, t.Height, t.BPP, t.Key, len(t.Palettes))
			if r.export.Dir != "" {
				paths, err := texture.Export(t, r.export.Dir, r.export.Format)
				if err != nil {
					log.Warn("texture export failed", zap.Stringer("texture", t), zap.Error(err))
				}
				log.Debug("exported texture", zap.Strings("paths", paths))
			}
			if !t.Owned() {
				t.Dispose()
			}
			return true
		},
		Animation: func(a *anim.Animation) {
			r.printf("%-24s %-8s animation objects=%d frames=%d\n",
				a.Origin.Name, a.Origin.Format, a.Len(), a.FrameCount())
			r.detail(a)
		},
		Progress: func(p scan.Progress) {
			log.Debug("progress",
				zap.String("offset", humanize.IBytes(uint64(p.Offset))),
				zap.String("done", fmt.Sprintf("%.1f%%", p.Fraction()*100)),
				zap.Int("matches", p.Stats.Matches))
		},
	}
}

func (r *reporter) summary(path, format string, st scan.Stats) {
	r.printf("# %s %s: %s probes, %s matches (%d models, %d textures, %d animations), %d faults\n",
		filepath.Base(path), format,
		humanize.Comma(int64(st.Attempts)), humanize.Comma(int64(st.Matches)),
		st.Entities, st.Textures, st.Animations, st.Faults)
}

// entityDetail strips triangle data so -dump stays readable.
func entityDetail(e *scene.Entity) any {
	type batch struct {
		Info       scene.RenderInfo
		Triangles  int
		Coordinate int
	}
	d := struct {
		Origin  asset.Origin
		Label   string
		Bounds  scene.Bounds
		Batches []batch
		Nodes   int
	}{Origin: e.Origin, Label: e.Label, Bounds: e.Bounds}
	for _, b := range e.Batches {
		d.Batches = append(d.Batches, batch{b.Info, len(b.Triangles), b.Coordinate})
	}
	if e.Hierarchy != nil {
		d.Nodes = e.Hierarchy.Len()
	}
	return d
}
