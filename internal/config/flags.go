package config

import (
	"flag"
	"strings"
)

// Flags are the command-line overrides of one scan invocation. Only flags
// given explicitly override lower-priority sources.
type Flags struct {
	fs *flag.FlagSet

	Config     string
	Debug      bool
	Start      int64
	Stop       int64
	Alignment  int64
	NextOffset bool
	RawSectors bool
	Workers    int
	Formats    string
	LogFile    string
	Strict     bool
	ExportDir  string
	Image      string
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.Int64Var(&f.Start, "start", 0, "First offset to probe (0x prefix for hex)")
	fs.Int64Var(&f.Stop, "stop", 0, "Offset to stop before, 0 for end of file")
	fs.Int64Var(&f.Alignment, "align", 1, "Probe only multiples of this offset")
	fs.BoolVar(&f.NextOffset, "next", false, "Skip past the bytes of each match")
	fs.BoolVar(&f.RawSectors, "raw", false, "Input is a raw 2352-byte sector CD image")
	fs.IntVar(&f.Workers, "workers", 4, "Files scanned concurrently")
	fs.StringVar(&f.Formats, "formats", "", "Comma-separated formats to scan for (default all)")
	fs.StringVar(&f.LogFile, "log", "", "Write a rotated log file")
	fs.BoolVar(&f.Strict, "strict", false, "Reject records with unsupported primitives")
	fs.StringVar(&f.ExportDir, "export", "", "Write recovered textures to this directory")
	fs.StringVar(&f.Image, "image", "tga", "Export image format: tga, png or bmp")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// applyFlags applies CLI flag overrides to the config.
func (f *Flags) applyFlags(cfg *Config) {
	if f == nil || f.fs == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.Debug {
				cfg.Logging.Level = "debug"
			}
		case "start":
			cfg.Scan.Start = f.Start
		case "stop":
			cfg.Scan.Stop = f.Stop
		case "align":
			cfg.Scan.Alignment = f.Alignment
		case "next":
			cfg.Scan.NextOffset = f.NextOffset
		case "raw":
			cfg.Scan.RawSectors = f.RawSectors
		case "workers":
			cfg.Scan.Workers = f.Workers
		case "formats":
			cfg.Scan.Formats = splitList(f.Formats)
		case "log":
			cfg.Logging.LogFile = f.LogFile
		case "strict":
			cfg.Limits.Strict = f.Strict
		case "export":
			cfg.Export.Dir = f.ExportDir
		case "image":
			cfg.Export.Format = f.Image
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
