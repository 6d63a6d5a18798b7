// Package config handles psxscan configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/psxscan/pkg/formats"
	"github.com/Faultbox/psxscan/pkg/limits"
	"github.com/Faultbox/psxscan/pkg/scan"
	"github.com/Faultbox/psxscan/pkg/texture"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all scanner settings.
type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	Limits  limits.Limits `yaml:"limits"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ScanConfig holds the scan window and stepping shared by every input file.
type ScanConfig struct {
	Start            int64    `yaml:"start" env:"PSXSCAN_START"`
	Stop             int64    `yaml:"stop" env:"PSXSCAN_STOP"` // 0 = end of file
	Alignment        int64    `yaml:"alignment" env:"PSXSCAN_ALIGNMENT"`
	NextOffset       bool     `yaml:"next_offset" env:"PSXSCAN_NEXT_OFFSET"`
	BytesPerProgress int64    `yaml:"bytes_per_progress" env:"PSXSCAN_BYTES_PER_PROGRESS"`
	RawSectors       bool     `yaml:"raw_sectors" env:"PSXSCAN_RAW_SECTORS"` // unwrap 2352-byte sectors
	Workers          int      `yaml:"workers" env:"PSXSCAN_WORKERS"`
	Formats          []string `yaml:"formats" env:"PSXSCAN_FORMATS" envSeparator:","` // empty = all
}

// ExportConfig controls writing recovered textures to disk.
type ExportConfig struct {
	Dir    string `yaml:"dir" env:"PSXSCAN_EXPORT_DIR"` // empty disables export
	Format string `yaml:"format" env:"PSXSCAN_EXPORT_FORMAT"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" env:"PSXSCAN_LOG_LEVEL"`
	LogFile string `yaml:"log_file" env:"PSXSCAN_LOG_FILE"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Alignment:        1,
			BytesPerProgress: 1 << 20,
			Workers:          4,
		},
		Limits: limits.Default(),
		Export: ExportConfig{
			Format: texture.FormatTGA,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings no scan could run with.
func (c *Config) Validate() error {
	s := c.Scan
	switch {
	case s.Start < 0:
		return fmt.Errorf("%w: scan.start %d is negative", ErrInvalid, s.Start)
	case s.Stop < 0:
		return fmt.Errorf("%w: scan.stop %d is negative", ErrInvalid, s.Stop)
	case s.Stop != 0 && s.Stop <= s.Start:
		return fmt.Errorf("%w: scan.stop 0x%X is not after scan.start 0x%X", ErrInvalid, s.Stop, s.Start)
	case s.Alignment < 0:
		return fmt.Errorf("%w: scan.alignment %d is negative", ErrInvalid, s.Alignment)
	case s.Workers < 1:
		return fmt.Errorf("%w: scan.workers must be at least 1", ErrInvalid)
	}
	if !texture.ValidFormat(c.Export.Format) {
		return fmt.Errorf("%w: unknown image format %q", ErrInvalid, c.Export.Format)
	}
	for _, name := range s.Formats {
		if _, ok := formats.Lookup(name); !ok {
			return fmt.Errorf("%w: unknown format %q", ErrInvalid, name)
		}
	}
	return nil
}

// Options returns the scanner options for one input file.
func (s ScanConfig) Options(title string) scan.Options {
	return scan.Options{
		StartOffset:      s.Start,
		StopOffset:       s.Stop,
		NextOffset:       s.NextOffset,
		Alignment:        s.Alignment,
		BytesPerProgress: s.BytesPerProgress,
		FileTitle:        title,
	}
}
