// Package formats provides scanner decoders for PlayStation asset formats.
package formats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Faultbox/psxscan/pkg/limits"
	"github.com/Faultbox/psxscan/pkg/scan"
)

// Info describes a registered format.
type Info struct {
	Name        string
	Description string
	New         func(limits.Limits) scan.Decoder
}

var registry = map[string]Info{
	"TMD": {
		Name:        "TMD",
		Description: "PSX model: vertices, normals and polygon primitives",
		New:         func(l limits.Limits) scan.Decoder { return NewTMDDecoder(l) },
	},
	"TIM": {
		Name:        "TIM",
		Description: "PSX texture image with optional CLUT",
		New:         func(l limits.Limits) scan.Decoder { return NewTIMDecoder(l) },
	},
	"HMD": {
		Name:        "HMD",
		Description: "hierarchical model container with textures and animation",
		New:         func(l limits.Limits) scan.Decoder { return NewHMDDecoder(l) },
	},
}

// All returns every registered format, sorted by name.
func All() []Info {
	out := make([]Info, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the format registered under name, ignoring case.
func Lookup(name string) (Info, bool) {
	info, ok := registry[strings.ToUpper(name)]
	return info, ok
}

// Decoders builds a decoder for each name. An empty list selects every
// format.
func Decoders(names []string, lim limits.Limits) ([]scan.Decoder, error) {
	if len(names) == 0 {
		var all []scan.Decoder
		for _, info := range All() {
			all = append(all, info.New(lim))
		}
		return all, nil
	}
	decoders := make([]scan.Decoder, 0, len(names))
	for _, name := range names {
		info, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", name)
		}
		decoders = append(decoders, info.New(lim))
	}
	return decoders, nil
}
