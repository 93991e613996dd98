// Package inspect renders decoded documents for people: YAML, JSON or a
// go-spew structure dump.
package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"
)

// Format selects a dump encoding.
type Format string

// Dump formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatSpew Format = "spew"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
}

// ParseFormat validates a format name. Empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatSpew:
		return FormatSpew, nil
	default:
		return "", fmt.Errorf("unknown dump format %q (want yaml, json or spew)", s)
	}
}

// FormatFor picks a format from a file extension, defaulting to YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Dump writes v to w in the given format.
func Dump(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatSpew:
		spewConfig.Fdump(w, v)
		return nil
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown dump format %q", format)
	}
}

// Load decodes a YAML or JSON dump into v. Spew dumps cannot be loaded.
func Load(r io.Reader, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		return json.NewDecoder(r).Decode(v)
	case FormatYAML, "":
		return yaml.NewDecoder(r).Decode(v)
	default:
		return fmt.Errorf("cannot load %s dumps", format)
	}
}
