// Package namemap resolves the 32-bit name hashes stored in GEOM and RIG
// resources back to readable bone and shader-parameter names.
package namemap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/simgeom/internal/fsutil"
	"github.com/Faultbox/simgeom/pkg/encoding"
)

// Table holds the two independent hash namespaces.
type Table struct {
	Bones  map[uint32]string
	Shader map[uint32]string
}

// tableFile is the persisted form: zero-padded hex keys mapped to names.
type tableFile struct {
	Bones  map[string]string `json:"bones" yaml:"bones" toml:"bones"`
	Shader map[string]string `json:"shader" yaml:"shader" toml:"shader"`
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		Bones:  make(map[uint32]string),
		Shader: make(map[uint32]string),
	}
}

// FromNames builds a table by hashing every bone and shader name.
func FromNames(bones, shader []string) *Table {
	t := NewTable()
	for _, name := range bones {
		t.Bones[Hash32(name)] = name
	}
	for _, name := range shader {
		t.Shader[Hash32(name)] = name
	}
	return t
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable()
	for k, v := range t.Bones {
		c.Bones[k] = v
	}
	for k, v := range t.Shader {
		c.Shader[k] = v
	}
	return c
}

// Merge copies every entry of other into t, overwriting existing hashes.
func (t *Table) Merge(other *Table) {
	for k, v := range other.Bones {
		t.Bones[k] = v
	}
	for k, v := range other.Shader {
		t.Shader[k] = v
	}
}

// Len returns the total number of entries.
func (t *Table) Len() int {
	return len(t.Bones) + len(t.Shader)
}

// Format selects the persisted table encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

// FormatFor picks the table encoding from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Load reads a table from path. The encoding is picked from the extension:
// .yaml/.yml, .toml, anything else is JSON.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading name table %s", path)
	}
	t, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding name table %s", path)
	}
	return t, nil
}

// Decode parses persisted table bytes in the given format.
func Decode(data []byte, format Format) (*Table, error) {
	var f tableFile
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatTOML:
		err = toml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, err
	}

	t := NewTable()
	if err := decodeSection(f.Bones, t.Bones); err != nil {
		return nil, errors.Wrap(err, "bones")
	}
	if err := decodeSection(f.Shader, t.Shader); err != nil {
		return nil, errors.Wrap(err, "shader")
	}
	return t, nil
}

func decodeSection(in map[string]string, out map[uint32]string) error {
	for key, name := range in {
		h, err := encoding.ParseUint(key, 32)
		if err != nil {
			return errors.Wrapf(err, "invalid hash key %q", key)
		}
		out[uint32(h)] = name
	}
	return nil
}

// Encode serializes the table in the given format.
func (t *Table) Encode(format Format) ([]byte, error) {
	f := tableFile{
		Bones:  encodeSection(t.Bones),
		Shader: encodeSection(t.Shader),
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(&f)
	case FormatTOML:
		return toml.Marshal(&f)
	default:
		return json.MarshalIndent(&f, "", "    ")
	}
}

func encodeSection(in map[uint32]string) map[string]string {
	out := make(map[string]string, len(in))
	for h, name := range in {
		out[encoding.Hex32(h)] = name
	}
	return out
}

// Save writes the table to path, replacing any existing file atomically.
func (t *Table) Save(path string) error {
	data, err := t.Encode(FormatFor(path))
	if err != nil {
		return errors.Wrap(err, "encoding name table")
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}
