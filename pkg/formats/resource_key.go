package formats

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/simgeom/pkg/cursor"
	"github.com/Faultbox/simgeom/pkg/encoding"
)

// ResourceKey identifies a game resource by type, group and instance.
// The same key is stored instance-first (ITG) in the RCOL header and
// type-first (TGI) in the GEOM trailer.
type ResourceKey struct {
	Type     uint32
	Group    uint32
	Instance uint64
}

// String returns "0xTTTTTTTT:0xGGGGGGGG:0xIIIIIIIIIIIIIIII".
func (k ResourceKey) String() string {
	return fmt.Sprintf("%s:%s:%s",
		encoding.PaddedHex(uint64(k.Type), 4),
		encoding.PaddedHex(uint64(k.Group), 4),
		encoding.PaddedHex(k.Instance, 8))
}

// ParseResourceKey builds a key from integer literals such as "0x015A1849".
func ParseResourceKey(typ, group, instance string) (ResourceKey, error) {
	t, err := encoding.ParseUint(typ, 32)
	if err != nil {
		return ResourceKey{}, fmt.Errorf("resource type: %w", err)
	}
	g, err := encoding.ParseUint(group, 32)
	if err != nil {
		return ResourceKey{}, fmt.Errorf("resource group: %w", err)
	}
	i, err := encoding.ParseUint(instance, 64)
	if err != nil {
		return ResourceKey{}, fmt.Errorf("resource instance: %w", err)
	}
	return ResourceKey{Type: uint32(t), Group: uint32(g), Instance: i}, nil
}

// resourceKeyText is the hex-string form used in dumps and documents
// edited by hand.
type resourceKeyText struct {
	Type     string `json:"type" yaml:"type"`
	Group    string `json:"group" yaml:"group"`
	Instance string `json:"instance" yaml:"instance"`
}

func (k ResourceKey) text() resourceKeyText {
	return resourceKeyText{
		Type:     encoding.PaddedHex(uint64(k.Type), 4),
		Group:    encoding.PaddedHex(uint64(k.Group), 4),
		Instance: encoding.PaddedHex(k.Instance, 8),
	}
}

// MarshalJSON encodes the key as hex strings.
func (k ResourceKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.text())
}

// UnmarshalJSON accepts any base-prefixed integer literal per field.
func (k *ResourceKey) UnmarshalJSON(data []byte) error {
	var t resourceKeyText
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	parsed, err := ParseResourceKey(t.Type, t.Group, t.Instance)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML encodes the key as hex strings.
func (k ResourceKey) MarshalYAML() (interface{}, error) {
	return k.text(), nil
}

// UnmarshalYAML accepts any base-prefixed integer literal per field.
func (k *ResourceKey) UnmarshalYAML(node *yaml.Node) error {
	var t resourceKeyText
	if err := node.Decode(&t); err != nil {
		return err
	}
	parsed, err := ParseResourceKey(t.Type, t.Group, t.Instance)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func readITG(r *cursor.Reader) (ResourceKey, error) {
	var k ResourceKey
	var err error
	if k.Instance, err = r.U64(); err != nil {
		return k, err
	}
	if k.Type, err = r.U32(); err != nil {
		return k, err
	}
	k.Group, err = r.U32()
	return k, err
}

func readTGI(r *cursor.Reader) (ResourceKey, error) {
	var k ResourceKey
	var err error
	if k.Type, err = r.U32(); err != nil {
		return k, err
	}
	if k.Group, err = r.U32(); err != nil {
		return k, err
	}
	k.Instance, err = r.U64()
	return k, err
}

func writeITG(w *cursor.Writer, k ResourceKey) {
	w.U64(k.Instance)
	w.U32(k.Type)
	w.U32(k.Group)
}

func writeTGI(w *cursor.Writer, k ResourceKey) {
	w.U32(k.Type)
	w.U32(k.Group)
	w.U64(k.Instance)
}

// HexUint32 is a 32-bit value rendered as "0xNNNNNNNN" in JSON and YAML.
type HexUint32 uint32

// String returns the padded hex form.
func (h HexUint32) String() string {
	return encoding.Hex32(uint32(h))
}

// MarshalJSON encodes the value as a hex string.
func (h HexUint32) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON accepts a base-prefixed string or a bare number.
func (h *HexUint32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint32
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*h = HexUint32(n)
		return nil
	}
	v, err := encoding.ParseUint(s, 32)
	if err != nil {
		return err
	}
	*h = HexUint32(v)
	return nil
}

// MarshalYAML encodes the value as a hex string.
func (h HexUint32) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

// UnmarshalYAML accepts any base-prefixed integer literal.
func (h *HexUint32) UnmarshalYAML(node *yaml.Node) error {
	v, err := encoding.ParseUint(node.Value, 32)
	if err != nil {
		return err
	}
	*h = HexUint32(v)
	return nil
}
