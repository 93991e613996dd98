package formats

import (
	"fmt"

	"github.com/Faultbox/simgeom/pkg/cursor"
)

// ShaderParamType is the payload type of an MTNF shader parameter.
type ShaderParamType uint32

// Shader parameter types.
const (
	ShaderFloat   ShaderParamType = 1
	ShaderInt     ShaderParamType = 2
	ShaderTexture ShaderParamType = 4
)

// String returns a human-readable type name.
func (t ShaderParamType) String() string {
	switch t {
	case ShaderFloat:
		return "Float"
	case ShaderInt:
		return "Int"
	case ShaderTexture:
		return "Texture"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(t))
	}
}

// mtnfMarker follows the MTNF tag in every observed file.
const mtnfMarker uint64 = 0x0000007400000000

// ShaderParameter is one entry of the embedded MTNF block.
//
// The payload field in use depends on Type and Size: Floats for float
// parameters, Ints for int parameters, Texture for size-4 texture
// references. Any other combination (size-5 textures, unknown types)
// keeps its Size*4 payload bytes in Raw.
type ShaderParameter struct {
	// Name is hashed on encode; "0xNNNNNNNN" literals are reserved for
	// unresolved hashes and written back as the raw value.
	Name    string          `json:"name" yaml:"name"`
	Type    ShaderParamType `json:"type" yaml:"type"`
	Size    uint32          `json:"size" yaml:"size"`
	Floats  []float32       `json:"floats,omitempty" yaml:"floats,omitempty"`
	Ints    []int32         `json:"ints,omitempty" yaml:"ints,omitempty"`
	Texture uint32          `json:"texture,omitempty" yaml:"texture,omitempty"`
	Raw     []byte          `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// IsTextureIndex reports whether the payload is a single texture index.
func (p *ShaderParameter) IsTextureIndex() bool {
	return p.Type == ShaderTexture && p.Size == 4
}

// PayloadSize returns the payload length in bytes.
func (p *ShaderParameter) PayloadSize() int {
	return int(p.Size) * 4
}

// readShaderParams reads count parameter headers followed by their payloads.
func readShaderParams(r *cursor.Reader, count uint32, names NameResolver) ([]ShaderParameter, error) {
	if uint64(count)*16 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d shader parameters", ErrUnexpectedEOF, count)
	}

	params := make([]ShaderParameter, count)
	for i := range params {
		hash, err := r.U32()
		if err != nil {
			return nil, err
		}
		name, err := resolveShader(names, hash)
		if err != nil {
			return nil, err
		}
		typ, err := r.U32()
		if err != nil {
			return nil, err
		}
		size, err := r.U32()
		if err != nil {
			return nil, err
		}
		// Payload offset; recomputed on write.
		if err := r.Skip(4); err != nil {
			return nil, err
		}
		params[i] = ShaderParameter{Name: name, Type: ShaderParamType(typ), Size: size}
	}

	for i := range params {
		if err := readShaderPayload(r, &params[i]); err != nil {
			return nil, fmt.Errorf("shader parameter %q: %w", params[i].Name, err)
		}
	}
	return params, nil
}

func readShaderPayload(r *cursor.Reader, p *ShaderParameter) error {
	n := p.PayloadSize()
	if n > r.Len() {
		return ErrUnexpectedEOF
	}

	switch {
	case p.Type == ShaderFloat:
		p.Floats = make([]float32, p.Size)
		return r.F32s(p.Floats)
	case p.Type == ShaderInt:
		p.Ints = make([]int32, p.Size)
		for i := range p.Ints {
			v, err := r.I32()
			if err != nil {
				return err
			}
			p.Ints[i] = v
		}
		return nil
	case p.IsTextureIndex():
		v, err := r.U32()
		if err != nil {
			return err
		}
		p.Texture = v
		return r.Skip(12)
	default:
		raw, err := r.Bytes(n)
		if err != nil {
			return err
		}
		p.Raw = raw
		return nil
	}
}

// validateShaderParam checks that the payload matches the declared size.
func validateShaderParam(p *ShaderParameter) error {
	switch {
	case p.Type == ShaderFloat:
		if len(p.Floats) != int(p.Size) {
			return fmt.Errorf("%w: %q has %d floats, size %d", ErrShaderParamSize, p.Name, len(p.Floats), p.Size)
		}
	case p.Type == ShaderInt:
		if len(p.Ints) != int(p.Size) {
			return fmt.Errorf("%w: %q has %d ints, size %d", ErrShaderParamSize, p.Name, len(p.Ints), p.Size)
		}
	case p.IsTextureIndex():
	default:
		if p.Raw != nil && len(p.Raw) != p.PayloadSize() {
			return fmt.Errorf("%w: %q has %d raw bytes, size %d", ErrShaderParamSize, p.Name, len(p.Raw), p.Size)
		}
	}
	return nil
}

// writeMTNF writes the MTNF block for params, starting at the size field.
// The size field is patched once the payloads are written.
func writeMTNF(w *cursor.Writer, params []ShaderParameter) error {
	sizeOff := w.Reserve()
	w.Tag("MTNF")
	w.U64(mtnfMarker)
	w.U32(uint32(len(params)))

	offset := uint32(16 + len(params)*16)
	for i := range params {
		p := &params[i]
		w.U32(nameHash(p.Name))
		w.U32(uint32(p.Type))
		w.U32(p.Size)
		w.U32(offset)
		offset += p.Size * 4
	}

	for i := range params {
		p := &params[i]
		switch {
		case p.Type == ShaderFloat:
			w.F32s(p.Floats...)
		case p.Type == ShaderInt:
			for _, v := range p.Ints {
				w.I32(v)
			}
		case p.IsTextureIndex():
			w.U32(p.Texture)
			w.Zeros(12)
		default:
			if p.Raw == nil {
				w.Zeros(p.PayloadSize())
			} else {
				w.Raw(p.Raw)
			}
		}
	}

	return w.PatchLengthFrom(sizeOff)
}
