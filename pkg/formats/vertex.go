package formats

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simgeom/pkg/cursor"
)

// ElementType tags one per-vertex attribute in the GEOM element table.
type ElementType uint32

// Vertex element types.
const (
	ElementPosition   ElementType = 1  // 3 x float32
	ElementNormal     ElementType = 2  // 3 x float32
	ElementUV         ElementType = 3  // 2 x float32, declared once per channel
	ElementAssignment ElementType = 4  // 4 x uint8 bone indices
	ElementWeights    ElementType = 5  // 4 x float32
	ElementTangent    ElementType = 6  // 3 x float32
	ElementTagValue   ElementType = 7  // 4 x uint8
	ElementVertexID   ElementType = 10 // 1 x uint32
)

// String returns a human-readable element name.
func (e ElementType) String() string {
	switch e {
	case ElementPosition:
		return "Position"
	case ElementNormal:
		return "Normal"
	case ElementUV:
		return "UV"
	case ElementAssignment:
		return "Assignment"
	case ElementWeights:
		return "Weights"
	case ElementTangent:
		return "Tangent"
	case ElementTagValue:
		return "TagValue"
	case ElementVertexID:
		return "VertexID"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(e))
	}
}

// Known reports whether the element type has a defined width.
func (e ElementType) Known() bool {
	return e.Width() != 0
}

// Width returns the element's size in bytes, or 0 for unknown types.
func (e ElementType) Width() uint8 {
	switch e {
	case ElementPosition, ElementNormal, ElementTangent:
		return 12
	case ElementUV:
		return 8
	case ElementAssignment, ElementTagValue, ElementVertexID:
		return 4
	case ElementWeights:
		return 16
	default:
		return 0
	}
}

// selector is the second descriptor field written by the game's exporter.
func (e ElementType) selector() uint32 {
	switch e {
	case ElementAssignment:
		return 2
	case ElementTagValue:
		return 3
	case ElementVertexID:
		return 4
	default:
		return 1
	}
}

// Vertex is one mesh vertex. A nil field is absent; every vertex of a GEOM
// carries the same set of fields.
type Vertex struct {
	Position   *mgl32.Vec3  `json:"position,omitempty" yaml:"position,omitempty"`
	Normal     *mgl32.Vec3  `json:"normal,omitempty" yaml:"normal,omitempty"`
	UV         []mgl32.Vec2 `json:"uv,omitempty" yaml:"uv,omitempty"`
	Assignment *[4]uint8    `json:"assignment,omitempty" yaml:"assignment,omitempty"`
	Weights    *mgl32.Vec4  `json:"weights,omitempty" yaml:"weights,omitempty"`
	Tangent    *mgl32.Vec3  `json:"tangent,omitempty" yaml:"tangent,omitempty"`
	TagValue   *[4]uint8    `json:"tag_value,omitempty" yaml:"tag_value,omitempty"`
	VertexID   *uint32      `json:"vertex_id,omitempty" yaml:"vertex_id,omitempty"`
}

// VertexLayout is the set of fields present on a vertex.
type VertexLayout struct {
	Position   bool
	Normal     bool
	UVChannels int
	Assignment bool
	Weights    bool
	Tangent    bool
	TagValue   bool
	VertexID   bool
}

// Layout returns the fields present on v.
func (v *Vertex) Layout() VertexLayout {
	return VertexLayout{
		Position:   v.Position != nil,
		Normal:     v.Normal != nil,
		UVChannels: len(v.UV),
		Assignment: v.Assignment != nil,
		Weights:    v.Weights != nil,
		Tangent:    v.Tangent != nil,
		TagValue:   v.TagValue != nil,
		VertexID:   v.VertexID != nil,
	}
}

// Elements returns the element table for the layout in canonical order:
// position, normal, uv per channel, assignment, weights, tangent, tag value,
// vertex id.
func (l VertexLayout) Elements() []ElementType {
	var out []ElementType
	if l.Position {
		out = append(out, ElementPosition)
	}
	if l.Normal {
		out = append(out, ElementNormal)
	}
	for i := 0; i < l.UVChannels; i++ {
		out = append(out, ElementUV)
	}
	if l.Assignment {
		out = append(out, ElementAssignment)
	}
	if l.Weights {
		out = append(out, ElementWeights)
	}
	if l.Tangent {
		out = append(out, ElementTangent)
	}
	if l.TagValue {
		out = append(out, ElementTagValue)
	}
	if l.VertexID {
		out = append(out, ElementVertexID)
	}
	return out
}

// Stride returns the encoded size of one vertex in bytes.
func (l VertexLayout) Stride() int {
	n := 0
	for _, e := range l.Elements() {
		n += int(e.Width())
	}
	return n
}

// String lists the elements, e.g. "Position,Normal,UV,UV".
func (l VertexLayout) String() string {
	elems := l.Elements()
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = e.String()
	}
	return strings.Join(names, ",")
}

func readVec3(r *cursor.Reader) (*mgl32.Vec3, error) {
	var v mgl32.Vec3
	if err := r.F32s(v[:]); err != nil {
		return nil, err
	}
	return &v, nil
}

func readBytes4(r *cursor.Reader) (*[4]uint8, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return nil, err
	}
	var v [4]uint8
	copy(v[:], b)
	return &v, nil
}

// readVertex reads one vertex whose fields follow the declared element order.
func readVertex(r *cursor.Reader, elements []ElementType) (Vertex, error) {
	var v Vertex
	var err error
	for _, e := range elements {
		switch e {
		case ElementPosition:
			v.Position, err = readVec3(r)
		case ElementNormal:
			v.Normal, err = readVec3(r)
		case ElementUV:
			var uv mgl32.Vec2
			if err = r.F32s(uv[:]); err == nil {
				v.UV = append(v.UV, uv)
			}
		case ElementAssignment:
			v.Assignment, err = readBytes4(r)
		case ElementWeights:
			var w mgl32.Vec4
			if err = r.F32s(w[:]); err == nil {
				v.Weights = &w
			}
		case ElementTangent:
			v.Tangent, err = readVec3(r)
		case ElementTagValue:
			v.TagValue, err = readBytes4(r)
		case ElementVertexID:
			var id uint32
			if id, err = r.U32(); err == nil {
				v.VertexID = &id
			}
		default:
			return v, fmt.Errorf("%w: %d", ErrUnknownVertexElement, uint32(e))
		}
		if err != nil {
			return v, fmt.Errorf("reading %s: %w", e, err)
		}
	}
	return v, nil
}

// writeVertex writes v's fields in element order. UV elements consume the
// vertex's channels in order.
func writeVertex(w *cursor.Writer, v *Vertex, elements []ElementType) {
	uvChannel := 0
	for _, e := range elements {
		switch e {
		case ElementPosition:
			w.F32s(v.Position[:]...)
		case ElementNormal:
			w.F32s(v.Normal[:]...)
		case ElementUV:
			w.F32s(v.UV[uvChannel][:]...)
			uvChannel++
		case ElementAssignment:
			w.Raw(v.Assignment[:])
		case ElementWeights:
			w.F32s(v.Weights[:]...)
		case ElementTangent:
			w.F32s(v.Tangent[:]...)
		case ElementTagValue:
			w.Raw(v.TagValue[:])
		case ElementVertexID:
			w.U32(*v.VertexID)
		}
	}
}
