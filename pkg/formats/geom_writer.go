package formats

import (
	"fmt"

	"github.com/Faultbox/simgeom/internal/fsutil"
	"github.com/Faultbox/simgeom/pkg/cursor"
	"github.com/Faultbox/simgeom/pkg/encoding"
	"github.com/Faultbox/simgeom/pkg/namemap"
)

// maxFaceIndex is the largest index the 16-bit face stream can hold.
const maxFaceIndex = 0xFFFF

// Layout returns the vertex layout shared by every vertex.
func (g *GEOM) Layout() (VertexLayout, error) {
	if len(g.Vertices) == 0 {
		return VertexLayout{}, ErrEmptyVertexData
	}
	layout := g.Vertices[0].Layout()
	for i := 1; i < len(g.Vertices); i++ {
		if l := g.Vertices[i].Layout(); l != layout {
			return VertexLayout{}, fmt.Errorf("%w: vertex %d has %s, vertex 0 has %s",
				ErrInconsistentVertexLayout, i, l, layout)
		}
	}
	return layout, nil
}

// Validate runs the structural checks EncodeGEOM performs before writing.
func (g *GEOM) Validate() error {
	layout, err := g.Layout()
	if err != nil {
		return err
	}
	if len(g.InternalChunks) != 1 {
		return fmt.Errorf("%w: got %d", ErrUnsupportedChunkCount, len(g.InternalChunks))
	}

	for i, f := range g.Faces {
		for _, idx := range f {
			if idx > maxFaceIndex {
				return fmt.Errorf("%w: face %d index %d", ErrIndexOverflow, i, idx)
			}
			if int(idx) >= len(g.Vertices) {
				return fmt.Errorf("%w: face %d index %d, %d vertices", ErrFaceIndexOutOfRange, i, idx, len(g.Vertices))
			}
		}
	}

	if layout.Assignment {
		for i := range g.Vertices {
			v := &g.Vertices[i]
			for slot, bone := range v.Assignment {
				if int(bone) < len(g.Bones) {
					continue
				}
				// Zero-weight slots carry no assignment.
				if v.Weights != nil && v.Weights[slot] == 0 {
					continue
				}
				return fmt.Errorf("%w: vertex %d slot %d bone %d, %d bones",
					ErrBoneIndexOutOfRange, i, slot, bone, len(g.Bones))
			}
		}
	}

	if g.HasShader() {
		for i := range g.ShaderData {
			if err := validateShaderParam(&g.ShaderData[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeGEOM serializes g. Size and offset fields are written as
// placeholders and patched once the data they describe has been written.
func EncodeGEOM(g *GEOM) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	layout, _ := g.Layout()
	elements := layout.Elements()

	w := cursor.NewWriterWithPrefix(rcolPrefix)

	// RCOL header.
	w.U32(uint32(len(g.ExternalResources)))
	w.U32(uint32(len(g.InternalChunks)))
	for _, k := range g.InternalChunks {
		writeITG(w, k)
	}
	for _, k := range g.ExternalResources {
		writeITG(w, k)
	}
	// Chunk location: the GEOM tag follows the position and size fields.
	w.U32(uint32(w.Len() + 8))
	chunkSizeOff := w.Reserve()

	// GEOM header.
	w.Tag(GEOMTag)
	w.U32(GEOMVersion)
	tgiOff := w.Reserve()
	w.U32(uint32(4 + len(g.TGIList)*16))

	if g.HasShader() {
		w.U32(nameHash(g.EmbeddedID))
		if err := writeMTNF(w, g.ShaderData); err != nil {
			return nil, err
		}
	} else {
		w.U32(0)
	}

	w.U32(g.MergeGroup)
	w.U32(g.SortOrder)
	w.U32(uint32(len(g.Vertices)))

	w.U32(uint32(len(elements)))
	for _, e := range elements {
		w.U32(uint32(e))
		w.U32(e.selector())
		w.U8(e.Width())
	}
	for i := range g.Vertices {
		writeVertex(w, &g.Vertices[i], elements)
	}

	w.U32(1)
	w.U8(2)
	w.U32(uint32(len(g.Faces) * 3))
	for _, f := range g.Faces {
		for _, idx := range f {
			w.U16(uint16(idx))
		}
	}

	w.U32(g.SkinController)
	w.U32(uint32(len(g.Bones)))
	for _, b := range g.Bones {
		w.U32(nameHash(b))
	}

	if err := w.PatchLengthFrom(tgiOff); err != nil {
		return nil, err
	}
	w.U32(uint32(len(g.TGIList)))
	for _, k := range g.TGIList {
		writeTGI(w, k)
	}

	if err := w.PatchLengthFrom(chunkSizeOff); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// WriteGEOMFile encodes g and atomically replaces path with the result.
func WriteGEOMFile(path string, g *GEOM) error {
	data, err := EncodeGEOM(g)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// nameHash returns the stored hash for a name. Names kept as hex literals
// because they could not be resolved are written back unchanged.
func nameHash(name string) uint32 {
	if v, ok := encoding.HexLiteral(name); ok {
		return v
	}
	return namemap.Hash32(name)
}
