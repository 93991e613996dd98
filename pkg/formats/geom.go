package formats

import (
	"fmt"
	"os"

	"github.com/Faultbox/simgeom/pkg/cursor"
	"github.com/Faultbox/simgeom/pkg/encoding"
)

// GEOM chunk constants.
const (
	GEOMTag     = "GEOM"
	MTNFTag     = "MTNF"
	GEOMVersion = 5

	// rcolPrefixSize is the constant leading block of every RCOL resource.
	rcolPrefixSize = 12
)

// rcolPrefix is written at the start of every encoded resource.
var rcolPrefix = []byte{0x03, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// NoEmbeddedShader is the EmbeddedID of a GEOM without an MTNF block.
const NoEmbeddedShader = "0x0"

// NameResolver maps stored name hashes back to names. A nil resolver
// yields "0xNNNNNNNN" literals.
type NameResolver interface {
	ResolveBone(hash uint32) (string, error)
	ResolveShader(hash uint32) (string, error)
}

// Face is a triangle of vertex indices.
type Face [3]uint32

// ChunkLocation is one entry of the RCOL chunk location table.
type ChunkLocation struct {
	Position uint32 `json:"position" yaml:"position"`
	Size     uint32 `json:"size" yaml:"size"`
}

// GEOM is a decoded mesh resource.
//
// EmbeddedID and Bones hold names that are hashed on encode. A name spelled
// as a "0x" hex literal is reserved for an unresolved hash and is written
// back as that value, not hashed.
type GEOM struct {
	InternalChunks    []ResourceKey     `json:"internal_chunks" yaml:"internal_chunks"`
	ExternalResources []ResourceKey     `json:"external_resources" yaml:"external_resources"`
	InternalLocations []ChunkLocation   `json:"internal_locations,omitempty" yaml:"internal_locations,omitempty"`
	EmbeddedID        string            `json:"embedded_id" yaml:"embedded_id"`
	ShaderData        []ShaderParameter `json:"shader_data,omitempty" yaml:"shader_data,omitempty"`
	MergeGroup        uint32            `json:"merge_group" yaml:"merge_group"`
	SortOrder         uint32            `json:"sort_order" yaml:"sort_order"`
	Vertices          []Vertex          `json:"element_data" yaml:"element_data"`
	Faces             []Face            `json:"faces" yaml:"faces"`
	SkinController    uint32            `json:"skin_controller_index" yaml:"skin_controller_index"`
	Bones             []string          `json:"bones" yaml:"bones"`
	TGIList           []ResourceKey     `json:"tgi_list" yaml:"tgi_list"`
}

// HasShader reports whether the GEOM carries an embedded MTNF block.
func (g *GEOM) HasShader() bool {
	return g.EmbeddedID != "" && g.EmbeddedID != NoEmbeddedShader
}

// UVChannels returns the number of UV channels per vertex.
func (g *GEOM) UVChannels() int {
	if len(g.Vertices) == 0 {
		return 0
	}
	return len(g.Vertices[0].UV)
}

// GEOMReader decodes GEOM resources.
type GEOMReader struct {
	// Names resolves bone and shader hashes. Nil keeps hex literals.
	Names NameResolver
	// Strict validates chunk tags, the GEOM version, the TGI offset and
	// face data instead of trusting them.
	Strict bool
}

// ParseGEOM decodes a GEOM resource permissively.
func ParseGEOM(data []byte, names NameResolver) (*GEOM, error) {
	return (&GEOMReader{Names: names}).Parse(data)
}

// ParseGEOMFile reads and decodes a GEOM resource from disk.
func ParseGEOMFile(path string, names NameResolver) (*GEOM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GEOM file: %w", err)
	}
	return ParseGEOM(data, names)
}

// Parse decodes one GEOM resource. No partial document is returned on error.
func (gr *GEOMReader) Parse(data []byte) (*GEOM, error) {
	r := cursor.NewReader(data)
	g := &GEOM{}

	if err := r.Skip(rcolPrefixSize); err != nil {
		return nil, fmt.Errorf("reading RCOL prefix: %w", err)
	}
	if err := gr.readHeader(r, g); err != nil {
		return nil, fmt.Errorf("reading RCOL header: %w", err)
	}

	tagOffset := r.Tell()
	tgiEnd, err := gr.readChunkHeader(r, g)
	if err != nil {
		return nil, fmt.Errorf("reading GEOM header: %w", err)
	}
	if err := gr.readShader(r, g); err != nil {
		return nil, fmt.Errorf("reading MTNF block: %w", err)
	}
	if err := gr.readVertices(r, g); err != nil {
		return nil, fmt.Errorf("reading vertices: %w", err)
	}
	if err := gr.readFaces(r, g); err != nil {
		return nil, fmt.Errorf("reading faces: %w", err)
	}
	if err := gr.readBones(r, g); err != nil {
		return nil, fmt.Errorf("reading bones: %w", err)
	}

	if gr.Strict {
		if r.Tell() != tgiEnd {
			return nil, fmt.Errorf("%w: TGI table at %d, header says %d", ErrCorruptOffset, r.Tell(), tgiEnd)
		}
		if len(g.InternalLocations) == 1 && int(g.InternalLocations[0].Position) != tagOffset {
			return nil, fmt.Errorf("%w: GEOM chunk at %d, location table says %d",
				ErrCorruptOffset, tagOffset, g.InternalLocations[0].Position)
		}
	}
	if err := gr.readTGIList(r, g); err != nil {
		return nil, fmt.Errorf("reading TGI list: %w", err)
	}

	return g, nil
}

func readKeys(r *cursor.Reader, count uint32, read func(*cursor.Reader) (ResourceKey, error)) ([]ResourceKey, error) {
	if uint64(count)*16 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d resource keys", ErrUnexpectedEOF, count)
	}
	keys := make([]ResourceKey, count)
	for i := range keys {
		k, err := read(r)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

func (gr *GEOMReader) readHeader(r *cursor.Reader, g *GEOM) error {
	externalCount, err := r.U32()
	if err != nil {
		return err
	}
	internalCount, err := r.U32()
	if err != nil {
		return err
	}

	if g.InternalChunks, err = readKeys(r, internalCount, readITG); err != nil {
		return err
	}
	if g.ExternalResources, err = readKeys(r, externalCount, readITG); err != nil {
		return err
	}

	g.InternalLocations = make([]ChunkLocation, internalCount)
	for i := range g.InternalLocations {
		pos, err := r.U32()
		if err != nil {
			return err
		}
		size, err := r.U32()
		if err != nil {
			return err
		}
		g.InternalLocations[i] = ChunkLocation{Position: pos, Size: size}
	}
	return nil
}

// readChunkHeader consumes the 16-byte GEOM header and returns the offset
// at which the TGI table is declared to start.
func (gr *GEOMReader) readChunkHeader(r *cursor.Reader, g *GEOM) (int, error) {
	if !gr.Strict {
		return 0, r.Skip(16)
	}

	tag, err := r.Tag()
	if err != nil {
		return 0, err
	}
	if tag != GEOMTag {
		return 0, fmt.Errorf("%w: got %q, want %q", ErrBadMagic, tag, GEOMTag)
	}
	version, err := r.U32()
	if err != nil {
		return 0, err
	}
	if version != GEOMVersion {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	tgiOffset, err := r.U32()
	if err != nil {
		return 0, err
	}
	tgiEnd := r.Tell() + int(tgiOffset)
	// TGI byte length; implied by the count.
	if _, err := r.U32(); err != nil {
		return 0, err
	}
	return tgiEnd, nil
}

func (gr *GEOMReader) readShader(r *cursor.Reader, g *GEOM) error {
	id, err := r.U32()
	if err != nil {
		return err
	}
	if id == 0 {
		g.EmbeddedID = NoEmbeddedShader
		return nil
	}
	if g.EmbeddedID, err = resolveShader(gr.Names, id); err != nil {
		return err
	}

	if gr.Strict {
		// MTNF size is recomputed on write.
		if err := r.Skip(4); err != nil {
			return err
		}
		tag, err := r.Tag()
		if err != nil {
			return err
		}
		if tag != MTNFTag {
			return fmt.Errorf("%w: got %q, want %q", ErrBadMagic, tag, MTNFTag)
		}
		if err := r.Skip(8); err != nil {
			return err
		}
	} else if err := r.Skip(16); err != nil {
		return err
	}

	count, err := r.U32()
	if err != nil {
		return err
	}
	g.ShaderData, err = readShaderParams(r, count, gr.Names)
	return err
}

func (gr *GEOMReader) readVertices(r *cursor.Reader, g *GEOM) error {
	if err := readU32s(r, &g.MergeGroup, &g.SortOrder); err != nil {
		return err
	}
	vertexCount, err := r.U32()
	if err != nil {
		return err
	}
	elementCount, err := r.U32()
	if err != nil {
		return err
	}
	if uint64(elementCount)*9 > uint64(r.Len()) {
		return fmt.Errorf("%w: %d vertex elements", ErrUnexpectedEOF, elementCount)
	}

	elements := make([]ElementType, elementCount)
	stride := 0
	for i := range elements {
		tag, err := r.U32()
		if err != nil {
			return err
		}
		e := ElementType(tag)
		if !e.Known() {
			return fmt.Errorf("%w: %d", ErrUnknownVertexElement, tag)
		}
		// Selector and width follow from the tag.
		if err := r.Skip(5); err != nil {
			return err
		}
		elements[i] = e
		stride += int(e.Width())
	}

	if uint64(vertexCount)*uint64(stride) > uint64(r.Len()) {
		return fmt.Errorf("%w: %d vertices of %d bytes", ErrUnexpectedEOF, vertexCount, stride)
	}
	g.Vertices = make([]Vertex, vertexCount)
	for i := range g.Vertices {
		v, err := readVertex(r, elements)
		if err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
		g.Vertices[i] = v
	}
	return nil
}

func (gr *GEOMReader) readFaces(r *cursor.Reader, g *GEOM) error {
	// Constant 1 and the index width byte.
	if err := r.Skip(5); err != nil {
		return err
	}
	points, err := r.U32()
	if err != nil {
		return err
	}
	if points%3 != 0 && gr.Strict {
		return fmt.Errorf("%w: %d", ErrBadFaceCount, points)
	}
	if uint64(points)*2 > uint64(r.Len()) {
		return fmt.Errorf("%w: %d face points", ErrUnexpectedEOF, points)
	}

	g.Faces = make([]Face, points/3)
	for i := range g.Faces {
		for j := 0; j < 3; j++ {
			idx, err := r.U16()
			if err != nil {
				return err
			}
			if gr.Strict && int(idx) >= len(g.Vertices) {
				return fmt.Errorf("%w: face %d index %d, %d vertices", ErrFaceIndexOutOfRange, i, idx, len(g.Vertices))
			}
			g.Faces[i][j] = uint32(idx)
		}
	}
	// Trailing partial face.
	return r.Skip(int(points%3) * 2)
}

func (gr *GEOMReader) readBones(r *cursor.Reader, g *GEOM) error {
	var err error
	if g.SkinController, err = r.U32(); err != nil {
		return err
	}
	count, err := r.U32()
	if err != nil {
		return err
	}
	if uint64(count)*4 > uint64(r.Len()) {
		return fmt.Errorf("%w: %d bones", ErrUnexpectedEOF, count)
	}

	g.Bones = make([]string, count)
	for i := range g.Bones {
		hash, err := r.U32()
		if err != nil {
			return err
		}
		if g.Bones[i], err = resolveBone(gr.Names, hash); err != nil {
			return err
		}
	}
	return nil
}

func (gr *GEOMReader) readTGIList(r *cursor.Reader, g *GEOM) error {
	count, err := r.U32()
	if err != nil {
		return err
	}
	g.TGIList, err = readKeys(r, count, readTGI)
	return err
}

func readU32s(r *cursor.Reader, dst ...*uint32) error {
	for _, d := range dst {
		v, err := r.U32()
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}

func resolveBone(names NameResolver, hash uint32) (string, error) {
	if names == nil {
		return encoding.Hex32(hash), nil
	}
	return names.ResolveBone(hash)
}

func resolveShader(names NameResolver, hash uint32) (string, error) {
	if names == nil {
		return encoding.Hex32(hash), nil
	}
	return names.ResolveShader(hash)
}
