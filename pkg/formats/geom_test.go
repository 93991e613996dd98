package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simgeom/pkg/namemap"
)

// geomFixture describes a synthetic GEOM resource for createTestGEOM.
type geomFixture struct {
	tag        string
	version    uint32
	shaderID   uint32
	mtnf       []byte // bytes following the shader id when shaderID != 0
	elements   []ElementType
	vertices   [][]byte
	facePoints []uint16
	bones      []uint32
	tgis       []ResourceKey
}

func le(buf *bytes.Buffer, vs ...interface{}) {
	for _, v := range vs {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

// createTestGEOM builds a GEOM resource with one internal chunk and
// correct size and offset fields.
func createTestGEOM(f geomFixture) []byte {
	if f.tag == "" {
		f.tag = GEOMTag
	}
	if f.version == 0 {
		f.version = GEOMVersion
	}

	// GEOM body between the TGI size field and the TGI count.
	body := new(bytes.Buffer)
	le(body, f.shaderID)
	body.Write(f.mtnf)
	le(body, uint32(0), uint32(0)) // merge group, sort order
	le(body, uint32(len(f.vertices)), uint32(len(f.elements)))
	for _, e := range f.elements {
		le(body, uint32(e), e.selector(), e.Width())
	}
	for _, v := range f.vertices {
		body.Write(v)
	}
	le(body, uint32(1), uint8(2), uint32(len(f.facePoints)))
	for _, p := range f.facePoints {
		le(body, p)
	}
	le(body, uint32(0), uint32(len(f.bones)))
	for _, b := range f.bones {
		le(body, b)
	}

	tgi := new(bytes.Buffer)
	le(tgi, uint32(len(f.tgis)))
	for _, k := range f.tgis {
		le(tgi, k.Type, k.Group, k.Instance)
	}

	buf := new(bytes.Buffer)
	buf.Write(rcolPrefix)
	le(buf, uint32(0), uint32(1))                      // external, internal counts
	le(buf, uint64(0x1122), uint32(0x015A1849), uint32(0)) // internal chunk, ITG
	chunkSize := 16 + body.Len() + tgi.Len()
	le(buf, uint32(buf.Len()+8), uint32(chunkSize))
	buf.WriteString(f.tag)
	le(buf, f.version, uint32(4+body.Len()), uint32(4+len(f.tgis)*16))
	buf.Write(body.Bytes())
	buf.Write(tgi.Bytes())
	return buf.Bytes()
}

func positionVertex(x, y, z float32) []byte {
	buf := new(bytes.Buffer)
	le(buf, x, y, z)
	return buf.Bytes()
}

func triangleFixture() geomFixture {
	return geomFixture{
		elements: []ElementType{ElementPosition},
		vertices: [][]byte{
			positionVertex(0, 0, 0),
			positionVertex(1, 0, 0),
			positionVertex(0, 1, 0),
		},
		facePoints: []uint16{0, 1, 2},
		tgis:       []ResourceKey{{Type: 0x00B2D882, Group: 0, Instance: 0xAABBCCDD00112233}},
	}
}

func TestParseGEOM_Triangle(t *testing.T) {
	data := createTestGEOM(triangleFixture())

	g, err := (&GEOMReader{Strict: true}).Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(g.InternalChunks) != 1 || g.InternalChunks[0].Type != 0x015A1849 || g.InternalChunks[0].Instance != 0x1122 {
		t.Errorf("unexpected internal chunks: %v", g.InternalChunks)
	}
	if len(g.ExternalResources) != 0 {
		t.Errorf("expected no external resources, got %d", len(g.ExternalResources))
	}
	if len(g.InternalLocations) != 1 || g.InternalLocations[0].Position != 44 {
		t.Errorf("unexpected chunk locations: %v", g.InternalLocations)
	}
	if g.EmbeddedID != NoEmbeddedShader || g.HasShader() {
		t.Errorf("expected no shader, got %q", g.EmbeddedID)
	}
	if len(g.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(g.Vertices))
	}
	if *g.Vertices[1].Position != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("vertex 1 position = %v", *g.Vertices[1].Position)
	}
	if g.Vertices[0].Normal != nil || g.Vertices[0].UV != nil {
		t.Error("expected only positions")
	}
	if len(g.Faces) != 1 || g.Faces[0] != (Face{0, 1, 2}) {
		t.Errorf("unexpected faces: %v", g.Faces)
	}
	if len(g.TGIList) != 1 || g.TGIList[0].Instance != 0xAABBCCDD00112233 || g.TGIList[0].Type != 0x00B2D882 {
		t.Errorf("unexpected TGI list: %v", g.TGIList)
	}
}

func TestParseGEOM_UnknownElement(t *testing.T) {
	f := triangleFixture()
	f.elements = []ElementType{ElementPosition, ElementType(99)}

	_, err := ParseGEOM(createTestGEOM(f), nil)
	if !errors.Is(err, ErrUnknownVertexElement) {
		t.Errorf("expected ErrUnknownVertexElement, got %v", err)
	}
}

func TestParseGEOM_Truncated(t *testing.T) {
	data := createTestGEOM(triangleFixture())

	for n := 0; n < len(data); n++ {
		g, err := ParseGEOM(data[:n], nil)
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Fatalf("length %d: expected ErrUnexpectedEOF, got %v", n, err)
		}
		if g != nil {
			t.Fatalf("length %d: partial document returned", n)
		}
	}
}

func TestParseGEOM_MultipleUVs(t *testing.T) {
	f := triangleFixture()
	f.elements = []ElementType{ElementPosition, ElementUV, ElementUV}
	for i := range f.vertices {
		buf := new(bytes.Buffer)
		le(buf, float32(i), float32(0), float32(0))
		le(buf, float32(0.25), float32(0.5)) // channel 0
		le(buf, float32(0.75), float32(1))   // channel 1
		f.vertices[i] = buf.Bytes()
	}

	g, err := ParseGEOM(createTestGEOM(f), nil)
	if err != nil {
		t.Fatalf("ParseGEOM failed: %v", err)
	}
	if g.UVChannels() != 2 {
		t.Fatalf("expected 2 UV channels, got %d", g.UVChannels())
	}
	uv := g.Vertices[2].UV
	if uv[0] != (mgl32.Vec2{0.25, 0.5}) || uv[1] != (mgl32.Vec2{0.75, 1}) {
		t.Errorf("unexpected UVs: %v", uv)
	}
	if g.Vertices[2].Position.X() != 2 {
		t.Errorf("vertex 2 position = %v", *g.Vertices[2].Position)
	}
}

func TestParseGEOM_AllElements(t *testing.T) {
	f := triangleFixture()
	f.elements = []ElementType{
		ElementVertexID, ElementPosition, ElementNormal, ElementUV, ElementAssignment,
		ElementWeights, ElementTangent, ElementTagValue,
	}
	for i := range f.vertices {
		buf := new(bytes.Buffer)
		le(buf, uint32(100+i))
		le(buf, float32(1), float32(2), float32(3))
		le(buf, float32(0), float32(1), float32(0))
		le(buf, float32(0.5), float32(0.5))
		le(buf, [4]uint8{0, 1, 0, 0})
		le(buf, [4]float32{0.75, 0.25, 0, 0})
		le(buf, float32(1), float32(0), float32(0))
		le(buf, [4]uint8{0xFF, 0x80, 0x40, 0x00})
		f.vertices[i] = buf.Bytes()
	}
	f.bones = []uint32{namemap.Hash32("b__ROOT_bind__"), namemap.Hash32("b__Pelvis__")}

	g, err := ParseGEOM(createTestGEOM(f), nil)
	if err != nil {
		t.Fatalf("ParseGEOM failed: %v", err)
	}

	v := g.Vertices[1]
	if *v.VertexID != 101 {
		t.Errorf("vertex id = %d", *v.VertexID)
	}
	if *v.Normal != (mgl32.Vec3{0, 1, 0}) || *v.Tangent != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("normal %v tangent %v", *v.Normal, *v.Tangent)
	}
	if *v.Assignment != [4]uint8{0, 1, 0, 0} || *v.Weights != (mgl32.Vec4{0.75, 0.25, 0, 0}) {
		t.Errorf("assignment %v weights %v", *v.Assignment, *v.Weights)
	}
	if *v.TagValue != [4]uint8{0xFF, 0x80, 0x40, 0x00} {
		t.Errorf("tag value %v", *v.TagValue)
	}
	if len(g.Bones) != 2 || g.Bones[0] != "0x57884BB9" || g.Bones[1] != "0x556B181A" {
		t.Errorf("expected hex bone names, got %v", g.Bones)
	}
}

// createTestMTNF builds an MTNF block: a float parameter of size 2, a
// texture index and a size-5 texture.
func createTestMTNF(raw []byte) []byte {
	buf := new(bytes.Buffer)
	le(buf, uint32(0)) // size, unchecked
	buf.WriteString(MTNFTag)
	le(buf, mtnfMarker, uint32(3))

	offset := uint32(16 + 3*16)
	le(buf, namemap.Hash32("Specular"), uint32(ShaderFloat), uint32(2), offset)
	offset += 8
	le(buf, namemap.Hash32("DiffuseMap"), uint32(ShaderTexture), uint32(4), offset)
	offset += 16
	le(buf, namemap.Hash32("NormalMap"), uint32(ShaderTexture), uint32(5), offset)

	le(buf, float32(0.5), float32(8))
	le(buf, uint32(7))
	buf.Write(make([]byte, 12))
	buf.Write(raw)
	return buf.Bytes()
}

func TestParseGEOM_ShaderBlock(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 20)
	f := triangleFixture()
	f.shaderID = namemap.Hash32("SimSkin")
	f.mtnf = createTestMTNF(raw)

	names := namemap.NewResolver(namemap.FromNames(nil,
		[]string{"SimSkin", "Specular", "DiffuseMap", "NormalMap"}))
	g, err := (&GEOMReader{Names: names, Strict: true}).Parse(createTestGEOM(f))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if g.EmbeddedID != "SimSkin" || !g.HasShader() {
		t.Errorf("expected SimSkin shader, got %q", g.EmbeddedID)
	}
	if len(g.ShaderData) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(g.ShaderData))
	}

	param := g.ShaderData[0]
	if param.Name != "Specular" || param.Type != ShaderFloat || len(param.Floats) != 2 || param.Floats[1] != 8 {
		t.Errorf("unexpected float parameter: %+v", param)
	}
	diffuse := g.ShaderData[1]
	if !diffuse.IsTextureIndex() || diffuse.Texture != 7 || diffuse.Raw != nil {
		t.Errorf("unexpected texture parameter: %+v", diffuse)
	}
	normal := g.ShaderData[2]
	if normal.Size != 5 || !bytes.Equal(normal.Raw, raw) {
		t.Errorf("unexpected size-5 texture: %+v", normal)
	}
	if len(g.Faces) != 1 {
		t.Errorf("stream misaligned after MTNF: %d faces", len(g.Faces))
	}
}

func TestGEOMReader_Strict(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*geomFixture)
		want   error
	}{
		{"bad tag", func(f *geomFixture) { f.tag = "GEOX" }, ErrBadMagic},
		{"bad version", func(f *geomFixture) { f.version = 4 }, ErrUnsupportedVersion},
		{"partial face", func(f *geomFixture) { f.facePoints = []uint16{0, 1, 2, 1} }, ErrBadFaceCount},
		{"face index", func(f *geomFixture) { f.facePoints = []uint16{0, 1, 3} }, ErrFaceIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := triangleFixture()
			tt.mutate(&f)
			data := createTestGEOM(f)

			if _, err := (&GEOMReader{Strict: true}).Parse(data); !errors.Is(err, tt.want) {
				t.Errorf("strict: expected %v, got %v", tt.want, err)
			}
			if _, err := ParseGEOM(data, nil); err != nil {
				t.Errorf("permissive: %v", err)
			}
		})
	}
}

func TestGEOMReader_StrictCorruptOffset(t *testing.T) {
	data := createTestGEOM(triangleFixture())
	// TGI offset field follows the tag and version.
	binary.LittleEndian.PutUint32(data[52:], 4)

	if _, err := (&GEOMReader{Strict: true}).Parse(data); !errors.Is(err, ErrCorruptOffset) {
		t.Errorf("expected ErrCorruptOffset, got %v", err)
	}
}

func TestGEOMReader_StrictBadMTNF(t *testing.T) {
	f := triangleFixture()
	f.shaderID = namemap.Hash32("SimSkin")
	f.mtnf = createTestMTNF(make([]byte, 20))
	copy(f.mtnf[4:], "XXXX")

	if _, err := (&GEOMReader{Strict: true}).Parse(createTestGEOM(f)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestParseGEOM_PartialFaceSkipped(t *testing.T) {
	f := triangleFixture()
	f.facePoints = []uint16{0, 1, 2, 2, 1}
	f.bones = []uint32{namemap.Hash32("b__Spine0__")}

	g, err := ParseGEOM(createTestGEOM(f), nil)
	if err != nil {
		t.Fatalf("ParseGEOM failed: %v", err)
	}
	if len(g.Faces) != 1 {
		t.Errorf("expected 1 face, got %d", len(g.Faces))
	}
	if len(g.Bones) != 1 || g.Bones[0] != "0x6FA96266" {
		t.Errorf("stream misaligned after faces: %v", g.Bones)
	}
}

func TestParseGEOM_UnsignedFaceIndices(t *testing.T) {
	f := triangleFixture()
	f.facePoints = []uint16{40000, 1, 0xFFFF}

	g, err := ParseGEOM(createTestGEOM(f), nil)
	if err != nil {
		t.Fatalf("ParseGEOM failed: %v", err)
	}
	if g.Faces[0] != (Face{40000, 1, 0xFFFF}) {
		t.Errorf("unexpected face %v", g.Faces[0])
	}
}

func TestParseGEOM_StrictNames(t *testing.T) {
	f := triangleFixture()
	f.bones = []uint32{namemap.Hash32("b__ROOT_bind__"), 0xDEADBEEF}

	names := namemap.NewResolver(namemap.FromNames([]string{"b__ROOT_bind__"}, nil),
		namemap.WithFallback(namemap.FallbackStrict))
	if _, err := ParseGEOM(createTestGEOM(f), names); !errors.Is(err, namemap.ErrUnknownHash) {
		t.Errorf("expected ErrUnknownHash, got %v", err)
	}

	g, err := ParseGEOM(createTestGEOM(f), namemap.NewResolver(namemap.FromNames([]string{"b__ROOT_bind__"}, nil)))
	if err != nil {
		t.Fatalf("ParseGEOM failed: %v", err)
	}
	if g.Bones[0] != "b__ROOT_bind__" || g.Bones[1] != "0xDEADBEEF" {
		t.Errorf("unexpected bones %v", g.Bones)
	}
}

func TestParseGEOMFile(t *testing.T) {
	if _, err := ParseGEOMFile("testdata/does-not-exist.geom", nil); err == nil {
		t.Error("expected error for missing file")
	}
}
