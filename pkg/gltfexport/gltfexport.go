// Package gltfexport converts decoded GEOM meshes and RIG skeletons into
// glTF 2.0 documents.
package gltfexport

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/simgeom/pkg/encoding"
	"github.com/Faultbox/simgeom/pkg/formats"
	"github.com/Faultbox/simgeom/pkg/namemap"
)

// ErrMissingJoint is returned when a GEOM bone has no matching rig bone.
var ErrMissingJoint = errors.New("GEOM bone not found in rig")

// Export builds a document with one mesh for geom. When rig is non-nil the
// rig bones become nodes and the mesh is skinned to them; joint indices
// follow geom's bone list.
func Export(geom *formats.GEOM, rig *formats.RIG) (*gltf.Document, error) {
	layout, err := geom.Layout()
	if err != nil {
		return nil, err
	}

	doc := gltf.NewDocument()
	attributes := writeAttributes(doc, geom, layout, rig != nil)

	indices := make([]uint32, 0, len(geom.Faces)*3)
	for _, f := range geom.Faces {
		indices = append(indices, f[0], f[1], f[2])
	}

	name := "geom"
	if geom.HasShader() {
		name = geom.EmbeddedID
	}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        name,
		DoubleSided: true,
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: attributes,
			Material:   gltf.Index(0),
		}},
	})

	meshNode := &gltf.Node{Name: name, Mesh: gltf.Index(0)}
	if rig != nil {
		skin, err := exportSkin(doc, geom, rig)
		if err != nil {
			return nil, err
		}
		meshNode.Skin = gltf.Index(skin)
	}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, meshNode)

	return doc, nil
}

func writeAttributes(doc *gltf.Document, geom *formats.GEOM, layout formats.VertexLayout, skinned bool) map[string]uint32 {
	n := len(geom.Vertices)
	attributes := make(map[string]uint32)

	if layout.Position {
		positions := make([][3]float32, n)
		for i := range geom.Vertices {
			positions[i] = *geom.Vertices[i].Position
		}
		attributes["POSITION"] = modeler.WritePosition(doc, positions)
	}

	if layout.Normal {
		normals := make([][3]float32, n)
		for i := range geom.Vertices {
			normal := *geom.Vertices[i].Normal
			if normal.Len() > 0.5 {
				normal = normal.Normalize()
			}
			normals[i] = normal
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}

	if layout.Tangent && layout.Normal {
		tangents := make([][4]float32, n)
		for i := range geom.Vertices {
			tangents[i] = tangent(*geom.Vertices[i].Tangent)
		}
		attributes["TANGENT"] = modeler.WriteTangent(doc, tangents)
	}

	for layer := 0; layer < layout.UVChannels; layer++ {
		uvs := make([][2]float32, n)
		for i := range geom.Vertices {
			uvs[i] = geom.Vertices[i].UV[layer]
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", layer)] = modeler.WriteTextureCoord(doc, uvs)
	}

	if layout.TagValue {
		colors := make([][4]uint8, n)
		for i := range geom.Vertices {
			colors[i] = *geom.Vertices[i].TagValue
		}
		attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
	}

	if skinned && layout.Assignment && layout.Weights {
		joints := make([][4]uint8, n)
		weights := make([][4]float32, n)
		for i := range geom.Vertices {
			v := &geom.Vertices[i]
			weights[i] = *v.Weights
			joints[i] = *v.Assignment
			for slot, w := range weights[i] {
				if w == 0 {
					joints[i][slot] = 0
				}
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}

	return attributes
}

// tangent returns t as a unit glTF tangent with handedness 1. A zero
// tangent stays zero.
func tangent(t mgl32.Vec3) [4]float32 {
	if t.Len() > 0 {
		t = t.Normalize()
	}
	return t.Vec4(1)
}

// exportSkin adds one node per rig bone and a skin over geom's bones.
func exportSkin(doc *gltf.Document, geom *formats.GEOM, rig *formats.RIG) (uint32, error) {
	base := uint32(len(doc.Nodes))
	for i := range rig.Bones {
		b := &rig.Bones[i]
		node := &gltf.Node{
			Name:        b.Name,
			Translation: b.Position,
			Rotation:    b.Rotation.V.Vec4(b.Rotation.W),
			Scale:       b.Scale,
		}
		for _, c := range rig.Children(i) {
			node.Children = append(node.Children, base+uint32(c))
		}
		if b.IsRoot() {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, base+uint32(i))
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	world := rig.BindPose()
	joints := make([]uint32, len(geom.Bones))
	inverseBind := make([][4][4]float32, len(geom.Bones))
	for i, name := range geom.Bones {
		idx := findBone(rig, name)
		if idx < 0 {
			return 0, fmt.Errorf("%w: %s", ErrMissingJoint, name)
		}
		joints[i] = base + uint32(idx)
		inverseBind[i] = columns(world[idx].Inv())
	}

	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:                rig.Name,
		Joints:              joints,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, inverseBind)),
	})
	return uint32(len(doc.Skins) - 1), nil
}

// findBone matches a GEOM bone to a rig bone by name, or by hash when the
// GEOM name is an unresolved hex literal.
func findBone(rig *formats.RIG, name string) int {
	if idx := rig.BoneIndex(name); idx >= 0 {
		return idx
	}
	hash, ok := encoding.HexLiteral(name)
	if !ok {
		return -1
	}
	for i := range rig.Bones {
		if namemap.Hash32(rig.Bones[i].Name) == hash {
			return i
		}
	}
	return -1
}

func columns(m mgl32.Mat4) [4][4]float32 {
	var out [4][4]float32
	for c := 0; c < 4; c++ {
		out[c] = m.Col(c)
	}
	return out
}

// WriteBinary encodes doc as GLB.
func WriteBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
