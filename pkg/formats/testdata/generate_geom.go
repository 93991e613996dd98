//go:build ignore

// This program generates a sample GEOM and RIG pair for trying out geomtool.
// Run with: go run generate_geom.go
package main

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simgeom/pkg/formats"
)

func main() {
	// A skinned quad: two triangles, two bones, one UV channel.
	positions := []mgl32.Vec3{{-1, 0, 0}, {1, 0, 0}, {1, 2, 0}, {-1, 2, 0}}
	uvs := []mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	geom := &formats.GEOM{
		InternalChunks: []formats.ResourceKey{{Type: 0x015A1849, Instance: 0x5AD51D2F6A6B4A01}},
		EmbeddedID:     "SimSkin",
		ShaderData: []formats.ShaderParameter{
			{Name: "DiffuseMap", Type: formats.ShaderTexture, Size: 4, Texture: 0},
			{Name: "Specular", Type: formats.ShaderFloat, Size: 1, Floats: []float32{0.25}},
		},
		Bones: []string{"b__ROOT_bind__", "b__Spine0__"},
		Faces: []formats.Face{{0, 1, 2}, {0, 2, 3}},
		TGIList: []formats.ResourceKey{
			{Type: 0x00B2D882, Instance: 0x0123456789ABCDEF},
		},
	}
	for i, p := range positions {
		p := p
		normal := mgl32.Vec3{0, 0, 1}
		// Lower vertices follow the root, upper ones the spine.
		bone := uint8(i / 2)
		weights := mgl32.Vec4{1, 0, 0, 0}
		id := uint32(i + 1)
		geom.Vertices = append(geom.Vertices, formats.Vertex{
			Position:   &p,
			Normal:     &normal,
			UV:         []mgl32.Vec2{uvs[i]},
			Assignment: &[4]uint8{bone, 0, 0, 0},
			Weights:    &weights,
			VertexID:   &id,
		})
	}

	rig := &formats.RIG{
		MajorVersion: 4,
		MinorVersion: 2,
		Name:         "sample",
		Bones: []formats.RIGBone{
			{Name: "b__ROOT_bind__", Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1},
				ParentIndex: formats.NoBone, MirrorIndex: formats.NoBone},
			{Name: "b__Spine0__", Position: mgl32.Vec3{0, 1, 0}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1},
				ParentIndex: 0, MirrorIndex: formats.NoBone},
		},
	}

	if err := formats.WriteGEOMFile("sample.simgeom", geom); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := formats.WriteRIGFile("sample.rig", rig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("Generated sample.simgeom and sample.rig")
}
