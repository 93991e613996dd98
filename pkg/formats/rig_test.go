package formats

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type testBone struct {
	name     string
	position [3]float32
	rotation [4]float32 // x, y, z, w as stored
	parent   int32
	mirror   int32
}

// createTestRIG builds a RIG resource with unit-scale bones.
func createTestRIG(skeleton string, bones []testBone) []byte {
	buf := new(bytes.Buffer)
	le(buf, uint32(4), uint32(2)) // version
	le(buf, uint32(len(bones)))
	for i, b := range bones {
		le(buf, b.position, b.rotation, [3]float32{1, 1, 1})
		le(buf, uint32(len(b.name)))
		buf.WriteString(b.name)
		le(buf, b.mirror, b.parent, uint32(0xA0000000+i), uint32(0x3))
	}
	le(buf, uint32(len(skeleton)))
	buf.WriteString(skeleton)
	return buf.Bytes()
}

var identityRotation = [4]float32{0, 0, 0, 1}

func threeBoneRIG() []testBone {
	return []testBone{
		{name: "b__ROOT_bind__", rotation: identityRotation, parent: NoBone, mirror: NoBone},
		{name: "b__L_Thigh__", position: [3]float32{0.1, 0, 0}, rotation: identityRotation, parent: 0, mirror: 2},
		{name: "b__R_Thigh__", position: [3]float32{-0.1, 0, 0}, rotation: identityRotation, parent: 0, mirror: 1},
	}
}

func TestParseRIG_QuaternionOrder(t *testing.T) {
	data := createTestRIG("auRig", []testBone{
		{name: "b__ROOT__", rotation: [4]float32{1, 2, 3, 4}, parent: NoBone, mirror: NoBone},
	})

	rig, err := ParseRIG(data)
	if err != nil {
		t.Fatalf("ParseRIG failed: %v", err)
	}

	q := rig.Bones[0].Rotation
	if q.W != 4 || q.V != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("rotation = %v, want w=4 x=1 y=2 z=3", q)
	}
}

func TestParseRIG_Hierarchy(t *testing.T) {
	rig, err := ParseRIG(createTestRIG("auRig", threeBoneRIG()))
	if err != nil {
		t.Fatalf("ParseRIG failed: %v", err)
	}

	if rig.Name != "auRig" || rig.MajorVersion != 4 || rig.MinorVersion != 2 {
		t.Errorf("unexpected header %q %d.%d", rig.Name, rig.MajorVersion, rig.MinorVersion)
	}
	if len(rig.Bones) != 3 {
		t.Fatalf("expected 3 bones, got %d", len(rig.Bones))
	}
	for i, b := range rig.Bones {
		if int(b.ParentIndex) >= i {
			t.Errorf("bone %d has parent %d", i, b.ParentIndex)
		}
	}
	if rig.Bones[2].ParentIndex != 0 || rig.Bones[2].MirrorIndex != 1 {
		t.Errorf("bone 2 parent %d mirror %d", rig.Bones[2].ParentIndex, rig.Bones[2].MirrorIndex)
	}
	if rig.Bones[1].NameHash != 0xA0000001 || rig.Bones[1].Flags != 0x3 {
		t.Errorf("bone 1 hash %s flags %s", rig.Bones[1].NameHash, rig.Bones[1].Flags)
	}
	if got := rig.Children(0); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Children(0) = %v", got)
	}
	if rig.BoneIndex("b__R_Thigh__") != 2 || rig.BoneIndex("missing") != -1 {
		t.Error("BoneIndex lookup failed")
	}
}

func TestParseRIG_BadHierarchy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]testBone)
	}{
		{"self parent", func(b []testBone) { b[1].parent = 1 }},
		{"forward parent", func(b []testBone) { b[1].parent = 2 }},
		{"negative parent", func(b []testBone) { b[1].parent = -2 }},
		{"mirror out of range", func(b []testBone) { b[2].mirror = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bones := threeBoneRIG()
			tt.mutate(bones)
			if _, err := ParseRIG(createTestRIG("auRig", bones)); !errors.Is(err, ErrBadHierarchy) {
				t.Errorf("expected ErrBadHierarchy, got %v", err)
			}
		})
	}
}

func TestParseRIG_Truncated(t *testing.T) {
	data := createTestRIG("auRig", threeBoneRIG())
	for n := 0; n < len(data); n++ {
		if _, err := ParseRIG(data[:n]); !errors.Is(err, ErrUnexpectedEOF) {
			t.Fatalf("length %d: expected ErrUnexpectedEOF, got %v", n, err)
		}
	}
}

func TestParseRIG_InvalidName(t *testing.T) {
	data := createTestRIG("auRig", []testBone{
		{name: "ab", rotation: identityRotation, parent: NoBone, mirror: NoBone},
	})
	// Bone name follows 40 bytes of transform and its length.
	data[12+40+4] = 0xFF

	if _, err := ParseRIG(data); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestEncodeRIG_RoundTrip(t *testing.T) {
	bones := threeBoneRIG()
	bones[1].rotation = [4]float32{0.5, -0.5, 0.5, 0.5}
	data := createTestRIG("auRig", bones)

	rig, err := ParseRIG(data)
	if err != nil {
		t.Fatalf("ParseRIG failed: %v", err)
	}
	out, err := EncodeRIG(rig)
	if err != nil {
		t.Fatalf("EncodeRIG failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("encoded RIG differs\n got % x\nwant % x", out, data)
	}

	path := filepath.Join(t.TempDir(), "skeleton.rig")
	if err := WriteRIGFile(path, rig); err != nil {
		t.Fatalf("WriteRIGFile failed: %v", err)
	}
	again, err := ParseRIGFile(path)
	if err != nil {
		t.Fatalf("ParseRIGFile failed: %v", err)
	}
	if again.Bones[1].Rotation != rig.Bones[1].Rotation {
		t.Errorf("rotation changed: %v vs %v", again.Bones[1].Rotation, rig.Bones[1].Rotation)
	}
}

func TestEncodeRIG_RejectsBadHierarchy(t *testing.T) {
	rig := &RIG{Bones: []RIGBone{{Name: "a", ParentIndex: 0, MirrorIndex: NoBone}}}
	if _, err := EncodeRIG(rig); !errors.Is(err, ErrBadHierarchy) {
		t.Errorf("expected ErrBadHierarchy, got %v", err)
	}
}

func TestRIG_BindPose(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	rig := &RIG{Bones: []RIGBone{
		{Name: "root", Position: mgl32.Vec3{1, 0, 0}, Rotation: rot, Scale: mgl32.Vec3{1, 1, 1}, ParentIndex: NoBone, MirrorIndex: NoBone},
		{Name: "child", Position: mgl32.Vec3{0, 2, 0}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}, ParentIndex: 0, MirrorIndex: NoBone},
	}}

	world := rig.BindPose()
	if len(world) != 2 {
		t.Fatalf("expected 2 matrices, got %d", len(world))
	}

	root := world[0].Col(3).Vec3()
	if !vecNear(root, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("root translation = %v", root)
	}
	// The root's 90 degree turn about Z maps the child's +Y offset to -X.
	child := world[1].Col(3).Vec3()
	if !vecNear(child, mgl32.Vec3{-1, 0, 0}) {
		t.Errorf("child translation = %v", child)
	}
}

// vecNear compares with an absolute tolerance; rotated zeros come back as
// tiny non-zero values.
func vecNear(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-5
}
