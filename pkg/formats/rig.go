package formats

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/simgeom/internal/fsutil"
	"github.com/Faultbox/simgeom/pkg/cursor"
)

// NoBone marks an absent parent or mirror bone.
const NoBone int32 = -1

// RIGBone is one bone of a skeleton. Position, rotation and scale are
// relative to the parent bone.
type RIGBone struct {
	Position    mgl32.Vec3 `json:"position" yaml:"position"`
	Rotation    mgl32.Quat `json:"rotation" yaml:"rotation"`
	Scale       mgl32.Vec3 `json:"scale" yaml:"scale"`
	Name        string     `json:"name" yaml:"name"`
	MirrorIndex int32      `json:"mirror_index" yaml:"mirror_index"`
	ParentIndex int32      `json:"parent_index" yaml:"parent_index"`
	NameHash    HexUint32  `json:"name_hash" yaml:"name_hash"`
	Flags       HexUint32  `json:"flags" yaml:"flags"`
}

// IsRoot reports whether the bone has no parent.
func (b *RIGBone) IsRoot() bool {
	return b.ParentIndex == NoBone
}

// LocalMatrix returns the bone's translation * rotation * scale matrix.
func (b *RIGBone) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(b.Position.X(), b.Position.Y(), b.Position.Z())
	s := mgl32.Scale3D(b.Scale.X(), b.Scale.Y(), b.Scale.Z())
	return t.Mul4(b.Rotation.Normalize().Mat4()).Mul4(s)
}

// RIG is a decoded skeleton resource. Bones are stored parents first.
type RIG struct {
	MajorVersion uint32    `json:"major_version" yaml:"major_version"`
	MinorVersion uint32    `json:"minor_version" yaml:"minor_version"`
	Name         string    `json:"name" yaml:"name"`
	Bones        []RIGBone `json:"bones" yaml:"bones"`
}

// ParseRIG decodes a RIG resource and validates its hierarchy.
func ParseRIG(data []byte) (*RIG, error) {
	r := cursor.NewReader(data)
	rig := &RIG{}

	if err := readU32s(r, &rig.MajorVersion, &rig.MinorVersion); err != nil {
		return nil, fmt.Errorf("reading RIG version: %w", err)
	}
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("reading bone count: %w", err)
	}
	// Every bone takes at least 60 bytes.
	if uint64(count)*60 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d bones", ErrUnexpectedEOF, count)
	}

	rig.Bones = make([]RIGBone, count)
	for i := range rig.Bones {
		if err := readRIGBone(r, &rig.Bones[i]); err != nil {
			return nil, fmt.Errorf("reading bone %d: %w", i, err)
		}
	}

	if rig.Name, err = r.PrefixedString(); err != nil {
		return nil, fmt.Errorf("reading skeleton name: %w", err)
	}

	if err := rig.Validate(); err != nil {
		return nil, err
	}
	return rig, nil
}

// ParseRIGFile reads and decodes a RIG resource from disk.
func ParseRIGFile(path string) (*RIG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RIG file: %w", err)
	}
	return ParseRIG(data)
}

func readRIGBone(r *cursor.Reader, b *RIGBone) error {
	if err := r.F32s(b.Position[:]); err != nil {
		return err
	}
	// Stored x, y, z, w.
	var q [4]float32
	if err := r.F32s(q[:]); err != nil {
		return err
	}
	b.Rotation = mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
	if err := r.F32s(b.Scale[:]); err != nil {
		return err
	}

	var err error
	if b.Name, err = r.PrefixedString(); err != nil {
		return err
	}
	if b.MirrorIndex, err = r.I32(); err != nil {
		return err
	}
	if b.ParentIndex, err = r.I32(); err != nil {
		return err
	}
	hash, err := r.U32()
	if err != nil {
		return err
	}
	flags, err := r.U32()
	if err != nil {
		return err
	}
	b.NameHash, b.Flags = HexUint32(hash), HexUint32(flags)
	return nil
}

// Validate checks that every parent precedes its children and that mirror
// indices point into the bone list.
func (rig *RIG) Validate() error {
	for i := range rig.Bones {
		b := &rig.Bones[i]
		if b.ParentIndex != NoBone && (b.ParentIndex < 0 || int(b.ParentIndex) >= i) {
			return fmt.Errorf("%w: bone %d (%s) has parent %d", ErrBadHierarchy, i, b.Name, b.ParentIndex)
		}
		if b.MirrorIndex != NoBone && (b.MirrorIndex < 0 || int(b.MirrorIndex) >= len(rig.Bones)) {
			return fmt.Errorf("%w: bone %d (%s) mirrors %d", ErrBadHierarchy, i, b.Name, b.MirrorIndex)
		}
	}
	return nil
}

// BoneIndex returns the index of the named bone, or -1.
func (rig *RIG) BoneIndex(name string) int {
	for i := range rig.Bones {
		if rig.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// Children returns the indices of the direct children of bone i.
func (rig *RIG) Children(i int) []int {
	var out []int
	for j := range rig.Bones {
		if int(rig.Bones[j].ParentIndex) == i {
			out = append(out, j)
		}
	}
	return out
}

// BindPose returns the world matrix of every bone. The hierarchy must be
// valid.
func (rig *RIG) BindPose() []mgl32.Mat4 {
	world := make([]mgl32.Mat4, len(rig.Bones))
	for i := range rig.Bones {
		b := &rig.Bones[i]
		local := b.LocalMatrix()
		if b.IsRoot() {
			world[i] = local
			continue
		}
		world[i] = world[b.ParentIndex].Mul4(local)
	}
	return world
}

// EncodeRIG serializes rig, writing rotations back in x, y, z, w order.
func EncodeRIG(rig *RIG) ([]byte, error) {
	if err := rig.Validate(); err != nil {
		return nil, err
	}

	w := cursor.NewWriter()
	w.U32(rig.MajorVersion)
	w.U32(rig.MinorVersion)
	w.U32(uint32(len(rig.Bones)))
	for i := range rig.Bones {
		b := &rig.Bones[i]
		w.F32s(b.Position[:]...)
		w.F32s(b.Rotation.V[0], b.Rotation.V[1], b.Rotation.V[2], b.Rotation.W)
		w.F32s(b.Scale[:]...)
		w.PrefixedString(b.Name)
		w.I32(b.MirrorIndex)
		w.I32(b.ParentIndex)
		w.U32(uint32(b.NameHash))
		w.U32(uint32(b.Flags))
	}
	w.PrefixedString(rig.Name)
	return w.Bytes(), nil
}

// WriteRIGFile encodes rig and atomically replaces path with the result.
func WriteRIGFile(path string, rig *RIG) error {
	data, err := EncodeRIG(rig)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
