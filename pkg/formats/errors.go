package formats

import (
	"errors"

	"github.com/Faultbox/simgeom/pkg/cursor"
)

// Errors shared by the GEOM and RIG codecs.
var (
	ErrUnexpectedEOF   = cursor.ErrUnexpectedEOF
	ErrInvalidEncoding = cursor.ErrInvalidEncoding

	ErrBadMagic             = errors.New("bad chunk tag")
	ErrUnsupportedVersion   = errors.New("unsupported chunk version")
	ErrCorruptOffset        = errors.New("chunk offset does not match contents")
	ErrUnknownVertexElement = errors.New("unknown vertex element type")
	ErrBadFaceCount         = errors.New("face point count is not a multiple of 3")
	ErrBadHierarchy         = errors.New("bad bone hierarchy")
)

// Encode-time structural errors.
var (
	ErrEmptyVertexData          = errors.New("document has no vertices")
	ErrInconsistentVertexLayout = errors.New("vertices do not share the same element layout")
	ErrIndexOverflow            = errors.New("face index exceeds 16-bit range")
	ErrFaceIndexOutOfRange      = errors.New("face index out of vertex range")
	ErrBoneIndexOutOfRange      = errors.New("bone assignment out of bone range")
	ErrUnsupportedChunkCount    = errors.New("GEOM resources carry exactly one internal chunk")
	ErrShaderParamSize          = errors.New("shader parameter payload does not match its size")
)
