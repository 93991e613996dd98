package namemap

import (
	"hash/fnv"

	"github.com/Faultbox/simgeom/pkg/encoding"
)

// Hash32 returns the 32-bit FNV hash of the lower-cased UTF-8 name. Each byte
// is folded in by multiplying by the prime and then XOR-ing, matching the
// hashes stored in game files (Hash32("SimSkin") == 0x548394B9).
func Hash32(name string) uint32 {
	h := fnv.New32()
	h.Write([]byte(encoding.FoldName(name)))
	return h.Sum32()
}

// Hash64 is the 64-bit variant of Hash32.
func Hash64(name string) uint64 {
	h := fnv.New64()
	h.Write([]byte(encoding.FoldName(name)))
	return h.Sum64()
}
