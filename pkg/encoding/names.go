// Package encoding provides text and number formatting helpers shared by the
// GEOM/RIG codecs and the name tables.
package encoding

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// FoldName lower-cases a resource name the way the game does before hashing.
func FoldName(name string) string {
	return lower.String(name)
}

// PaddedHex formats v as "0x" followed by numBytes*2 upper-case hex digits.
func PaddedHex(v uint64, numBytes int) string {
	return fmt.Sprintf("0x%0*X", numBytes*2, v)
}

// Hex32 formats a 32-bit hash as "0xNNNNNNNN".
func Hex32(v uint32) string {
	return PaddedHex(uint64(v), 4)
}

// ParseUint parses an integer literal honoring base prefixes ("0x1A", "0o17",
// "42"). bitSize bounds the result as in strconv.ParseUint.
func ParseUint(s string, bitSize int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bitSize)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	return v, nil
}

// HexLiteral reports whether s is a "0x"-prefixed 32-bit hex literal and
// returns its value. Names that could not be resolved are stored this way.
func HexLiteral(s string) (uint32, bool) {
	if len(s) < 3 || (s[:2] != "0x" && s[:2] != "0X") {
		return 0, false
	}
	v, err := strconv.ParseUint(s[2:], 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
