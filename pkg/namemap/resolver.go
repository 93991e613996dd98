package namemap

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/simgeom/pkg/encoding"
)

// ErrUnknownHash is returned when a hash has no entry in the table and the
// resolver uses FallbackStrict.
var ErrUnknownHash = errors.New("unknown name hash")

// FallbackPolicy controls what a Resolver does with hashes missing from its
// table.
type FallbackPolicy int

const (
	// FallbackHex returns the zero-padded hex literal ("0x548394B9") as the
	// name. Encoders recognise the literal and write the hash back unchanged.
	FallbackHex FallbackPolicy = iota
	// FallbackStrict fails with ErrUnknownHash.
	FallbackStrict
)

// String returns the config spelling of the policy.
func (p FallbackPolicy) String() string {
	switch p {
	case FallbackHex:
		return "hex"
	case FallbackStrict:
		return "strict"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// ParseFallbackPolicy parses "hex" or "strict".
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch s {
	case "hex", "":
		return FallbackHex, nil
	case "strict":
		return FallbackStrict, nil
	default:
		return 0, errors.Errorf("unknown fallback policy %q", s)
	}
}

// Resolver looks up names in a Table. Lookups may run concurrently; Rebuild
// and Replace swap the table under a write lock.
type Resolver struct {
	mu       sync.RWMutex
	table    *Table
	fallback FallbackPolicy
	log      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback sets the policy for unknown hashes.
func WithFallback(p FallbackPolicy) Option {
	return func(r *Resolver) {
		r.fallback = p
	}
}

// WithLogger sets the logger used for fallback and rebuild notices.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver returns a Resolver over table. A nil table starts empty.
func NewResolver(table *Table, opts ...Option) *Resolver {
	if table == nil {
		table = NewTable()
	}
	r := &Resolver{
		table:    table,
		fallback: FallbackHex,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fallback returns the resolver's unknown-hash policy.
func (r *Resolver) Fallback() FallbackPolicy {
	return r.fallback
}

// ResolveBone returns the bone name for hash.
func (r *Resolver) ResolveBone(hash uint32) (string, error) {
	return r.resolve("bone", hash, func(t *Table) map[uint32]string { return t.Bones })
}

// ResolveShader returns the shader or shader-parameter name for hash.
func (r *Resolver) ResolveShader(hash uint32) (string, error) {
	return r.resolve("shader", hash, func(t *Table) map[uint32]string { return t.Shader })
}

func (r *Resolver) resolve(kind string, hash uint32, section func(*Table) map[uint32]string) (string, error) {
	r.mu.RLock()
	name, ok := section(r.table)[hash]
	r.mu.RUnlock()
	if ok {
		return name, nil
	}

	if r.fallback == FallbackStrict {
		return "", errors.Wrapf(ErrUnknownHash, "%s 0x%08X", kind, hash)
	}
	literal := encoding.Hex32(hash)
	r.log.Debug("unresolved name hash, using literal",
		zap.String("kind", kind),
		zap.String("hash", literal))
	return literal, nil
}

// Table returns a snapshot copy of the current table.
func (r *Resolver) Table() *Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Clone()
}

// Replace swaps in a new table.
func (r *Resolver) Replace(table *Table) {
	r.mu.Lock()
	r.table = table
	r.mu.Unlock()
}

// Rebuild merges bone entries into the table, persists the merged table to
// path (write to temp, then rename) and swaps it in. The live table is left
// untouched if persisting fails.
func (r *Resolver) Rebuild(path string, bones map[uint32]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := r.table.Clone()
	for h, name := range bones {
		merged.Bones[h] = name
	}

	if err := merged.Save(path); err != nil {
		return errors.Wrap(err, "persisting rebuilt name table")
	}

	added := len(merged.Bones) - len(r.table.Bones)
	r.table = merged
	r.log.Info("name table rebuilt",
		zap.String("path", path),
		zap.Int("updates", len(bones)),
		zap.Int("added", added),
		zap.Int("bones", len(merged.Bones)))
	return nil
}

// RebuildNames hashes each name and merges it into the bone table via Rebuild.
func (r *Resolver) RebuildNames(path string, names []string) error {
	updates := make(map[uint32]string, len(names))
	for _, name := range names {
		updates[Hash32(name)] = name
	}
	return r.Rebuild(path, updates)
}
