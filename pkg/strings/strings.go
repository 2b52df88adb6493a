// Package strings provides pooled string building and string interning for
// the hot paths of reading and classifying values
package strings

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Builder is a reusable byte buffer for building short strings
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends s
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends c
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteRune appends the UTF-8 encoding of r
func (b *Builder) WriteRune(r rune) {
	b.buf = utf8.AppendRune(b.buf, r)
}

// String returns a copy of the accumulated content. The builder may be
// reused afterwards.
func (b *Builder) String() string {
	return string(b.buf)
}

// Len returns the number of accumulated bytes
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset empties the builder, keeping its capacity
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// maxPooledCapacity keeps oversized buffers out of the pool
const maxPooledCapacity = 16 * 1024

var builderPool = &sync.Pool{
	New: func() interface{} {
		return NewBuilder(64)
	},
}

// GetBuilder retrieves an empty pooled builder
func GetBuilder() *Builder {
	builder := builderPool.Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to the pool
func PutBuilder(builder *Builder) {
	if builder == nil || cap(builder.buf) > maxPooledCapacity {
		return
	}
	builder.Reset()
	builderPool.Put(builder)
}

// Intern deduplicates repeated strings such as column names and
// categorical values. It is safe for concurrent use.
type Intern struct {
	mu      sync.RWMutex
	strings map[string]string
	limit   int
}

// NewIntern creates an interner holding at most limit distinct strings;
// zero means unbounded
func NewIntern(limit int) *Intern {
	return &Intern{
		strings: make(map[string]string),
		limit:   limit,
	}
}

// Get returns the interned copy of s. Once the limit is reached unseen
// strings are returned as they are.
func (intern *Intern) Get(s string) string {
	intern.mu.RLock()
	interned, exists := intern.strings[s]
	intern.mu.RUnlock()
	if exists {
		return interned
	}

	intern.mu.Lock()
	defer intern.mu.Unlock()
	if interned, exists := intern.strings[s]; exists {
		return interned
	}
	if intern.limit > 0 && len(intern.strings) >= intern.limit {
		return s
	}
	cloned := strings.Clone(s)
	intern.strings[cloned] = cloned
	return cloned
}

// Size returns the number of interned strings
func (intern *Intern) Size() int {
	intern.mu.RLock()
	defer intern.mu.RUnlock()
	return len(intern.strings)
}

// Clear removes all interned strings
func (intern *Intern) Clear() {
	intern.mu.Lock()
	defer intern.mu.Unlock()
	intern.strings = make(map[string]string)
}
