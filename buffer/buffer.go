// Package buffer provides a reference-counted, sliceable byte region used
// as the binary payload of a packet. Slicing never copies; the backing
// array lives until the last slice referencing it is released.
package buffer

import "sync/atomic"

// Buffer is an immutable view over a shared, reference-counted byte region.
// The zero value is an empty Buffer and is safe to use.
type Buffer struct {
	store  *store
	offset int
	length int
}

type store struct {
	data []byte
	refs int32
}

// New wraps data in a Buffer with its own backing store (refcount 1).
// data is taken by reference, not copied; callers that mutate it after
// calling New are responsible for not racing with readers.
func New(data []byte) Buffer {
	if len(data) == 0 {
		return Buffer{}
	}
	return Buffer{store: &store{data: data, refs: 1}, offset: 0, length: len(data)}
}

// FromString copies s into a new Buffer, mirroring the original system's
// std::string constructor for Buffer.
func FromString(s string) Buffer {
	return New([]byte(s))
}

// Len returns the number of bytes visible through this view.
func (b Buffer) Len() int {
	return b.length
}

// Bytes returns the byte slice visible through this view. The returned
// slice aliases the shared backing array and must not be retained past
// the Buffer's lifetime without a Retain/Release pairing, nor mutated.
func (b Buffer) Bytes() []byte {
	if b.store == nil {
		return nil
	}
	return b.store.data[b.offset : b.offset+b.length]
}

// Slice returns a new Buffer over b's [from, from+length) range, sharing
// the same backing store. Slicing out of range panics, matching the
// original's bounds-checked behavior.
func (b Buffer) Slice(from, length int) Buffer {
	if from < 0 || length < 0 || from+length > b.length {
		panic("buffer: slice out of range")
	}
	if b.store != nil {
		b.store.retain()
	}
	return Buffer{store: b.store, offset: b.offset + from, length: length}
}

// Retain increments the backing store's reference count. Pair with
// Release when the caller is done with this view, if the view was
// obtained independently of its producer's own lifetime management (most
// callers never need this — packets own their buffers for the duration
// of one dispatch and need no manual retain/release).
func (b Buffer) Retain() {
	if b.store != nil {
		b.store.retain()
	}
}

// Release decrements the backing store's reference count, freeing the
// backing array once it reaches zero.
func (b Buffer) Release() {
	if b.store != nil {
		b.store.release()
	}
}

func (s *store) retain() {
	atomic.AddInt32(&s.refs, 1)
}

func (s *store) release() {
	if atomic.AddInt32(&s.refs, -1) == 0 {
		s.data = nil
	}
}

// Concat copies the contents of bufs into a single new Buffer. Used by
// support nodes (e.g. the buffer accumulator) that need to coalesce
// several received buffers into one contiguous region.
func Concat(bufs ...Buffer) Buffer {
	total := 0
	for _, b := range bufs {
		total += b.Len()
	}
	out := make([]byte, 0, total)
	for _, b := range bufs {
		out = append(out, b.Bytes()...)
	}
	return New(out)
}
