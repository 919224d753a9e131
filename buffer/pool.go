package buffer

import "sync"

// Pool recycles fixed-size backing arrays for Buffer allocation on the hot
// dispatch path, mirroring the original system's BufferPool/
// BlockingObjectPool: acquire a byte slice, fill it, wrap it with New, and
// Put it back once every Buffer view over it has been released.
//
// Pool does not track outstanding checkouts; it's an allocator, not a
// lifetime manager. Buffer's own refcounting is what decides when a
// backing array is actually eligible for reuse, so callers must only Put
// back a slice they are certain has no live Buffer views over it.
type Pool struct {
	size int
	pool sync.Pool
}

// NewPool creates a Pool that hands out byte slices of the given size.
func NewPool(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		return make([]byte, size)
	}
	return p
}

// Get returns a slice of Pool's configured size, reused if one is
// available.
func (p *Pool) Get() []byte {
	return p.pool.Get().([]byte)
}

// Put returns a slice to the pool for reuse. Slices of the wrong length
// are dropped rather than risking a short read on the next Get.
func (p *Pool) Put(b []byte) {
	if len(b) != p.size {
		return
	}
	p.pool.Put(b)
}
