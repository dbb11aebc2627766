// Package byteregion provides zero-copy, reference-counted access to a
// contiguous byte range, backed either by a memory-mapped file or by a
// caller-supplied buffer.
package byteregion

import (
	"log/slog"
	"sync/atomic"
	"unsafe"
)

// rootHandle is the shared, atomically refcounted owner of a mapping (or
// of nothing, for buffer-backed regions). Every Region clone derived from
// the same root points at the same rootHandle; release fires exactly once,
// when the count reaches zero.
type rootHandle struct {
	refs    int32
	release func()
}

func newRoot(release func()) *rootHandle {
	return &rootHandle{refs: 1, release: release}
}

func (r *rootHandle) acquire() {
	if r == nil {
		return
	}
	atomic.AddInt32(&r.refs, 1)
}

func (r *rootHandle) drop() {
	if r == nil {
		return
	}
	if atomic.AddInt32(&r.refs, -1) == 0 {
		if r.release != nil {
			r.release()
		}
	}
}

// Region is a `[base, base+size)` byte range. The zero Region is the
// empty region: size 0, no root, safe to use.
type Region struct {
	data []byte
	root *rootHandle
}

// Empty returns the empty region.
func Empty() Region { return Region{} }

// FromBuffer wraps a caller-owned buffer. No release callback is attached;
// the caller remains responsible for the buffer's lifetime.
func FromBuffer(buf []byte) Region {
	if len(buf) == 0 {
		return Empty()
	}
	return Region{data: buf, root: newRoot(nil)}
}

// Size returns the region's length in bytes.
func (r Region) Size() int64 { return int64(len(r.data)) }

// Bytes exposes the region's backing slice. Within this module tree,
// iamindex uses it to hand a mapped region's bytes to its parser.
func (r Region) Bytes() []byte { return r.data }

// Addr returns a stable identifier for the region's backing storage,
// useful for logging/debugging only; it carries no pointer-arithmetic
// guarantee across Go garbage collection.
func (r Region) Addr() uintptr {
	if len(r.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.data)))
}

// Slice returns a sub-region sharing the same root. Out-of-range bounds
// return the empty region rather than failing.
func (r Region) Slice(offset, length int64) Region {
	if offset < 0 || length < 0 || offset+length > int64(len(r.data)) {
		return Empty()
	}
	r.root.acquire()
	return Region{data: r.data[offset : offset+length], root: r.root}
}

// Clone bumps the shared refcount and returns an independent handle to the
// same bytes.
func (r Region) Clone() Region {
	r.root.acquire()
	return r
}

// Close drops this handle's share of the root. The underlying mapping (or
// nothing, for buffer-backed regions) is released when the last handle
// closes.
func (r Region) Close() {
	r.root.drop()
}

func logOpenFailure(path string, err error) {
	slog.Warn("byteregion: failed to open file, returning empty region", "path", path, "error", err)
}
