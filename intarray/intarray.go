// Package intarray implements IntArray, a typed view over a run of
// integers encoded as 8/16/32-bit signed values (borrowed from a
// byteregion.Region) or an owned, reference-counted 32-bit copy.
package intarray

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

func init() {
	// The wire format is little-endian by definition; this module decodes
	// it explicitly via encoding/binary so reads are correct on any host.
	// Big-endian hosts are nevertheless rejected here at init.
	var i uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0 {
		panic("intarray: big-endian hosts are not supported")
	}
}

// storageKind distinguishes a borrowed view from an owned, refcounted copy.
type storageKind uint8

const (
	kindView storageKind = iota
	kindOwned
)

type ownedBuf struct {
	data []int32
	refs int32 // atomic
}

func (o *ownedBuf) acquire() { atomic.AddInt32(&o.refs, 1) }
func (o *ownedBuf) release() {
	if atomic.AddInt32(&o.refs, -1) == 0 {
		o.data = nil // eligible for GC; stands in for the native "free"
	}
}

// IntArray is a length-bounded integer sequence. The zero value is the
// empty array.
type IntArray struct {
	length int32
	width  uint8 // 1, 2 or 4 for a view; always reported as 4 for owned
	kind   storageKind
	view   []byte
	owned  *ownedBuf
}

// Empty returns the length-0, width-0 array.
func Empty() IntArray { return IntArray{} }

// View borrows a width-byte-per-element span of exactly length elements
// from buf. width must be 1, 2 or 4. Returns the empty array if bounds or
// width are invalid; construction of the containing Listing/Mapping is
// expected to have already validated these bounds against the backing
// region, so failure here indicates a programmer error upstream, not a
// malformed file.
func View(buf []byte, length int32, width int) IntArray {
	if length < 0 || length >= 1<<30 {
		return Empty()
	}
	if width != 1 && width != 2 && width != 4 {
		return Empty()
	}
	need := int64(length) * int64(width)
	if need > int64(len(buf)) {
		return Empty()
	}
	return IntArray{length: length, width: uint8(width), kind: kindView, view: buf[:need]}
}

// OwnedCopy allocates a refcounted 32-bit-per-element buffer and copies
// src's widened values into it.
func OwnedCopy(src IntArray) IntArray {
	n := src.Length()
	data := make([]int32, n)
	for i := int32(0); i < n; i++ {
		data[i] = src.Get(i)
	}
	return IntArray{
		length: n,
		width:  4,
		kind:   kindOwned,
		owned:  &ownedBuf{data: data, refs: 1},
	}
}

// Length returns the element count.
func (a IntArray) Length() int32 { return a.length }

// ElementWidth returns 1, 2 or 4, or 0 for the empty array. Owned copies
// always report 4.
func (a IntArray) ElementWidth() uint8 { return a.width }

// Get returns the sign-extended value at i, or 0 if i is out of range.
func (a IntArray) Get(i int32) int32 {
	if i < 0 || i >= a.length {
		return 0
	}
	switch a.kind {
	case kindOwned:
		return a.owned.data[i]
	default:
		switch a.width {
		case 1:
			return int32(int8(a.view[i]))
		case 2:
			off := int(i) * 2
			return int32(int16(binary.LittleEndian.Uint16(a.view[off : off+2])))
		case 4:
			off := int(i) * 4
			return int32(binary.LittleEndian.Uint32(a.view[off : off+4]))
		default:
			return 0
		}
	}
}

// fnvSeed and fnvPrime are FNV-1a's 32-bit constants.
const (
	fnvSeed  = 0x811C9DC5
	fnvPrime = 0x01000193
)

// Hash computes FNV-1a over the 32-bit sign-extended element stream, one
// step per element: multiply the running hash by the FNV prime, then XOR
// in the element's full 32-bit value. This is per-element, not per-byte.
func (a IntArray) Hash() int32 {
	h := uint32(fnvSeed)
	for i := int32(0); i < a.length; i++ {
		h = h*fnvPrime ^ uint32(a.Get(i))
	}
	return int32(h)
}

// Equals reports length and elementwise equality, regardless of element
// width on either side.
func (a IntArray) Equals(other IntArray) bool {
	if a.length != other.length {
		return false
	}
	for i := int32(0); i < a.length; i++ {
		if a.Get(i) != other.Get(i) {
			return false
		}
	}
	return true
}

// Compare is a lexicographic comparison; on a common prefix tie, the
// shorter array compares less.
func (a IntArray) Compare(other IntArray) int {
	n := a.length
	if other.length < n {
		n = other.length
	}
	for i := int32(0); i < n; i++ {
		x, y := a.Get(i), other.Get(i)
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}
	switch {
	case a.length < other.length:
		return -1
	case a.length > other.length:
		return 1
	default:
		return 0
	}
}

// Section returns the sub-array [offset, offset+length). For an owned
// array this allocates a new owned copy (so the slice can't escape the
// refcount-prefixed buffer); for a view it is a further borrow of the
// same bytes.
func (a IntArray) Section(offset, length int32) IntArray {
	if offset < 0 || length < 0 || offset+length > a.length {
		return Empty()
	}
	if a.kind == kindOwned {
		sub := make([]int32, length)
		copy(sub, a.owned.data[offset:offset+length])
		return IntArray{length: length, width: 4, kind: kindOwned, owned: &ownedBuf{data: sub, refs: 1}}
	}
	byteOff := int(offset) * int(a.width)
	byteLen := int(length) * int(a.width)
	return IntArray{length: length, width: a.width, kind: kindView, view: a.view[byteOff : byteOff+byteLen]}
}

// Clone bumps the owned buffer's refcount; it is a no-op for borrowed views.
func (a IntArray) Clone() IntArray {
	if a.kind == kindOwned && a.owned != nil {
		a.owned.acquire()
	}
	return a
}

// Close drops this handle's share of an owned buffer; it is a no-op for
// borrowed views, whose lifetime is tied to the container that produced
// them.
func (a IntArray) Close() {
	if a.kind == kindOwned && a.owned != nil {
		a.owned.release()
	}
}

// IsOwned reports whether the array is backed by a refcounted copy rather
// than a borrowed view.
func (a IntArray) IsOwned() bool { return a.kind == kindOwned }
