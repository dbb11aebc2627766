// Package listing implements Listing, an ordered sequence of IntArrays
// sharing one of 12 (data-width x size-strategy) wire encodings.
package listing

import (
	bin "github.com/gagliardetto/binary"

	"github.com/rpcpool/iambex/iamerr"
	"github.com/rpcpool/iambex/intarray"
)

const component = "listing"

// magicShifted is the listing header magic, 0xF00D200, left-shifted past
// the 4-bit (data_width:2)(size_strategy:2) payload.
const magicShifted = uint32(0xF00D200) << 4
const magicMask = ^uint32(0xF)

const maxCount = 1<<30 - 1

// widthBytes maps a 2-bit width field (1, 2 or 3) to its element byte
// width (1, 2 or 4). Used identically for data_width and, when
// size_strategy != 0, for the offset-table unit width.
func widthBytes(field uint8) int {
	switch field {
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 4
	default:
		return 0
	}
}

// layout precomputes the per-(dataWidth,sizeStrategy) byte widths once at
// construction, instead of branching on every Item call — the same
// decode-once-dispatch-by-table idea as compactindexsized.BucketDescriptor
// precomputing Stride/OffsetWidth.
type layout struct {
	dataWidthBytes   int
	offsetWidthBytes int // 0 when size_strategy == 0 (static)
}

// Listing is an ordered collection of IntArrays in one wire encoding.
type Listing struct {
	dataWidth    uint8
	sizeStrategy uint8
	layout       layout

	itemCount int32
	staticLen int32       // valid when sizeStrategy == 0
	offsets   intarray.IntArray // valid when sizeStrategy != 0; unsigned values, one per item + 1

	data []byte
}

// New parses a Listing from a 32-bit-word-aligned blob.
func New(blob []byte) (*Listing, error) {
	if len(blob)%4 != 0 {
		return nil, iamerr.New(component, iamerr.InvalidLength, "blob length %d is not 4-byte aligned", len(blob))
	}
	dec := bin.NewBorshDecoder(blob)

	header, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	if header&magicMask != magicShifted {
		return nil, iamerr.New(component, iamerr.InvalidHeader, "bad listing magic: %#x", header)
	}
	low4 := uint8(header & 0xF)
	dataWidth := low4 & 0x3
	sizeStrategy := (low4 >> 2) & 0x3
	if dataWidth == 0 {
		return nil, iamerr.New(component, iamerr.InvalidHeader, "data_width must not be 0")
	}

	itemCountWord, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	if itemCountWord > maxCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "item_count %d exceeds %d", itemCountWord, maxCount)
	}
	itemCount := int32(itemCountWord)

	l := &Listing{
		dataWidth:    dataWidth,
		sizeStrategy: sizeStrategy,
		itemCount:    itemCount,
		layout:       layout{dataWidthBytes: widthBytes(dataWidth)},
	}

	consumed := int64(8) // header + item_count
	var totalElements int64

	if sizeStrategy == 0 {
		lenWord, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
		}
		l.staticLen = int32(lenWord)
		consumed += 4
		totalElements = int64(itemCount) * int64(l.staticLen)
	} else {
		offWidth := widthBytes(sizeStrategy)
		l.layout.offsetWidthBytes = offWidth
		tableBytes := int64(itemCount+1) * int64(offWidth)
		tableWords := ceilWords(tableBytes)
		tableByteLen := tableWords * 4
		if consumed+tableByteLen > int64(len(blob)) {
			return nil, iamerr.New(component, iamerr.InvalidLength, "offset table overruns blob")
		}
		tableBuf := blob[consumed : consumed+tableByteLen]
		l.offsets = intarray.View(tableBuf, itemCount+1, offWidth)
		if err := checkMonotone(l.offsets); err != nil {
			return nil, err
		}
		totalElements = int64(l.offsets.Get(itemCount))
		consumed += tableByteLen
	}

	dataBytes := totalElements * int64(l.layout.dataWidthBytes)
	dataWords := ceilWords(dataBytes)
	dataByteLen := dataWords * 4
	if consumed+dataByteLen > int64(len(blob)) {
		return nil, iamerr.New(component, iamerr.InvalidLength, "data region overruns blob")
	}
	l.data = blob[consumed : consumed+dataByteLen]
	consumed += dataByteLen

	if consumed != int64(len(blob)) {
		return nil, iamerr.New(component, iamerr.InvalidLength, "listing consumed %d of %d bytes", consumed, len(blob))
	}
	return l, nil
}

func ceilWords(nbytes int64) int64 {
	if nbytes <= 0 {
		return 0
	}
	return (nbytes + 3) / 4
}

func checkMonotone(offsets intarray.IntArray) error {
	n := offsets.Length()
	if n == 0 {
		return nil
	}
	if offsets.Get(0) != 0 {
		return iamerr.New(component, iamerr.InvalidOffset, "offset[0] = %d, want 0", offsets.Get(0))
	}
	for i := int32(1); i < n; i++ {
		if offsets.Get(i) < offsets.Get(i-1) {
			return iamerr.New(component, iamerr.InvalidOffset, "offsets not monotone at %d", i)
		}
	}
	return nil
}

// itemBounds returns the [start, length) span, in elements, of item i.
func (l *Listing) itemBounds(i int32) (start, length int32, ok bool) {
	if i < 0 || i >= l.itemCount {
		return 0, 0, false
	}
	if l.sizeStrategy == 0 {
		return i * l.staticLen, l.staticLen, true
	}
	start = l.offsets.Get(i)
	length = l.offsets.Get(i+1) - start
	return start, length, true
}

// Item returns the i-th array, or the empty array if i is out of range.
func (l *Listing) Item(i int32) intarray.IntArray {
	start, length, ok := l.itemBounds(i)
	if !ok {
		return intarray.Empty()
	}
	byteOff := int(start) * l.layout.dataWidthBytes
	byteLen := int(length) * l.layout.dataWidthBytes
	return intarray.View(l.data[byteOff:byteOff+byteLen], length, l.layout.dataWidthBytes)
}

// ItemAt returns element j of item i, or 0 if either index is out of range.
func (l *Listing) ItemAt(i, j int32) int32 {
	return l.Item(i).Get(j)
}

// ItemLength returns the element count of item i, or 0 if i is out of range.
func (l *Listing) ItemLength(i int32) int32 {
	_, length, ok := l.itemBounds(i)
	if !ok {
		return 0
	}
	return length
}

// ItemCount returns the number of items.
func (l *Listing) ItemCount() int32 { return l.itemCount }

// Find linearly scans for the first item equal to key, or -1.
func (l *Listing) Find(key intarray.IntArray) int32 {
	for i := int32(0); i < l.itemCount; i++ {
		if l.Item(i).Equals(key) {
			return i
		}
	}
	return -1
}

// Check verifies monotonicity of the dynamic offset table. New already
// rejects a table that fails this check, so Check repeats it on demand.
func (l *Listing) Check() error {
	if l.sizeStrategy == 0 {
		return nil
	}
	return checkMonotone(l.offsets)
}

// IsInvalidHeader reports whether err is a listing InvalidHeader failure.
func IsInvalidHeader(err error) bool { return iamerr.Is(err, iamerr.InvalidHeader) }

// IsInvalidValue reports whether err is a listing InvalidValue failure.
func IsInvalidValue(err error) bool { return iamerr.Is(err, iamerr.InvalidValue) }

// IsInvalidLength reports whether err is a listing InvalidLength failure.
func IsInvalidLength(err error) bool { return iamerr.Is(err, iamerr.InvalidLength) }

// IsInvalidOffset reports whether err is a listing InvalidOffset failure.
func IsInvalidOffset(err error) bool { return iamerr.Is(err, iamerr.InvalidOffset) }
