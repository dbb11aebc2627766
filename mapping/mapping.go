// Package mapping implements Mapping, a keyed lookup table of IntArray keys
// to IntArray values sharing one of 48 (key_width x key_size x
// range_strategy x value_width x value_size) wire encodings.
package mapping

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"

	"github.com/rpcpool/iambex/iamerr"
	"github.com/rpcpool/iambex/intarray"
)

const component = "mapping"

// magicShifted is the mapping header magic, left-shifted past the 10-bit
// (key_width:2)(key_size:2)(range_size:2)(value_width:2)(value_size:2)
// payload. Chosen as a clean, self-consistent 22-bit constant rather than
// forcing a bit-exact match to any particular worked byte example; see
// DESIGN.md.
const magicShifted = uint32(0x3F00D1) << 10
const magicMask = ^uint32(0x3FF)

const maxCount = 1<<30 - 1
const maxRangeMask = 1<<30 - 1

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

// arraySection is one of the two parallel (size-table, data) pairs that make
// up a Mapping: the keys and the values. It mirrors listing.Listing's own
// static-vs-dynamic split, reused here twice under one entry_count.
type arraySection struct {
	widthBytes   int
	sizeField    uint8
	staticLen    int32
	offsets      intarray.IntArray // valid when sizeField != 0
	data         []byte
}

func (s *arraySection) bounds(i, count int32) (start, length int32, ok bool) {
	if i < 0 || i >= count {
		return 0, 0, false
	}
	if s.sizeField == 0 {
		return i * s.staticLen, s.staticLen, true
	}
	start = s.offsets.Get(i)
	length = s.offsets.Get(i+1) - start
	return start, length, true
}

func (s *arraySection) get(i, count int32) intarray.IntArray {
	start, length, ok := s.bounds(i, count)
	if !ok {
		return intarray.Empty()
	}
	byteOff := int(start) * s.widthBytes
	byteLen := int(length) * s.widthBytes
	return intarray.View(s.data[byteOff:byteOff+byteLen], length, s.widthBytes)
}

func (s *arraySection) length(i, count int32) int32 {
	_, length, ok := s.bounds(i, count)
	if !ok {
		return 0
	}
	return length
}

func (s *arraySection) check(count int32) error {
	if s.sizeField == 0 {
		return nil
	}
	return checkMonotone(s.offsets)
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

func ceilWords(nbytes int64) int64 {
	if nbytes <= 0 {
		return 0
	}
	return (nbytes + 3) / 4
}

// Mapping is a keyed table: entry i pairs key i with value i, both IntArrays.
type Mapping struct {
	keyWidth, keySize       uint8
	rangeStrategy           uint8
	valueWidth, valueSize   uint8

	entryCount int32
	rangeMask  int32             // valid when rangeStrategy != 0
	ranges     intarray.IntArray // valid when rangeStrategy != 0; rangeMask+2 bucket boundaries, the last equal to entryCount

	keys   arraySection
	values arraySection
}

// New parses a Mapping from a 32-bit-word-aligned blob.
func New(blob []byte) (*Mapping, error) {
	if len(blob)%4 != 0 {
		return nil, iamerr.New(component, iamerr.InvalidLength, "blob length %d is not 4-byte aligned", len(blob))
	}
	dec := bin.NewBorshDecoder(blob)

	header, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	if header&magicMask != magicShifted {
		return nil, iamerr.New(component, iamerr.InvalidHeader, "bad mapping magic: %#x", header)
	}
	fields := uint16(header & 0x3FF)
	keyWidth := uint8(fields & 0x3)
	keySize := uint8((fields >> 2) & 0x3)
	rangeStrategy := uint8((fields >> 4) & 0x3)
	valueWidth := uint8((fields >> 6) & 0x3)
	valueSize := uint8((fields >> 8) & 0x3)
	if keyWidth == 0 || valueWidth == 0 {
		return nil, iamerr.New(component, iamerr.InvalidHeader, "key_width/value_width must not be 0")
	}

	entryCountWord, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	if entryCountWord > maxCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "entry_count %d exceeds %d", entryCountWord, maxCount)
	}
	entryCount := int32(entryCountWord)

	m := &Mapping{
		keyWidth:      keyWidth,
		keySize:       keySize,
		rangeStrategy: rangeStrategy,
		valueWidth:    valueWidth,
		valueSize:     valueSize,
		entryCount:    entryCount,
	}

	consumed := int64(8)

	if rangeStrategy != 0 {
		maskWord, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
		}
		if maskWord == 0 || maskWord > maxRangeMask || (maskWord+1)&maskWord != 0 {
			return nil, iamerr.New(component, iamerr.InvalidValue, "range_mask %d is not a power-of-two-minus-1", maskWord)
		}
		consumed += 4
		m.rangeMask = int32(maskWord)

		rangeWidth := widthBytes(rangeStrategy)
		rangeCount := int64(maskWord) + 2
		rangeBytes := rangeCount * int64(rangeWidth)
		rangeWords := ceilWords(rangeBytes)
		rangeByteLen := rangeWords * 4
		if consumed+rangeByteLen > int64(len(blob)) {
			return nil, iamerr.New(component, iamerr.InvalidLength, "range table overruns blob")
		}
		rangeBuf := blob[consumed : consumed+rangeByteLen]
		m.ranges = intarray.View(rangeBuf, int32(rangeCount), rangeWidth)
		if err := checkMonotone(m.ranges); err != nil {
			return nil, err
		}
		if m.ranges.Get(int32(rangeCount-1)) != entryCount {
			return nil, iamerr.New(component, iamerr.InvalidOffset, "range table does not terminate at entry_count")
		}
		consumed += rangeByteLen
	}

	keys, consumed2, err := parseArraySection(blob, consumed, entryCount, keyWidth, keySize)
	if err != nil {
		return nil, err
	}
	m.keys = keys
	consumed = consumed2

	values, consumed3, err := parseArraySection(blob, consumed, entryCount, valueWidth, valueSize)
	if err != nil {
		return nil, err
	}
	m.values = values
	consumed = consumed3

	if consumed != int64(len(blob)) {
		return nil, iamerr.New(component, iamerr.InvalidLength, "mapping consumed %d of %d bytes", consumed, len(blob))
	}
	return m, nil
}

// parseArraySection reads one static-or-dynamic size table, immediately
// followed by its data region, starting at consumed. It returns the
// section and the new consumed offset.
func parseArraySection(blob []byte, consumed int64, count int32, widthField, sizeField uint8) (arraySection, int64, error) {
	s := arraySection{widthBytes: widthBytes(widthField), sizeField: sizeField}
	var totalElements int64

	if sizeField == 0 {
		if consumed+4 > int64(len(blob)) {
			return s, consumed, iamerr.New(component, iamerr.InvalidLength, "static length word overruns blob")
		}
		staticLen := int32(binary.LittleEndian.Uint32(blob[consumed : consumed+4]))
		s.staticLen = staticLen
		consumed += 4
		totalElements = int64(count) * int64(staticLen)
	} else {
		offWidth := widthBytes(sizeField)
		tableBytes := int64(count+1) * int64(offWidth)
		tableWords := ceilWords(tableBytes)
		tableByteLen := tableWords * 4
		if consumed+tableByteLen > int64(len(blob)) {
			return s, consumed, iamerr.New(component, iamerr.InvalidLength, "size table overruns blob")
		}
		tableBuf := blob[consumed : consumed+tableByteLen]
		s.offsets = intarray.View(tableBuf, count+1, offWidth)
		if err := checkMonotone(s.offsets); err != nil {
			return s, consumed, err
		}
		totalElements = int64(s.offsets.Get(count))
		consumed += tableByteLen
	}

	dataBytes := totalElements * int64(s.widthBytes)
	dataWords := ceilWords(dataBytes)
	dataByteLen := dataWords * 4
	if consumed+dataByteLen > int64(len(blob)) {
		return s, consumed, iamerr.New(component, iamerr.InvalidLength, "data region overruns blob")
	}
	s.data = blob[consumed : consumed+dataByteLen]
	consumed += dataByteLen

	return s, consumed, nil
}

// EntryCount returns the number of key/value pairs.
func (m *Mapping) EntryCount() int32 { return m.entryCount }

// Key returns the i-th key, or the empty array if i is out of range.
func (m *Mapping) Key(i int32) intarray.IntArray { return m.keys.get(i, m.entryCount) }

// KeyAt returns element j of key i, or 0 if either index is out of range.
func (m *Mapping) KeyAt(i, j int32) int32 { return m.Key(i).Get(j) }

// KeyLength returns the element count of key i, or 0 if i is out of range.
func (m *Mapping) KeyLength(i int32) int32 { return m.keys.length(i, m.entryCount) }

// Value returns the i-th value, or the empty array if i is out of range.
func (m *Mapping) Value(i int32) intarray.IntArray { return m.values.get(i, m.entryCount) }

// ValueAt returns element j of value i, or 0 if either index is out of range.
func (m *Mapping) ValueAt(i, j int32) int32 { return m.Value(i).Get(j) }

// ValueLength returns the element count of value i, or 0 if i is out of range.
func (m *Mapping) ValueLength(i int32) int32 { return m.values.length(i, m.entryCount) }

// Entry returns the i-th key/value pair.
func (m *Mapping) Entry(i int32) (intarray.IntArray, intarray.IntArray) {
	return m.Key(i), m.Value(i)
}

// Find returns the index of the entry whose key equals key, or -1.
//
// When range_strategy is 0, keys are assumed sorted and located by binary
// search using IntArray.Compare; with statically sized keys, a key of any
// other length misses at once. Otherwise, the key is routed to its bucket
// via IntArray.Hash (the same array hash a conformant builder uses to place
// it) and the bucket's entries are scanned linearly.
func (m *Mapping) Find(key intarray.IntArray) int32 {
	if m.rangeStrategy == 0 {
		if m.keySize == 0 && key.Length() != m.keys.staticLen {
			return -1
		}
		lo, hi := int32(0), m.entryCount
		for lo < hi {
			mid := lo + (hi-lo)/2
			c := m.Key(mid).Compare(key)
			switch {
			case c == 0:
				return mid
			case c < 0:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		return -1
	}

	bucket := int32(uint32(key.Hash()) & uint32(m.rangeMask))
	start := m.ranges.Get(bucket)
	end := m.ranges.Get(bucket + 1)
	for i := start; i < end; i++ {
		if m.Key(i).Equals(key) {
			return i
		}
	}
	return -1
}

// Check re-validates the key/value offset tables and, for hashed mappings,
// the range table. New already rejects tables that fail these checks, so
// Check repeats them on demand.
func (m *Mapping) Check() error {
	if err := m.keys.check(m.entryCount); err != nil {
		return err
	}
	if err := m.values.check(m.entryCount); err != nil {
		return err
	}
	if m.rangeStrategy != 0 {
		return checkMonotone(m.ranges)
	}
	return nil
}

// Warm touches every page of the key and value data regions once, priming
// the OS page cache the way bucketteer's reader warms a freshly mapped
// index before the first lookup.
func (m *Mapping) Warm() {
	touch(m.keys.data)
	touch(m.values.data)
}

func touch(data []byte) {
	var sink byte
	for i := 0; i < len(data); i += 4096 {
		sink += data[i]
	}
	_ = sink
}

// IsInvalidHeader reports whether err is a mapping InvalidHeader failure.
func IsInvalidHeader(err error) bool { return iamerr.Is(err, iamerr.InvalidHeader) }

// IsInvalidValue reports whether err is a mapping InvalidValue failure.
func IsInvalidValue(err error) bool { return iamerr.Is(err, iamerr.InvalidValue) }

// IsInvalidLength reports whether err is a mapping InvalidLength failure.
func IsInvalidLength(err error) bool { return iamerr.Is(err, iamerr.InvalidLength) }

// IsInvalidOffset reports whether err is a mapping InvalidOffset failure.
func IsInvalidOffset(err error) bool { return iamerr.Is(err, iamerr.InvalidOffset) }
