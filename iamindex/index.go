// Package iamindex implements Index, the top-level container that bundles
// any number of listings and mappings parsed from one blob, backed by a
// shared byteregion.Region.
package iamindex

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"go.uber.org/multierr"

	"github.com/rpcpool/iambex/byteregion"
	"github.com/rpcpool/iambex/iamerr"
	"github.com/rpcpool/iambex/listing"
	"github.com/rpcpool/iambex/mapping"
)

const component = "iamindex"

const magic = uint32(0xF00DBA5E)
const maxCount = 1<<30 - 1

// Index bundles N listings and M mappings parsed from one blob, and holds a
// share of the backing region so every Listing/Mapping view it produced
// stays valid for as long as the Index itself is live.
type Index struct {
	region   byteregion.Region
	listings []*listing.Listing
	mappings []*mapping.Mapping
}

// Open memory-maps path and parses an Index from its contents.
func Open(path string, readOnly bool) (*Index, error) {
	region, err := byteregion.FromFile(path, readOnly)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	idx, err := FromBytes(region.Bytes())
	if err != nil {
		region.Close()
		return nil, err
	}
	idx.region = region
	return idx, nil
}

// New parses an Index from an already-opened region, retaining a clone of
// it so the Index stays valid independently of the caller's own handle.
// Use this when the caller already holds a byteregion.Region, as opposed
// to Open, which maps a path itself, or FromBytes, for callers with a
// plain []byte.
func New(region byteregion.Region) (*Index, error) {
	idx, err := FromBytes(region.Bytes())
	if err != nil {
		return nil, err
	}
	idx.region = region.Clone()
	return idx, nil
}

// FromBytes parses an Index directly from a byte slice. The returned Index
// holds no byteregion.Region share; the caller retains ownership of blob.
// A failing listing or mapping construction returns that sub-error as is.
func FromBytes(blob []byte) (*Index, error) {
	if len(blob)%4 != 0 {
		return nil, iamerr.New(component, iamerr.InvalidLength, "blob length %d is not 4-byte aligned", len(blob))
	}
	dec := bin.NewBorshDecoder(blob)

	header, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	if header != magic {
		return nil, iamerr.New(component, iamerr.InvalidHeader, "bad index magic: %#x", header)
	}

	mappingCountWord, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	listingCountWord, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, iamerr.Wrap(component, iamerr.InvalidLength, err)
	}
	if mappingCountWord > maxCount || listingCountWord > maxCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "mapping_count/listing_count exceeds %d", maxCount)
	}
	mappingCount := int32(mappingCountWord)
	listingCount := int32(listingCountWord)

	consumed := int64(12)

	mappingOffsets, consumed, err := readOffsets(blob, consumed, mappingCount+1)
	if err != nil {
		return nil, err
	}
	listingOffsets, consumed, err := readOffsets(blob, consumed, listingCount+1)
	if err != nil {
		return nil, err
	}

	mappingWords := mappingOffsets[mappingCount]
	if mappingWords < 0 || mappingWords > maxCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "mapping pool length %d out of range", mappingWords)
	}
	mappingPoolBytes := int64(mappingWords) * 4
	if consumed+mappingPoolBytes > int64(len(blob)) {
		return nil, iamerr.New(component, iamerr.InvalidLength, "mapping pool overruns blob")
	}
	mappingPool := blob[consumed : consumed+mappingPoolBytes]
	consumed += mappingPoolBytes

	listingWords := listingOffsets[listingCount]
	if listingWords < 0 || listingWords > maxCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "listing pool length %d out of range", listingWords)
	}
	listingPoolBytes := int64(listingWords) * 4
	if consumed+listingPoolBytes > int64(len(blob)) {
		return nil, iamerr.New(component, iamerr.InvalidLength, "listing pool overruns blob")
	}
	listingPool := blob[consumed : consumed+listingPoolBytes]
	consumed += listingPoolBytes

	if consumed != int64(len(blob)) {
		return nil, iamerr.New(component, iamerr.InvalidLength, "index consumed %d of %d bytes", consumed, len(blob))
	}

	mappings := make([]*mapping.Mapping, 0, mappingCount)
	for i := int32(0); i < mappingCount; i++ {
		start := int64(mappingOffsets[i]) * 4
		end := int64(mappingOffsets[i+1]) * 4
		if start < 0 || end < start || end > int64(len(mappingPool)) {
			return nil, iamerr.New(component, iamerr.InvalidOffset, "mapping_offsets[%d] out of range", i)
		}
		m, err := mapping.New(mappingPool[start:end])
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	listings := make([]*listing.Listing, 0, listingCount)
	for i := int32(0); i < listingCount; i++ {
		start := int64(listingOffsets[i]) * 4
		end := int64(listingOffsets[i+1]) * 4
		if start < 0 || end < start || end > int64(len(listingPool)) {
			return nil, iamerr.New(component, iamerr.InvalidOffset, "listing_offsets[%d] out of range", i)
		}
		l, err := listing.New(listingPool[start:end])
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return &Index{mappings: mappings, listings: listings}, nil
}

func readOffsets(blob []byte, consumed int64, count int32) ([]int32, int64, error) {
	byteLen := int64(count) * 4
	if consumed+byteLen > int64(len(blob)) {
		return nil, consumed, iamerr.New(component, iamerr.InvalidLength, "offset array overruns blob")
	}
	offsets := make([]int32, count)
	for i := int32(0); i < count; i++ {
		off := consumed + int64(i)*4
		offsets[i] = int32(binary.LittleEndian.Uint32(blob[off : off+4]))
	}
	return offsets, consumed + byteLen, nil
}

// Listing returns the i-th listing, or nil if i is out of range.
func (idx *Index) Listing(i int32) *listing.Listing {
	if i < 0 || int(i) >= len(idx.listings) {
		return nil
	}
	return idx.listings[i]
}

// Mapping returns the i-th mapping, or nil if i is out of range.
func (idx *Index) Mapping(i int32) *mapping.Mapping {
	if i < 0 || int(i) >= len(idx.mappings) {
		return nil
	}
	return idx.mappings[i]
}

// ListingCount returns the number of listings.
func (idx *Index) ListingCount() int32 { return int32(len(idx.listings)) }

// MappingCount returns the number of mappings.
func (idx *Index) MappingCount() int32 { return int32(len(idx.mappings)) }

// Check validates every contained listing's and mapping's internal offset
// tables, aggregating all failures rather than stopping at the first.
func (idx *Index) Check() error {
	var errs error
	for _, l := range idx.listings {
		if err := l.Check(); err != nil {
			errs = multierr.Append(errs, iamerr.Wrap(component, iamerr.InvalidOffset, err))
		}
	}
	for _, m := range idx.mappings {
		if err := m.Check(); err != nil {
			errs = multierr.Append(errs, iamerr.Wrap(component, iamerr.InvalidOffset, err))
		}
	}
	return errs
}

// Close releases the Index's share of the backing region, if any.
func (idx *Index) Close() {
	idx.region.Close()
}

// IsInvalidHeader reports whether err is an index InvalidHeader failure.
func IsInvalidHeader(err error) bool { return iamerr.Is(err, iamerr.InvalidHeader) }

// IsInvalidValue reports whether err is an index InvalidValue failure.
func IsInvalidValue(err error) bool { return iamerr.Is(err, iamerr.InvalidValue) }

// IsInvalidLength reports whether err is an index InvalidLength failure.
func IsInvalidLength(err error) bool { return iamerr.Is(err, iamerr.InvalidLength) }

// IsInvalidOffset reports whether err is an index InvalidOffset failure.
func IsInvalidOffset(err error) bool { return iamerr.Is(err, iamerr.InvalidOffset) }
