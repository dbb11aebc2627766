package bex

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/iambex/iamerr"
	"github.com/rpcpool/iambex/iamindex"
)

const listingMagicShifted = uint32(0xF00D200) << 4
const indexMagic = uint32(0xF00DBA5E)

func putWord(buf []byte, v uint32) []byte {
	word := make([]byte, 4)
	binary.LittleEndian.PutUint32(word, v)
	return append(buf, word...)
}

func pad4(buf []byte) []byte {
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func packWidth(dataWidth uint8, v int32) []byte {
	switch dataWidth {
	case 1:
		return []byte{byte(v)}
	case 2:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	default:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}
}

// buildStaticListing builds a single-item (or uniform-length multi-item)
// static listing, mirroring listing.go's own wire layout.
func buildStaticListing(dataWidth uint8, items [][]int32) []byte {
	itemCount := int32(len(items))
	var staticLen int32
	if itemCount > 0 {
		staticLen = int32(len(items[0]))
	}
	buf := putWord(nil, listingMagicShifted|uint32(dataWidth))
	buf = putWord(buf, uint32(itemCount))
	buf = putWord(buf, uint32(staticLen))
	for _, it := range items {
		for _, v := range it {
			buf = append(buf, packWidth(dataWidth, v)...)
		}
	}
	return pad4(buf)
}

// buildDictListing builds a width-1, width-2-offset dynamic listing of raw
// byte strings, one per dictionary entry.
func buildDictListing(items [][]byte) []byte {
	const dataWidth, offsetWidth uint8 = 1, 2
	itemCount := int32(len(items))
	header := listingMagicShifted | uint32(dataWidth) | uint32(offsetWidth)<<2

	offsets := make([]int32, itemCount+1)
	var total int32
	for i, it := range items {
		offsets[i] = total
		total += int32(len(it))
	}
	offsets[itemCount] = total

	buf := putWord(nil, header)
	buf = putWord(buf, uint32(itemCount))
	offBuf := make([]byte, 0, len(offsets)*2)
	for _, o := range offsets {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(o))
		offBuf = append(offBuf, b...)
	}
	buf = append(buf, pad4(offBuf)...)

	dataBuf := make([]byte, 0, total)
	for _, it := range items {
		dataBuf = append(dataBuf, it...)
	}
	buf = append(buf, pad4(dataBuf)...)
	return buf
}

// buildIndex assembles the 18 schema listings (in schema slot order) into
// an Index blob with 0 mappings.
func buildIndex(t *testing.T, listings [][]byte) []byte {
	t.Helper()
	require.Len(t, listings, schemaListingCount)

	offsets := make([]int32, len(listings)+1)
	var total int32
	for i, l := range listings {
		require.Zero(t, len(l)%4)
		offsets[i] = total
		total += int32(len(l) / 4)
	}
	offsets[len(listings)] = total

	buf := putWord(nil, indexMagic)
	buf = putWord(buf, 0)                     // mapping_count
	buf = putWord(buf, uint32(len(listings)))  // listing_count
	buf = putWord(buf, 0)                      // mapping_offsets[0]
	for _, o := range offsets {
		buf = putWord(buf, uint32(o))
	}
	for _, l := range listings {
		buf = append(buf, l...)
	}
	return buf
}

func bexMagicWord() int32 {
	return int32(uint32(headRootMagic))
}

// buildSimpleTreeIndex builds the S4 fixture: <a><b/>text</a>.
func buildSimpleTreeIndex(t *testing.T) []byte {
	t.Helper()
	listings := make([][]byte, schemaListingCount)

	listings[slotHeadRoot] = buildStaticListing(3, [][]int32{{bexMagicWord(), 0}})
	listings[slotAttrURIText] = buildDictListing(nil)
	listings[slotAttrNameText] = buildDictListing(nil)
	listings[slotAttrValueText] = buildDictListing(nil)
	listings[slotChldURIText] = buildDictListing(nil)
	listings[slotChldNameText] = buildDictListing([][]byte{{}, {'a', 0}, {'b', 0}})
	listings[slotChldValueText] = buildDictListing([][]byte{{}, {'t', 'e', 'x', 't', 0}})

	listings[slotAttrURIRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotAttrNameRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotAttrValueRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotAttrParentRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotChldURIRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotChldNameRef] = buildStaticListing(3, [][]int32{{1, 2, 0}})
	listings[slotChldContentRef] = buildStaticListing(3, [][]int32{{-2, -1, 1}})
	listings[slotChldAttributesRef] = buildStaticListing(3, [][]int32{{0, 0, 0}})
	listings[slotChldParentRef] = buildStaticListing(3, [][]int32{{0, 0, 0}})
	listings[slotAttrListRange] = buildStaticListing(3, [][]int32{{0, 0}})
	listings[slotChldListRange] = buildStaticListing(3, [][]int32{{0, 1, 1, 3}})

	return buildIndex(t, listings)
}

func TestBexRoundTripSimpleTree(t *testing.T) {
	idx, err := iamindex.FromBytes(buildSimpleTreeIndex(t))
	require.NoError(t, err)
	bf, err := FromIndex(idx)
	require.NoError(t, err)

	root := bf.Root()
	require.Equal(t, ElemNode, root.Type())
	require.Equal(t, "a", root.Name())
	require.Equal(t, VoidNode, root.Parent().Type())

	children := root.Children()
	require.EqualValues(t, 2, children.Length())

	b := children.Get(0)
	require.Equal(t, ElemNode, b.Type())
	require.Equal(t, "b", b.Name())
	require.EqualValues(t, 0, b.Children().Length())

	text := children.Get(1)
	require.Equal(t, TextNode, text.Type())
	require.Equal(t, "text", text.Value())
	require.Equal(t, root.Key(), text.Parent().Key())
	require.EqualValues(t, 1, text.Index())

	require.Equal(t, "", root.Value())

	// Key round trip: a key obtained from a node resolves back to an
	// equivalent node.
	resolved := bf.Node(text.Key())
	require.Equal(t, text.Key(), resolved.Key())
	require.Equal(t, TextNode, resolved.Type())
}

// buildInlineTextIndex builds the S5 fixture: <x>hello</x>.
func buildInlineTextIndex(t *testing.T) []byte {
	t.Helper()
	listings := make([][]byte, schemaListingCount)

	listings[slotHeadRoot] = buildStaticListing(3, [][]int32{{bexMagicWord(), 0}})
	listings[slotAttrURIText] = buildDictListing(nil)
	listings[slotAttrNameText] = buildDictListing(nil)
	listings[slotAttrValueText] = buildDictListing(nil)
	listings[slotChldURIText] = buildDictListing(nil)
	listings[slotChldNameText] = buildDictListing([][]byte{{}, {'x', 0}})
	listings[slotChldValueText] = buildDictListing([][]byte{{}, {'h', 'e', 'l', 'l', 'o', 0}})

	listings[slotAttrURIRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotAttrNameRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotAttrValueRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotAttrParentRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotChldURIRef] = buildStaticListing(3, [][]int32{{}})
	listings[slotChldNameRef] = buildStaticListing(3, [][]int32{{1}})
	listings[slotChldContentRef] = buildStaticListing(3, [][]int32{{1}})
	listings[slotChldAttributesRef] = buildStaticListing(3, [][]int32{{0}})
	listings[slotChldParentRef] = buildStaticListing(3, [][]int32{{0}})
	listings[slotAttrListRange] = buildStaticListing(3, [][]int32{{0, 0}})
	listings[slotChldListRange] = buildStaticListing(3, [][]int32{{0, 0, 0}})

	return buildIndex(t, listings)
}

func TestBexInlineTextContent(t *testing.T) {
	idx, err := iamindex.FromBytes(buildInlineTextIndex(t))
	require.NoError(t, err)
	bf, err := FromIndex(idx)
	require.NoError(t, err)

	root := bf.Root()
	require.Equal(t, ElemNode, root.Type())
	require.Equal(t, "hello", root.Value())

	children := root.Children()
	require.EqualValues(t, 1, children.Length())

	child := children.Get(0)
	require.Equal(t, TextNode, child.Type())
	require.Equal(t, "hello", child.Value())
	require.Equal(t, root.Key(), child.Parent().Key())
	require.EqualValues(t, 0, child.Index())
}

func TestBexSchemaWrongListingCountIsInvalidValue(t *testing.T) {
	buf := putWord(nil, indexMagic)
	buf = putWord(buf, 0)
	buf = putWord(buf, 0) // listing_count == 0, not 18
	buf = putWord(buf, 0)
	buf = putWord(buf, 0)

	idx, err := iamindex.FromBytes(buf)
	require.NoError(t, err)

	_, err = FromIndex(idx)
	require.Error(t, err)
	require.True(t, iamerr.Is(err, iamerr.InvalidValue))
}

func TestBexIndexBadMagicIsInvalidHeader(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf, 0xDEADBEEF)
	_, err := iamindex.FromBytes(buf)
	require.Error(t, err)
	require.True(t, iamerr.Is(err, iamerr.InvalidHeader))
}
