package bex

// Internal tag space: the lower 3 bits of a packed key.
const (
	tagVoid uint8 = iota
	tagAttr
	tagElem
	tagText
	tagEltx

	// tagChldListReq and tagAttrListReq never appear in a constructed
	// Node's key; they're only valid as the tag of a key passed to
	// (*BexFile).List, selecting which of the target element's two list
	// kinds to return.
	tagChldListReq
	tagAttrListReq
)

// Public tag space, returned by Node.Type(). ELTX collapses to TextNode.
const (
	VoidNode uint8 = iota
	ElemNode
	AttrNode
	TextNode
)

func packKey(tag uint8, ref int32) uint32 {
	return (uint32(ref) << 3) | uint32(tag)
}

func tagOf(key uint32) uint8   { return uint8(key & 0x7) }
func refOf(key uint32) int32   { return int32(key >> 3) }

// Node is a cursor identifying one BEX entity by its packed (ref, tag) key.
// It carries a share of the owning BexFile; nodes are cheap, stateless
// derivations of the key and never cache decoded data.
type Node struct {
	file *BexFile
	key  uint32
}

func voidNode(f *BexFile) Node { return Node{file: f, key: packKey(tagVoid, 0)} }

// Key returns the packed 32-bit key identifying this node. A key obtained
// this way always resolves back to an equivalent node through
// (*BexFile).Node.
func (n Node) Key() uint32 { return n.key }

// Type reports the node's public kind.
func (n Node) Type() uint8 {
	switch tagOf(n.key) {
	case tagAttr:
		return AttrNode
	case tagElem:
		return ElemNode
	case tagText, tagEltx:
		return TextNode
	default:
		return VoidNode
	}
}

func (n Node) isVoid() bool { return tagOf(n.key) == tagVoid }

// URI returns the node's namespace URI, or "" if it has none.
func (n Node) URI() string {
	s := n.file.schema
	idx := refOf(n.key)
	switch tagOf(n.key) {
	case tagAttr:
		if s.attrURIRef.Length() == 0 {
			return ""
		}
		return textAt(s.attrURIText, s.attrURIRef.Get(idx))
	case tagElem:
		if s.chldURIRef.Length() == 0 {
			return ""
		}
		return textAt(s.chldURIText, s.chldURIRef.Get(idx))
	default:
		return ""
	}
}

// Name returns the node's local name, or "" if it has none.
func (n Node) Name() string {
	s := n.file.schema
	idx := refOf(n.key)
	switch tagOf(n.key) {
	case tagAttr:
		return textAt(s.attrNameText, s.attrNameRef.Get(idx))
	case tagElem:
		return textAt(s.chldNameText, s.chldNameRef.Get(idx))
	default:
		return ""
	}
}

// Value returns the node's text content, or "" if it has none.
func (n Node) Value() string {
	s := n.file.schema
	idx := refOf(n.key)
	switch tagOf(n.key) {
	case tagAttr:
		return textAt(s.attrValueText, s.attrValueRef.Get(idx))
	case tagElem:
		content := s.chldContentRef.Get(idx)
		if content >= 0 {
			return textAt(s.chldValueText, content)
		}
		return n.Children().Get(0).Value()
	case tagText, tagEltx:
		return textAt(s.chldValueText, s.chldContentRef.Get(idx))
	default:
		return ""
	}
}

// Index returns this node's position within its parent's list, or -1 for
// the void node or when back-pointer tables are absent.
func (n Node) Index() int32 {
	s := n.file.schema
	idx := refOf(n.key)
	switch tagOf(n.key) {
	case tagAttr:
		if s.attrParentRef.Length() == 0 {
			return -1
		}
		parentIdx := s.attrParentRef.Get(idx)
		rangeKey := s.chldAttrRef.Get(parentIdx)
		return idx - s.attrListRange.Get(rangeKey)
	case tagElem, tagText:
		if s.chldParentRef.Length() == 0 {
			return -1
		}
		parentIdx := s.chldParentRef.Get(idx)
		rangeKey := -s.chldContentRef.Get(parentIdx)
		return idx - s.chldListRange.Get(rangeKey)
	case tagEltx:
		return 0
	default:
		return -1
	}
}

// Parent returns the owning element node, or the void node at the root or
// when back-pointers are unavailable.
func (n Node) Parent() Node {
	s := n.file.schema
	idx := refOf(n.key)
	switch tagOf(n.key) {
	case tagAttr:
		if s.attrParentRef.Length() == 0 {
			return voidNode(n.file)
		}
		return n.file.elemNode(s.attrParentRef.Get(idx))
	case tagElem, tagText:
		if s.chldParentRef.Length() == 0 {
			return voidNode(n.file)
		}
		pref := s.chldParentRef.Get(idx)
		if pref == idx {
			return voidNode(n.file)
		}
		return n.file.elemNode(pref)
	case tagEltx:
		return n.file.elemNode(idx)
	default:
		return voidNode(n.file)
	}
}

// Children returns the node's child list, or the empty (void) list for
// nodes that can't have children.
func (n Node) Children() List {
	if tagOf(n.key) != tagElem {
		return voidList(n.file)
	}
	s := n.file.schema
	idx := refOf(n.key)
	content := s.chldContentRef.Get(idx)
	if content >= 0 {
		return chtxList(n.file, idx)
	}
	return chldList(n.file, idx, -content)
}

// Attributes returns the node's attribute list, or the empty (void) list
// for nodes that can't carry attributes.
func (n Node) Attributes() List {
	if tagOf(n.key) != tagElem {
		return voidList(n.file)
	}
	s := n.file.schema
	idx := refOf(n.key)
	return attrList(n.file, idx, s.chldAttrRef.Get(idx))
}
