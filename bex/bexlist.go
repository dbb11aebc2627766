package bex

// list tag space: which kind of row range a List walks.
const (
	listVoid uint8 = iota
	listChld
	listAttr
	listChtx // virtual single-element text list
)

// List is a cursor over a run of sibling nodes: an element's children, an
// element's attributes, or the single-element virtual text list of an
// element whose content is an inline string.
type List struct {
	file     *BexFile
	tag      uint8
	owner    int32 // owning element's row index, for Parent()
	rangeKey int32 // index into attr_list_range / chld_list_range
}

func voidList(f *BexFile) List { return List{file: f, tag: listVoid} }

func chtxList(f *BexFile, owner int32) List {
	return List{file: f, tag: listChtx, owner: owner}
}

func chldList(f *BexFile, owner, rangeKey int32) List {
	return List{file: f, tag: listChld, owner: owner, rangeKey: rangeKey}
}

func attrList(f *BexFile, owner, rangeKey int32) List {
	return List{file: f, tag: listAttr, owner: owner, rangeKey: rangeKey}
}

// Length returns the number of elements in the list.
func (l List) Length() int32 {
	s := l.file.schema
	switch l.tag {
	case listChtx:
		return 1
	case listChld:
		return s.chldListRange.Get(l.rangeKey+1) - s.chldListRange.Get(l.rangeKey)
	case listAttr:
		return s.attrListRange.Get(l.rangeKey+1) - s.attrListRange.Get(l.rangeKey)
	default:
		return 0
	}
}

// Get returns the i-th node, or the void node if i is out of range.
func (l List) Get(i int32) Node {
	if i < 0 || i >= l.Length() {
		return voidNode(l.file)
	}
	s := l.file.schema
	switch l.tag {
	case listChtx:
		return Node{file: l.file, key: packKey(tagEltx, l.owner)}
	case listChld:
		row := s.chldListRange.Get(l.rangeKey) + i
		if s.chldNameRef.Get(row) == 0 {
			return Node{file: l.file, key: packKey(tagText, row)}
		}
		return Node{file: l.file, key: packKey(tagElem, row)}
	case listAttr:
		row := s.attrListRange.Get(l.rangeKey) + i
		return Node{file: l.file, key: packKey(tagAttr, row)}
	default:
		return voidNode(l.file)
	}
}

// Find linearly scans from start, returning the (list-relative) index of
// the first node whose uri and name match, or -1. An empty uri or name
// acts as a wildcard for that field. Text nodes are never matched when
// scanning a child list. A negative start returns -1 immediately.
func (l List) Find(uri, name string, start int32) int32 {
	if start < 0 {
		return -1
	}
	n := l.Length()
	for i := start; i < n; i++ {
		node := l.Get(i)
		if l.tag == listChld && node.Type() == TextNode {
			continue
		}
		if uri != "" && node.URI() != uri {
			continue
		}
		if name != "" && node.Name() != name {
			continue
		}
		return i
	}
	return -1
}

// Parent returns the owning element node, or the void node for the void list.
func (l List) Parent() Node {
	if l.tag == listVoid {
		return voidNode(l.file)
	}
	return l.file.elemNode(l.owner)
}
