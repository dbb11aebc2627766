package bex

import (
	"github.com/rpcpool/iambex/iamerr"
	"github.com/rpcpool/iambex/iamindex"
)

// BexFile is a read-only DOM projection over an Index with exactly 0
// mappings and 18 listings (see schema.go). It holds a share of the
// Index, which in turn holds a share of the backing byteregion.Region, so
// every Node/List derived from it stays valid for the BexFile's lifetime.
type BexFile struct {
	index  *iamindex.Index
	schema *schema
}

// Option configures Open/FromIndex.
type Option func(*options)

type options struct {
	validate bool
}

// WithValidate opts into running the underlying Index's Check() (offset
// table validation of every schema listing) during Open/FromIndex. Off by
// default: listing.New already rejects non-monotone offset tables, so for
// an Index parsed by this module the pass repeats checks that construction
// has made, at the cost of an extra walk over every listing.
func WithValidate() Option {
	return func(o *options) { o.validate = true }
}

// Open memory-maps path and builds a BexFile from its contents.
func Open(path string, readOnly bool, opts ...Option) (*BexFile, error) {
	idx, err := iamindex.Open(path, readOnly)
	if err != nil {
		return nil, err
	}
	f, err := FromIndex(idx, opts...)
	if err != nil {
		idx.Close()
		return nil, err
	}
	return f, nil
}

// FromIndex builds a BexFile by enforcing the fixed schema against an
// already-parsed Index.
func FromIndex(idx *iamindex.Index, opts ...Option) (*BexFile, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.validate {
		if err := idx.Check(); err != nil {
			return nil, iamerr.Wrap(component, iamerr.InvalidOffset, err)
		}
	}
	s, err := buildSchema(idx)
	if err != nil {
		return nil, err
	}
	return &BexFile{index: idx, schema: s}, nil
}

// Root returns the document's root element node, or the void node if
// root_ref is negative or doesn't name a valid element row.
func (f *BexFile) Root() Node {
	if f.schema.rootRef < 0 {
		return voidNode(f)
	}
	return f.elemNode(f.schema.rootRef)
}

// elemNode validates idx against the child table's bounds and the
// element-vs-text discriminator, returning the void node on any mismatch.
func (f *BexFile) elemNode(idx int32) Node {
	if idx < 0 || idx >= f.schema.chldCount {
		return voidNode(f)
	}
	if f.schema.chldNameRef.Get(idx) == 0 {
		return voidNode(f)
	}
	return Node{file: f, key: packKey(tagElem, idx)}
}

// Node resolves a packed key to a node, validating it against the table's
// bounds and the element-vs-text discriminator. An invalid or narrowed key
// (e.g. asking for ELTX at a row that isn't an inline-text element) yields
// the void node.
func (f *BexFile) Node(key uint32) Node {
	tag := tagOf(key)
	idx := refOf(key)
	s := f.schema

	switch tag {
	case tagVoid:
		return voidNode(f)
	case tagAttr:
		if idx < 0 || idx >= s.attrCount {
			return voidNode(f)
		}
		return Node{file: f, key: packKey(tagAttr, idx)}
	case tagElem:
		return f.elemNode(idx)
	case tagText:
		if idx < 0 || idx >= s.chldCount {
			return voidNode(f)
		}
		if s.chldNameRef.Get(idx) != 0 {
			return voidNode(f)
		}
		return Node{file: f, key: packKey(tagText, idx)}
	case tagEltx:
		if idx < 0 || idx >= s.chldCount {
			return voidNode(f)
		}
		if s.chldNameRef.Get(idx) == 0 {
			return voidNode(f)
		}
		if s.chldContentRef.Get(idx) < 0 {
			return voidNode(f)
		}
		return Node{file: f, key: packKey(tagEltx, idx)}
	default:
		return voidNode(f)
	}
}

// List resolves a packed key to a list. The key's tag selects which of the
// target element row's two list kinds to return (tagChldListReq,
// tagAttrListReq); any other tag, or a ref that isn't a valid element row,
// yields the void list.
func (f *BexFile) List(key uint32) List {
	tag := tagOf(key)
	idx := refOf(key)

	elem := f.elemNode(idx)
	if elem.isVoid() {
		return voidList(f)
	}
	switch tag {
	case tagChldListReq:
		return elem.Children()
	case tagAttrListReq:
		return elem.Attributes()
	default:
		return voidList(f)
	}
}

// Close releases the BexFile's share of the underlying Index (and, in
// turn, its backing region).
func (f *BexFile) Close() {
	f.index.Close()
}

// IsInvalidHeader reports whether err is a bex InvalidHeader failure.
func IsInvalidHeader(err error) bool { return iamerr.Is(err, iamerr.InvalidHeader) }

// IsInvalidValue reports whether err is a bex InvalidValue failure.
func IsInvalidValue(err error) bool { return iamerr.Is(err, iamerr.InvalidValue) }

// IsInvalidLength reports whether err is a bex InvalidLength failure.
func IsInvalidLength(err error) bool { return iamerr.Is(err, iamerr.InvalidLength) }

// IsInvalidOffset reports whether err is a bex InvalidOffset failure.
func IsInvalidOffset(err error) bool { return iamerr.Is(err, iamerr.InvalidOffset) }
