// Package bex implements BexFile, a read-only DOM projection over an
// iamindex.Index with a fixed 18-listing schema, plus its BexNode/BexList
// cursor types.
package bex

import (
	"github.com/rpcpool/iambex/iamerr"
	"github.com/rpcpool/iambex/iamindex"
	"github.com/rpcpool/iambex/intarray"
	"github.com/rpcpool/iambex/listing"
)

const component = "bex"

const headRootMagic = uint32(0xBE10BA5E)

// schema listing indices, per the fixed BEX layout.
const (
	slotHeadRoot = iota
	slotAttrURIText
	slotAttrNameText
	slotAttrValueText
	slotChldURIText
	slotChldNameText
	slotChldValueText
	slotAttrURIRef
	slotAttrNameRef
	slotAttrValueRef
	slotAttrParentRef
	slotChldURIRef
	slotChldNameRef
	slotChldContentRef
	slotChldAttributesRef
	slotChldParentRef
	slotAttrListRange
	slotChldListRange
	schemaListingCount
)

// schema holds the six dictionary listings, the single-item columns pulled
// out of the other "1 item" listings, and the root_ref from head_root, so
// every BexNode/BexList navigation is a direct IntArray.Get call with no
// repeated Item(0) indirection.
type schema struct {
	attrURIText   *listing.Listing
	attrNameText  *listing.Listing
	attrValueText *listing.Listing
	chldURIText   *listing.Listing
	chldNameText  *listing.Listing
	chldValueText *listing.Listing

	attrURIRef      intarray.IntArray
	attrNameRef     intarray.IntArray
	attrValueRef    intarray.IntArray
	attrParentRef   intarray.IntArray
	chldURIRef      intarray.IntArray
	chldNameRef     intarray.IntArray
	chldContentRef  intarray.IntArray
	chldAttrRef     intarray.IntArray
	chldParentRef   intarray.IntArray
	attrListRange   intarray.IntArray
	chldListRange   intarray.IntArray

	attrCount int32
	chldCount int32
	rootRef   int32
}

func buildSchema(idx *iamindex.Index) (*schema, error) {
	if idx.MappingCount() != 0 {
		return nil, iamerr.New(component, iamerr.InvalidValue, "bex index must have 0 mappings, got %d", idx.MappingCount())
	}
	if idx.ListingCount() != schemaListingCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "bex index must have %d listings, got %d", schemaListingCount, idx.ListingCount())
	}

	headRoot := idx.Listing(slotHeadRoot)
	if headRoot.ItemCount() != 1 {
		return nil, iamerr.New(component, iamerr.InvalidValue, "head_root must have exactly 1 item")
	}
	head := headRoot.Item(0)
	if head.Length() < 2 {
		return nil, iamerr.New(component, iamerr.InvalidValue, "head_root item must have at least 2 elements")
	}
	if uint32(head.Get(0)) != headRootMagic {
		return nil, iamerr.New(component, iamerr.InvalidValue, "bad head_root magic: %#x", uint32(head.Get(0)))
	}

	s := &schema{
		attrURIText:   idx.Listing(slotAttrURIText),
		attrNameText:  idx.Listing(slotAttrNameText),
		attrValueText: idx.Listing(slotAttrValueText),
		chldURIText:   idx.Listing(slotChldURIText),
		chldNameText:  idx.Listing(slotChldNameText),
		chldValueText: idx.Listing(slotChldValueText),
		rootRef:       head.Get(1),
	}

	column := func(slot int32) (intarray.IntArray, error) {
		l := idx.Listing(slot)
		if l.ItemCount() != 1 {
			return intarray.Empty(), iamerr.New(component, iamerr.InvalidValue, "schema listing %d must have exactly 1 item", slot)
		}
		return l.Item(0), nil
	}
	// optionalColumn reads a *_parent_ref slot, which may also be a listing
	// with no items; that form reads as an empty (length-0) column.
	optionalColumn := func(slot int32) (intarray.IntArray, error) {
		if idx.Listing(slot).ItemCount() == 0 {
			return intarray.Empty(), nil
		}
		return column(slot)
	}

	var err error
	if s.attrURIRef, err = column(slotAttrURIRef); err != nil {
		return nil, err
	}
	if s.attrNameRef, err = column(slotAttrNameRef); err != nil {
		return nil, err
	}
	if s.attrValueRef, err = column(slotAttrValueRef); err != nil {
		return nil, err
	}
	if s.attrParentRef, err = optionalColumn(slotAttrParentRef); err != nil {
		return nil, err
	}
	if s.chldURIRef, err = column(slotChldURIRef); err != nil {
		return nil, err
	}
	if s.chldNameRef, err = column(slotChldNameRef); err != nil {
		return nil, err
	}
	if s.chldContentRef, err = column(slotChldContentRef); err != nil {
		return nil, err
	}
	if s.chldAttrRef, err = column(slotChldAttributesRef); err != nil {
		return nil, err
	}
	if s.chldParentRef, err = optionalColumn(slotChldParentRef); err != nil {
		return nil, err
	}
	if s.attrListRange, err = column(slotAttrListRange); err != nil {
		return nil, err
	}
	if s.chldListRange, err = column(slotChldListRange); err != nil {
		return nil, err
	}

	s.attrCount = s.attrNameRef.Length()
	s.chldCount = s.chldNameRef.Length()

	if s.attrValueRef.Length() != s.attrCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "attr_value_ref length mismatch")
	}
	if s.attrURIRef.Length() != 0 && s.attrURIRef.Length() != s.attrCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "attr_uri_ref length mismatch")
	}
	if s.attrParentRef.Length() != 0 && s.attrParentRef.Length() != s.attrCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "attr_parent_ref length mismatch")
	}
	if s.chldURIRef.Length() != 0 && s.chldURIRef.Length() != s.chldCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "chld_uri_ref length mismatch")
	}
	if s.chldContentRef.Length() != s.chldCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "chld_content_ref length mismatch")
	}
	if s.chldAttrRef.Length() != s.chldCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "chld_attributes_ref length mismatch")
	}
	if s.chldParentRef.Length() != 0 && s.chldParentRef.Length() != s.chldCount {
		return nil, iamerr.New(component, iamerr.InvalidValue, "chld_parent_ref length mismatch")
	}
	if s.attrListRange.Length() < 2 {
		return nil, iamerr.New(component, iamerr.InvalidValue, "attr_list_range must have at least 2 elements")
	}
	if s.chldListRange.Length() < 3 {
		return nil, iamerr.New(component, iamerr.InvalidValue, "chld_list_range must have at least 3 elements")
	}

	return s, nil
}

// textAt returns the null-terminated byte string stored at dict item ref,
// with the trailing NUL stripped, or "" for any out-of-range ref.
func textAt(dict *listing.Listing, ref int32) string {
	item := dict.Item(ref)
	n := item.Length()
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	for i := int32(0); i < n; i++ {
		buf[i] = byte(item.Get(i))
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}
