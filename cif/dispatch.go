package cif

import "strings"

// UnknownCategoryCallback is invoked the first time a category name is
// referenced that was never registered. line is 0 in binary mode.
type UnknownCategoryCallback func(category string, line int)

// UnknownKeywordCallback is invoked the first time a keyword is
// referenced within a known category that was never registered for it.
// line is 0 in binary mode.
type UnknownKeywordCallback func(category, keyword string, line int)

// UnusedKeywordCallback is invoked once per block, for every registered
// keyword never observed in that block, when Reader.WarnUnusedKeywords
// is set. Unlike UnknownKeywordCallback this is about a keyword the
// caller registered but the file never supplied, not a keyword the file
// supplied that the caller never registered.
type UnusedKeywordCallback func(category, keyword string)

// CatHandle identifies a registered category for subsequent
// RegisterKeyword calls. It is the *Category itself; callbacks receive
// the same value.
type CatHandle = *Category

// RegisterCategory adds a new category to the reader. dataCB fires once
// per row; endFrameCB fires at each save-frame boundary (text mode
// only); finalizeCB fires once at end of block. Any of the three may be
// nil. state is arbitrary caller data passed back to the callbacks;
// release, if non-nil, is called with state when the category is
// dropped (by ClearCategories or reader teardown).
//
// Registering a category under a name that is already registered
// replaces the prior registration (and releases its state).
func (r *Reader) RegisterCategory(name string, dataCB RowCallback, endFrameCB EndFrameCallback, finalizeCB FinalizeCallback, state interface{}, release func(interface{})) CatHandle {
	if existing := r.reg.lookup(name); existing != nil {
		r.dropCategory(existing)
		r.reg.remove(name)
	}
	cat := &Category{
		Name:       name,
		dataCB:     dataCB,
		endFrameCB: endFrameCB,
		finalizeCB: finalizeCB,
		State:      state,
		release:    release,
	}
	r.reg.register(cat)
	return cat
}

// RegisterKeyword adds a keyword slot to a previously registered
// category. Text-mode readers should use CellString; binary-mode
// readers may declare CellInt or CellFloat to receive typed values.
//
// Registering a keyword name that is already present on the category
// replaces the prior slot (releasing any owned storage it held).
func (r *Reader) RegisterKeyword(cat CatHandle, name string, typ CellType) *Slot {
	for i, s := range cat.keywords {
		if strings.EqualFold(s.Name, name) {
			s.reset()
			s.Name = name
			s.Type = typ
			cat.keywords[i] = s
			return s
		}
	}
	slot := &Slot{Name: name, Type: typ}
	cat.keywords = append(cat.keywords, slot)
	cat.keywordSorted = false
	return slot
}

// SetUnknownCategoryCallback installs the callback fired the first time
// an unregistered category is referenced.
func (r *Reader) SetUnknownCategoryCallback(cb UnknownCategoryCallback) {
	r.unknownCatCB = cb
	if r.text != nil {
		r.text.unknownCatCB = cb
	}
	if r.binary != nil {
		r.binary.unknownCatCB = cb
	}
}

// SetUnknownKeywordCallback installs the callback fired the first time
// an unregistered keyword within a known category is referenced.
func (r *Reader) SetUnknownKeywordCallback(cb UnknownKeywordCallback) {
	r.unknownKeyCB = cb
	if r.text != nil {
		r.text.unknownKeyCB = cb
	}
	if r.binary != nil {
		r.binary.unknownKeyCB = cb
	}
}

// SetUnusedKeywordCallback installs the callback fired once per block
// for each registered keyword never observed in that block. Has no
// effect unless Reader.WarnUnusedKeywords is also set.
func (r *Reader) SetUnusedKeywordCallback(cb UnusedKeywordCallback) {
	r.unusedKeywordCB = cb
}

// ClearCategories drops every registered category (running release
// hooks) and resets the unknown-category/keyword callbacks and their
// once-per-name dedup state.
func (r *Reader) ClearCategories() {
	r.reg.each(r.dropCategory)
	r.reg.clear()
	r.unknownCatCB = nil
	r.unknownKeyCB = nil
	if r.text != nil {
		r.text.unknownCatCB = nil
		r.text.unknownKeyCB = nil
		r.text.seenUnknownCat = make(map[string]bool)
		r.text.seenUnknownKey = make(map[string]bool)
	}
	if r.binary != nil {
		r.binary.unknownCatCB = nil
		r.binary.unknownKeyCB = nil
		r.binary.seenUnknownCat = make(map[string]bool)
		r.binary.seenUnknownKey = make(map[string]bool)
	}
}

func (r *Reader) dropCategory(cat *Category) {
	if cat.release != nil {
		cat.release(cat.State)
	}
}
