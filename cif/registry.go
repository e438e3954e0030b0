package cif

import (
	"sort"
	"strings"
)

// CellType declares the decoded type of a keyword's slot value. Text-mode
// keywords are always CellString; binary-mode keywords may declare any of
// the three.
type CellType uint8

const (
	CellString CellType = iota
	CellInt
	CellFloat
)

// Slot holds the per-read value of one registered keyword. It is reset
// (and any owned string storage released) after each row callback.
type Slot struct {
	Name    string
	Type    CellType
	InFile  bool
	Omitted bool
	Unknown bool

	// Observed persists across the per-row reset: it is true once the
	// keyword has been seen at least once anywhere in the current block,
	// and is cleared only between blocks (see Reader.checkUnusedKeywords).
	Observed bool

	// strVal holds the string value when Type == CellString, or a
	// stringified fallback for numeric types when a caller asks for
	// one. owned indicates whether strVal is a copy made by the slot
	// (must be retained across line/refill boundaries) as opposed to a
	// borrowed view into the tokenizer's current line.
	strVal string
	owned  bool

	intVal   int32
	floatVal float64
}

// String returns the slot's string value. Valid only when InFile is true
// and neither Omitted nor Unknown is set.
func (s *Slot) String() string { return s.strVal }

// Int returns the slot's int32 value. Valid only when Type == CellInt.
func (s *Slot) Int() int32 { return s.intVal }

// Float returns the slot's float64 value. Valid only when Type == CellFloat.
func (s *Slot) Float() float64 { return s.floatVal }

func (s *Slot) reset() {
	s.InFile = false
	s.Omitted = false
	s.Unknown = false
	s.strVal = ""
	s.owned = false
	s.intVal = 0
	s.floatVal = 0
}

// setOwnedString copies v into the slot so it survives past the current
// line or refill.
func (s *Slot) setOwnedString(v string) {
	b := make([]byte, len(v))
	copy(b, v)
	s.strVal = string(b)
	s.owned = true
}

// setBorrowedString stores v without copying; the caller guarantees v
// remains valid until the slot is next reset or overwritten.
func (s *Slot) setBorrowedString(v string) {
	s.strVal = v
	s.owned = false
}

// RowCallback is invoked once per row (text loop row, single-value
// category, or binary row) with the category's handle.
type RowCallback func(cat *Category) error

// EndFrameCallback fires once per registered category at each save-frame
// boundary (text mode only).
type EndFrameCallback func(cat *Category) error

// FinalizeCallback fires once per registered category at end of block.
type FinalizeCallback func(cat *Category) error

// Category is a registered table: a case-insensitive name, an ordered,
// finalized set of keyword slots, and the three optional callbacks plus
// opaque caller state.
type Category struct {
	Name string

	dataCB     RowCallback
	endFrameCB EndFrameCallback
	finalizeCB FinalizeCallback

	State   interface{}
	release func(interface{})

	keywords      []*Slot
	keywordSorted bool // keywords sorted by lowercase name

	pending bool // at least one keyword observed since last callback
}

// Keywords returns the category's registered keyword slots for callback
// iteration. The slice is in registration order until the first Keyword
// lookup, which sorts it in place by lowercase name; after that it is in
// sorted order.
func (c *Category) Keywords() []*Slot {
	return c.keywords
}

// Keyword returns the slot registered under name (case-insensitive), or
// nil if no such keyword was registered.
func (c *Category) Keyword(name string) *Slot {
	i := c.sortedIndex(lower(name))
	if i < 0 {
		return nil
	}
	return c.keywords[i]
}

func lower(s string) string {
	return strings.ToLower(s)
}

// finalizeKeywordOrder sorts the keyword list by lowercase name exactly
// once, on first lookup after the most recent registration. Subsequent
// lookups reuse the sorted order via binary search.
func (c *Category) finalizeKeywordOrder() {
	if c.keywordSorted {
		return
	}
	sort.Slice(c.keywords, func(i, j int) bool {
		return lower(c.keywords[i].Name) < lower(c.keywords[j].Name)
	})
	c.keywordSorted = true
}

func (c *Category) sortedIndex(lowerName string) int {
	c.finalizeKeywordOrder()
	n := len(c.keywords)
	i := sort.Search(n, func(i int) bool {
		return lower(c.keywords[i].Name) >= lowerName
	})
	if i < n && lower(c.keywords[i].Name) == lowerName {
		return i
	}
	return -1
}

func (c *Category) resetSlots() {
	for _, s := range c.keywords {
		s.reset()
	}
	c.pending = false
}

// registry is the case-insensitive category→*Category map used by the
// dispatcher. Like Category's keyword list, it is a flat slice sorted
// lazily on first lookup after a registration, rather than a hash table:
// the number of categories per file is small (tens), so a sorted array
// with binary search is both simpler and more cache-friendly than
// hashing.
type registry struct {
	cats   []*Category
	sorted bool
}

func (r *registry) register(cat *Category) {
	r.cats = append(r.cats, cat)
	r.sorted = false
}

// remove drops the category registered under name, if any.
func (r *registry) remove(name string) {
	ln := lower(name)
	for i, c := range r.cats {
		if lower(c.Name) == ln {
			r.cats = append(r.cats[:i], r.cats[i+1:]...)
			r.sorted = false
			return
		}
	}
}

func (r *registry) clear() {
	r.cats = nil
	r.sorted = false
}

func (r *registry) ensureSorted() {
	if r.sorted {
		return
	}
	sort.Slice(r.cats, func(i, j int) bool {
		return lower(r.cats[i].Name) < lower(r.cats[j].Name)
	})
	r.sorted = true
}

func (r *registry) lookup(name string) *Category {
	r.ensureSorted()
	ln := lower(name)
	n := len(r.cats)
	i := sort.Search(n, func(i int) bool {
		return lower(r.cats[i].Name) >= ln
	})
	if i < n && lower(r.cats[i].Name) == ln {
		return r.cats[i]
	}
	return nil
}

func (r *registry) each(fn func(*Category)) {
	for _, c := range r.cats {
		fn(c)
	}
}
