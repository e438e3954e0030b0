package cif

import "io"

// FormatMode selects which grammar a Reader speaks.
type FormatMode uint8

const (
	FormatText FormatMode = iota
	FormatBinary
)

// Reader is the public entry point: it owns a byte-buffered pull
// source, a category registry, and (depending on how it was
// constructed) either a text or binary decode path. It is not
// reentrant and not safe for concurrent use.
type Reader struct {
	mode FormatMode
	reg  *registry

	text   *textReader
	binary *binaryReader

	unknownCatCB UnknownCategoryCallback
	unknownKeyCB UnknownKeywordCallback

	// WarnUnusedKeywords, when true, makes ReadBlock fire
	// unusedKeywordCB (set via SetUnusedKeywordCallback) once per block
	// for every registered keyword that was never observed in that
	// block at all — distinct from an observed-but-omitted keyword.
	WarnUnusedKeywords bool
	unusedKeywordCB    UnusedKeywordCallback

	closed bool
}

// NewTextReader constructs a Reader over the mmCIF text grammar.
func NewTextReader(src io.Reader) *Reader {
	reg := &registry{}
	buf := newByteBuffer(src)
	return &Reader{
		mode: FormatText,
		reg:  reg,
		text: newTextReader(buf, reg),
	}
}

// NewBinaryReader constructs a Reader over the BinaryCIF grammar.
func NewBinaryReader(src io.Reader) *Reader {
	reg := &registry{}
	buf := newByteBuffer(src)
	return &Reader{
		mode:   FormatBinary,
		reg:    reg,
		binary: newBinaryReader(newObjectReader(buf), reg),
	}
}

// ReadBlock consumes one data block, driving whichever registered
// callbacks match the content, and reports whether more blocks follow.
func (r *Reader) ReadBlock() (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	var more bool
	var err error
	switch r.mode {
	case FormatText:
		more, err = r.text.readBlock()
	case FormatBinary:
		more, err = r.binary.readBlock()
	default:
		return false, newErr(KindValue, 0, "reader has no format mode")
	}
	if err != nil {
		return false, err
	}
	r.checkUnusedKeywords()
	return more, nil
}

// checkUnusedKeywords runs after a block finalizes: it reports every
// registered keyword that was never observed in the block just read
// (text or binary), then clears each keyword's observed mark for the
// next block.
func (r *Reader) checkUnusedKeywords() {
	warn := r.WarnUnusedKeywords && r.unusedKeywordCB != nil
	r.reg.each(func(c *Category) {
		for _, s := range c.keywords {
			if warn && !s.Observed {
				r.unusedKeywordCB(c.Name, s.Name)
			}
			s.Observed = false
		}
	})
}

// Close releases every registered category (running its release hook)
// and marks the reader unusable. It is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.ClearCategories()
	r.closed = true
	return nil
}
