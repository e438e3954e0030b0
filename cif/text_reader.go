package cif

import "strings"

// textReader drives the data_/loop_/variable/save_ state machine over a
// tokenizer, dispatching matched values into the category registry.
type textReader struct {
	tok *tokenizer
	reg *registry

	unknownCatCB UnknownCategoryCallback
	unknownKeyCB UnknownKeywordCallback

	seenUnknownCat map[string]bool
	seenUnknownKey map[string]bool

	pendingBlock   *Token // an ungotten DataBlock token carried to the next ReadBlock call
	startedAtLeast bool
	inSaveFrame    bool
}

func newTextReader(buf *byteBuffer, reg *registry) *textReader {
	return &textReader{
		tok:            newTokenizer(buf),
		reg:            reg,
		seenUnknownCat: make(map[string]bool),
		seenUnknownKey: make(map[string]bool),
	}
}

// readBlock consumes one data block, dispatching row/end-frame/finalize
// callbacks, and reports whether more blocks follow.
func (tr *textReader) readBlock() (bool, error) {
	if tr.pendingBlock == nil {
		// Scan forward to the first (or next) data_ marker.
		for {
			t, ok, err := tr.tok.next(true)
			if err != nil {
				return false, tr.wrapTokenErr(err)
			}
			if !ok {
				return false, nil // EOF, no more blocks at all
			}
			if t.Kind == TokDataBlock {
				break
			}
			// Stray top-level tokens outside any data block are ignored.
		}
	} else {
		tr.pendingBlock = nil
	}

	tr.inSaveFrame = false
	for {
		t, ok, err := tr.tok.next(true)
		if err != nil {
			return false, tr.wrapTokenErr(err)
		}
		if !ok {
			tr.flushAllPending()
			tr.finalizeAll()
			return false, nil
		}

		switch t.Kind {
		case TokDataBlock:
			tr.pendingBlock = &t
			tr.flushAllPending()
			tr.finalizeAll()
			return true, nil

		case TokVariable:
			if err := tr.readValueLine(t); err != nil {
				return false, err
			}

		case TokLoop:
			if err := tr.readLoop(); err != nil {
				return false, err
			}

		case TokSaveFrame:
			if tr.inSaveFrame {
				tr.inSaveFrame = false
				if err := tr.fireEndFrame(); err != nil {
					return false, err
				}
			} else {
				tr.inSaveFrame = true
			}

		default:
			// Bare values/loop/unknown at top level outside a variable or
			// loop context are malformed but tolerated: ignored.
		}
	}
}

func (tr *textReader) wrapTokenErr(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return wrapErr(KindFileFormat, tr.tok.currentLineNumber(), err, "tokenizing")
}

func (tr *textReader) flushAllPending() {
	tr.reg.each(func(c *Category) {
		if c.pending {
			tr.fireRow(c)
		}
	})
}

func (tr *textReader) finalizeAll() {
	tr.reg.each(func(c *Category) {
		if c.finalizeCB != nil {
			_ = c.finalizeCB(c)
		}
	})
}

func (tr *textReader) fireEndFrame() error {
	var firstErr error
	tr.reg.each(func(c *Category) {
		if c.endFrameCB != nil {
			if err := c.endFrameCB(c); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if c.pending {
			if err := tr.fireRow(c); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

func (tr *textReader) fireRow(c *Category) error {
	var err error
	if c.dataCB != nil {
		err = c.dataCB(c)
	}
	c.resetSlots()
	if err != nil {
		return wrapErr(KindCallback, tr.tok.currentLineNumber(), err, "row callback for %s", c.Name)
	}
	return nil
}

func splitCategoryKeyword(name string) (category, keyword string, ok bool) {
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return "", "", false
	}
	return name[:dot], name[dot+1:], true
}

func (tr *textReader) lookup(varName string) (*Category, *Slot, string, string, bool) {
	catName, keyName, ok := splitCategoryKeyword(varName)
	if !ok {
		return nil, nil, catName, keyName, false
	}
	cat := tr.reg.lookup(catName)
	if cat == nil {
		return nil, nil, catName, keyName, true
	}
	slot := cat.Keyword(keyName)
	return cat, slot, catName, keyName, true
}

func (tr *textReader) notifyUnknownCategory(name string) {
	if tr.unknownCatCB == nil {
		return
	}
	key := lower(name)
	if tr.seenUnknownCat[key] {
		return
	}
	tr.seenUnknownCat[key] = true
	tr.unknownCatCB(name, tr.tok.currentLineNumber())
}

func (tr *textReader) notifyUnknownKeyword(cat, kw string) {
	if tr.unknownKeyCB == nil {
		return
	}
	key := lower(cat) + "." + lower(kw)
	if tr.seenUnknownKey[key] {
		return
	}
	tr.seenUnknownKey[key] = true
	tr.unknownKeyCB(cat, kw, tr.tok.currentLineNumber())
}

// readValueLine handles `_cat.key VALUE` outside a loop.
func (tr *textReader) readValueLine(varTok Token) error {
	cat, slot, catName, keyName, hadDot := tr.lookup(varTok.Str)
	if !hadDot {
		return newErr(KindFileFormat, tr.tok.currentLineNumber(), "no '.' found in mmCIF variable name %q", varTok.Str)
	}
	if cat == nil {
		tr.notifyUnknownCategory(catName)
		// Still must consume the value token.
		if _, _, err := tr.tok.next(false); err != nil {
			return tr.wrapTokenErr(err)
		}
		return nil
	}
	if slot == nil {
		tr.notifyUnknownKeyword(catName, keyName)
	}

	valTok, ok, err := tr.tok.next(false)
	if err != nil {
		return tr.wrapTokenErr(err)
	}
	if !ok || !isValueClass(valTok.Kind) {
		return newErr(KindFileFormat, tr.tok.currentLineNumber(), "no valid value found for %s.%s", catName, keyName)
	}
	if slot != nil {
		applyToken(slot, valTok, true)
		cat.pending = true
	}
	return nil
}

func isValueClass(k TokenKind) bool {
	return k == TokValue || k == TokOmitted || k == TokUnknown
}

// applyToken writes a matched value token into slot. own indicates
// whether the token's string must be copied (true when the value may
// not survive to the row callback without copying, i.e. multi-line
// rows) versus borrowed directly from the current line (one-line rows).
func applyToken(slot *Slot, tok Token, own bool) {
	slot.InFile = true
	slot.Observed = true
	slot.Omitted = false
	slot.Unknown = false
	switch tok.Kind {
	case TokOmitted:
		slot.Omitted = true
		slot.strVal = ""
		slot.owned = false
		return
	case TokUnknown:
		slot.Unknown = true
		slot.strVal = ""
		slot.owned = false
		return
	}

	switch slot.Type {
	case CellInt:
		slot.intVal = parseInt32(tok.Str)
	case CellFloat:
		slot.floatVal = parseFloat64(tok.Str)
	}
	if own {
		slot.setOwnedString(tok.Str)
	} else {
		slot.setBorrowedString(tok.Str)
	}
}

// readLoop implements the loop_ subroutine (spec §4.D).
func (tr *textReader) readLoop() error {
	var cat *Category
	var slots []*Slot
	var catName string
	first := true

	for {
		t, ok, err := tr.tok.next(false)
		if err != nil {
			return tr.wrapTokenErr(err)
		}
		if !ok || t.Kind != TokVariable {
			if ok {
				tr.tok.unget(t)
			}
			break
		}
		cn, kn, hadDot := splitCategoryKeyword(t.Str)
		if !hadDot {
			return newErr(KindFileFormat, tr.tok.currentLineNumber(), "no '.' found in mmCIF variable name %q", t.Str)
		}
		if first {
			catName = cn
			cat = tr.reg.lookup(cn)
			if cat == nil {
				tr.notifyUnknownCategory(cn)
			}
			first = false
		} else if !strings.EqualFold(cn, catName) {
			return newErr(KindFileFormat, tr.tok.currentLineNumber(), "mmCIF files cannot contain multiple categories within a single loop (%s, %s)", catName, cn)
		}
		var slot *Slot
		if cat != nil {
			slot = cat.Keyword(kn)
			if slot == nil {
				tr.notifyUnknownKeyword(catName, kn)
			}
		}
		slots = append(slots, slot)
	}

	if len(slots) == 0 {
		return newErr(KindFileFormat, tr.tok.currentLineNumber(), "loop_ with no variables")
	}

	nCols := len(slots)
	for {
		// Peek the next token at full fidelity (multiline content, if
		// any, is captured now) and unget it; the row-reading loop below
		// re-delivers this exact token as column 0.
		peek, ok, err := tr.tok.next(false)
		if err != nil {
			return tr.wrapTokenErr(err)
		}
		if !ok {
			return nil
		}
		if !isValueClass(peek.Kind) {
			tr.tok.unget(peek)
			return nil
		}
		oneLineRow := tr.tok.remainingOnLine()+1 >= nCols
		tr.tok.unget(peek)
		values := make([]Token, nCols)
		short := false
		for i := 0; i < nCols; i++ {
			vt, ok, err := tr.tok.next(false)
			if err != nil {
				return tr.wrapTokenErr(err)
			}
			if !ok || !isValueClass(vt.Kind) {
				if ok {
					tr.tok.unget(vt)
				}
				short = true
				break
			}
			values[i] = vt
		}
		if short {
			return newErr(KindFileFormat, tr.tok.currentLineNumber(), "short row in loop over %s (expected %d columns)", catName, nCols)
		}

		for i, slot := range slots {
			if slot == nil {
				continue
			}
			applyToken(slot, values[i], !oneLineRow)
		}
		if cat != nil {
			cat.pending = true
			if err := tr.fireRow(cat); err != nil {
				return err
			}
		}
	}
}
