package cif

import "strings"

// rawDataBlob is a column's data or mask sub-object, captured
// structurally (bytes + its encoding chain) before any decode work is
// done, so that unregistered columns can be dropped without paying for
// the decode pipeline.
type rawDataBlob struct {
	Data     []byte
	Encoding []Encoding
}

type rawColumn struct {
	Name string
	Data rawDataBlob
	Mask *rawDataBlob // nil when absent
}

type rawCategory struct {
	Name    string
	Columns []rawColumn
}

// binaryReader drives the binary decode pipeline: locate the
// dataBlocks array, then for each block decode its categories/columns
// and materialize rows through the same registry/dispatch machinery the
// text path uses.
type binaryReader struct {
	obj *objectReader
	reg *registry

	unknownCatCB UnknownCategoryCallback
	unknownKeyCB UnknownKeywordCallback
	seenUnknownCat map[string]bool
	seenUnknownKey map[string]bool

	headerRead      bool
	blocksRemaining int
}

func newBinaryReader(obj *objectReader, reg *registry) *binaryReader {
	return &binaryReader{
		obj:            obj,
		reg:            reg,
		seenUnknownCat: make(map[string]bool),
		seenUnknownKey: make(map[string]bool),
	}
}

// readHeader reads the top-level map, skipping every key other than
// dataBlocks, and records the number of blocks it introduces.
func (br *binaryReader) readHeader() error {
	n, err := br.obj.readMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := br.obj.readString()
		if err != nil {
			return err
		}
		if key == "dataBlocks" {
			arrLen, err := br.obj.readArrayLen()
			if err != nil {
				return err
			}
			br.blocksRemaining = arrLen
			br.headerRead = true
			return nil
		}
		if err := br.obj.skipAny(); err != nil {
			return err
		}
	}
	return newErr(KindFileFormat, 0, "binary file missing 'dataBlocks'")
}

// readBlock decodes and dispatches exactly one data block, reporting
// whether more blocks remain.
func (br *binaryReader) readBlock() (bool, error) {
	if !br.headerRead {
		if err := br.readHeader(); err != nil {
			return false, err
		}
	}
	if br.blocksRemaining <= 0 {
		return false, nil
	}
	cats, err := br.parseBlockMap()
	if err != nil {
		return false, err
	}
	br.blocksRemaining--

	for _, rc := range cats {
		if err := br.materializeCategory(rc); err != nil {
			return false, err
		}
	}
	return br.blocksRemaining > 0, nil
}

func (br *binaryReader) parseBlockMap() ([]rawCategory, error) {
	n, err := br.obj.readMapLen()
	if err != nil {
		return nil, err
	}
	var cats []rawCategory
	for i := 0; i < n; i++ {
		key, err := br.obj.readString()
		if err != nil {
			return nil, err
		}
		if key == "categories" {
			cats, err = br.parseCategoryArray()
			if err != nil {
				return nil, err
			}
			continue
		}
		if err := br.obj.skipAny(); err != nil {
			return nil, err
		}
	}
	return cats, nil
}

func (br *binaryReader) parseCategoryArray() ([]rawCategory, error) {
	n, err := br.obj.readArrayLen()
	if err != nil {
		return nil, err
	}
	out := make([]rawCategory, n)
	for i := 0; i < n; i++ {
		rc, err := br.parseCategoryMap()
		if err != nil {
			return nil, err
		}
		out[i] = rc
	}
	return out, nil
}

func (br *binaryReader) parseCategoryMap() (rawCategory, error) {
	var rc rawCategory
	n, err := br.obj.readMapLen()
	if err != nil {
		return rc, err
	}
	for i := 0; i < n; i++ {
		key, err := br.obj.readString()
		if err != nil {
			return rc, err
		}
		switch key {
		case "name":
			rc.Name, err = br.obj.readString()
			if err != nil {
				return rc, err
			}
		case "columns":
			rc.Columns, err = br.parseColumnArray()
			if err != nil {
				return rc, err
			}
		default:
			if err := br.obj.skipAny(); err != nil {
				return rc, err
			}
		}
	}
	return rc, nil
}

func (br *binaryReader) parseColumnArray() ([]rawColumn, error) {
	n, err := br.obj.readArrayLen()
	if err != nil {
		return nil, err
	}
	out := make([]rawColumn, n)
	for i := 0; i < n; i++ {
		c, err := br.parseColumnMap()
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (br *binaryReader) parseColumnMap() (rawColumn, error) {
	var col rawColumn
	n, err := br.obj.readMapLen()
	if err != nil {
		return col, err
	}
	for i := 0; i < n; i++ {
		key, err := br.obj.readString()
		if err != nil {
			return col, err
		}
		switch key {
		case "name":
			col.Name, err = br.obj.readString()
			if err != nil {
				return col, err
			}
		case "data":
			col.Data, err = br.parseDataBlob()
			if err != nil {
				return col, err
			}
		case "mask":
			isNil, err := br.obj.tryReadNil()
			if err != nil {
				return col, err
			}
			if !isNil {
				blob, err := br.parseDataBlob()
				if err != nil {
					return col, err
				}
				col.Mask = &blob
			}
		default:
			if err := br.obj.skipAny(); err != nil {
				return col, err
			}
		}
	}
	return col, nil
}

func (br *binaryReader) parseDataBlob() (rawDataBlob, error) {
	var blob rawDataBlob
	n, err := br.obj.readMapLen()
	if err != nil {
		return blob, err
	}
	for i := 0; i < n; i++ {
		key, err := br.obj.readString()
		if err != nil {
			return blob, err
		}
		switch key {
		case "data":
			blob.Data, err = readBytesish(br.obj)
			if err != nil {
				return blob, err
			}
		case "encoding":
			blob.Encoding, err = parseEncodingChain(br.obj)
			if err != nil {
				return blob, err
			}
		default:
			if err := br.obj.skipAny(); err != nil {
				return blob, err
			}
		}
	}
	return blob, nil
}

// materializeCategory decodes the columns of rc that match registered
// keywords and fires one row callback per row, followed by a finalize
// callback once the category's rows are exhausted.
func (br *binaryReader) materializeCategory(rc rawCategory) error {
	cat := br.reg.lookup(rc.Name)
	if cat == nil {
		br.notifyUnknownCategory(rc.Name)
		return nil
	}

	type boundColumn struct {
		slot   *Slot
		values decoded
		mask   []byte
	}
	var bound []boundColumn
	nRows := -1

	for _, col := range rc.Columns {
		slot := cat.Keyword(col.Name)
		if slot == nil {
			br.notifyUnknownKeyword(rc.Name, col.Name)
			continue
		}
		values, err := runDecodeChain(col.Data.Data, col.Data.Encoding)
		if err != nil {
			return wrapErr(KindFileFormat, 0, err, "decoding column %s.%s", rc.Name, col.Name)
		}
		var mask []byte
		if col.Mask != nil {
			mask, err = decodeMask(col.Mask.Data, col.Mask.Encoding)
			if err != nil {
				return wrapErr(KindFileFormat, 0, err, "decoding mask for %s.%s", rc.Name, col.Name)
			}
		}
		n := columnLen(values)
		if nRows == -1 {
			nRows = n
		} else if n != nRows {
			return newErr(KindFileFormat, 0, "category %s: column %s has %d rows, expected %d", rc.Name, col.Name, n, nRows)
		}
		bound = append(bound, boundColumn{slot: slot, values: values, mask: mask})
	}

	if nRows < 0 {
		// No keyword on this category matched any column — the category
		// is still registered, so its row/finalize callbacks must still
		// fire once per row. Decode just the first column to learn the
		// row count without binding it to a slot.
		if len(rc.Columns) > 0 {
			values, err := runDecodeChain(rc.Columns[0].Data.Data, rc.Columns[0].Data.Encoding)
			if err != nil {
				return wrapErr(KindFileFormat, 0, err, "decoding column %s.%s", rc.Name, rc.Columns[0].Name)
			}
			nRows = columnLen(values)
		} else {
			nRows = 0
		}
	}

	for i := 0; i < nRows; i++ {
		for _, bc := range bound {
			applyBinaryCell(bc.slot, bc.values, bc.mask, i)
		}
		cat.pending = true
		if cat.dataCB != nil {
			if err := cat.dataCB(cat); err != nil {
				cat.resetSlots()
				return wrapErr(KindCallback, 0, err, "row callback for %s", rc.Name)
			}
		}
		cat.resetSlots()
	}

	if cat.finalizeCB != nil {
		if err := cat.finalizeCB(cat); err != nil {
			return wrapErr(KindCallback, 0, err, "finalize callback for %s", rc.Name)
		}
	}
	return nil
}

func columnLen(d decoded) int {
	switch d.kind {
	case valInts:
		return len(d.ints)
	case valFloats:
		return len(d.floats)
	case valStrings:
		return len(d.strs)
	default:
		return 0
	}
}

// applyBinaryCell fills slot from the decoded column values and mask at
// row i.
func applyBinaryCell(slot *Slot, values decoded, mask []byte, i int) {
	slot.InFile = true
	slot.Observed = true
	if mask != nil && i < len(mask) {
		switch mask[i] {
		case 1:
			slot.Omitted = true
			return
		case 2:
			slot.Unknown = true
			return
		}
	}
	switch values.kind {
	case valInts:
		v := values.ints[i]
		switch slot.Type {
		case CellInt:
			slot.intVal = v
		case CellFloat:
			slot.floatVal = float64(v)
		default:
			slot.setBorrowedString(stringifyInt32(v))
		}
	case valFloats:
		v := values.floats[i]
		switch slot.Type {
		case CellFloat:
			slot.floatVal = v
		case CellInt:
			slot.intVal = int32(v)
		default:
			slot.setBorrowedString(stringifyFloat64(v))
		}
	case valStrings:
		v := values.strs[i]
		switch slot.Type {
		case CellInt:
			slot.intVal = parseInt32(v)
		case CellFloat:
			slot.floatVal = parseFloat64(v)
		default:
			slot.setBorrowedString(v)
		}
	}
}

func (br *binaryReader) notifyUnknownCategory(name string) {
	key := strings.ToLower(name)
	if br.seenUnknownCat[key] {
		return
	}
	br.seenUnknownCat[key] = true
	if br.unknownCatCB != nil {
		br.unknownCatCB(name, 0)
	}
}

func (br *binaryReader) notifyUnknownKeyword(cat, kw string) {
	key := strings.ToLower(cat) + "." + strings.ToLower(kw)
	if br.seenUnknownKey[key] {
		return
	}
	br.seenUnknownKey[key] = true
	if br.unknownKeyCB != nil {
		br.unknownKeyCB(cat, kw, 0)
	}
}
