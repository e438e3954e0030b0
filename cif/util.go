package cif

import "strconv"

// parseInt32 parses s as a base-10 int32, returning 0 on failure. Numeric
// coercion failures are not format errors per spec: CellInt/CellFloat
// typed keywords are a binary-mode convenience, and malformed numeric
// text is simply delivered as zero. In text mode the original string
// stays available via Slot.String; a binary string cell stored into a
// CellInt/CellFloat slot keeps only the parsed number.
func parseInt32(s string) int32 {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

func parseFloat64(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// stringifyInt32 renders an int32 the way the row materializer does when
// a caller asks a numeric column for its string form.
func stringifyInt32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

// stringifyFloat64 renders a float64 the way Go's %g verb does: %e or %f
// style with the fewest digits that round-trip, not a fixed six
// significant digits.
func stringifyFloat64(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
