package cif

import (
	"encoding/binary"
	"math"
)

// valueKind tags the shape currently held by a column's intermediate
// decode state as it flows through an encoding chain.
type valueKind uint8

const (
	valRaw valueKind = iota
	valInts
	valFloats
	valStrings
)

// decoded holds a column's data at one point in its decode pipeline.
// Exactly one of raw/ints/floats/strs is meaningful, selected by kind.
// numType further narrows valInts (which signed/unsigned width produced
// it), needed by IntegerPacking to find the right sentinel.
type decoded struct {
	kind    valueKind
	numType NumType
	raw     []byte
	ints    []int32
	floats  []float64
	strs    []string
}

// runDecodeChain applies each stage of chain in order to the raw bytes of
// a column's data blob, returning the fully decoded value.
func runDecodeChain(data []byte, chain []Encoding) (decoded, error) {
	cur := decoded{kind: valRaw, raw: data}
	for i := range chain {
		next, err := applyEncoding(cur, &chain[i])
		if err != nil {
			return decoded{}, err
		}
		cur = next
	}
	return cur, nil
}

func applyEncoding(in decoded, enc *Encoding) (decoded, error) {
	switch enc.Kind {
	case EncByteArray:
		return decodeByteArray(in, enc)
	case EncIntegerPacking:
		return decodeIntegerPacking(in, enc)
	case EncDelta:
		return decodeDelta(in, enc)
	case EncRunLength:
		return decodeRunLength(in)
	case EncFixedPoint:
		return decodeFixedPoint(in, enc)
	case EncStringArray:
		return decodeStringArray(in, enc)
	default:
		return decoded{}, newErr(KindFileFormat, 0, "unhandled encoding kind %d", enc.Kind)
	}
}

// decodeByteArray reinterprets a raw byte blob as a typed little-endian
// array.
func decodeByteArray(in decoded, enc *Encoding) (decoded, error) {
	if in.kind != valRaw {
		return decoded{}, newErr(KindFileFormat, 0, "ByteArray: expected raw input")
	}
	width := numTypeWidth(enc.ElemType)
	if width == 0 {
		return decoded{}, newErr(KindFileFormat, 0, "ByteArray: unsupported element type")
	}
	if len(in.raw)%width != 0 {
		return decoded{}, newErr(KindFileFormat, 0, "ByteArray: length %d not a multiple of element width %d", len(in.raw), width)
	}
	n := len(in.raw) / width

	switch enc.ElemType {
	case NumF32, NumF64:
		floats := make([]float64, n)
		for i := 0; i < n; i++ {
			off := i * width
			if enc.ElemType == NumF32 {
				bits := binary.LittleEndian.Uint32(in.raw[off:])
				floats[i] = float64(math.Float32frombits(bits))
			} else {
				bits := binary.LittleEndian.Uint64(in.raw[off:])
				floats[i] = math.Float64frombits(bits)
			}
		}
		return decoded{kind: valFloats, floats: floats}, nil
	default:
		ints := make([]int32, n)
		for i := 0; i < n; i++ {
			off := i * width
			ints[i] = decodeLittleEndianInt(in.raw[off:off+width], enc.ElemType)
		}
		return decoded{kind: valInts, numType: enc.ElemType, ints: ints}, nil
	}
}

func decodeLittleEndianInt(b []byte, t NumType) int32 {
	switch t {
	case NumI8:
		return int32(int8(b[0]))
	case NumU8:
		return int32(b[0])
	case NumI16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case NumU16:
		return int32(binary.LittleEndian.Uint16(b))
	case NumI32:
		return int32(binary.LittleEndian.Uint32(b))
	case NumU32:
		return int32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

func numTypeWidth(t NumType) int {
	switch t {
	case NumI8, NumU8:
		return 1
	case NumI16, NumU16:
		return 2
	case NumI32, NumU32, NumF32:
		return 4
	case NumF64:
		return 8
	default:
		return 0
	}
}

// isPackingSentinel reports whether v is the run-continuation marker for
// an IntegerPacking source type: the maximum representable value for
// unsigned types, or either extreme for signed types. Zero is never a
// sentinel for an unsigned type — it's an ordinary data value.
func isPackingSentinel(v int32, t NumType) (bool, bool) {
	switch t {
	case NumU8:
		return v == 255, true
	case NumU16:
		return v == 65535, true
	case NumI8:
		return v == 127 || v == -128, true
	case NumI16:
		return v == 32767 || v == -32768, true
	default:
		return false, false
	}
}

// decodeIntegerPacking expands runs of sentinel-valued entries in a
// narrow integer type into wide (int32) values: every element is added
// to a running sum; a sentinel defers emission, any other value emits
// the accumulated sum and resets it.
func decodeIntegerPacking(in decoded, enc *Encoding) (decoded, error) {
	if in.kind != valInts {
		return decoded{}, newErr(KindFileFormat, 0, "IntegerPacking: expected integer input")
	}
	out := make([]int32, 0, len(in.ints))
	var sum int32
	for _, v := range in.ints {
		isSentinel, ok := isPackingSentinel(v, enc.ElemType)
		if !ok {
			return decoded{}, newErr(KindFileFormat, 0, "IntegerPacking: unsupported source type")
		}
		sum += v
		if !isSentinel {
			out = append(out, sum)
			sum = 0
		}
	}
	return decoded{kind: valInts, numType: NumI32, ints: out}, nil
}

// decodeDelta undoes a difference encoding: out[i] = origin + sum(in[0..i]).
func decodeDelta(in decoded, enc *Encoding) (decoded, error) {
	if in.kind != valInts {
		return decoded{}, newErr(KindFileFormat, 0, "Delta: expected integer input")
	}
	out := make([]int32, len(in.ints))
	acc := enc.Origin
	for i, v := range in.ints {
		acc += v
		out[i] = acc
	}
	return decoded{kind: valInts, numType: NumI32, ints: out}, nil
}

// decodeRunLength expands (value, count) pairs into the full sequence.
func decodeRunLength(in decoded) (decoded, error) {
	if in.kind != valInts {
		return decoded{}, newErr(KindFileFormat, 0, "RunLength: expected integer input")
	}
	if len(in.ints)%2 != 0 {
		return decoded{}, newErr(KindFileFormat, 0, "RunLength: odd-length input")
	}
	var total int
	for i := 1; i < len(in.ints); i += 2 {
		total += int(in.ints[i])
	}
	out := make([]int32, 0, total)
	for i := 0; i < len(in.ints); i += 2 {
		v, count := in.ints[i], in.ints[i+1]
		for c := int32(0); c < count; c++ {
			out = append(out, v)
		}
	}
	return decoded{kind: valInts, numType: NumI32, ints: out}, nil
}

// decodeFixedPoint turns scaled integers back into floats: out[i] = in[i] / factor.
func decodeFixedPoint(in decoded, enc *Encoding) (decoded, error) {
	if in.kind != valInts {
		return decoded{}, newErr(KindFileFormat, 0, "FixedPoint: expected integer input")
	}
	if enc.Factor == 0 {
		return decoded{}, newErr(KindFileFormat, 0, "FixedPoint: factor is zero")
	}
	factor := float64(enc.Factor)
	out := make([]float64, len(in.ints))
	for i, v := range in.ints {
		out[i] = float64(v) / factor
	}
	return decoded{kind: valFloats, floats: out}, nil
}

// decodeStringArray resolves an I32 index vector into strings: each
// index selects a substring of stringData bounded by a decoded offsets
// vector. Index -1 is reserved and yields the empty string (used when a
// row's mask already marks the cell omitted/unknown).
func decodeStringArray(in decoded, enc *Encoding) (decoded, error) {
	if in.kind != valInts {
		return decoded{}, newErr(KindFileFormat, 0, "StringArray: expected integer input")
	}
	offsetsDecoded, err := runDecodeChain(enc.Offsets, enc.OffsetEncoding)
	if err != nil {
		return decoded{}, wrapErr(KindFileFormat, 0, err, "StringArray: decoding offsets")
	}
	if offsetsDecoded.kind != valInts {
		return decoded{}, newErr(KindFileFormat, 0, "StringArray: offsetEncoding did not produce integers")
	}
	offsets := offsetsDecoded.ints

	strs := make([]string, len(in.ints))
	for i, idx := range in.ints {
		if idx < 0 {
			strs[i] = ""
			continue
		}
		j := int(idx)
		if j+1 >= len(offsets) {
			return decoded{}, newErr(KindFileFormat, 0, "StringArray: index %d out of range for %d offsets", j, len(offsets))
		}
		start, end := offsets[j], offsets[j+1]
		if start < 0 || end < start || int(end) > len(enc.StringData) {
			return decoded{}, newErr(KindFileFormat, 0, "StringArray: invalid offset range [%d,%d)", start, end)
		}
		strs[i] = string(enc.StringData[start:end])
	}
	return decoded{kind: valStrings, strs: strs}, nil
}

// decodeMask runs the same chain used for mask columns and coerces the
// result to a byte per row (0 = present, 1 = omitted, 2 = unknown),
// truncating the pipeline's I32 output.
func decodeMask(data []byte, chain []Encoding) ([]byte, error) {
	d, err := runDecodeChain(data, chain)
	if err != nil {
		return nil, err
	}
	if d.kind != valInts {
		return nil, newErr(KindFileFormat, 0, "mask: encoding chain did not produce integers")
	}
	out := make([]byte, len(d.ints))
	for i, v := range d.ints {
		out[i] = byte(v)
	}
	return out, nil
}
