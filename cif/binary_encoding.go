package cif

// NumType is the element width/signedness tag carried by ByteArray and
// IntegerPacking encodings.
type NumType uint8

const (
	NumI8 NumType = iota
	NumU8
	NumI16
	NumU16
	NumI32
	NumU32
	NumF32
	NumF64
)

func parseNumType(s string) (NumType, bool) {
	switch s {
	case "i8":
		return NumI8, true
	case "u8":
		return NumU8, true
	case "i16":
		return NumI16, true
	case "u16":
		return NumU16, true
	case "i32":
		return NumI32, true
	case "u32":
		return NumU32, true
	case "f32":
		return NumF32, true
	case "f64":
		return NumF64, true
	default:
		return 0, false
	}
}

// EncKind discriminates one stage of a column's encoding chain.
type EncKind uint8

const (
	EncByteArray EncKind = iota
	EncIntegerPacking
	EncDelta
	EncRunLength
	EncFixedPoint
	EncStringArray
)

// Encoding is one parsed stage of an encoding chain. Only the fields
// relevant to Kind are populated.
type Encoding struct {
	Kind EncKind

	ElemType NumType // ByteArray, IntegerPacking

	Origin int32 // Delta
	Factor int32 // FixedPoint

	StringData     []byte     // StringArray
	Offsets        []byte     // StringArray: raw payload, decoded via OffsetEncoding
	OffsetEncoding []Encoding // StringArray
	DataEncoding   []Encoding // StringArray: parsed and carried, not separately decoded (see DESIGN.md)
}

// parseEncodingChain reads an array of encoding maps. Per this format's
// wire contract the array is already stored in application order (the
// order decoders must run in) — unlike some binary tabular formats,
// no reversal is required here.
func parseEncodingChain(o *objectReader) ([]Encoding, error) {
	n, err := o.readArrayLen()
	if err != nil {
		return nil, err
	}
	out := make([]Encoding, n)
	for i := 0; i < n; i++ {
		enc, err := parseEncodingMap(o)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func parseEncodingMap(o *objectReader) (Encoding, error) {
	var enc Encoding
	n, err := o.readMapLen()
	if err != nil {
		return enc, err
	}
	var kindStr string
	haveKind := false

	for i := 0; i < n; i++ {
		key, err := o.readString()
		if err != nil {
			return enc, err
		}
		switch key {
		case "kind":
			kindStr, err = o.readString()
			if err != nil {
				return enc, err
			}
			haveKind = true
		case "type":
			typeStr, err := o.readString()
			if err != nil {
				return enc, err
			}
			nt, ok := parseNumType(typeStr)
			if !ok {
				return enc, newErr(KindFileFormat, 0, "unrecognized encoding type %q", typeStr)
			}
			enc.ElemType = nt
		case "origin":
			v, err := o.readInt()
			if err != nil {
				return enc, err
			}
			enc.Origin = v
		case "factor":
			v, err := o.readInt()
			if err != nil {
				return enc, err
			}
			enc.Factor = v
		case "stringData":
			b, err := readBytesish(o)
			if err != nil {
				return enc, err
			}
			enc.StringData = b
		case "offsets":
			b, err := readBytesish(o)
			if err != nil {
				return enc, err
			}
			enc.Offsets = b
		case "dataEncoding":
			sub, err := parseEncodingChain(o)
			if err != nil {
				return enc, err
			}
			enc.DataEncoding = sub
		case "offsetEncoding":
			sub, err := parseEncodingChain(o)
			if err != nil {
				return enc, err
			}
			enc.OffsetEncoding = sub
		default:
			if err := o.skipAny(); err != nil {
				return enc, err
			}
		}
	}

	if !haveKind {
		return enc, newErr(KindFileFormat, 0, "encoding map missing 'kind'")
	}
	switch kindStr {
	case "ByteArray":
		enc.Kind = EncByteArray
	case "IntegerPacking":
		enc.Kind = EncIntegerPacking
	case "Delta":
		enc.Kind = EncDelta
	case "RunLength":
		enc.Kind = EncRunLength
	case "FixedPoint":
		enc.Kind = EncFixedPoint
	case "StringArray":
		enc.Kind = EncStringArray
	default:
		return enc, newErr(KindFileFormat, 0, "unrecognized encoding kind %q", kindStr)
	}
	return enc, nil
}

// readBytesish reads either a msgpack binary blob or a string, returning
// its raw bytes either way — BinaryCIF producers vary in which tag they
// use for byte payloads like stringData and offsets.
func readBytesish(o *objectReader) ([]byte, error) {
	b, err := o.buf.peekByte()
	if err != nil {
		return nil, err
	}
	if b == 0xc4 || b == 0xc5 || b == 0xc6 {
		return o.readBin()
	}
	s, err := o.readString()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
