package cif

import (
	"encoding/binary"
	"math"
)

// objectReader reads the msgpack-subset grammar BinaryCIF is built on:
// fixed/16/32 maps and arrays, signed integers up to 32 bits, short and
// long UTF-8 strings, and binary blobs. It borrows directly from the
// underlying byteBuffer; callers must not retain returned byte slices
// past the next read.
type objectReader struct {
	buf *byteBuffer
}

func newObjectReader(buf *byteBuffer) *objectReader {
	return &objectReader{buf: buf}
}

func (o *objectReader) readByte() (byte, error) {
	b, err := o.buf.readExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readMapLen reads a map header and returns the number of key/value
// pairs that follow.
func (o *objectReader) readMapLen() (int, error) {
	b, err := o.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b >= 0x80 && b <= 0x8f:
		return int(b & 0x0f), nil
	case b == 0xde:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint16(raw)), nil
	case b == 0xdf:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint32(raw)), nil
	default:
		return 0, newErr(KindFileFormat, 0, "expected map, got tag 0x%02x", b)
	}
}

// readArrayLen reads an array header and returns the element count.
func (o *objectReader) readArrayLen() (int, error) {
	b, err := o.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b >= 0x90 && b <= 0x9f:
		return int(b & 0x0f), nil
	case b == 0xdc:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint16(raw)), nil
	case b == 0xdd:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint32(raw)), nil
	default:
		return 0, newErr(KindFileFormat, 0, "expected array, got tag 0x%02x", b)
	}
}

// readInt reads a signed integer up to 32 bits wide.
func (o *objectReader) readInt() (int32, error) {
	b, err := o.readByte()
	if err != nil {
		return 0, err
	}
	return o.readIntTagged(b)
}

func (o *objectReader) readIntTagged(b byte) (int32, error) {
	switch {
	case b <= 0x7f:
		return int32(b), nil
	case b >= 0xe0:
		return int32(int8(b)), nil
	case b == 0xcc:
		raw, err := o.buf.readExact(1)
		if err != nil {
			return 0, err
		}
		return int32(raw[0]), nil
	case b == 0xcd:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return 0, err
		}
		return int32(binary.BigEndian.Uint16(raw)), nil
	case b == 0xce:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return 0, err
		}
		return int32(binary.BigEndian.Uint32(raw)), nil
	case b == 0xd0:
		raw, err := o.buf.readExact(1)
		if err != nil {
			return 0, err
		}
		return int32(int8(raw[0])), nil
	case b == 0xd1:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return 0, err
		}
		return int32(int16(binary.BigEndian.Uint16(raw))), nil
	case b == 0xd2:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return 0, err
		}
		return int32(binary.BigEndian.Uint32(raw)), nil
	default:
		return 0, newErr(KindFileFormat, 0, "expected integer, got tag 0x%02x", b)
	}
}

// readString reads a UTF-8 string (fixstr/str8/str16/str32).
func (o *objectReader) readString() (string, error) {
	b, err := o.readByte()
	if err != nil {
		return "", err
	}
	n, err := o.stringLen(b)
	if err != nil {
		return "", err
	}
	raw, err := o.buf.readExact(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (o *objectReader) stringLen(b byte) (int, error) {
	switch {
	case b >= 0xa0 && b <= 0xbf:
		return int(b & 0x1f), nil
	case b == 0xd9:
		raw, err := o.buf.readExact(1)
		if err != nil {
			return 0, err
		}
		return int(raw[0]), nil
	case b == 0xda:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint16(raw)), nil
	case b == 0xdb:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint32(raw)), nil
	default:
		return 0, newErr(KindFileFormat, 0, "expected string, got tag 0x%02x", b)
	}
}

// readBin reads a binary blob (bin8/16/32).
func (o *objectReader) readBin() ([]byte, error) {
	b, err := o.readByte()
	if err != nil {
		return nil, err
	}
	var n int
	switch b {
	case 0xc4:
		raw, err := o.buf.readExact(1)
		if err != nil {
			return nil, err
		}
		n = int(raw[0])
	case 0xc5:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return nil, err
		}
		n = int(binary.BigEndian.Uint16(raw))
	case 0xc6:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return nil, err
		}
		n = int(binary.BigEndian.Uint32(raw))
	default:
		return nil, newErr(KindFileFormat, 0, "expected binary, got tag 0x%02x", b)
	}
	raw, err := o.buf.readExact(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// readFloat64 reads a float32 or float64 scalar, widening float32.
func (o *objectReader) readFloat64() (float64, error) {
	b, err := o.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0xca:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(raw))), nil
	case 0xcb:
		raw, err := o.buf.readExact(8)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	default:
		return 0, newErr(KindFileFormat, 0, "expected float, got tag 0x%02x", b)
	}
}

// expectString reads the next string token and compares it against
// literal without allocating a copy of it beyond the read itself.
func (o *objectReader) expectString(literal string) (bool, error) {
	s, err := o.readString()
	if err != nil {
		return false, err
	}
	return s == literal, nil
}

// skipScalar consumes and discards exactly one non-container value
// (nil, bool, int, float, string, binary).
func (o *objectReader) skipScalar() error {
	b, err := o.readByte()
	if err != nil {
		return err
	}
	return o.skipScalarTagged(b)
}

// skipN reads a length of widthBytes and then that many bytes, used for
// the bin8/bin16/bin32 cases where the length prefix has already been
// identified by tag but not yet read.
func (o *objectReader) skipN(tag byte, widthBytes int) error {
	raw, err := o.buf.readExact(widthBytes)
	if err != nil {
		return err
	}
	var n int
	switch widthBytes {
	case 1:
		n = int(raw[0])
	case 2:
		n = int(binary.BigEndian.Uint16(raw))
	case 4:
		n = int(binary.BigEndian.Uint32(raw))
	}
	_, err = o.buf.readExact(n)
	return err
}

// skipAny recursively skips a value of any shape, descending into
// arrays and maps.
func (o *objectReader) skipAny() error {
	b, err := o.readByte()
	if err != nil {
		return err
	}
	switch {
	case b >= 0x80 && b <= 0x8f:
		return o.skipMapBody(int(b & 0x0f))
	case b == 0xde:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return err
		}
		return o.skipMapBody(int(binary.BigEndian.Uint16(raw)))
	case b == 0xdf:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return err
		}
		return o.skipMapBody(int(binary.BigEndian.Uint32(raw)))
	case b >= 0x90 && b <= 0x9f:
		return o.skipArrayBody(int(b & 0x0f))
	case b == 0xdc:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return err
		}
		return o.skipArrayBody(int(binary.BigEndian.Uint16(raw)))
	case b == 0xdd:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return err
		}
		return o.skipArrayBody(int(binary.BigEndian.Uint32(raw)))
	default:
		return o.skipScalarTagged(b)
	}
}

func (o *objectReader) skipMapBody(n int) error {
	for i := 0; i < n; i++ {
		if err := o.skipAny(); err != nil { // key
			return err
		}
		if err := o.skipAny(); err != nil { // value
			return err
		}
	}
	return nil
}

func (o *objectReader) skipArrayBody(n int) error {
	for i := 0; i < n; i++ {
		if err := o.skipAny(); err != nil {
			return err
		}
	}
	return nil
}

// skipScalarTagged is skipScalar's body, factored out so skipAny can
// reuse it after already having read the tag byte.
func (o *objectReader) skipScalarTagged(b byte) error {
	switch {
	case b <= 0x7f, b >= 0xe0:
		return nil
	case b == 0xc0, b == 0xc2, b == 0xc3:
		return nil
	case b == 0xc4:
		return o.skipN(b, 1)
	case b == 0xc5:
		return o.skipN(b, 2)
	case b == 0xc6:
		return o.skipN(b, 4)
	case b == 0xca:
		_, err := o.buf.readExact(4)
		return err
	case b == 0xcb:
		_, err := o.buf.readExact(8)
		return err
	case b == 0xcc, b == 0xd0:
		_, err := o.buf.readExact(1)
		return err
	case b == 0xcd, b == 0xd1:
		_, err := o.buf.readExact(2)
		return err
	case b == 0xce, b == 0xd2:
		_, err := o.buf.readExact(4)
		return err
	case b == 0xcf, b == 0xd3:
		_, err := o.buf.readExact(8)
		return err
	case b >= 0xa0 && b <= 0xbf:
		n := int(b & 0x1f)
		_, err := o.buf.readExact(n)
		return err
	case b == 0xd9:
		raw, err := o.buf.readExact(1)
		if err != nil {
			return err
		}
		_, err = o.buf.readExact(int(raw[0]))
		return err
	case b == 0xda:
		raw, err := o.buf.readExact(2)
		if err != nil {
			return err
		}
		_, err = o.buf.readExact(int(binary.BigEndian.Uint16(raw)))
		return err
	case b == 0xdb:
		raw, err := o.buf.readExact(4)
		if err != nil {
			return err
		}
		_, err = o.buf.readExact(int(binary.BigEndian.Uint32(raw)))
		return err
	default:
		return newErr(KindFileFormat, 0, "skipAny: unexpected tag 0x%02x", b)
	}
}

// tryReadNil reports whether the next byte is the msgpack nil tag,
// consuming it if so and leaving the stream untouched otherwise. Used
// to distinguish a present mask sub-object from an absent (nil) one.
func (o *objectReader) tryReadNil() (bool, error) {
	b, err := o.buf.peekByte()
	if err != nil {
		return false, err
	}
	if b == 0xc0 {
		_, err := o.readByte()
		return true, err
	}
	return false, nil
}
