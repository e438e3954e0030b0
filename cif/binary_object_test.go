package cif

import (
	"bytes"
	"testing"
)

func newObjectReaderFromBytes(b []byte) *objectReader {
	return newObjectReader(newByteBuffer(bytes.NewReader(b)))
}

func TestObjectReaderFixInt(t *testing.T) {
	o := newObjectReaderFromBytes([]byte{0x05})
	v, err := o.readInt()
	if err != nil {
		t.Fatalf("readInt error: %v", err)
	}
	if v != 5 {
		t.Errorf("got %d, want 5", v)
	}
}

func TestObjectReaderNegativeFixInt(t *testing.T) {
	o := newObjectReaderFromBytes([]byte{0xff}) // -1
	v, err := o.readInt()
	if err != nil {
		t.Fatalf("readInt error: %v", err)
	}
	if v != -1 {
		t.Errorf("got %d, want -1", v)
	}
}

func TestObjectReaderUint32(t *testing.T) {
	o := newObjectReaderFromBytes([]byte{0xce, 0x00, 0x01, 0x00, 0x00}) // 65536
	v, err := o.readInt()
	if err != nil {
		t.Fatalf("readInt error: %v", err)
	}
	if v != 65536 {
		t.Errorf("got %d, want 65536", v)
	}
}

func TestObjectReaderInt16Negative(t *testing.T) {
	o := newObjectReaderFromBytes([]byte{0xd1, 0xff, 0x00}) // -256
	v, err := o.readInt()
	if err != nil {
		t.Fatalf("readInt error: %v", err)
	}
	if v != -256 {
		t.Errorf("got %d, want -256", v)
	}
}

func TestObjectReaderFixStr(t *testing.T) {
	o := newObjectReaderFromBytes(append([]byte{0xa5}, "hello"...))
	s, err := o.readString()
	if err != nil {
		t.Fatalf("readString error: %v", err)
	}
	if s != "hello" {
		t.Errorf("got %q, want %q", s, "hello")
	}
}

func TestObjectReaderStr8(t *testing.T) {
	long := make([]byte, 40)
	for i := range long {
		long[i] = 'a'
	}
	data := append([]byte{0xd9, byte(len(long))}, long...)
	o := newObjectReaderFromBytes(data)
	s, err := o.readString()
	if err != nil {
		t.Fatalf("readString error: %v", err)
	}
	if s != string(long) {
		t.Errorf("got len %d, want len %d", len(s), len(long))
	}
}

func TestObjectReaderBin8(t *testing.T) {
	data := []byte{0xc4, 0x03, 0x01, 0x02, 0x03}
	o := newObjectReaderFromBytes(data)
	b, err := o.readBin()
	if err != nil {
		t.Fatalf("readBin error: %v", err)
	}
	if !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", b)
	}
}

func TestObjectReaderFixMapAndArray(t *testing.T) {
	// {"a": [1, 2, 3]}
	data := []byte{
		0x81,             // fixmap, 1 pair
		0xa1, 'a',        // key "a"
		0x93, 0x01, 0x02, 0x03, // fixarray [1,2,3]
	}
	o := newObjectReaderFromBytes(data)
	n, err := o.readMapLen()
	if err != nil || n != 1 {
		t.Fatalf("readMapLen = %d, %v, want 1, nil", n, err)
	}
	key, err := o.readString()
	if err != nil || key != "a" {
		t.Fatalf("readString = %q, %v, want \"a\", nil", key, err)
	}
	alen, err := o.readArrayLen()
	if err != nil || alen != 3 {
		t.Fatalf("readArrayLen = %d, %v, want 3, nil", alen, err)
	}
	var got []int32
	for i := 0; i < alen; i++ {
		v, err := o.readInt()
		if err != nil {
			t.Fatalf("readInt error: %v", err)
		}
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestObjectReaderSkipAny(t *testing.T) {
	// A nested structure followed by a sentinel scalar, proving skipAny
	// fully consumes the nested value and nothing more.
	data := []byte{
		0x82, // fixmap, 2 pairs
		0xa1, 'x', 0x91, 0x01, // "x": [1]
		0xa1, 'y', 0xc4, 0x02, 0xAA, 0xBB, // "y": bin [0xAA,0xBB]
		0x2a, // sentinel: fixint 42
	}
	o := newObjectReaderFromBytes(data)
	if err := o.skipAny(); err != nil {
		t.Fatalf("skipAny error: %v", err)
	}
	v, err := o.readInt()
	if err != nil {
		t.Fatalf("readInt error: %v", err)
	}
	if v != 42 {
		t.Errorf("sentinel = %d, want 42", v)
	}
}

func TestObjectReaderTryReadNil(t *testing.T) {
	o := newObjectReaderFromBytes([]byte{0xc0, 0x05})
	isNil, err := o.tryReadNil()
	if err != nil || !isNil {
		t.Fatalf("tryReadNil = %v, %v, want true, nil", isNil, err)
	}
	v, err := o.readInt()
	if err != nil || v != 5 {
		t.Fatalf("readInt after tryReadNil = %d, %v, want 5, nil", v, err)
	}
}

func TestObjectReaderTryReadNilFalseDoesNotConsume(t *testing.T) {
	o := newObjectReaderFromBytes([]byte{0x07})
	isNil, err := o.tryReadNil()
	if err != nil || isNil {
		t.Fatalf("tryReadNil = %v, %v, want false, nil", isNil, err)
	}
	v, err := o.readInt()
	if err != nil || v != 7 {
		t.Fatalf("readInt after false tryReadNil = %d, %v, want 7, nil", v, err)
	}
}

func TestObjectReaderFloat(t *testing.T) {
	// float64 1.5 = 0x3FF8000000000000
	data := []byte{0xcb, 0x3f, 0xf8, 0, 0, 0, 0, 0, 0}
	o := newObjectReaderFromBytes(data)
	v, err := o.readFloat64()
	if err != nil {
		t.Fatalf("readFloat64 error: %v", err)
	}
	if v != 1.5 {
		t.Errorf("got %v, want 1.5", v)
	}
}

func TestObjectReaderExpectString(t *testing.T) {
	o := newObjectReaderFromBytes(append([]byte{0xa3}, "abc"...))
	ok, err := o.expectString("abc")
	if err != nil || !ok {
		t.Fatalf("expectString = %v, %v, want true, nil", ok, err)
	}
}
