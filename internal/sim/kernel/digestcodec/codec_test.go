package digestcodec

import (
	"bytes"
	"math"
	"testing"
)

func TestSortedNonZeroIntMapIgnoresOrderAndZeros(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	SortedNonZeroIntMap(&a, &tmp, map[string]int{"x": 1, "y": 2, "z": 0})
	SortedNonZeroIntMap(&b, &tmp, map[string]int{"y": 2, "x": 1})
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("encodings differ: %x vs %x", a.Bytes(), b.Bytes())
	}
}

func TestStringIsLengthPrefixed(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	String(&a, &tmp, "ab")
	String(&a, &tmp, "c")
	String(&b, &tmp, "a")
	String(&b, &tmp, "bc")
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("adjacent strings collided")
	}
}

func TestF64FoldsNegativeZero(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	F64(&a, &tmp, 0)
	F64(&b, &tmp, math.Copysign(0, -1))
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("-0 and 0 hashed differently")
	}
}
