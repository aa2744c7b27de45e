// Package digestcodec holds the primitive encoders behind the turn state
// digest. Every writer is order-stable so equal states hash equally.
package digestcodec

import (
	"encoding/binary"
	"math"
	"sort"
)

type Writer interface {
	Write(p []byte) (n int, err error)
}

func U64(w Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func I64(w Writer, tmp *[8]byte, v int64) { U64(w, tmp, uint64(v)) }

// F64 writes the IEEE bits; -0 is folded into 0.
func F64(w Writer, tmp *[8]byte, v float64) {
	if v == 0 {
		v = 0
	}
	U64(w, tmp, math.Float64bits(v))
}

// String is length-prefixed so adjacent fields cannot run together.
func String(w Writer, tmp *[8]byte, s string) {
	U64(w, tmp, uint64(len(s)))
	w.Write([]byte(s))
}

func Bool(w Writer, v bool) {
	w.Write([]byte{BoolByte(v)})
}

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// SortedNonZeroIntMap emits a key-sorted map encoding, skipping zero values
// so an absent key and a zero count hash the same.
func SortedNonZeroIntMap[K ~string](w Writer, tmp *[8]byte, m map[K]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	U64(w, tmp, uint64(len(keys)))
	for _, k := range keys {
		String(w, tmp, k)
		I64(w, tmp, int64(m[K(k)]))
	}
}
