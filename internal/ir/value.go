package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the value types allowed in canonical JSON.
// There is no float and no null: both break deterministic hashing.
type Value interface {
	value() // Sealed - only the types below implement it
}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Unsigned counters are widened to int64 before
// encoding; sequence indices never approach 2^63.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values. Use SortedKeys for iteration.
type Object map[string]Value

func (Object) value() {}

// Strings converts a slice of Go strings into an Array.
func Strings[S ~string](ss []S) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's string ordering compares UTF-8 bytes, which differs for characters
// outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
