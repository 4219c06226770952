package buffer

import (
	"golang.org/x/exp/constraints"
)

// EqualAsUint8Slice compares the components of a and b as uint8.
func EqualAsUint8Slice[T constraints.Integer](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if uint8(a[i]) != uint8(b[i]) {
			return false
		}
	}
	return true
}

// EqualAsUint32Slice compares the components of a and b as uint32.
func EqualAsUint32Slice[T constraints.Integer](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if uint32(a[i]) != uint32(b[i]) {
			return false
		}
	}
	return true
}

// EqualAsUint64Slice compares the components of a and b as uint64.
func EqualAsUint64Slice[T constraints.Integer](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if uint64(a[i]) != uint64(b[i]) {
			return false
		}
	}
	return true
}
