package pir

import (
	"errors"

	"github.com/claucece/chalamet/lwe"
)

var (
	// ErrQueryParamsReused is returned when GenerateQuery is called a second
	// time on the same query parameters. Reusing the same (lhs, rhs) pair
	// across queries would let the server correlate them under one secret,
	// so the parameters are strictly single-use.
	ErrQueryParamsReused = errors.New("query parameters have already been used")

	// ErrOverflowingAdd is returned when the index-mode indicator addition
	// overflows. This signals that the parameter regime leaves no headroom;
	// the caller must regenerate with fresh randomness or widen the noise
	// budget.
	ErrOverflowingAdd = errors.New("query indicator addition overflowed")

	// ErrLengthMismatch is returned when input collection lengths are
	// inconsistent, or when a query does not match the database height.
	ErrLengthMismatch = lwe.ErrLengthMismatch
)
