package bfuse

import (
	"errors"
	"fmt"
	"slices"

	"github.com/claucece/chalamet/utils/sampling"
	"github.com/claucece/chalamet/utils/structs"
)

// MinModulus is the smallest accepted plaintext modulus. Below it the
// fingerprint band is too narrow for the masked sums to stay decodable.
const MinModulus = 256

// maxAttempts bounds the reseed-and-retry loop of the peeling stage.
const maxAttempts = 100_000

var (
	// ErrConstructionFailed is returned when the peeling stage exhausts its
	// retry budget, which in practice means the key set contains duplicates
	// or the caller hit an astronomically unlucky seed run.
	ErrConstructionFailed = errors.New("binary fuse construction failed")

	// ErrInvalidModulus is returned when the plaintext modulus is below
	// [MinModulus].
	ErrInvalidModulus = fmt.Errorf("plaintext modulus must be at least %d", MinModulus)

	// ErrInvalidLabel is returned when a label does not address a column of
	// the bank.
	ErrInvalidLabel = errors.New("label out of range")

	// ErrLengthMismatch is returned when the column lengths do not match the
	// number of keys.
	ErrLengthMismatch = errors.New("length mismatch")
)

// Bank is a set of fingerprint arrays sharing one set of key positions.
// Array j encodes column j of the input values under label j: for every
// key k with positions p0, p1, p2,
//
//	(F_j[p0] + F_j[p1] + F_j[p2] + mask(k, j)) mod P = value(k)[j].
//
// The stored fingerprints are pre-reduced modulo P. A Bank is immutable
// once built.
type Bank struct {
	params  FilterParams
	ptxtMod uint32
	columns structs.Matrix[uint32]
}

// NewBank builds a filter bank over the given keys. columns[j][i] is the
// j-th coordinate of the value of keys[i]; every column must have exactly
// one entry per key. ptxtMod is the plaintext modulus P, at least
// [MinModulus].
//
// The hashing seed is drawn from source; on a failed peel the bank reseeds
// and retries, so the recorded [FilterParams] seed is the one that
// succeeded. Keys must be distinct: duplicates make peeling impossible and
// surface as [ErrConstructionFailed].
func NewBank(source *sampling.Source, keys [][4]uint64, columns [][]uint32, ptxtMod uint64) (b *Bank, err error) {

	if ptxtMod < MinModulus {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidModulus, ptxtMod)
	}

	for j := range columns {
		if len(columns[j]) != len(keys) {
			return nil, fmt.Errorf("column %d: %w: %d values for %d keys", j, ErrLengthMismatch, len(columns[j]), len(keys))
		}
	}

	var params FilterParams
	var arrayLength uint32
	var order []peeledKey
	hashes := make([]uint64, len(keys))

	for attempt := 0; ; attempt++ {

		if attempt == maxAttempts {
			return nil, fmt.Errorf("%w: no peelable order after %d attempts", ErrConstructionFailed, maxAttempts)
		}

		params, arrayLength = newFilterParams(source.NewSeed(), len(keys))

		for i := range keys {
			hashes[i] = params.hashOfKey(keys[i])
		}

		if order = peel(params, hashes, arrayLength); order != nil {
			break
		}

		if attempt == 0 && hasDuplicates(keys) {
			return nil, fmt.Errorf("%w: keys are not distinct", ErrConstructionFailed)
		}
	}

	b = &Bank{
		params:  params,
		ptxtMod: uint32(ptxtMod),
		columns: make(structs.Matrix[uint32], len(columns)),
	}

	// Assign in reverse peel order: when a key is assigned, nothing written
	// afterwards touches any of its three positions.
	for j := range columns {

		fingerprints := make([]uint32, arrayLength)

		for i := len(order) - 1; i >= 0; i-- {
			e := order[i]
			pos := params.positionsFromHash(hashes[e.idx])
			others := fingerprints[pos[0]] + fingerprints[pos[1]] + fingerprints[pos[2]] - fingerprints[e.slot]
			mask := uint32(params.Fingerprint(keys[e.idx], uint64(j)))
			fingerprints[e.slot] = columns[j][e.idx] - mask - others
		}

		for i, f := range fingerprints {
			fingerprints[i] = f % b.ptxtMod
		}

		b.columns[j] = fingerprints
	}

	return b, nil
}

// Params returns the public filter parameters of the bank.
func (b *Bank) Params() FilterParams {
	return b.params
}

// Len returns the length of each fingerprint array.
func (b *Bank) Len() int {
	if len(b.columns) == 0 {
		return b.params.ArrayLength()
	}
	return len(b.columns[0])
}

// Columns returns the fingerprint arrays, one per label, pre-reduced
// modulo the plaintext modulus. The result aliases the bank storage.
func (b *Bank) Columns() structs.Matrix[uint32] {
	return b.columns
}

// Retrieve returns the value of key under the given label, modulo the
// plaintext modulus.
func (b *Bank) Retrieve(key [4]uint64, label uint64) (v uint32, err error) {

	if label >= uint64(len(b.columns)) {
		return 0, fmt.Errorf("%w: %d >= %d", ErrInvalidLabel, label, len(b.columns))
	}

	pos := b.params.Positions(key)
	col := b.columns[label]
	masked := col[pos[0]] + col[pos[1]] + col[pos[2]]
	return b.params.UnmaskValue(masked, key, label) % b.ptxtMod, nil
}

type peeledKey struct {
	idx  uint32
	slot uint32
}

// peel computes a peeling order over the fuse graph induced by hashes.
// It returns nil if the graph cannot be fully peeled.
func peel(params FilterParams, hashes []uint64, arrayLength uint32) []peeledKey {

	t2count := make([]uint32, arrayLength)
	t2hash := make([]uint64, arrayLength)
	t2idx := make([]uint32, arrayLength)

	for i, h := range hashes {
		for _, p := range params.positionsFromHash(h) {
			t2count[p]++
			t2hash[p] ^= h
			t2idx[p] ^= uint32(i)
		}
	}

	queue := make([]uint32, 0, arrayLength)
	for p, c := range t2count {
		if c == 1 {
			queue = append(queue, uint32(p))
		}
	}

	order := make([]peeledKey, 0, len(hashes))

	for len(queue) > 0 {

		slot := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if t2count[slot] != 1 {
			continue
		}

		h := t2hash[slot]
		idx := t2idx[slot]

		order = append(order, peeledKey{idx: idx, slot: slot})

		for _, p := range params.positionsFromHash(h) {
			t2count[p]--
			t2hash[p] ^= h
			t2idx[p] ^= idx
			if t2count[p] == 1 {
				queue = append(queue, p)
			}
		}
	}

	if len(order) != len(hashes) {
		return nil
	}

	return order
}

func hasDuplicates(keys [][4]uint64) bool {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, func(a, b [4]uint64) int {
		for i := range a {
			switch {
			case a[i] < b[i]:
				return -1
			case a[i] > b[i]:
				return 1
			}
		}
		return 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}
