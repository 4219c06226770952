package pir

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/claucece/chalamet/bfuse"
	"github.com/claucece/chalamet/lwe"
	"github.com/claucece/chalamet/utils/sampling"
	"github.com/claucece/chalamet/utils/structs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// zstExt marks snapshot files that are zstd-compressed on disk.
const zstExt = ".zst"

// EncodedKV is the JSON form of one key-value pair: both fields are
// base64-encoded.
type EncodedKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// paramsFile is the JSON form of persisted server parameters: the seed of
// the left-hand matrix and the preprocessed right-hand side. The filter
// section is present for key-value databases only.
type paramsFile struct {
	LhsSeed [32]uint8   `json:"lhs_seed"`
	RHS     [][]uint32  `json:"rhs"`
	Filter  *filterFile `json:"filter,omitempty"`
}

type filterFile struct {
	Seed               [32]uint8 `json:"seed"`
	SegmentLength      uint32    `json:"segment_length"`
	SegmentLengthMask  uint32    `json:"segment_length_mask"`
	SegmentCountLength uint32    `json:"segment_count_length"`
}

// LoadIndexElements reads a JSON array of base64-encoded strings.
func LoadIndexElements(path string) (elements []string, err error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return
}

// LoadKVElements reads a JSON array of {"key", "value"} objects.
func LoadKVElements(path string) (kvs []EncodedKV, err error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw, &kvs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return
}

// NewShardFromJSONFile builds a [Shard] from a JSON file holding exactly m
// base64-encoded elements of elemSize bytes each.
func NewShardFromJSONFile(source *sampling.Source, path string, lweDim, m, elemSize, plaintextBits int) (s *Shard, err error) {
	elements, err := LoadIndexElements(path)
	if err != nil {
		return nil, err
	}
	log.Infow("loaded index elements", "path", path, "count", len(elements))
	return NewShard(source, elements, lweDim, m, elemSize, plaintextBits)
}

// NewKVShardFromJSONFile builds a [KVShard] from a JSON file holding
// {"key", "value"} objects with base64-encoded fields.
func NewKVShardFromJSONFile(source *sampling.Source, path string, lweDim, elemSize, plaintextBits int) (s *KVShard, err error) {

	enc, err := LoadKVElements(path)
	if err != nil {
		return nil, err
	}
	log.Infow("loaded kv elements", "path", path, "count", len(enc))

	keys := make([]string, len(enc))
	values := make([]string, len(enc))
	for i, e := range enc {
		keys[i] = e.Key
		values[i] = e.Value
	}

	return NewKVShardFromBase64(source, keys, values, lweDim, elemSize, plaintextBits)
}

// WriteToFile persists the database entries and the public parameters as
// two JSON files. Paths ending in ".zst" are zstd-compressed.
func (s *Shard) WriteToFile(dbPath, paramsPath string) (err error) {
	if err = writeEntriesFile(dbPath, s.db.Entries()); err != nil {
		return
	}
	return writeParamsFile(paramsPath, &s.params.ServerParams, nil)
}

// WriteToFile persists the database entries and the public parameters as
// two JSON files. Paths ending in ".zst" are zstd-compressed.
func (s *KVShard) WriteToFile(dbPath, paramsPath string) (err error) {
	if err = writeEntriesFile(dbPath, s.db.Entries()); err != nil {
		return
	}
	return writeParamsFile(paramsPath, &s.params.ServerParams, &s.params.Filter)
}

// LoadIndexDatabase reads a database snapshot written by WriteToFile. The
// construction parameters are not part of the snapshot and must be
// supplied by the caller.
func LoadIndexDatabase(path string, m, elemSize, plaintextBits int) (db *IndexDatabase, err error) {

	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var entries structs.Matrix[uint32]
	if err = json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return newIndexDatabaseFromEntries(entries, m, elemSize, plaintextBits)
}

func writeEntriesFile(path string, entries structs.Matrix[uint32]) (err error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	log.Infow("writing database snapshot", "path", path, "bytes", len(raw))
	return writeFile(path, raw)
}

func writeParamsFile(path string, params *ServerParams, filter *bfuse.FilterParams) (err error) {

	file := paramsFile{
		LhsSeed: params.PublicSeed,
		RHS:     make([][]uint32, len(params.RHS)),
	}
	for j := range params.RHS {
		file.RHS[j] = params.RHS[j]
	}

	if filter != nil {
		file.Filter = &filterFile{
			Seed:               filter.Seed,
			SegmentLength:      filter.SegmentLength,
			SegmentLengthMask:  filter.SegmentLengthMask,
			SegmentCountLength: filter.SegmentCountLength,
		}
	}

	raw, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	log.Infow("writing params snapshot", "path", path, "bytes", len(raw))
	return writeFile(path, raw)
}

// LoadIndexParams reads a params snapshot written by WriteToFile. The
// construction parameters are not part of the snapshot and must be
// supplied by the caller.
func LoadIndexParams(path string, lweDim, m, elemSize, plaintextBits int) (p *IndexParams, err error) {

	core, _, err := loadParamsFile(path, lweDim, m, m, elemSize, plaintextBits)
	if err != nil {
		return nil, err
	}

	return &IndexParams{ServerParams: *core}, nil
}

// LoadKVParams reads a params snapshot written by WriteToFile. height is
// the filter length of the database the params were built for.
func LoadKVParams(path string, lweDim, records, height, elemSize, plaintextBits int) (p *KVParams, err error) {

	core, filter, err := loadParamsFile(path, lweDim, records, height, elemSize, plaintextBits)
	if err != nil {
		return nil, err
	}

	if filter == nil {
		return nil, fmt.Errorf("params snapshot %s carries no filter section", path)
	}

	return &KVParams{
		ServerParams: *core,
		Filter: bfuse.FilterParams{
			Seed:               filter.Seed,
			SegmentLength:      filter.SegmentLength,
			SegmentLengthMask:  filter.SegmentLengthMask,
			SegmentCountLength: filter.SegmentCountLength,
		},
	}, nil
}

func loadParamsFile(path string, lweDim, records, height, elemSize, plaintextBits int) (core *ServerParams, filter *filterFile, err error) {

	raw, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file paramsFile
	if err = json.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ptxt, err := lwe.NewPlaintextParams(plaintextBits)
	if err != nil {
		return nil, nil, err
	}

	if len(file.RHS) != ptxt.RowWidth(elemSize) {
		return nil, nil, fmt.Errorf("%w: %d rhs columns for row width %d", ErrLengthMismatch, len(file.RHS), ptxt.RowWidth(elemSize))
	}

	rhs := make(structs.Matrix[uint32], len(file.RHS))
	for j := range file.RHS {
		if len(file.RHS[j]) != lweDim {
			return nil, nil, fmt.Errorf("rhs column %d: %w: length %d, want %d", j, ErrLengthMismatch, len(file.RHS[j]), lweDim)
		}
		rhs[j] = file.RHS[j]
	}

	return &ServerParams{
		Dim:        lweDim,
		Records:    records,
		Height:     height,
		ElemSize:   elemSize,
		Ptxt:       ptxt,
		PublicSeed: file.LhsSeed,
		RHS:        rhs,
	}, file.Filter, nil
}

func readFile(path string) (raw []byte, err error) {

	raw, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.HasSuffix(path, zstExt) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if raw, err = dec.DecodeAll(raw, nil); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}

	return
}

func writeFile(path string, raw []byte) (err error) {

	if strings.HasSuffix(path, zstExt) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return err
		}
		raw = enc.EncodeAll(raw, nil)
		if err = enc.Close(); err != nil {
			return err
		}
	}

	return os.WriteFile(path, raw, 0o644)
}
