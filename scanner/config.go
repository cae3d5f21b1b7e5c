// Package scanner implements the Memory Scanner: a parallel value-search
// engine over process address space supporting iterative refinement,
// numeric and string comparators, endianness, and result persistence via
// the store package. Comparators are resolved once per scan to a Go func
// value, and batches are flushed through a store.Store.
package scanner

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/PHTNCx64/vertex/verrors"
)

// ValueType is the scan's value domain.
type ValueType int

const (
	I8 ValueType = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	StringASCII
	StringUTF8
	StringUTF16
	StringUTF32
)

func (v ValueType) String() string {
	switch v {
	case I8:
		return "I8"
	case U8:
		return "U8"
	case I16:
		return "I16"
	case U16:
		return "U16"
	case I32:
		return "I32"
	case U32:
		return "U32"
	case I64:
		return "I64"
	case U64:
		return "U64"
	case F32:
		return "F32"
	case F64:
		return "F64"
	case StringASCII:
		return "StringASCII"
	case StringUTF8:
		return "StringUTF8"
	case StringUTF16:
		return "StringUTF16"
	case StringUTF32:
		return "StringUTF32"
	default:
		return "ValueType(unknown)"
	}
}

// IsString reports whether v is one of the four string encodings.
func (v ValueType) IsString() bool {
	switch v {
	case StringASCII, StringUTF8, StringUTF16, StringUTF32:
		return true
	default:
		return false
	}
}

// Width returns the fixed byte width of a numeric ValueType; it panics for
// string types, whose width is input-length-dependent (see
// ScanConfig.DataSize).
func (v ValueType) Width() int {
	switch v {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		panic(fmt.Sprintf("scanner: Width called on string type %v", v))
	}
}

// ScanMode is the comparator selector.
type ScanMode int

const (
	Exact ScanMode = iota
	GreaterThan
	LessThan
	Between
	Unknown
	Changed
	Unchanged
	Increased
	Decreased
	IncreasedBy
	DecreasedBy
	Contains
	BeginsWith
	EndsWith
)

// NeedsPreviousValue reports whether mode only makes sense on a next-scan,
// because it compares against the previous recorded value.
func (m ScanMode) NeedsPreviousValue() bool {
	switch m {
	case Changed, Unchanged, Increased, Decreased, IncreasedBy, DecreasedBy:
		return true
	default:
		return false
	}
}

// Endianness selects the byte order values are parsed/compared in.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ScanConfig is immutable after a scan starts, until NextScan/UndoScan
// replaces it.
type ScanConfig struct {
	ValueType   ValueType
	Mode        ScanMode
	Input       []byte // already parsed/encoded in ValueType+Endianness
	Input2      []byte // second input, for Between and *_By modes
	Alignment   int    // power-of-two, >= 1
	Endianness  Endianness
	HexDisplay  bool
	DataSize    int // type width, or for strings the input length
}

// FirstValueSize is the width firstValue occupies in a result record: for
// numeric types it equals DataSize; strings also store DataSize bytes of
// "first value" (the matched substring/window itself).
func (c ScanConfig) FirstValueSize() int {
	return c.DataSize
}

// Validate checks the invariants a ScanConfig must satisfy before a scan
// may start.
func (c ScanConfig) Validate() error {
	if c.Alignment <= 0 || c.Alignment&(c.Alignment-1) != 0 {
		return verrors.New("scanner.ScanConfig.Validate", verrors.InvalidParameter, "alignment must be a power of two >= 1")
	}
	if c.DataSize <= 0 {
		return verrors.New("scanner.ScanConfig.Validate", verrors.InvalidParameter, "dataSize must be > 0")
	}
	if c.ValueType.IsString() {
		switch c.Mode {
		case Exact, Contains, BeginsWith, EndsWith:
		default:
			return verrors.New("scanner.ScanConfig.Validate", verrors.InvalidParameter, "string types only support Exact/Contains/BeginsWith/EndsWith")
		}
	} else {
		switch c.Mode {
		case Contains, BeginsWith, EndsWith:
			return verrors.New("scanner.ScanConfig.Validate", verrors.InvalidParameter, "numeric types do not support string modes")
		}
	}
	if c.Mode == Between && len(c.Input2) == 0 {
		return verrors.New("scanner.ScanConfig.Validate", verrors.InvalidParameter, "Between requires a second input")
	}
	return nil
}

// ParseValue parses a decimal/hex textual value into its on-wire encoding
// for valueType under endianness. Empty or whitespace-only input returns
// an error.
func ParseValue(text string, valueType ValueType, endian Endianness) ([]byte, error) {
	if isBlank(text) {
		return nil, verrors.New("scanner.ParseValue", verrors.InvalidParameter, "empty input")
	}
	order := endian.ByteOrder()
	buf := make([]byte, valueTypeWidthForParse(valueType))

	switch valueType {
	case I8:
		n, err := strconv.ParseInt(text, 0, 8)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		buf[0] = byte(int8(n))
	case U8:
		n, err := strconv.ParseUint(text, 0, 8)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		buf[0] = byte(n)
	case I16:
		n, err := strconv.ParseInt(text, 0, 16)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint16(buf, uint16(int16(n)))
	case U16:
		n, err := strconv.ParseUint(text, 0, 16)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint16(buf, uint16(n))
	case I32:
		n, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint32(buf, uint32(int32(n)))
	case U32:
		n, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint32(buf, uint32(n))
	case I64:
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint64(buf, uint64(n))
	case U64:
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint64(buf, n)
	case F32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint32(buf, math.Float32bits(float32(f)))
	case F64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, verrors.Wrap("scanner.ParseValue", verrors.InvalidParameter, err)
		}
		order.PutUint64(buf, math.Float64bits(f))
	default:
		return nil, verrors.New("scanner.ParseValue", verrors.InvalidParameter, "ParseValue does not accept string types; encode them directly")
	}
	return buf, nil
}

// FormatValue renders the on-wire bytes of a numeric ValueType back to
// text, the inverse of ParseValue.
func FormatValue(data []byte, valueType ValueType, endian Endianness) string {
	order := endian.ByteOrder()
	switch valueType {
	case I8:
		return strconv.FormatInt(int64(int8(data[0])), 10)
	case U8:
		return strconv.FormatUint(uint64(data[0]), 10)
	case I16:
		return strconv.FormatInt(int64(int16(order.Uint16(data))), 10)
	case U16:
		return strconv.FormatUint(uint64(order.Uint16(data)), 10)
	case I32:
		return strconv.FormatInt(int64(int32(order.Uint32(data))), 10)
	case U32:
		return strconv.FormatUint(uint64(order.Uint32(data)), 10)
	case I64:
		return strconv.FormatInt(int64(order.Uint64(data)), 10)
	case U64:
		return strconv.FormatUint(order.Uint64(data), 10)
	case F32:
		return strconv.FormatFloat(float64(math.Float32frombits(order.Uint32(data))), 'g', -1, 32)
	case F64:
		return strconv.FormatFloat(math.Float64frombits(order.Uint64(data)), 'g', -1, 64)
	default:
		return string(data)
	}
}

func valueTypeWidthForParse(v ValueType) int {
	return v.Width()
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
