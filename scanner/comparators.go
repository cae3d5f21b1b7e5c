package scanner

import (
	"bytes"
	"math"
)

// Comparator is resolved once per scan from (ValueType, ScanMode) and
// invoked per candidate address thereafter: a function-pointer table
// built once instead of a switch re-evaluated per candidate.
//
// current is the freshly-read bytes at the candidate address. previous is
// the value recorded on the prior scan (nil on a first scan). input and
// input2 are ScanConfig.Input/Input2, already encoded on-wire.
type Comparator func(current, previous, input, input2 []byte) bool

const (
	floatTolerance32 = 1e-4
	doubleTolerance  = 1e-7
)

// resolveComparator returns the Comparator for one (valueType, mode) pair,
// or nil if the combination is invalid (callers must validate via
// ScanConfig.Validate first).
func resolveComparator(valueType ValueType, mode ScanMode) Comparator {
	if valueType.IsString() {
		return stringComparator(mode)
	}
	return numericComparator(valueType, mode)
}

func stringComparator(mode ScanMode) Comparator {
	switch mode {
	case Exact:
		return func(current, previous, input, input2 []byte) bool {
			return bytes.Equal(current, input)
		}
	case Contains:
		return func(current, previous, input, input2 []byte) bool {
			return bytes.Contains(current, input)
		}
	case BeginsWith:
		return func(current, previous, input, input2 []byte) bool {
			return bytes.HasPrefix(current, input)
		}
	case EndsWith:
		return func(current, previous, input, input2 []byte) bool {
			return bytes.HasSuffix(current, input)
		}
	default:
		return nil
	}
}

// numCompare abstracts a single numeric value's decode + ordering so the
// ScanMode switch below is written once instead of once per ValueType.
type numCompare struct {
	decode func([]byte) float64
	equal  func(a, b float64) bool
}

func numericComparator(valueType ValueType, mode ScanMode) Comparator {
	nc := numCompareFor(valueType)
	if nc == nil {
		return nil
	}

	switch mode {
	case Exact:
		return func(current, previous, input, input2 []byte) bool {
			return nc.equal(nc.decode(current), nc.decode(input))
		}
	case GreaterThan:
		return func(current, previous, input, input2 []byte) bool {
			return nc.decode(current) > nc.decode(input)
		}
	case LessThan:
		return func(current, previous, input, input2 []byte) bool {
			return nc.decode(current) < nc.decode(input)
		}
	case Between:
		return func(current, previous, input, input2 []byte) bool {
			v := nc.decode(current)
			lo, hi := nc.decode(input), nc.decode(input2)
			if lo > hi {
				lo, hi = hi, lo
			}
			return v >= lo && v <= hi
		}
	case Unknown:
		return func(current, previous, input, input2 []byte) bool {
			return true
		}
	case Changed:
		return func(current, previous, input, input2 []byte) bool {
			return !nc.equal(nc.decode(current), nc.decode(previous))
		}
	case Unchanged:
		return func(current, previous, input, input2 []byte) bool {
			return nc.equal(nc.decode(current), nc.decode(previous))
		}
	case Increased:
		return func(current, previous, input, input2 []byte) bool {
			return nc.decode(current) > nc.decode(previous)
		}
	case Decreased:
		return func(current, previous, input, input2 []byte) bool {
			return nc.decode(current) < nc.decode(previous)
		}
	case IncreasedBy:
		return func(current, previous, input, input2 []byte) bool {
			return nc.equal(nc.decode(current)-nc.decode(previous), nc.decode(input))
		}
	case DecreasedBy:
		return func(current, previous, input, input2 []byte) bool {
			return nc.equal(nc.decode(previous)-nc.decode(current), nc.decode(input))
		}
	default:
		return nil
	}
}

func numCompareFor(valueType ValueType) *numCompare {
	exactEqual := func(a, b float64) bool { return a == b }
	switch valueType {
	case I8:
		return &numCompare{decode: func(b []byte) float64 { return float64(int8(b[0])) }, equal: exactEqual}
	case U8:
		return &numCompare{decode: func(b []byte) float64 { return float64(b[0]) }, equal: exactEqual}
	case I16:
		return &numCompare{decode: func(b []byte) float64 { return float64(int16(leUint16(b))) }, equal: exactEqual}
	case U16:
		return &numCompare{decode: func(b []byte) float64 { return float64(leUint16(b)) }, equal: exactEqual}
	case I32:
		return &numCompare{decode: func(b []byte) float64 { return float64(int32(leUint32(b))) }, equal: exactEqual}
	case U32:
		return &numCompare{decode: func(b []byte) float64 { return float64(leUint32(b)) }, equal: exactEqual}
	case I64:
		return &numCompare{decode: func(b []byte) float64 { return float64(int64(leUint64(b))) }, equal: exactEqual}
	case U64:
		return &numCompare{decode: func(b []byte) float64 { return float64(leUint64(b)) }, equal: exactEqual}
	case F32:
		return &numCompare{
			decode: func(b []byte) float64 { return float64(math.Float32frombits(leUint32(b))) },
			equal:  func(a, b float64) bool { return math.Abs(a-b) < floatTolerance32 },
		}
	case F64:
		return &numCompare{
			decode: func(b []byte) float64 { return math.Float64frombits(leUint64(b)) },
			equal:  func(a, b float64) bool { return math.Abs(a-b) < doubleTolerance },
		}
	default:
		return nil
	}
}

// leUint16/32/64 decode little-endian regardless of the scan's configured
// Endianness: comparators always operate on values already byte-swapped
// into host order by the caller (see swapToHostOrder in record.go), so the
// comparator table itself never needs to branch on endianness.
func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
