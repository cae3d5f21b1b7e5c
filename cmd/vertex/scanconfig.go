package main

import (
	"fmt"
	"strings"

	"github.com/PHTNCx64/vertex/scanner"
)

func parseValueType(s string) (scanner.ValueType, error) {
	switch strings.ToLower(s) {
	case "i8":
		return scanner.I8, nil
	case "u8":
		return scanner.U8, nil
	case "i16":
		return scanner.I16, nil
	case "u16":
		return scanner.U16, nil
	case "i32":
		return scanner.I32, nil
	case "u32":
		return scanner.U32, nil
	case "i64":
		return scanner.I64, nil
	case "u64":
		return scanner.U64, nil
	case "f32":
		return scanner.F32, nil
	case "f64":
		return scanner.F64, nil
	case "str-ascii":
		return scanner.StringASCII, nil
	case "str-utf8":
		return scanner.StringUTF8, nil
	case "str-utf16":
		return scanner.StringUTF16, nil
	case "str-utf32":
		return scanner.StringUTF32, nil
	default:
		return 0, fmt.Errorf("unknown --type %q", s)
	}
}

func parseScanMode(s string) (scanner.ScanMode, error) {
	switch strings.ToLower(s) {
	case "exact":
		return scanner.Exact, nil
	case "gt":
		return scanner.GreaterThan, nil
	case "lt":
		return scanner.LessThan, nil
	case "between":
		return scanner.Between, nil
	case "unknown":
		return scanner.Unknown, nil
	case "changed":
		return scanner.Changed, nil
	case "unchanged":
		return scanner.Unchanged, nil
	case "increased":
		return scanner.Increased, nil
	case "decreased":
		return scanner.Decreased, nil
	case "increasedby":
		return scanner.IncreasedBy, nil
	case "decreasedby":
		return scanner.DecreasedBy, nil
	case "contains":
		return scanner.Contains, nil
	case "beginswith":
		return scanner.BeginsWith, nil
	case "endswith":
		return scanner.EndsWith, nil
	default:
		return 0, fmt.Errorf("unknown --mode %q", s)
	}
}

func parseEndian(s string) (scanner.Endianness, error) {
	switch strings.ToLower(s) {
	case "little", "":
		return scanner.LittleEndian, nil
	case "big":
		return scanner.BigEndian, nil
	default:
		return 0, fmt.Errorf("unknown --endian %q", s)
	}
}

// buildScanConfig turns the scan subcommands' flag strings into a
// scanner.ScanConfig, encoding value/value2 via scanner.ParseValue the
// same way an interactive console line does (see console.go).
func buildScanConfig(typeStr, modeStr, value, value2, endianStr string, alignment int, hexDisplay bool) (scanner.ScanConfig, error) {
	vt, err := parseValueType(typeStr)
	if err != nil {
		return scanner.ScanConfig{}, err
	}
	mode, err := parseScanMode(modeStr)
	if err != nil {
		return scanner.ScanConfig{}, err
	}
	endian, err := parseEndian(endianStr)
	if err != nil {
		return scanner.ScanConfig{}, err
	}

	cfg := scanner.ScanConfig{
		ValueType:  vt,
		Mode:       mode,
		Alignment:  alignment,
		Endianness: endian,
		HexDisplay: hexDisplay,
	}

	if mode.NeedsPreviousValue() && value == "" {
		// Changed/Unchanged/Increased/Decreased compare against the
		// previously recorded value and need no fresh Input.
		cfg.DataSize = vt.Width()
		return cfg, nil
	}

	if value != "" {
		input, err := scanner.ParseValue(value, vt, endian)
		if err != nil {
			return scanner.ScanConfig{}, fmt.Errorf("--value: %w", err)
		}
		cfg.Input = input
	}
	if value2 != "" {
		input2, err := scanner.ParseValue(value2, vt, endian)
		if err != nil {
			return scanner.ScanConfig{}, fmt.Errorf("--value2: %w", err)
		}
		cfg.Input2 = input2
	}

	if vt.IsString() {
		cfg.DataSize = len(cfg.Input)
	} else {
		cfg.DataSize = vt.Width()
	}
	return cfg, nil
}
