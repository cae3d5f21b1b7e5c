package scanner

import "testing"

func TestParseFormatValueRoundTrip(t *testing.T) {
	cases := []struct {
		text string
		vt   ValueType
	}{
		{"42", I32},
		{"-17", I32},
		{"255", U8},
		{"65535", U16},
		{"9223372036854775807", I64},
		{"18446744073709551615", U64},
		{"3.5", F32},
		{"-2.25", F64},
	}
	for _, c := range cases {
		buf, err := ParseValue(c.text, c.vt, LittleEndian)
		if err != nil {
			t.Fatalf("ParseValue(%q, %v): %v", c.text, c.vt, err)
		}
		if len(buf) != c.vt.Width() {
			t.Fatalf("ParseValue(%q) len = %d, want %d", c.text, len(buf), c.vt.Width())
		}
		got := FormatValue(buf, c.vt, LittleEndian)
		if got != c.text && !(c.vt == F32 || c.vt == F64) {
			t.Fatalf("FormatValue(ParseValue(%q)) = %q", c.text, got)
		}
	}
}

func TestParseValueEmptyInputErrors(t *testing.T) {
	if _, err := ParseValue("", I32, LittleEndian); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := ParseValue("   ", I32, LittleEndian); err == nil {
		t.Fatal("expected error for whitespace-only input")
	}
}

func TestScanConfigValidateRejectsBadAlignment(t *testing.T) {
	cfg := ScanConfig{ValueType: I32, Mode: Exact, Input: []byte{1, 2, 3, 4}, Alignment: 3, DataSize: 4}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-power-of-two alignment")
	}
}

func TestScanConfigValidateRejectsStringModeOnNumeric(t *testing.T) {
	cfg := ScanConfig{ValueType: I32, Mode: Contains, Input: []byte{1, 2, 3, 4}, Alignment: 1, DataSize: 4}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: numeric type cannot use Contains")
	}
}

func TestScanConfigValidateRejectsNumericModeOnString(t *testing.T) {
	cfg := ScanConfig{ValueType: StringASCII, Mode: GreaterThan, Input: []byte("hi"), Alignment: 1, DataSize: 2}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: string type cannot use GreaterThan")
	}
}

func TestScanConfigValidateRequiresInput2ForBetween(t *testing.T) {
	cfg := ScanConfig{ValueType: I32, Mode: Between, Input: []byte{1, 2, 3, 4}, Alignment: 1, DataSize: 4}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: Between requires Input2")
	}
}

func TestValueTypeWidthPanicsForString(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Width on a string ValueType")
		}
	}()
	StringASCII.Width()
}
