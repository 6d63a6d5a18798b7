package encoding

import "testing"

func TestFixedStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"ascii", "ROBOT01"},
		{"kana", "ロボット"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := UTF8ToFixedString(tt.in, 16)
			if len(field) != 16 {
				t.Fatalf("field length = %d, want 16", len(field))
			}
			if got := FixedStringToUTF8(field); got != tt.in {
				t.Errorf("FixedStringToUTF8 = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestFixedStringTrim(t *testing.T) {
	field := []byte("NAME    \x00junk")
	if got := FixedStringToUTF8(field); got != "NAME" {
		t.Errorf("got %q, want NAME", got)
	}
	if got := string(TrimNullBytes([]byte("ab\x00\x00"))); got != "ab" {
		t.Errorf("TrimNullBytes = %q", got)
	}
}

func TestPrintable(t *testing.T) {
	if !Printable("ロボ 01") {
		t.Error("kana label should be printable")
	}
	if Printable("a\x01b") {
		t.Error("control characters should not be printable")
	}
}
