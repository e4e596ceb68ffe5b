package sysex

import (
	"bytes"
	"testing"
)

func TestNibbleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0xAB}},
		{"all zeros", make([]byte, 16)},
		{"all ones", bytes.Repeat([]byte{0xFF}, 8)},
		{"mixed", []byte{0x00, 0x0F, 0xF0, 0x7F, 0x80, 0xC3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := NibbleEncode(tt.data)
			if len(encoded) != 2*len(tt.data) {
				t.Fatalf("encoded length = %d, want %d", len(encoded), 2*len(tt.data))
			}
			for _, b := range encoded {
				if b > 0x0F {
					t.Fatalf("encoded byte 0x%02X exceeds nibble range", b)
				}
			}
			decoded, truncated := NibbleDecode(encoded)
			if truncated {
				t.Error("decode of even-length input reported truncation")
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Errorf("round trip = % X, want % X", decoded, tt.data)
			}
		})
	}
}

func TestNibbleEncodeOrder(t *testing.T) {
	// Low nibble is transmitted first.
	got := NibbleEncode([]byte{0xAB})
	want := []byte{0x0B, 0x0A}
	if !bytes.Equal(got, want) {
		t.Errorf("NibbleEncode(0xAB) = % X, want % X", got, want)
	}
}

func TestNibbleDecodeOddLength(t *testing.T) {
	decoded, truncated := NibbleDecode([]byte{0x0B, 0x0A, 0x05})
	if !truncated {
		t.Error("odd-length decode did not report truncation")
	}
	if !bytes.Equal(decoded, []byte{0xAB}) {
		t.Errorf("decoded = % X, want [AB]", decoded)
	}
}

func TestEncodeNameLength(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "KICK"},
		{"exact", "TWELVECHARS."},
		{"long", "THIS NAME IS FAR TOO LONG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EncodeName(tt.input, NameLength)
			if len(out) != NameLength {
				t.Errorf("EncodeName(%q) length = %d, want %d", tt.input, len(out), NameLength)
			}
		})
	}
}

func TestNameRoundTrip(t *testing.T) {
	tests := []string{
		"KICK",
		"SNARE 01",
		"A-1.WAV",
		"0123456789#+",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			got := DecodeName(EncodeName(name, NameLength))
			if got != name {
				t.Errorf("round trip = %q, want %q", got, name)
			}
		})
	}
}

func TestEncodeNameCaseFolds(t *testing.T) {
	if got := DecodeName(EncodeName("kick", NameLength)); got != "KICK" {
		t.Errorf("DecodeName = %q, want %q", got, "KICK")
	}
}

func TestEncodeNameUnmappedBecomesSpace(t *testing.T) {
	out := EncodeName("A!B", 3)
	if out[1] != nameSpace {
		t.Errorf("unmapped char code = %d, want %d (space)", out[1], nameSpace)
	}
}

func TestDecodeNameUnknownCode(t *testing.T) {
	if got := DecodeName([]byte{11, 0x7F}); got != "A?" {
		t.Errorf("DecodeName = %q, want %q", got, "A?")
	}
}
