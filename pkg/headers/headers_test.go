package headers

import (
	"testing"

	"github.com/s28tools/s2800ctl/pkg/sysex"
)

func readUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func readUint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func TestBuildSampleHeader(t *testing.T) {
	h := BuildSampleHeader("KICK", 1000, 44100, 60)

	if len(h) != HeaderSize {
		t.Fatalf("header length = %d, want %d", len(h), HeaderSize)
	}
	if h[0x00] != 3 {
		t.Errorf("format byte = %d, want 3", h[0x00])
	}
	if h[0x01] != 1 {
		t.Errorf("bandwidth byte = %d, want 1", h[0x01])
	}
	if h[0x02] != 60 {
		t.Errorf("pitch byte = %d, want 60", h[0x02])
	}
	if h[0x0F] != 0x80 {
		t.Errorf("rate valid flag = 0x%02X, want 0x80", h[0x0F])
	}
	if got := readUint32LE(h[0x1A:]); got != 1000 {
		t.Errorf("data length = %d, want 1000", got)
	}
	if got := readUint32LE(h[0x1E:]); got != 0 {
		t.Errorf("play start = %d, want 0", got)
	}
	if got := readUint32LE(h[0x22:]); got != 999 {
		t.Errorf("play end = %d, want 999", got)
	}
	if got := readUint16LE(h[0x8A:]); got != 44100 {
		t.Errorf("sample rate = %d, want 44100", got)
	}
	if got := sysex.DecodeName(h[0x03:0x0F]); got != "KICK" {
		t.Errorf("name = %q, want %q", got, "KICK")
	}
}

func TestBuildSampleHeaderZeroLength(t *testing.T) {
	h := BuildSampleHeader("X", 0, 44100, 60)
	if got := readUint32LE(h[0x22:]); got != 0 {
		t.Errorf("play end = %d, want 0 (clamped)", got)
	}
}

func TestBuildProgramHeader(t *testing.T) {
	h := BuildProgramHeader("DRUMS", 4, 9, 7)

	if len(h) != HeaderSize {
		t.Fatalf("header length = %d, want %d", len(h), HeaderSize)
	}
	if got := sysex.DecodeName(h[0x03:0x0F]); got != "DRUMS" {
		t.Errorf("name = %q, want %q", got, "DRUMS")
	}
	if h[0x0F] != 7 {
		t.Errorf("program number = %d, want 7", h[0x0F])
	}
	if h[0x10] != 9 {
		t.Errorf("midi channel = %d, want 9", h[0x10])
	}
	if h[0x11] != 31 {
		t.Errorf("polyphony = %d, want 31", h[0x11])
	}
	if h[0x13] != 21 || h[0x14] != 127 {
		t.Errorf("play range = %d-%d, want 21-127", h[0x13], h[0x14])
	}
	if h[0x18] != 50 {
		t.Errorf("pan = %d, want 50 (center)", h[0x18])
	}
	if h[0x2A] != 4 {
		t.Errorf("keygroup hint = %d, want 4", h[0x2A])
	}
}

func TestBuildProgramHeaderClampsKeygroups(t *testing.T) {
	h := BuildProgramHeader("P", 200, 0, 0)
	if h[0x2A] != 99 {
		t.Errorf("keygroup hint = %d, want 99", h[0x2A])
	}
}

func TestBuildKeygroup(t *testing.T) {
	h := BuildKeygroup(36, 36, "KICK", 0, 0)

	if len(h) != HeaderSize {
		t.Fatalf("header length = %d, want %d", len(h), HeaderSize)
	}
	if h[0x00] != KeygroupBlockID {
		t.Errorf("block id = %d, want %d", h[0x00], KeygroupBlockID)
	}
	if h[0x03] != 36 || h[0x04] != 36 {
		t.Errorf("key range = %d-%d, want 36-36", h[0x03], h[0x04])
	}
	if h[0x2E] != 0 || h[0x2F] != 127 {
		t.Errorf("velocity range = %d-%d, want 0-127", h[0x2E], h[0x2F])
	}
	if h[0xA0] != MuteGroupOff {
		t.Errorf("mute group = 0x%02X, want 0x%02X", h[0xA0], MuteGroupOff)
	}
	if got := sysex.DecodeName(h[0x22:0x2E]); got != "KICK" {
		t.Errorf("zone 1 sample = %q, want %q", got, "KICK")
	}
}

func TestBuildKeygroupTuning(t *testing.T) {
	tests := []struct {
		name      string
		semitones int
		cents     int
		want      int16
	}{
		{"no tuning", 0, 0, 0},
		{"up a semitone", 1, 0, 100},
		{"down with cents", -2, -25, -225},
		{"cents only", 0, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BuildKeygroup(21, 127, "S", tt.semitones, tt.cents)
			got := int16(readUint16LE(h[0x05:]))
			if got != tt.want {
				t.Errorf("tuning = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	a := BuildKeygroup(40, 52, "HAT", 1, -10)
	b := BuildKeygroup(40, 52, "HAT", 1, -10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("byte %d differs between identical builds", i)
		}
	}
}
