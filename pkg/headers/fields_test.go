package headers

import "testing"

func TestFieldRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value int
	}{
		{"one byte zero", KgFilterFreq, 0},
		{"one byte max", KgFilterFreq, 99},
		{"one byte full range", KgMuteGroup, 0xFF - 1},
		{"two byte zero", KgTune, 0},
		{"two byte positive", KgTune, 1200},
		{"two byte negative", KgTune, -1200},
		{"signed minus one", KgTune, -1},
		{"signed byte negative", KgLoudness1, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := make([]byte, HeaderSize)
			if err := WriteField(record, tt.field, tt.value); err != nil {
				t.Fatalf("WriteField() error = %v", err)
			}
			got, err := ReadFields(record, []Field{tt.field})
			if err != nil {
				t.Fatalf("ReadFields() error = %v", err)
			}
			want := tt.value
			if !tt.field.Signed && tt.field.Size == 1 {
				want &= 0xFF
			}
			if got[tt.field.Name] != want {
				t.Errorf("round trip = %d, want %d", got[tt.field.Name], want)
			}
		})
	}
}

func TestReadFieldsBatch(t *testing.T) {
	record := BuildKeygroup(36, 48, "SNARE", 0, 0)
	got, err := ReadFields(record, []Field{KgLowNote, KgHighNote, KgFilterFreq, KgHighVel1})
	if err != nil {
		t.Fatalf("ReadFields() error = %v", err)
	}
	want := map[string]int{
		"low_note":            36,
		"high_note":           48,
		"filter_frequency":    99,
		"zone1_high_velocity": 127,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestFieldOutOfBounds(t *testing.T) {
	short := make([]byte, 8)
	bad := Field{Name: "bad", Offset: 7, Size: 2}

	if _, err := ReadFields(short, []Field{bad}); err == nil {
		t.Error("ReadFields() with out-of-bounds field succeeded, want error")
	}
	if err := WriteField(short, bad, 1); err == nil {
		t.Error("WriteField() with out-of-bounds field succeeded, want error")
	}
}

func TestKeygroupFieldByName(t *testing.T) {
	f, ok := KeygroupFieldByName("filter_frequency")
	if !ok {
		t.Fatal("filter_frequency not found")
	}
	if f.Offset != 0x07 {
		t.Errorf("offset = %d, want 0x07", f.Offset)
	}
	if _, ok := KeygroupFieldByName("no_such_field"); ok {
		t.Error("unknown name resolved")
	}
}

func TestEncodeFieldValue(t *testing.T) {
	got := EncodeFieldValue(KgTune, -1)
	if len(got) != 2 || got[0] != 0xFF || got[1] != 0xFF {
		t.Errorf("EncodeFieldValue(KgTune, -1) = % X, want FF FF", got)
	}
	got = EncodeFieldValue(KgFilterFreq, 50)
	if len(got) != 1 || got[0] != 50 {
		t.Errorf("EncodeFieldValue(KgFilterFreq, 50) = % X, want 32", got)
	}
}
