package headers

import "fmt"

// Field describes one parameter inside a header record: its byte offset,
// width, and signedness. Descriptors let the session batch-extract values
// from a single header read without re-deriving offsets at each call site.
type Field struct {
	Name   string
	Offset int
	Size   int // 1 or 2 bytes
	Signed bool
}

// Keygroup header fields addressable through partial reads and writes.
var (
	KgLowNote     = Field{Name: "low_note", Offset: 0x03, Size: 1}
	KgHighNote    = Field{Name: "high_note", Offset: 0x04, Size: 1}
	KgTune        = Field{Name: "tune", Offset: 0x05, Size: 2, Signed: true}
	KgFilterFreq  = Field{Name: "filter_frequency", Offset: 0x07, Size: 1}
	KgFilterKey   = Field{Name: "filter_key_follow", Offset: 0x08, Size: 1}
	KgEnv1Attack  = Field{Name: "env1_attack", Offset: 0x0C, Size: 1}
	KgEnv1Decay   = Field{Name: "env1_decay", Offset: 0x0D, Size: 1}
	KgEnv1Sustain = Field{Name: "env1_sustain", Offset: 0x0E, Size: 1}
	KgEnv1Release = Field{Name: "env1_release", Offset: 0x0F, Size: 1}
	KgEnv2Attack  = Field{Name: "env2_attack", Offset: 0x14, Size: 1}
	KgEnv2Decay   = Field{Name: "env2_decay", Offset: 0x15, Size: 1}
	KgEnv2Sustain = Field{Name: "env2_sustain", Offset: 0x16, Size: 1}
	KgEnv2Release = Field{Name: "env2_release", Offset: 0x17, Size: 1}
	KgLowVel1     = Field{Name: "zone1_low_velocity", Offset: 0x2E, Size: 1}
	KgHighVel1    = Field{Name: "zone1_high_velocity", Offset: 0x2F, Size: 1}
	KgZoneTune1   = Field{Name: "zone1_tune", Offset: 0x30, Size: 2, Signed: true}
	KgLoudness1   = Field{Name: "zone1_loudness", Offset: 0x32, Size: 1, Signed: true}
	KgMuteGroup   = Field{Name: "mute_group", Offset: 0xA0, Size: 1}
)

// KeygroupFields enumerates every addressable keygroup field.
var KeygroupFields = []Field{
	KgLowNote, KgHighNote, KgTune,
	KgFilterFreq, KgFilterKey,
	KgEnv1Attack, KgEnv1Decay, KgEnv1Sustain, KgEnv1Release,
	KgEnv2Attack, KgEnv2Decay, KgEnv2Sustain, KgEnv2Release,
	KgLowVel1, KgHighVel1, KgZoneTune1, KgLoudness1,
	KgMuteGroup,
}

// Program header fields.
var (
	PrProgramNumber = Field{Name: "program_number", Offset: 0x0F, Size: 1}
	PrMIDIChannel   = Field{Name: "midi_channel", Offset: 0x10, Size: 1}
	PrPolyphony     = Field{Name: "polyphony", Offset: 0x11, Size: 1}
	PrPriority      = Field{Name: "priority", Offset: 0x12, Size: 1}
	PrPlayLow       = Field{Name: "play_low", Offset: 0x13, Size: 1}
	PrPlayHigh      = Field{Name: "play_high", Offset: 0x14, Size: 1}
	PrOutput        = Field{Name: "output", Offset: 0x16, Size: 1}
	PrStereoLevel   = Field{Name: "stereo_level", Offset: 0x17, Size: 1}
	PrPan           = Field{Name: "pan", Offset: 0x18, Size: 1}
	PrLoudness      = Field{Name: "loudness", Offset: 0x19, Size: 1}
	PrBendRange     = Field{Name: "bend_range", Offset: 0x27, Size: 1}
	PrKeygroups     = Field{Name: "keygroups", Offset: 0x2A, Size: 1}
)

// ProgramFields enumerates every addressable program field.
var ProgramFields = []Field{
	PrProgramNumber, PrMIDIChannel, PrPolyphony, PrPriority,
	PrPlayLow, PrPlayHigh, PrOutput, PrStereoLevel,
	PrPan, PrLoudness, PrBendRange, PrKeygroups,
}

// KeygroupFieldByName resolves a field descriptor from its wire name.
// Returns false when no keygroup field has that name.
func KeygroupFieldByName(name string) (Field, bool) {
	for _, f := range KeygroupFields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ReadFields extracts every descriptor's value from a raw header record.
// Multi-byte fields are little-endian; signed fields are sign-extended.
func ReadFields(record []byte, fields []Field) (map[string]int, error) {
	out := make(map[string]int, len(fields))
	for _, f := range fields {
		if err := f.validate(len(record)); err != nil {
			return nil, err
		}
		var val int
		switch f.Size {
		case 1:
			val = int(record[f.Offset])
			if f.Signed && val > 127 {
				val -= 256
			}
		case 2:
			val = int(record[f.Offset]) | int(record[f.Offset+1])<<8
			if f.Signed && val > 32767 {
				val -= 65536
			}
		default:
			return nil, fmt.Errorf("field %s: unsupported size %d", f.Name, f.Size)
		}
		out[f.Name] = val
	}
	return out, nil
}

// WriteField encodes value into the record at the descriptor's offset,
// little-endian for 2-byte fields.
func WriteField(record []byte, f Field, value int) error {
	if err := f.validate(len(record)); err != nil {
		return err
	}
	switch f.Size {
	case 1:
		record[f.Offset] = byte(value)
	case 2:
		record[f.Offset] = byte(value)
		record[f.Offset+1] = byte(value >> 8)
	default:
		return fmt.Errorf("field %s: unsupported size %d", f.Name, f.Size)
	}
	return nil
}

// EncodeFieldValue renders value as the field's wire bytes, for partial
// header writes.
func EncodeFieldValue(f Field, value int) []byte {
	if f.Size == 2 {
		return []byte{byte(value), byte(value >> 8)}
	}
	return []byte{byte(value)}
}

func (f Field) validate(recordLen int) error {
	if f.Offset < 0 || f.Offset+f.Size > recordLen {
		return fmt.Errorf("field %s: offset %d size %d exceeds record length %d",
			f.Name, f.Offset, f.Size, recordLen)
	}
	return nil
}
