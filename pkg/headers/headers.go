// Package headers builds the fixed-layout binary header records the
// S2800/S3000 expects for samples, programs, and keygroups.
//
// Builders return raw bytes, not nibble-encoded; the caller nibble-encodes
// before transmission. Field offsets follow the S2800/S3000 SysEx
// specification (https://lakai.sourceforge.net/docs/s2800_sysex.html).
package headers

import "github.com/s28tools/s2800ctl/pkg/sysex"

// HeaderSize is the length of every S1000-family header record.
const HeaderSize = 192

// KeygroupBlockID identifies a keygroup header block (byte 0).
const KeygroupBlockID = 2

// MuteGroupOff disables the mute group (0-31 select a group).
const MuteGroupOff = 0xFF

// BuildSampleHeader builds a 192-byte sample header.
//
// Key offsets:
//
//	0x00: Header ID (3 = S3000/S2800)
//	0x01: Bandwidth (1 = 20kHz/full)
//	0x02: Original pitch (MIDI note, 60 = C3)
//	0x03-0x0E: Sample name (12 bytes, Akai encoding)
//	0x0F: Sample rate valid flag (0x80)
//	0x10: Number of active loops (0)
//	0x13: Playback type (0 = no loop)
//	0x1A-0x1D: Data length in samples (4 bytes LE)
//	0x1E-0x21: Play start (4 bytes LE, 0)
//	0x22-0x25: Play end (4 bytes LE, length - 1)
//	0x8A-0x8B: Sample rate in Hz (2 bytes LE)
//
// sampleLength counts samples, not bytes. Loop fields stay zero: no looping.
func BuildSampleHeader(name string, sampleLength, sampleRate, originalPitch int) []byte {
	h := make([]byte, HeaderSize)

	h[0x00] = 3 // S3000 format
	h[0x01] = 1 // 20kHz bandwidth (full)
	h[0x02] = byte(originalPitch) & 0x7F

	copy(h[0x03:0x0F], sysex.EncodeName(name, sysex.NameLength))

	h[0x0F] = 0x80 // sample rate valid
	h[0x10] = 0    // no active loops
	h[0x11] = 0    // first active loop index
	h[0x13] = 0    // playback type: no loop

	putUint32LE(h[0x1A:], uint32(sampleLength))

	// Play start at 0x1E stays zero.

	playEnd := sampleLength - 1
	if playEnd < 0 {
		playEnd = 0
	}
	putUint32LE(h[0x22:], uint32(playEnd))

	putUint16LE(h[0x8A:], uint16(sampleRate))

	return h
}

// BuildProgramHeader builds a 192-byte program header.
//
// Field offsets:
//
//	0x00-0x02: KGRP1@ -- block address of first keygroup (internal, left 0)
//	0x03-0x0E: PRNAME -- program name (12 bytes, Akai encoding)
//	0x0F: PRGNUM -- MIDI program number
//	0x10: PMCHAN -- MIDI channel (0-15, 0xFF = OMNI)
//	0x11: POLYPH -- polyphony depth (31 = 32 voices)
//	0x12: PRIORT -- voice priority (1 = normal)
//	0x13: PLAYLO / 0x14: PLAYHI -- play range
//	0x16: OUTPUT -- output routing
//	0x17: STEREO -- L/R output level (0-99)
//	0x18: PANPOS -- pan balance (50 = center)
//	0x19: PRLOUD -- basic loudness (0-99)
//	0x27: B_PTCH -- pitch bend up range
//	0x2A: GROUPS -- keygroup count (the device treats this as read-only;
//	      written here as an advisory hint)
//	0x3D: voice assignment (0 = OLDEST)
func BuildProgramHeader(name string, numKeygroups, midiChannel, programNumber int) []byte {
	h := make([]byte, HeaderSize)

	copy(h[0x03:0x0F], sysex.EncodeName(name, sysex.NameLength))

	h[0x0F] = byte(programNumber) & 0x7F
	h[0x10] = byte(midiChannel)
	h[0x11] = 31  // full polyphony
	h[0x12] = 1   // normal priority
	h[0x13] = 21  // A1, lowest playable note
	h[0x14] = 127 // G8, highest
	h[0x16] = 0   // output 1
	h[0x17] = 99
	h[0x18] = 50 // center pan
	h[0x19] = 99
	h[0x27] = 2 // pitch bend range

	if numKeygroups > 99 {
		numKeygroups = 99
	}
	h[0x2A] = byte(numKeygroups)

	h[0x3D] = 0 // OLDEST voice stealing, suits drum kits

	return h
}

// BuildKeygroup builds a 192-byte keygroup header mapping the given key
// range to velocity zone 1 with the named sample.
//
// Field offsets:
//
//	0x00: KGIDENT -- block identifier (always 2)
//	0x01-0x02: NXTKG@ -- next keygroup block address (internal, left 0)
//	0x03: LONOTE / 0x04: HINOTE -- key range
//	0x05-0x06: KGTUNO -- tuning (cents + semitones*100, signed LE16)
//	0x07: FILFRQ -- filter frequency (99 = fully open)
//	0x08: K_FREQ -- filter key follow
//	0x0C-0x0F: envelope 1 (amplitude) ADSR
//	0x14-0x17: envelope 2 (filter) ADSR
//	0x22-0x2D: SNAME1 -- zone 1 sample name (12 bytes, Akai encoding)
//	0x2E: LOVEL1 / 0x2F: HIVEL1 -- zone 1 velocity range (0-127)
//	0x35: ZPLAY1 -- playback type (0 = as sample)
//	0xA0: mute group (0xFF = off)
//
// Zones 2-4 stay zero; the device ignores empty zones.
func BuildKeygroup(lowNote, highNote int, sampleName string, tuneSemitones, tuneCents int) []byte {
	h := make([]byte, HeaderSize)

	h[0x00] = KeygroupBlockID

	h[0x03] = byte(lowNote) & 0x7F
	h[0x04] = byte(highNote) & 0x7F

	tune := tuneCents + tuneSemitones*100
	putUint16LE(h[0x05:], uint16(int16(tune)))

	h[0x07] = 99 // filter fully open
	h[0x08] = 12 // full key follow

	// Envelope 1 (amplitude): instant attack, moderate decay/release.
	h[0x0C] = 0
	h[0x0D] = 50
	h[0x0E] = 99
	h[0x0F] = 30

	// Envelope 2 (filter).
	h[0x14] = 0
	h[0x15] = 50
	h[0x16] = 0
	h[0x17] = 30

	copy(h[0x22:0x2E], sysex.EncodeName(sampleName, sysex.NameLength))

	h[0x2E] = 0   // LOVEL1
	h[0x2F] = 127 // HIVEL1

	h[0x35] = 0 // ZPLAY1: as sample

	h[0xA0] = MuteGroupOff

	return h
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
