package sysex

// NibbleEncode splits each input byte into two output bytes, low nibble
// first, each carrying 4 bits in its low half. SysEx payload bytes must
// have bit 7 clear, so raw header bytes are always transmitted in this
// form:
//
//	0xAB -> 0x0B, 0x0A
func NibbleEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		out = append(out, b&0x0F, (b>>4)&0x0F)
	}
	return out
}

// NibbleDecode reassembles nibble pairs into raw bytes. Odd-length input is
// not an error: the largest even prefix is decoded and truncated reports
// that a trailing nibble was dropped. Callers on the live reply path rely
// on this leniency.
func NibbleDecode(data []byte) (out []byte, truncated bool) {
	out = make([]byte, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		lo := data[i] & 0x0F
		hi := data[i+1] & 0x0F
		out = append(out, lo|hi<<4)
	}
	return out, len(data)%2 != 0
}
