package sysex

import "strings"

// nameChars is the Akai character set. A byte in a name field is an index
// into this table.
const nameChars = "0123456789 ABCDEFGHIJKLMNOPQRSTUVWXYZ#+-./"

// nameSpace is the code for the space character, also used as padding and
// as the substitute for characters the device cannot represent.
const nameSpace = 10

// NameLength is the width of every name field in the S1000-family headers.
const NameLength = 12

// EncodeNameChar converts a single ASCII character to its Akai code.
// Lowercase letters are folded to uppercase; unmapped characters become
// the space code.
func EncodeNameChar(c rune) byte {
	idx := strings.IndexRune(nameChars, toUpper(c))
	if idx >= 0 {
		return byte(idx)
	}
	return nameSpace
}

// DecodeNameChar converts an Akai character code to ASCII. Unknown codes
// decode to '?'.
func DecodeNameChar(code byte) byte {
	if int(code) < len(nameChars) {
		return nameChars[code]
	}
	return '?'
}

// EncodeName encodes a string as a fixed-width Akai name field. The result
// is always exactly length bytes: short names are padded with space codes,
// long names are truncated.
func EncodeName(name string, length int) []byte {
	out := make([]byte, length)
	runes := []rune(name)
	for i := 0; i < length; i++ {
		if i < len(runes) {
			out[i] = EncodeNameChar(runes[i])
		} else {
			out[i] = nameSpace
		}
	}
	return out
}

// DecodeName decodes Akai name bytes to ASCII, stripping trailing spaces.
func DecodeName(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, code := range data {
		b.WriteByte(DecodeNameChar(code))
	}
	return strings.TrimRight(b.String(), " ")
}

func toUpper(c rune) rune {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
