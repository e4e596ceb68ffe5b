// Package sysex builds and parses S1000-family SysEx messages for the
// Akai S2800/S3000/S3200 samplers.
//
// Message format: F0 47 [channel] [function] 48 [data...] F7
package sysex

import "fmt"

// Framing bytes common to all SysEx messages.
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7
)

// Akai manufacturer ID and S1000 family model ID.
const (
	ManufacturerAkai = 0x47
	ModelS1000       = 0x48
)

// S1000 function codes (confirmed on S2800 or per S1000 spec).
const (
	FuncRequestProgramList = 0x02 // RPLIST
	FuncProgramList        = 0x03 // PLIST
	FuncRequestSampleList  = 0x04 // RSLIST
	FuncSampleList         = 0x05 // SLIST
	FuncRequestProgram     = 0x06 // RPDATA
	FuncProgram            = 0x07 // PDATA
	FuncRequestKeygroup    = 0x08 // RKDATA
	FuncKeygroup           = 0x09 // KDATA
	FuncRequestSample      = 0x0A // RSDATA
	FuncSample             = 0x0B // SDATA
	FuncAcceptSDSPackets   = 0x0D // ASPACK
	FuncDeleteProgram      = 0x12 // DELP
	FuncDeleteSample       = 0x14 // DELS
	FuncReply              = 0x16 // REPLY (OK/error)
)

// S3000/S2800 extended function codes. These carry an offset/count pair and
// support partial header reads and writes.
const (
	FuncS3kRequestProgram  = 0x27
	FuncS3kProgram         = 0x28
	FuncS3kRequestKeygroup = 0x29
	FuncS3kKeygroup        = 0x2A
	FuncS3kRequestSample   = 0x2B
	FuncWriteSampleHeader  = 0x2C
)

// Reply codes carried in a FuncReply payload.
const (
	ReplyOK    = 0x00
	ReplyError = 0x01
)

// MalformedMessageError reports a received message that is not a valid
// S1000-family SysEx frame.
type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return "malformed sysex message: " + e.Reason
}

// BuildMessage assembles a complete S1000-family SysEx message. The payload
// is included verbatim: callers must pre-encode anything that may carry the
// high bit (nibble encoding for header bytes).
func BuildMessage(channel, function byte, payload []byte) []byte {
	msg := make([]byte, 0, 6+len(payload))
	msg = append(msg, SysExStart, ManufacturerAkai, channel&0x7F, function&0x7F, ModelS1000)
	msg = append(msg, payload...)
	return append(msg, SysExEnd)
}

// ParseReply validates an S1000-family SysEx message and returns its
// function code and payload (framing and terminator excluded).
func ParseReply(data []byte) (function byte, payload []byte, err error) {
	if len(data) < 6 {
		return 0, nil, &MalformedMessageError{Reason: fmt.Sprintf("message too short: %d bytes", len(data))}
	}
	if data[0] != SysExStart || data[len(data)-1] != SysExEnd {
		return 0, nil, &MalformedMessageError{Reason: "missing SysEx start/end markers"}
	}
	if data[1] != ManufacturerAkai {
		return 0, nil, &MalformedMessageError{Reason: fmt.Sprintf("not an Akai message: manufacturer 0x%02X", data[1])}
	}
	if data[4] != ModelS1000 {
		return 0, nil, &MalformedMessageError{Reason: fmt.Sprintf("not S1000 family: model 0x%02X", data[4])}
	}
	return data[3], data[5 : len(data)-1], nil
}
