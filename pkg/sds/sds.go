// Package sds implements the MIDI Sample Dump Standard messages used to
// stream raw sample audio to the sampler.
//
// Message formats:
//
//	Header:  F0 7E [ch] 01 [num lo/hi] [format] [period x3] [length x3] [loop start x3] [loop end x3] [loop type] F7
//	Packet:  F0 7E [ch] 02 [packet number] [120 bytes data] [checksum] F7
//	Request: F0 7E [ch] 03 [num lo/hi] F7
//	ACK:     F0 7E [ch] 7F [packet number] F7
//	NAK:     F0 7E [ch] 7E [packet number] F7
//	CANCEL:  F0 7E [ch] 7D [packet number] F7
//	WAIT:    F0 7E [ch] 7C [packet number] F7
package sds

import "time"

// SysExID is the universal non-realtime SysEx ID that carries SDS.
const SysExID = 0x7E

// SDS message types.
const (
	TypeDumpHeader  = 0x01
	TypeDataPacket  = 0x02
	TypeDumpRequest = 0x03
	TypeACK         = 0x7F
	TypeNAK         = 0x7E
	TypeCancel      = 0x7D
	TypeWait        = 0x7C
)

// PacketDataBytes is the payload size of every data packet. Short final
// chunks are zero-padded to this size.
const PacketDataBytes = 120

// Loop types for the dump header.
const (
	LoopForward  = 0x00
	LoopPingPong = 0x01
	LoopNone     = 0x7F
)

// Protocol timing.
const (
	HandshakeTimeout = 5 * time.Second
	PacketTimeout    = 2 * time.Second
)

// MaxRetries bounds NAK-triggered retransmissions per packet.
const MaxRetries = 3

// Pack16ToSDS packs 16-bit little-endian signed PCM into the SDS 7-bit
// sample format, 3 bytes per sample, MSB first:
//
//	byte 0: bits 15-9
//	byte 1: bits 8-2
//	byte 2: bits 1-0 shifted to bits 6-5
//
// A trailing odd byte is dropped.
func Pack16ToSDS(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)/2*3)
	for i := 0; i+1 < len(pcm); i += 2 {
		u := uint16(pcm[i]) | uint16(pcm[i+1])<<8
		out = append(out,
			byte(u>>9)&0x7F,
			byte(u>>2)&0x7F,
			byte(u<<5)&0x7F,
		)
	}
	return out
}

// UnpackSDSTo16 is the inverse of Pack16ToSDS, reassembling 16-bit
// little-endian PCM from 7-bit triplets. A trailing incomplete triplet is
// dropped.
func UnpackSDSTo16(data []byte) []byte {
	out := make([]byte, 0, len(data)/3*2)
	for i := 0; i+2 < len(data); i += 3 {
		u := uint16(data[i]&0x7F)<<9 | uint16(data[i+1]&0x7F)<<2 | uint16(data[i+2]&0x7F)>>5
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

// BuildDataPacket frames one SDS data packet. data is padded or truncated
// to exactly PacketDataBytes; the checksum is the running XOR of the SysEx
// ID, channel, type, packet number and every payload byte, masked to 7
// bits. The complete frame is always 127 bytes.
func BuildDataPacket(packetNumber byte, data []byte, channel byte) []byte {
	payload := make([]byte, PacketDataBytes)
	copy(payload, data)

	checksum := byte(SysExID) ^ (channel & 0x7F) ^ TypeDataPacket ^ (packetNumber & 0x7F)
	for _, b := range payload {
		checksum ^= b
	}

	msg := make([]byte, 0, 7+PacketDataBytes)
	msg = append(msg, 0xF0, SysExID, channel&0x7F, TypeDataPacket, packetNumber&0x7F)
	msg = append(msg, payload...)
	return append(msg, checksum&0x7F, 0xF7)
}

// DumpHeader describes the waveform about to be transferred.
type DumpHeader struct {
	Channel      byte
	SampleNumber uint16
	BitDepth     byte
	PeriodNanos  uint // sample period: 1e9 / sample rate
	Length       uint // samples, not bytes
	LoopStart    uint
	LoopEnd      uint
	LoopType     byte
}

// Encode frames the dump header message. Multi-byte fields use the SDS
// 14-bit and 20-bit little-endian 7-bit encodings.
func (h *DumpHeader) Encode() []byte {
	msg := make([]byte, 0, 21)
	msg = append(msg, 0xF0, SysExID, h.Channel&0x7F, TypeDumpHeader)
	msg = append14bit(msg, h.SampleNumber)
	msg = append(msg, h.BitDepth&0x7F)
	msg = append20bit(msg, h.PeriodNanos)
	msg = append20bit(msg, h.Length)
	msg = append20bit(msg, h.LoopStart)
	msg = append20bit(msg, h.LoopEnd)
	msg = append(msg, h.LoopType&0x7F)
	return append(msg, 0xF7)
}

// BuildDumpRequest frames a dump request for the given sample number.
func BuildDumpRequest(channel byte, sampleNumber uint16) []byte {
	msg := make([]byte, 0, 7)
	msg = append(msg, 0xF0, SysExID, channel&0x7F, TypeDumpRequest)
	msg = append14bit(msg, sampleNumber)
	return append(msg, 0xF7)
}

func append14bit(b []byte, v uint16) []byte {
	return append(b, byte(v)&0x7F, byte(v>>7)&0x7F)
}

func append20bit(b []byte, v uint) []byte {
	return append(b, byte(v)&0x7F, byte(v>>7)&0x7F, byte(v>>14)&0x3F)
}

// Handshake is a parsed ACK/NAK/CANCEL/WAIT reply.
type Handshake struct {
	Type         byte
	Channel      byte
	PacketNumber byte
}

// TypeName returns the conventional name of the handshake type.
func (h *Handshake) TypeName() string {
	switch h.Type {
	case TypeACK:
		return "ACK"
	case TypeNAK:
		return "NAK"
	case TypeCancel:
		return "CANCEL"
	case TypeWait:
		return "WAIT"
	}
	return "UNKNOWN"
}

// ParseHandshake classifies a received SysEx message as an SDS handshake.
// It is deliberately permissive: anything that is not one of the four
// handshake types yields nil, because not every message on the wire is a
// handshake and the caller must keep listening.
func ParseHandshake(data []byte) *Handshake {
	if len(data) < 6 {
		return nil
	}
	if data[0] != 0xF0 || data[1] != SysExID {
		return nil
	}
	switch data[3] {
	case TypeACK, TypeNAK, TypeCancel, TypeWait:
		return &Handshake{
			Type:         data[3],
			Channel:      data[2],
			PacketNumber: data[4] & 0x7F,
		}
	}
	return nil
}
