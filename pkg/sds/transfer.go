package sds

import (
	"fmt"
	"time"
)

// Port sends raw SysEx frames to the receiver.
type Port interface {
	Send(msg []byte) error
}

// Receiver yields received SysEx frames, blocking up to the given timeout.
// A timeout is reported as an error; the caller keeps polling.
type Receiver interface {
	Receive(timeout time.Duration) ([]byte, error)
}

// pollInterval is the receive slice used by the handshake wait loop.
const pollInterval = 10 * time.Millisecond

// WaitForHandshake polls the receiver until a recognizable SDS handshake
// arrives or the timeout elapses. Unrecognized messages are skipped, not
// errors. Returns nil on timeout.
func WaitForHandshake(in Receiver, timeout time.Duration) *Handshake {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg, err := in.Receive(pollInterval)
		if err != nil {
			continue
		}
		if hs := ParseHandshake(msg); hs != nil {
			return hs
		}
	}
	return nil
}

// PacketTimeoutError reports that no handshake arrived for one packet
// within the per-packet deadline. It is transient: the transport may be
// slow rather than gone.
type PacketTimeoutError struct {
	Packet int
	Wait   time.Duration
}

func (e *PacketTimeoutError) Error() string {
	return fmt.Sprintf("no handshake for packet %d within %s", e.Packet, e.Wait)
}

// TransferAbortedError reports that the whole transfer failed: the
// receiver cancelled, or a packet exhausted its retries.
type TransferAbortedError struct {
	Packet int
	Reason string
}

func (e *TransferAbortedError) Error() string {
	return fmt.Sprintf("transfer aborted at packet %d: %s", e.Packet, e.Reason)
}

// Sender drives the stop-and-wait data packet exchange. Exactly one packet
// is in flight at any time; packet numbers wrap modulo 128 and the receiver
// acknowledges each one before the next is sent.
type Sender struct {
	out Port
	in  Receiver

	// Channel is the SDS channel byte stamped on every packet.
	Channel byte

	// MaxRetries bounds NAK-triggered resends per packet.
	MaxRetries int

	// PacketTimeout is the handshake deadline per transmission.
	PacketTimeout time.Duration

	// Progress, when set, is called after each acknowledged packet.
	Progress func(sent, total int)
}

// NewSender returns a Sender with the standard timing and retry bounds.
func NewSender(out Port, in Receiver) *Sender {
	return &Sender{
		out:           out,
		in:            in,
		MaxRetries:    MaxRetries,
		PacketTimeout: PacketTimeout,
	}
}

// Send transmits already 7-bit-encoded sample data as numbered data
// packets:
//
//	ACK    advances to the next packet
//	NAK    resends the same packet, bounded by MaxRetries
//	WAIT   pauses for a follow-up handshake without consuming a retry
//	CANCEL aborts the transfer
//
// A missing handshake yields *PacketTimeoutError; exhausted retries and
// receiver cancellation yield *TransferAbortedError.
func (s *Sender) Send(data []byte) error {
	total := (len(data) + PacketDataBytes - 1) / PacketDataBytes

	for n := 0; n < total; n++ {
		chunk := data[n*PacketDataBytes:]
		if len(chunk) > PacketDataBytes {
			chunk = chunk[:PacketDataBytes]
		}

		if err := s.sendPacket(n, chunk); err != nil {
			return err
		}
		if s.Progress != nil {
			s.Progress(n+1, total)
		}
	}
	return nil
}

func (s *Sender) sendPacket(n int, chunk []byte) error {
	packet := BuildDataPacket(byte(n%128), chunk, s.Channel)
	retries := 0

	for {
		if err := s.out.Send(packet); err != nil {
			return fmt.Errorf("send packet %d: %w", n, err)
		}

		hs := WaitForHandshake(s.in, s.PacketTimeout)
		if hs == nil {
			return &PacketTimeoutError{Packet: n, Wait: s.PacketTimeout}
		}

	handshake:
		switch hs.Type {
		case TypeACK:
			return nil
		case TypeNAK:
			retries++
			if retries >= s.MaxRetries {
				return &TransferAbortedError{Packet: n, Reason: fmt.Sprintf("%d retries exhausted", s.MaxRetries)}
			}
		case TypeCancel:
			return &TransferAbortedError{Packet: n, Reason: "receiver cancelled"}
		case TypeWait:
			// The receiver is busy; wait for its next word with the
			// longer deadline. A WAIT does not consume a retry.
			hs = WaitForHandshake(s.in, HandshakeTimeout)
			if hs == nil {
				return &TransferAbortedError{Packet: n, Reason: "no handshake after WAIT"}
			}
			goto handshake
		}
	}
}
