package sds

import (
	"errors"
	"testing"
	"time"
)

// scriptedPort captures sent frames and replies with a scripted sequence of
// handshakes, one per received packet.
type scriptedPort struct {
	sent    [][]byte
	replies [][]byte
	next    int
}

func (p *scriptedPort) Send(msg []byte) error {
	p.sent = append(p.sent, msg)
	return nil
}

func (p *scriptedPort) Receive(timeout time.Duration) ([]byte, error) {
	if p.next >= len(p.replies) {
		return nil, errors.New("no pending message")
	}
	msg := p.replies[p.next]
	p.next++
	return msg, nil
}

func ack(n byte) []byte    { return []byte{0xF0, 0x7E, 0x00, TypeACK, n, 0xF7} }
func nak(n byte) []byte    { return []byte{0xF0, 0x7E, 0x00, TypeNAK, n, 0xF7} }
func cancel(n byte) []byte { return []byte{0xF0, 0x7E, 0x00, TypeCancel, n, 0xF7} }
func sdsWait(n byte) []byte {
	return []byte{0xF0, 0x7E, 0x00, TypeWait, n, 0xF7}
}

func newTestSender(p *scriptedPort) *Sender {
	s := NewSender(p, p)
	s.PacketTimeout = 50 * time.Millisecond
	return s
}

func TestSenderAllAcked(t *testing.T) {
	p := &scriptedPort{replies: [][]byte{ack(0), ack(1), ack(2)}}
	s := newTestSender(p)

	var progress []int
	s.Progress = func(sent, total int) { progress = append(progress, sent) }

	data := make([]byte, PacketDataBytes*2+10) // three packets
	if err := s.Send(data); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(p.sent) != 3 {
		t.Errorf("sent %d packets, want 3", len(p.sent))
	}
	for i, packet := range p.sent {
		if packet[4] != byte(i) {
			t.Errorf("packet %d carries number %d", i, packet[4])
		}
	}
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("progress calls = %v, want [1 2 3]", progress)
	}
}

func TestSenderNakResends(t *testing.T) {
	p := &scriptedPort{replies: [][]byte{nak(0), ack(0)}}
	s := newTestSender(p)

	if err := s.Send(make([]byte, 10)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(p.sent) != 2 {
		t.Errorf("sent %d packets, want 2 (original + resend)", len(p.sent))
	}
	if p.sent[0][4] != 0 || p.sent[1][4] != 0 {
		t.Error("resent packet changed number")
	}
}

func TestSenderRetriesExhausted(t *testing.T) {
	p := &scriptedPort{replies: [][]byte{nak(0), nak(0), nak(0)}}
	s := newTestSender(p)

	err := s.Send(make([]byte, 10))
	var aborted *TransferAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error = %v, want *TransferAbortedError", err)
	}
	if aborted.Packet != 0 {
		t.Errorf("aborted at packet %d, want 0", aborted.Packet)
	}
	if len(p.sent) != MaxRetries {
		t.Errorf("sent %d packets, want %d", len(p.sent), MaxRetries)
	}
}

func TestSenderCancelAborts(t *testing.T) {
	p := &scriptedPort{replies: [][]byte{ack(0), cancel(1)}}
	s := newTestSender(p)

	err := s.Send(make([]byte, PacketDataBytes+1))
	var aborted *TransferAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error = %v, want *TransferAbortedError", err)
	}
	if aborted.Packet != 1 {
		t.Errorf("aborted at packet %d, want 1", aborted.Packet)
	}
}

func TestSenderWaitThenAck(t *testing.T) {
	p := &scriptedPort{replies: [][]byte{sdsWait(0), ack(0)}}
	s := newTestSender(p)

	if err := s.Send(make([]byte, 10)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(p.sent) != 1 {
		t.Errorf("sent %d packets, want 1 (WAIT must not resend)", len(p.sent))
	}
}

func TestSenderTimeout(t *testing.T) {
	p := &scriptedPort{} // never replies
	s := newTestSender(p)

	err := s.Send(make([]byte, 10))
	var timeout *PacketTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error = %v, want *PacketTimeoutError", err)
	}
	var aborted *TransferAbortedError
	if errors.As(err, &aborted) {
		t.Error("timeout must not classify as a transfer abort")
	}
}

func TestSenderPacketNumbersWrap(t *testing.T) {
	replies := make([][]byte, 130)
	for i := range replies {
		replies[i] = ack(byte(i % 128))
	}
	p := &scriptedPort{replies: replies}
	s := newTestSender(p)

	if err := s.Send(make([]byte, PacketDataBytes*130)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if p.sent[128][4] != 0 {
		t.Errorf("packet 128 carries number %d, want 0 (wrapped)", p.sent[128][4])
	}
	if p.sent[129][4] != 1 {
		t.Errorf("packet 129 carries number %d, want 1", p.sent[129][4])
	}
}
