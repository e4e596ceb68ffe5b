package sampler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Transport is a duplex MIDI link to the sampler: send raw SysEx frames,
// receive complete frames with a deadline. The core never cares how the
// ports were obtained (USB MIDI, virtual port, loopback).
type Transport interface {
	Send(msg []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	IsOpen() bool
	Close() error
}

// errReceiveTimeout is returned by Transport.Receive when no message
// arrived within the deadline. Callers poll, so this is not fatal.
var errReceiveTimeout = errors.New("receive timeout")

// portPatterns are tried in order when auto-detecting the sampler's MIDI
// interface.
var portPatterns = []string{"Volt 2", "Volt", "S2800", "Akai", "AKAI"}

// FindPorts auto-detects MIDI port names for the sampler. Either result
// may be empty when no port matches.
func FindPorts() (inName, outName string) {
	ins := midi.GetInPorts()
	outs := midi.GetOutPorts()

	for _, pattern := range portPatterns {
		if inName == "" {
			for _, p := range ins {
				if strings.Contains(p.String(), pattern) {
					inName = p.String()
					break
				}
			}
		}
		if outName == "" {
			for _, p := range outs {
				if strings.Contains(p.String(), pattern) {
					outName = p.String()
					break
				}
			}
		}
	}
	return inName, outName
}

// ListPorts returns the names of all available MIDI input and output ports.
func ListPorts() (inputs, outputs []string) {
	for _, p := range midi.GetInPorts() {
		inputs = append(inputs, p.String())
	}
	for _, p := range midi.GetOutPorts() {
		outputs = append(outputs, p.String())
	}
	return inputs, outputs
}

// midiTransport drives a pair of gomidi ports. Incoming SysEx frames are
// buffered on a channel by the listener callback; Receive pops them with a
// deadline.
type midiTransport struct {
	in   drivers.In
	out  drivers.Out
	stop func()
	msgs chan []byte
}

func openMIDITransport(inName, outName string, bufSize int) (*midiTransport, error) {
	in, err := midi.FindInPort(inName)
	if err != nil {
		return nil, fmt.Errorf("input port %q: %w", inName, err)
	}
	out, err := midi.FindOutPort(outName)
	if err != nil {
		return nil, fmt.Errorf("output port %q: %w", outName, err)
	}

	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("open output port %q: %w", outName, err)
	}

	t := &midiTransport{
		in:   in,
		out:  out,
		msgs: make(chan []byte, 64),
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if len(msg) == 0 || msg[0] != 0xF0 {
			return
		}
		buf := make([]byte, len(msg))
		copy(buf, msg)
		select {
		case t.msgs <- buf:
		default:
			// Receiver is behind; drop rather than block the driver.
		}
	}, midi.UseSysEx(), midi.SysExBufferSize(uint32(bufSize)))
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("listen on input port %q: %w", inName, err)
	}
	t.stop = stop

	return t, nil
}

func (t *midiTransport) Send(msg []byte) error {
	if err := t.out.Send(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (t *midiTransport) Receive(timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		select {
		case msg := <-t.msgs:
			return msg, nil
		default:
			return nil, errReceiveTimeout
		}
	}
	select {
	case msg := <-t.msgs:
		return msg, nil
	case <-time.After(timeout):
		return nil, errReceiveTimeout
	}
}

func (t *midiTransport) IsOpen() bool {
	return t.in.IsOpen() && t.out.IsOpen()
}

func (t *midiTransport) Close() error {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	inErr := t.in.Close()
	outErr := t.out.Close()
	if inErr != nil {
		return inErr
	}
	return outErr
}
