// Package sampler implements the editing and transfer operations of the
// Akai S2800/S3000 over MIDI SysEx: listing, creating, modifying, and
// deleting programs and samples, plus PCM upload via the MIDI Sample Dump
// Standard.
package sampler

import (
	"errors"
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/s28tools/s2800ctl/pkg/headers"
	"github.com/s28tools/s2800ctl/pkg/sds"
	"github.com/s28tools/s2800ctl/pkg/sysex"
)

// Pauses after destructive or structural edits. The sampler drops
// commands that arrive while it is still committing the previous one.
const (
	deleteDelay    = 300 * time.Millisecond
	deleteAllDelay = 200 * time.Millisecond
	createDelay    = 500 * time.Millisecond
	keygroupDelay  = 300 * time.Millisecond
)

// Keygroup describes one keygroup of a new program: the note range it
// answers to and the resident sample it plays.
type Keygroup struct {
	LowNote       int
	HighNote      int
	SampleName    string
	TuneSemitones int
	TuneCents     int
}

// WriteResult reports the outcome of a verified field write.
type WriteResult struct {
	// Old is the field value before the write.
	Old int
	// New is the value read back after the write. When Confirmed is
	// false it is the value that was requested, not verified.
	New int
	// Confirmed is true when the post-write readback succeeded.
	Confirmed bool
}

// WriteRawBytes writes data into a header record on the device using one
// of the S3000 partial-write functions (FuncS3kProgram, FuncS3kKeygroup,
// FuncWriteSampleHeader). The selector picks the keygroup for keygroup
// writes and is zero otherwise. Data is nibble-encoded on the wire.
func (s *Session) WriteRawBytes(function byte, itemNumber, selector, offset int, data []byte) error {
	if err := s.ensure(); err != nil {
		return err
	}

	count := len(data)
	payload := make([]byte, 0, 7+2*count)
	payload = append(payload,
		byte(itemNumber&0x7F), byte(itemNumber>>7)&0x7F,
		byte(selector&0x7F),
		byte(offset&0x7F), byte(offset>>7)&0x7F,
		byte(count&0x7F), byte(count>>7)&0x7F,
	)
	payload = append(payload, sysex.NibbleEncode(data)...)

	s.drain()
	if err := s.send(function, payload); err != nil {
		return err
	}

	f, p, err := s.recv(s.replyTimeout)
	if err != nil {
		return s.recvErr("header write", s.replyTimeout, err)
	}
	time.Sleep(s.settleDelay)
	return s.checkReply("header write", f, p)
}

// ReadProgramHeader fetches the full 192-byte program header. The S3000
// partial-read function is tried first; devices that answer with a plain
// PDATA dump are handled too.
func (s *Session) ReadProgramHeader(programNumber int) ([]byte, error) {
	return s.readHeader(sysex.FuncS3kRequestProgram, programNumber, 0, headers.HeaderSize,
		sysex.FuncS3kProgram, sysex.FuncProgram, 2)
}

// ReadKeygroup fetches a keygroup header from the device. The request
// asks for the 191 addressable bytes; a KDATA fallback reply is accepted
// from firmware that ignores the partial-read function.
func (s *Session) ReadKeygroup(programNumber, keygroup int) ([]byte, error) {
	return s.readHeader(sysex.FuncS3kRequestKeygroup, programNumber, keygroup, headers.HeaderSize-1,
		sysex.FuncS3kKeygroup, sysex.FuncKeygroup, 4)
}

// readHeader issues a partial-read request and decodes whichever reply
// shape comes back. S3000 replies echo the 7-byte request prefix before
// the nibble data; legacy full-dump replies carry a shorter prefix.
func (s *Session) readHeader(request byte, itemNumber, selector, count int, reply, legacyReply byte, legacySkip int) ([]byte, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	payload := []byte{
		byte(itemNumber & 0x7F), byte(itemNumber>>7) & 0x7F,
		byte(selector & 0x7F),
		0x00, 0x00,
		byte(count & 0x7F), byte(count>>7) & 0x7F,
	}

	s.drain()
	if err := s.send(request, payload); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.replyTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Operation: "header read", Wait: s.replyTimeout}
		}
		f, p, err := s.recv(remaining)
		if err != nil {
			return nil, s.recvErr("header read", s.replyTimeout, err)
		}
		switch {
		case f == reply && len(p) > 7:
			out, truncated := sysex.NibbleDecode(p[7:])
			if truncated {
				s.log.Debug("header reply had odd nibble count", "bytes", len(p))
			}
			return out, nil
		case f == legacyReply && len(p) > legacySkip:
			out, _ := sysex.NibbleDecode(p[legacySkip:])
			return out, nil
		case f == sysex.FuncReply:
			if err := s.checkReply("header read", f, p); err != nil {
				return nil, err
			}
		default:
			s.log.Debug("ignoring reply", "function", fmt.Sprintf("0x%02X", f))
		}
	}
}

// ReadKeygroupFields reads a keygroup header once and extracts the given
// fields from it.
func (s *Session) ReadKeygroupFields(programNumber, keygroup int, fields []headers.Field) (map[string]int, error) {
	raw, err := s.ReadKeygroup(programNumber, keygroup)
	if err != nil {
		return nil, err
	}
	return headers.ReadFields(raw, fields)
}

// WriteKeygroupField performs a read-write-verify cycle on one keygroup
// field. The returned result carries the prior value and whether the
// readback confirmed the new one. A failed verification read is not an
// error: the write itself was acknowledged.
func (s *Session) WriteKeygroupField(programNumber, keygroup int, f headers.Field, value int) (WriteResult, error) {
	before, err := s.ReadKeygroupFields(programNumber, keygroup, []headers.Field{f})
	if err != nil {
		return WriteResult{}, fmt.Errorf("read %s before write: %w", f.Name, err)
	}

	data := headers.EncodeFieldValue(f, value)
	if err := s.WriteRawBytes(sysex.FuncS3kKeygroup, programNumber, keygroup, f.Offset, data); err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", f.Name, err)
	}

	after, err := s.ReadKeygroupFields(programNumber, keygroup, []headers.Field{f})
	if err != nil {
		s.log.Error("verification read failed", "field", f.Name, "err", err)
		return WriteResult{Old: before[f.Name], New: value, Confirmed: false}, nil
	}
	return WriteResult{Old: before[f.Name], New: after[f.Name], Confirmed: true}, nil
}

// RenameProgram overwrites the 12-character program name in place.
func (s *Session) RenameProgram(programNumber int, name string) error {
	data := sysex.EncodeName(name, sysex.NameLength)
	return s.WriteRawBytes(sysex.FuncS3kProgram, programNumber, 0, 0x03, data)
}

// SetProgramKeygroupCount rewrites the keygroup count field of a program
// header. The device reallocates keygroup storage on this write.
func (s *Session) SetProgramKeygroupCount(programNumber, count int) error {
	return s.WriteRawBytes(sysex.FuncS3kProgram, programNumber, 0, headers.PrKeygroups.Offset, []byte{byte(count)})
}

// SetKeygroupRange rewrites the low and high note span of a keygroup.
func (s *Session) SetKeygroupRange(programNumber, keygroup, lowNote, highNote int) error {
	return s.WriteRawBytes(sysex.FuncS3kKeygroup, programNumber, keygroup, headers.KgLowNote.Offset,
		[]byte{byte(lowNote), byte(highNote)})
}

// SetKeygroupSample assigns the zone 1 sample of a keygroup by name.
func (s *Session) SetKeygroupSample(programNumber, keygroup int, sampleName string) error {
	data := sysex.EncodeName(sampleName, sysex.NameLength)
	return s.WriteRawBytes(sysex.FuncS3kKeygroup, programNumber, keygroup, 0x22, data)
}

// ListSamples returns the names of all resident samples in device order.
func (s *Session) ListSamples() ([]string, error) {
	return s.requestList("sample list", sysex.FuncRequestSampleList, sysex.FuncSampleList)
}

// ListPrograms returns the names of all resident programs in device order.
func (s *Session) ListPrograms() ([]string, error) {
	return s.requestList("program list", sysex.FuncRequestProgramList, sysex.FuncProgramList)
}

func (s *Session) requestList(op string, request, reply byte) ([]string, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	s.drain()
	if err := s.send(request, nil); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.listTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Operation: op, Wait: s.listTimeout}
		}
		f, p, err := s.recv(remaining)
		if err != nil {
			return nil, s.recvErr(op, s.listTimeout, err)
		}
		if f != reply {
			s.log.Debug("ignoring reply", "function", fmt.Sprintf("0x%02X", f))
			continue
		}
		return parseNameList(p), nil
	}
}

// parseNameList decodes a list reply: a 2-byte count followed by packed
// 12-byte name fields. The count uses the same low7/high7 split as every
// other multibyte field on this wire; both bytes arrive with bit 7 clear.
func parseNameList(payload []byte) []string {
	if len(payload) < 2 {
		return nil
	}
	count := int(payload[0]) | int(payload[1])<<7
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		start := 2 + i*sysex.NameLength
		end := start + sysex.NameLength
		if end > len(payload) {
			break
		}
		names = append(names, sysex.DecodeName(payload[start:end]))
	}
	return names
}

// DeleteSample removes the resident sample at index.
func (s *Session) DeleteSample(index int) error {
	return s.deleteItem("delete sample", sysex.FuncDeleteSample, index, deleteDelay)
}

// DeleteProgram removes the resident program at index.
func (s *Session) DeleteProgram(index int) error {
	return s.deleteItem("delete program", sysex.FuncDeleteProgram, index, deleteDelay)
}

// DeleteAllSamples removes every resident sample, highest index first so
// the remaining indices stay valid. Returns the number deleted.
func (s *Session) DeleteAllSamples() (int, error) {
	return s.deleteAll(sysex.FuncDeleteSample, s.ListSamples)
}

// DeleteAllPrograms removes every resident program, highest index first.
// Returns the number deleted.
func (s *Session) DeleteAllPrograms() (int, error) {
	return s.deleteAll(sysex.FuncDeleteProgram, s.ListPrograms)
}

func (s *Session) deleteItem(op string, function byte, index int, delay time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}

	s.drain()
	payload := []byte{byte(index & 0x7F), byte(index>>7) & 0x7F}
	if err := s.send(function, payload); err != nil {
		return err
	}

	// The sampler does not reliably acknowledge DELS/DELP. Use the settle
	// window as the reply wait: a rejection inside it fails the delete, a
	// silent device is a success.
	f, p, err := s.recv(delay)
	if err != nil {
		if errors.Is(err, errReceiveTimeout) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	time.Sleep(delay)
	return s.checkReply(op, f, p)
}

func (s *Session) deleteAll(function byte, list func() ([]string, error)) (int, error) {
	names, err := list()
	if err != nil {
		return 0, err
	}
	op := "delete sample"
	if function == sysex.FuncDeleteProgram {
		op = "delete program"
	}
	for i := len(names) - 1; i >= 0; i-- {
		if err := s.deleteItem(op, function, i, deleteAllDelay); err != nil {
			return len(names) - 1 - i, fmt.Errorf("%s %d (%s): %w", op, i, names[i], err)
		}
	}
	return len(names), nil
}

// CreateProgram builds a program with one keygroup per entry in keygroups
// and sends it to the device. midiChannel 0xFF means omni.
func (s *Session) CreateProgram(name string, keygroups []Keygroup, midiChannel, programNumber int) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if len(keygroups) == 0 {
		return fmt.Errorf("program %q needs at least one keygroup", name)
	}

	header := headers.BuildProgramHeader(name, len(keygroups), midiChannel, programNumber)
	payload := make([]byte, 0, 2+2*len(header))
	payload = append(payload, byte(programNumber&0x7F), byte(programNumber>>7)&0x7F)
	payload = append(payload, sysex.NibbleEncode(header)...)

	s.drain()
	if err := s.send(sysex.FuncProgram, payload); err != nil {
		return err
	}
	f, p, err := s.recv(s.listTimeout)
	if err != nil {
		return s.recvErr("create program", s.listTimeout, err)
	}
	if err := s.checkReply("create program", f, p); err != nil {
		return err
	}
	time.Sleep(createDelay)

	for i, kg := range keygroups {
		block := headers.BuildKeygroup(kg.LowNote, kg.HighNote, kg.SampleName, kg.TuneSemitones, kg.TuneCents)
		kgPayload := make([]byte, 0, 3+2*len(block))
		kgPayload = append(kgPayload, byte(programNumber&0x7F), byte(programNumber>>7)&0x7F, byte(i&0x7F))
		kgPayload = append(kgPayload, sysex.NibbleEncode(block)...)

		s.drain()
		if err := s.send(sysex.FuncKeygroup, kgPayload); err != nil {
			return err
		}
		f, p, err := s.recv(s.replyTimeout)
		if err != nil {
			return s.recvErr(fmt.Sprintf("create keygroup %d", i), s.replyTimeout, err)
		}
		if err := s.checkReply(fmt.Sprintf("create keygroup %d", i), f, p); err != nil {
			return err
		}
		time.Sleep(keygroupDelay)
	}
	return nil
}

// UploadSample converts signed 16-bit little-endian PCM to the device's
// sample format, announces a new sample header, and streams the data via
// the MIDI Sample Dump Standard. Returns the sample number assigned on
// the device. The progress callback, when non-nil, is invoked after each
// acknowledged packet.
func (s *Session) UploadSample(pcm []byte, sampleRate int, name string, originalPitch int, progress func(sent, total int)) (int, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	if len(pcm) == 0 {
		return 0, fmt.Errorf("no sample data")
	}

	// The device stores samples as offset binary, not two's complement.
	unsigned := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		u := uint16(int(v) + 32768)
		unsigned[i] = byte(u)
		unsigned[i+1] = byte(u >> 8)
	}

	existing, err := s.ListSamples()
	if err != nil {
		return 0, fmt.Errorf("count resident samples: %w", err)
	}
	sampleNumber := len(existing)

	header := headers.BuildSampleHeader(name, len(pcm)/2, sampleRate, originalPitch)
	payload := make([]byte, 0, 2+2*len(header))
	payload = append(payload, byte(sampleNumber&0x7F), byte(sampleNumber>>7)&0x7F)
	payload = append(payload, sysex.NibbleEncode(header)...)

	s.drain()
	if err := s.send(sysex.FuncSample, payload); err != nil {
		return 0, err
	}
	if err := s.waitUploadReady(); err != nil {
		return 0, err
	}

	sender := sds.NewSender(s.tr, s.tr)
	sender.Channel = s.sdsChannel
	sender.Progress = progress
	if err := sender.Send(sds.Pack16ToSDS(unsigned)); err != nil {
		return 0, fmt.Errorf("sample %d transfer: %w", sampleNumber, err)
	}
	s.log.Info("sample uploaded", "number", sampleNumber, "name", name, "frames", len(pcm)/2)
	return sampleNumber, nil
}

// waitUploadReady blocks until the device signals it will accept data
// packets. Acceptance arrives either as an SDS ACK or as an OK reply; a
// WAIT handshake extends the wait for the follow-up.
func (s *Session) waitUploadReady() error {
	deadline := time.Now().Add(sds.HandshakeTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Operation: "sample header announce", Wait: sds.HandshakeTimeout}
		}
		raw, err := s.tr.Receive(remaining)
		if err != nil {
			return s.recvErr("sample header announce", sds.HandshakeTimeout, err)
		}

		if hs := sds.ParseHandshake(raw); hs != nil {
			switch hs.Type {
			case sds.TypeACK:
				return nil
			case sds.TypeWait:
				s.log.Debug("device busy, waiting for follow-up handshake")
				deadline = time.Now().Add(sds.HandshakeTimeout)
				continue
			case sds.TypeNAK, sds.TypeCancel:
				return fmt.Errorf("device refused sample header (%s)", hs.TypeName())
			}
			continue
		}

		f, p, perr := sysex.ParseReply(raw)
		if perr != nil {
			continue
		}
		if f == sysex.FuncReply {
			if err := s.checkReply("sample header announce", f, p); err != nil {
				return err
			}
			return nil
		}
	}
}

// PlayNote sends a note on, holds it for duration, then releases it.
// Useful for auditioning an uploaded sample through a mapped program.
func (s *Session) PlayNote(midiChannel, note, velocity byte, duration time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if err := s.tr.Send(midi.NoteOn(midiChannel, note, velocity)); err != nil {
		return fmt.Errorf("note on: %w", err)
	}
	time.Sleep(duration)
	if err := s.tr.Send(midi.NoteOff(midiChannel, note)); err != nil {
		return fmt.Errorf("note off: %w", err)
	}
	return nil
}
