package sampler

import (
	"errors"
	"fmt"
	"time"

	"github.com/s28tools/s2800ctl/pkg/sysex"
)

// Logger receives diagnostic output from a Session. Implementations must
// be safe for use from the MIDI listener goroutine.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

const (
	defaultReplyTimeout = 3 * time.Second
	defaultListTimeout  = 5 * time.Second
	defaultSettleDelay  = 100 * time.Millisecond
	defaultSysExBuffer  = 65536
)

// Option configures a Session.
type Option func(*Session)

// WithChannel sets the sampler's exclusive channel (0-15).
func WithChannel(channel byte) Option {
	return func(s *Session) { s.channel = channel }
}

// WithSDSChannel sets the MIDI channel used for sample dump transfers.
func WithSDSChannel(channel byte) Option {
	return func(s *Session) { s.sdsChannel = channel }
}

// WithPorts names the MIDI input and output ports to open. When unset the
// ports are auto-detected on first use.
func WithPorts(inName, outName string) Option {
	return func(s *Session) {
		s.inPort = inName
		s.outPort = outName
	}
}

// WithTransport injects a transport directly, bypassing MIDI port
// discovery. Used by tests and by callers with their own link layer.
func WithTransport(t Transport) Option {
	return func(s *Session) { s.tr = t }
}

// WithReplyTimeout sets how long operations wait for the sampler's reply.
func WithReplyTimeout(d time.Duration) Option {
	return func(s *Session) { s.replyTimeout = d }
}

// WithSettleDelay sets the pause after each acknowledged write. The
// sampler needs a moment to commit edits before the next command.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) { s.settleDelay = d }
}

// WithLogger directs diagnostic output to l.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session is a connection to one sampler. The MIDI ports are opened
// lazily on the first operation and kept open until Close. Sessions are
// not safe for concurrent use; callers must serialize access.
type Session struct {
	channel    byte
	sdsChannel byte
	inPort     string
	outPort    string

	replyTimeout time.Duration
	listTimeout  time.Duration
	settleDelay  time.Duration
	sysexBuffer  int

	log Logger
	tr  Transport
}

// NewSession returns a session configured by opts. No MIDI ports are
// opened until the first operation or an explicit Connect.
func NewSession(opts ...Option) *Session {
	s := &Session{
		replyTimeout: defaultReplyTimeout,
		listTimeout:  defaultListTimeout,
		settleDelay:  defaultSettleDelay,
		sysexBuffer:  defaultSysExBuffer,
		log:          nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the MIDI ports. A stale transport is closed and replaced;
// calling Connect on a live session is a no-op.
func (s *Session) Connect() error {
	if s.tr != nil {
		if s.tr.IsOpen() {
			return nil
		}
		s.log.Debug("closing stale transport before reconnect")
		_ = s.tr.Close()
		s.tr = nil
	}

	inName, outName := s.inPort, s.outPort
	if inName == "" || outName == "" {
		foundIn, foundOut := FindPorts()
		if inName == "" {
			inName = foundIn
		}
		if outName == "" {
			outName = foundOut
		}
	}
	if inName == "" || outName == "" {
		return fmt.Errorf("no sampler MIDI ports found")
	}

	tr, err := openMIDITransport(inName, outName, s.sysexBuffer)
	if err != nil {
		return err
	}
	s.log.Info("connected", "in", inName, "out", outName, "channel", s.channel)
	s.tr = tr
	return nil
}

// IsAlive reports whether the session has an open transport.
func (s *Session) IsAlive() bool {
	return s.tr != nil && s.tr.IsOpen()
}

// Close releases the MIDI ports. Safe to call repeatedly.
func (s *Session) Close() error {
	if s.tr == nil {
		return nil
	}
	err := s.tr.Close()
	s.tr = nil
	return err
}

// ensure connects lazily before an operation.
func (s *Session) ensure() error {
	if s.IsAlive() {
		return nil
	}
	return s.Connect()
}

// send frames payload as an S1000 message for function and transmits it.
func (s *Session) send(function byte, payload []byte) error {
	msg := sysex.BuildMessage(s.channel, function, payload)
	s.log.Debug("send", "function", fmt.Sprintf("0x%02X", function), "bytes", len(msg))
	return s.tr.Send(msg)
}

// recv waits up to timeout for an S1000 reply, skipping frames from other
// protocols (SDS handshakes, other manufacturers) that share the wire.
func (s *Session) recv(timeout time.Duration) (function byte, payload []byte, err error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil, errReceiveTimeout
		}
		raw, err := s.tr.Receive(remaining)
		if err != nil {
			return 0, nil, err
		}
		f, p, perr := sysex.ParseReply(raw)
		if perr != nil {
			s.log.Debug("skipping non-sampler frame", "bytes", len(raw))
			continue
		}
		return f, p, nil
	}
}

// drain discards any queued incoming frames so the next reply read is not
// confused by leftovers from a previous exchange.
func (s *Session) drain() {
	if s.tr == nil {
		return
	}
	for {
		if _, err := s.tr.Receive(0); err != nil {
			return
		}
	}
}

// recvErr maps a failed reply wait to the caller-facing error. A missed
// deadline becomes a TimeoutError; any other transport failure propagates
// wrapped, not reinterpreted.
func (s *Session) recvErr(op string, wait time.Duration, err error) error {
	if errors.Is(err, errReceiveTimeout) {
		return &TimeoutError{Operation: op, Wait: wait}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// checkReply maps a REPLY message to an error for op. Non-REPLY functions
// are accepted; the sampler answers some writes with data echoes instead.
func (s *Session) checkReply(op string, function byte, payload []byte) error {
	if function != sysex.FuncReply {
		return nil
	}
	if len(payload) > 0 && payload[0] != sysex.ReplyOK {
		return &DeviceRejectedError{Operation: op, Code: payload[0]}
	}
	return nil
}
