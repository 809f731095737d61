package pipe

// fiberEncoder runs a codec's Encode on a fiber. The fiber suspends on every
// byte the codec writes, so only one byte of the value exists at a time.
type fiberEncoder[T any] struct {
	f     *fiber
	codec Codec[T]
	value T
}

func newFiberEncoder[T any](res resource) *fiberEncoder[T] {
	f := res.fiber
	if f == nil {
		f = newFiber()
	}
	e := &fiberEncoder[T]{f: f}
	f.start(e.run)
	return e
}

func (e *fiberEncoder[T]) run(m message) {
	for m.sig == sigNew {
		c, v := e.codec, e.value
		var zero T
		e.value = zero
		switch m = e.f.suspend(event{}); m.sig {
		case sigNext:
		case sigKill, sigStop:
			return
		default:
			fatal(ErrProtocol, "encoder expected next, got %v", m.sig)
		}
		sink := byteSink{f: e.f}
		err := c.Encode(&sink, v)
		if sink.stopped {
			return
		}
		if err != nil {
			fatal(ErrCodec, "%w", err)
		}
		if sink.n == 0 {
			_ = sink.WriteByte(sentinel)
			if sink.stopped {
				return
			}
		}
		m = e.f.suspend(event{})
	}
	if m.sig != sigKill && m.sig != sigStop {
		fatal(ErrProtocol, "encoder expected a value, got %v", m.sig)
	}
}

func (e *fiberEncoder[T]) push(c Codec[T], v T) {
	e.codec, e.value = c, v
	if ev := e.f.resume(message{sig: sigNew}); ev.kind != evNone {
		fatal(ErrProtocol, "encoder produced a byte before it was asked")
	}
}

func (e *fiberEncoder[T]) next() (byte, bool) {
	ev := e.f.resume(message{sig: sigNext})
	return ev.b, ev.kind == evByte
}

// cancel terminates the value in progress and restarts the task, leaving the
// encoder ready for the next push.
func (e *fiberEncoder[T]) cancel() {
	e.f.resume(message{sig: sigKill})
	e.f.start(e.run)
}

func (e *fiberEncoder[T]) release() resource {
	e.f.resume(message{sig: sigKill})
	return e.detach()
}

func (e *fiberEncoder[T]) detach() resource {
	f := e.f
	e.f = nil
	return resource{fiber: f}
}

// byteSink is the io.Writer an encoding codec sees inside a fiber.
type byteSink struct {
	f       *fiber
	n       int
	stopped bool
}

func (s *byteSink) WriteByte(b byte) error {
	if s.stopped {
		return errTerminated
	}
	switch m := s.f.suspend(event{kind: evByte, b: b}); m.sig {
	case sigNext:
		s.n++
		return nil
	case sigKill, sigStop:
		s.stopped = true
		return errTerminated
	default:
		fatal(ErrProtocol, "encoder expected next, got %v", m.sig)
		return nil
	}
}

func (s *byteSink) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := s.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// fiberDecoder runs a codec's Decode on a fiber that suspends whenever the
// codec needs another byte.
type fiberDecoder[T any] struct {
	f     *fiber
	codec Codec[T]
	value T
}

func newFiberDecoder[T any](res resource) *fiberDecoder[T] {
	f := res.fiber
	if f == nil {
		f = newFiber()
	}
	d := &fiberDecoder[T]{f: f}
	f.start(d.run)
	return d
}

func (d *fiberDecoder[T]) run(m message) {
	for {
		src := byteSource{f: d.f}
		switch m.sig {
		case sigNew:
			src.pending, src.held = m.b, true
		case sigNext:
		case sigKill, sigStop:
			return
		default:
			fatal(ErrProtocol, "decoder got %v with no value in progress", m.sig)
		}

		v, err := d.codec.Decode(&src)
		switch {
		case src.state == sourceKilled:
			return
		case src.state == sourceEmptied:
			m = d.f.suspend(event{})
			continue
		case err != nil:
			fatal(ErrCodec, "%w", err)
		}

		if src.n == 0 {
			b, ok := src.await()
			if !ok {
				return
			}
			if b != sentinel {
				fatal(ErrCorrupt, "empty value carried as 0x%02x", b)
			}
		}

		// Answer the push that completed the value, then report done and
		// hand the value over on the following probes.
		if !d.expectNext(event{}) || !d.expectNext(event{kind: evDone}) {
			return
		}
		d.value = v
		m = d.f.suspend(event{kind: evValue})
	}
}

func (d *fiberDecoder[T]) expectNext(ev event) bool {
	switch m := d.f.suspend(ev); m.sig {
	case sigNext:
		return true
	case sigKill, sigStop:
		return false
	default:
		fatal(ErrProtocol, "decoder expected next, got %v", m.sig)
		return false
	}
}

// begin starts decoding a value with c. The fiber runs until the codec asks
// for its first byte.
func (d *fiberDecoder[T]) begin(c Codec[T]) {
	d.codec = c
	if ev := d.f.resume(message{sig: sigNext}); ev.kind != evNone {
		fatal(ErrProtocol, "decoder finished before it was fed")
	}
}

func (d *fiberDecoder[T]) feed(b byte) {
	if ev := d.f.resume(message{sig: sigNew, b: b}); ev.kind != evNone {
		fatal(ErrProtocol, "decoder answered a byte with %v", ev.kind)
	}
}

func (d *fiberDecoder[T]) done() bool {
	return d.f.resume(message{sig: sigNext}).kind == evDone
}

func (d *fiberDecoder[T]) take() T {
	if ev := d.f.resume(message{sig: sigNext}); ev.kind != evValue {
		fatal(ErrProtocol, "no value to take")
	}
	v := d.value
	var zero T
	d.value = zero
	return v
}

func (d *fiberDecoder[T]) discard() { d.take() }

func (d *fiberDecoder[T]) cancel() {
	if ev := d.f.resume(message{sig: sigEmpty}); ev.kind != evNone {
		fatal(ErrProtocol, "decoder answered an interrupt with %v", ev.kind)
	}
}

func (d *fiberDecoder[T]) release() resource {
	d.f.resume(message{sig: sigKill})
	return d.detach()
}

func (d *fiberDecoder[T]) detach() resource {
	f := d.f
	d.f, d.codec = nil, nil
	return resource{fiber: f}
}

type sourceState uint8

const (
	sourceOpen sourceState = iota
	sourceEmptied
	sourceKilled
)

// byteSource is the io.Reader a decoding codec sees inside a fiber. It hands
// out at most one byte per Read so a codec cannot pull bytes past its value.
type byteSource struct {
	f       *fiber
	pending byte
	held    bool
	n       int // bytes consumed by the current value
	state   sourceState
}

func (s *byteSource) err() error {
	if s.state == sourceKilled {
		return errTerminated
	}
	return errInterrupted
}

// await returns the next byte, waiting for the driver to push one. It
// reports false if the driver terminated the fiber instead.
func (s *byteSource) await() (byte, bool) {
	if s.held {
		s.held = false
		return s.pending, true
	}
	for {
		switch m := s.f.suspend(event{}); m.sig {
		case sigNew:
			return m.b, true
		case sigNext:
		case sigKill, sigStop:
			return 0, false
		default:
			fatal(ErrProtocol, "decoder got %v while waiting for a byte", m.sig)
		}
	}
}

func (s *byteSource) ReadByte() (byte, error) {
	if s.state != sourceOpen {
		return 0, s.err()
	}
	if s.held {
		s.held = false
		s.n++
		return s.pending, nil
	}
	for {
		switch m := s.f.suspend(event{}); m.sig {
		case sigNew:
			s.n++
			return m.b, nil
		case sigNext:
			// A probe: not done yet.
		case sigKill:
			if s.n > 0 {
				fatal(ErrProtocol, "terminated %d bytes into a value", s.n)
			}
			s.state = sourceKilled
			return 0, errTerminated
		case sigStop:
			s.state = sourceKilled
			return 0, errTerminated
		case sigEmpty:
			if s.n == 0 {
				fatal(ErrProtocol, "interrupted before the first byte")
			}
			s.state = sourceEmptied
			return 0, errInterrupted
		}
	}
}

func (s *byteSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = b
	return 1, nil
}
