package pipe

// eagerEncoder frames a whole value into its buffer on push and serves the
// frame one byte at a time.
type eagerEncoder[T any] struct {
	buf []byte
	off int
}

func newEagerEncoder[T any](res resource) *eagerEncoder[T] {
	buf := res.buf
	if buf == nil {
		buf = getFrame()
	}
	return &eagerEncoder[T]{buf: buf[:0]}
}

func (e *eagerEncoder[T]) push(c Codec[T], v T) {
	buf, err := appendFrame(e.buf[:0], c, v)
	e.buf, e.off = buf[:0], 0
	if err != nil {
		fatal(ErrCodec, "%w", err)
	}
	e.buf = buf
}

func (e *eagerEncoder[T]) next() (byte, bool) {
	if e.off < len(e.buf) {
		b := e.buf[e.off]
		e.off++
		return b, true
	}
	e.cancel()
	return 0, false
}

func (e *eagerEncoder[T]) cancel() {
	e.buf, e.off = e.buf[:0], 0
}

func (e *eagerEncoder[T]) release() resource {
	return e.detach()
}

func (e *eagerEncoder[T]) detach() resource {
	buf := e.buf[:0]
	e.buf, e.off = nil, 0
	return resource{buf: buf}
}

// maxReserve bounds the capacity reserved from a length prefix before the
// payload has arrived.
const maxReserve = 1 << 20

// eagerDecoder accumulates a whole frame and decodes it as soon as its last
// byte arrives.
type eagerDecoder[T any] struct {
	codec Codec[T]
	buf   []byte
	need  int // frame size once the prefix is known, 0 before
	value T
	ready bool
}

func newEagerDecoder[T any](res resource) *eagerDecoder[T] {
	buf := res.buf
	if buf == nil {
		buf = getFrame()
	}
	return &eagerDecoder[T]{buf: buf[:0]}
}

func (d *eagerDecoder[T]) begin(c Codec[T]) {
	d.codec = c
	d.buf, d.need = d.buf[:0], 0
}

func (d *eagerDecoder[T]) feed(b byte) {
	if d.ready {
		fatal(ErrProtocol, "byte pushed while a value is pending")
	}
	d.buf = append(d.buf, b)
	if len(d.buf) == wordSize {
		n, err := frameLength(d.buf)
		if err != nil {
			d.buf = d.buf[:0]
			panic(err)
		}
		d.need = wordSize + n
		if extra := min(n, maxReserve); cap(d.buf)-len(d.buf) < extra {
			grown := make([]byte, len(d.buf), len(d.buf)+extra)
			copy(grown, d.buf)
			d.buf = grown
		}
		return
	}
	if d.need == 0 || len(d.buf) < d.need {
		return
	}
	v, err := decodeFrame(d.codec, d.buf[wordSize:])
	d.buf, d.need = d.buf[:0], 0
	if err != nil {
		panic(err)
	}
	d.value, d.ready = v, true
}

func (d *eagerDecoder[T]) done() bool { return d.ready }

func (d *eagerDecoder[T]) take() T {
	if !d.ready {
		fatal(ErrProtocol, "no value to take")
	}
	v := d.value
	d.discard()
	return v
}

func (d *eagerDecoder[T]) discard() {
	var zero T
	d.value, d.ready = zero, false
}

func (d *eagerDecoder[T]) cancel() {
	d.buf, d.need = d.buf[:0], 0
}

func (d *eagerDecoder[T]) release() resource {
	return d.detach()
}

func (d *eagerDecoder[T]) detach() resource {
	buf := d.buf[:0]
	d.discard()
	d.buf, d.need, d.codec = nil, 0, nil
	return resource{buf: buf}
}
