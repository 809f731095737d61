package pipe

// resource is what a retired backend instance leaves behind for its
// successor: the eager frame buffer or the parked fiber.
type resource struct {
	buf   []byte
	fiber *fiber
}

func (r resource) empty() bool { return r.buf == nil && r.fiber == nil }

// close gives the resource up for good.
func (r resource) close() {
	if r.buf != nil {
		putFrame(r.buf)
	}
	if r.fiber != nil {
		r.fiber.close()
	}
}

// backend is what every backend instance offers a slot. release terminates
// the instance cleanly; detach takes its resource without talking to it.
type backend interface {
	release() resource
	detach() resource
}

// encoder is the type-erased view of a Serializer backend instance.
type encoder interface {
	backend
	next() (byte, bool)
	cancel()
}

type typedEncoder[T any] interface {
	encoder
	push(c Codec[T], v T)
}

// decoder is the type-erased view of a Deserializer backend instance.
type decoder interface {
	backend
	feed(b byte)
	done() bool
	cancel()
	discard()
}

type typedDecoder[T any] interface {
	decoder
	begin(c Codec[T])
	take() T
}

// Stats counts how a pipe used its backing resources.
type Stats struct {
	// Installs is the number of backend instances installed, one per change of
	// value type.
	Installs int
	// Allocs is the number of backing resources created from scratch rather
	// than taken over from the previous instance.
	Allocs int
}

// slot holds the backend instance for the type currently in flight.
type slot[B backend] struct {
	inst  B
	live  bool
	spare resource
	stats Stats
}

// as reports whether the installed instance is an H and returns it.
func as[H any, B backend](s *slot[B]) (H, bool) {
	if !s.live {
		var zero H
		return zero, false
	}
	h, ok := any(s.inst).(H)
	return h, ok
}

// ensure returns the installed instance if it is an H. Otherwise it retires
// the current instance and installs one built from the released resource.
func ensure[H any, B backend](s *slot[B], build func(resource) H) H {
	if h, ok := as[H](s); ok {
		return h
	}
	s.retire()
	if s.spare.empty() {
		s.stats.Allocs++
	}
	h := build(s.spare)
	s.spare = resource{}
	s.inst, s.live = any(h).(B), true
	s.stats.Installs++
	return h
}

// retire releases the installed instance, keeping its resource for the next.
func (s *slot[B]) retire() {
	if !s.live {
		return
	}
	s.spare = s.inst.release()
	var zero B
	s.inst, s.live = zero, false
}

// close retires the instance and gives up its resource.
func (s *slot[B]) close() {
	s.retire()
	s.spare.close()
	s.spare = resource{}
}

// abandon gives up the resource without talking to the instance, which may be
// in any state after a fatal failure.
func (s *slot[B]) abandon() {
	if s.live {
		s.spare = s.inst.detach()
		var zero B
		s.inst, s.live = zero, false
	}
	s.spare.close()
	s.spare = resource{}
}
