package pipe

import (
	"fmt"
)

// Serializer is a pipe that takes values and gives out bytes: push a value,
// then pull its encoding one byte at a time until no byte is ready.
//
//	s := pipe.NewSerializer(nil)
//	defer s.Close()
//	push, _ := pipe.Push[[]uint64](s)
//	push(values)
//	for pull, ok := s.Pull(); ok; pull, ok = s.Pull() {
//		out = append(out, pull())
//	}
//
// Push, Pull and Empty return a one-shot function and true when the operation
// is available, or nil and false when the pipe waits for the other side.
// Calling a returned function after the pipe moved on, or twice, panics with
// ErrUnavailable.
//
// A value in flight must be pulled to the end or discarded with Empty before
// Close. A panic escaping any operation leaves the pipe broken.
//
// A Serializer is not safe for concurrent use.
type Serializer struct {
	slot    slot[encoder]
	backend Backend
	done    bool // ready for a new value
	look    byte // next byte to pull, valid when ready
	ready   bool
	closed  bool
	broken  bool
}

// NewSerializer returns an idle Serializer. opts may be nil.
func NewSerializer(opts *Options) *Serializer {
	return &Serializer{backend: checkBackend(opts.backend()), done: true}
}

func checkBackend(b Backend) Backend {
	if b != Eager && b != Suspendable {
		panic(fmt.Errorf("%w: backend %d", ErrUnsupportedType, b))
	}
	return b
}

func (s *Serializer) usable() bool { return !s.closed && !s.broken }

// PushAvail reports whether Push would return a function.
func (s *Serializer) PushAvail() bool { return s.usable() && s.done }

// PullAvail reports whether Pull would return a function.
func (s *Serializer) PullAvail() bool { return s.usable() && s.ready }

// EmptyAvail reports whether Empty would return a function.
func (s *Serializer) EmptyAvail() bool { return s.usable() && (!s.done || s.ready) }

// Push offers to serialize a T with the Binary codec.
func Push[T any](s *Serializer) (func(T), bool) {
	return PushWith(s, Binary[T]())
}

// PushWith offers to serialize a T with c. Calling the returned function
// encodes the value up to its first byte, which becomes ready to pull.
func PushWith[T any](s *Serializer, c Codec[T]) (func(T), bool) {
	s.check()
	if !s.done {
		return nil, false
	}
	used := false
	return func(v T) {
		s.claim(&used, s.PushAvail, "push")
		defer s.guard()
		s.done = false
		e := ensure(&s.slot, encoderFor[T](s.backend))
		e.push(c, v)
		b, ok := e.next()
		if !ok {
			fatal(ErrProtocol, "value produced no bytes")
		}
		s.look, s.ready = b, true
	}, true
}

func encoderFor[T any](b Backend) func(resource) typedEncoder[T] {
	if b == Suspendable {
		return func(r resource) typedEncoder[T] { return newFiberEncoder[T](r) }
	}
	return func(r resource) typedEncoder[T] { return newEagerEncoder[T](r) }
}

// Pull offers the next byte of the value in flight.
func (s *Serializer) Pull() (func() byte, bool) {
	s.check()
	if !s.ready {
		return nil, false
	}
	used := false
	return func() byte {
		s.claim(&used, s.PullAvail, "pull")
		defer s.guard()
		b := s.look
		s.ready = false
		if !s.done {
			if next, ok := s.slot.inst.next(); ok {
				s.look, s.ready = next, true
			} else {
				s.done = true
			}
		}
		return b
	}, true
}

// Empty offers to discard the rest of the value in flight. It returns false
// if the pipe is already at rest.
func (s *Serializer) Empty() (func(), bool) {
	s.check()
	if s.done && !s.ready {
		return nil, false
	}
	used := false
	return func() {
		s.claim(&used, s.EmptyAvail, "empty")
		defer s.guard()
		if !s.done {
			s.slot.inst.cancel()
			s.done = true
		}
		s.ready = false
	}, true
}

// Stats reports how the Serializer used its backing resources.
func (s *Serializer) Stats() Stats { return s.slot.stats }

// Close releases the backend. It panics with ErrNotEmpty if a value is in
// flight, and returns ErrClosed if the pipe was already closed. A broken pipe
// gives up its resources and returns ErrBroken.
func (s *Serializer) Close() error {
	if s.closed {
		return ErrClosed
	}
	if s.broken {
		s.closed = true
		s.slot.abandon()
		return ErrBroken
	}
	if !s.done || s.ready {
		panic(fmt.Errorf("%w: %v", ErrNotEmpty, s))
	}
	s.closed = true
	defer s.guard()
	s.slot.close()
	return nil
}

func (s *Serializer) String() string {
	return fmt.Sprintf("pipe.Serializer{backend: %v, done: %t, pull: %t}", s.backend, s.done, s.ready)
}

func (s *Serializer) check() {
	switch {
	case s.closed:
		panic(ErrClosed)
	case s.broken:
		panic(ErrBroken)
	}
}

func (s *Serializer) claim(used *bool, avail func() bool, op string) {
	s.check()
	if *used || !avail() {
		fatal(ErrUnavailable, "serializer %s", op)
	}
	*used = true
}

// guard marks the pipe broken when a panic passes through an operation.
func (s *Serializer) guard() {
	if r := recover(); r != nil {
		s.broken = true
		panic(r)
	}
}
