package pipe

import (
	"fmt"
	"reflect"
)

// Deserializer is a pipe that takes bytes and gives out values. The type of
// the next value must be pinned with Pull before any byte can be pushed:
//
//	d := pipe.NewDeserializer(nil)
//	defer d.Close()
//	pipe.Pull[[]uint64](d) // pins the type, nothing to claim yet
//	for push, ok := d.Push(); ok; push, ok = d.Push() {
//		push(next())
//	}
//	pull, _ := pipe.Pull[[]uint64](d)
//	values := pull()
//
// Push, Pull and Empty return a one-shot function and true when the operation
// is available, or nil and false otherwise. A pinned value must be claimed or
// discarded with Empty before Close. A panic escaping any operation leaves the
// pipe broken.
//
// A Deserializer is not safe for concurrent use.
type Deserializer struct {
	slot    slot[decoder]
	backend Backend
	pinned  reflect.Type
	done    bool // no type pinned
	pending bool // a value waits to be claimed
	mid     bool // bytes pushed, value incomplete
	closed  bool
	broken  bool
}

// NewDeserializer returns an idle Deserializer. opts may be nil.
func NewDeserializer(opts *Options) *Deserializer {
	return &Deserializer{backend: checkBackend(opts.backend()), done: true}
}

func (d *Deserializer) usable() bool { return !d.closed && !d.broken }

// PullAvail reports whether a decoded value waits to be claimed.
func (d *Deserializer) PullAvail() bool { return d.usable() && d.pending }

// PushAvail reports whether Push would return a function.
func (d *Deserializer) PushAvail() bool { return d.usable() && !d.done && !d.pending }

// EmptyAvail reports whether Empty would return a function.
func (d *Deserializer) EmptyAvail() bool { return d.usable() && (d.mid || d.pending) }

// Pull pins T, decoded with the Binary codec, as the type of the next value
// and offers it once all its bytes have been pushed.
func Pull[T any](d *Deserializer) (func() T, bool) {
	return PullWith(d, Binary[T]())
}

// PullWith is Pull with codec c. The codec passed when the type is pinned
// decodes the value; later calls only claim it.
//
// Pulling a type other than the pinned one panics with ErrTypeMismatch.
func PullWith[T any](d *Deserializer, c Codec[T]) (func() T, bool) {
	d.check()
	if d.done {
		d.pin(func() {
			dec := ensure(&d.slot, decoderFor[T](d.backend))
			d.done = false
			d.pinned = reflect.TypeFor[T]()
			dec.begin(c)
		})
	} else if _, ok := as[typedDecoder[T]](&d.slot); !ok {
		fatal(ErrTypeMismatch, "pinned %v, pulled %v", d.pinned, reflect.TypeFor[T]())
	}
	if !d.pending {
		return nil, false
	}
	used := false
	return func() T {
		d.claim(&used, d.PullAvail, "pull")
		defer d.guard()
		dec, ok := as[typedDecoder[T]](&d.slot)
		if !ok {
			fatal(ErrTypeMismatch, "pinned %v, pulled %v", d.pinned, reflect.TypeFor[T]())
		}
		d.pending, d.done = false, true
		return dec.take()
	}, true
}

func (d *Deserializer) pin(f func()) {
	defer d.guard()
	f()
}

func decoderFor[T any](b Backend) func(resource) typedDecoder[T] {
	if b == Suspendable {
		return func(r resource) typedDecoder[T] { return newFiberDecoder[T](r) }
	}
	return func(r resource) typedDecoder[T] { return newEagerDecoder[T](r) }
}

// Push offers to feed the next byte of the pinned value.
func (d *Deserializer) Push() (func(byte), bool) {
	d.check()
	if d.done || d.pending {
		return nil, false
	}
	used := false
	return func(b byte) {
		d.claim(&used, d.PushAvail, "push")
		defer d.guard()
		d.mid = true
		dec := d.slot.inst
		dec.feed(b)
		if dec.done() {
			d.mid, d.pending = false, true
		}
	}, true
}

// Empty offers to discard the value in progress or the value waiting to be
// claimed. It returns false if there is neither.
func (d *Deserializer) Empty() (func(), bool) {
	d.check()
	if !d.mid && !d.pending {
		return nil, false
	}
	used := false
	return func() {
		d.claim(&used, d.EmptyAvail, "empty")
		defer d.guard()
		if d.pending {
			d.slot.inst.discard()
			d.pending = false
		}
		if d.mid {
			d.slot.inst.cancel()
			d.mid = false
		}
		d.done = true
	}, true
}

// Stats reports how the Deserializer used its backing resources.
func (d *Deserializer) Stats() Stats { return d.slot.stats }

// Close releases the backend. A type may be pinned, but no byte of its value
// may have been pushed: Close panics with ErrNotEmpty otherwise. It returns
// ErrClosed if the pipe was already closed. A broken pipe gives up its
// resources and returns ErrBroken.
func (d *Deserializer) Close() error {
	if d.closed {
		return ErrClosed
	}
	if d.broken {
		d.closed = true
		d.slot.abandon()
		return ErrBroken
	}
	if d.mid || d.pending {
		panic(fmt.Errorf("%w: %v", ErrNotEmpty, d))
	}
	d.closed = true
	defer d.guard()
	d.slot.close()
	return nil
}

func (d *Deserializer) String() string {
	return fmt.Sprintf("pipe.Deserializer{backend: %v, done: %t, pending: %t, mid: %t}",
		d.backend, d.done, d.pending, d.mid)
}

func (d *Deserializer) check() {
	switch {
	case d.closed:
		panic(ErrClosed)
	case d.broken:
		panic(ErrBroken)
	}
}

func (d *Deserializer) claim(used *bool, avail func() bool, op string) {
	d.check()
	if *used || !avail() {
		fatal(ErrUnavailable, "deserializer %s", op)
	}
	*used = true
}

// guard marks the pipe broken when a panic passes through an operation.
func (d *Deserializer) guard() {
	if r := recover(); r != nil {
		d.broken = true
		panic(r)
	}
}
