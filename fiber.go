package pipe

import (
	"iter"
)

// signal is what the driver sends a fiber when it resumes it.
type signal uint8

const (
	sigNext  signal = iota // advance, or ask a decoder whether it is done
	sigNew                 // a new value (encoder) or a new byte (decoder)
	sigEmpty               // interrupt the value in progress
	sigKill                // terminate the task and park the fiber
	sigStop                // the fiber itself is being stopped; never sent
)

func (s signal) String() string {
	switch s {
	case sigNext:
		return "next"
	case sigNew:
		return "new"
	case sigEmpty:
		return "empty"
	case sigKill:
		return "kill"
	case sigStop:
		return "stop"
	}
	return "unknown"
}

type message struct {
	sig signal
	b   byte
}

// eventKind is what a fiber reports back when it suspends.
type eventKind uint8

const (
	evNone  eventKind = iota // nothing to report: waiting for input or value exhausted
	evByte                   // an encoder produced a byte
	evDone                   // a decoder finished its value
	evValue                  // a decoder is handing its value over
)

func (k eventKind) String() string {
	switch k {
	case evNone:
		return "none"
	case evByte:
		return "byte"
	case evDone:
		return "done"
	case evValue:
		return "value"
	}
	return "unknown"
}

type event struct {
	kind eventKind
	b    byte
}

// A fiber is a coroutine that hosts one typed encode or decode task at a time.
// Exactly one of the driver and the fiber runs at any instant: resume switches
// into the fiber and returns when the fiber suspends again.
//
// When a task ends the fiber parks and can start a task of any other type.
// That parked fiber is the resource a slot hands from one backend instance to
// the next.
type fiber struct {
	next  func() (event, bool)
	stop  func()
	yield func(event) bool
	in    message
	task  func(message)
	tasks int // tasks hosted so far
}

func newFiber() *fiber {
	f := &fiber{}
	f.next, f.stop = iter.Pull(f.run)
	f.next() // run up to the first park
	return f
}

func (f *fiber) run(yield func(event) bool) {
	f.yield = yield
	for yield(event{}) {
		task := f.task
		f.task = nil
		if task == nil {
			fatal(ErrProtocol, "%v sent to a parked fiber", f.in.sig)
		}
		f.tasks++
		task(f.in)
	}
}

// start installs the task the next resume runs. The fiber must be parked.
func (f *fiber) start(task func(message)) {
	f.task = task
}

// resume hands m to the fiber and runs it until it suspends.
func (f *fiber) resume(m message) event {
	f.in = m
	ev, ok := f.next()
	if !ok {
		fatal(ErrBroken, "fiber has exited")
	}
	return ev
}

// suspend reports ev to the driver and waits for the next message. Called
// from inside a task only.
func (f *fiber) suspend(ev event) message {
	if !f.yield(ev) {
		return message{sig: sigStop}
	}
	return f.in
}

// close stops the fiber. A task still running sees sigStop and must unwind.
func (f *fiber) close() {
	f.stop()
}
