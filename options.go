package pipe

// Backend selects how a pipe runs its codec.
type Backend uint8

const (
	// Eager frames each value into a buffer before serving any of its bytes.
	// Frames carry a u64 length prefix ahead of the payload.
	Eager Backend = iota + 1
	// Suspendable runs the codec on a fiber that suspends on every byte. Only
	// the payload goes on the wire and memory stays bounded.
	Suspendable
)

func (b Backend) String() string {
	switch b {
	case Eager:
		return "eager"
	case Suspendable:
		return "suspendable"
	}
	return "default"
}

// Options configures a pipe. A nil *Options selects the defaults.
type Options struct {
	// Backend runs the pipe. Zero selects the build default: Eager, or
	// Suspendable when built with the pipe_fiber tag. A Serializer and the
	// Deserializer reading its bytes must use the same backend.
	Backend Backend
}

func (o *Options) backend() Backend {
	if o == nil || o.Backend == 0 {
		return defaultBackend
	}
	return o.Backend
}
