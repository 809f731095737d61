package pipe

import (
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
)

// protoCodec frames protobuf messages with a varint size prefix.
type protoCodec[M proto.Message] struct {
	opts protodelim.UnmarshalOptions
}

// Proto returns a Codec for protobuf messages of type M, such as
// *wrapperspb.StringValue. Each message is written as a varint byte count
// followed by its wire encoding, so the decoder knows where it ends without
// reading past it.
func Proto[M proto.Message]() Codec[M] {
	return protoCodec[M]{}
}

func (c protoCodec[M]) Encode(w io.Writer, m M) error {
	if w == nil {
		return ErrNilIO
	}
	_, err := protodelim.MarshalTo(w, m)
	return err
}

func (c protoCodec[M]) Decode(r io.Reader) (M, error) {
	var zero M
	src, ok := r.(protodelim.Reader)
	if !ok {
		pr, err := NewReader(r)
		if err != nil {
			return zero, err
		}
		src = pr
	}
	m := zero.ProtoReflect().New().Interface().(M)
	if err := c.opts.UnmarshalFrom(src, m); err != nil {
		return zero, err
	}
	return m, nil
}
