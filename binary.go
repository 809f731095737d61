package pipe

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
)

// typeCodec is the compiled plan for one Go type. Plans reference each other
// through pointers, so recursive types resolve once every plan is filled in.
type typeCodec struct {
	enc func(w *Writer, v reflect.Value)
	dec func(r *Reader, v reflect.Value)
}

// planCache holds compiled plans, keyed by type, shared by every Binary codec.
var planCache = xsync.NewMap[reflect.Type, *typeCodec]()

var selfCodecType = reflect.TypeFor[SelfCodec]()

// maxPrealloc bounds how many elements are reserved before they are decoded.
const maxPrealloc = 1024

// binaryCodec is a reflection-driven codec for the layout documented on Binary.
type binaryCodec[T any] struct {
	order binary.ByteOrder
}

// Binary returns the default Codec for T. The layout is bincode compatible:
//   - bool: one byte, 0 or 1
//   - integers: fixed width little endian; int, uint and uintptr use 8 bytes
//   - floats: IEEE 754 bits
//   - strings and slices: u64 length, then the bytes or elements
//   - arrays: the elements, no length
//   - structs: exported fields in declaration order; `pipe:"-"` skips a field
//   - pointers: 0 for nil, or 1 followed by the value
//   - maps: u64 length, then key/value pairs in ascending key order
//
// Types whose pointer implements SelfCodec encode themselves. Channels,
// functions, interfaces and complex numbers are not supported.
func Binary[T any]() Codec[T] {
	return binaryCodec[T]{order: Order}
}

// BinaryWithOrder is Binary with a custom byte order for multi-byte numbers.
func BinaryWithOrder[T any](order binary.ByteOrder) Codec[T] {
	return binaryCodec[T]{order: order}
}

func (c binaryCodec[T]) Encode(w io.Writer, v T) error {
	tc, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	bw, err := NewWriter(w)
	if err != nil {
		return err
	}
	bw.WithByteOrder(c.order)
	tc.enc(bw, reflect.ValueOf(&v).Elem())
	return bw.Err()
}

func (c binaryCodec[T]) Decode(r io.Reader) (T, error) {
	var v T
	tc, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return v, err
	}
	br, err := NewReader(r)
	if err != nil {
		return v, err
	}
	br.WithByteOrder(c.order)
	tc.dec(br, reflect.ValueOf(&v).Elem())
	if err := br.Err(); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// planFor returns the cached plan for t, compiling it on first use.
func planFor(t reflect.Type) (*typeCodec, error) {
	if tc, ok := planCache.Load(t); ok {
		return tc, nil
	}
	b := planBuilder{seen: make(map[reflect.Type]*typeCodec)}
	tc, err := b.build(t)
	if err != nil {
		return nil, err
	}
	// Every plan in b.seen is complete now; publish them so nested types are
	// not compiled again.
	for typ, plan := range b.seen {
		if typ != t {
			planCache.LoadOrStore(typ, plan)
		}
	}
	tc, _ = planCache.LoadOrStore(t, tc)
	return tc, nil
}

type planBuilder struct {
	seen map[reflect.Type]*typeCodec
}

func (b *planBuilder) build(t reflect.Type) (*typeCodec, error) {
	if tc, ok := b.seen[t]; ok {
		return tc, nil
	}
	if tc, ok := planCache.Load(t); ok {
		return tc, nil
	}
	tc := &typeCodec{}
	b.seen[t] = tc

	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(selfCodecType) {
		b.self(tc, t)
		return tc, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteBool(v.Bool()) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x bool
			r.ReadBool(&x)
			v.SetBool(x)
		}
	case reflect.Int8:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteInt8(int8(v.Int())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x int8
			r.ReadInt8(&x)
			v.SetInt(int64(x))
		}
	case reflect.Int16:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteInt16(int16(v.Int())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x int16
			r.ReadInt16(&x)
			v.SetInt(int64(x))
		}
	case reflect.Int32:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteInt32(int32(v.Int())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x int32
			r.ReadInt32(&x)
			v.SetInt(int64(x))
		}
	case reflect.Int64, reflect.Int:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteInt64(v.Int()) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x int64
			r.ReadInt64(&x)
			if v.OverflowInt(x) {
				r.setError(fmt.Errorf("%w: %d overflows %v", ErrInvalidData, x, v.Type()))
				return
			}
			v.SetInt(x)
		}
	case reflect.Uint8:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteUint8(uint8(v.Uint())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x uint8
			r.ReadUint8(&x)
			v.SetUint(uint64(x))
		}
	case reflect.Uint16:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteUint16(uint16(v.Uint())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x uint16
			r.ReadUint16(&x)
			v.SetUint(uint64(x))
		}
	case reflect.Uint32:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteUint32(uint32(v.Uint())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x uint32
			r.ReadUint32(&x)
			v.SetUint(uint64(x))
		}
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteUint64(v.Uint()) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x uint64
			r.ReadUint64(&x)
			if v.OverflowUint(x) {
				r.setError(fmt.Errorf("%w: %d overflows %v", ErrInvalidData, x, v.Type()))
				return
			}
			v.SetUint(x)
		}
	case reflect.Float32:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteFloat32(float32(v.Float())) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x float32
			r.ReadFloat32(&x)
			v.SetFloat(float64(x))
		}
	case reflect.Float64:
		tc.enc = func(w *Writer, v reflect.Value) { w.WriteFloat64(v.Float()) }
		tc.dec = func(r *Reader, v reflect.Value) {
			var x float64
			r.ReadFloat64(&x)
			v.SetFloat(x)
		}
	case reflect.String:
		tc.enc = func(w *Writer, v reflect.Value) {
			s := v.String()
			w.WriteLen(len(s))
			_, _ = w.WriteString(s)
		}
		tc.dec = func(r *Reader, v reflect.Value) {
			n := r.ReadLen()
			v.SetString(r.ReadString(n))
		}
	case reflect.Slice:
		return tc, b.slice(tc, t)
	case reflect.Array:
		return tc, b.array(tc, t)
	case reflect.Struct:
		return tc, b.structure(tc, t)
	case reflect.Pointer:
		return tc, b.option(tc, t)
	case reflect.Map:
		return tc, b.mapping(tc, t)
	default:
		delete(b.seen, t)
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
	}
	return tc, nil
}

func (b *planBuilder) self(tc *typeCodec, t reflect.Type) {
	tc.enc = func(w *Writer, v reflect.Value) {
		if !v.CanAddr() {
			p := reflect.New(t)
			p.Elem().Set(v)
			v = p.Elem()
		}
		w.WriteFrom(v.Addr().Interface().(SelfCodec))
	}
	tc.dec = func(r *Reader, v reflect.Value) {
		r.ReadTo(v.Addr().Interface().(SelfCodec))
	}
}

func (b *planBuilder) slice(tc *typeCodec, t reflect.Type) error {
	if t.Elem().Kind() == reflect.Uint8 && !reflect.PointerTo(t.Elem()).Implements(selfCodecType) {
		tc.enc = func(w *Writer, v reflect.Value) {
			w.WriteLen(v.Len())
			w.WriteBytes(v.Bytes())
		}
		tc.dec = func(r *Reader, v reflect.Value) {
			n := r.ReadLen()
			if n == 0 || r.Err() != nil {
				return
			}
			if data := r.ReadBytes(n); r.Err() == nil {
				v.SetBytes(data)
			}
		}
		return nil
	}
	elem, err := b.build(t.Elem())
	if err != nil {
		return err
	}
	tc.enc = func(w *Writer, v reflect.Value) {
		n := v.Len()
		w.WriteLen(n)
		for i := 0; i < n && w.Err() == nil; i++ {
			elem.enc(w, v.Index(i))
		}
	}
	tc.dec = func(r *Reader, v reflect.Value) {
		n := r.ReadLen()
		if n == 0 || r.Err() != nil {
			return
		}
		s := reflect.MakeSlice(t, 0, initialCap(n, maxPrealloc))
		zero := reflect.Zero(t.Elem())
		for i := 0; i < n; i++ {
			s = reflect.Append(s, zero)
			elem.dec(r, s.Index(i))
			if r.Err() != nil {
				return
			}
		}
		v.Set(s)
	}
	return nil
}

func (b *planBuilder) array(tc *typeCodec, t reflect.Type) error {
	elem, err := b.build(t.Elem())
	if err != nil {
		return err
	}
	n := t.Len()
	tc.enc = func(w *Writer, v reflect.Value) {
		for i := 0; i < n && w.Err() == nil; i++ {
			elem.enc(w, v.Index(i))
		}
	}
	tc.dec = func(r *Reader, v reflect.Value) {
		for i := 0; i < n && r.Err() == nil; i++ {
			elem.dec(r, v.Index(i))
		}
	}
	return nil
}

func (b *planBuilder) structure(tc *typeCodec, t reflect.Type) error {
	type field struct {
		index int
		plan  *typeCodec
	}
	var fields []field
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("pipe") == "-" {
			continue
		}
		plan, err := b.build(f.Type)
		if err != nil {
			return fmt.Errorf("%v.%s: %w", t, f.Name, err)
		}
		fields = append(fields, field{index: i, plan: plan})
	}
	tc.enc = func(w *Writer, v reflect.Value) {
		for _, f := range fields {
			if w.Err() != nil {
				return
			}
			f.plan.enc(w, v.Field(f.index))
		}
	}
	tc.dec = func(r *Reader, v reflect.Value) {
		for _, f := range fields {
			if r.Err() != nil {
				return
			}
			f.plan.dec(r, v.Field(f.index))
		}
	}
	return nil
}

func (b *planBuilder) option(tc *typeCodec, t reflect.Type) error {
	elem, err := b.build(t.Elem())
	if err != nil {
		return err
	}
	tc.enc = func(w *Writer, v reflect.Value) {
		if v.IsNil() {
			w.WriteUint8(0)
			return
		}
		w.WriteUint8(1)
		elem.enc(w, v.Elem())
	}
	tc.dec = func(r *Reader, v reflect.Value) {
		var tag uint8
		r.ReadUint8(&tag)
		if r.Err() != nil {
			return
		}
		switch tag {
		case 0:
			v.SetZero()
		case 1:
			p := reflect.New(t.Elem())
			elem.dec(r, p.Elem())
			v.Set(p)
		default:
			r.setError(fmt.Errorf("%w: option tag 0x%02x", ErrInvalidData, tag))
		}
	}
	return nil
}

func (b *planBuilder) mapping(tc *typeCodec, t reflect.Type) error {
	less, ok := keyOrder(t.Key())
	if !ok {
		return fmt.Errorf("%w: map key %v has no order", ErrUnsupportedType, t.Key())
	}
	key, err := b.build(t.Key())
	if err != nil {
		return err
	}
	val, err := b.build(t.Elem())
	if err != nil {
		return err
	}
	floatKey := t.Key().Kind() == reflect.Float32 || t.Key().Kind() == reflect.Float64
	type entry struct{ k, v reflect.Value }
	tc.enc = func(w *Writer, v reflect.Value) {
		entries := make([]entry, 0, v.Len())
		for it := v.MapRange(); it.Next(); {
			k := it.Key()
			// NaN keys are all distinct and have no order.
			if floatKey && math.IsNaN(k.Float()) {
				w.setError(fmt.Errorf("%w: NaN key in %v", ErrInvalidData, t))
				return
			}
			entries = append(entries, entry{k: k, v: it.Value()})
		}
		slices.SortFunc(entries, func(a, b entry) int { return less(a.k, b.k) })
		w.WriteLen(len(entries))
		for _, e := range entries {
			if w.Err() != nil {
				return
			}
			key.enc(w, e.k)
			val.enc(w, e.v)
		}
	}
	tc.dec = func(r *Reader, v reflect.Value) {
		n := r.ReadLen()
		if r.Err() != nil {
			return
		}
		m := reflect.MakeMapWithSize(t, initialCap(n, maxPrealloc))
		for range n {
			k := reflect.New(t.Key()).Elem()
			key.dec(r, k)
			e := reflect.New(t.Elem()).Elem()
			val.dec(r, e)
			if r.Err() != nil {
				return
			}
			m.SetMapIndex(k, e)
		}
		v.Set(m)
	}
	return nil
}

// keyOrder returns a comparison for map keys of type t, so maps encode
// deterministically.
func keyOrder(t reflect.Type) (func(a, b reflect.Value) int, bool) {
	switch t.Kind() {
	case reflect.String:
		return func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }, true
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }, true
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case b.Bool():
				return -1
			default:
				return 1
			}
		}, true
	}
	return nil, false
}
