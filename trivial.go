package pcq

import (
	"fmt"
	"reflect"
	"unsafe"
)

// IsTriviallySerializable reports whether values of t can be moved with a
// raw byte copy: booleans, numbers, and arrays or structs built only from
// them. Anything holding a pointer, slice, string, map, channel, function
// or interface is excluded.
func IsTriviallySerializable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return IsTriviallySerializable(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !IsTriviallySerializable(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// rawSized is implemented by traits whose encoding is the value's own
// memory. Slice and Array use it to move whole runs in one copy.
type rawSized interface {
	rawSize() int
	// normalize repairs a run of whole values read off the wire.
	normalize(b []byte)
}

type trivial[T any] struct {
	size  int
	bools []uintptr // offsets of every bool inside a T
}

// Trivial returns traits that copy the bytes of a T verbatim. It panics
// when T does not satisfy IsTriviallySerializable. Bools read back are
// always 0 or 1, whatever byte the sender put there.
func Trivial[T any]() Traits[T] {
	rt := reflect.TypeFor[T]()
	if !IsTriviallySerializable(rt) {
		panic(fmt.Sprintf("pcq: %s is not trivially serializable", rt))
	}
	return trivial[T]{
		size:  int(rt.Size()),
		bools: boolOffsets(rt, 0, nil),
	}
}

func boolOffsets(t reflect.Type, base uintptr, out []uintptr) []uintptr {
	switch t.Kind() {
	case reflect.Bool:
		out = append(out, base)
	case reflect.Array:
		elem := t.Elem()
		for i := 0; i < t.Len(); i++ {
			out = boolOffsets(elem, base+uintptr(i)*elem.Size(), out)
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			out = boolOffsets(f.Type, base+f.Offset, out)
		}
	}
	return out
}

func (t trivial[T]) Write(pv *ProducerView, v *T) Status {
	if t.size == 0 {
		return pv.Status()
	}
	return pv.Write(rawBytes(v, t.size))
}

func (t trivial[T]) Read(cv *ConsumerView, v *T) Status {
	if t.size == 0 {
		return cv.Status()
	}
	if v == nil {
		return cv.Skip(t.size)
	}
	var tmp T
	b := rawBytes(&tmp, t.size)
	if st := cv.Read(b); st != Success {
		return st
	}
	t.normalize(b)
	*v = tmp
	return Success
}

// MinSize is the size of T, or of a segment handle when the view would
// promote a run that long.
func (t trivial[T]) MinSize(view View, _ *T) int {
	if view == nil || t.size == 0 {
		return t.size
	}
	return view.MinSizeBytes(t.size)
}

func (t trivial[T]) rawSize() int {
	return t.size
}

func (t trivial[T]) normalize(b []byte) {
	if len(t.bools) == 0 {
		return
	}
	for base := 0; base+t.size <= len(b); base += t.size {
		for _, off := range t.bools {
			if i := base + int(off); b[i] > 1 {
				b[i] = 1
			}
		}
	}
}

func rawBytes[T any](v *T, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), size)
}

func rawSlice[E any](s []E, elemSize int) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*elemSize)
}

// Length prefixes and tags share these.
var (
	boolTraits   = Trivial[bool]()
	uint32Traits = Trivial[uint32]()
	sizeTraits   = Trivial[uint64]()
	tagTraits    = Trivial[uint8]()
)
