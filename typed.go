package pcq

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/pcq/typeid"
)

type taggedMode uint8

const (
	modeSerialize taggedMode = iota + 1
	modeDeserialize
)

// Tagged is a value prefixed on the wire by the type identifier of T. It is
// either a source to serialize or a destination to deserialize into, never
// both.
type Tagged[T any] struct {
	ptr  *T
	mode taggedMode
}

// Serialize returns a Tagged that writes *v.
func Serialize[T any](v *T) Tagged[T] {
	return Tagged[T]{ptr: v, mode: modeSerialize}
}

// Deserialize returns a Tagged that reads into *v. A nil v skips the value
// once its tag has been checked.
func Deserialize[T any](v *T) Tagged[T] {
	return Tagged[T]{ptr: v, mode: modeDeserialize}
}

type taggedTraits[T any] struct {
	inner Traits[T]
}

// TaggedTraits returns the traits for Tagged[T], encoded as
// [typeid:uint32] followed by the value. Reading a different identifier
// fails with TypeError and leaves the destination untouched.
func TaggedTraits[T any](inner Traits[T]) Traits[Tagged[T]] {
	return taggedTraits[T]{inner: inner}
}

func (t taggedTraits[T]) Write(pv *ProducerView, v *Tagged[T]) Status {
	if v.mode != modeSerialize || v.ptr == nil {
		Logger().Error("tagged value is not a serialization source",
			zap.Stringer("type", reflect.TypeFor[T]()))
		return FatalError
	}
	id := uint32(typeid.Of[T]())
	if st := WriteWith(pv, uint32Traits, &id); st != Success {
		return st
	}
	return WriteWith(pv, t.inner, v.ptr)
}

func (t taggedTraits[T]) Read(cv *ConsumerView, v *Tagged[T]) Status {
	if v != nil && v.mode != modeDeserialize {
		Logger().Error("tagged value is not a deserialization target",
			zap.Stringer("type", reflect.TypeFor[T]()))
		return FatalError
	}
	var id uint32
	if st := ReadWith(cv, uint32Traits, &id); st != Success {
		return st
	}
	if want := uint32(typeid.Of[T]()); id != want {
		Logger().Debug("type tag mismatch",
			zap.Stringer("type", reflect.TypeFor[T]()),
			zap.Uint32("got", id),
			zap.Uint32("want", want))
		return TypeError
	}
	var dst *T
	if v != nil {
		dst = v.ptr
	}
	return ReadWith(cv, t.inner, dst)
}

func (t taggedTraits[T]) MinSize(view View, v *Tagged[T]) int {
	n := uint32Traits.MinSize(view, nil)
	if v == nil || v.mode != modeSerialize {
		return n + MinSizeWith(view, t.inner, nil)
	}
	return n + MinSizeWith(view, t.inner, v.ptr)
}

// WriteTypedParam writes the type identifier of T followed by *v.
func WriteTypedParam[T any](pv *ProducerView, v *T) Status {
	tr, ok := TraitsOf[T]()
	if !ok {
		missingTraits[T]()
		return pv.Fail(FatalError)
	}
	tv := Serialize(v)
	return WriteWith(pv, TaggedTraits(tr), &tv)
}

// ReadTypedParam checks that the next value carries the type identifier of
// T and reads it into *v. A nil v skips the value.
func ReadTypedParam[T any](cv *ConsumerView, v *T) Status {
	tr, ok := TraitsOf[T]()
	if !ok {
		missingTraits[T]()
		return cv.Fail(FatalError)
	}
	tv := Deserialize(v)
	return ReadWith(cv, TaggedTraits(tr), &tv)
}
