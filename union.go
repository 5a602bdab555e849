package pcq

import (
	"fmt"
	"math"
	"reflect"

	"go.uber.org/zap"
)

// Alternative describes one variant of a Union over the interface type T.
// Build alternatives with Case; the position in the list is the wire tag.
type Alternative[T any] struct {
	match   func(T) bool
	write   func(pv *ProducerView, v T) Status
	read    func(cv *ConsumerView, v *T) Status
	minSize func(view View, v T, known bool) int
	zero    func() T
}

// Case returns the alternative of T holding a concrete A.
func Case[T, A any](tr Traits[A]) Alternative[T] {
	if _, ok := any(*new(A)).(T); !ok && reflect.TypeFor[A]().Kind() != reflect.Interface {
		panic(fmt.Sprintf("pcq: %s does not implement %s", reflect.TypeFor[A](), reflect.TypeFor[T]()))
	}
	return Alternative[T]{
		match: func(v T) bool {
			_, ok := any(v).(A)
			return ok
		},
		write: func(pv *ProducerView, v T) Status {
			a := any(v).(A)
			return WriteWith(pv, tr, &a)
		},
		read: func(cv *ConsumerView, v *T) Status {
			if v == nil {
				return ReadWith(cv, tr, nil)
			}
			var a A
			if e, ok := tr.(Emplacer[A]); ok {
				a = e.Emplace()
			}
			if st := ReadWith(cv, tr, &a); st != Success {
				return st
			}
			*v = any(a).(T)
			return Success
		},
		minSize: func(view View, v T, known bool) int {
			if !known {
				return MinSizeWith(view, tr, nil)
			}
			a := any(v).(A)
			return MinSizeWith(view, tr, &a)
		},
		zero: func() T {
			var a A
			if e, ok := tr.(Emplacer[A]); ok {
				a = e.Emplace()
			}
			t, _ := any(a).(T)
			return t
		},
	}
}

type unionTraits[T any] struct {
	alts []Alternative[T]
}

// Union returns the traits for the interface type T whose dynamic values
// are the listed alternatives. The encoding is [tag:uint8] followed by the
// active alternative. Alternatives are matched in order, so list a concrete
// type before any interface alternative it also satisfies.
func Union[T any](alts ...Alternative[T]) Traits[T] {
	if reflect.TypeFor[T]().Kind() != reflect.Interface {
		panic(fmt.Sprintf("pcq: union type %s is not an interface", reflect.TypeFor[T]()))
	}
	if len(alts) == 0 || len(alts) > math.MaxUint8+1 {
		panic(fmt.Sprintf("pcq: union %s needs 1 to 256 alternatives, got %d", reflect.TypeFor[T](), len(alts)))
	}
	return unionTraits[T]{alts: alts}
}

func (t unionTraits[T]) index(v T) int {
	for i := range t.alts {
		if t.alts[i].match(v) {
			return i
		}
	}
	return -1
}

func (t unionTraits[T]) Write(pv *ProducerView, v *T) Status {
	i := t.index(*v)
	if i < 0 {
		Logger().Error("value matches no union alternative",
			zap.String("union", reflect.TypeFor[T]().String()),
			zap.String("type", fmt.Sprintf("%T", *v)))
		return FatalError
	}
	tag := uint8(i)
	if st := WriteWith(pv, tagTraits, &tag); st != Success {
		return st
	}
	return t.alts[i].write(pv, *v)
}

func (t unionTraits[T]) Read(cv *ConsumerView, v *T) Status {
	var tag uint8
	if st := ReadWith(cv, tagTraits, &tag); st != Success {
		return st
	}
	if int(tag) >= len(t.alts) {
		Logger().Warn("union tag out of range",
			zap.String("union", reflect.TypeFor[T]().String()),
			zap.Uint8("tag", tag),
			zap.Int("alternatives", len(t.alts)))
		return FatalError
	}
	return t.alts[tag].read(cv, v)
}

func (t unionTraits[T]) MinSize(view View, v *T) int {
	n := tagTraits.MinSize(view, nil)
	if v != nil {
		if i := t.index(*v); i >= 0 {
			return n + t.alts[i].minSize(view, *v, true)
		}
	}
	least := -1
	var zero T
	for i := range t.alts {
		if m := t.alts[i].minSize(view, zero, false); least < 0 || m < least {
			least = m
		}
	}
	return n + least
}

// Emplace returns the first alternative's zero value, giving Option a
// concrete variant to decode into.
func (t unionTraits[T]) Emplace() T {
	return t.alts[0].zero()
}
