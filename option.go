package pcq

// Maybe holds an optional value.
type Maybe[T any] struct {
	value T
	ok    bool
}

// Some returns a Maybe holding v.
func Some[T any](v T) Maybe[T] {
	return Maybe[T]{value: v, ok: true}
}

// None returns an empty Maybe.
func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// Get returns the held value and whether there is one.
func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.ok
}

// IsSome reports whether m holds a value.
func (m Maybe[T]) IsSome() bool {
	return m.ok
}

type optionTraits[T any] struct {
	elem Traits[T]
}

// Option returns the traits for Maybe[T], encoded as [isSome:bool] followed
// by the value when present. When elem implements Emplacer, the value is
// constructed with Emplace before it is read, which is how a Maybe of a
// Union gets a concrete alternative to decode into.
func Option[T any](elem Traits[T]) Traits[Maybe[T]] {
	return optionTraits[T]{elem: elem}
}

func (t optionTraits[T]) Write(pv *ProducerView, v *Maybe[T]) Status {
	some := v.ok
	if st := WriteWith(pv, boolTraits, &some); st != Success || !some {
		return st
	}
	return WriteWith(pv, t.elem, &v.value)
}

func (t optionTraits[T]) Read(cv *ConsumerView, v *Maybe[T]) Status {
	var some bool
	if st := ReadWith(cv, boolTraits, &some); st != Success {
		return st
	}
	if !some {
		if v != nil {
			*v = Maybe[T]{}
		}
		return Success
	}
	if v == nil {
		return ReadWith(cv, t.elem, nil)
	}

	var value T
	if e, ok := t.elem.(Emplacer[T]); ok {
		value = e.Emplace()
	}
	if st := ReadWith(cv, t.elem, &value); st != Success {
		return st
	}
	*v = Maybe[T]{value: value, ok: true}
	return Success
}

func (t optionTraits[T]) MinSize(view View, v *Maybe[T]) int {
	n := boolTraits.MinSize(view, nil)
	if v == nil || !v.ok {
		return n
	}
	return n + MinSizeWith(view, t.elem, &v.value)
}
