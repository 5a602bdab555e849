package pcq

type ownedTraits[T any] struct {
	elem Traits[T]
}

// Owned returns the traits for an exclusively owned *T, encoded as
// [isNull:bool] followed by the pointee. A successful write clears the
// source pointer: ownership moves to the wire. A failed write leaves it in
// place. Reading allocates a fresh T and hands it to the destination.
func Owned[T any](elem Traits[T]) Traits[*T] {
	return ownedTraits[T]{elem: elem}
}

func (t ownedTraits[T]) Write(pv *ProducerView, v **T) Status {
	null := *v == nil
	if st := WriteWith(pv, boolTraits, &null); st != Success || null {
		return st
	}
	if st := WriteWith(pv, t.elem, *v); st != Success {
		return st
	}
	*v = nil
	return Success
}

func (t ownedTraits[T]) Read(cv *ConsumerView, v **T) Status {
	var null bool
	if st := ReadWith(cv, boolTraits, &null); st != Success {
		return st
	}
	if null {
		if v != nil {
			*v = nil
		}
		return Success
	}
	if v == nil {
		return ReadWith(cv, t.elem, nil)
	}

	p := new(T)
	if e, ok := t.elem.(Emplacer[T]); ok {
		*p = e.Emplace()
	}
	if st := ReadWith(cv, t.elem, p); st != Success {
		return st
	}
	*v = p
	return Success
}

func (t ownedTraits[T]) MinSize(view View, v **T) int {
	n := boolTraits.MinSize(view, nil)
	if v == nil || *v == nil {
		return n
	}
	return n + MinSizeWith(view, t.elem, *v)
}
