package pcq

import (
	"fmt"
	"reflect"
	"unsafe"
)

type arrayTraits[A, E any] struct {
	elem    Traits[E]
	rawElem rawSized
	n       int
	raw     int
}

// Array returns the traits for the fixed-size array type A, whose element
// type must be E. The length is part of the type, so no prefix is written.
// It panics when A is not an array of E.
func Array[A, E any](elem Traits[E]) Traits[A] {
	at := reflect.TypeFor[A]()
	if at.Kind() != reflect.Array || at.Elem() != reflect.TypeFor[E]() {
		panic(fmt.Sprintf("pcq: %s is not an array of %s", at, reflect.TypeFor[E]()))
	}
	t := arrayTraits[A, E]{elem: elem, n: at.Len()}
	if r, ok := elem.(rawSized); ok {
		t.rawElem = r
		t.raw = r.rawSize()
	}
	return t
}

func (t arrayTraits[A, E]) elems(v *A) []E {
	if t.n == 0 {
		return nil
	}
	return unsafe.Slice((*E)(unsafe.Pointer(v)), t.n)
}

func (t arrayTraits[A, E]) Write(pv *ProducerView, v *A) Status {
	if t.n == 0 {
		return Success
	}
	if t.raw > 0 {
		return pv.Write(rawBytes(v, t.n*t.raw))
	}
	es := t.elems(v)
	for i := range es {
		if st := WriteWith(pv, t.elem, &es[i]); st != Success {
			return st
		}
	}
	return Success
}

func (t arrayTraits[A, E]) Read(cv *ConsumerView, v *A) Status {
	if t.n == 0 {
		return Success
	}
	if v == nil {
		if t.raw > 0 {
			return cv.Skip(t.n * t.raw)
		}
		for i := 0; i < t.n; i++ {
			if st := ReadWith(cv, t.elem, nil); st != Success {
				return st
			}
		}
		return Success
	}

	var tmp A
	if t.raw > 0 {
		b := rawBytes(&tmp, t.n*t.raw)
		if st := cv.Read(b); st != Success {
			return st
		}
		t.rawElem.normalize(b)
		*v = tmp
		return Success
	}
	es := t.elems(&tmp)
	for i := range es {
		if st := ReadWith(cv, t.elem, &es[i]); st != Success {
			return st
		}
	}
	*v = tmp
	return Success
}

func (t arrayTraits[A, E]) MinSize(view View, v *A) int {
	if t.n == 0 {
		return 0
	}
	if t.raw > 0 {
		return view.MinSizeBytes(t.n * t.raw)
	}
	n := 0
	if v == nil {
		for i := 0; i < t.n; i++ {
			n += MinSizeWith(view, t.elem, nil)
		}
		return n
	}
	es := t.elems(v)
	for i := range es {
		n += MinSizeWith(view, t.elem, &es[i])
	}
	return n
}
