package pcq

type sliceTraits[E any] struct {
	elem    Traits[E]
	rawElem rawSized
	raw     int // element size when elem copies raw memory, else 0
}

// Slice returns the traits for []E, encoded as [length:uint64] followed by
// the elements. Elements with Trivial traits are moved as one byte run.
// A decoded slice is assigned to the destination only once every element
// has been read.
func Slice[E any](elem Traits[E]) Traits[[]E] {
	t := sliceTraits[E]{elem: elem}
	if r, ok := elem.(rawSized); ok {
		t.rawElem = r
		t.raw = r.rawSize()
	}
	return t
}

func (t sliceTraits[E]) Write(pv *ProducerView, v *[]E) Status {
	s := *v
	length := uint64(len(s))
	if st := WriteWith(pv, sizeTraits, &length); st != Success {
		return st
	}
	if len(s) == 0 {
		return Success
	}
	if t.raw > 0 {
		return pv.Write(rawSlice(s, t.raw))
	}
	for i := range s {
		if st := WriteWith(pv, t.elem, &s[i]); st != Success {
			return st
		}
	}
	return Success
}

func (t sliceTraits[E]) Read(cv *ConsumerView, v *[]E) Status {
	var length uint64
	if st := ReadWith(cv, sizeTraits, &length); st != Success {
		return st
	}
	if length == 0 {
		if v != nil {
			*v = []E{}
		}
		return Success
	}

	if t.raw > 0 {
		if length > uint64(MaxAllocation/t.raw) {
			return OOMError
		}
		n := int(length)
		if v == nil {
			return cv.Skip(n * t.raw)
		}
		out := make([]E, n)
		b := rawSlice(out, t.raw)
		if st := cv.Read(b); st != Success {
			return st
		}
		t.rawElem.normalize(b)
		*v = out
		return Success
	}

	if length > uint64(MaxAllocation) {
		return OOMError
	}
	if v == nil {
		for i := uint64(0); i < length; i++ {
			if st := ReadWith(cv, t.elem, nil); st != Success {
				return st
			}
		}
		return Success
	}
	out := make([]E, 0, min(int(length), 1024))
	for i := uint64(0); i < length; i++ {
		var e E
		if st := ReadWith(cv, t.elem, &e); st != Success {
			return st
		}
		out = append(out, e)
	}
	*v = out
	return Success
}

func (t sliceTraits[E]) MinSize(view View, v *[]E) int {
	n := sizeTraits.MinSize(view, nil)
	if v == nil || len(*v) == 0 {
		return n
	}
	if t.raw > 0 {
		return n + view.MinSizeBytes(len(*v)*t.raw)
	}
	for i := range *v {
		n += MinSizeWith(view, t.elem, &(*v)[i])
	}
	return n
}
