package pcq

// Pair holds two values written back to back.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MakePair returns a Pair of a and b.
func MakePair[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

type pairTraits[A, B any] struct {
	first  Traits[A]
	second Traits[B]
}

// PairOf returns the traits for Pair[A, B].
func PairOf[A, B any](first Traits[A], second Traits[B]) Traits[Pair[A, B]] {
	return pairTraits[A, B]{first: first, second: second}
}

func (t pairTraits[A, B]) Write(pv *ProducerView, v *Pair[A, B]) Status {
	if st := WriteWith(pv, t.first, &v.First); st != Success {
		return st
	}
	return WriteWith(pv, t.second, &v.Second)
}

func (t pairTraits[A, B]) Read(cv *ConsumerView, v *Pair[A, B]) Status {
	if v == nil {
		if st := ReadWith(cv, t.first, nil); st != Success {
			return st
		}
		return ReadWith(cv, t.second, nil)
	}
	var p Pair[A, B]
	if e, ok := t.first.(Emplacer[A]); ok {
		p.First = e.Emplace()
	}
	if e, ok := t.second.(Emplacer[B]); ok {
		p.Second = e.Emplace()
	}
	if st := ReadWith(cv, t.first, &p.First); st != Success {
		return st
	}
	if st := ReadWith(cv, t.second, &p.Second); st != Success {
		return st
	}
	*v = p
	return Success
}

func (t pairTraits[A, B]) MinSize(view View, v *Pair[A, B]) int {
	if v == nil {
		return MinSizeWith(view, t.first, nil) + MinSizeWith(view, t.second, nil)
	}
	return MinSizeWith(view, t.first, &v.First) + MinSizeWith(view, t.second, &v.Second)
}
