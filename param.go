package pcq

// Param is one argument of a message, bound to its traits. A message is an
// ordered list of params that both endpoints agree on.
type Param interface {
	// MinSize is the lower bound on the bytes the bound value needs when
	// written.
	MinSize(view View) int
	// MinRead is the lower bound on the bytes any value of the param's
	// type needs, used before reading when the value is still unknown.
	MinRead(view View) int
	Write(pv *ProducerView) Status
	Read(cv *ConsumerView) Status
}

type boundParam[T any] struct {
	tr Traits[T]
	v  *T
}

// Arg binds v to the traits registered for T. It panics when T has none.
// The same param writes *v on the producer side and reads into *v on the
// consumer side; a nil v on the consumer side skips the value.
func Arg[T any](v *T) Param {
	return boundParam[T]{tr: MustTraitsOf[T](), v: v}
}

// ArgWith binds v to explicit traits.
func ArgWith[T any](tr Traits[T], v *T) Param {
	return boundParam[T]{tr: tr, v: v}
}

// TypedArg binds v to the registered traits of T behind a type tag.
func TypedArg[T any](v *T) Param {
	return typedParam[T]{tr: TaggedTraits(MustTraitsOf[T]()), v: v}
}

func (p boundParam[T]) MinSize(view View) int {
	return MinSizeWith(view, p.tr, p.v)
}

func (p boundParam[T]) MinRead(view View) int {
	return MinSizeWith(view, p.tr, nil)
}

func (p boundParam[T]) Write(pv *ProducerView) Status {
	return WriteWith(pv, p.tr, p.v)
}

func (p boundParam[T]) Read(cv *ConsumerView) Status {
	return ReadWith(cv, p.tr, p.v)
}

type typedParam[T any] struct {
	tr Traits[Tagged[T]]
	v  *T
}

func (p typedParam[T]) MinSize(view View) int {
	tv := Serialize(p.v)
	return MinSizeWith(view, p.tr, &tv)
}

func (p typedParam[T]) MinRead(view View) int {
	return MinSizeWith(view, p.tr, nil)
}

func (p typedParam[T]) Write(pv *ProducerView) Status {
	tv := Serialize(p.v)
	return WriteWith(pv, p.tr, &tv)
}

func (p typedParam[T]) Read(cv *ConsumerView) Status {
	tv := Deserialize(p.v)
	return ReadWith(cv, p.tr, &tv)
}

// WriteAll writes params in order and returns the view's status.
func WriteAll(pv *ProducerView, params ...Param) Status {
	for _, p := range params {
		p.Write(pv)
	}
	return pv.Status()
}

// ReadAll reads params in order and returns the view's status.
func ReadAll(cv *ConsumerView, params ...Param) Status {
	for _, p := range params {
		p.Read(cv)
	}
	return cv.Status()
}

// MinSizeAll sums the MinSize of params.
func MinSizeAll(view View, params ...Param) int {
	n := 0
	for _, p := range params {
		n += p.MinSize(view)
	}
	return n
}

// MinReadAll sums the MinRead of params.
func MinReadAll(view View, params ...Param) int {
	n := 0
	for _, p := range params {
		n += p.MinRead(view)
	}
	return n
}
