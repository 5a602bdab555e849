package pcq

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Traits is the serialization capability for values of type T.
//
// Write serializes *v. Read deserializes into *v, or consumes the encoded
// value without materializing it when v is nil. MinSize returns a fast
// lower bound on the bytes the encoding needs; with a nil v it is the
// least any value of T can ever need. An encoding may need more room than
// MinSize promised (the write then fails with NotReady) but never less.
//
// Implementations must route nested values through WriteWith, ReadWith and
// MinSizeWith so that a failure anywhere sticks to the view.
type Traits[T any] interface {
	Write(pv *ProducerView, v *T) Status
	Read(cv *ConsumerView, v *T) Status
	MinSize(view View, v *T) int
}

// Emplacer is implemented by traits whose values need a non-zero starting
// state before Read populates them. Option and Owned use it to construct
// the contained value in place.
type Emplacer[T any] interface {
	Emplace() T
}

// WriteWith serializes *v with tr. It is a no-op returning the recorded
// status once the view has failed.
func WriteWith[T any](pv *ProducerView, tr Traits[T], v *T) Status {
	if pv.status != Success {
		return pv.status
	}
	if st := tr.Write(pv, v); st != Success {
		return pv.Fail(st)
	}
	return pv.status
}

// ReadWith deserializes into *v with tr, or skips the value when v is nil.
// It is a no-op returning the recorded status once the view has failed.
func ReadWith[T any](cv *ConsumerView, tr Traits[T], v *T) Status {
	if cv.status != Success {
		return cv.status
	}
	if st := tr.Read(cv, v); st != Success {
		return cv.Fail(st)
	}
	return cv.status
}

// MinSizeWith returns tr's size estimate for v, which may be nil.
func MinSizeWith[T any](view View, tr Traits[T], v *T) int {
	return tr.MinSize(view, v)
}

// WriteParam serializes *v with the traits registered for T.
func WriteParam[T any](pv *ProducerView, v *T) Status {
	tr, ok := TraitsOf[T]()
	if !ok {
		missingTraits[T]()
		return pv.Fail(FatalError)
	}
	return WriteWith(pv, tr, v)
}

// ReadParam deserializes into *v with the traits registered for T. A nil v
// skips the value. On failure *v is left unchanged.
func ReadParam[T any](cv *ConsumerView, v *T) Status {
	tr, ok := TraitsOf[T]()
	if !ok {
		missingTraits[T]()
		return cv.Fail(FatalError)
	}
	return ReadWith(cv, tr, v)
}

// MinSizeParam returns the registered traits' size estimate for v, which
// may be nil. A type without traits needs zero bytes, which is always a
// valid lower bound; the write itself will fail.
func MinSizeParam[T any](view View, v *T) int {
	tr, ok := TraitsOf[T]()
	if !ok {
		return 0
	}
	return tr.MinSize(view, v)
}

var registry sync.Map // reflect.Type -> Traits[T]

// Register installs tr as the traits for T, replacing any earlier entry.
// Registration is meant for package init functions.
func Register[T any](tr Traits[T]) {
	registry.Store(reflect.TypeFor[T](), tr)
}

// TraitsOf returns the traits registered for T. Types that satisfy
// IsTriviallySerializable get Trivial traits without registration.
func TraitsOf[T any]() (Traits[T], bool) {
	rt := reflect.TypeFor[T]()
	if tr, ok := registry.Load(rt); ok {
		return tr.(Traits[T]), true
	}
	if !IsTriviallySerializable(rt) {
		return nil, false
	}
	tr, _ := registry.LoadOrStore(rt, Trivial[T]())
	return tr.(Traits[T]), true
}

// MustTraitsOf is like TraitsOf but panics when T has no traits.
func MustTraitsOf[T any]() Traits[T] {
	tr, ok := TraitsOf[T]()
	if !ok {
		panic(fmt.Sprintf("pcq: no traits registered for %s and it is not trivially serializable", reflect.TypeFor[T]()))
	}
	return tr
}

func missingTraits[T any]() {
	Logger().Error("no traits registered",
		zap.Stringer("type", reflect.TypeFor[T]()))
}

func init() {
	Register[string](String())
	Register[*string](NullableString())
	Register[[]byte](Slice(Trivial[byte]()))
	Register[Shmem](shmemTraits{})
}
