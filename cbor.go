package pcq

import (
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2), so the same
// value always produces the same bytes on the wire.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("pcq: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 20,
	}.DecMode()
	if err != nil {
		panic("pcq: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborTraits[T any] struct{}

// CBOR returns traits that carry T as an opaque CBOR document,
// [length:uint32][length bytes]. It suits values with no fixed layout,
// such as structs holding maps or nested slices, at the cost of an
// encoding pass on each side.
func CBOR[T any]() Traits[T] {
	return cborTraits[T]{}
}

func (cborTraits[T]) Write(pv *ProducerView, v *T) Status {
	buf := getBuf()
	defer putBuf(buf)

	if err := encMode.NewEncoder(buf).Encode(v); err != nil {
		Logger().Error("cbor encode",
			zap.Stringer("type", reflect.TypeFor[T]()),
			zap.Error(err))
		return FatalError
	}
	if uint64(buf.Len()) > math.MaxUint32 {
		return FatalError
	}
	length := uint32(buf.Len())
	if st := WriteWith(pv, uint32Traits, &length); st != Success {
		return st
	}
	return pv.Write(buf.Bytes())
}

func (cborTraits[T]) Read(cv *ConsumerView, v *T) Status {
	var length uint32
	if st := ReadWith(cv, uint32Traits, &length); st != Success {
		return st
	}
	if length == 0 {
		Logger().Warn("empty cbor document", zap.Stringer("type", reflect.TypeFor[T]()))
		return FatalError
	}
	if v == nil {
		return cv.Skip(int(length))
	}
	if int(length) > MaxAllocation {
		return OOMError
	}

	buf := getBuf()
	defer putBuf(buf)
	data := scratch(buf, int(length))
	if st := cv.Read(data); st != Success {
		return st
	}
	var tmp T
	if err := decMode.Unmarshal(data, &tmp); err != nil {
		Logger().Warn("cbor decode",
			zap.Stringer("type", reflect.TypeFor[T]()),
			zap.Error(err))
		return FatalError
	}
	*v = tmp
	return Success
}

// MinSize counts the prefix and the one byte every CBOR item needs.
func (cborTraits[T]) MinSize(view View, _ *T) int {
	return uint32Traits.MinSize(view, nil) + 1
}
