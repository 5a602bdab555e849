package pcq

import (
	"math"
	"unsafe"

	"go.uber.org/zap"
)

// MaxAllocation bounds the bytes a single decoded string or slice may
// claim. Larger lengths read from the wire fail with OOMError instead of
// attempting the allocation.
var MaxAllocation = 1 << 30

// Strings are encoded as [isVoid:bool] and, unless void,
// [length:uint32][length*charsize bytes]. The length counts characters of
// the declared width, not bytes.

func writeText(pv *ProducerView, void bool, data []byte, charSize int) Status {
	if st := WriteWith(pv, boolTraits, &void); st != Success || void {
		return st
	}
	n := len(data) / charSize
	if uint64(n) > math.MaxUint32 {
		Logger().Error("string length overflows prefix", zap.Int("length", n))
		return FatalError
	}
	length := uint32(n)
	if st := WriteWith(pv, uint32Traits, &length); st != Success {
		return st
	}
	if len(data) == 0 {
		return Success
	}
	return pv.Write(data)
}

// readText decodes a string header and body. With materialize false the
// body is skipped and data is nil.
func readText(cv *ConsumerView, charSize int, materialize bool) (data []byte, void bool, st Status) {
	if st = ReadWith(cv, boolTraits, &void); st != Success || void {
		return nil, void, st
	}
	var length uint32
	if st = ReadWith(cv, uint32Traits, &length); st != Success {
		return nil, false, st
	}
	size := int(length) * charSize
	if size == 0 {
		return nil, false, Success
	}
	if !materialize {
		return nil, false, cv.Skip(size)
	}
	if size > MaxAllocation {
		return nil, false, OOMError
	}
	data = make([]byte, size)
	if st = cv.Read(data); st != Success {
		return nil, false, st
	}
	return data, false, Success
}

func minSizeText(view View, void bool, size int) int {
	n := boolTraits.MinSize(view, nil)
	if void {
		return n
	}
	return n + uint32Traits.MinSize(view, nil) + view.MinSizeBytes(size)
}

type stringTraits struct{}

// String returns the traits for string. A string is never void when
// written; a void string on the wire reads as "".
func String() Traits[string] {
	return stringTraits{}
}

func (stringTraits) Write(pv *ProducerView, v *string) Status {
	return writeText(pv, false, unsafe.Slice(unsafe.StringData(*v), len(*v)), 1)
}

func (stringTraits) Read(cv *ConsumerView, v *string) Status {
	data, _, st := readText(cv, 1, v != nil)
	if st != Success || v == nil {
		return st
	}
	*v = bytesToString(data)
	return Success
}

func (stringTraits) MinSize(view View, v *string) int {
	if v == nil {
		return minSizeText(view, false, 0)
	}
	return minSizeText(view, false, len(*v))
}

type nullableStringTraits struct{}

// NullableString returns the traits for *string, where nil is the void
// string.
func NullableString() Traits[*string] {
	return nullableStringTraits{}
}

func (nullableStringTraits) Write(pv *ProducerView, v **string) Status {
	if *v == nil {
		return writeText(pv, true, nil, 1)
	}
	s := **v
	return writeText(pv, false, unsafe.Slice(unsafe.StringData(s), len(s)), 1)
}

func (nullableStringTraits) Read(cv *ConsumerView, v **string) Status {
	data, void, st := readText(cv, 1, v != nil)
	if st != Success || v == nil {
		return st
	}
	if void {
		*v = nil
		return Success
	}
	s := bytesToString(data)
	*v = &s
	return Success
}

func (nullableStringTraits) MinSize(view View, v **string) int {
	if v == nil || *v == nil {
		return minSizeText(view, true, 0)
	}
	return minSizeText(view, false, len(**v))
}

type wideStringTraits struct{}

// WideString returns the traits for UTF-16 text held as []uint16. A nil
// slice is the void string; an empty non-nil slice is the empty string.
func WideString() Traits[[]uint16] {
	return wideStringTraits{}
}

func (wideStringTraits) Write(pv *ProducerView, v *[]uint16) Status {
	if *v == nil {
		return writeText(pv, true, nil, 2)
	}
	return writeText(pv, false, rawSlice(*v, 2), 2)
}

func (wideStringTraits) Read(cv *ConsumerView, v *[]uint16) Status {
	data, void, st := readText(cv, 2, v != nil)
	if st != Success || v == nil {
		return st
	}
	if void {
		*v = nil
		return Success
	}
	out := make([]uint16, len(data)/2)
	copy(rawSlice(out, 2), data)
	*v = out
	return Success
}

func (wideStringTraits) MinSize(view View, v *[]uint16) int {
	if v == nil || *v == nil {
		return minSizeText(view, true, 0)
	}
	return minSizeText(view, false, len(*v)*2)
}

func bytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
