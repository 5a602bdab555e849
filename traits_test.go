package pcq

import (
	"testing"
)

type unregistered struct {
	M map[string]int
}

func TestTraitsOf(t *testing.T) {
	if _, ok := TraitsOf[int32](); !ok {
		t.Error("scalar has no traits")
	}
	if _, ok := TraitsOf[string](); !ok {
		t.Error("string not registered")
	}
	if _, ok := TraitsOf[[]byte](); !ok {
		t.Error("[]byte not registered")
	}
	if _, ok := TraitsOf[Shmem](); !ok {
		t.Error("Shmem not registered")
	}
	if _, ok := TraitsOf[unregistered](); ok {
		t.Error("map-holding struct got traits")
	}
}

func TestMustTraitsOf_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustTraitsOf[unregistered]()
}

func TestParam_MissingTraits(t *testing.T) {
	h := newHarness(32)
	v := unregistered{}
	if st := h.produce(func(pv *ProducerView) { WriteParam(pv, &v) }); st != FatalError {
		t.Errorf("write = %v, want fatal_error", st)
	}
	if st := h.consume(func(cv *ConsumerView) { ReadParam(cv, &v) }); st != FatalError {
		t.Errorf("read = %v, want fatal_error", st)
	}
	w := 0
	if got := MinSizeParam(NewProducerView(h.ring, nil, 0, &w), &v); got != 0 {
		t.Errorf("MinSizeParam = %d, want 0", got)
	}
}

type celsius float32

type reading struct {
	Label string
	Temp  celsius
}

type readingTraits struct{}

func (readingTraits) Write(pv *ProducerView, v *reading) Status {
	WriteParam(pv, &v.Label)
	return WriteParam(pv, &v.Temp)
}

func (readingTraits) Read(cv *ConsumerView, v *reading) Status {
	var r reading
	ReadParam(cv, &r.Label)
	if st := ReadParam(cv, &r.Temp); st != Success || v == nil {
		return st
	}
	*v = r
	return Success
}

func (readingTraits) MinSize(view View, v *reading) int {
	if v == nil {
		return MinSizeParam[string](view, nil) + MinSizeParam[celsius](view, nil)
	}
	return MinSizeParam(view, &v.Label) + MinSizeParam(view, &v.Temp)
}

func TestRegister_Custom(t *testing.T) {
	Register[reading](readingTraits{})

	in := reading{Label: "probe-1", Temp: 21.5}
	got := roundTrip(t, MustTraitsOf[reading](), in)
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

// Bytes consumed by a successful write are never below MinSize, and a ring
// with fewer free bytes than MinSize refuses the write.
func TestMinSize_LowerBound(t *testing.T) {
	s := "lower bound"
	checks := []struct {
		name string
		c    sizedWrite
	}{
		{"uint32", param(uint32(1))},
		{"string", param("hello")},
		{"empty string", param("")},
		{"nullable", param(&s)},
		{"void nullable", param[*string](nil)},
		{"bytes", param([]byte("0123456789"))},
		{"point", param(point{X: 1})},
		{"slice of strings", paramWith(Slice(String()), []string{"a", "bc", ""})},
		{"option", paramWith(Option(String()), Some("x"))},
		{"pair", paramWith(PairOf(String(), Trivial[int16]()), MakePair("k", int16(3)))},
		{"cbor", paramWith(CBOR[map[string]int](), map[string]int{"a": 1})},
	}
	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(256)
			w := 0
			pv := NewProducerView(h.ring, nil, 0, &w)
			need := tt.c.min(pv)
			if st := tt.c.write(pv); st != Success {
				t.Fatalf("write = %v", st)
			}
			if w < need {
				t.Errorf("wrote %d bytes, MinSize %d", w, need)
			}

			if need == 0 {
				return
			}
			tight := newHarness(need)
			w = 0
			pv = NewProducerView(tight.ring, nil, 0, &w)
			if st := tt.c.write(pv); st != NotReady {
				t.Errorf("write with %d free bytes = %v, want not_ready", need-1, st)
			}
		})
	}
}

type sizedWrite struct {
	write func(*ProducerView) Status
	min   func(View) int
}

func param[T any](v T) sizedWrite {
	return paramWith(MustTraitsOf[T](), v)
}

func paramWith[T any](tr Traits[T], v T) sizedWrite {
	return sizedWrite{
		write: func(pv *ProducerView) Status {
			c := v
			return WriteWith(pv, tr, &c)
		},
		min: func(view View) int {
			return MinSizeWith(view, tr, &v)
		},
	}
}
