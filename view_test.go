package pcq

import (
	"bytes"
	"testing"
)

func TestView_StringScenario(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		h := newHarness(16)
		s := "hello"
		if st := h.produce(func(pv *ProducerView) { WriteParam(pv, &s) }); st != Success {
			t.Fatalf("write = %v, want success", st)
		}
		var got string
		if st := h.consume(func(cv *ConsumerView) { ReadParam(cv, &got) }); st != Success {
			t.Fatalf("read = %v, want success", st)
		}
		if got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("five bytes free", func(t *testing.T) {
		h := newHarness(16)
		h.write = 10
		s := "hello"
		if st := h.produce(func(pv *ProducerView) { WriteParam(pv, &s) }); st != NotReady {
			t.Fatalf("write = %v, want not_ready", st)
		}
		if h.write != 10 || h.used() != 10 {
			t.Errorf("published state changed: write=%d used=%d", h.write, h.used())
		}
	})
}

func TestProducerView_StickyFailure(t *testing.T) {
	ring := make([]byte, 8)
	write := 0
	pv := NewProducerView(ring, nil, 0, &write)

	big := uint64(1)
	if st := WriteParam(pv, &big); st != NotReady {
		t.Fatalf("first write = %v, want not_ready", st)
	}
	before := append([]byte(nil), ring...)

	small := uint8(7)
	if st := WriteParam(pv, &small); st != NotReady {
		t.Errorf("write after failure = %v, want not_ready", st)
	}
	if st := pv.Write([]byte{1}); st != NotReady {
		t.Errorf("raw write after failure = %v, want not_ready", st)
	}
	if pv.Cursor() != 0 {
		t.Errorf("cursor moved to %d", pv.Cursor())
	}
	if !bytes.Equal(ring, before) {
		t.Error("ring modified after failure")
	}
	if pv.Fail(FatalError) != NotReady {
		t.Error("Fail replaced the recorded status")
	}
}

func TestConsumerView_StickyFailure(t *testing.T) {
	h := newHarness(64)
	a, b := int32(5), int32(6)
	h.produce(func(pv *ProducerView) {
		WriteTypedParam(pv, &a)
		WriteParam(pv, &b)
	})

	got, next := uint32(99), int32(99)
	r := h.read
	cv := NewConsumerView(h.ring, nil, &r, h.write)
	if st := ReadTypedParam(cv, &got); st != TypeError {
		t.Fatalf("typed read = %v, want type_error", st)
	}
	cursor := cv.Cursor()
	if st := ReadParam(cv, &next); st != TypeError {
		t.Errorf("read after failure = %v, want type_error", st)
	}
	if st := cv.Skip(1); st != TypeError {
		t.Errorf("skip after failure = %v, want type_error", st)
	}
	if cv.Cursor() != cursor {
		t.Error("cursor moved after failure")
	}
	if got != 99 || next != 99 {
		t.Errorf("destinations modified: %d, %d", got, next)
	}
}

func TestView_ZeroLengthPanics(t *testing.T) {
	ring := make([]byte, 8)
	tests := []struct {
		name string
		fn   func()
	}{
		{"write", func() {
			w := 0
			NewProducerView(ring, nil, 0, &w).Write(nil)
		}},
		{"read", func() {
			r := 0
			NewConsumerView(ring, nil, &r, 0).Read([]byte{})
		}},
		{"skip", func() {
			r := 0
			NewConsumerView(ring, nil, &r, 0).Skip(0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestView_Skip(t *testing.T) {
	h := newHarness(32)
	a, b := "skipped", uint16(0xbeef)
	h.produce(func(pv *ProducerView) {
		WriteParam(pv, &a)
		WriteParam(pv, &b)
	})
	var got uint16
	st := h.consume(func(cv *ConsumerView) {
		ReadParam[string](cv, nil)
		ReadParam(cv, &got)
	})
	if st != Success || got != 0xbeef {
		t.Fatalf("got %#x, %v", got, st)
	}
}

func TestView_SharedMemoryPromotion(t *testing.T) {
	shm := newFakeShm(16)
	h := newHarness(64)
	h.shm = shm

	payload := bytes.Repeat([]byte{0xab}, 100)
	if st := h.produce(func(pv *ProducerView) { WriteParam(pv, &payload) }); st != Success {
		t.Fatalf("write = %v", st)
	}
	// length prefix plus segment id
	if h.used() != 16 {
		t.Errorf("ring holds %d bytes, want 16", h.used())
	}
	if shm.forgotten != 1 {
		t.Errorf("forgotten = %d, want 1", shm.forgotten)
	}

	var got []byte
	if st := h.consume(func(cv *ConsumerView) {
		ReadParam(cv, &got)
		if len(cv.Segments()) != 1 {
			t.Errorf("segments = %v, want one", cv.Segments())
		}
	}); st != Success {
		t.Fatalf("read = %v", st)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload differs after promotion")
	}
	if shm.borrowed != 1 || shm.returned != 1 {
		t.Errorf("borrowed=%d returned=%d, want 1/1", shm.borrowed, shm.returned)
	}
}

func TestView_MinSizeBytes(t *testing.T) {
	w := 0
	plain := NewProducerView(make([]byte, 8), nil, 0, &w)
	promoted := NewProducerView(make([]byte, 8), newFakeShm(16), 0, &w)

	if got := plain.MinSizeBytes(100); got != 100 {
		t.Errorf("without shm = %d, want 100", got)
	}
	if got := promoted.MinSizeBytes(100); got != 8 {
		t.Errorf("promoted = %d, want 8", got)
	}
	if got := promoted.MinSizeBytes(15); got != 15 {
		t.Errorf("below threshold = %d, want 15", got)
	}
}

func TestView_SharedMemoryFailures(t *testing.T) {
	payload := bytes.Repeat([]byte{1}, 32)

	t.Run("alloc", func(t *testing.T) {
		shm := newFakeShm(16)
		shm.failAlloc = true
		h := newHarness(64)
		h.shm = shm
		if st := h.produce(func(pv *ProducerView) { pv.Write(payload) }); st != OOMError {
			t.Errorf("write = %v, want oom_error", st)
		}
	})

	t.Run("ring full", func(t *testing.T) {
		shm := newFakeShm(16)
		h := newHarness(8)
		h.shm = shm
		if st := h.produce(func(pv *ProducerView) { pv.Write(payload) }); st != NotReady {
			t.Errorf("write = %v, want not_ready", st)
		}
		if shm.dropped != 1 || len(shm.segs) != 0 {
			t.Errorf("segment not released: dropped=%d live=%d", shm.dropped, len(shm.segs))
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		h := newHarness(64)
		h.shm = newFakeShm(16)
		h.produce(func(pv *ProducerView) { pv.Write(payload) })
		if st := h.consume(func(cv *ConsumerView) { cv.Read(make([]byte, 20)) }); st != FatalError {
			t.Errorf("read = %v, want fatal_error", st)
		}
	})

	t.Run("unknown segment", func(t *testing.T) {
		h := newHarness(64)
		h.shm = newFakeShm(16)
		h.produce(func(pv *ProducerView) { pv.Write(payload) })
		h.shm = newFakeShm(16)
		if st := h.consume(func(cv *ConsumerView) { cv.Read(make([]byte, 32)) }); st != FatalError {
			t.Errorf("read = %v, want fatal_error", st)
		}
	})

	t.Run("skip", func(t *testing.T) {
		shm := newFakeShm(16)
		h := newHarness(64)
		h.shm = shm
		h.produce(func(pv *ProducerView) { pv.Write(payload) })
		if st := h.consume(func(cv *ConsumerView) { cv.Skip(32) }); st != Success {
			t.Errorf("skip = %v", st)
		}
		if shm.returned != 1 {
			t.Errorf("returned = %d, want 1", shm.returned)
		}
	})
}
