package pcq

import (
	"testing"
)

// harness is a ring with published cursors. Transactions advance private
// copies and publish them only on success, the way a queue does.
type harness struct {
	ring  []byte
	shm   SharedMemory
	read  int
	write int
}

func newHarness(capacity int) *harness {
	return &harness{ring: make([]byte, capacity)}
}

func (h *harness) produce(fn func(pv *ProducerView)) Status {
	w := h.write
	pv := NewProducerView(h.ring, h.shm, h.read, &w)
	fn(pv)
	if pv.Status() == Success {
		h.write = w
	}
	return pv.Status()
}

func (h *harness) consume(fn func(cv *ConsumerView)) Status {
	r := h.read
	cv := NewConsumerView(h.ring, h.shm, &r, h.write)
	fn(cv)
	if cv.Status() == Success {
		h.read = r
	}
	return cv.Status()
}

func (h *harness) used() int {
	if h.read <= h.write {
		return h.write - h.read
	}
	return len(h.ring) - h.read + h.write
}

// roundTrip writes v with tr into a fresh ring and reads it back.
func roundTrip[T any](t *testing.T, tr Traits[T], v T) T {
	t.Helper()
	h := newHarness(4096)
	if st := h.produce(func(pv *ProducerView) { WriteWith(pv, tr, &v) }); st != Success {
		t.Fatalf("write: %v", st)
	}
	var got T
	if e, ok := tr.(Emplacer[T]); ok {
		got = e.Emplace()
	}
	if st := h.consume(func(cv *ConsumerView) { ReadWith(cv, tr, &got) }); st != Success {
		t.Fatalf("read: %v", st)
	}
	if h.used() != 0 {
		t.Fatalf("%d bytes left unread", h.used())
	}
	return got
}

type fakeSegment struct {
	shm      *fakeShm
	data     []byte
	id       SegmentID
	revoked  bool
	borrowed bool
}

func (s *fakeSegment) ID() SegmentID { return s.id }

func (s *fakeSegment) Bytes() []byte { return s.data }

func (s *fakeSegment) RevokeRights() error {
	s.revoked = true
	return nil
}

func (s *fakeSegment) Forget() { s.shm.forgotten++ }

func (s *fakeSegment) Release() {
	if s.borrowed {
		s.shm.returned++
		return
	}
	s.shm.dropped++
	delete(s.shm.segs, s.id)
}

// fakeShm promotes every run of at least threshold bytes.
type fakeShm struct {
	segs      map[SegmentID][]byte
	threshold int
	next      SegmentID
	failAlloc bool

	forgotten int
	borrowed  int
	returned  int
	dropped   int
}

func newFakeShm(threshold int) *fakeShm {
	return &fakeShm{segs: map[SegmentID][]byte{}, threshold: threshold}
}

func (f *fakeShm) NeedsSharedMemory(n int) bool {
	return n >= f.threshold
}

func (f *fakeShm) AllocSegment(data []byte) (Segment, Status) {
	if f.failAlloc {
		return nil, OOMError
	}
	f.next++
	buf := append([]byte(nil), data...)
	f.segs[f.next] = buf
	return &fakeSegment{shm: f, id: f.next, data: buf}, Success
}

func (f *fakeShm) LookupSegment(id SegmentID) Segment {
	data, ok := f.segs[id]
	if !ok {
		return nil
	}
	f.borrowed++
	return &fakeSegment{shm: f, id: id, data: data, borrowed: true}
}
