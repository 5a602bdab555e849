package queue

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/pcq"
	"github.com/wippyai/pcq/errors"
	"github.com/wippyai/pcq/region"
	"github.com/wippyai/pcq/shm"
)

func newQueue(t *testing.T, capacity int, opts ...Option) *Queue {
	t.Helper()
	q, err := New(region.Heap(RegionSize(capacity)), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestNew(t *testing.T) {
	if _, err := New(region.Heap(HeaderSize + 1)); err == nil {
		t.Error("expected error for a one byte ring")
	}

	r := region.Heap(RegionSize(16))
	cursorAt(r.Bytes(), writeOffset).store(99)
	_, err := New(r)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseQueue, Kind: errors.KindOutOfBounds}) {
		t.Errorf("corrupt cursors: err = %v, want out_of_bounds", err)
	}
	var e *errors.Error
	if stderrors.As(err, &e) && (e.Value != 99 || len(e.Path) != 1 || e.Path[0] != "write") {
		t.Errorf("corrupt cursors: value=%v path=%v", e.Value, e.Path)
	}

	q := newQueue(t, 64)
	if q.Capacity() != 64 {
		t.Errorf("Capacity() = %d, want 64", q.Capacity())
	}
	if s := q.Stats(); s.Used != 0 || s.Free != 63 {
		t.Errorf("empty stats = %+v", s)
	}
}

func TestNew_Attach(t *testing.T) {
	r := region.Heap(RegionSize(64))
	first, err := New(r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := uint32(5)
	first.Producer().TryInsert(pcq.Arg(&v))

	second, err := New(r)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	var got uint32
	if st := second.Consumer().TryRemove(pcq.Arg(&got)); st != pcq.Success || got != 5 {
		t.Errorf("attached consumer got %d, %v", got, st)
	}
}

func TestQueue_FIFOWithWraparound(t *testing.T) {
	q := newQueue(t, 48)
	p, c := q.Producer(), q.Consumer()

	for i := 0; i < 100; i++ {
		msg, seq := fmt.Sprintf("m%d", i), uint16(i)
		if st := p.TryInsert(pcq.Arg(&msg), pcq.Arg(&seq)); st != pcq.Success {
			t.Fatalf("insert %d = %v", i, st)
		}
		var got string
		var gotSeq uint16
		if st := c.TryRemove(pcq.Arg(&got), pcq.Arg(&gotSeq)); st != pcq.Success {
			t.Fatalf("remove %d = %v", i, st)
		}
		if got != msg || gotSeq != seq {
			t.Fatalf("message %d = %q/%d", i, got, gotSeq)
		}
	}
	if s := q.Stats(); s.Inserted != 100 || s.Removed != 100 || s.Used != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestQueue_NotReady(t *testing.T) {
	q := newQueue(t, 32)
	p, c := q.Producer(), q.Consumer()

	var got uint64
	if st := c.TryRemove(pcq.Arg(&got)); st != pcq.NotReady {
		t.Errorf("remove from empty = %v, want not_ready", st)
	}

	v := uint64(1)
	for i := 0; i < 3; i++ {
		if st := p.TryInsert(pcq.Arg(&v)); st != pcq.Success {
			t.Fatalf("insert %d = %v", i, st)
		}
	}
	before := q.Stats()
	if st := p.TryInsert(pcq.Arg(&v)); st != pcq.NotReady {
		t.Fatalf("insert into full = %v, want not_ready", st)
	}
	after := q.Stats()
	if after.Used != before.Used || after.NotReady != before.NotReady+1 {
		t.Errorf("stats changed: %+v -> %+v", before, after)
	}
}

func TestQueue_TooSmall(t *testing.T) {
	q := newQueue(t, 16)
	p := q.Producer()

	big := "this string needs more than the ring has"
	if st := p.TryInsert(pcq.Arg(&big)); st != pcq.TooSmall {
		t.Errorf("pre-flight = %v, want too_small", st)
	}

	// CBOR underestimates, so only the write itself finds out.
	doc := map[string]string{"key": "a value too long for the ring"}
	if st := p.TryInsert(pcq.ArgWith(pcq.CBOR[map[string]string](), &doc)); st != pcq.TooSmall {
		t.Errorf("write into empty ring = %v, want too_small", st)
	}
	if s := q.Stats(); s.Used != 0 || s.TooSmall != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestQueue_Peek(t *testing.T) {
	q := newQueue(t, 64)
	s := "peeked"
	q.Producer().TryInsert(pcq.Arg(&s))

	var a, b string
	if st := q.Consumer().TryPeek(pcq.Arg(&a)); st != pcq.Success || a != s {
		t.Fatalf("peek = %q, %v", a, st)
	}
	if q.Consumer().Empty() {
		t.Fatal("peek consumed the message")
	}
	if st := q.Consumer().TryRemove(pcq.Arg(&b)); st != pcq.Success || b != s {
		t.Fatalf("remove = %q, %v", b, st)
	}
	if !q.Consumer().Empty() {
		t.Error("message left after remove")
	}
}

func TestQueue_TypeMismatchKeepsMessage(t *testing.T) {
	q := newQueue(t, 64)
	v := int64(-7)
	q.Producer().TryInsert(pcq.TypedArg(&v))

	wrong := uint64(3)
	if st := q.Consumer().TryRemove(pcq.TypedArg(&wrong)); st != pcq.TypeError {
		t.Fatalf("remove = %v, want type_error", st)
	}
	if wrong != 3 {
		t.Error("destination modified")
	}
	var right int64
	if st := q.Consumer().TryRemove(pcq.TypedArg(&right)); st != pcq.Success || right != -7 {
		t.Errorf("retry = %d, %v", right, st)
	}
}

func TestQueue_Blocking(t *testing.T) {
	q := newQueue(t, 64)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const n = 2000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint32(0); i < n; i++ {
			label := fmt.Sprintf("item-%d", i)
			if err := q.Producer().Insert(ctx, pcq.Arg(&i), pcq.Arg(&label)); err != nil {
				t.Errorf("insert %d: %v", i, err)
				return
			}
		}
	}()

	for i := uint32(0); i < n; i++ {
		var got uint32
		var label string
		if err := q.Consumer().Remove(ctx, pcq.Arg(&got), pcq.Arg(&label)); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
		if got != i || label != fmt.Sprintf("item-%d", i) {
			t.Fatalf("message %d = %d/%q", i, got, label)
		}
	}
	wg.Wait()
}

func TestQueue_BlockingCancel(t *testing.T) {
	q := newQueue(t, 32, WithBackoff(Backoff{InitialDelay: time.Millisecond}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var v uint8
	err := q.Consumer().Remove(ctx, pcq.Arg(&v))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseQueue, Kind: errors.KindNotReady}) {
		t.Fatalf("err = %v, want queue not_ready", err)
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline cause", err)
	}
	var e *errors.Error
	if stderrors.As(err, &e) && (e.Value != 1 || !strings.Contains(e.Detail, "remove")) {
		t.Errorf("not_ready value=%v detail=%q, want 1 byte needed by remove", e.Value, e.Detail)
	}

	big := "far too long for a 32 byte ring, so never retried"
	err = q.Producer().Insert(context.Background(), pcq.Arg(&big))
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindTooSmall}) {
		t.Errorf("err = %v, want too_small", err)
	}
	if stderrors.As(err, &e) && (e.Value != 5+len(big) || !strings.Contains(e.Detail, "at most 31")) {
		t.Errorf("too_small value=%v detail=%q", e.Value, e.Detail)
	}
}

func TestQueue_SharedMemory(t *testing.T) {
	mgr, err := shm.NewManager(shm.HeapBackend(), 64)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()
	q := newQueue(t, 128, WithSharedMemory(mgr))

	payload := bytes.Repeat([]byte("0123456789abcdef"), 64)
	if st := q.Producer().TryInsert(pcq.Arg(&payload)); st != pcq.Success {
		t.Fatalf("insert = %v", st)
	}
	if s := q.Stats(); s.Used != 16 {
		t.Errorf("ring holds %d bytes, want 16", s.Used)
	}

	var peeked, got []byte
	if st := q.Consumer().TryPeek(pcq.Arg(&peeked)); st != pcq.Success {
		t.Fatalf("peek = %v", st)
	}
	if mgr.Stats().Live != 1 {
		t.Fatal("peek destroyed the segment")
	}
	if st := q.Consumer().TryRemove(pcq.Arg(&got)); st != pcq.Success {
		t.Fatalf("remove = %v", st)
	}
	if !bytes.Equal(got, payload) || !bytes.Equal(peeked, payload) {
		t.Error("payload differs")
	}
	if s := mgr.Stats(); s.Live != 0 || s.Destroyed != 1 {
		t.Errorf("segment stats after remove = %+v", s)
	}
}

type block struct {
	B [32]byte
}

func TestQueue_SharedMemoryTrivial(t *testing.T) {
	mgr, err := shm.NewManager(shm.HeapBackend(), shm.MinThreshold)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	t.Run("fits through a segment", func(t *testing.T) {
		q := newQueue(t, 48, WithSharedMemory(mgr))
		var in block
		for i := range in.B {
			in.B[i] = byte(i)
		}
		if st := q.Producer().TryInsert(pcq.Arg(&in)); st != pcq.Success {
			t.Fatalf("insert = %v", st)
		}
		if s := q.Stats(); s.Used != 8 {
			t.Errorf("ring holds %d bytes, want 8", s.Used)
		}
		var out block
		if st := q.Consumer().TryRemove(pcq.Arg(&out)); st != pcq.Success {
			t.Fatalf("remove = %v", st)
		}
		if out != in {
			t.Errorf("got %x, want %x", out.B, in.B)
		}
		if !q.Consumer().Empty() || mgr.Stats().Live != 0 {
			t.Errorf("empty=%v live=%d", q.Consumer().Empty(), mgr.Stats().Live)
		}
	})

	t.Run("larger than the ring", func(t *testing.T) {
		q := newQueue(t, 32, WithSharedMemory(mgr))
		var in [64]byte
		in[63] = 1
		if st := q.Producer().TryInsert(pcq.Arg(&in)); st != pcq.Success {
			t.Fatalf("insert = %v", st)
		}
		var out [64]byte
		if st := q.Consumer().TryRemove(pcq.Arg(&out)); st != pcq.Success || out != in {
			t.Errorf("remove = %v", st)
		}
	})
}

func TestQueue_AbandonedSegmentsRetired(t *testing.T) {
	mgr, _ := shm.NewManager(shm.HeapBackend(), 64)
	defer mgr.Close()
	q := newQueue(t, 64, WithSharedMemory(mgr))

	payload := bytes.Repeat([]byte{7}, 200)
	doc := map[string]string{"k": "forty bytes of text that stays inline.."}
	st := q.Producer().TryInsert(
		pcq.Arg(&payload),
		pcq.ArgWith(pcq.CBOR[map[string]string](), &doc),
	)
	if st == pcq.Success {
		t.Fatal("insert unexpectedly fit")
	}
	if s := mgr.Stats(); s.Live != 0 || s.Allocated != 1 {
		t.Errorf("segment stats = %+v, want allocated and destroyed", s)
	}
}

func TestQueue_Regions(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []region.Kind{region.KindHeap, region.KindMmap, region.KindWasm} {
		t.Run(string(kind), func(t *testing.T) {
			r, err := region.New(ctx, kind, RegionSize(256))
			if stderrors.Is(err, &errors.Error{Kind: errors.KindUnsupported}) {
				t.Skip(err)
			}
			if err != nil {
				t.Fatalf("region: %v", err)
			}
			q, err := New(r)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer q.Close()

			in := []string{"a", "bb", "ccc"}
			tr := pcq.Slice(pcq.String())
			if st := q.Producer().TryInsert(pcq.ArgWith(tr, &in)); st != pcq.Success {
				t.Fatalf("insert = %v", st)
			}
			var out []string
			if st := q.Consumer().TryRemove(pcq.ArgWith(tr, &out)); st != pcq.Success {
				t.Fatalf("remove = %v", st)
			}
			if len(out) != 3 || out[2] != "ccc" {
				t.Errorf("got %q", out)
			}
		})
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Millisecond},
		{2, 2 * time.Millisecond},
		{3, 4 * time.Millisecond},
		{4, 5 * time.Millisecond},
		{10, 5 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
	if got := (Backoff{}).Delay(3); got != 0 {
		t.Errorf("zero backoff = %v", got)
	}
}
