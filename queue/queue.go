package queue

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/pcq"
	"github.com/wippyai/pcq/errors"
	"github.com/wippyai/pcq/internal/ring"
	"github.com/wippyai/pcq/region"
)

// Option configures a Queue.
type Option func(*Queue)

// WithSharedMemory enables payload promotion through shm. Both endpoints
// of a queue must use the same strategy.
func WithSharedMemory(shm pcq.SharedMemory) Option {
	return func(q *Queue) { q.shm = shm }
}

// WithBackoff sets the retry policy of Insert and Remove.
func WithBackoff(b Backoff) Option {
	return func(q *Queue) { q.backoff = b }
}

// Queue is an SPSC message queue over a region. The producer and consumer
// endpoints may run on different goroutines; each endpoint must only be
// used by one goroutine at a time.
type Queue struct {
	region   region.Region
	shm      pcq.SharedMemory
	ring     []byte
	read     cursor
	write    cursor
	backoff  Backoff
	counters counters
	producer Producer
	consumer Consumer
}

type counters struct {
	inserted atomic.Uint64
	removed  atomic.Uint64
	notReady atomic.Uint64
	tooSmall atomic.Uint64
	failed   atomic.Uint64
}

// Stats is a snapshot of queue occupancy and counters.
type Stats struct {
	Capacity int
	Used     int
	Free     int
	Inserted uint64
	Removed  uint64
	NotReady uint64
	TooSmall uint64
	Failed   uint64
}

// New lays a queue out over r. The ring capacity is len(r.Bytes()) minus
// HeaderSize. Cursors already stored in r are kept, so a second process
// mapping the same region attaches to the same queue.
func New(r region.Region, opts ...Option) (*Queue, error) {
	buf := r.Bytes()
	capacity := len(buf) - HeaderSize
	if capacity < 2 {
		return nil, errors.New(errors.PhaseQueue, errors.KindInvalidInput).
			Value(len(buf)).
			Detail("region of %d bytes leaves no room for a ring", len(buf)).
			Build()
	}

	q := &Queue{
		region:  r,
		ring:    buf[HeaderSize:],
		read:    cursorAt(buf, readOffset),
		write:   cursorAt(buf, writeOffset),
		backoff: DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if rd := q.read.load(); rd >= capacity {
		return nil, errors.OutOfBounds(errors.PhaseQueue, []string{"read"}, rd, capacity)
	}
	if wr := q.write.load(); wr >= capacity {
		return nil, errors.OutOfBounds(errors.PhaseQueue, []string{"write"}, wr, capacity)
	}
	q.producer.q = q
	q.consumer.q = q

	Logger().Debug("queue created",
		zap.String("region", string(r.Kind())),
		zap.Int("capacity", capacity),
		zap.Bool("shm", q.shm != nil))
	return q, nil
}

// Capacity returns the ring capacity. One byte of it is never used.
func (q *Queue) Capacity() int {
	return len(q.ring)
}

// Producer returns the producing endpoint.
func (q *Queue) Producer() *Producer {
	return &q.producer
}

// Consumer returns the consuming endpoint.
func (q *Queue) Consumer() *Consumer {
	return &q.consumer
}

// Stats returns a snapshot of the queue.
func (q *Queue) Stats() Stats {
	rd, wr := q.read.load(), q.write.load()
	return Stats{
		Capacity: len(q.ring),
		Used:     ring.UsedBytes(len(q.ring), rd, wr),
		Free:     ring.FreeBytes(len(q.ring), rd, wr),
		Inserted: q.counters.inserted.Load(),
		Removed:  q.counters.removed.Load(),
		NotReady: q.counters.notReady.Load(),
		TooSmall: q.counters.tooSmall.Load(),
		Failed:   q.counters.failed.Load(),
	}
}

// Close releases the region. Neither endpoint may be used afterwards.
func (q *Queue) Close() error {
	return q.region.Close()
}

func (q *Queue) retire(ids []pcq.SegmentID) {
	if len(ids) == 0 {
		return
	}
	r, ok := q.shm.(pcq.SegmentRetirer)
	if !ok {
		return
	}
	for _, id := range ids {
		r.RetireSegment(id)
	}
}

// attempt is the outcome of one try and the byte counts that decided it.
type attempt struct {
	st   pcq.Status
	need int
	have int
}

func (q *Queue) record(a attempt, side string) attempt {
	switch {
	case a.st == pcq.NotReady:
		q.counters.notReady.Add(1)
	case a.st == pcq.TooSmall:
		q.counters.tooSmall.Add(1)
		Logger().Warn("message can never fit",
			zap.String("side", side),
			zap.Int("need", a.need),
			zap.Int("capacity", len(q.ring)))
	case a.st != pcq.Success:
		q.counters.failed.Add(1)
		Logger().Error("transaction failed",
			zap.String("side", side),
			zap.Stringer("status", a.st))
	}
	return a
}

// wait retries try with backoff while it reports NotReady.
func (q *Queue) wait(ctx context.Context, try func() attempt) attempt {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for n := 1; ; n++ {
		a := try()
		if a.st != pcq.NotReady {
			return a
		}
		d := q.backoff.Delay(n)
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		select {
		case <-ctx.Done():
			return a
		case <-timer.C:
		}
	}
}

func blockingErr(ctx context.Context, a attempt, op string) error {
	switch {
	case a.st == pcq.Success:
		return nil
	case a.st == pcq.NotReady && ctx.Err() != nil:
		err := errors.NotReady(errors.PhaseQueue, a.need, a.have)
		err.Detail = op + " gave up waiting: " + err.Detail
		err.Cause = ctx.Err()
		return err
	case a.st == pcq.TooSmall:
		err := errors.TooSmall(errors.PhaseQueue, a.need, a.have)
		err.Detail = op + " " + err.Detail
		return err
	}
	err := a.st.Err(errors.PhaseQueue)
	if e, ok := err.(*errors.Error); ok {
		e.Detail = op
	}
	return err
}
