package queue

import (
	"context"

	"github.com/wippyai/pcq"
	"github.com/wippyai/pcq/internal/ring"
)

// Producer writes messages into a queue.
type Producer struct {
	q *Queue
}

// TryInsert writes one message made of params. On anything but Success the
// message is not published and the queue is unchanged.
func (p *Producer) TryInsert(params ...pcq.Param) pcq.Status {
	return p.insert(params).st
}

// Insert is TryInsert retried with backoff until the message fits or ctx
// ends.
func (p *Producer) Insert(ctx context.Context, params ...pcq.Param) error {
	a := p.q.wait(ctx, func() attempt { return p.insert(params) })
	return blockingErr(ctx, a, "insert")
}

func (p *Producer) insert(params []pcq.Param) attempt {
	q := p.q
	capacity := len(q.ring)
	read, write := q.read.load(), q.write.load()
	empty := read == write

	pv := pcq.NewProducerView(q.ring, q.shm, read, &write)
	need := pcq.MinSizeAll(pv, params...)
	if usable := ring.Usable(capacity); need > usable {
		return q.record(attempt{st: pcq.TooSmall, need: need, have: usable}, "producer")
	}
	if free := ring.FreeBytes(capacity, read, write); need > free {
		return q.record(attempt{st: pcq.NotReady, need: need, have: free}, "producer")
	}

	st := pcq.WriteAll(pv, params...)
	if st != pcq.Success {
		q.retire(pv.Segments())
		a := attempt{st: st, need: need, have: ring.FreeBytes(capacity, read, q.write.load())}
		// Everything but the reserved byte was free.
		if st == pcq.NotReady && empty {
			a.st = pcq.TooSmall
			a.need = capacity
			a.have = ring.Usable(capacity)
		}
		return q.record(a, "producer")
	}
	q.write.store(write)
	q.counters.inserted.Add(1)
	return attempt{st: pcq.Success, need: need}
}

// Consumer reads messages out of a queue.
type Consumer struct {
	q *Queue
}

// TryRemove reads the next message into params and consumes it. On
// anything but Success the message stays in the queue. A param bound to a
// nil pointer skips its value.
func (c *Consumer) TryRemove(params ...pcq.Param) pcq.Status {
	return c.read(true, params).st
}

// TryPeek reads the next message into params without consuming it.
func (c *Consumer) TryPeek(params ...pcq.Param) pcq.Status {
	return c.read(false, params).st
}

// Remove is TryRemove retried with backoff until a message arrives or ctx
// ends.
func (c *Consumer) Remove(ctx context.Context, params ...pcq.Param) error {
	a := c.q.wait(ctx, func() attempt { return c.read(true, params) })
	return blockingErr(ctx, a, "remove")
}

// Empty reports whether no message is waiting.
func (c *Consumer) Empty() bool {
	return c.q.read.load() == c.q.write.load()
}

func (c *Consumer) read(commit bool, params []pcq.Param) attempt {
	q := c.q
	capacity := len(q.ring)
	read, write := q.read.load(), q.write.load()
	used := ring.UsedBytes(capacity, read, write)

	cv := pcq.NewConsumerView(q.ring, q.shm, &read, write)
	need := pcq.MinReadAll(cv, params...)
	if usable := ring.Usable(capacity); need > usable {
		return q.record(attempt{st: pcq.TooSmall, need: need, have: usable}, "consumer")
	}
	if need > used {
		return q.record(attempt{st: pcq.NotReady, need: need, have: used}, "consumer")
	}

	if st := pcq.ReadAll(cv, params...); st != pcq.Success {
		return q.record(attempt{st: st, need: need, have: used}, "consumer")
	}
	if commit {
		q.read.store(read)
		q.retire(cv.Segments())
		q.counters.removed.Add(1)
	}
	return attempt{st: pcq.Success, need: need, have: used}
}
