// Package queue is a single-producer/single-consumer queue of typed
// messages over a pcq ring.
//
// The queue lays a region out as a header holding the two cursors, each on
// its own cache line, followed by the ring:
//
//	offset 0    read cursor  (consumer publishes)
//	offset 64   write cursor (producer publishes)
//	offset 128  ring, Capacity bytes
//
// A message is a list of pcq.Param. Every Try call first sums the params'
// MinSize: a message that can never fit fails with TooSmall, and one that
// does not fit yet fails with NotReady before any byte is copied. The new
// cursor is published only when the whole message succeeded.
//
//	q, err := queue.New(region.Heap(queue.RegionSize(4096)))
//	...
//	// producer goroutine
//	err = q.Producer().Insert(ctx, pcq.Arg(&name), pcq.Arg(&count))
//	// consumer goroutine
//	err = q.Consumer().Remove(ctx, pcq.Arg(&name), pcq.Arg(&count))
//
// Insert and Remove retry NotReady with exponential backoff until the
// context ends.
package queue
