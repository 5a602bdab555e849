package main

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/pcq"
	"github.com/wippyai/pcq/config"
	"github.com/wippyai/pcq/queue"
	"github.com/wippyai/pcq/region"
	"github.com/wippyai/pcq/shm"
)

// frame is the fixed header of every demo message.
type frame struct {
	Seq  uint64
	Sent int64
}

// segmentCounter tallies shared memory lifecycle events.
type segmentCounter struct {
	counts [shm.EventDestroyed + 1]atomic.Uint64
}

func (c *segmentCounter) OnSegmentEvent(e shm.Event) {
	if int(e.Type) < len(c.counts) {
		c.counts[e.Type].Add(1)
	}
}

func (c *segmentCounter) get(t shm.EventType) uint64 {
	return c.counts[t].Load()
}

// demo owns one queue and the storage behind it.
type demo struct {
	log      *zap.Logger
	region   region.Region
	manager  *shm.Manager
	queue    *queue.Queue
	segments *segmentCounter
	paused   atomic.Bool
	latency  atomic.Int64
	received atomic.Uint64
	messages int
	payload  int
}

func newDemo(ctx context.Context, cfg config.Config, messages, payload int, log *zap.Logger) (*demo, error) {
	q := cfg.Queue
	r, err := region.New(ctx, q.RegionKind(), queue.RegionSize(q.Capacity))
	if err != nil {
		return nil, err
	}

	initial, maximum, err := q.Backoff()
	if err != nil {
		r.Close()
		return nil, err
	}
	opts := []queue.Option{queue.WithBackoff(queue.Backoff{
		InitialDelay: initial,
		MaxDelay:     maximum,
		Multiplier:   2,
	})}

	d := &demo{
		log:      log,
		region:   r,
		segments: &segmentCounter{},
		messages: messages,
		payload:  payload,
	}
	if q.ShmThreshold > 0 {
		m, err := shm.NewManager(q.SharedMemoryBackend(), q.ShmThreshold)
		if err != nil {
			r.Close()
			return nil, err
		}
		m.Subscribe(d.segments)
		d.manager = m
		opts = append(opts, queue.WithSharedMemory(m))
	}

	d.queue, err = queue.New(r, opts...)
	if err != nil {
		d.Close()
		return nil, err
	}
	log.Info("queue ready",
		zap.String("region", string(r.Kind())),
		zap.Int("capacity", d.queue.Capacity()),
		zap.Int("shm_threshold", q.ShmThreshold))
	return d, nil
}

// Run moves every message through the queue and returns when the
// consumer has checked the last one.
func (d *demo) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for _, side := range []func(context.Context) error{d.produce, d.consume} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := side(ctx); err != nil {
				once.Do(func() {
					first = err
					cancel()
				})
			}
		}()
	}
	wg.Wait()
	return first
}

func (d *demo) produce(ctx context.Context) error {
	p := d.queue.Producer()
	label := ""
	payload := make([]byte, d.payload)
	for seq := range uint64(d.messages) {
		for d.paused.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}
		f := frame{Seq: seq, Sent: time.Now().UnixNano()}
		label = fmt.Sprintf("msg-%d", seq)
		fill(payload, seq)
		if err := p.Insert(ctx, pcq.TypedArg(&f), pcq.Arg(&label), pcq.Arg(&payload)); err != nil {
			return err
		}
	}
	d.log.Debug("producer done", zap.Int("messages", d.messages))
	return nil
}

func (d *demo) consume(ctx context.Context) error {
	c := d.queue.Consumer()
	want := make([]byte, d.payload)
	for seq := range uint64(d.messages) {
		var (
			f       frame
			label   string
			payload []byte
		)
		if err := c.Remove(ctx, pcq.TypedArg(&f), pcq.Arg(&label), pcq.Arg(&payload)); err != nil {
			return err
		}
		fill(want, seq)
		if f.Seq != seq || label != fmt.Sprintf("msg-%d", seq) || !bytes.Equal(payload, want) {
			return fmt.Errorf("message %d corrupted: got seq %d label %q", seq, f.Seq, label)
		}
		d.latency.Store(time.Now().UnixNano() - f.Sent)
		d.received.Add(1)
	}
	d.log.Debug("consumer done", zap.Int("messages", d.messages))
	return nil
}

// Close releases the segments and the region under the queue.
func (d *demo) Close() {
	if d.manager != nil {
		if err := d.manager.Close(); err != nil {
			d.log.Warn("close segments", zap.Error(err))
		}
	}
	var err error
	if d.queue != nil {
		err = d.queue.Close()
	} else {
		err = d.region.Close()
	}
	if err != nil {
		d.log.Warn("close region", zap.Error(err))
	}
}

func fill(buf []byte, seq uint64) {
	for i := range buf {
		buf[i] = byte(seq + uint64(i))
	}
}
