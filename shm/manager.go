package shm

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pcq"
	"github.com/wippyai/pcq/errors"
)

// MinThreshold is the smallest promotion threshold a Manager accepts. A
// segment id is eight bytes, so the run that writes it must stay inline.
const MinThreshold = 16

// Manager is a pcq.SharedMemory that maps a segment for every byte run of
// at least threshold bytes.
type Manager struct {
	backend   Backend
	table     *table
	observers []Observer
	stats     Stats
	threshold int
	mu        sync.Mutex
	closed    bool
}

var (
	_ pcq.SharedMemory   = (*Manager)(nil)
	_ pcq.SegmentRetirer = (*Manager)(nil)
)

// NewManager returns a manager mapping segments from backend.
func NewManager(backend Backend, threshold int) (*Manager, error) {
	if backend == nil {
		return nil, errors.InvalidInput(errors.PhaseSegment, "nil backend")
	}
	if threshold < MinThreshold {
		return nil, errors.New(errors.PhaseSegment, errors.KindInvalidInput).
			Value(threshold).
			Detail("threshold %d below minimum %d", threshold, MinThreshold).
			Build()
	}
	return &Manager{
		backend:   backend,
		table:     newTable(),
		threshold: threshold,
	}, nil
}

// Threshold returns the smallest run that is promoted.
func (m *Manager) Threshold() int {
	return m.threshold
}

// NeedsSharedMemory implements pcq.SharedMemory.
func (m *Manager) NeedsSharedMemory(n int) bool {
	return n >= m.threshold
}

// AllocSegment implements pcq.SharedMemory. The returned segment owns the
// mapping until it is forgotten or released.
func (m *Manager) AllocSegment(data []byte) (pcq.Segment, pcq.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, pcq.FatalError
	}
	mapping, err := m.backend.Map(len(data))
	if err != nil {
		Logger().Warn("map segment",
			zap.String("backend", m.backend.Name()),
			zap.Int("size", len(data)),
			zap.Error(err))
		return nil, pcq.OOMError
	}
	buf := mapping.Bytes()[:len(data)]
	copy(buf, data)

	id := m.table.insert(mapping, len(data))
	m.stats.Allocated++
	m.stats.Bytes += len(data)
	m.notify(Event{Type: EventAllocated, ID: id, Size: len(data)})
	Logger().Debug("segment allocated",
		zap.Uint64("segment", id),
		zap.Int("size", len(data)))

	return &segment{mgr: m, id: id, buf: buf, owner: true}, pcq.Success
}

// LookupSegment implements pcq.SharedMemory. The returned segment is a
// borrowed reference that must be released.
func (m *Manager) LookupSegment(id pcq.SegmentID) pcq.Segment {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.table.get(uint64(id))
	if e == nil {
		return nil
	}
	e.borrows++
	m.notify(Event{Type: EventBorrowed, ID: uint64(id), Size: e.size})
	return &segment{mgr: m, id: uint64(id), buf: e.mapping.Bytes()[:e.size]}
}

// RetireSegment implements pcq.SegmentRetirer.
func (m *Manager) RetireSegment(id pcq.SegmentID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.table.get(uint64(id)); e != nil {
		e.onWire = false
		m.collect(uint64(id), e)
	}
}

// Subscribe adds an observer for lifecycle events.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Stats returns segment counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Live = m.table.live
	return s
}

// Close unmaps every remaining segment. Segments handed out earlier must
// not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var first error
	m.table.each(func(id uint64, e *entry) {
		e.owned, e.onWire, e.borrows = false, false, 0
		if err := m.collect(id, e); err != nil && first == nil {
			first = err
		}
	})
	return first
}

// collect destroys e when nothing holds it. Called with mu held.
func (m *Manager) collect(id uint64, e *entry) error {
	size := e.size
	mapping := m.table.collect(id, e)
	if mapping == nil {
		return nil
	}
	m.stats.Destroyed++
	m.stats.Bytes -= size
	m.notify(Event{Type: EventDestroyed, ID: id, Size: size})
	Logger().Debug("segment destroyed", zap.Uint64("segment", id))
	if err := mapping.Unmap(); err != nil {
		Logger().Warn("unmap segment", zap.Uint64("segment", id), zap.Error(err))
		return err
	}
	return nil
}

func (m *Manager) notify(e Event) {
	for _, o := range m.observers {
		o.OnSegmentEvent(e)
	}
}

func (m *Manager) protect(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.table.get(id)
	if e == nil {
		return errors.NotFound(errors.PhaseSegment, "segment", id)
	}
	return e.mapping.Protect()
}

func (m *Manager) forget(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.table.get(id); e != nil && e.owned {
		e.owned = false
		e.onWire = true
		m.notify(Event{Type: EventTransferred, ID: id, Size: e.size})
	}
}

func (m *Manager) release(id uint64, owner bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.table.get(id)
	if e == nil {
		return
	}
	if owner {
		e.owned = false
	} else if e.borrows > 0 {
		e.borrows--
	}
	m.notify(Event{Type: EventReleased, ID: id, Size: e.size})
	m.collect(id, e)
}

// segment is one endpoint's reference to a table entry.
type segment struct {
	mgr   *Manager
	buf   []byte
	id    uint64
	owner bool
	done  bool
}

func (s *segment) ID() pcq.SegmentID { return pcq.SegmentID(s.id) }

func (s *segment) Bytes() []byte { return s.buf }

func (s *segment) RevokeRights() error {
	return s.mgr.protect(s.id)
}

func (s *segment) Forget() {
	if s.done || !s.owner {
		return
	}
	s.done = true
	s.mgr.forget(s.id)
}

func (s *segment) Release() {
	if s.done {
		return
	}
	s.done = true
	s.mgr.release(s.id, s.owner)
}
