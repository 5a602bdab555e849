package shm

// EventType identifies a segment lifecycle transition.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventTransferred
	EventBorrowed
	EventReleased
	EventDestroyed
)

var eventNames = [...]string{
	EventAllocated:   "allocated",
	EventTransferred: "transferred",
	EventBorrowed:    "borrowed",
	EventReleased:    "released",
	EventDestroyed:   "destroyed",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event describes a segment lifecycle transition.
type Event struct {
	ID   uint64
	Size int
	Type EventType
}

// Observer receives segment lifecycle events. It is called with the
// manager's lock held and must not call back into the manager.
type Observer interface {
	OnSegmentEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnSegmentEvent implements Observer.
func (f ObserverFunc) OnSegmentEvent(e Event) {
	f(e)
}

// Mapping is a mapped region of memory backing one segment.
type Mapping interface {
	// Bytes returns the mapped region.
	Bytes() []byte
	// Protect makes the region read-only for this process.
	Protect() error
	// Unmap releases the region. Bytes must not be used afterwards.
	Unmap() error
}

// Backend maps memory for segments.
type Backend interface {
	Map(size int) (Mapping, error)
	Name() string
}

// Stats counts segments over a manager's lifetime.
type Stats struct {
	Live      int
	Allocated uint64
	Destroyed uint64
	Bytes     int
}
