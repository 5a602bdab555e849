package shm

type heapBackend struct{}

// HeapBackend returns a backend that maps segments into the Go heap.
// Protect is a no-op.
func HeapBackend() Backend {
	return heapBackend{}
}

func (heapBackend) Name() string { return "heap" }

func (heapBackend) Map(size int) (Mapping, error) {
	return &heapMapping{buf: make([]byte, size)}, nil
}

type heapMapping struct {
	buf []byte
}

func (m *heapMapping) Bytes() []byte { return m.buf }

func (m *heapMapping) Protect() error { return nil }

func (m *heapMapping) Unmap() error {
	m.buf = nil
	return nil
}
