//go:build linux

package shm

import (
	"golang.org/x/sys/unix"

	"github.com/wippyai/pcq/errors"
)

type memfdBackend struct{}

// MemfdBackend returns a backend that maps each segment from its own
// anonymous memory file, shared with any process the descriptor is
// passed to.
func MemfdBackend() Backend {
	return memfdBackend{}
}

// MemfdSupported reports whether MemfdBackend can map segments here.
func MemfdSupported() bool {
	return true
}

func (memfdBackend) Name() string { return "memfd" }

func (memfdBackend) Map(size int) (Mapping, error) {
	if size <= 0 {
		return nil, errors.InvalidInput(errors.PhaseSegment, "segment size must be positive")
	}
	fd, err := unix.MemfdCreate("pcq-segment", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, allocFailed(size, "memfd_create", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, allocFailed(size, "ftruncate", err)
	}
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, allocFailed(size, "mmap", err)
	}
	return &memfdMapping{fd: fd, buf: buf}, nil
}

func allocFailed(size int, step string, err error) error {
	e := errors.AllocationFailed(errors.PhaseSegment, size)
	e.Detail = step + ": " + e.Detail
	e.Cause = err
	return e
}

type memfdMapping struct {
	buf []byte
	fd  int
}

func (m *memfdMapping) Bytes() []byte { return m.buf }

func (m *memfdMapping) Protect() error {
	if err := unix.Mprotect(m.buf, unix.PROT_READ); err != nil {
		return errors.Wrap(errors.PhaseSegment, errors.KindFatal, err, "mprotect")
	}
	return nil
}

func (m *memfdMapping) Unmap() error {
	if m.buf == nil {
		return nil
	}
	err := unix.Munmap(m.buf)
	m.buf = nil
	if cerr := unix.Close(m.fd); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(errors.PhaseSegment, errors.KindFatal, err, "unmap segment")
	}
	return nil
}
