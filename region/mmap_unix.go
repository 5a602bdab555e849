//go:build linux || darwin || freebsd

package region

import (
	"golang.org/x/sys/unix"

	"github.com/wippyai/pcq/errors"
)

type mmapRegion struct {
	buf  []byte
	size int
}

// Mmap returns a region backed by an anonymous shared mapping.
func Mmap(size int) (Region, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		e := errors.AllocationFailed(errors.PhaseRegion, size)
		e.Cause = err
		return nil, e
	}
	return &mmapRegion{buf: buf[:size], size: size}, nil
}

func (m *mmapRegion) Bytes() []byte { return m.buf }

func (m *mmapRegion) Kind() Kind { return KindMmap }

func (m *mmapRegion) Close() error {
	if m.buf == nil {
		return nil
	}
	err := unix.Munmap(m.buf[:m.size])
	m.buf = nil
	if err != nil {
		return errors.Wrap(errors.PhaseRegion, errors.KindFatal, err, "munmap ring region")
	}
	return nil
}
