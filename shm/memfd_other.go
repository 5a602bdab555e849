//go:build !linux

package shm

import (
	"github.com/wippyai/pcq/errors"
)

type memfdBackend struct{}

// MemfdBackend returns a backend that fails on this platform.
func MemfdBackend() Backend {
	return memfdBackend{}
}

// MemfdSupported reports whether MemfdBackend can map segments here.
func MemfdSupported() bool {
	return false
}

func (memfdBackend) Name() string { return "memfd" }

func (memfdBackend) Map(int) (Mapping, error) {
	return nil, errors.Unsupported(errors.PhaseSegment, "memfd segments on this platform")
}
