//go:build !(linux || darwin || freebsd)

package region

import (
	"github.com/wippyai/pcq/errors"
)

// Mmap is not available on this platform.
func Mmap(int) (Region, error) {
	return nil, errors.Unsupported(errors.PhaseRegion, "mmap regions on this platform")
}
