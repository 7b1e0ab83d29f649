package admission

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HostTotalGB reads the host's physical memory size.
func HostTotalGB() (int, error) {
	bytes, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("reading hw.memsize: %w", err)
	}
	return int(bytes >> 30), nil
}
