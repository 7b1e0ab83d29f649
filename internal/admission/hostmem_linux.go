package admission

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HostTotalGB reads the host's physical memory size.
func HostTotalGB() (int, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	bytes := uint64(info.Totalram) * uint64(info.Unit)
	return int(bytes >> 30), nil
}
