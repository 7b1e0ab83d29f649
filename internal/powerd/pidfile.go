package powerd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// The PID file makes the daemon a host-wide singleton. The claim uses a
// create-exclusive open, with one stale-PID takeover retry; two racing
// claimants resolve to one winner, and the worst case of a lost race is a
// harmless duplicate poll loop that exits on its next claim check.

// PIDFilePath returns the fixed per-user claim file location.
func PIDFilePath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("boxctl-powerd-%d.pid", os.Getuid()))
}

// LogFilePath returns the per-user daemon log location.
func LogFilePath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("boxctl-powerd-%d.log", os.Getuid()))
}

// Alive reports whether a process with the given pid exists. EPERM counts
// as alive: the process exists, we just can't signal it.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ReadPID parses the claim file. Returns 0 when absent or malformed.
func ReadPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// Claim attempts to record pid in the claim file. It returns claimed=false
// with the current owner's pid when a live daemon already holds the file.
func Claim(path string, pid int) (claimed bool, owner int, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, openErr := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if openErr == nil {
			_, werr := fmt.Fprintf(f, "%d\n", pid)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return false, 0, fmt.Errorf("writing pid claim: %w", errors.Join(werr, cerr))
			}
			return true, pid, nil
		}
		if !errors.Is(openErr, os.ErrExist) {
			return false, 0, fmt.Errorf("claiming %s: %w", path, openErr)
		}

		existing := ReadPID(path)
		if Alive(existing) {
			return false, existing, nil
		}
		// Stale claim: take it over and retry the exclusive create once.
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return false, 0, fmt.Errorf("removing stale pid claim: %w", rmErr)
		}
	}
	return false, 0, fmt.Errorf("claiming %s: lost the claim race twice", path)
}

// Release removes the claim file only if it still names pid, never
// clobbers a newer claimant.
func Release(path string, pid int) {
	if ReadPID(path) == pid {
		os.Remove(path)
	}
}
