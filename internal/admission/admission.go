// Package admission decides whether a requested RAM allocation fits on the
// host. The policy is pure arithmetic over host total RAM, currently
// allocated RAM, and the request; denials always carry the full numbers so
// the operator can see exactly why.
package admission

import (
	"fmt"
	"strings"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/instance"
)

const (
	// ReserveFloorGB is the minimum RAM that must remain available on the
	// host after any allocation decision.
	ReserveFloorGB = 8

	// DefaultInstanceGB stands in when the runtime did not report an
	// instance's memory size.
	DefaultInstanceGB = 4
)

// Computation is one admission decision with its full arithmetic. Derived
// per decision, never persisted.
type Computation struct {
	TotalGB        int
	AllocatedGB    int
	RequestedGB    int
	RemainingGB    int
	ReserveFloorGB int
	Allowed        bool
}

// Evaluate applies the policy: the request is allowed when what remains
// after it stays at or above the reserve floor.
func Evaluate(totalGB, allocatedGB, requestedGB int) Computation {
	remaining := totalGB - allocatedGB - requestedGB
	return Computation{
		TotalGB:        totalGB,
		AllocatedGB:    allocatedGB,
		RequestedGB:    requestedGB,
		RemainingGB:    remaining,
		ReserveFloorGB: ReserveFloorGB,
		Allowed:        remaining >= ReserveFloorGB,
	}
}

// SumMode selects which instances count toward the allocated total.
type SumMode int

const (
	// SumAll counts every instance, used at create time, since future
	// starts will also need room.
	SumAll SumMode = iota
	// SumRunning counts running instances only, used at start time, since
	// paused instances consume no RAM currently.
	SumRunning
)

// SumAllocated totals instance RAM under the given mode. An instance with
// no reported memory counts as DefaultInstanceGB. excludeInternalName, when
// non-empty, skips that instance so an instance being restarted is not
// double-counted against itself.
func SumAllocated(instances []instance.Instance, mode SumMode, excludeInternalName string) int {
	total := 0
	for _, inst := range instances {
		if excludeInternalName != "" && inst.InternalName == excludeInternalName {
			continue
		}
		if mode == SumRunning && inst.Status != instance.StatusRunning {
			continue
		}
		gb := inst.RAMGB
		if gb <= 0 {
			gb = DefaultInstanceGB
		}
		total += gb
	}
	return total
}

// Explain renders the full arithmetic, one figure per line.
func (c Computation) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host total:      %d GB\n", c.TotalGB)
	fmt.Fprintf(&b, "allocated:       %d GB\n", c.AllocatedGB)
	fmt.Fprintf(&b, "requested:       %d GB\n", c.RequestedGB)
	fmt.Fprintf(&b, "remaining:       %d GB\n", c.RemainingGB)
	fmt.Fprintf(&b, "reserve floor:   %d GB", c.ReserveFloorGB)
	return b.String()
}

// Deny converts a disallowed computation into the typed error commands
// surface. Callers must only invoke it when !c.Allowed.
func (c Computation) Deny() error {
	return apperr.New(apperr.Validation,
		"allocation of %d GB denied: %d GB would remain, below the %d GB floor",
		c.RequestedGB, c.RemainingGB, c.ReserveFloorGB).
		WithDetail(c.Explain()).
		WithHint("stop or shrink an instance, or request less memory")
}
