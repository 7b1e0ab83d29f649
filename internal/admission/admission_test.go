package admission

import (
	"strings"
	"testing"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/instance"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name                   string
		total, allocated, req  int
		wantRemaining          int
		wantAllowed            bool
	}{
		{"boundary inclusive", 16, 4, 4, 8, true},
		{"one over the floor", 16, 4, 5, 7, false},
		{"empty host", 16, 0, 4, 12, true},
		{"fully allocated", 16, 16, 1, -1, false},
		{"zero request", 16, 8, 0, 8, true},
		{"large host", 64, 20, 16, 28, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Evaluate(tt.total, tt.allocated, tt.req)
			if c.RemainingGB != tt.wantRemaining {
				t.Errorf("RemainingGB = %d, want %d", c.RemainingGB, tt.wantRemaining)
			}
			if c.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", c.Allowed, tt.wantAllowed)
			}
			if c.ReserveFloorGB != ReserveFloorGB {
				t.Errorf("ReserveFloorGB = %d, want %d", c.ReserveFloorGB, ReserveFloorGB)
			}
			// The invariant, independent of the examples above.
			if want := tt.total-tt.allocated-tt.req >= ReserveFloorGB; c.Allowed != want {
				t.Errorf("Allowed = %v disagrees with arithmetic", c.Allowed)
			}
		})
	}
}

func testInstances() []instance.Instance {
	return []instance.Instance{
		{InternalName: "boxctl-a", PublicName: "a", Status: instance.StatusRunning, RAMGB: 8},
		{InternalName: "boxctl-b", PublicName: "b", Status: instance.StatusStopped, RAMGB: 4},
		{InternalName: "boxctl-c", PublicName: "c", Status: instance.StatusRunning}, // no reported RAM
	}
}

func TestSumAllocatedAll(t *testing.T) {
	got := SumAllocated(testInstances(), SumAll, "")
	if want := 8 + 4 + DefaultInstanceGB; got != want {
		t.Errorf("SumAllocated(all) = %d, want %d", got, want)
	}
}

func TestSumAllocatedRunningOnly(t *testing.T) {
	got := SumAllocated(testInstances(), SumRunning, "")
	if want := 8 + DefaultInstanceGB; got != want {
		t.Errorf("SumAllocated(running) = %d, want %d", got, want)
	}
}

func TestSumAllocatedExcludesRestartingInstance(t *testing.T) {
	got := SumAllocated(testInstances(), SumRunning, "boxctl-a")
	if want := DefaultInstanceGB; got != want {
		t.Errorf("SumAllocated(running, exclude a) = %d, want %d", got, want)
	}
}

func TestDenyCarriesFullArithmetic(t *testing.T) {
	c := Evaluate(16, 4, 5)
	if c.Allowed {
		t.Fatal("expected denial")
	}
	err := c.Deny()
	ae := apperr.As(err)
	if ae.Kind != apperr.Validation {
		t.Errorf("Kind = %s, want validation", ae.Kind)
	}
	for _, want := range []string{"host total:      16 GB", "allocated:       4 GB", "requested:       5 GB", "remaining:       7 GB", "reserve floor:   8 GB"} {
		if !strings.Contains(ae.Detail, want) {
			t.Errorf("Detail missing %q:\n%s", want, ae.Detail)
		}
	}
}
