// Package instance produces the canonical view of managed instances by
// reconciling the external runtime's bulk listing, per-instance inspect
// output, and the local preference store.
package instance

import (
	"strings"
	"time"
)

// Metadata labels boxctl writes at create time. Instances created before
// label support exist without them; the name prefix is the floor guarantee
// for recognizing those.
const (
	LabelManaged    = "sh.boxctl.managed"
	LabelPublicName = "sh.boxctl.name"
	LabelKeepAwake  = "sh.boxctl.keep-awake"
)

// Status is the normalized 3-state lifecycle status.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusUnknown Status = "unknown"
)

// Instance is one managed instance as reported to callers.
type Instance struct {
	PublicName   string
	InternalName string
	Status       Status
	KeepAwake    bool
	IP           string
	RAMGB        int // 0 means the runtime did not report memory
	MountPath    string
	CreatedAt    time.Time
	StartedAt    time.Time
}

// NormalizeStatus collapses the family of raw runtime status strings to the
// 3-state enum. Unrecognized values map to unknown; partial or stale
// runtime output must never crash a listing.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "running":
		return StatusRunning
	case "created", "exited", "paused", "stopped", "stopping", "shutdown":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// InternalName derives the runtime-facing name for a public name by
// applying the fixed prefix. Identity is deterministic: the same public
// name always maps to the same internal name.
func InternalName(prefix, publicName string) string {
	return prefix + publicName
}

// PublicNameOf recovers the operator-facing name: the name label when
// present, else the internal name with the prefix stripped.
func PublicNameOf(prefix, internalName string, labels map[string]string) string {
	if labels != nil {
		if v := labels[LabelPublicName]; v != "" {
			return v
		}
	}
	return strings.TrimPrefix(internalName, prefix)
}
