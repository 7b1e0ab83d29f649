package instance

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/runtime"
)

// RuntimeAPI is the slice of the runtime client the reconciler needs.
type RuntimeAPI interface {
	List(ctx context.Context) ([]runtime.Summary, error)
	Inspect(ctx context.Context, internalName string) (runtime.Detail, error)
}

// PrefStore reads the persisted keep-awake flags.
type PrefStore interface {
	KeepAwake(internalName string) (value, ok bool)
}

// Service reconciles runtime state into managed instances.
type Service struct {
	rt         RuntimeAPI
	prefs      PrefStore
	prefix     string
	mountPoint string
}

// NewService returns a reconciler over the given runtime client and
// preference store.
func NewService(rt RuntimeAPI, prefs PrefStore, prefix, mountPoint string) *Service {
	return &Service{rt: rt, prefs: prefs, prefix: prefix, mountPoint: mountPoint}
}

// List returns all managed instances, sorted by public name.
//
// A failed bulk list is fatal; there is nothing to reconcile. A failed
// per-instance inspect degrades that instance to bulk-list data only; it is
// never dropped.
func (s *Service) List(ctx context.Context) ([]Instance, error) {
	summaries, err := s.rt.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Instance
	for _, sum := range summaries {
		if !s.isManaged(sum) {
			continue
		}
		out = append(out, s.reconcileOne(ctx, sum))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PublicName < out[j].PublicName
	})
	return out, nil
}

// Get returns one managed instance by public name. A miss is a not-found
// error listing the known names so the operator can self-correct.
func (s *Service) Get(ctx context.Context, publicName string) (Instance, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Instance{}, err
	}
	names := make([]string, 0, len(list))
	for _, inst := range list {
		if inst.PublicName == publicName {
			return inst, nil
		}
		names = append(names, inst.PublicName)
	}
	e := apperr.New(apperr.NotFound, "no managed instance named %q", publicName)
	if len(names) > 0 {
		e = e.WithDetail("known instances:\n  " + strings.Join(names, "\n  "))
	} else {
		e = e.WithHint("no managed instances exist yet; create one with `boxctl create`")
	}
	return Instance{}, e
}

// isManaged filters the bulk listing: prefix match on the internal name OR
// the managed marker label. The prefix match covers instances predating
// label support.
func (s *Service) isManaged(sum runtime.Summary) bool {
	if sum.InternalName == "" {
		return false
	}
	if len(sum.InternalName) > len(s.prefix) && sum.InternalName[:len(s.prefix)] == s.prefix {
		return true
	}
	return sum.Labels[LabelManaged] != ""
}

// reconcileOne merges one bulk-list entry with its inspect detail. Inspect
// fields win for ip/ram/mount/timestamps; the bulk entry fills gaps when
// inspect partially fails.
func (s *Service) reconcileOne(ctx context.Context, sum runtime.Summary) Instance {
	inst := Instance{
		InternalName: sum.InternalName,
		Status:       NormalizeStatus(sum.Status),
		IP:           sum.IP,
		RAMGB:        gbFromBytes(sum.MemoryBytes),
	}
	labels := sum.Labels

	detail, err := s.rt.Inspect(ctx, sum.InternalName)
	if err == nil {
		if detail.Status != "" {
			inst.Status = NormalizeStatus(detail.Status)
		}
		if len(detail.Labels) > 0 {
			labels = detail.Labels
		}
		if detail.IP != "" {
			inst.IP = detail.IP
		}
		if detail.MemoryBytes > 0 {
			inst.RAMGB = gbFromBytes(detail.MemoryBytes)
		}
		inst.MountPath = s.mountSource(detail.Mounts)
		inst.CreatedAt = detail.CreatedAt
		inst.StartedAt = detail.StartedAt
	}

	inst.PublicName = PublicNameOf(s.prefix, sum.InternalName, labels)
	inst.KeepAwake = s.keepAwake(sum.InternalName, labels)
	return inst
}

// keepAwake resolves the flag: preference store, else label, else true.
// The preference store is authoritative over any label-derived default.
func (s *Service) keepAwake(internalName string, labels map[string]string) bool {
	if v, ok := s.prefs.KeepAwake(internalName); ok {
		return v
	}
	if raw, ok := labels[LabelKeepAwake]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return true
}

// mountSource reports the host path of the first descriptor whose target is
// the well-known mount point.
func (s *Service) mountSource(mounts []runtime.Mount) string {
	for _, m := range mounts {
		if m.Target == s.mountPoint {
			return m.Source
		}
	}
	return ""
}

func gbFromBytes(b int64) int {
	if b <= 0 {
		return 0
	}
	const gib = int64(1) << 30
	return int((b + gib/2) / gib)
}
