package runtime

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The external runtime's structured output has drifted across versions:
// fields move, rename, and nest. Every field here is optional, several
// candidate key spellings are probed per field, and an unexpected shape
// degrades to a coarser view instead of failing.

// Summary is one bulk-list entry. Structured listings may carry address and
// memory data; the tabular fallback fills only the name and a coarse status.
type Summary struct {
	InternalName string
	Status       string
	Labels       map[string]string
	IP           string
	MemoryBytes  int64
}

// Mount is one bind-mount descriptor from inspect output.
type Mount struct {
	Source string
	Target string
}

// Detail is the per-instance inspect result.
type Detail struct {
	InternalName string
	Status       string
	Labels       map[string]string
	IP           string
	MemoryBytes  int64
	Mounts       []Mount
	CreatedAt    time.Time
	StartedAt    time.Time
}

// decodeObjects accepts a JSON array of objects or a single object and
// returns the objects. Anything else returns nil.
func decodeObjects(data []byte) []map[string]any {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var arr []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
			return nil
		}
		return arr
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil
	}
	return []map[string]any{obj}
}

// dig returns the nested object at key, if present.
func dig(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

// firstString probes m (and its "configuration" sub-object) for the first
// non-empty string under any of the candidate keys.
func firstString(m map[string]any, keys ...string) string {
	for _, scope := range []map[string]any{m, dig(m, "configuration"), dig(m, "config")} {
		if scope == nil {
			continue
		}
		for _, k := range keys {
			if v, ok := scope[k].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// labelsOf collects string-valued entries from the first label map found.
func labelsOf(m map[string]any) map[string]string {
	for _, scope := range []map[string]any{m, dig(m, "configuration"), dig(m, "config")} {
		if scope == nil {
			continue
		}
		for _, k := range []string{"labels", "annotations", "metadata"} {
			raw, ok := scope[k].(map[string]any)
			if !ok {
				continue
			}
			labels := make(map[string]string, len(raw))
			for lk, lv := range raw {
				if s, ok := lv.(string); ok {
					labels[lk] = s
				}
			}
			return labels
		}
	}
	return nil
}

// memoryBytesOf extracts the configured memory. Numbers are taken as bytes;
// strings may carry a unit suffix ("4g", "4096MB", "4294967296").
func memoryBytesOf(m map[string]any) int64 {
	for _, scope := range []map[string]any{m, dig(m, "configuration"), dig(m, "config"), dig(m, "resources")} {
		if scope == nil {
			continue
		}
		for _, k := range []string{"memoryInBytes", "memory_bytes", "memoryBytes", "memory"} {
			switch v := scope[k].(type) {
			case float64:
				return int64(v)
			case string:
				if n := parseMemoryString(v); n > 0 {
					return n
				}
			}
		}
	}
	return 0
}

func parseMemoryString(s string) int64 {
	s = strings.TrimSpace(strings.ToLower(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "gb"):
		mult, s = 1<<30, strings.TrimSuffix(s, "gb")
	case strings.HasSuffix(s, "g"):
		mult, s = 1<<30, strings.TrimSuffix(s, "g")
	case strings.HasSuffix(s, "mb"):
		mult, s = 1<<20, strings.TrimSuffix(s, "mb")
	case strings.HasSuffix(s, "m"):
		mult, s = 1<<20, strings.TrimSuffix(s, "m")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int64(n * float64(mult))
}

// ipOf probes the top-level address fields, then any networks array.
func ipOf(m map[string]any) string {
	if ip := firstString(m, "ip", "ipAddress", "address"); ip != "" {
		return stripCIDR(ip)
	}
	for _, k := range []string{"networks", "network", "interfaces"} {
		arr, ok := m[k].([]any)
		if !ok {
			continue
		}
		for _, entry := range arr {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if ip := firstString(obj, "address", "ipv4", "ip", "cidr"); ip != "" {
				return stripCIDR(ip)
			}
		}
	}
	return ""
}

func stripCIDR(ip string) string {
	if i := strings.IndexByte(ip, '/'); i >= 0 {
		return ip[:i]
	}
	return ip
}

// mountsOf collects bind-mount descriptors, probing alternate key spellings
// per field.
func mountsOf(m map[string]any) []Mount {
	var out []Mount
	for _, k := range []string{"mounts", "volumes", "filesystems"} {
		arr, ok := m[k].([]any)
		if !ok {
			arr2, ok2 := dig(m, "configuration")[k].([]any)
			if !ok2 {
				continue
			}
			arr = arr2
		}
		for _, entry := range arr {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			mt := Mount{
				Source: firstString(obj, "source", "src", "hostPath", "host_path"),
				Target: firstString(obj, "target", "destination", "dst", "mountPoint", "mount_point"),
			}
			if mt.Target != "" {
				out = append(out, mt)
			}
		}
		if out != nil {
			return out
		}
	}
	return out
}

func timeOf(m map[string]any, keys ...string) time.Time {
	s := firstString(m, keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseSummary(m map[string]any) Summary {
	return Summary{
		InternalName: firstString(m, "name", "id", "containerName", "hostname"),
		Status:       firstString(m, "status", "state"),
		Labels:       labelsOf(m),
		IP:           ipOf(m),
		MemoryBytes:  memoryBytesOf(m),
	}
}

func parseDetail(m map[string]any) Detail {
	return Detail{
		InternalName: firstString(m, "name", "id", "containerName", "hostname"),
		Status:       firstString(m, "status", "state"),
		Labels:       labelsOf(m),
		IP:           ipOf(m),
		MemoryBytes:  memoryBytesOf(m),
		Mounts:       mountsOf(m),
		CreatedAt:    timeOf(m, "createdAt", "created", "creationTime"),
		StartedAt:    timeOf(m, "startedAt", "started", "startTime"),
	}
}

// parseTable parses the runtime's tabular listing into minimal summaries:
// identity plus coarse status only. The first header field must be a name
// column; the status column is located by header text.
func parseTable(text string) []Summary {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil
	}

	header := strings.Fields(strings.ToUpper(lines[0]))
	statusCol := -1
	for i, h := range header {
		if h == "STATE" || h == "STATUS" {
			statusCol = i
			break
		}
	}

	var out []Summary
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		s := Summary{InternalName: fields[0]}
		if statusCol >= 0 && statusCol < len(fields) {
			s.Status = fields[statusCol]
		}
		out = append(out, s)
	}
	return out
}
