package runtime

import (
	"testing"
	"time"
)

func TestDecodeObjectsShapes(t *testing.T) {
	if got := decodeObjects([]byte(`[{"name":"a"},{"name":"b"}]`)); len(got) != 2 {
		t.Errorf("array: len = %d, want 2", len(got))
	}
	if got := decodeObjects([]byte(`{"name":"solo"}`)); len(got) != 1 {
		t.Errorf("object: len = %d, want 1", len(got))
	}
	for _, bad := range []string{"", "not json", `"just a string"`, "[1,2,3]"} {
		if got := decodeObjects([]byte(bad)); got != nil {
			t.Errorf("decodeObjects(%q) = %v, want nil", bad, got)
		}
	}
}

func TestParseSummaryKeyDrift(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want Summary
	}{
		{
			"current keys",
			map[string]any{"name": "boxctl-a", "status": "running"},
			Summary{InternalName: "boxctl-a", Status: "running"},
		},
		{
			"older state key and nested id",
			map[string]any{"state": "stopped", "configuration": map[string]any{"id": "boxctl-b"}},
			Summary{InternalName: "boxctl-b", Status: "stopped"},
		},
		{
			"unknown shape degrades to empty",
			map[string]any{"surprise": true},
			Summary{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSummary(tt.in)
			if got.InternalName != tt.want.InternalName || got.Status != tt.want.Status {
				t.Errorf("parseSummary = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDetailNestedLabels(t *testing.T) {
	d := parseDetail(map[string]any{
		"name": "boxctl-a",
		"configuration": map[string]any{
			"labels": map[string]any{"sh.boxctl.name": "a", "ignored": 42},
		},
	})
	if d.Labels["sh.boxctl.name"] != "a" {
		t.Errorf("Labels = %v", d.Labels)
	}
	if _, ok := d.Labels["ignored"]; ok {
		t.Error("non-string label value should be skipped")
	}
}

func TestMemoryBytesOf(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want int64
	}{
		{"number is bytes", map[string]any{"memoryInBytes": float64(4 << 30)}, 4 << 30},
		{"gig suffix", map[string]any{"memory": "4g"}, 4 << 30},
		{"GB suffix", map[string]any{"memory": "2GB"}, 2 << 30},
		{"megabytes", map[string]any{"memory": "512mb"}, 512 << 20},
		{"nested resources", map[string]any{"resources": map[string]any{"memory": float64(1 << 30)}}, 1 << 30},
		{"absent", map[string]any{}, 0},
		{"garbage string", map[string]any{"memory": "lots"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := memoryBytesOf(tt.in); got != tt.want {
				t.Errorf("memoryBytesOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIPOf(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"top level", map[string]any{"ip": "192.168.64.3"}, "192.168.64.3"},
		{"cidr stripped", map[string]any{"ip": "192.168.64.3/24"}, "192.168.64.3"},
		{
			"networks array",
			map[string]any{"networks": []any{map[string]any{"address": "10.0.0.5/24"}}},
			"10.0.0.5",
		},
		{"absent", map[string]any{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ipOf(tt.in); got != tt.want {
				t.Errorf("ipOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMountsOfKeySpellings(t *testing.T) {
	in := map[string]any{
		"mounts": []any{
			map[string]any{"source": "/host/a", "target": "/workspace"},
			map[string]any{"src": "/host/b", "dst": "/data"},
			map[string]any{"hostPath": "/host/c", "destination": "/opt"},
			map[string]any{"noTarget": true},
		},
	}
	got := mountsOf(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []Mount{
		{Source: "/host/a", Target: "/workspace"},
		{Source: "/host/b", Target: "/data"},
		{Source: "/host/c", Target: "/opt"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mount[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTimeOf(t *testing.T) {
	d := parseDetail(map[string]any{"createdAt": "2026-08-01T09:30:00Z"})
	want := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	if !d.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, want)
	}
	if d2 := parseDetail(map[string]any{"createdAt": "yesterday"}); !d2.CreatedAt.IsZero() {
		t.Errorf("unparsable time should be zero, got %v", d2.CreatedAt)
	}
}

func TestParseTable(t *testing.T) {
	text := `NAME            STATE     IP
boxctl-dev      running   192.168.64.3
boxctl-build    stopped
legacy-vm       running   192.168.64.7
`
	got := parseTable(text)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].InternalName != "boxctl-dev" || got[0].Status != "running" {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].InternalName != "boxctl-build" || got[1].Status != "stopped" {
		t.Errorf("row 1 = %+v", got[1])
	}
}

func TestParseTableDegenerateInput(t *testing.T) {
	if got := parseTable(""); got != nil {
		t.Errorf("empty input = %v, want nil", got)
	}
	if got := parseTable("NAME STATE"); got != nil {
		t.Errorf("header only = %v, want nil", got)
	}
}
