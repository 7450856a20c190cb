package metrics

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blob"), make([]byte, 2048), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	h := GetSysHealth(dir)
	if h.Goroutines < 1 {
		t.Error("expected at least one goroutine")
	}
	if h.CacheSize != "2.0 KB" {
		t.Errorf("cache size = %q, want %q", h.CacheSize, "2.0 KB")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
