package pagecache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/ctrlpanel/internal/protocol"
	"github.com/muurk/ctrlpanel/internal/remote"
)

const page0 = `{"size":[2,3],"widgets":[` +
	`{"type":"label", "text":"Page 0", "position":[0, 1]},` +
	`{"type":"button", "text":"next page"},` +
	`{"type":"button", "text":"Led 1"}]}`

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "saved_pages"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

var testAddr = remote.New(192, 168, 1, 10, 9874)

func TestLoadMissing(t *testing.T) {
	c := openTemp(t)
	raw, ok, err := c.Load(testAddr, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok || raw != nil {
		t.Errorf("Load on empty cache = %q,%v", raw, ok)
	}
}

func TestStoreLoadVerbatim(t *testing.T) {
	c := openTemp(t)

	if err := c.Store(testAddr, 0, []byte(page0)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	want := filepath.Join(c.Root(), "192_168_1_10_9874", "0.json")
	if c.Path(testAddr, 0) != want {
		t.Errorf("Path = %s, want %s", c.Path(testAddr, 0), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	raw, ok, err := c.Load(testAddr, 0)
	if err != nil || !ok {
		t.Fatalf("Load = %v,%v", ok, err)
	}
	if !bytes.Equal(raw, []byte(page0)) {
		t.Errorf("Load returned %q", raw)
	}

	if _, ok, _ := c.Load(testAddr, 1); ok {
		t.Error("page 1 should be absent")
	}
	other := remote.New(192, 168, 1, 11, 9874)
	if _, ok, _ := c.Load(other, 0); ok {
		t.Error("pages must be namespaced per address")
	}
}

func TestStoreRejectsNonDescriptors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"error record", `{"ERR":"Page out of range."}`},
		{"unknown widget", `{"widgets":[{"type":"slider"}]}`},
		{"bad size", `{"size":[2],"widgets":[]}`},
		{"value without type", `{"widgets":[{"type":"value","text":"x"}]}`},
		{"not json", `{"widgets":`},
	}

	c := openTemp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Store(testAddr, 5, []byte(tt.raw))
			if !protocol.IsValidationError(err) {
				t.Errorf("Store error = %v, want validation error", err)
			}
			if _, err := os.Stat(c.Path(testAddr, 5)); !os.IsNotExist(err) {
				t.Error("rejected descriptor was written")
			}
		})
	}
}

func TestLoadCorruptIsAbsent(t *testing.T) {
	c := openTemp(t)
	if err := os.MkdirAll(c.Dir(testAddr), 0755); err != nil {
		t.Fatal(err)
	}
	// simulate a crash mid-write
	if err := os.WriteFile(c.Path(testAddr, 2), []byte(page0[:20]), 0644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.Load(testAddr, 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("truncated file should be treated as absent")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := openTemp(t)
	for id := 0; id < 3; id++ {
		if err := c.Store(testAddr, id, []byte(page0)); err != nil {
			t.Fatalf("Store %d: %v", id, err)
		}
	}

	if err := c.Invalidate(testAddr, 1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := c.Load(testAddr, 1); ok {
		t.Error("page 1 still cached after Invalidate")
	}
	if err := c.Invalidate(testAddr, 1); err != nil {
		t.Errorf("second Invalidate: %v", err)
	}

	entries, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("List = %+v, want 2 entries", entries)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := c.Load(testAddr, 0); ok {
		t.Error("page 0 still cached after Clear")
	}
	entries, err = c.List()
	if err != nil || len(entries) != 0 {
		t.Errorf("List after Clear = %+v, %v", entries, err)
	}
}

func TestClearRemote(t *testing.T) {
	c := openTemp(t)
	other := remote.New(10, 0, 0, 1, 9874)
	_ = c.Store(testAddr, 0, []byte(page0))
	_ = c.Store(other, 0, []byte(page0))

	if err := c.ClearRemote(testAddr); err != nil {
		t.Fatalf("ClearRemote: %v", err)
	}
	if _, ok, _ := c.Load(testAddr, 0); ok {
		t.Error("cleared remote still has pages")
	}
	if _, ok, _ := c.Load(other, 0); !ok {
		t.Error("other remote lost its pages")
	}
}

func TestOpenEmptyRoot(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty root")
	}
}
