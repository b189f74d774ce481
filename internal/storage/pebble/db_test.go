package pebblestore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type testMetrics struct {
	wrote int
	read  int
}

func (m *testMetrics) ObserveWrite(d time.Duration, bytes int) { m.wrote += bytes }
func (m *testMetrics) ObserveRead(d time.Duration, bytes int)  { m.read += bytes }

func newTestDB(t *testing.T, mode FsyncMode) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir:       t.TempDir(),
		Fsync:         mode,
		FsyncInterval: 2 * time.Millisecond,
		Metrics:       metrics,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestCRUD(t *testing.T) {
	db, metrics := newTestDB(t, FsyncModeInterval)

	if err := db.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("got %q want v1", got)
	}
	if metrics.wrote == 0 || metrics.read == 0 {
		t.Fatalf("expected metrics to record bytes, got %+v", metrics)
	}

	if err := db.Delete([]byte("k1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k1")); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScanAndLastKey(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeAlways)
	for i := 0; i < 5; i++ {
		if err := db.Set([]byte(fmt.Sprintf("a/%02d", i)), []byte{byte(i)}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := db.Set([]byte("b/00"), []byte("other")); err != nil {
		t.Fatalf("set: %v", err)
	}

	var keys []string
	err := db.Scan([]byte("a/"), []byte("a0"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return len(keys) < 3
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 3 || keys[0] != "a/00" || keys[2] != "a/02" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	last, err := db.LastKey([]byte("a/"), []byte("a0"))
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if string(last) != "a/04" {
		t.Fatalf("last = %q", last)
	}
	empty, err := db.LastKey([]byte("z/"), []byte("z0"))
	if err != nil || empty != nil {
		t.Fatalf("expected no key, got %q %v", empty, err)
	}
}

func TestParseFsyncMode(t *testing.T) {
	for in, want := range map[string]FsyncMode{"": FsyncModeInterval, "always": FsyncModeAlways, "never": FsyncModeNever} {
		got, err := ParseFsyncMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseFsyncMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFsyncMode("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatal("expected error for empty DataDir")
	}
}
