package recorder

import (
	"errors"
	"testing"
)

func TestRecordRoundtrip(t *testing.T) {
	rec := encodeRecord([]byte(`{"kind":"k"}`), []byte("payload"))
	h, p, err := decodeRecord(rec)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(h) != `{"kind":"k"}` || string(p) != "payload" {
		t.Fatalf("header/payload mismatch: %q %q", h, p)
	}
}

func TestRecordCRCFail(t *testing.T) {
	rec := encodeRecord([]byte("x"), []byte("y"))
	rec[len(rec)-1] ^= 0xFF
	if _, _, err := decodeRecord(rec); !errors.Is(err, errChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
}

func TestRecordTruncated(t *testing.T) {
	rec := encodeRecord([]byte("header"), []byte("payload"))
	if _, _, err := decodeRecord(rec[:3]); err == nil {
		t.Fatal("expected error for truncated record")
	}
	if _, _, err := decodeRecord([]byte{0xff, 0xff, 0xff, 0xff, 0x0f, 0, 0, 0, 0}); !errors.Is(err, errBadHeader) {
		t.Fatalf("expected header error, got %v", err)
	}
}
