package models

import "testing"

func TestCompositeCursorRoundTrip(t *testing.T) {
	cursor := EncodeCompositeCursor("2026-08-01 10:30:00.000000", 42)
	createdAt, id := DecodeCompositeCursor(&cursor)
	if createdAt != "2026-08-01 10:30:00.000000" {
		t.Fatalf("unexpected created_at %q", createdAt)
	}
	if id != 42 {
		t.Fatalf("unexpected id %d", id)
	}
}

func TestDecodeCompositeCursorGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-base64!!", "aGVsbG8=", "MTIzfA=="} {
		cursor := raw
		createdAt, id := DecodeCompositeCursor(&cursor)
		if createdAt != "" || id != 0 {
			t.Fatalf("expected empty decode for %q, got (%q, %d)", raw, createdAt, id)
		}
	}
	if createdAt, id := DecodeCompositeCursor(nil); createdAt != "" || id != 0 {
		t.Fatalf("expected empty decode for nil cursor, got (%q, %d)", createdAt, id)
	}
}
