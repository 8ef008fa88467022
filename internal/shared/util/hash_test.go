package util

import "testing"

func TestHashKey(t *testing.T) {
	phone := "0912345678"
	got := HashKey(phone)
	if got != HashKey(phone) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashKey("0912345679") {
		t.Fatalf("expected distinct hashes for distinct keys")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}
