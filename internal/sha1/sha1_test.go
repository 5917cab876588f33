package sha1

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestSum(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq", "84983e441c3bd26ebaae4aa1f95129e5e54670f1"},
		{"The quick brown fox jumps over the lazy dog", "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12"},
		// One byte short of the padding boundary.
		{strings.Repeat("a", 55), "c1c8bbdc22796e28c0e15163d20899b65621d65a"},
		// Exactly one block of input.
		{strings.Repeat("a", 64), "0098ba824b5c16427bd7a1122a5a442a25ec644d"},
		// Spans multiple blocks.
		{strings.Repeat("a", 200), "e61cfffe0d9195a525fc6cf06ca2d77119c24a40"},
	}

	for _, tt := range tests {
		got := Sum([]byte(tt.in))
		if hex.EncodeToString(got[:]) != tt.want {
			t.Errorf("Sum(%q) = %x, want %s", tt.in, got, tt.want)
		}
	}
}

func TestHexString(t *testing.T) {
	got := HexString([]byte("abc"))
	want := "0xa9993e364706816aba3e25717850c26c9cd0d89d"
	if got != want {
		t.Errorf("HexString(abc) = %s, want %s", got, want)
	}
	if len(got) != 42 {
		t.Errorf("HexString length = %d, want 42", len(got))
	}
}
