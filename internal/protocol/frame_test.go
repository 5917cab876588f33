package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	msg := NewMessage(map[string]any{
		"pkc":       []string{"RSA_SequentialNonce_HMAC"},
		"symmetric": []string{"RC4_SequentialNonce_HMAC"},
	})

	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	// The first six bytes are the zero-padded decimal body length.
	frame := buf.Bytes()
	if len(frame) < 6 {
		t.Fatalf("frame too short: %d bytes", len(frame))
	}
	for _, c := range frame[:6] {
		if c < '0' || c > '9' {
			t.Fatalf("length prefix %q not decimal", frame[:6])
		}
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	pkc, err := got.GetStringList("pkc")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkc) != 1 || pkc[0] != "RSA_SequentialNonce_HMAC" {
		t.Errorf("pkc = %v", pkc)
	}
}

func TestFrameCarriesHighBytes(t *testing.T) {
	// Ciphertext bytes above 0x7F must survive the JSON transport.
	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}

	msg := NewMessage(map[string]any{"contents": Latin1Encode(raw)})

	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg); err != nil {
		t.Fatal(err)
	}

	// The body must be pure ASCII so byte counts match character
	// counts on peers that decode incrementally.
	for _, b := range buf.Bytes() {
		if b >= 0x80 {
			t.Fatalf("frame contains non-ASCII byte 0x%02x", b)
		}
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	out, err := got.GetBytes("contents")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("high bytes did not round trip")
	}
}

func TestFrameDeclaredLengthMatchesBody(t *testing.T) {
	msg := NewMessage(map[string]any{"contents": Latin1Encode([]byte{0xFF, 0x00, 0x41})})

	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg); err != nil {
		t.Fatal(err)
	}

	frame := buf.String()
	declared := 0
	for _, c := range frame[:6] {
		declared = declared*10 + int(c-'0')
	}
	if declared != len(frame)-6 {
		t.Errorf("declared length %d, body length %d", declared, len(frame)-6)
	}
}

func TestReadMessageErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty stream", "", io.EOF},
		{"partial length", "0000", ErrFrameTooShort},
		{"non-digit length", "00a012{}", ErrFrameMalformed},
		{"truncated body", "000010{}", ErrFrameTooShort},
		{"invalid json", "000003{,}", ErrFrameMalformed},
		{"non-object body", `000004"ab"`, ErrFrameMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMessage(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadMessage(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestReadMessageBackToBack(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		if err := WriteMessage(&buf, NewMessage(map[string]any{"contents": "x"})); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 3; i++ {
		if _, err := ReadMessage(&buf); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	if _, err := ReadMessage(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame error = %v, want io.EOF", err)
	}
}

func TestWriteMessageTooLarge(t *testing.T) {
	msg := NewMessage(map[string]any{"contents": strings.Repeat("a", MaxBodySize+1)})

	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteMessage error = %v, want ErrFrameTooLarge", err)
	}
}

func TestLatin1RoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x01, 0x7F, 0x80, 0xFE, 0xFF}
	s := Latin1Encode(raw)
	out, err := Latin1Decode(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("round trip = %x, want %x", out, raw)
	}

	if _, err := Latin1Decode("snowman ☃"); !errors.Is(err, ErrFrameMalformed) {
		t.Errorf("Latin1Decode(non-latin1) error = %v, want ErrFrameMalformed", err)
	}
}
