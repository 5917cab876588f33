package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// xorContext is a toy Encrypter/Decrypter for codec tests.
type xorContext struct {
	key byte
}

func (c *xorContext) Encrypt(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ c.key
	}
	return out, nil
}

func (c *xorContext) Decrypt(data []byte) ([]byte, error) {
	return c.Encrypt(data)
}

func TestMessageFieldAccess(t *testing.T) {
	m := NewMessage(map[string]any{
		"name":  "RC4",
		"names": []any{"a", "b"},
	})

	if got, err := m.GetString("name"); err != nil || got != "RC4" {
		t.Errorf("GetString = %q, %v", got, err)
	}
	if got, err := m.GetStringList("names"); err != nil || len(got) != 2 {
		t.Errorf("GetStringList = %v, %v", got, err)
	}

	if _, err := m.Get("absent"); !errors.Is(err, ErrFrameMalformed) {
		t.Errorf("missing field error = %v, want ErrFrameMalformed", err)
	}
	if _, err := m.GetString("names"); !errors.Is(err, ErrFrameMalformed) {
		t.Errorf("wrong type error = %v, want ErrFrameMalformed", err)
	}
	if _, err := m.GetStringList("name"); !errors.Is(err, ErrFrameMalformed) {
		t.Errorf("wrong type error = %v, want ErrFrameMalformed", err)
	}
}

func TestGetEncrypted(t *testing.T) {
	ctx := &xorContext{key: 0x5A}

	msg, err := NewSessionMessage(ctx, []byte("payload bytes"))
	if err != nil {
		t.Fatal(err)
	}

	out, err := msg.GetEncrypted("contents", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, []byte("payload bytes")) {
		t.Errorf("GetEncrypted = %q", out)
	}
}

func TestHandshakeMessageShapes(t *testing.T) {
	ctx := &xorContext{key: 0x11}

	hello := NewClientHello([]string{"RSA"}, []string{"RC4"})
	if _, err := hello.Get("pkc"); err != nil {
		t.Error("ClientHello missing pkc")
	}
	if _, err := hello.Get("symmetric"); err != nil {
		t.Error("ClientHello missing symmetric")
	}

	serverHello := NewServerHello("RSA", "RC4", []any{"e", "n"})
	for _, field := range []string{"pkc", "symmetric", "pub_key"} {
		if _, err := serverHello.Get(field); err != nil {
			t.Errorf("ServerHello missing %s", field)
		}
	}

	challenge, err := NewClientChallenge(ctx, []byte("c"), []byte("sk"), []byte("mk"), "pub")
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"challenge", "pub_key", "session_key", "mac_key"} {
		if _, err := challenge.Get(field); err != nil {
			t.Errorf("ClientChallenge missing %s", field)
		}
	}
	if got, _ := challenge.GetEncrypted("session_key", ctx); !bytes.Equal(got, []byte("sk")) {
		t.Errorf("session_key = %q", got)
	}

	serverChallenge, err := NewServerChallenge(ctx, ctx, []byte("ch"), []byte("resp"))
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"challenge", "response"} {
		if _, err := serverChallenge.Get(field); err != nil {
			t.Errorf("ServerChallenge missing %s", field)
		}
	}

	verify, err := NewClientSessionVerify(ctx, []byte("resp"))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := verify.GetEncrypted("response", ctx); !bytes.Equal(got, []byte("resp")) {
		t.Errorf("response = %q", got)
	}
}
