// Package mac defines the message authentication layer used by the
// secure context envelope.
package mac

// Mac is the interface all MAC algorithms implement. Generate returns
// the tag in its wire representation; Length reports the exact number
// of bytes of that representation so the envelope can split it back off
// the tail of a decrypted payload.
type Mac interface {
	Name() string
	Length() int
	Generate(data []byte) []byte
	SetKey(key []byte)
	Clone() Mac
}
