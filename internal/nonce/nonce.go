// Package nonce implements the per-message nonce layer of the secure
// context envelope.
//
// Nonces are fixed-width lowercase hex strings produced by a sequential
// counter. The verifier on the receiving side latches the first value it
// observes and from then on accepts only strict increments, which is
// what gives the envelope its replay protection.
package nonce

// Generator produces nonce values and exposes its counter state so a
// verifier can be seeded from an observed value.
type Generator interface {
	Name() string
	Length() int
	Generate() string
	Get() string
	SetState(state uint64)
	Clone() Generator
}

// Verifier checks nonce values against the expected sequence. Verify
// advances the expected state on success; Advance skips a value for
// traffic the verifier did not see.
type Verifier interface {
	Name() string
	Verify(nonce string) bool
	Advance()
	Clone() Verifier
}
