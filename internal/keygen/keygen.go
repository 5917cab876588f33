// Package keygen produces the JSON key-material records the config
// layer consumes. Generating large moduli offline keeps endpoint
// startup fast.
package keygen

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/postalsys/latchkey/internal/cipher"
)

// Record is the on-disk key record shape.
type Record struct {
	KeySize int `json:"key_size"`
	PubKey  any `json:"pub_key,omitempty"`
	PrivKey any `json:"priv_key,omitempty"`
}

// Generate builds a key record for the named algorithm. Supported
// names are the wire cipher names: RSA, SSRSA, GoldwasserMicali, RC4.
// BlumGoldwasser keys are generated at startup and have no record.
func Generate(algorithm string, keySize int) (*Record, error) {
	switch algorithm {
	case "RC4":
		return &Record{KeySize: keySize}, nil
	case "RSA":
		return pkcRecord(cipher.NewRSA(keySize), keySize)
	case "SSRSA":
		return pkcRecord(cipher.NewSSRSA(keySize), keySize)
	case "GoldwasserMicali":
		return pkcRecord(cipher.NewGoldwasserMicali(keySize), keySize)
	default:
		return nil, fmt.Errorf("no key record for algorithm %q", algorithm)
	}
}

func pkcRecord(pkc cipher.PublicKey, keySize int) (*Record, error) {
	if err := pkc.GenKeyPair(); err != nil {
		return nil, fmt.Errorf("generating %s key pair: %w", pkc.Name(), err)
	}
	return &Record{
		KeySize: keySize,
		PubKey:  pkc.PublicKeyMaterial(),
		PrivKey: pkc.PrivateKeyMaterial(),
	}, nil
}

// WriteFile writes the record as indented JSON, readable back by the
// config layer.
func (r *Record) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding key record: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing key record: %w", err)
	}
	return nil
}
