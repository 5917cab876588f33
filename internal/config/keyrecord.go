package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// KeyRecord is the JSON key-material record consumed from disk:
//
//	{ "key_size": int }                                  (symmetric)
//	{ "key_size": int, "pub_key": ..., "priv_key": ... } (public-key)
//
// Key integers are decoded with json.Number so arbitrary-precision
// values round-trip, including records produced by other tooling.
type KeyRecord struct {
	KeySize int
	PubKey  any
	PrivKey any
}

// LoadKeyRecord reads a key record file.
func LoadKeyRecord(path string) (*KeyRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key record: %w", err)
	}
	return ParseKeyRecord(data)
}

// ParseKeyRecord decodes a key record from JSON bytes.
func ParseKeyRecord(data []byte) (*KeyRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing key record: %w", err)
	}

	record := &KeyRecord{}

	size, ok := raw["key_size"]
	if !ok {
		return nil, fmt.Errorf("key record missing key_size")
	}
	num, ok := size.(json.Number)
	if !ok {
		return nil, fmt.Errorf("key record key_size is %T, not a number", size)
	}
	keySize, err := num.Int64()
	if err != nil {
		return nil, fmt.Errorf("key record key_size: %w", err)
	}
	record.KeySize = int(keySize)

	record.PubKey = raw["pub_key"]
	record.PrivKey = raw["priv_key"]
	return record, nil
}
