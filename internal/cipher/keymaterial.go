package cipher

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ParseBig converts a JSON-decoded value into a big integer. Accepted
// forms are json.Number (configs decoded with UseNumber), *big.Int
// (locally constructed key material), and decimal strings.
func ParseBig(v any) (*big.Int, error) {
	switch t := v.(type) {
	case *big.Int:
		return new(big.Int).Set(t), nil
	case json.Number:
		n, ok := new(big.Int).SetString(t.String(), 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadKey, t.String())
		}
		return n, nil
	case string:
		n, ok := new(big.Int).SetString(t, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadKey, t)
		}
		return n, nil
	case int:
		return big.NewInt(int64(t)), nil
	case int64:
		return big.NewInt(t), nil
	default:
		return nil, fmt.Errorf("%w: unsupported integer type %T", ErrBadKey, v)
	}
}

// ParseBigList converts a JSON-decoded value into a list of big
// integers of the expected length.
func ParseBigList(v any, want int) ([]*big.Int, error) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []*big.Int:
		items = make([]any, len(t))
		for i, n := range t {
			items[i] = n
		}
	default:
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrBadKey, v)
	}

	if len(items) != want {
		return nil, fmt.Errorf("%w: expected %d integers, got %d", ErrBadKey, want, len(items))
	}

	out := make([]*big.Int, len(items))
	for i, item := range items {
		n, err := ParseBig(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// bytesToInt interprets b as a little-endian unsigned integer.
func bytesToInt(b []byte) *big.Int {
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(reversed)
}

// intToBytes renders n as little-endian bytes with no trailing zero
// padding.
func intToBytes(n *big.Int) []byte {
	be := n.Bytes()
	le := make([]byte, len(be))
	for i, v := range be {
		le[len(be)-1-i] = v
	}
	return le
}
