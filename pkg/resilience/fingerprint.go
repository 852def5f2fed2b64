package resilience

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint derives a deterministic identity for a logical request from
// its endpoint path and JSON payload. Semantically identical payloads hash
// the same regardless of key order, and the path prefix keeps fingerprints
// from colliding across endpoints.
func Fingerprint(path string, payload []byte) string {
	h := sha256.New()
	h.Write(canonicalPayload(payload))
	return fmt.Sprintf("%s#%s", path, hex.EncodeToString(h.Sum(nil)))
}

// canonicalPayload re-serializes JSON with object keys sorted. Non-JSON
// payloads are hashed as-is.
func canonicalPayload(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return payload
	}
	out, err := canonicalize(v)
	if err != nil {
		return payload
	}
	return out
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []byte("{")
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, keyBytes...)
			out = append(out, ':')
			valBytes, err := canonicalize(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, valBytes...)
		}
		return append(out, '}'), nil

	case []any:
		out := []byte("[")
		for i, item := range val {
			if i > 0 {
				out = append(out, ',')
			}
			itemBytes, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, itemBytes...)
		}
		return append(out, ']'), nil

	default:
		return json.Marshal(v)
	}
}
