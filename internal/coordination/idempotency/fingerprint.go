package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint computes a stable SHA-256 hash of the request payload. JSON
// payloads are canonicalized first (decoded and re-encoded compactly with
// sorted object keys) so semantically identical bodies that differ only in
// whitespace or key order produce the same fingerprint. Non-JSON payloads
// are hashed as-is.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(normalize(payload))
	return hex.EncodeToString(sum[:])
}

func normalize(payload []byte) []byte {
	if len(payload) == 0 {
		return []byte{}
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return payload
	}

	// encoding/json sorts map keys and strips insignificant whitespace.
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return payload
	}
	return canonical
}
