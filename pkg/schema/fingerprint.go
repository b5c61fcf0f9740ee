package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns a stable identifier for the schema contents: the hex
// encoded SHA-256 of its canonical JSON encoding. Two schemas with the same
// fingerprint compile to equivalent validators.
func (s FormSchema) Fingerprint() string {
	payload, err := json.Marshal(s)
	if err != nil {
		// FormSchema only holds JSON-safe values.
		panic("schema: fingerprint: " + err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
