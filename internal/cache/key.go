package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Key derives a deterministic fingerprint from the semantically relevant
// fields of an extraction request. Two requests that would produce the
// same completion must yield the same key, so only text, schema identity,
// model and temperature participate — never timestamps or other
// per-request ephemera.
func Key(text, schemaName, schemaVersion, model string, temperature float64) string {
	h := sha256.New()

	// Length-prefixed fields so no two field sequences can collide.
	writeField(h, strings.TrimSpace(text))
	writeField(h, schemaName)
	writeField(h, schemaVersion)
	writeField(h, model)
	writeField(h, fmt.Sprintf("%.4f", temperature))

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, s string) {
	fmt.Fprintf(w, "%d:", len(s))
	_, _ = io.WriteString(w, s)
}
