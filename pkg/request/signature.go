package request

import (
	"crypto/sha1"
	"encoding/hex"
)

// Sign computes the request signature expected by the backend.
func Sign(method, uri, secret string, body []byte) string {
	h := sha1.New()
	h.Write([]byte(method))
	h.Write([]byte(" "))
	h.Write([]byte(uri))
	h.Write([]byte("\n"))
	h.Write([]byte(secret))
	h.Write([]byte("\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
