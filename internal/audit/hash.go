package audit

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/complyon/ai-gateway/models"
)

// maxHashBytes caps how much prompt text is hashed. Hashing only the first
// MiB bounds CPU and memory on pathological requests while keeping the hash
// stable for any realistic prompt.
const maxHashBytes = 1 << 20

// HashPrompt computes the one-way identity of a conversation: the
// hex-encoded SHA-256 of the concatenated "role:content" pairs. Callers must
// hash the original messages before any masking so the hash is identical
// across allow, mask and block outcomes.
func HashPrompt(messages []models.Message) string {
	h := sha256.New()
	remaining := maxHashBytes
	for _, m := range messages {
		if remaining <= 0 {
			break
		}
		remaining = writeCapped(h, m.Role, remaining)
		remaining = writeCapped(h, ":", remaining)
		remaining = writeCapped(h, m.Content, remaining)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeCapped(h interface{ Write([]byte) (int, error) }, s string, remaining int) int {
	if remaining <= 0 {
		return 0
	}
	if len(s) > remaining {
		s = s[:remaining]
	}
	_, _ = h.Write([]byte(s))
	return remaining - len(s)
}
