package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/complyon/ai-gateway/models"
)

func TestHashPrompt_Deterministic(t *testing.T) {
	messages := []models.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}

	assert.Equal(t, HashPrompt(messages), HashPrompt(messages))
}

func TestHashPrompt_MatchesKnownDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("user:hello"))
	want := hex.EncodeToString(sum[:])

	got := HashPrompt([]models.Message{{Role: "user", Content: "hello"}})
	assert.Equal(t, want, got)
}

func TestHashPrompt_SensitiveToContentAndRole(t *testing.T) {
	base := []models.Message{{Role: "user", Content: "hello"}}

	differentContent := []models.Message{{Role: "user", Content: "hello!"}}
	differentRole := []models.Message{{Role: "system", Content: "hello"}}

	assert.NotEqual(t, HashPrompt(base), HashPrompt(differentContent))
	assert.NotEqual(t, HashPrompt(base), HashPrompt(differentRole))
}

func TestHashPrompt_DiffersFromMaskedConversation(t *testing.T) {
	original := []models.Message{{Role: "user", Content: "mail a@b.com"}}
	masked := []models.Message{{Role: "user", Content: "mail [EMAIL_REDACTED]"}}

	assert.NotEqual(t, HashPrompt(original), HashPrompt(masked))
}

func TestHashPrompt_CapBoundsInput(t *testing.T) {
	// Content differing only past the cap hashes identically, so
	// pathological prompts cost a bounded amount of CPU.
	prefix := strings.Repeat("a", maxHashBytes)

	one := []models.Message{{Role: "user", Content: prefix + "tail-one"}}
	two := []models.Message{{Role: "user", Content: prefix + "tail-two"}}

	assert.Equal(t, HashPrompt(one), HashPrompt(two))
}

func TestHashPrompt_EmptyConversation(t *testing.T) {
	sum := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), HashPrompt(nil))
}
