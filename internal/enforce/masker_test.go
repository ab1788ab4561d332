package enforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyon/ai-gateway/internal/pii"
	"github.com/complyon/ai-gateway/models"
)

func TestMaskPlaceholder(t *testing.T) {
	assert.Equal(t, "[EMAIL_REDACTED]", MaskPlaceholder(pii.TypeEmail))
	assert.Equal(t, "[CREDIT_CARD_REDACTED]", MaskPlaceholder(pii.TypeCreditCard))
}

func TestMaskMessages_SingleFinding(t *testing.T) {
	messages := []models.Message{
		{Role: "user", Content: "contact a@b.com now"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)

	masked := MaskMessages(messages, scan, []pii.Type{pii.TypeEmail})

	require.Len(t, masked, 1)
	assert.Equal(t, "contact [EMAIL_REDACTED] now", masked[0].Content)
	// The caller's messages stay untouched.
	assert.Equal(t, "contact a@b.com now", messages[0].Content)
}

func TestMaskMessages_MultipleSpansInOneMessage(t *testing.T) {
	messages := []models.Message{
		{Role: "user", Content: "a@b.com cc c@d.com"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)

	masked := MaskMessages(messages, scan, []pii.Type{pii.TypeEmail})
	assert.Equal(t, "[EMAIL_REDACTED] cc [EMAIL_REDACTED]", masked[0].Content)
}

func TestMaskMessages_NonTriggeringFindingsUntouched(t *testing.T) {
	messages := []models.Message{
		{Role: "user", Content: "mail a@b.com host 192.168.1.1"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)

	masked := MaskMessages(messages, scan, []pii.Type{pii.TypeEmail})
	assert.Equal(t, "mail [EMAIL_REDACTED] host 192.168.1.1", masked[0].Content)
}

func TestMaskMessages_OnlyAffectedMessagesChange(t *testing.T) {
	messages := []models.Message{
		{Role: "system", Content: "you are a helpful assistant"},
		{Role: "user", Content: "mail a@b.com"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)

	masked := MaskMessages(messages, scan, []pii.Type{pii.TypeEmail})
	assert.Equal(t, messages[0].Content, masked[0].Content)
	assert.Equal(t, "mail [EMAIL_REDACTED]", masked[1].Content)
}

func TestMaskMessages_OverlappingSpansGetOnePlaceholder(t *testing.T) {
	// "4111 1111 1111 1111" reads as a credit card and its first twelve
	// digits as an Aadhaar number; the overlapping region must collapse to
	// a single placeholder instead of corrupting the text.
	messages := []models.Message{
		{Role: "user", Content: "4111 1111 1111 1111"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)

	masked := MaskMessages(messages, scan, []pii.Type{pii.TypeAadhaar, pii.TypeCreditCard})
	assert.Equal(t, "[CREDIT_CARD_REDACTED]", masked[0].Content)
}

func TestMaskMessages_PartialOverlapMasksUnion(t *testing.T) {
	// The digit run inside the email's local part also reads as a phone
	// number, so the two triggering spans partially overlap. The whole union
	// must be replaced; no fragment of the wider email may leak through.
	messages := []models.Message{
		{Role: "user", Content: "contact a5551234567@x.com now"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)
	require.Contains(t, scan.Types(), pii.TypeEmail)
	require.Contains(t, scan.Types(), pii.TypePhone)

	masked := MaskMessages(messages, scan, []pii.Type{pii.TypeEmail, pii.TypePhone})
	assert.Equal(t, "contact [EMAIL_REDACTED] now", masked[0].Content)
	assert.NotContains(t, masked[0].Content, "@x.com")
	assert.NotContains(t, masked[0].Content, "555")
}

func TestMaskMessages_Idempotent(t *testing.T) {
	messages := []models.Message{
		{Role: "user", Content: "mail a@b.com"},
	}
	scanner := pii.NewScanner(pii.NewDetector(), 0)

	once := MaskMessages(messages, scanner.Scan(messages), []pii.Type{pii.TypeEmail})
	twice := MaskMessages(once, scanner.Scan(once), []pii.Type{pii.TypeEmail})
	assert.Equal(t, once, twice)
}

func TestMaskMessages_NoTriggeringTypes(t *testing.T) {
	messages := []models.Message{
		{Role: "user", Content: "mail a@b.com"},
	}
	scan := pii.NewScanner(pii.NewDetector(), 0).Scan(messages)

	assert.Equal(t, messages, MaskMessages(messages, scan, nil))
}
