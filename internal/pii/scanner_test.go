package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyon/ai-gateway/models"
)

func TestScanner_AggregatesAcrossMessages(t *testing.T) {
	scanner := NewScanner(NewDetector(), 0)

	result := scanner.Scan([]models.Message{
		{Role: "system", Content: "you are a helpful assistant"},
		{Role: "user", Content: "my email is a@b.com"},
		{Role: "user", Content: "and my card is 4111-1111-1111-1111"},
	})

	require.True(t, result.HasPII())
	require.Len(t, result.Messages, 2)

	assert.Equal(t, 1, result.Messages[0].Index)
	assert.Equal(t, "user", result.Messages[0].Role)
	assert.Equal(t, 2, result.Messages[1].Index)

	assert.Equal(t, SeverityCritical, result.HighestSeverity)
	assert.False(t, result.Truncated)
}

func TestScanner_TypesSortedAndDistinct(t *testing.T) {
	scanner := NewScanner(NewDetector(), 0)

	result := scanner.Scan([]models.Message{
		{Role: "user", Content: "phone 555-123-4567 and mail a@b.com"},
		{Role: "user", Content: "backup mail c@d.com"},
	})

	assert.Equal(t, []Type{TypeEmail, TypePhone}, result.Types())
}

func TestScanner_FindingsOfTypes(t *testing.T) {
	scanner := NewScanner(NewDetector(), 0)

	result := scanner.Scan([]models.Message{
		{Role: "user", Content: "mail a@b.com ip 192.168.1.1"},
	})

	emails := result.FindingsOfTypes([]Type{TypeEmail})
	require.Len(t, emails, 1)
	assert.Equal(t, TypeEmail, emails[0].Type)

	assert.Nil(t, result.FindingsOfTypes(nil))
}

func TestScanner_CleanConversation(t *testing.T) {
	scanner := NewScanner(NewDetector(), 0)

	result := scanner.Scan([]models.Message{
		{Role: "user", Content: "summarize this meeting"},
	})

	assert.False(t, result.HasPII())
	assert.Empty(t, result.Types())
	assert.Zero(t, result.TotalFindings)
}

func TestScanner_TruncatesAtCharBudget(t *testing.T) {
	// Budget covers exactly the first message; the second is never scanned.
	scanner := NewScanner(NewDetector(), 5)

	result := scanner.Scan([]models.Message{
		{Role: "user", Content: "hello"},
		{Role: "user", Content: "and mail a@b.com"},
	})

	assert.True(t, result.Truncated)
	assert.False(t, result.HasPII())
}

func TestScanner_TruncatedPrefixStillScanned(t *testing.T) {
	// The budget cuts inside the first message but past the finding.
	scanner := NewScanner(NewDetector(), 7)

	result := scanner.Scan([]models.Message{
		{Role: "user", Content: "a@b.com plus lots of trailing text"},
	})

	assert.True(t, result.Truncated)
	require.True(t, result.HasPII())
	assert.Equal(t, []Type{TypeEmail}, result.Types())
}

func TestScanner_NilResultAccessors(t *testing.T) {
	var result *ScanResult
	assert.False(t, result.HasPII())
	assert.Nil(t, result.Types())
	assert.False(t, result.CriticalFound())
	assert.Nil(t, result.FindingsOfTypes([]Type{TypeEmail}))
}
