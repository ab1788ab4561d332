package models

// Message is a single role/content pair in a chat conversation. This is the
// unit the scanner inspects and the enforcer rewrites.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CloneMessages returns a shallow copy of the slice so enforcement can
// rewrite content without mutating the caller's request.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
