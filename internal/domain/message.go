package domain

// Role labels a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of prior conversation supplied with a query.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
