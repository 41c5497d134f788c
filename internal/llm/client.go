// Package llm provides the chat-completion client used for model-scored
// progress contributions.
package llm

import "context"

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface AI providers implement. Implementations must
// return the raw content of the first choice; callers parse it.
type Client interface {
	// ChatJSON sends the messages with JSON-object response formatting and
	// returns the raw response content.
	ChatJSON(ctx context.Context, messages []Message) (string, error)
}
