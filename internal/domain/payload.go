package domain

import "strings"

// Kind tells how a broadcast payload is delivered.
type Kind string

const (
	KindText Kind = "text"
	KindCopy Kind = "copy"
)

// MessageRef points at an existing message to be copied.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Payload is either free text or a reference to a message to replicate.
type Payload struct {
	Kind Kind
	Text string
	Ref  MessageRef
}

// NewPayload resolves the broadcast payload. A replied-to message wins over
// any trailing text; otherwise args are re-joined with single spaces.
func NewPayload(replyTo *MessageRef, args string) (Payload, error) {
	if replyTo != nil {
		return Payload{Kind: KindCopy, Ref: *replyTo}, nil
	}
	text := strings.Join(strings.Fields(args), " ")
	if text == "" {
		return Payload{}, ErrUsage
	}
	return Payload{Kind: KindText, Text: text}, nil
}

// Result is the tally of one broadcast run.
type Result struct {
	RunID     string
	Kind      Kind
	Attempted int
	Succeeded int
	Failed    int
}
