package sms

import "context"

// RecipientStatus is the gateway's per-recipient outcome for one send call.
type RecipientStatus struct {
	Recipient string
	Status    string // "Success" or a gateway failure word
	MessageID string
	Cost      string
}

// Success reports whether the gateway accepted the message for this recipient.
func (r RecipientStatus) Success() bool {
	return r.Status == "Success"
}

// Client is the outbound SMS carrier boundary. Implementations make exactly
// one attempt; retries are the caller's concern.
type Client interface {
	// Send delivers one message body to the given recipients, optionally with
	// a sender ID, and returns the per-recipient outcome. A transport or
	// credential error is returned as a single error with no partial results.
	Send(ctx context.Context, message string, recipients []string, senderID string) ([]RecipientStatus, error)
}
