package sms

import (
	"context"
	"errors"
	"sync"
)

type MockCall struct {
	Message    string
	Recipients []string
	SenderID   string
}

// MockClient is a configurable in-memory Client for tests and local runs.
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	// FailNext makes the next Send return an error, then resets.
	FailNext bool
	// FailAlways makes every Send return an error.
	FailAlways bool
	// FailRecipients marks specific recipients as failed in otherwise
	// successful responses.
	FailRecipients map[string]bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls:          make([]MockCall, 0),
		FailRecipients: make(map[string]bool),
	}
}

func (m *MockClient) Send(ctx context.Context, message string, recipients []string, senderID string) ([]RecipientStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{
		Message:    message,
		Recipients: append([]string(nil), recipients...),
		SenderID:   senderID,
	})

	if m.FailAlways {
		return nil, errors.New("mock sms gateway failure")
	}
	if m.FailNext {
		m.FailNext = false
		return nil, errors.New("mock sms gateway failure")
	}

	statuses := make([]RecipientStatus, 0, len(recipients))
	for _, r := range recipients {
		status := "Success"
		if m.FailRecipients[r] {
			status = "Failed"
		}
		statuses = append(statuses, RecipientStatus{
			Recipient: r,
			Status:    status,
			MessageID: "mock-" + r,
			Cost:      "KES 0.8000",
		})
	}
	return statuses, nil
}

// CallCount returns how many sends have been made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
