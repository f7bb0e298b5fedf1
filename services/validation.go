package services

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	apperrors "luco-sms-platform/pkg/errors"
)

const (
	maxMessageLength   = 160
	maxBulkRecipients  = 1000
	naiveTimestampForm = "2006-01-02T15:04:05"
)

// validateMessageBody trims and checks the 1..160 char rule shared by every
// send surface.
func validateMessageBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", apperrors.Validation("Message cannot be empty")
	}
	// Character count, not bytes: a 160-char body is valid in any script.
	if utf8.RuneCountInString(trimmed) > maxMessageLength {
		return "", apperrors.Validation("Message cannot exceed %d characters", maxMessageLength)
	}
	return trimmed, nil
}

// validatePhoneNumber enforces the E.164-like shape: leading +, digits only,
// 10-15 characters total.
func validatePhoneNumber(phone string) error {
	if !strings.HasPrefix(phone, "+") {
		return apperrors.Validation("Phone number %s must start with +", phone)
	}
	for _, r := range phone[1:] {
		if !unicode.IsDigit(r) {
			return apperrors.Validation("Phone number %s must contain only digits after +", phone)
		}
	}
	if len(phone) < 10 || len(phone) > 15 {
		return apperrors.Validation("Phone number %s must be between 10 and 15 characters", phone)
	}
	return nil
}

func validateRecipients(recipients []string) error {
	if len(recipients) == 0 {
		return apperrors.Validation("At least one recipient is required")
	}
	if len(recipients) > maxBulkRecipients {
		return apperrors.Validation("Cannot send to more than %d recipients at once", maxBulkRecipients)
	}
	for _, phone := range recipients {
		if err := validatePhoneNumber(phone); err != nil {
			return err
		}
	}
	return nil
}

// parseScheduledTime accepts RFC3339, or a zone-less timestamp interpreted in
// the reference timezone.
func parseScheduledTime(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperrors.Validation("scheduled_time is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveTimestampForm, raw, loc)
	if err != nil {
		return time.Time{}, apperrors.Validation("scheduled_time must be RFC3339 or %s", naiveTimestampForm)
	}
	return t, nil
}

// validateFutureTime requires a strictly future instant, evaluated in the
// reference timezone.
func validateFutureTime(t time.Time, loc *time.Location) error {
	if !t.After(time.Now().In(loc)) {
		return apperrors.Validation("Scheduled time must be in the future")
	}
	return nil
}
