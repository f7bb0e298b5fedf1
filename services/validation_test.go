package services

import (
	"strings"
	"testing"
	"time"
)

func TestValidateMessageBody(t *testing.T) {
	if _, err := validateMessageBody(""); err == nil {
		t.Error("empty body accepted")
	}
	if _, err := validateMessageBody("   "); err == nil {
		t.Error("whitespace body accepted")
	}
	if _, err := validateMessageBody(strings.Repeat("a", 161)); err == nil {
		t.Error("161-char body accepted")
	}

	body, err := validateMessageBody("  hello  ")
	if err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if body != "hello" {
		t.Errorf("body = %q, want trimmed %q", body, "hello")
	}
	if _, err := validateMessageBody(strings.Repeat("a", 160)); err != nil {
		t.Errorf("160-char body rejected: %v", err)
	}

	// Length counts characters, not bytes.
	if _, err := validateMessageBody(strings.Repeat("é", 160)); err != nil {
		t.Errorf("160-char multibyte body rejected: %v", err)
	}
	if _, err := validateMessageBody(strings.Repeat("é", 161)); err == nil {
		t.Error("161-char multibyte body accepted")
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{"+254700000001", "+120255501"}
	for _, phone := range valid {
		if err := validatePhoneNumber(phone); err != nil {
			t.Errorf("%s rejected: %v", phone, err)
		}
	}

	invalid := []string{
		"0712345678",       // no plus
		"+2547a0000001",    // letter
		"+25470",           // too short
		"+2547000000011234", // too long
		"",
	}
	for _, phone := range invalid {
		if err := validatePhoneNumber(phone); err == nil {
			t.Errorf("%s accepted", phone)
		}
	}
}

func TestParseScheduledTime(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	got, err := parseScheduledTime("2030-06-01T12:00:00+03:00", nairobi)
	if err != nil {
		t.Fatalf("RFC3339 rejected: %v", err)
	}
	if got.UTC().Hour() != 9 {
		t.Errorf("UTC hour = %d, want 9", got.UTC().Hour())
	}

	// Zone-less input reads in the reference timezone.
	naive, err := parseScheduledTime("2030-06-01T12:00:00", nairobi)
	if err != nil {
		t.Fatalf("naive timestamp rejected: %v", err)
	}
	if !naive.Equal(got) {
		t.Errorf("naive = %v, want same instant as %v", naive, got)
	}

	if _, err := parseScheduledTime("june 1st", nairobi); err == nil {
		t.Error("garbage accepted")
	}
	if _, err := parseScheduledTime("", nairobi); err == nil {
		t.Error("empty accepted")
	}
}

func TestValidateFutureTime(t *testing.T) {
	if err := validateFutureTime(time.Now().Add(time.Hour), time.UTC); err != nil {
		t.Errorf("future rejected: %v", err)
	}
	if err := validateFutureTime(time.Now().Add(-time.Second), time.UTC); err == nil {
		t.Error("past accepted")
	}
}
