package services

import (
	"strings"
	"testing"
	"unicode"
)

func TestGenerateAPIKeyShape(t *testing.T) {
	key, err := generateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(key, apiKeyPrefix) {
		t.Errorf("key %q missing %q prefix", key, apiKeyPrefix)
	}
	secret := strings.TrimPrefix(key, apiKeyPrefix)
	if len(secret) != apiKeySecretLen {
		t.Errorf("secret length = %d, want %d", len(secret), apiKeySecretLen)
	}
	for _, r := range secret {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			t.Errorf("secret contains non-alphanumeric %q", r)
		}
	}
}

func TestGenerateStoresActiveKey(t *testing.T) {
	db := newTestDB(t)
	svc := NewAPIKeyService(db)
	user := createTestUser(t, db, 0)

	apiKey, err := svc.Generate(user.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !apiKey.IsActive {
		t.Error("new key not active")
	}
	if apiKey.UserID != user.ID {
		t.Errorf("user_id = %q, want %q", apiKey.UserID, user.ID)
	}

	second, err := svc.Generate(user.ID)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.Key == apiKey.Key {
		t.Error("two generated keys are identical")
	}
}

func TestMaskKey(t *testing.T) {
	masked := maskKey("Luco_abcdefghijklmnopqrstuvwxyz123456")
	if masked != "...z123456" {
		t.Errorf("masked = %q, want %q", masked, "...z123456")
	}
	if got := maskKey("short"); got != "short" {
		t.Errorf("short key masked to %q", got)
	}
}
