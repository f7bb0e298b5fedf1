package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "luco-sms-platform/pkg/errors"
	"luco-sms-platform/pkg/logger"
)

// IdentityClient talks to the external identity provider that owns signup,
// login and email verification. This service never stores credentials; it only
// exchanges a session token for a verified identity.
type IdentityClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// Identity is the provider's view of a verified session.
type Identity struct {
	ExternalUserID string `json:"user_id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	EmailVerified  bool   `json:"email_verified"`
}

func NewIdentityClient(baseURL, token string) *IdentityClient {
	return &IdentityClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifySession exchanges a session token for the caller's identity. Any
// provider rejection (expired, unknown, unverified email) comes back as
// Unauthorized.
func (c *IdentityClient) VerifySession(sessionToken string) (*Identity, error) {
	url := fmt.Sprintf("%s/auth/verify", c.BaseURL)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	if c.Token != "" {
		req.Header.Set("X-Service-Token", c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		logger.Logger.Warn("Identity verification rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, apperrors.Unauthorized
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, err
	}
	if !identity.EmailVerified {
		return nil, apperrors.Unauthorized
	}
	return &identity, nil
}
