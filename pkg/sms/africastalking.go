package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AfricasTalkingClient sends messages through the Africa's Talking bulk
// messaging REST API (application/x-www-form-urlencoded in, JSON out).
type AfricasTalkingClient struct {
	Username   string
	APIKey     string
	SenderID   string // default sender ID, used when the caller passes none
	BaseURL    string
	HTTPClient *http.Client
}

func NewAfricasTalkingClient(username, apiKey, senderID, baseURL string) (*AfricasTalkingClient, error) {
	if username == "" {
		return nil, fmt.Errorf("africastalking: username is required (AT_LIVE_USERNAME)")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("africastalking: API key is required (AT_LIVE_API_KEY)")
	}

	return &AfricasTalkingClient{
		Username: username,
		APIKey:   apiKey,
		SenderID: senderID,
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
			Cost       string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (c *AfricasTalkingClient) Send(ctx context.Context, message string, recipients []string, senderID string) ([]RecipientStatus, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("africastalking: no recipients")
	}

	from := senderID
	if from == "" {
		from = c.SenderID
	}

	form := url.Values{}
	form.Set("username", c.Username)
	form.Set("to", strings.Join(recipients, ","))
	form.Set("message", message)
	if from != "" {
		form.Set("from", from)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("africastalking: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("africastalking: request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("africastalking: gateway returned %d: %s", resp.StatusCode, string(body))
	}

	var out atResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("africastalking: decode response: %w", err)
	}

	if len(out.SMSMessageData.Recipients) == 0 {
		return nil, fmt.Errorf("africastalking: empty recipient data: %s", out.SMSMessageData.Message)
	}

	statuses := make([]RecipientStatus, 0, len(out.SMSMessageData.Recipients))
	for _, r := range out.SMSMessageData.Recipients {
		statuses = append(statuses, RecipientStatus{
			Recipient: r.Number,
			Status:    r.Status,
			MessageID: r.MessageID,
			Cost:      r.Cost,
		})
	}
	return statuses, nil
}
