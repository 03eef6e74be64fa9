/**
 * @description
 * This package provides a client for the PayPal Payouts REST API. It handles
 * OAuth2 client-credentials authentication (with token caching), payout batch
 * submission, and classification of provider failures into error kinds the
 * rest of the service can act on.
 *
 * It also ships a Simulated dispatcher that always succeeds deterministically,
 * so the service can run without provider credentials.
 */
package paypalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Base URLs per provider mode.
const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// KindAuthentication: credential or configuration problem, not user-caused.
	KindAuthentication ErrorKind = "authentication"
	// KindInvalidReceiver: the provider rejected the recipient or amount.
	KindInvalidReceiver ErrorKind = "invalid_receiver"
	// KindTransient: timeouts, transport failures and provider 5xx responses.
	KindTransient ErrorKind = "transient"
)

// Error is a classified failure from the payout provider.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Name       string
	Message    string
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal api error (%s): %s - %s", e.Kind, e.Name, e.Message)
	}
	return fmt.Sprintf("paypal api error (%s): %s", e.Kind, e.Message)
}

// Client is a client for the PayPal Payouts API.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a PayPal client for the given mode ("live" selects the
// production API, anything else the sandbox).
func NewClient(mode, clientID, clientSecret string) *Client {
	baseURL := sandboxBaseURL
	if strings.EqualFold(mode, "live") {
		baseURL = liveBaseURL
	}
	return &Client{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// payoutRequest is the payload for a PayPal payout batch with a single item.
type payoutRequest struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject,omitempty"`
	} `json:"sender_batch_header"`
	Items []payoutItem `json:"items"`
}

type payoutItem struct {
	RecipientType string `json:"recipient_type"`
	Amount        struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Receiver     string `json:"receiver"`
	SenderItemID string `json:"sender_item_id"`
}

// payoutResponse is the expected response from the payouts endpoint.
type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

// apiError is the error body PayPal returns for rejected requests.
type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Field string `json:"field"`
		Issue string `json:"issue"`
	} `json:"details"`
}

func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := KindTransient
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindAuthentication
		}
		return "", &Error{Kind: kind, StatusCode: resp.StatusCode, Message: fmt.Sprintf("token request failed: %s", strings.TrimSpace(string(body)))}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &Error{Kind: KindTransient, Message: fmt.Sprintf("decoding token response: %v", err)}
	}
	if token.AccessToken == "" {
		return "", &Error{Kind: KindAuthentication, Message: "token response contained no access token"}
	}

	c.accessToken = token.AccessToken
	// Refresh a minute early so an in-flight payout never races expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

// SendPayout submits a single-item payout batch to the provider and returns
// the provider-assigned payout batch ID.
func (c *Client) SendPayout(ctx context.Context, recipient, amount, currency, senderBatchID string) (string, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return "", err
	}

	var payload payoutRequest
	payload.SenderBatchHeader.SenderBatchID = senderBatchID
	payload.SenderBatchHeader.EmailSubject = "You have a payout!"
	item := payoutItem{
		RecipientType: "EMAIL",
		Receiver:      recipient,
		SenderItemID:  senderBatchID + "-1",
	}
	item.Amount.Value = amount
	item.Amount.Currency = currency
	payload.Items = []payoutItem{item}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/payments/payouts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var result payoutResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return "", &Error{Kind: KindTransient, Message: fmt.Sprintf("decoding payout response: %v", err)}
		}
		if result.BatchHeader.PayoutBatchID == "" {
			return "", &Error{Kind: KindTransient, Message: "payout response contained no batch id"}
		}
		return result.BatchHeader.PayoutBatchID, nil
	}

	return "", classifyFailure(resp)
}

func classifyFailure(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	message := apiErr.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	kind := KindTransient
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = KindAuthentication
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		kind = KindInvalidReceiver
	}

	return &Error{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Name:       apiErr.Name,
		Message:    message,
	}
}

// KindOf returns the classified kind of a provider error, or "" when err is
// not a provider error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Simulated is a deterministic dispatcher that always succeeds without
// calling the provider. The batch ID is derived from the sender batch ID so
// repeated runs are reproducible.
type Simulated struct{}

// SendPayout returns a synthetic payout batch ID.
func (Simulated) SendPayout(_ context.Context, _, _, _, senderBatchID string) (string, error) {
	return "SIMULATED-" + strings.ToUpper(senderBatchID), nil
}
