// Package payments holds the reimbursement rails: a PayPal payouts
// client and Venmo charge-link construction. Both take the amount the
// verification pipeline computed; neither decides amounts itself.
package payments

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
	"time"

	"github.com/google/uuid"
)

const (
	paypalSandboxURL = "https://api.sandbox.paypal.com"
	requestTimeout   = 15 * time.Second
)

var ErrPaymentRailUnavailable = errors.New("payment rail unavailable")

// PayPalClient sends payout requests through the PayPal Payouts API.
type PayPalClient struct {
	clientID string
	secret   string
	baseURL  string
	client   *http.Client
}

func NewPayPalClient(clientID, secret string) *PayPalClient {
	return &PayPalClient{
		clientID: clientID,
		secret:   secret,
		baseURL:  paypalSandboxURL,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether PayPal credentials were provided. An
// unconfigured client refuses to send rather than failing mid-call.
func (c *PayPalClient) Configured() bool {
	return c.clientID != "" && c.secret != ""
}

type payoutRequest struct {
	SenderBatchHeader payoutBatchHeader `json:"sender_batch_header"`
	Items             []payoutItem      `json:"items"`
}

type payoutBatchHeader struct {
	SenderBatchID string `json:"sender_batch_id"`
	EmailSubject  string `json:"email_subject"`
}

type payoutItem struct {
	RecipientType string       `json:"recipient_type"`
	Amount        payoutAmount `json:"amount"`
	Note          string       `json:"note"`
	Receiver      string       `json:"receiver"`
	SenderItemID  string       `json:"sender_item_id"`
}

type payoutAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// RequestPayment asks the recipient for the given amount with a short
// note. One shot: failures bubble up for the caller to surface, nothing
// is retried.
func (c *PayPalClient) RequestPayment(ctx context.Context, recipient string, amount float64, note string) error {
	if !c.Configured() {
		return fmt.Errorf("%w: paypal credentials not configured", ErrPaymentRailUnavailable)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payout := payoutRequest{
		SenderBatchHeader: payoutBatchHeader{
			SenderBatchID: uuid.NewString(),
			EmailSubject:  "You have a reimbursement request from buy4me",
		},
		Items: []payoutItem{{
			RecipientType: "EMAIL",
			Amount:        payoutAmount{Value: fmt.Sprintf("%.2f", amount), Currency: "USD"},
			Note:          note,
			Receiver:      recipient,
			SenderItemID:  "item_1",
		}},
	}

	body, err := json.Marshal(payout)
	if err != nil {
		return fmt.Errorf("marshal payout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/payments/payouts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentRailUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: payout status %d: %s", ErrPaymentRailUnavailable, resp.StatusCode, respBody)
	}
	return nil
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentRailUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token status %d: %s", ErrPaymentRailUnavailable, resp.StatusCode, respBody)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", ErrPaymentRailUnavailable, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrPaymentRailUnavailable)
	}
	return tokenResp.AccessToken, nil
}
