// Package plaid is a minimal client for the Plaid transactions API. It
// covers the single call the verification pipeline needs: fetching a
// bounded, time-windowed list of a user's bank transactions given a
// stored access token.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buy4me/buy4me/internal/domain"
)

const (
	transactionWindow = 7 * 24 * time.Hour
	maxTransactions   = 20
	requestTimeout    = 10 * time.Second
)

var environments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

var (
	ErrInvalidCredential   = errors.New("bank access credential rejected")
	ErrUpstreamUnavailable = errors.New("financial aggregator unavailable")
)

type Client struct {
	clientID string
	secret   string
	baseURL  string
	client   *http.Client
	now      func() time.Time
}

// NewClient creates a Plaid client for the given environment ("sandbox",
// "development" or "production"). Unknown environments fall back to sandbox.
func NewClient(clientID, secret, env string) *Client {
	baseURL, ok := environments[env]
	if !ok {
		baseURL = environments["sandbox"]
	}
	return &Client{
		clientID: clientID,
		secret:   secret,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: requestTimeout},
		now:      time.Now,
	}
}

type transactionsGetRequest struct {
	ClientID    string                 `json:"client_id"`
	Secret      string                 `json:"secret"`
	AccessToken string                 `json:"access_token"`
	StartDate   string                 `json:"start_date"`
	EndDate     string                 `json:"end_date"`
	Options     transactionsGetOptions `json:"options"`
}

type transactionsGetOptions struct {
	Count int `json:"count"`
}

type transactionsGetResponse struct {
	Transactions []struct {
		Amount       float64 `json:"amount"`
		Name         string  `json:"name"`
		MerchantName string  `json:"merchant_name"`
		Date         string  `json:"date"`
	} `json:"transactions"`
}

type plaidError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// GetTransactions fetches the transactions posted in the trailing 7-day
// window, capped at 20 entries to bound the reconciliation prompt. Both
// window bounds are UTC and sent as YYYY-MM-DD dates. Read-only, single
// attempt: retry policy belongs to the caller.
func (c *Client) GetTransactions(ctx context.Context, accessToken string) ([]domain.BankTransaction, error) {
	if accessToken == "" {
		return nil, ErrInvalidCredential
	}

	end := c.now().UTC()
	start := end.Add(-transactionWindow)

	reqBody := transactionsGetRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		StartDate:   start.Format("2006-01-02"),
		EndDate:     end.Format("2006-01-02"),
		Options:     transactionsGetOptions{Count: maxTransactions},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transactions/get", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var pe plaidError
		if json.Unmarshal(respBody, &pe) == nil && credentialRejected(pe) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, pe.ErrorCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, respBody)
	}

	var apiResp transactionsGetResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}

	txns := make([]domain.BankTransaction, 0, len(apiResp.Transactions))
	for _, t := range apiResp.Transactions {
		if len(txns) == maxTransactions {
			break
		}
		merchant := t.MerchantName
		if merchant == "" {
			merchant = t.Name
		}
		txns = append(txns, domain.BankTransaction{
			Amount:   t.Amount,
			Merchant: merchant,
			Date:     t.Date,
		})
	}
	return txns, nil
}

func credentialRejected(pe plaidError) bool {
	switch pe.ErrorCode {
	case "INVALID_ACCESS_TOKEN", "ITEM_LOGIN_REQUIRED", "INVALID_API_KEYS":
		return true
	}
	return pe.ErrorType == "INVALID_INPUT"
}
