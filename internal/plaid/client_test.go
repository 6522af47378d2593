package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("client-id", "secret", "sandbox")
	c.baseURL = srv.URL
	c.now = func() time.Time {
		return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	}
	return c
}

func TestGetTransactions_WindowAndCap(t *testing.T) {
	var got transactionsGetRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"transactions":[{"amount":6.50,"name":"Blank Street Coffee","date":"2026-03-08"}]}`)
	})

	txns, err := c.GetTransactions(context.Background(), "access-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.StartDate != "2026-03-03" || got.EndDate != "2026-03-10" {
		t.Errorf("expected 7-day window 2026-03-03..2026-03-10, got %s..%s", got.StartDate, got.EndDate)
	}
	if got.Options.Count != 20 {
		t.Errorf("expected count capped at 20, got %d", got.Options.Count)
	}
	if got.AccessToken != "access-token" {
		t.Errorf("access token not forwarded, got %q", got.AccessToken)
	}

	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].Amount != 6.50 || txns[0].Merchant != "Blank Street Coffee" || txns[0].Date != "2026-03-08" {
		t.Errorf("unexpected transaction: %+v", txns[0])
	}
}

func TestGetTransactions_PrefersMerchantName(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"transactions":[{"amount":12.00,"name":"POS DEBIT 1234 STAR MKT","merchant_name":"Star Market","date":"2026-03-09"}]}`)
	})
	txns, err := c.GetTransactions(context.Background(), "token")
	if err != nil {
		t.Fatal(err)
	}
	if txns[0].Merchant != "Star Market" {
		t.Errorf("expected cleaned merchant name, got %q", txns[0].Merchant)
	}
}

func TestGetTransactions_TruncatesToCap(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var resp transactionsGetResponse
		for i := 0; i < 30; i++ {
			resp.Transactions = append(resp.Transactions, struct {
				Amount       float64 `json:"amount"`
				Name         string  `json:"name"`
				MerchantName string  `json:"merchant_name"`
				Date         string  `json:"date"`
			}{Amount: float64(i), Name: "x", Date: "2026-03-09"})
		}
		json.NewEncoder(w).Encode(resp)
	})
	txns, err := c.GetTransactions(context.Background(), "token")
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 20 {
		t.Errorf("expected list truncated to 20, got %d", len(txns))
	}
}

func TestGetTransactions_InvalidCredential(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error_type":"INVALID_INPUT","error_code":"INVALID_ACCESS_TOKEN","error_message":"could not find matching access token"}`)
	})
	_, err := c.GetTransactions(context.Background(), "bad-token")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestGetTransactions_EmptyToken(t *testing.T) {
	c := NewClient("id", "secret", "sandbox")
	_, err := c.GetTransactions(context.Background(), "")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestGetTransactions_UpstreamErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error_type":"API_ERROR","error_code":"INTERNAL_SERVER_ERROR"}`)
		})
		_, err := c.GetTransactions(context.Background(), "token")
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		c := NewClient("id", "secret", "sandbox")
		c.baseURL = "http://127.0.0.1:1"
		_, err := c.GetTransactions(context.Background(), "token")
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}
