package domain

import (
	"errors"
	"testing"
)

func newPendingRequest() *Request {
	return &Request{
		ID:                 "r1",
		RequesterID:        "alice",
		FulfillerID:        "bob",
		Text:               "a coffee from Blank Street",
		Fulfillment:        FulfillmentPending,
		VerificationStatus: VerificationIdle,
	}
}

func TestBeginVerification(t *testing.T) {
	t.Run("from idle", func(t *testing.T) {
		r := newPendingRequest()
		if err := r.BeginVerification(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.VerificationStatus != VerificationLoading {
			t.Errorf("expected loading, got %s", r.VerificationStatus)
		}
		if r.Fulfillment != FulfillmentPending {
			t.Errorf("fulfillment must stay pending, got %s", r.Fulfillment)
		}
	})

	t.Run("check again from notVerified", func(t *testing.T) {
		r := newPendingRequest()
		r.VerificationStatus = VerificationNotVerified
		if err := r.BeginVerification(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.VerificationStatus != VerificationLoading {
			t.Errorf("expected loading, got %s", r.VerificationStatus)
		}
	})

	t.Run("already loading", func(t *testing.T) {
		r := newPendingRequest()
		r.VerificationStatus = VerificationLoading
		if err := r.BeginVerification(); !errors.Is(err, ErrVerificationInProgress) {
			t.Errorf("expected ErrVerificationInProgress, got %v", err)
		}
	})

	t.Run("completed request", func(t *testing.T) {
		r := newPendingRequest()
		r.Fulfillment = FulfillmentCompleted
		r.VerificationStatus = VerificationVerified
		if err := r.BeginVerification(); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("canceled request", func(t *testing.T) {
		r := newPendingRequest()
		r.Fulfillment = FulfillmentCanceled
		if err := r.BeginVerification(); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestApplyVerification_Match(t *testing.T) {
	r := newPendingRequest()
	if err := r.BeginVerification(); err != nil {
		t.Fatal(err)
	}
	vr := VerificationResult{
		PurchaseMade:       true,
		FullAmount:         6.50,
		ReimburseAmount:    6.50,
		PurchaseLocation:   "Blank Street Coffee",
		RequestTextSummary: "coffee",
	}
	if err := r.ApplyVerification(vr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Fulfillment != FulfillmentCompleted || r.VerificationStatus != VerificationVerified {
		t.Errorf("expected (completed, verified), got (%s, %s)", r.Fulfillment, r.VerificationStatus)
	}
	if r.FullPrice != 6.50 || r.PurchaseLocation != "Blank Street Coffee" {
		t.Errorf("matched transaction fields not persisted: price=%v location=%q", r.FullPrice, r.PurchaseLocation)
	}
	if r.ReimburseAmount != 6.50 {
		t.Errorf("expected reimburse amount 6.50, got %v", r.ReimburseAmount)
	}
}

func TestApplyVerification_NoMatch(t *testing.T) {
	r := newPendingRequest()
	if err := r.BeginVerification(); err != nil {
		t.Fatal(err)
	}
	vr := VerificationResult{
		PurchaseMade:       false,
		ReimburseAmount:    4.25,
		RequestTextSummary: "coffee",
	}
	if err := r.ApplyVerification(vr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Fulfillment != FulfillmentCompleted || r.VerificationStatus != VerificationNotVerified {
		t.Errorf("expected (completed, notVerified), got (%s, %s)", r.Fulfillment, r.VerificationStatus)
	}
	if r.FullPrice != 0 || r.PurchaseLocation != "" {
		t.Errorf("no-match outcome must leave price/location empty, got %v %q", r.FullPrice, r.PurchaseLocation)
	}
	if r.ReimburseAmount != 4.25 {
		t.Errorf("estimated reimburse amount must be kept, got %v", r.ReimburseAmount)
	}
}

func TestApplyVerification_RequiresLoading(t *testing.T) {
	r := newPendingRequest()
	if err := r.ApplyVerification(VerificationResult{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestFailVerification(t *testing.T) {
	r := newPendingRequest()
	if err := r.BeginVerification(); err != nil {
		t.Fatal(err)
	}
	if err := r.FailVerification(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Fulfillment != FulfillmentPending {
		t.Errorf("hard failure must not advance fulfillment, got %s", r.Fulfillment)
	}
	if r.VerificationStatus != VerificationNotVerified {
		t.Errorf("expected notVerified, got %s", r.VerificationStatus)
	}
	if r.FullPrice != 0 || r.PurchaseLocation != "" {
		t.Errorf("hard failure must not write matched fields")
	}
}

func TestVerifiedImpliesCompletedAndPrice(t *testing.T) {
	// Walk every reachable path and check the invariants: verified always
	// co-occurs with completed, and verified implies a non-zero full price.
	r := newPendingRequest()
	_ = r.BeginVerification()
	_ = r.ApplyVerification(VerificationResult{
		PurchaseMade: true, FullAmount: 12.00, ReimburseAmount: 12.00,
		PurchaseLocation: "Star Market", RequestTextSummary: "groceries",
	})
	if r.VerificationStatus == VerificationVerified {
		if r.Fulfillment != FulfillmentCompleted {
			t.Error("verified request must be completed")
		}
		if r.FullPrice == 0 {
			t.Error("verified request must carry a full price")
		}
	}
}

func TestRecordPaymentRequest(t *testing.T) {
	t.Run("before verification finished", func(t *testing.T) {
		r := newPendingRequest()
		if err := r.RecordPaymentRequest(5); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
		r.VerificationStatus = VerificationLoading
		if err := r.RecordPaymentRequest(5); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition while loading, got %v", err)
		}
	})

	t.Run("after notVerified", func(t *testing.T) {
		r := newPendingRequest()
		_ = r.BeginVerification()
		_ = r.FailVerification()
		if err := r.RecordPaymentRequest(9.99); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.PaymentRequestSent != 9.99 {
			t.Errorf("expected 9.99 recorded, got %v", r.PaymentRequestSent)
		}
		// Sending does not move the state machine.
		if r.Fulfillment != FulfillmentPending || r.VerificationStatus != VerificationNotVerified {
			t.Errorf("payment send must not alter lifecycle, got (%s, %s)", r.Fulfillment, r.VerificationStatus)
		}
	})
}

func TestCancel(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		r := newPendingRequest()
		if err := r.Cancel(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Fulfillment != FulfillmentCanceled {
			t.Errorf("expected canceled, got %s", r.Fulfillment)
		}
	})

	t.Run("mid verification", func(t *testing.T) {
		r := newPendingRequest()
		_ = r.BeginVerification()
		if err := r.Cancel(); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("completed", func(t *testing.T) {
		r := newPendingRequest()
		_ = r.BeginVerification()
		_ = r.ApplyVerification(VerificationResult{ReimburseAmount: 1, RequestTextSummary: "x"})
		if err := r.Cancel(); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
	})
}
