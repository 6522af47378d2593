// Package service is the request lifecycle controller: it drives the
// state machine in domain, invokes the verification pipeline, and routes
// reimbursement requests to the configured payment rail.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/buy4me/buy4me/internal/domain"
	"github.com/buy4me/buy4me/internal/payments"
)

var (
	ErrNoBankCredential   = errors.New("requester has no linked bank account")
	ErrNoPaymentRail      = errors.New("requester has no payment account on file")
	ErrInvalidPaymentKind = errors.New("unknown payment request kind")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
)

// Store is the persistence surface the controller needs.
type Store interface {
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	BeginVerification(ctx context.Context, id string) error
	ReleaseVerification(ctx context.Context, id string) error
	SaveVerificationOutcome(ctx context.Context, r *domain.Request) error
	RecordPaymentRequest(ctx context.Context, id string, amount float64) error
	CancelRequest(ctx context.Context, id string) error
}

// PurchaseVerifier runs one verification attempt.
type PurchaseVerifier interface {
	VerifyPurchase(ctx context.Context, requestText, accessToken string) (domain.VerificationResult, error)
}

// PayoutRail sends a one-shot reimbursement request over PayPal.
type PayoutRail interface {
	RequestPayment(ctx context.Context, recipient string, amount float64, note string) error
}

type RequestService struct {
	store    Store
	verifier PurchaseVerifier
	paypal   PayoutRail
}

func NewRequestService(store Store, verifier PurchaseVerifier, paypal PayoutRail) *RequestService {
	return &RequestService{store: store, verifier: verifier, paypal: paypal}
}

// MarkPurchased handles both "mark as purchased" and "check again": it
// reserves the loading state, runs the pipeline, and persists the
// outcome. The conditional store write is what keeps two clients from
// verifying the same request at once; the loser gets
// domain.ErrVerificationInProgress.
//
// The returned request reflects the persisted post-attempt state even
// when err is non-nil: a hard pipeline failure leaves the request
// (pending, notVerified) so the user can check again or fall back to a
// manual amount.
func (s *RequestService) MarkPurchased(ctx context.Context, requestID string) (*domain.Request, error) {
	if err := s.store.BeginVerification(ctx, requestID); err != nil {
		return nil, err
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		s.releaseReservation(ctx, requestID)
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, req.RequesterID)
	if err != nil {
		return s.failAttempt(ctx, req, err)
	}
	if profile.PlaidAccessToken == "" {
		return s.failAttempt(ctx, req, ErrNoBankCredential)
	}

	vr, err := s.verifier.VerifyPurchase(ctx, req.Text, profile.PlaidAccessToken)
	if err != nil {
		return s.failAttempt(ctx, req, err)
	}

	if err := req.ApplyVerification(vr); err != nil {
		s.releaseReservation(ctx, requestID)
		return nil, err
	}
	if err := s.store.SaveVerificationOutcome(ctx, req); err != nil {
		s.releaseReservation(ctx, requestID)
		return nil, err
	}
	return req, nil
}

// failAttempt rolls the request back to (pending, notVerified) and
// persists that, so a failed attempt never leaves a request stuck in
// loading.
func (s *RequestService) failAttempt(ctx context.Context, req *domain.Request, cause error) (*domain.Request, error) {
	if err := req.FailVerification(); err != nil {
		return nil, err
	}
	if err := s.store.SaveVerificationOutcome(ctx, req); err != nil {
		log.Printf("service: persisting failed attempt for request %s: %v", req.ID, err)
		s.releaseReservation(ctx, req.ID)
		return nil, err
	}
	return req, cause
}

// releaseReservation is the compensating write for a reservation whose
// outcome could not be persisted. Without it a failed read or write
// after BeginVerification would leave the row loading, and the
// conditional begin would then reject every later attempt. Best effort:
// nothing useful can be done about a release that also fails beyond
// logging it.
func (s *RequestService) releaseReservation(ctx context.Context, requestID string) {
	if err := s.store.ReleaseVerification(ctx, requestID); err != nil {
		log.Printf("service: releasing verification reservation for request %s: %v", requestID, err)
	}
}

// PaymentOutcome is the result of a payment-request send. VenmoLink is
// set when the requester reimburses over Venmo; the client opens it.
type PaymentOutcome struct {
	Request   *domain.Request `json:"request"`
	VenmoLink string          `json:"venmo_link,omitempty"`
}

// SendPaymentRequest sends a reimbursement request to the requester for
// the verified full price, the estimated reimburse amount, or a custom
// user-entered amount. Allowed once a verification attempt has finished,
// whichever way it went; sending never moves the lifecycle.
func (s *RequestService) SendPaymentRequest(ctx context.Context, requestID, kind string, customAmount float64) (*PaymentOutcome, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.CanSendPaymentRequest() {
		return nil, domain.ErrIllegalTransition
	}

	var amount float64
	switch kind {
	case "full":
		if req.VerificationStatus != domain.VerificationVerified {
			return nil, domain.ErrIllegalTransition
		}
		amount = req.FullPrice
	case "reimburse":
		amount = req.ReimburseAmount
	case "custom":
		amount = customAmount
	default:
		return nil, ErrInvalidPaymentKind
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	profile, err := s.store.GetProfile(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}

	note := req.RequestTextSummary
	if note == "" {
		note = req.Text
	}

	outcome := &PaymentOutcome{}
	switch {
	case profile.VenmoUsername != "":
		outcome.VenmoLink = payments.VenmoChargeLink(profile.VenmoUsername, amount, note)
	case profile.PayPalUsername != "":
		if err := s.paypal.RequestPayment(ctx, profile.PayPalUsername, amount, note); err != nil {
			return nil, fmt.Errorf("paypal request: %w", err)
		}
	default:
		return nil, ErrNoPaymentRail
	}

	if err := req.RecordPaymentRequest(amount); err != nil {
		return nil, err
	}
	if err := s.store.RecordPaymentRequest(ctx, req.ID, amount); err != nil {
		return nil, err
	}
	outcome.Request = req
	return outcome, nil
}

// CancelRequest withdraws a pending request.
func (s *RequestService) CancelRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	if err := s.store.CancelRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.store.GetRequest(ctx, requestID)
}
