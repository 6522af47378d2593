package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/buy4me/buy4me/internal/domain"
)

const requestColumns = `id, requester_id, fulfiller_id, text, fulfillment, verification_status,
	full_price, reimburse_amount, purchase_location, request_text_summary, payment_request_sent, created_at`

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var r domain.Request
	err := row.Scan(&r.ID, &r.RequesterID, &r.FulfillerID, &r.Text, &r.Fulfillment,
		&r.VerificationStatus, &r.FullPrice, &r.ReimburseAmount, &r.PurchaseLocation,
		&r.RequestTextSummary, &r.PaymentRequestSent, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequest assigns the id and initial lifecycle state and persists
// the request.
func (s *Store) CreateRequest(ctx context.Context, r *domain.Request) error {
	r.ID = uuid.NewString()
	r.Fulfillment = domain.FulfillmentPending
	r.VerificationStatus = domain.VerificationIdle

	err := s.Db.QueryRow(ctx,
		`INSERT INTO requests (id, requester_id, fulfiller_id, text)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		r.ID, r.RequesterID, r.FulfillerID, r.Text,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("request insert failed: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	r, err := scanRequest(s.Db.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("request query failed: %w", err)
	}
	return r, nil
}

func (s *Store) listRequests(ctx context.Context, column, userID string) ([]domain.Request, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE "+column+" = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("request list query failed: %w", err)
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("request scan failed: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// ListRequestsByFulfiller returns requests the user was asked to buy,
// newest first.
func (s *Store) ListRequestsByFulfiller(ctx context.Context, userID string) ([]domain.Request, error) {
	return s.listRequests(ctx, "fulfiller_id", userID)
}

// ListRequestsByRequester returns requests the user made, newest first.
func (s *Store) ListRequestsByRequester(ctx context.Context, userID string) ([]domain.Request, error) {
	return s.listRequests(ctx, "requester_id", userID)
}

// BeginVerification is the conditional idle|notVerified -> loading write.
// It is the at-most-one-concurrent-verification guard: with two clients
// racing, exactly one UPDATE matches and the loser sees
// ErrVerificationInProgress.
func (s *Store) BeginVerification(ctx context.Context, id string) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE requests SET verification_status = 'loading'
		 WHERE id = $1 AND fulfillment = 'pending' AND verification_status IN ('idle', 'notVerified')`,
		id)
	if err != nil {
		return fmt.Errorf("verification reservation failed: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish why the transition was rejected.
	var status domain.VerificationStatus
	err = s.Db.QueryRow(ctx, "SELECT verification_status FROM requests WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("verification status query failed: %w", err)
	}
	if status == domain.VerificationLoading {
		return domain.ErrVerificationInProgress
	}
	return domain.ErrIllegalTransition
}

// ReleaseVerification drops a loading reservation back to notVerified.
// The compensating write for an attempt whose outcome could not be
// persisted; without it the row would hold its reservation forever and
// BeginVerification would reject every later attempt. A no-op when the
// request is not loading.
func (s *Store) ReleaseVerification(ctx context.Context, id string) error {
	_, err := s.Db.Exec(ctx,
		`UPDATE requests SET verification_status = 'notVerified'
		 WHERE id = $1 AND verification_status = 'loading'`,
		id)
	if err != nil {
		return fmt.Errorf("verification release failed: %w", err)
	}
	return nil
}

// SaveVerificationOutcome persists the lifecycle fields written by a
// finished verification attempt in one statement, so a crash between
// fields cannot leave a half-written outcome.
func (s *Store) SaveVerificationOutcome(ctx context.Context, r *domain.Request) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE requests SET fulfillment = $1, verification_status = $2, full_price = $3,
		 reimburse_amount = $4, purchase_location = $5, request_text_summary = $6
		 WHERE id = $7`,
		r.Fulfillment, r.VerificationStatus, r.FullPrice, r.ReimburseAmount,
		r.PurchaseLocation, r.RequestTextSummary, r.ID)
	if err != nil {
		return fmt.Errorf("verification outcome update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *Store) RecordPaymentRequest(ctx context.Context, id string, amount float64) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE requests SET payment_request_sent = $1 WHERE id = $2", amount, id)
	if err != nil {
		return fmt.Errorf("payment record update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// CancelRequest withdraws a pending request; one mid-verification or
// already completed is left untouched.
func (s *Store) CancelRequest(ctx context.Context, id string) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE requests SET fulfillment = 'canceled'
		 WHERE id = $1 AND fulfillment = 'pending' AND verification_status <> 'loading'`,
		id)
	if err != nil {
		return fmt.Errorf("cancel update failed: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.Db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM requests WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("request existence query failed: %w", err)
	}
	if !exists {
		return ErrRequestNotFound
	}
	return domain.ErrIllegalTransition
}
