package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buy4me/buy4me/internal/domain"
)

func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	err := s.Db.QueryRow(ctx,
		`INSERT INTO profiles (id, username, phone_number, paypal_username, venmo_username, location)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		p.ID, p.Username, p.PhoneNumber, p.PayPalUsername, p.VenmoUsername, p.Location,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("profile insert failed: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.Db.QueryRow(ctx,
		`SELECT id, username, phone_number, paypal_username, venmo_username, plaid_access_token, location, created_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.PhoneNumber, &p.PayPalUsername, &p.VenmoUsername,
		&p.PlaidAccessToken, &p.Location, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile query failed: %w", err)
	}
	return &p, nil
}

// SetBankCredential stores the access token handed back by the bank-link
// exchange. The token itself is opaque to this service.
func (s *Store) SetBankCredential(ctx context.Context, id, accessToken string) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE profiles SET plaid_access_token = $1 WHERE id = $2", accessToken, id)
	if err != nil {
		return fmt.Errorf("credential update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
