package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrRequestNotFound = errors.New("request not found")
)

type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// Init creates the schema if it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			paypal_username TEXT NOT NULL DEFAULT '',
			venmo_username TEXT NOT NULL DEFAULT '',
			plaid_access_token TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS requests (
			id UUID PRIMARY KEY,
			requester_id TEXT NOT NULL REFERENCES profiles(id),
			fulfiller_id TEXT NOT NULL REFERENCES profiles(id),
			text TEXT NOT NULL,
			fulfillment TEXT NOT NULL DEFAULT 'pending',
			verification_status TEXT NOT NULL DEFAULT 'idle',
			full_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			reimburse_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			purchase_location TEXT NOT NULL DEFAULT '',
			request_text_summary TEXT NOT NULL DEFAULT '',
			payment_request_sent NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (requester_id <> fulfiller_id)
		)`,
		`CREATE INDEX IF NOT EXISTS requests_fulfiller_idx ON requests (fulfiller_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS requests_requester_idx ON requests (requester_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			user_id TEXT NOT NULL REFERENCES profiles(id),
			friend_id TEXT NOT NULL REFERENCES profiles(id),
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, friend_id),
			CHECK (user_id <> friend_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.Db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}
