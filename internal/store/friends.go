package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/buy4me/buy4me/internal/domain"
)

var ErrFriendshipExists = errors.New("friend request already exists")

// AddFriend records a pending friend request from userID to friendID.
func (s *Store) AddFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.Db.Exec(ctx,
		"INSERT INTO friendships (user_id, friend_id, status) VALUES ($1, $2, 'pending')",
		userID, friendID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrFriendshipExists
			case "23503":
				return ErrProfileNotFound
			case "23514":
				return domain.ErrIllegalTransition
			}
		}
		return fmt.Errorf("friendship insert failed: %w", err)
	}
	return nil
}

// AcceptFriend marks the pending request accepted and mirrors the row so
// both directions list each other.
func (s *Store) AcceptFriend(ctx context.Context, userID, friendID string) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE friendships SET status = 'accepted'
		 WHERE user_id = $1 AND friend_id = $2 AND status = 'pending'`,
		friendID, userID)
	if err != nil {
		return fmt.Errorf("friendship update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	_, err = s.Db.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id, status) VALUES ($1, $2, 'accepted')
		 ON CONFLICT (user_id, friend_id) DO UPDATE SET status = 'accepted'`,
		userID, friendID)
	if err != nil {
		return fmt.Errorf("friendship mirror failed: %w", err)
	}
	return nil
}

// ListFriends returns the profiles of the user's accepted friends.
func (s *Store) ListFriends(ctx context.Context, userID string) ([]domain.Profile, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT p.id, p.username, p.location
		 FROM friendships f JOIN profiles p ON p.id = f.friend_id
		 WHERE f.user_id = $1 AND f.status = 'accepted'
		 ORDER BY p.username`, userID)
	if err != nil {
		return nil, fmt.Errorf("friend list query failed: %w", err)
	}
	defer rows.Close()

	var friends []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Location); err != nil {
			return nil, fmt.Errorf("friend scan failed: %w", err)
		}
		friends = append(friends, p)
	}
	return friends, rows.Err()
}
