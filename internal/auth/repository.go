package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// User is an authenticated account.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Profile holds display data, 1:1 with a user.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Repository persists users and profiles.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new auth Repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user. Generates a UUID if ID is empty.
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// FindUserByEmail returns nil when no user matches.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return &user, nil
}

// FindUserByID returns nil when no user matches.
func (r *Repository) FindUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return &user, nil
}

// GetProfile returns nil when the user has no profile row yet.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var profile Profile
	err := r.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE id = ?`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &profile, nil
}

// CreateProfile inserts a profile row for the user.
func (r *Repository) CreateProfile(ctx context.Context, profile *Profile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, avatar_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		profile.ID, profile.FullName, profile.AvatarURL, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	return nil
}

// UpdateProfile updates the mutable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, profile *Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET full_name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		profile.FullName, profile.AvatarURL, profile.UpdatedAt, profile.ID,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("profile %s not found", profile.ID)
	}
	return nil
}
