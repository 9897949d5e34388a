package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Role is the access level of a user.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePsychologist Role = "psychologist"
)

// ErrBadCredentials is returned by Authenticate for an unknown email or a
// wrong password.
var ErrBadCredentials = errors.New("store: invalid credentials")

// Profile is the professional information printed on reports.
type Profile struct {
	FullName      string `json:"fullName"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	Specialty     string `json:"specialty,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a psychologist. The email must not be taken.
func (s *Store) CreateUser(ctx context.Context, email, password string, profile Profile) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, fmt.Errorf("store: email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("store: hashing password: %w", err)
	}

	u := User{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      RolePsychologist,
		Profile:   profile,
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user (id, email, password_hash, role, full_name, license, specialty, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, hash, u.Role,
		profile.FullName, profile.LicenseNumber, profile.Specialty, profile.Phone,
		u.CreatedAt,
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return User{}, fmt.Errorf("store: user %s: %w", email, ErrDuplicate)
		}
		return User{}, fmt.Errorf("store: inserting user: %w", err)
	}
	return u, nil
}

// Authenticate checks the password of the user registered with email.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	var hash []byte
	u, err := s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE email = ?", NormalizeEmail(email)), &hash)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var hash []byte
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE email = ?", NormalizeEmail(email)), &hash)
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	var hash []byte
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE id = ?", id), &hash)
}

// SetRole changes the role of a user.
func (s *Store) SetRole(ctx context.Context, id string, role Role) error {
	res, err := s.db.ExecContext(ctx, "UPDATE user SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return fmt.Errorf("store: updating role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const userSelect = `
	SELECT id, email, password_hash, role, full_name, license, specialty, phone, created_at
	FROM user`

func (s *Store) scanUser(row *sql.Row, hash *[]byte) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, hash, &u.Role,
		&u.Profile.FullName, &u.Profile.LicenseNumber, &u.Profile.Specialty, &u.Profile.Phone,
		&u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: scanning user: %w", err)
	}
	return u, nil
}
