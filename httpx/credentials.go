// Package httpx holds HTTP helpers shared by the API handlers: error
// responses, response buffering and the oauth credentials verifier.
package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"

	"github.com/lvillar/psyreport/store"
)

// RefreshTokenTTL is how long a refresh token stays usable.
const RefreshTokenTTL = 30 * 24 * time.Hour

// Claim names added to access tokens.
const (
	ClaimUserID = "sub"
	ClaimRoles  = "roles"
)

// Users is the part of the store the verifier needs.
type Users interface {
	Authenticate(ctx context.Context, email, password string) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	StoreToken(ctx context.Context, email, tokenID, refreshTokenID string, ttl time.Duration) error
	ConsumeToken(ctx context.Context, email, tokenID, refreshTokenID string) error
}

type credentialsVerifier struct {
	users Users
}

func CredentialsVerifier(users Users) oauth.CredentialsVerifier {
	return &credentialsVerifier{users}
}

// NewBearerServer issues access tokens valid for ttl, signed with secret.
func NewBearerServer(secret string, ttl time.Duration, users Users) *oauth.BearerServer {
	return oauth.NewBearerServer(secret, ttl, CredentialsVerifier(users), nil)
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	_, err := cs.users.Authenticate(r.Context(), username, password)
	return err
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.users.StoreToken(context.Background(), credential, tokenID, refreshTokenID, RefreshTokenTTL)
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	if err := cs.users.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID); err != nil {
		return errors.New("could not refresh")
	}
	return nil
}
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	u, err := cs.users.UserByEmail(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{ClaimUserID: u.ID, ClaimRoles: string(u.Role)}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
