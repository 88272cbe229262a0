// Package auth verifies the admin credential, issues and verifies signed
// session tokens, and gates admin routes on them.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Roles carried in session tokens.
const (
	RoleAdmin = "admin"
)

// AdminID is the id of the single configured admin identity.
const AdminID = "1"

var (
	// ErrInvalidCredentials is returned for any username or password
	// mismatch. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("username and password are required")
)

// dummyHash is compared against when the username does not match so the
// response time does not reveal whether the username exists.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("committee-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// Verifier checks credentials against one configured admin identity.
type Verifier struct {
	Username     string
	PasswordHash string // bcrypt
}

// VerifyCredentials returns the admin claims when username and password
// match the configured identity.
func (v Verifier) VerifyCredentials(username, password string) (Claims, error) {
	if username == "" || password == "" {
		return Claims{}, ErrMissingCredentials
	}

	userOK := v.Username != "" &&
		subtle.ConstantTimeCompare([]byte(username), []byte(v.Username)) == 1

	hash := dummyHash()
	if userOK && v.PasswordHash != "" {
		hash = []byte(v.PasswordHash)
	}
	passOK := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil

	if !userOK || !passOK || v.PasswordHash == "" {
		return Claims{}, ErrInvalidCredentials
	}
	return Claims{UserID: AdminID, Username: v.Username, Role: RoleAdmin}, nil
}

// HashPassword returns the bcrypt hash of password. A cost of 0 uses
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrMissingCredentials
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
