package models

import (
	"errors"
	"net/mail"
	"strings"
)

// ============================================================
// Signer Model
// ============================================================

var ErrInvalidSigner = errors.New("signer name and valid email required")

type Signer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSigner trims the inputs, checks them and assigns a fresh id. Only the
// bare address is kept when email carries a display name.
func NewSigner(name, email string) (Signer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return Signer{}, ErrInvalidSigner
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return Signer{}, ErrInvalidSigner
	}
	return Signer{ID: NewSignerID(), Name: name, Email: addr.Address}, nil
}
