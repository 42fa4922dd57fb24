// Package model defines the data structures used throughout the application.
package model

// User represents a registered account.
//
// Email is the natural key: it is unique across all users and is the subject
// embedded in every session token. ID is assigned by the store and never
// changes.
//
// Password holds the bcrypt hash, never the plaintext. It is serialized so the
// document stores can persist it, which is why handlers never encode a User
// directly into a response.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GetID and SetID let the generic document collections assign identities.
func (u *User) GetID() string   { return u.ID }
func (u *User) SetID(id string) { u.ID = id }
