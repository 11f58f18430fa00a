package models

import "time"

// User is the account record as stored by the user store. The authentication
// core only reads ID and PasswordHash; the rest belongs to the store.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
