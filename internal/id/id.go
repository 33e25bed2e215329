package id

import "github.com/google/uuid"

// GenerateID returns a random (version 4) UUID string.
// Session cookies and API paths carry it, so it must not be guessable.
func GenerateID() string {
	return uuid.NewString()
}
