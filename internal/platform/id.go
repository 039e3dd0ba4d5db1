package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const sessionIDLength = 32

// NewID returns a fresh access request identifier.
func NewID() string {
	return uuid.New().String()
}

// NewSessionID returns a random identifier for a server-side session record.
func NewSessionID() string {
	b := make([]byte, sessionIDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]%byte(len(tokenAlphabet))]
	}
	return string(b)
}
