// Package token generates the opaque identifiers used for webhook endpoints.
// Tokens are fixed-length, URL-safe, and drawn from crypto/rand so they cannot
// be guessed or enumerated casually. They are not a security boundary.
package token

import (
	"crypto/rand"
	"fmt"
)

// Length is the number of characters in a generated token.
const Length = 16

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// New returns a fresh random token.
func New() string {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("token: rand.Read: %v", err))
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
