package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// sessionIDBytes is the entropy of a session identifier.
const sessionIDBytes = 32

// GenerateSessionID returns a new random hex-encoded session identifier.
func GenerateSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
