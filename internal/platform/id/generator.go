package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator mints the opaque public IDs handed to clients for matches
// and reports. Database surrogate keys never leave the repository layer.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator draws 128 bits from crypto/rand per ID.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
