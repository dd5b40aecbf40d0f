package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReferenceNumber returns a human-readable report reference such as
// SR-2026-7KQ2M9XA. Uniqueness is enforced by the database index.
func NewReferenceNumber(now time.Time) string {
	b := make([]byte, 8)
	limit := big.NewInt(int64(len(refAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err) // crypto/rand never fails on supported platforms
		}
		b[i] = refAlphabet[n.Int64()]
	}
	return fmt.Sprintf("SR-%d-%s", now.Year(), b)
}
