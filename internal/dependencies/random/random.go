package random

import (
	"crypto/rand"
	"math/big"
)

// IDAlphabet is the character set used for connection identifiers
const IDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// idLength keeps connection ids short enough to scan in log lines
const idLength = 10

// Random produces the random identifiers the server hands out.
// Tests substitute a deterministic implementation.
type Random interface {
	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

func New() *CryptoRandom {
	return &CryptoRandom{}
}

func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	limit := big.NewInt(int64(len(alphabet)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic("random: " + err.Error())
		}
		result[i] = alphabet[n.Int64()]
	}
	return string(result)
}

// ConnectionID returns a fresh identifier for an accepted connection
func ConnectionID(r Random) string {
	return "c-" + r.String(idLength, IDAlphabet)
}
