package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

var (
	nameAdjectives = []string{"Phoenix", "Light", "Breeze", "Aurora", "Shadow", "Star"}
	nameNouns      = []string{"Curious", "Serene", "Brave", "Attentive", "Bright", "Silent"}
)

// DisplayNameAttempts is how many random candidates are tried before the time based fallback.
const DisplayNameAttempts = 20

// IntSource yields integers in [0, n).
type IntSource interface {
	Intn(n int) int
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return int(time.Now().UnixNano() % int64(n))
	}
	return int(v.Int64())
}

// NameExists reports whether a display name is already taken.
type NameExists func(name string) (bool, error)

// GenerateDisplayName returns "<Adjective> <Noun> #NNNN" not reported by exists.
// After DisplayNameAttempts collisions it falls back to a name built from now.
func GenerateDisplayName(rnd IntSource, exists NameExists, now func() time.Time) (string, error) {
	for i := 0; i < DisplayNameAttempts; i++ {
		candidate := fmt.Sprintf("%s %s #%d",
			nameAdjectives[rnd.Intn(len(nameAdjectives))],
			nameNouns[rnd.Intn(len(nameNouns))],
			1000+rnd.Intn(9000),
		)
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s %d", nameAdjectives[0], now().UnixMilli()), nil
}
