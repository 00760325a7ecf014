package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateRef generates a unique reference ID for orders and transactions.
// Timestamp keeps refs sortable, the random tail avoids collisions within a
// second.
func GenerateRef(prefix string) string {
	max := big.NewInt(999999)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock rather than refuse the order
		return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s%d%06d", prefix, time.Now().Unix(), n.Int64())
}
