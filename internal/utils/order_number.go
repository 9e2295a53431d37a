package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOrderNumber returns WM-YYYYMMDD-HHMMSS-mmm-NNNNNN.
func GenerateOrderNumber() string {
	return orderNumberAt(time.Now().UTC())
}

func orderNumberAt(now time.Time) string {
	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// fallback: time-based entropy
		n = big.NewInt(now.UnixNano() % 1000000)
	}

	return fmt.Sprintf("WM-%s-%03d-%06d", datePart, millis, n.Int64())
}
