package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

const numberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewNumber generates a human-readable order number of the form
// PREFIX-<unix millis>-<random token>, e.g. ORD-1717430400123-K7M2QX.
// The timestamp plus random suffix keeps numbers unique without a
// retry loop.
func NewNumber(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), randomToken(6))
}

func randomToken(n int) string {
	buf := make([]byte, n)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return string(buf)
}
