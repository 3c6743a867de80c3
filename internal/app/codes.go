package app

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// codeAlphabet excludes visually confusable characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randomCode returns n characters drawn from codeAlphabet.
func randomCode(n int) string {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			idx = big.NewInt(int64(i % len(codeAlphabet)))
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String()
}

// hexToken returns 2n uppercase hex characters for question ids.
func hexToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = byte(i)
		}
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
