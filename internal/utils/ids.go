package utils

import (
	"crypto/rand"
	"encoding/hex"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewIDSuffix returns n random base36 characters, used as the tail of
// proposal and comment ids.
func NewIDSuffix(n int) string {
	if n <= 0 {
		n = 9
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand не отдал байты — fallback не нужен, паникуем громко
		panic("utils: rand.Read failed: " + err.Error())
	}
	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}
	return string(b)
}

func NewRefreshToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32 // 256 бит по умолчанию
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
