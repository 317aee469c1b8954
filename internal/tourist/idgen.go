package tourist

import (
	"crypto/rand"
	"fmt"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newUniqueID draws an id of the given length from [A-Za-z0-9] using
// crypto/rand. At the default length of 10 the space is large enough that a
// collision probe is not worth a ledger round trip; a duplicate reverts at
// registration instead.
func newUniqueID(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("draw unique id: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out), nil
}
