// Package shortid generates the short public handles mirrors are shared
// under. Uniqueness is probabilistic (36^8 space); the caller is expected
// to check the store and retry on the rare collision.
package shortid

import "math/rand/v2"

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	Length   = 8
)

func New() string {
	b := make([]byte, Length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
