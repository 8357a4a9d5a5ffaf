package crypto

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
)

// PublicExponent is the RSA public exponent of every generated key. It is
// the value crypto/rsa always uses.
const PublicExponent = 65537

// KeyGenerator produces RSA private keys whose modulus is built from two
// primes of primeBits bits each.
type KeyGenerator interface {
	GenerateKey(ctx context.Context, primeBits int) (*rsa.PrivateKey, error)
}

// RSAKeyGenerator implements KeyGenerator with crypto/rsa.
type RSAKeyGenerator struct {
	// Random is the entropy source. Nil means crypto/rand.Reader.
	Random io.Reader
}

// NewRSAKeyGenerator returns a generator reading from crypto/rand.Reader.
func NewRSAKeyGenerator() *RSAKeyGenerator {
	return &RSAKeyGenerator{Random: rand.Reader}
}

// GenerateKey generates a new RSA private key with a 2*primeBits modulus.
// The call blocks until the key is built; ctx is only checked before starting.
func (g *RSAKeyGenerator) GenerateKey(ctx context.Context, primeBits int) (*rsa.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	random := g.Random
	if random == nil {
		random = rand.Reader
	}
	return rsa.GenerateKey(random, 2*primeBits)
}

var _ KeyGenerator = (*RSAKeyGenerator)(nil)
