// Package primes produces pairs of distinct large primes by extracting a
// secret factor from freshly generated RSA keys.
package primes

import (
	"context"
	"fmt"
	"math/big"

	kerrors "github.com/pilab-dev/keysmith/errors"
	"github.com/pilab-dev/keysmith/internal/crypto"
	"github.com/pilab-dev/keysmith/internal/metrics"
	"github.com/pilab-dev/keysmith/log"
	"github.com/pilab-dev/keysmith/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultBits is the bit length of each generated prime.
	DefaultBits = 1024
	// MinBits is the smallest supported prime size; crypto/rsa refuses
	// moduli below 1024 bits.
	MinBits = 512
	// DefaultMaxRetries bounds the number of regenerations of q.
	DefaultMaxRetries = 1_000_000
)

// Pair holds two distinct primes.
type Pair struct {
	P *big.Int
	Q *big.Int
}

// PairGenerator draws primes from a crypto.KeyGenerator.
type PairGenerator struct {
	keys       crypto.KeyGenerator
	bits       int
	maxRetries int
	logger     log.Logger
	metrics    *metrics.Collector
}

// Option configures a PairGenerator.
type Option func(*PairGenerator)

func WithBits(bits int) Option {
	return func(g *PairGenerator) { g.bits = bits }
}

func WithMaxRetries(n int) Option {
	return func(g *PairGenerator) { g.maxRetries = n }
}

func WithLogger(l log.Logger) Option {
	return func(g *PairGenerator) { g.logger = l }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(g *PairGenerator) { g.metrics = c }
}

// NewPairGenerator creates a PairGenerator backed by keys.
func NewPairGenerator(keys crypto.KeyGenerator, opts ...Option) (*PairGenerator, error) {
	g := &PairGenerator{
		keys:       keys,
		bits:       DefaultBits,
		maxRetries: DefaultMaxRetries,
		logger:     log.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.keys == nil {
		return nil, kerrors.NewInvalidArgument("key generator is nil")
	}
	if g.bits < MinBits {
		return nil, kerrors.NewInvalidArgument(fmt.Sprintf("prime size must be at least %d bits, got %d", MinBits, g.bits))
	}
	if g.maxRetries < 1 {
		return nil, kerrors.NewInvalidArgument(fmt.Sprintf("max retries must be positive, got %d", g.maxRetries))
	}
	return g, nil
}

// Bits returns the configured prime size.
func (g *PairGenerator) Bits() int { return g.bits }

// GeneratePrime generates one RSA key and returns its first secret prime.
func (g *PairGenerator) GeneratePrime(ctx context.Context) (*big.Int, error) {
	ctx, span := tracing.Tracer().Start(ctx, "primes.GeneratePrime")
	defer span.End()

	key, err := g.keys.GenerateKey(ctx, g.bits)
	if err != nil {
		g.metrics.KeyGenerationFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "key generation failed")
		return nil, kerrors.NewExternalGenerationFailure("generate rsa key", err)
	}
	if key == nil || len(key.Primes) < 2 {
		g.metrics.KeyGenerationFailed()
		return nil, kerrors.NewExternalGenerationFailure("generated key has no prime factors", nil)
	}
	if key.E != crypto.PublicExponent {
		g.metrics.KeyGenerationFailed()
		return nil, kerrors.NewExternalGenerationFailure(
			fmt.Sprintf("generated key has public exponent %d, want %d", key.E, crypto.PublicExponent), nil)
	}

	g.metrics.PrimeGenerated()
	p := new(big.Int).Set(key.Primes[0])
	span.SetAttributes(attribute.Int("prime.bits", p.BitLen()))
	return p, nil
}

// GeneratePair returns two primes p != q. q is regenerated while it equals p,
// at most maxRetries times.
func (g *PairGenerator) GeneratePair(ctx context.Context) (Pair, error) {
	ctx, span := tracing.Tracer().Start(ctx, "primes.GeneratePair")
	defer span.End()
	span.SetAttributes(attribute.Int("prime.bits", g.bits))

	p, err := g.GeneratePrime(ctx)
	if err != nil {
		return Pair{}, fmt.Errorf("generate p: %w", err)
	}
	q, err := g.GeneratePrime(ctx)
	if err != nil {
		return Pair{}, fmt.Errorf("generate q: %w", err)
	}

	for retries := 0; p.Cmp(q) == 0; retries++ {
		if retries >= g.maxRetries {
			err := kerrors.NewRetriesExhausted(retries)
			span.SetStatus(codes.Error, err.Description)
			return Pair{}, err
		}
		if err := ctx.Err(); err != nil {
			return Pair{}, err
		}

		g.metrics.Collision()
		g.logger.Info(ctx, "p and q are the same, generating a new q...", log.Fields{"attempt": retries + 1})

		q, err = g.GeneratePrime(ctx)
		if err != nil {
			return Pair{}, fmt.Errorf("regenerate q: %w", err)
		}
	}

	return Pair{P: p, Q: q}, nil
}
