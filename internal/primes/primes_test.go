package primes_test

import (
	"bytes"
	"context"
	"crypto/rsa"
	"errors"
	"math/big"
	"strings"
	"testing"

	kerrors "github.com/pilab-dev/keysmith/errors"
	"github.com/pilab-dev/keysmith/internal/crypto"
	"github.com/pilab-dev/keysmith/internal/metrics"
	"github.com/pilab-dev/keysmith/internal/primes"
	"github.com/pilab-dev/keysmith/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock Implementations ---

type MockKeyGenerator struct {
	mock.Mock
}

func (m *MockKeyGenerator) GenerateKey(ctx context.Context, primeBits int) (*rsa.PrivateKey, error) {
	args := m.Called(ctx, primeBits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rsa.PrivateKey), args.Error(1)
}

func keyWithPrimes(p, q int64) *rsa.PrivateKey {
	bp, bq := big.NewInt(p), big.NewInt(q)
	return &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: new(big.Int).Mul(bp, bq), E: crypto.PublicExponent},
		Primes:    []*big.Int{bp, bq},
	}
}

func newTestGenerator(t *testing.T, keys crypto.KeyGenerator, opts ...primes.Option) *primes.PairGenerator {
	t.Helper()
	g, err := primes.NewPairGenerator(keys, opts...)
	require.NoError(t, err)
	return g
}

// --- Real key generation ---

func TestGeneratePair_RealKeys(t *testing.T) {
	g := newTestGenerator(t, crypto.NewRSAKeyGenerator(), primes.WithBits(512))

	pair, err := g.GeneratePair(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, 0, pair.P.Cmp(pair.Q))
	for _, v := range []*big.Int{pair.P, pair.Q} {
		assert.True(t, v.ProbablyPrime(20))
		assert.Equal(t, 512, v.BitLen())
	}
}

func TestGeneratePair_DefaultBits(t *testing.T) {
	if testing.Short() {
		t.Skip("1024-bit primes are slow under -short")
	}
	g := newTestGenerator(t, crypto.NewRSAKeyGenerator())
	assert.Equal(t, primes.DefaultBits, g.Bits())

	pair, err := g.GeneratePair(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, 0, pair.P.Cmp(pair.Q))
	assert.Equal(t, 1024, pair.P.BitLen())
	assert.Equal(t, 1024, pair.Q.BitLen())
	assert.True(t, pair.P.ProbablyPrime(20))
	assert.True(t, pair.Q.ProbablyPrime(20))
}

// --- Mocked key generation ---

func TestGeneratePrime_ReturnsFirstFactor(t *testing.T) {
	keys := new(MockKeyGenerator)
	keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(61, 53), nil).Once()

	g := newTestGenerator(t, keys, primes.WithBits(512))
	p, err := g.GeneratePrime(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(61), p.Int64())
	keys.AssertExpectations(t)
}

func TestGeneratePair_RetriesOnCollision(t *testing.T) {
	keys := new(MockKeyGenerator)
	keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(61, 53), nil).Times(3)
	keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(71, 59), nil).Once()

	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg)
	require.NoError(t, err)
	var logs bytes.Buffer
	logger := log.NewZerologAdapterWriter(&logs, zerolog.InfoLevel, false)

	g := newTestGenerator(t, keys,
		primes.WithBits(512),
		primes.WithLogger(logger),
		primes.WithMetrics(c),
	)

	pair, err := g.GeneratePair(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(61), pair.P.Int64())
	assert.Equal(t, int64(71), pair.Q.Int64())
	assert.Equal(t, 2, strings.Count(logs.String(), "p and q are the same, generating a new q..."))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.PrimeCollisions))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.PrimesGenerated))
	keys.AssertNumberOfCalls(t, "GenerateKey", 4)
}

func TestGeneratePair_RetriesExhausted(t *testing.T) {
	keys := new(MockKeyGenerator)
	keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(61, 53), nil)

	g := newTestGenerator(t, keys, primes.WithBits(512), primes.WithMaxRetries(3))

	_, err := g.GeneratePair(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrRetriesExhausted)
	// p, q, then three regenerations of q.
	keys.AssertNumberOfCalls(t, "GenerateKey", 5)
}

func TestGeneratePair_ExternalFailure(t *testing.T) {
	backendErr := errors.New("entropy source unavailable")

	t.Run("on p", func(t *testing.T) {
		keys := new(MockKeyGenerator)
		keys.On("GenerateKey", mock.Anything, 512).Return(nil, backendErr).Once()

		c, err := metrics.NewCollector(prometheus.NewRegistry())
		require.NoError(t, err)
		g := newTestGenerator(t, keys, primes.WithBits(512), primes.WithMetrics(c))

		_, err = g.GeneratePair(context.Background())
		assert.ErrorIs(t, err, kerrors.ErrExternalGenerationFailure)
		assert.ErrorIs(t, err, backendErr)
		assert.Contains(t, err.Error(), "generate p")
		assert.Equal(t, 1.0, testutil.ToFloat64(c.KeyGenerationFailures))
		keys.AssertNumberOfCalls(t, "GenerateKey", 1)
	})

	t.Run("on q", func(t *testing.T) {
		keys := new(MockKeyGenerator)
		keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(61, 53), nil).Once()
		keys.On("GenerateKey", mock.Anything, 512).Return(nil, backendErr).Once()

		g := newTestGenerator(t, keys, primes.WithBits(512))

		_, err := g.GeneratePair(context.Background())
		assert.ErrorIs(t, err, backendErr)
		assert.Contains(t, err.Error(), "generate q")
	})

	t.Run("on regenerated q", func(t *testing.T) {
		keys := new(MockKeyGenerator)
		keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(61, 53), nil).Twice()
		keys.On("GenerateKey", mock.Anything, 512).Return(nil, backendErr).Once()

		g := newTestGenerator(t, keys, primes.WithBits(512))

		_, err := g.GeneratePair(context.Background())
		assert.ErrorIs(t, err, kerrors.ErrExternalGenerationFailure)
		assert.Contains(t, err.Error(), "regenerate q")
	})
}

func TestGeneratePrime_MalformedKeys(t *testing.T) {
	wrongExponent := keyWithPrimes(61, 53)
	wrongExponent.E = 3
	noPrimes := keyWithPrimes(61, 53)
	noPrimes.Primes = nil

	for name, key := range map[string]*rsa.PrivateKey{
		"wrong exponent": wrongExponent,
		"no primes":      noPrimes,
	} {
		t.Run(name, func(t *testing.T) {
			keys := new(MockKeyGenerator)
			keys.On("GenerateKey", mock.Anything, 512).Return(key, nil).Once()

			g := newTestGenerator(t, keys, primes.WithBits(512))
			_, err := g.GeneratePrime(context.Background())
			assert.ErrorIs(t, err, kerrors.ErrExternalGenerationFailure)
		})
	}
}

func TestGeneratePrime_CopiesFactor(t *testing.T) {
	key := keyWithPrimes(61, 53)
	keys := new(MockKeyGenerator)
	keys.On("GenerateKey", mock.Anything, 512).Return(key, nil).Once()

	g := newTestGenerator(t, keys, primes.WithBits(512))
	p, err := g.GeneratePrime(context.Background())
	require.NoError(t, err)

	p.SetInt64(1)
	assert.Equal(t, int64(61), key.Primes[0].Int64())
}

func TestGeneratePair_CanceledDuringRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	keys := new(MockKeyGenerator)
	keys.On("GenerateKey", mock.Anything, 512).Return(keyWithPrimes(61, 53), nil).Once()
	keys.On("GenerateKey", mock.Anything, 512).
		Run(func(mock.Arguments) { cancel() }).
		Return(keyWithPrimes(61, 53), nil).Once()

	g := newTestGenerator(t, keys, primes.WithBits(512))

	_, err := g.GeneratePair(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	keys.AssertNumberOfCalls(t, "GenerateKey", 2)
}

func TestNewPairGenerator_InvalidArgument(t *testing.T) {
	keys := new(MockKeyGenerator)

	_, err := primes.NewPairGenerator(nil)
	assert.ErrorIs(t, err, kerrors.ErrInvalidArgument)

	_, err = primes.NewPairGenerator(keys, primes.WithBits(256))
	assert.ErrorIs(t, err, kerrors.ErrInvalidArgument)

	_, err = primes.NewPairGenerator(keys, primes.WithMaxRetries(0))
	assert.ErrorIs(t, err, kerrors.ErrInvalidArgument)
}
