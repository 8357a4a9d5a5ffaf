// Package randstr generates fixed-length strings sampled uniformly, with
// replacement, from a character pool.
package randstr

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	kerrors "github.com/pilab-dev/keysmith/errors"
	"github.com/pilab-dev/keysmith/internal/metrics"
	"github.com/pilab-dev/keysmith/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultLength is the length of a generated string when none is configured.
	DefaultLength = 200

	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"

	// DefaultChars is ASCII letters followed by digits.
	DefaultChars = lowercase + uppercase + digits
)

// DefaultPool is the pool of ASCII letters and digits.
var DefaultPool = MustPool(DefaultChars)

// Pool is an immutable ordered set of characters.
type Pool struct {
	chars []rune
	set   map[rune]struct{}
}

// NewPool builds a Pool from chars. chars must be non-empty and must not
// repeat a character.
func NewPool(chars string) (Pool, error) {
	if chars == "" {
		return Pool{}, kerrors.NewInvalidArgument("character pool is empty")
	}
	p := Pool{set: make(map[rune]struct{}, len(chars))}
	for _, r := range chars {
		if _, dup := p.set[r]; dup {
			return Pool{}, kerrors.NewInvalidArgument(fmt.Sprintf("character pool repeats %q", r))
		}
		p.set[r] = struct{}{}
		p.chars = append(p.chars, r)
	}
	return p, nil
}

// MustPool is like NewPool but panics on an invalid pool.
func MustPool(chars string) Pool {
	p, err := NewPool(chars)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of characters in the pool.
func (p Pool) Len() int { return len(p.chars) }

// Contains reports whether r is in the pool.
func (p Pool) Contains(r rune) bool {
	_, ok := p.set[r]
	return ok
}

func (p Pool) String() string { return string(p.chars) }

// Generator draws random strings from a random source.
type Generator struct {
	random  io.Reader
	metrics *metrics.Collector
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandom sets the random source. The default is crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Generator) { g.metrics = c }
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{random: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a string of exactly length characters, each drawn
// independently and uniformly from pool.
func (g *Generator) Generate(ctx context.Context, length int, pool Pool) (string, error) {
	_, span := tracing.Tracer().Start(ctx, "randstr.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("randstr.length", length), attribute.Int("randstr.pool_size", pool.Len()))

	if length <= 0 {
		return "", kerrors.NewInvalidArgument(fmt.Sprintf("length must be positive, got %d", length))
	}
	if pool.Len() == 0 {
		return "", kerrors.NewInvalidArgument("character pool is empty")
	}

	size := big.NewInt(int64(pool.Len()))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		// rand.Int rejects out-of-range draws, so every index is equally likely.
		n, err := rand.Int(g.random, size)
		if err != nil {
			span.RecordError(err)
			return "", kerrors.NewExternalGenerationFailure("read random source", err)
		}
		sb.WriteRune(pool.chars[n.Int64()])
	}

	g.metrics.StringGenerated()
	return sb.String(), nil
}
