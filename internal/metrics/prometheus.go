package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the counters updated by the generators. A nil *Collector is
// valid and records nothing.
type Collector struct {
	StringsGenerated      prometheus.Counter
	PrimesGenerated       prometheus.Counter
	PrimeCollisions       prometheus.Counter
	KeyGenerationFailures prometheus.Counter
}

// NewCollector creates the counters and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		StringsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keysmith_strings_generated_total",
			Help: "Total number of random strings generated.",
		}),
		PrimesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keysmith_primes_generated_total",
			Help: "Total number of primes extracted from generated keys.",
		}),
		PrimeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keysmith_prime_collisions_total",
			Help: "Total number of times q equalled p and was regenerated.",
		}),
		KeyGenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keysmith_key_generation_failures_total",
			Help: "Total number of failed key generations.",
		}),
	}

	if reg != nil {
		for _, m := range []prometheus.Collector{
			c.StringsGenerated,
			c.PrimesGenerated,
			c.PrimeCollisions,
			c.KeyGenerationFailures,
		} {
			if err := reg.Register(m); err != nil {
				return nil, fmt.Errorf("register metric: %w", err)
			}
		}
	}

	return c, nil
}

func (c *Collector) StringGenerated() {
	if c != nil {
		c.StringsGenerated.Inc()
	}
}

func (c *Collector) PrimeGenerated() {
	if c != nil {
		c.PrimesGenerated.Inc()
	}
}

func (c *Collector) Collision() {
	if c != nil {
		c.PrimeCollisions.Inc()
	}
}

func (c *Collector) KeyGenerationFailed() {
	if c != nil {
		c.KeyGenerationFailures.Inc()
	}
}

// WriteTextfile dumps g in the text exposition format to path, for the
// node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
