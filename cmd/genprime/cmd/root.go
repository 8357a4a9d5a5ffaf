package cmd

import (
	"github.com/pilab-dev/keysmith/internal/cli"
	"github.com/pilab-dev/keysmith/internal/crypto"
	"github.com/pilab-dev/keysmith/internal/primes"
	"github.com/pilab-dev/keysmith/internal/report"
	"github.com/pilab-dev/keysmith/log"
	"github.com/spf13/cobra"
)

const (
	flagBits       = "bits"
	flagMaxRetries = "max-retries"
)

// NewRootCmd builds the genprime command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genprime",
		Short: "Generate two distinct large primes suitable for an RSA modulus",
		Long: `genprime generates two RSA keys with public exponent 65537 and prints
the first secret prime factor of each as p and q. q is regenerated while it
equals p.`,
		Args: cobra.NoArgs,
		RunE: runGenPrime,
	}
	cli.Silence(cmd)
	cli.AddCommonFlags(cmd)
	cmd.Flags().Int(flagBits, primes.DefaultBits, "bit length of each prime")
	cmd.Flags().Int(flagMaxRetries, primes.DefaultMaxRetries, "give up after this many p == q collisions")
	return cmd
}

func runGenPrime(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()

	rt, err := cli.Setup(cmd, map[string]string{
		flagBits:       "prime.bits",
		flagMaxRetries: "prime.max_retries",
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(ctx); cerr != nil && err == nil {
			err = rt.Fail(ctx, "failed to flush telemetry", cerr)
		}
	}()

	cfg := rt.Config
	if err := cfg.ValidatePrime(); err != nil {
		return rt.Fail(ctx, "invalid configuration", err)
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return rt.Fail(ctx, "invalid configuration", err)
	}

	gen, err := primes.NewPairGenerator(crypto.NewRSAKeyGenerator(),
		primes.WithBits(cfg.Prime.Bits),
		primes.WithMaxRetries(cfg.Prime.MaxRetries),
		primes.WithLogger(rt.Logger),
		primes.WithMetrics(rt.Metrics),
	)
	if err != nil {
		return rt.Fail(ctx, "invalid configuration", err)
	}

	rt.Logger.Debug(ctx, "generating prime pair", log.Fields{"bits": gen.Bits()})
	pair, err := gen.GeneratePair(ctx)
	if err != nil {
		return rt.Fail(ctx, "prime generation failed", err)
	}

	if err := report.WritePair(cmd.OutOrStdout(), format, gen.Bits(), pair); err != nil {
		return rt.Fail(ctx, "failed to write output", err)
	}
	return nil
}

// Execute runs the genprime command.
func Execute() {
	cli.Execute(NewRootCmd())
}
