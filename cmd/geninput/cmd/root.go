package cmd

import (
	"github.com/pilab-dev/keysmith/internal/cli"
	"github.com/pilab-dev/keysmith/internal/randstr"
	"github.com/pilab-dev/keysmith/internal/report"
	"github.com/pilab-dev/keysmith/log"
	"github.com/spf13/cobra"
)

const (
	flagLength = "length"
	flagPool   = "pool"
)

// NewRootCmd builds the geninput command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geninput",
		Short: "Print a random alphanumeric string",
		Long: `geninput prints a string of fixed length whose characters are drawn
uniformly, with replacement, from a character pool (ASCII letters and digits
by default).`,
		Args: cobra.NoArgs,
		RunE: runGenInput,
	}
	cli.Silence(cmd)
	cli.AddCommonFlags(cmd)
	cmd.Flags().Int(flagLength, randstr.DefaultLength, "number of characters to generate")
	cmd.Flags().String(flagPool, randstr.DefaultChars, "characters to sample from")
	return cmd
}

func runGenInput(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()

	rt, err := cli.Setup(cmd, map[string]string{
		flagLength: "string.length",
		flagPool:   "string.pool",
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
	if err := cfg.ValidateString(); err != nil {
		return rt.Fail(ctx, "invalid configuration", err)
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return rt.Fail(ctx, "invalid configuration", err)
	}
	pool, err := randstr.NewPool(cfg.String.Pool)
	if err != nil {
		return rt.Fail(ctx, "invalid configuration", err)
	}

	gen := randstr.NewGenerator(randstr.WithMetrics(rt.Metrics))
	rt.Logger.Debug(ctx, "generating random string", log.Fields{"length": cfg.String.Length, "pool_size": pool.Len()})
	s, err := gen.Generate(ctx, cfg.String.Length, pool)
	if err != nil {
		return rt.Fail(ctx, "string generation failed", err)
	}

	if err := report.WriteString(cmd.OutOrStdout(), format, s); err != nil {
		return rt.Fail(ctx, "failed to write output", err)
	}
	return nil
}

// Execute runs the geninput command.
func Execute() {
	cli.Execute(NewRootCmd())
}
