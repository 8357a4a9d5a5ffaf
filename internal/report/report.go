package report

import (
	"fmt"
	"io"
	"strings"

	kerrors "github.com/pilab-dev/keysmith/errors"
	"github.com/pilab-dev/keysmith/internal/primes"
	"gopkg.in/yaml.v3"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatHex  Format = "hex"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatHex, FormatYAML:
		return f, nil
	default:
		return "", kerrors.NewInvalidArgument(fmt.Sprintf("unknown output format %q", s))
	}
}

type stringDoc struct {
	Value  string `yaml:"value"`
	Length int    `yaml:"length"`
}

type pairDoc struct {
	Bits int    `yaml:"bits"`
	P    string `yaml:"p"`
	Q    string `yaml:"q"`
}

// WriteString renders a generated random string.
func WriteString(w io.Writer, f Format, s string) error {
	switch f {
	case FormatYAML:
		return writeYAML(w, stringDoc{Value: s, Length: len([]rune(s))})
	case FormatText, FormatHex:
		_, err := fmt.Fprintln(w, s)
		return err
	default:
		return kerrors.NewInvalidArgument(fmt.Sprintf("unknown output format %q", f))
	}
}

// WritePair renders a prime pair.
func WritePair(w io.Writer, f Format, bits int, pair primes.Pair) error {
	switch f {
	case FormatText:
		_, err := fmt.Fprintf(w, "Generated prime p: %s\nGenerated prime q: %s\n", pair.P.String(), pair.Q.String())
		return err
	case FormatHex:
		_, err := fmt.Fprintf(w, "Generated prime p: %#x\nGenerated prime q: %#x\n", pair.P, pair.Q)
		return err
	case FormatYAML:
		return writeYAML(w, pairDoc{Bits: bits, P: pair.P.String(), Q: pair.Q.String()})
	default:
		return kerrors.NewInvalidArgument(fmt.Sprintf("unknown output format %q", f))
	}
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
