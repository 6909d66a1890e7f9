package agent

import (
	"context"
	"errors"
)

// Oracle is the language model the agent consults to read utterances and
// settle ambiguous references. The dialogue never depends on the oracle for
// correctness: every consultation has a deterministic fallback.
type Oracle interface {
	Infer(ctx context.Context, system, prompt string) (string, error)
}

// Oracle consultation outcomes, recorded for observability.
const (
	OracleOK        = "ok"
	OracleTimeout   = "timeout"
	OracleError     = "error"
	OracleMalformed = "malformed"
	OracleSkipped   = "skipped"
)

// classifyOracleErr maps an oracle failure to an outcome label.
func classifyOracleErr(err error) string {
	switch {
	case err == nil:
		return OracleOK
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return OracleTimeout
	default:
		return OracleError
	}
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, system, prompt string) (string, error)

func (f OracleFunc) Infer(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
