package validation

import (
	"context"
	"log/slog"

	"fdctax/internal/platform/metrics"
	"fdctax/pkg/platform/circuit"
)

// Checker evaluates an identifier. The local implementation never fails; a
// remote one may return an error, which callers surface as MsgValidatorError.
type Checker interface {
	Check(ctx context.Context, kind Kind, raw string) (Result, error)
}

// LocalChecker runs the validators in-process.
type LocalChecker struct {
	metrics *metrics.Metrics
}

// NewLocalChecker returns a Checker backed by ValidateTFN/ValidateABN.
func NewLocalChecker(m *metrics.Metrics) *LocalChecker {
	return &LocalChecker{metrics: m}
}

func (c *LocalChecker) Check(ctx context.Context, kind Kind, raw string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res := Validate(kind, raw)
	c.metrics.IncValidation(string(kind), Outcome(res))
	return res, nil
}

// Outcome labels a result for metrics and logs.
func Outcome(r Result) string {
	switch {
	case r.IsValid():
		return "valid"
	case r.Evaluated():
		return "invalid"
	default:
		return "unevaluated"
	}
}

// FallbackChecker prefers a primary (usually remote) checker and answers from
// a local one while the primary's circuit is open. The validators are pure, so
// both paths agree on every verdict.
type FallbackChecker struct {
	primary  Checker
	fallback Checker
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewFallbackChecker wraps primary with a breaker named after it.
func NewFallbackChecker(primary, fallback Checker, breaker *circuit.Breaker, logger *slog.Logger) *FallbackChecker {
	return &FallbackChecker{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (c *FallbackChecker) Check(ctx context.Context, kind Kind, raw string) (Result, error) {
	if c.breaker.IsOpen() {
		res, err := c.primary.Check(ctx, kind, raw)
		if err == nil {
			if usePrimary, change := c.breaker.RecordSuccess(); usePrimary {
				if change.Closed {
					c.logger.InfoContext(ctx, "validation upstream recovered", "breaker", c.breaker.Name())
				}
				return res, nil
			}
		} else {
			c.breaker.RecordFailure()
		}
		return c.fallback.Check(ctx, kind, raw)
	}

	res, err := c.primary.Check(ctx, kind, raw)
	if err == nil {
		c.breaker.RecordSuccess()
		return res, nil
	}
	useFallback, change := c.breaker.RecordFailure()
	if change.Opened {
		c.logger.WarnContext(ctx, "validation upstream failing, answering locally",
			"breaker", c.breaker.Name(),
			"error", err,
		)
	}
	if useFallback {
		return c.fallback.Check(ctx, kind, raw)
	}
	return Result{}, err
}
