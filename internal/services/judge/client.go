// Package judge obtains structured trade verdicts from an external
// natural-language risk reasoner.
package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	domsvc "Aegis/internal/domain/service"
	"Aegis/pkg/logger"
	"Aegis/pkg/metrics"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 3 * time.Second
	DefaultTimeout   = 30 * time.Second
)

var (
	// ErrOverload is a retryable back-pressure signal from the service.
	ErrOverload = errors.New("judgment service overloaded")
	// ErrContractViolation marks an empty or malformed response.
	ErrContractViolation = errors.New("judgment contract violation")
	// ErrTimeout means every attempt was spent on overloads. It only ever
	// surfaces through the reason of a fail-safe verdict.
	ErrTimeout = errors.New("judgment retries exhausted")
)

// resultKind classifies one attempt for the retry loop.
type resultKind int

const (
	resultOK resultKind = iota
	resultOverload
	resultFailure
)

func (k resultKind) String() string {
	switch k {
	case resultOK:
		return "ok"
	case resultOverload:
		return "overload"
	default:
		return "failure"
	}
}

type attemptResult struct {
	kind    resultKind
	verdict models.Verdict
	err     error
}

// Client turns snapshot and simulation into a Verdict. Evaluate never
// returns an error; every failure folds into the verdict itself.
type Client struct {
	completer Completer
	attempts  int
	baseDelay time.Duration
	timeout   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   drepo.Metrics
	log       *logger.Logger
}

type Option func(*Client)

// WithAttempts bounds the number of calls per evaluation.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBaseDelay sets the backoff unit; the wait after attempt i is i units.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithTimeout bounds each individual call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSleeper replaces the context-aware sleep, for tests.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(completer Completer, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		attempts:  DefaultAttempts,
		baseDelay: DefaultBaseDelay,
		timeout:   DefaultTimeout,
		sleep:     sleepCtx,
		metrics:   metrics.Nop{},
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Component("judge")
	return c
}

// Evaluate asks the service for a verdict. Overloads are retried with a
// linear backoff; any other failure yields an ERROR verdict at once; an
// exhausted budget yields a REJECT "Timeout" verdict.
func (c *Client) Evaluate(ctx context.Context, snap models.MarketSnapshot, sim models.SimulationResult, contextText string) models.Verdict {
	prompt, err := BuildPrompt(snap, sim, contextText)
	if err != nil {
		return failureVerdict(err)
	}

	for attempt := 1; attempt <= c.attempts; attempt++ {
		res := c.attempt(ctx, prompt)
		c.metrics.RecordJudgeAttempt(res.kind.String())

		switch res.kind {
		case resultOK:
			c.log.Debug("verdict received",
				logger.Int("attempt", attempt),
				logger.String("decision", string(res.verdict.Decision)),
				logger.Int("score", res.verdict.Score),
			)
			return res.verdict
		case resultFailure:
			c.log.Error("judgment call failed", logger.Int("attempt", attempt), logger.Error(res.err))
			return failureVerdict(res.err)
		case resultOverload:
			if attempt == c.attempts {
				break
			}
			wait := time.Duration(attempt) * c.baseDelay
			c.log.Warn("judgment service overloaded, backing off",
				logger.Int("attempt", attempt),
				logger.Duration("wait_ms", wait),
			)
			if err := c.sleep(ctx, wait); err != nil {
				return timeoutVerdict()
			}
		}
	}

	c.log.Warn("judgment retries exhausted", logger.Int("attempts", c.attempts), logger.Error(ErrTimeout))
	return timeoutVerdict()
}

func (c *Client) attempt(ctx context.Context, prompt string) attemptResult {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.completer.Complete(callCtx, prompt)
	if err != nil {
		if IsOverload(err) {
			return attemptResult{kind: resultOverload, err: err}
		}
		return attemptResult{kind: resultFailure, err: err}
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		return attemptResult{kind: resultFailure, err: err}
	}
	return attemptResult{kind: resultOK, verdict: v}
}

func failureVerdict(err error) models.Verdict {
	reason, flag := "Connection Failed", "API Error"
	if errors.Is(err, ErrContractViolation) {
		reason, flag = "Invalid Response", "Contract Violation"
	}
	return models.Verdict{
		Decision:  models.DecisionError,
		Score:     0,
		Reason:    fmt.Sprintf("%s: %v", reason, err),
		RiskFlags: []string{flag},
	}
}

func timeoutVerdict() models.Verdict {
	return models.Verdict{
		Decision:  models.DecisionReject,
		Score:     0,
		Reason:    "Timeout",
		RiskFlags: []string{"Overload"},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ domsvc.Judge = (*Client)(nil)
