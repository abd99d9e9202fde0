// Package interact executes actions against named page elements robustly: it
// walks the resolved candidate list in priority order, tolerates stale or
// wrong candidates, retries with bounded backoff, and falls back to scripted
// interaction when native interaction fails. Configuration faults propagate
// as errors; ordinary could-not-interact outcomes are returned values.
package interact

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crosslocale/internal/catalog"
	"github.com/xkilldash9x/crosslocale/internal/locator"
)

// Config bounds the engine's retry behavior.
type Config struct {
	// MaxRounds caps how many times the full candidate list is retried.
	MaxRounds int
	// RetryBackoff is the wait between retry rounds.
	RetryBackoff time.Duration
	// ActionsPerSecond paces candidate attempts. Zero disables pacing.
	ActionsPerSecond float64
	// CaptureOnFailure attaches a screenshot to terminal failures when the
	// driver supports it.
	CaptureOnFailure bool
}

func (c *Config) applyDefaults() {
	if c.MaxRounds <= 0 {
		c.MaxRounds = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
}

// Engine performs find/act/verify against a Driver using candidates from the
// locator registry and the session's active language. One Engine serves one
// session; the registry and catalog behind it are shared and read-only.
type Engine struct {
	registry *locator.Registry
	lang     *catalog.Handle
	driver   Driver
	cfg      Config
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewEngine wires an engine to a session's language handle and driver.
func NewEngine(registry *locator.Registry, lang *catalog.Handle, driver Driver, cfg Config, logger *zap.Logger) *Engine {
	cfg.applyDefaults()

	var limiter *rate.Limiter
	if cfg.ActionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), 1)
	}

	return &Engine{
		registry: registry,
		lang:     lang,
		driver:   driver,
		cfg:      cfg,
		limiter:  limiter,
		log:      logger.Named("engine"),
	}
}

// Perform executes one action. Locator and language configuration faults are
// returned as errors immediately, without retry. Everything else — candidates
// not found, not interactable, stale, script failures — accumulates inside
// the returned Outcome, and exhausting every candidate and retry round yields
// Outcome.Success == false rather than an error. Context cancellation aborts
// the loop and is returned as an error.
func (e *Engine) Perform(ctx context.Context, action Action) (*Outcome, error) {
	active := e.lang.ActiveLanguage()

	candidates, err := e.registry.Resolve(active, action.Page, action.Element)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Page:     action.Page,
		Element:  action.Element,
		Language: active,
		Chain:    e.lang.Chain(),
	}
	log := e.log.With(
		zap.String("action", string(action.Kind)),
		zap.String("page", action.Page),
		zap.String("element", action.Element),
		zap.String("language", active))

	for round := 1; round <= e.cfg.MaxRounds; round++ {
		out.Rounds = round

		done, err := e.attemptRound(ctx, action, candidates, out, log)
		if err != nil {
			return nil, err
		}
		if done {
			log.Debug("Interaction succeeded.",
				zap.Int("attempts", out.Attempts),
				zap.Int("round", round),
				zap.Bool("scripted", out.Scripted))
			return out, nil
		}

		if round < e.cfg.MaxRounds {
			if err := sleepCtx(ctx, e.cfg.RetryBackoff); err != nil {
				return nil, err
			}
		}
	}

	log.Warn("Interaction failed after exhausting candidates and retries.",
		zap.Int("attempts", out.Attempts),
		zap.Int("rounds", out.Rounds),
		zap.Strings("chain", out.Chain))
	e.captureFailure(ctx, out)
	return out, nil
}

// attemptRound runs one pass over the candidate list plus the scripted
// fallback. It reports done == true on success and mutates out in place.
func (e *Engine) attemptRound(ctx context.Context, action Action, candidates []locator.Candidate, out *Outcome, log *zap.Logger) (bool, error) {
	var firstFound Handle
	var firstFoundCandidate locator.Candidate
	haveFound := false

	for _, candidate := range candidates {
		if err := e.pace(ctx); err != nil {
			return false, err
		}

		handle, err := e.driver.FindElement(ctx, candidate.Kind, candidate.Value)
		out.Attempts++
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			out.Failures = append(out.Failures, AttemptFailure{
				Candidate: candidate,
				Reason:    classifyFailure(err),
				Detail:    err.Error(),
			})
			continue
		}

		if !haveFound {
			firstFound = handle
			firstFoundCandidate = candidate
			haveFound = true
		}

		if err := e.driver.PerformAction(ctx, handle, action.Kind, action.Payload); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			out.Failures = append(out.Failures, AttemptFailure{
				Candidate: candidate,
				Reason:    classifyFailure(err),
				Detail:    err.Error(),
			})
			continue
		}

		winner := candidate
		out.Success = true
		out.Winner = &winner
		return true, nil
	}

	// Scripted fallback: retarget the first candidate whose element was at
	// least found, even if it refused native interaction.
	if haveFound {
		if runner, ok := e.driver.(ScriptRunner); ok {
			out.Attempts++
			err := runner.ExecuteScript(ctx, firstFound, action.Kind, action.Payload)
			if err == nil {
				winner := firstFoundCandidate
				out.Success = true
				out.Scripted = true
				out.Winner = &winner
				return true, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			out.Failures = append(out.Failures, AttemptFailure{
				Candidate: firstFoundCandidate,
				Reason:    FailureScript,
				Detail:    err.Error(),
			})
			log.Debug("Scripted fallback failed.", zap.Error(err))
		}
	}

	return false, nil
}

// PerformAll executes each action through the same per-action sequence as
// Perform. The policy is explicit: StopOnFailure returns as soon as an
// outcome fails, ContinueAll runs everything and aggregates. Configuration
// faults abort the batch either way.
func (e *Engine) PerformAll(ctx context.Context, actions []Action, policy Policy) ([]*Outcome, error) {
	outcomes := make([]*Outcome, 0, len(actions))
	for _, action := range actions {
		out, err := e.Perform(ctx, action)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
		if !out.Success && policy == StopOnFailure {
			break
		}
	}
	return outcomes, nil
}

// VerifyText reads the element's rendered text and compares it against the
// expectation for key resolved in every chain language, not only the active
// one. This tolerates an application rendering in a language other than the
// test's configured one. ErrMessageNotFound when no chain language has the
// key; locator faults propagate as from Perform.
func (e *Engine) VerifyText(ctx context.Context, key, page, element string) (*TextCheck, error) {
	active := e.lang.ActiveLanguage()
	chain := e.lang.Chain()

	check := &TextCheck{}
	for _, code := range chain {
		if text, ok := e.lang.Catalog().MessageIn(code, key); ok {
			check.Expected = append(check.Expected, ExpectedText{Language: code, Text: text})
		}
	}
	if len(check.Expected) == 0 {
		return nil, fmt.Errorf("%w: key %q (chain %v)", catalog.ErrMessageNotFound, key, chain)
	}

	candidates, err := e.registry.Resolve(active, page, element)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if err := e.pace(ctx); err != nil {
			return nil, err
		}

		handle, err := e.driver.FindElement(ctx, candidate.Kind, candidate.Value)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			check.Failures = append(check.Failures, AttemptFailure{
				Candidate: candidate,
				Reason:    classifyFailure(err),
				Detail:    err.Error(),
			})
			continue
		}

		rendered, err := e.driver.ReadText(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			check.Failures = append(check.Failures, AttemptFailure{
				Candidate: candidate,
				Reason:    classifyFailure(err),
				Detail:    err.Error(),
			})
			continue
		}

		check.Rendered = rendered
		for _, expected := range check.Expected {
			if rendered == expected.Text {
				check.Match = true
				break
			}
		}
		return check, nil
	}

	// No candidate could be found or read; Match stays false.
	return check, nil
}

// pace blocks until the rate limiter admits another attempt.
func (e *Engine) pace(ctx context.Context) error {
	if e.limiter == nil {
		return ctx.Err()
	}
	return e.limiter.Wait(ctx)
}

// captureFailure attaches a screenshot to a terminal failure when possible.
func (e *Engine) captureFailure(ctx context.Context, out *Outcome) {
	if !e.cfg.CaptureOnFailure {
		return
	}
	taker, ok := e.driver.(ScreenshotTaker)
	if !ok {
		return
	}
	shot, err := taker.CaptureScreenshot(ctx)
	if err != nil {
		e.log.Debug("Failed to capture failure screenshot.", zap.Error(err))
		return
	}
	out.Screenshot = shot
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
