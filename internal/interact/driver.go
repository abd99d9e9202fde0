package interact

import (
	"context"
	"errors"
)

// Handle is an opaque element reference produced by a Driver's FindElement
// and passed back to the same Driver. The engine never inspects it.
type Handle any

// ActionKind names a browser action the engine can ask a Driver to perform.
type ActionKind string

const (
	ActionClick          ActionKind = "click"
	ActionType           ActionKind = "type"
	ActionCheck          ActionKind = "check"
	ActionReadVisibility ActionKind = "read_visibility"
	ActionReadText       ActionKind = "read_text"
)

// Transient interaction failures a Driver may report. The engine classifies
// them with errors.Is, records them as diagnostics, and moves on to the next
// candidate; it never surfaces them as faults.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrNotInteractable = errors.New("element not interactable")
	ErrStaleHandle     = errors.New("element handle is stale")
	ErrActionTimeout   = errors.New("driver action timed out")
	ErrScriptFailed    = errors.New("script execution failed")
)

// Driver is the browser-automation capability the engine executes against.
// The engine is polymorphic over any implementation; it never depends on a
// concrete browser type. Driver-level timeouts are the implementation's
// concern and surface only as ErrActionTimeout.
type Driver interface {
	// FindElement locates an element via one opaque (kind, value) strategy.
	// A clean miss is reported as ErrElementNotFound.
	FindElement(ctx context.Context, kind, value string) (Handle, error)
	// PerformAction executes an action against a previously found handle,
	// reporting ErrNotInteractable, ErrStaleHandle or ErrActionTimeout as
	// appropriate.
	PerformAction(ctx context.Context, h Handle, kind ActionKind, payload string) error
	// ReadText returns the element's rendered text.
	ReadText(ctx context.Context, h Handle) (string, error)
	// IsVisible reports whether the element is currently visible.
	IsVisible(ctx context.Context, h Handle) (bool, error)
}

// ScriptRunner is the optional scripted-interaction capability. Drivers that
// implement it give the engine a fallback path when native interaction fails
// on an element that was at least found.
type ScriptRunner interface {
	ExecuteScript(ctx context.Context, h Handle, kind ActionKind, payload string) error
}

// ScreenshotTaker is the optional capability used to attach a capture to
// failure diagnostics.
type ScreenshotTaker interface {
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// FailureKind is a structured reason for one failed candidate attempt.
type FailureKind string

const (
	FailureNotFound        FailureKind = "NOT_FOUND"
	FailureNotInteractable FailureKind = "NOT_INTERACTABLE"
	FailureStale           FailureKind = "STALE"
	FailureTimeout         FailureKind = "TIMEOUT"
	FailureScript          FailureKind = "SCRIPT_FAILED"
	FailureUnknown         FailureKind = "UNKNOWN"
)

// classifyFailure maps a Driver error onto a FailureKind for diagnostics.
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, ErrElementNotFound):
		return FailureNotFound
	case errors.Is(err, ErrNotInteractable):
		return FailureNotInteractable
	case errors.Is(err, ErrStaleHandle):
		return FailureStale
	case errors.Is(err, ErrActionTimeout):
		return FailureTimeout
	case errors.Is(err, ErrScriptFailed):
		return FailureScript
	default:
		return FailureUnknown
	}
}
