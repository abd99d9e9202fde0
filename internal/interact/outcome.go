package interact

import (
	"github.com/xkilldash9x/crosslocale/internal/locator"
)

// Action is one interaction request against a named element.
type Action struct {
	Kind    ActionKind
	Page    string
	Element string
	// Payload carries action input, e.g. the text for ActionType.
	Payload string
}

// AttemptFailure records one failed candidate attempt for diagnostics.
type AttemptFailure struct {
	Candidate locator.Candidate
	Reason    FailureKind
	// Detail is the underlying driver error text.
	Detail string
}

// Outcome is the result of one Perform call. Failure is a value, not an
// error: Success is false after candidates and retry rounds are exhausted,
// with every attempt's failure preserved. The engine never retains an
// Outcome; the caller owns it.
type Outcome struct {
	Success bool
	// Scripted is true when the winning interaction went through the
	// ScriptRunner fallback rather than native driver interaction.
	Scripted bool
	// Winner is the candidate that succeeded, nil on failure.
	Winner *locator.Candidate
	// Attempts counts every candidate find/act attempt, scripted included.
	Attempts int
	// Rounds counts the retry rounds consumed.
	Rounds int
	// Failures lists every failed attempt in order, preserved on success too.
	Failures []AttemptFailure

	// Context for failure reports: what was being resolved and how.
	Page     string
	Element  string
	Language string
	Chain    []string
	// Screenshot is a capture taken on terminal failure when the driver
	// supports it and diagnostics captures are enabled.
	Screenshot []byte
}

// ExpectedText is one language's resolved expectation for a message key.
type ExpectedText struct {
	Language string
	Text     string
}

// TextCheck is the result of a VerifyText call. Match is true when the
// rendered text equals any chain language's variant.
type TextCheck struct {
	Match    bool
	Rendered string
	Expected []ExpectedText
	// Failures lists candidates that could not be found or read.
	Failures []AttemptFailure
}

// Policy selects how PerformAll reacts to a failed action.
type Policy string

const (
	// StopOnFailure aborts the batch at the first failed outcome.
	StopOnFailure Policy = "stop_on_failure"
	// ContinueAll runs every action and aggregates all outcomes.
	ContinueAll Policy = "continue_all"
)
