package catalog

import (
	"fmt"

	"go.uber.org/zap"
)

// Handle is a session-scoped view of a Catalog. It owns the mutable
// active-language pointer so that parallel sessions switching languages do
// not affect one another. A Handle is not safe for concurrent use; each
// session owns exactly one.
type Handle struct {
	cat    *Catalog
	active string
	log    *zap.Logger
}

// NewHandle creates a session-scoped handle with the given starting language.
func (c *Catalog) NewHandle(defaultCode string, logger *zap.Logger) (*Handle, error) {
	code, err := c.Normalize(defaultCode)
	if err != nil {
		return nil, err
	}
	return &Handle{
		cat:    c,
		active: code,
		log:    logger.Named("lang"),
	}, nil
}

// SetActiveLanguage switches the handle's active language. Fails with
// ErrUnknownLanguage without mutating state if the code is not registered.
func (h *Handle) SetActiveLanguage(code string) error {
	normalized, err := h.cat.Normalize(code)
	if err != nil {
		return err
	}
	h.active = normalized
	h.log.Debug("Active language switched.", zap.String("language", normalized))
	return nil
}

// ActiveLanguage returns the currently active language code.
func (h *Handle) ActiveLanguage() string {
	return h.active
}

// Chain returns the fallback chain for the active language.
func (h *Handle) Chain() []string {
	return h.cat.Chain(h.active)
}

// Catalog returns the shared immutable catalog backing this handle.
func (h *Handle) Catalog() *Catalog {
	return h.cat
}

// Message resolves key in the active language, falling back through the
// chain in order. Deterministic: identical input and active language always
// yield identical text. Fails with ErrMessageNotFound when no chain language
// has the key.
func (h *Handle) Message(key string) (string, error) {
	for _, code := range h.Chain() {
		if text, ok := h.cat.MessageIn(code, key); ok {
			if code != h.active {
				h.log.Debug("Message resolved via fallback.",
					zap.String("key", key),
					zap.String("origin", code),
					zap.String("active", h.active))
			}
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: key %q (active %q, chain %v)", ErrMessageNotFound, key, h.active, h.Chain())
}

// Messages resolves every key independently under the same rule as Message
// and returns texts aligned 1:1 with keys. Lookups are grouped by chain
// language so the chain is walked once rather than once per key; results are
// identical to calling Message per key. The first unresolvable key fails the
// whole call.
func (h *Handle) Messages(keys []string) ([]string, error) {
	out := make([]string, len(keys))
	resolved := make([]bool, len(keys))
	remaining := len(keys)

	for _, code := range h.Chain() {
		if remaining == 0 {
			break
		}
		for i, key := range keys {
			if resolved[i] {
				continue
			}
			if text, ok := h.cat.MessageIn(code, key); ok {
				out[i] = text
				resolved[i] = true
				remaining--
			}
		}
	}

	if remaining > 0 {
		for i, done := range resolved {
			if !done {
				return nil, fmt.Errorf("%w: key %q (active %q, chain %v)", ErrMessageNotFound, keys[i], h.active, h.Chain())
			}
		}
	}
	return out, nil
}

// WithTemporaryLanguage runs fn with the active language switched to code and
// restores the previous language on every exit path, including an error or
// panic inside fn. An invalid code fails up front without touching state.
func (h *Handle) WithTemporaryLanguage(code string, fn func() error) error {
	normalized, err := h.cat.Normalize(code)
	if err != nil {
		return err
	}

	previous := h.active
	h.active = normalized
	defer func() { h.active = previous }()

	return fn()
}
