// Package catalog resolves human-readable text for message keys across a
// configured language fallback chain. The Catalog itself is immutable after
// construction and safe to share across concurrent test sessions; the active
// language lives on per-session Handles.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrUnknownLanguage indicates a language code that was never registered.
	// This is a configuration fault and is never retried.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrMessageNotFound indicates a message key absent from every language in
	// the fallback chain. This is an authoring fault, not a transient.
	ErrMessageNotFound = errors.New("message not found in any chain language")
)

// Language describes one registered language: its BCP 47 code and a display
// name. Position in the slice passed to New fixes its place in the global
// fallback chain.
type Language struct {
	Code string
	Name string
}

// Catalog holds the per-language message tables and the global fallback
// chain ordering. Build it once at startup; it is read-only afterwards.
type Catalog struct {
	languages []Language
	tags      []language.Tag
	matcher   language.Matcher
	tables    map[string]map[string]string
	log       *zap.Logger
}

// New builds a Catalog from an ordered language list and per-language
// key-to-text tables. The language order defines the global fallback chain.
// Languages without a table are registered with an empty one; tables keyed by
// an unregistered code are rejected.
func New(languages []Language, tables map[string]map[string]string, logger *zap.Logger) (*Catalog, error) {
	if len(languages) == 0 {
		return nil, fmt.Errorf("catalog requires at least one language")
	}

	c := &Catalog{
		languages: make([]Language, 0, len(languages)),
		tags:      make([]language.Tag, 0, len(languages)),
		tables:    make(map[string]map[string]string, len(languages)),
		log:       logger.Named("catalog"),
	}

	for _, lang := range languages {
		code := strings.ToLower(strings.TrimSpace(lang.Code))
		if code == "" {
			return nil, fmt.Errorf("language with empty code")
		}
		if _, dup := c.tables[code]; dup {
			return nil, fmt.Errorf("language %q registered twice", code)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("invalid language code %q: %w", code, err)
		}
		name := lang.Name
		if name == "" {
			name = display.Self.Name(tag)
		}

		table := make(map[string]string, len(tables[code]))
		for key, text := range tables[code] {
			table[key] = text
		}

		c.languages = append(c.languages, Language{Code: code, Name: name})
		c.tags = append(c.tags, tag)
		c.tables[code] = table
	}

	for code := range tables {
		if _, ok := c.tables[strings.ToLower(code)]; !ok {
			return nil, fmt.Errorf("message table for unregistered language %q", code)
		}
	}

	c.matcher = language.NewMatcher(c.tags)
	c.log.Info("Catalog built.",
		zap.Int("languages", len(c.languages)),
		zap.Strings("chain", c.Chain("")))
	return c, nil
}

// Languages returns the registered languages in global fallback-chain order.
func (c *Catalog) Languages() []Language {
	out := make([]Language, len(c.languages))
	copy(out, c.languages)
	return out
}

// Chain returns the fallback chain for the given active language: the active
// language first, then the remaining registered languages in global order.
// An empty or unregistered active code yields the global order unchanged.
func (c *Catalog) Chain(active string) []string {
	chain := make([]string, 0, len(c.languages))
	if _, ok := c.tables[active]; ok {
		chain = append(chain, active)
	}
	for _, lang := range c.languages {
		if lang.Code != active {
			chain = append(chain, lang.Code)
		}
	}
	return chain
}

// Normalize maps a language code or name to a registered code. It accepts
// exact codes ("vi"), BCP 47 variants matched against the registered tags
// ("en-US" matches "en"), and English or native display names ("vietnamese",
// "tiếng việt"). Fails with ErrUnknownLanguage otherwise.
func (c *Catalog) Normalize(code string) (string, error) {
	in := strings.ToLower(strings.TrimSpace(code))
	if in == "" {
		return "", fmt.Errorf("%w: empty code", ErrUnknownLanguage)
	}
	if _, ok := c.tables[in]; ok {
		return in, nil
	}

	if tag, err := language.Parse(in); err == nil {
		if _, idx, conf := c.matcher.Match(tag); conf > language.No {
			return c.languages[idx].Code, nil
		}
	}

	for i, tag := range c.tags {
		if strings.EqualFold(display.English.Tags().Name(tag), in) ||
			strings.EqualFold(c.languages[i].Name, in) {
			return c.languages[i].Code, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
}

// MessageIn looks up key in exactly one language's table, without fallback.
func (c *Catalog) MessageIn(code, key string) (string, bool) {
	text, ok := c.tables[code][key]
	return text, ok
}

// KeyByText reverse-looks-up the key whose text matches the given rendered
// text (case-insensitive) in one language's table.
func (c *Catalog) KeyByText(code, text string) (string, bool) {
	for key, candidate := range c.tables[code] {
		if strings.EqualFold(candidate, text) {
			return key, true
		}
	}
	return "", false
}

// Keys returns the sorted message keys present in one language's table.
func (c *Catalog) Keys(code string) []string {
	table := c.tables[code]
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ValidateCompleteness reports, for every key present in the union of the
// given languages' tables, which of those languages are missing it. Keys no
// language is missing are omitted. It never fails; callers decide whether
// missing translations are fatal. Unregistered codes are treated as having
// empty tables and therefore show up as missing every key.
func (c *Catalog) ValidateCompleteness(codes ...string) map[string][]string {
	union := make(map[string]struct{})
	for _, code := range codes {
		for key := range c.tables[code] {
			union[key] = struct{}{}
		}
	}

	missing := make(map[string][]string)
	for key := range union {
		for _, code := range codes {
			if _, ok := c.tables[code][key]; !ok {
				missing[key] = append(missing[key], code)
			}
		}
	}
	for key := range missing {
		sort.Strings(missing[key])
	}
	return missing
}
