// Package locator maps a (language, page, element) triple to an ordered list
// of alternative ways to find the same element, merged across the language
// fallback chain and cached for the remainder of the run.
package locator

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateRegistration indicates a (language, page) table was loaded
	// twice. Configuration fault, fatal, never retried.
	ErrDuplicateRegistration = errors.New("locator table already registered")
	// ErrLocatorNotFound indicates an element key absent from every
	// language's table for a page. Authoring fault, never retried.
	ErrLocatorNotFound = errors.New("locator not found in any chain language")
)

// Strategy is one opaque (kind, value) pair describing a way to locate an
// element. Kinds are interpreted by the Driver, never by the registry.
type Strategy struct {
	Kind  string
	Value string
}

// Candidate is a Strategy plus the language whose table contributed it.
// Origin drives priority ordering and failure diagnostics.
type Candidate struct {
	Strategy
	Origin string
}

// ChainProvider supplies the fallback chain for an active language.
// Implemented by catalog.Catalog.
type ChainProvider interface {
	Chain(active string) []string
}

type cacheKey struct {
	lang    string
	page    string
	element string
}

// Registry holds per-language, per-page locator tables and the resolved
// candidate cache. Tables are registered once during startup; after that the
// registry is read-mostly and safe to share across concurrent sessions.
type Registry struct {
	chains ChainProvider
	log    *zap.Logger

	mu     sync.RWMutex
	tables map[string]map[string]map[string][]Candidate
	cache  map[cacheKey][]Candidate
	// merges counts distinct cache-miss computations, for cache tests.
	merges int
}

// New creates an empty registry that consults chains for fallback ordering.
func New(chains ChainProvider, logger *zap.Logger) *Registry {
	return &Registry{
		chains: chains,
		log:    logger.Named("locator"),
		tables: make(map[string]map[string]map[string][]Candidate),
		cache:  make(map[cacheKey][]Candidate),
	}
}

// RegisterTable loads the locator table fragment for one page in one
// language. Authoring order of each element's strategies is preserved as
// priority order within that language. Fails with ErrDuplicateRegistration
// if the (language, page) pair was already loaded.
func (r *Registry) RegisterTable(lang, page string, table map[string][]Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pages, ok := r.tables[lang]
	if !ok {
		pages = make(map[string]map[string][]Candidate)
		r.tables[lang] = pages
	}
	if _, dup := pages[page]; dup {
		return fmt.Errorf("%w: language %q, page %q", ErrDuplicateRegistration, lang, page)
	}

	elements := make(map[string][]Candidate, len(table))
	for element, strategies := range table {
		candidates := make([]Candidate, 0, len(strategies))
		for _, s := range strategies {
			candidates = append(candidates, Candidate{Strategy: s, Origin: lang})
		}
		elements[element] = candidates
	}
	pages[page] = elements

	r.log.Debug("Locator table registered.",
		zap.String("language", lang),
		zap.String("page", page),
		zap.Int("elements", len(elements)))
	return nil
}

// Resolve returns the merged, deduplicated, priority-ordered candidate list
// for an element: the active language's candidates in authoring order, then
// each fallback language's in chain order, with exact duplicate (kind, value)
// pairs suppressed keeping the first occurrence. Results are cached per
// (activeLang, page, element) and the merge runs at most once per tuple; the
// returned slice is a copy the caller may keep. Fails with ErrLocatorNotFound
// when no language's table has the element.
func (r *Registry) Resolve(activeLang, page, element string) ([]Candidate, error) {
	key := cacheKey{lang: activeLang, page: page, element: element}

	r.mu.RLock()
	cached, hit := r.cache[key]
	r.mu.RUnlock()
	if hit {
		return cloneCandidates(cached), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another session may have populated the entry while we upgraded the lock.
	if cached, hit = r.cache[key]; hit {
		return cloneCandidates(cached), nil
	}

	merged := r.merge(activeLang, page, element)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: element %q on page %q (active %q)", ErrLocatorNotFound, element, page, activeLang)
	}

	r.merges++
	r.cache[key] = merged
	return cloneCandidates(merged), nil
}

// merge performs the chain-ordered concatenation and dedup. Caller holds mu.
func (r *Registry) merge(activeLang, page, element string) []Candidate {
	var merged []Candidate
	seen := make(map[Strategy]bool)

	for _, lang := range r.chains.Chain(activeLang) {
		for _, candidate := range r.tables[lang][page][element] {
			if seen[candidate.Strategy] {
				continue
			}
			seen[candidate.Strategy] = true
			merged = append(merged, candidate)
		}
	}
	return merged
}

// Uncovered reports every (page, element) key that no language in the chain
// can resolve. A non-empty result means the chain omits a registered
// language; run it during setup to fail fast instead of mid-scenario.
func (r *Registry) Uncovered(chain []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inChain := make(map[string]bool, len(chain))
	for _, lang := range chain {
		inChain[lang] = true
	}

	var uncovered []string
	for _, key := range r.allKeys() {
		covered := false
		for _, lang := range chain {
			if len(r.tables[lang][key.page][key.element]) > 0 {
				covered = true
				break
			}
		}
		if !covered {
			uncovered = append(uncovered, key.page+"/"+key.element)
		}
	}
	sort.Strings(uncovered)
	return uncovered
}

// MissingByLanguage reports, per chain language, the (page, element) keys its
// tables lack. Gaps here are covered by the chain merge; the report exists so
// a setup check can surface incomplete locator authoring. Caller may treat it
// as advisory.
func (r *Registry) MissingByLanguage(chain []string) map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	missing := make(map[string][]string)
	for _, key := range r.allKeys() {
		for _, lang := range chain {
			if len(r.tables[lang][key.page][key.element]) == 0 {
				missing[lang] = append(missing[lang], key.page+"/"+key.element)
			}
		}
	}
	for lang := range missing {
		sort.Strings(missing[lang])
	}
	return missing
}

type pageElement struct {
	page    string
	element string
}

// allKeys returns the union of (page, element) keys across every registered
// language. Caller holds at least a read lock.
func (r *Registry) allKeys() []pageElement {
	seen := make(map[pageElement]bool)
	var union []pageElement
	for _, pages := range r.tables {
		for page, elements := range pages {
			for element := range elements {
				key := pageElement{page: page, element: element}
				if !seen[key] {
					seen[key] = true
					union = append(union, key)
				}
			}
		}
	}
	return union
}

func cloneCandidates(in []Candidate) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)
	return out
}
