// Package session binds the pieces one test session owns: its active
// language, its driver and its interaction engine. The catalog and locator
// registry behind a session are shared, immutable after startup, and safe to
// use from many sessions at once; everything mutable is per-session so a
// language switch in one scenario never leaks into another running in
// parallel.
package session

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosslocale/internal/catalog"
	"github.com/xkilldash9x/crosslocale/internal/interact"
	"github.com/xkilldash9x/crosslocale/internal/locator"
)

// Session is one independent test-execution context.
type Session struct {
	// ID identifies the session in logs and diagnostics.
	ID string
	// Lang owns this session's active language.
	Lang *catalog.Handle
	// Engine performs interactions through this session's driver.
	Engine *interact.Engine

	log *zap.Logger
}

// Manager creates sessions over the shared catalog and registry.
type Manager struct {
	cat         *catalog.Catalog
	registry    *locator.Registry
	engineCfg   interact.Config
	defaultLang string
	log         *zap.Logger
}

// NewManager validates the default language once and returns a factory for
// sessions. The same manager may serve many concurrent sessions.
func NewManager(cat *catalog.Catalog, registry *locator.Registry, engineCfg interact.Config, defaultLang string, logger *zap.Logger) (*Manager, error) {
	normalized, err := cat.Normalize(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language: %w", err)
	}
	return &Manager{
		cat:         cat,
		registry:    registry,
		engineCfg:   engineCfg,
		defaultLang: normalized,
		log:         logger.Named("session"),
	}, nil
}

// NewSession creates a session bound to its own driver instance, starting in
// the manager's default language.
func (m *Manager) NewSession(driver interact.Driver) (*Session, error) {
	id := uuid.NewString()
	log := m.log.With(zap.String("session_id", id))

	lang, err := m.cat.NewHandle(m.defaultLang, log)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:     id,
		Lang:   lang,
		Engine: interact.NewEngine(m.registry, lang, driver, m.engineCfg, log),
		log:    log,
	}
	log.Debug("Session created.", zap.String("language", m.defaultLang))
	return s, nil
}

// UseLanguage switches this session's active language, accepting the same
// codes and aliases as the catalog.
func (s *Session) UseLanguage(code string) error {
	return s.Lang.SetActiveLanguage(code)
}
