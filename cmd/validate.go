package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosslocale/internal/catalog"
	"github.com/xkilldash9x/crosslocale/internal/config"
	"github.com/xkilldash9x/crosslocale/internal/locator"
	"github.com/xkilldash9x/crosslocale/internal/observability"
)

// newValidateCommand wires the setup check: load every message catalog and
// locator table, then report translation gaps and locator keys the fallback
// chain cannot cover. Uncovered locators fail the run; missing translations
// are fatal only with --strict since the chain merge papers over them.
func newValidateCommand(cfg *config.Config) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check message catalogs and locator tables for completeness.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := observability.GetLogger().Named("validate")

			cat, err := catalog.LoadDir(cfg.Locales.MessagesDir, cfg.Locales.Chain, log)
			if err != nil {
				return err
			}

			registry := locator.New(cat, log)
			if err := locator.LoadDir(registry, cfg.Locales.LocatorsDir, cfg.Locales.Chain, log); err != nil {
				return err
			}

			chain := cat.Chain(cfg.Locales.Default)
			incomplete := false

			missing := cat.ValidateCompleteness(chain...)
			for key, languages := range missing {
				incomplete = true
				log.Warn("Message key is missing translations.",
					zap.String("key", key),
					zap.Strings("missing_in", languages))
			}

			for lang, keys := range registry.MissingByLanguage(chain) {
				log.Info("Locator keys not authored for language (covered by chain merge).",
					zap.String("language", lang),
					zap.Strings("keys", keys))
			}

			if uncovered := registry.Uncovered(chain); len(uncovered) > 0 {
				for _, key := range uncovered {
					log.Error("Locator key is not resolvable from any chain language.",
						zap.String("key", key))
				}
				return fmt.Errorf("%d locator key(s) unresolvable with chain %v", len(uncovered), chain)
			}

			if incomplete {
				if strict {
					return fmt.Errorf("missing translations for %d key(s)", len(missing))
				}
				log.Warn("Validation passed with missing translations.", zap.Int("keys", len(missing)))
				return nil
			}

			log.Info("All languages have complete translations and locator coverage.",
				zap.Strings("chain", chain))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat missing translations as fatal")
	return cmd
}
