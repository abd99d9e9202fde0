package locator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// strategyFile mirrors the on-disk shape of locators.<code>.toml:
//
//	[login_page.LOGIN_BUTTON]
//	candidates = [
//	  { kind = "id", value = "login-btn" },
//	  { kind = "css", value = ".login-button" },
//	]
type strategyFile map[string]map[string]struct {
	Candidates []struct {
		Kind  string `toml:"kind"`
		Value string `toml:"value"`
	} `toml:"candidates"`
}

// LoadDir registers locator tables from locators.<code>.toml files in dir,
// one per chain entry. Missing files are skipped (a language may carry no
// locator overrides at all); malformed files and duplicate registrations are
// fatal.
func LoadDir(registry *Registry, dir string, chain []string, logger *zap.Logger) error {
	for _, code := range chain {
		path := filepath.Join(dir, fmt.Sprintf("locators.%s.toml", code))
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Debug("No locator file for language.",
					zap.String("language", code),
					zap.String("path", path))
				continue
			}
			return fmt.Errorf("failed to read locator file %s: %w", path, err)
		}

		var file strategyFile
		if err := toml.Unmarshal(raw, &file); err != nil {
			return fmt.Errorf("failed to parse locator file %s: %w", path, err)
		}

		for page, elements := range file {
			table := make(map[string][]Strategy, len(elements))
			for element, entry := range elements {
				strategies := make([]Strategy, 0, len(entry.Candidates))
				for _, c := range entry.Candidates {
					if c.Kind == "" || c.Value == "" {
						return fmt.Errorf("locator file %s: element %s/%s has a candidate with empty kind or value", path, page, element)
					}
					strategies = append(strategies, Strategy{Kind: c.Kind, Value: c.Value})
				}
				table[element] = strategies
			}
			if err := registry.RegisterTable(code, page, table); err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}
	return nil
}
