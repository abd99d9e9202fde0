package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// LoadDir builds a Catalog from messages.<code>.toml files in dir, one per
// chain entry, in chain order. Each file is a flat TOML table of message key
// to text. A missing file registers the language with an empty table so the
// chain-merge mechanism still covers it; a malformed file is fatal.
func LoadDir(dir string, chain []string, logger *zap.Logger) (*Catalog, error) {
	languages := make([]Language, 0, len(chain))
	tables := make(map[string]map[string]string, len(chain))

	for _, code := range chain {
		languages = append(languages, Language{Code: code})

		path := filepath.Join(dir, fmt.Sprintf("messages.%s.toml", code))
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("No message file for language, registering empty table.",
					zap.String("language", code),
					zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("failed to read message file %s: %w", path, err)
		}

		table := make(map[string]string)
		if err := toml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("failed to parse message file %s: %w", path, err)
		}
		tables[code] = table
	}

	return New(languages, tables, logger)
}
