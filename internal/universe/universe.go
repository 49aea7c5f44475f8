// Package universe loads the watch-list of tickers the scanner and backtester
// operate on. The list lives in a JSON file so it can be edited without
// rebuilding, and its order is significant: it breaks candidate ties.
package universe

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Load reads a JSON array of ticker symbols from path. Symbols are upper-cased
// and trimmed; blanks are dropped and duplicates keep their first position so
// the configured priority order survives.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watch-list %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and normalizes a raw watch-list document.
func Parse(data []byte) ([]string, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("watch-list must be a JSON array of symbols: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	tickers := make([]string, 0, len(raw))
	for _, s := range raw {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		tickers = append(tickers, sym)
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("watch-list contains no symbols")
	}
	return tickers, nil
}
