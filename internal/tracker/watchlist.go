// Package tracker provides watchlist loading for bulk imports.
package tracker

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrWatchlistNotFound is returned when the watchlist file does not exist
var ErrWatchlistNotFound = errors.New("watchlist file not found")

// Watchlist is a TOML file listing identifiers to track:
//
//	apps = [
//	  "org.telegram.messenger",
//	  "com.whatsapp",
//	]
type Watchlist struct {
	Apps []string `toml:"apps"`
}

// LoadWatchlist reads and parses a watchlist file.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrWatchlistNotFound, path)
		}
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}
	return ParseWatchlist(data)
}

// ParseWatchlist parses watchlist content.
func ParseWatchlist(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := toml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist: %w", err)
	}
	return &wl, nil
}

// Identifiers returns the trimmed, de-duplicated identifiers in file order,
// plus the entries rejected by ValidatePackageName.
func (w *Watchlist) Identifiers() (valid []string, invalid []error) {
	seen := make(map[string]bool)
	for _, raw := range w.Apps {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if err := ValidatePackageName(id); err != nil {
			invalid = append(invalid, err)
			continue
		}
		valid = append(valid, id)
	}
	return valid, invalid
}
