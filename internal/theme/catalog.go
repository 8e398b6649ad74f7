package theme

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover loads every .yaml, .yml and .toml theme below dir, keyed by the
// lower-cased file name without extension
func Discover(dir string) (map[string]Theme, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*.{yaml,yml,toml}"))
	if err != nil {
		return nil, fmt.Errorf("scan theme dir %s: %w", dir, err)
	}

	themes := make(map[string]Theme, len(matches))
	sources := make(map[string]string, len(matches))
	for _, path := range matches {
		key := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if prev, ok := sources[key]; ok {
			return nil, fmt.Errorf("theme %q defined twice: %s and %s", key, prev, path)
		}
		t, err := Load(path)
		if err != nil {
			return nil, err
		}
		themes[key] = t
		sources[key] = path
	}
	return themes, nil
}

// ResolveIn is Resolve with the themes under dir taking precedence over the
// built-ins. An empty dir behaves like Resolve.
func ResolveIn(ref, dir string) (Theme, error) {
	if dir == "" || ref == "" {
		return Resolve(ref)
	}
	themes, err := Discover(dir)
	if err != nil {
		return Theme{}, err
	}
	if t, ok := themes[strings.ToLower(ref)]; ok {
		return t, nil
	}
	return Resolve(ref)
}
