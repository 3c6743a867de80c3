package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StampInventory resolves the stamp keys a user may send. The
// head-start keys are always included; the rest come from unlocked
// cosmetic characters.
type StampInventory interface {
	AllowedKeys(ctx context.Context, userID int64) (map[string]struct{}, error)
}

// HeadStartStampKeys are usable by everyone, including guests.
var HeadStartStampKeys = []string{"marmot.png", "tanuki.png", "kitsune.png"}

var stampAllowExts = map[string]struct{}{
	".png":  {},
	".webp": {},
	".gif":  {},
}

// StampRegistry validates stamp keys against the stamp asset
// directory: base name only, allowed extension, file present.
type StampRegistry struct {
	dir string
}

func NewStampRegistry(dir string) *StampRegistry {
	return &StampRegistry{dir: dir}
}

// Normalize strips any path component and returns the base key plus
// whether its extension is acceptable.
func (r *StampRegistry) Normalize(key string) (string, bool) {
	base := filepath.Base(strings.TrimSpace(key))
	if base == "." || base == string(filepath.Separator) {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(base))
	_, ok := stampAllowExts[ext]
	return base, ok
}

// Exists reports whether the stamp asset is present on disk.
func (r *StampRegistry) Exists(base string) bool {
	info, err := os.Stat(filepath.Join(r.dir, base))
	return err == nil && info.Mode().IsRegular()
}

// List enumerates present stamp assets with allowed extensions,
// sorted, filtered to the given allow-set.
func (r *StampRegistry) List(allowed map[string]struct{}) []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		base := e.Name()
		ext := strings.ToLower(filepath.Ext(base))
		if _, ok := stampAllowExts[ext]; !ok {
			continue
		}
		if _, ok := allowed[base]; !ok {
			continue
		}
		names = append(names, base)
	}
	sort.Strings(names)
	return names
}
