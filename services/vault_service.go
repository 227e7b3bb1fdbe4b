package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// VaultRoots are the directories whose immediate children may be vaults.
func VaultRoots(home string) []string {
	return []string{
		filepath.Join(home, "Documents", "Obsidian"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Documents"),
		home,
	}
}

// FindVaults lists directories under the usual roots that look like a notes
// vault: they hold a .obsidian folder or at least one markdown file.
func FindVaults(home string) []string {
	seen := map[string]bool{}
	var vaults []string
	for _, root := range VaultRoots(home) {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(root, e.Name())
			if seen[dir] || !looksLikeVault(dir) {
				continue
			}
			seen[dir] = true
			vaults = append(vaults, dir)
		}
	}
	log.Debug().Int("count", len(vaults)).Msg("SERVICE: vault discovery finished")
	return vaults
}

// DiscoverVaults runs FindVaults on the current user's home directory.
func DiscoverVaults() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("SERVICE: no home directory, skipping vault discovery")
		return nil
	}
	return FindVaults(home)
}

func looksLikeVault(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, ".obsidian")); err == nil && info.IsDir() {
		return true
	}
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// ErrVaultMissing wraps a vault path that is not an existing directory.
var ErrVaultMissing = errors.New("vault path does not exist")

func checkVault(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return &vaultError{path: path}
	}
	return nil
}

type vaultError struct {
	path string
}

func (e *vaultError) Error() string { return "Vault path does not exist: " + e.path }
func (e *vaultError) Unwrap() error { return ErrVaultMissing }
