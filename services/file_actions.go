package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github/itish2003/vaultchat/models"
)

// ErrOutsideVault is returned for note paths that escape the vault.
var ErrOutsideVault = errors.New("path is outside the vault")

// FileActions reads notes of one vault for the note viewer.
type FileActions struct {
	VaultDir string // absolute path of the vault
	realDir  string // VaultDir with symlinks resolved
	read     func(string) (string, error)
}

func NewFileActions(vaultPath string) (*FileActions, error) {
	absPath, err := filepath.Abs(vaultPath)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for vault %s: %w", vaultPath, err)
	}
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve vault %s: %w", vaultPath, err)
	}
	return &FileActions{VaultDir: absPath, realDir: realPath, read: ExtractTextFromFile}, nil
}

// resolve accepts absolute paths (as returned in file references) or paths
// relative to the vault, and refuses anything resolving outside it, symlinks
// included.
func (fa *FileActions) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(fa.VaultDir, path)
	}
	clean := filepath.Clean(path)
	if !within(fa.VaultDir, clean) {
		return "", ErrOutsideVault
	}
	if !isSupportedFile(clean) {
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(clean))
	}
	target, err := filepath.EvalSymlinks(clean)
	if err != nil {
		return "", fmt.Errorf("failed to read note %s: %w", filepath.Base(clean), err)
	}
	if !within(fa.realDir, target) {
		return "", ErrOutsideVault
	}
	return clean, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ReadNote returns the text of a note inside the vault.
func (fa *FileActions) ReadNote(path string) (*models.NoteContentResponse, error) {
	clean, err := fa.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := fa.read(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read note %s: %w", filepath.Base(clean), err)
	}
	return &models.NoteContentResponse{
		Path:    clean,
		Name:    filepath.Base(clean),
		Content: content,
	}, nil
}
