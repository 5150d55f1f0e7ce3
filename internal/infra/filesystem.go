package infra

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// FileSystemManagerImpl implements domain.FileSystemManager.
type FileSystemManagerImpl struct {
	homeDir string
}

// NewFileSystemManager creates a new filesystem manager.
func NewFileSystemManager() domain.FileSystemManager {
	return &FileSystemManagerImpl{homeDir: GetRealUserHome()}
}

// NewFileSystemManagerWithHome creates a filesystem manager with custom home (for testing).
func NewFileSystemManagerWithHome(home string) domain.FileSystemManager {
	return &FileSystemManagerImpl{homeDir: home}
}

// Exists checks if a path exists.
func (fm *FileSystemManagerImpl) Exists(path string) bool {
	expanded := fm.ExpandHome(path)
	_, err := os.Stat(expanded)
	return err == nil
}

// EnsureDir creates a directory (and parents) if missing.
func (fm *FileSystemManagerImpl) EnsureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(fm.ExpandHome(path), 0755)
}

// ExpandHome expands ~ to the user's home directory.
func (fm *FileSystemManagerImpl) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(fm.homeDir, path[2:])
	}
	if path == "~" {
		return fm.homeDir
	}
	return path
}

// Ensure FileSystemManagerImpl implements domain.FileSystemManager.
var _ domain.FileSystemManager = (*FileSystemManagerImpl)(nil)
