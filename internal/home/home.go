package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the pageview home directory.
	DefaultDirName = ".pageview"

	// RendersDirName is the subdirectory for rendered page images.
	RendersDirName = "renders"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the pageview home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.pageview).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// RendersPath returns the directory rendered pages are written under.
func (d *Dir) RendersPath() string {
	return filepath.Join(d.path, RendersDirName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create renders directory (this also creates the parent)
	if err := os.MkdirAll(d.RendersPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create renders directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// DocumentRendersDir returns the render directory for a document, named
// after the base name of its location without extension.
func (d *Dir) DocumentRendersDir(location string) string {
	base := filepath.Base(location)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document"
	}
	return filepath.Join(d.RendersPath(), name)
}

// PageRenderPath returns the path of a rendered page image.
// Page numbers are 1-indexed.
func (d *Dir) PageRenderPath(location string, pageNum int) string {
	return filepath.Join(d.DocumentRendersDir(location), fmt.Sprintf("page_%04d.png", pageNum))
}

// EnsureDocumentRendersDir creates the render directory for a document.
func (d *Dir) EnsureDocumentRendersDir(location string) error {
	return os.MkdirAll(d.DocumentRendersDir(location), 0o755)
}
