package embedding

import (
	"fmt"
	"os"
	"path/filepath"
)

// ModelSpec describes a known local embedding model.
type ModelSpec struct {
	ID       string `yaml:"id"`
	FileName string `yaml:"file"`
	Dims     int    `yaml:"dims"`
}

// Catalog is the fixed preference list of local models. Auto-load walks it
// in order and picks the first model whose artifact exists.
type Catalog []ModelSpec

// DefaultCatalog returns the built-in preference list.
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: "hash-mini-384", FileName: "hash-mini-384.yaml", Dims: 384},
		{ID: "hash-base-768", FileName: "hash-base-768.yaml", Dims: 768},
	}
}

// Lookup returns the model registered under id.
func (c Catalog) Lookup(id string) (ModelSpec, error) {
	for _, spec := range c {
		if spec.ID == id {
			return spec, nil
		}
	}
	return ModelSpec{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
}

// IDs returns the model identifiers in preference order.
func (c Catalog) IDs() []string {
	ids := make([]string, len(c))
	for i, spec := range c {
		ids[i] = spec.ID
	}
	return ids
}

// Artifacts locates downloaded model files.
type Artifacts interface {
	Exists(modelID string) bool
	Path(modelID string) string
}

// DirArtifacts resolves artifacts as files inside a single directory.
type DirArtifacts struct {
	Dir     string
	Catalog Catalog
}

// Path returns the artifact path for modelID, or "" when the model is unknown.
func (d DirArtifacts) Path(modelID string) string {
	spec, err := d.Catalog.Lookup(modelID)
	if err != nil {
		return ""
	}
	return filepath.Join(d.Dir, spec.FileName)
}

// Exists reports whether the artifact for modelID is a regular file on disk.
func (d DirArtifacts) Exists(modelID string) bool {
	p := d.Path(modelID)
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Interface guard.
var _ Artifacts = DirArtifacts{}
