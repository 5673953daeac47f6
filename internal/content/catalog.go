// Package content loads exercise catalogs and writes them to storage.
package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/claude/spinecare/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Parse decodes a YAML catalog and validates it. Unknown fields are
// rejected so typos in hand-edited files surface early.
func Parse(r io.Reader) (*models.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c models.Catalog
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parsing catalog: empty document")
		}
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return &c, nil
}

// Default returns the built-in catalog.
func Default() (*models.Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// Load reads a catalog file, or the built-in catalog when path is empty.
func Load(path string) (*models.Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
