package catalog

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed default_grocery_list.json
var defaultTemplate []byte

// DefaultTemplate returns the built-in grocery list template
func DefaultTemplate() (*Catalog, error) {
	c, err := Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: default template: %w", ErrUnavailable, err)
	}
	return c, nil
}

// LoadTemplate reads a template document from path, the built-in template when path is empty
func LoadTemplate(path string) (*Catalog, error) {
	if path == "" {
		return DefaultTemplate()
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read template %s: %w", ErrUnavailable, path, err)
	}
	c, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: %w", ErrUnavailable, path, err)
	}
	return c, nil
}
