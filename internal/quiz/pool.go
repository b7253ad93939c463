package quiz

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed pools.yaml
var defaultPoolsYAML []byte

// Pool holds curated distractor strings per category. It is loaded once at
// process start and read-only afterward, so concurrent reads need no locking.
type Pool struct {
	categories map[string][]string
}

type poolFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// LoadPool reads a distractor pool from the given YAML file, or the embedded
// default when path is empty.
func LoadPool(path string) (*Pool, error) {
	data := defaultPoolsYAML
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pool file: %w", err)
		}
		data = raw
	}
	var file poolFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pool file: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("pool file has no categories")
	}
	return &Pool{categories: file.Categories}, nil
}

// Options returns a copy of the distractor list for a category.
// Unknown categories yield an empty slice; the generator falls through to
// similarity and generic supplements.
func (p *Pool) Options(category string) []string {
	options := p.categories[category]
	out := make([]string, len(options))
	copy(out, options)
	return out
}

// Categories lists the categories the pool covers.
func (p *Pool) Categories() []string {
	names := make([]string, 0, len(p.categories))
	for name := range p.categories {
		names = append(names, name)
	}
	return names
}
