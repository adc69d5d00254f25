package subscription

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLSource loads plan specs from a YAML catalog file:
//
//	plans:
//	  - type: free
//	    limits:
//	      statistics_access: 5
//	      transcriptions: 3
//	      tracked_people: 5
//	  - type: pro
//	    stripePriceId: price_pro_monthly
//	    limits:
//	      statistics_access: 100
//	      transcriptions: 60
//	      tracked_people: -1
type YAMLSource struct {
	path string
}

// NewYAMLSource creates a source reading the catalog file at path.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

type yamlCatalogFile struct {
	Plans []PlanSpec `yaml:"plans"`
}

// Load reads and parses the catalog file.
func (s *YAMLSource) Load(_ context.Context) ([]PlanSpec, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog %s: %w", s.path, err)
	}

	var file yamlCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plan catalog %s: %w", s.path, err)
	}

	return file.Plans, nil
}
