package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slotpipe/slotpipe/pkg/match"
)

// masterFile is the YAML shape of the company master list. Entries may be
// plain names or {id, name} mappings.
type masterFile struct {
	Companies []masterEntry `yaml:"companies"`
}

type masterEntry struct {
	ID   string
	Name string
}

func (e *masterEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&e.Name)
	}
	var full struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	}
	if err := value.Decode(&full); err != nil {
		return err
	}
	e.ID = full.ID
	e.Name = full.Name
	return nil
}

// LoadCompanyMaster reads the canonical company list for fuzzy matching.
func LoadCompanyMaster(path string) ([]match.Company, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read company master: %w", err)
	}
	var file masterFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("parse company master: %w", err)
	}

	out := make([]match.Company, 0, len(file.Companies))
	for i, entry := range file.Companies {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("company master entry %d has no name", i)
		}
		out = append(out, match.Company{ID: strings.TrimSpace(entry.ID), Name: name})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("company master is empty")
	}
	return out, nil
}
