package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// LoadPolicy reads a YAML policy file over risk.DefaultPolicy. Fields absent
// from the file keep their defaults. An empty path returns the defaults.
func LoadPolicy(path string) (risk.Policy, error) {
	p := risk.DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
