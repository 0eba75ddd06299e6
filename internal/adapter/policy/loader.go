package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML policy file and returns a validated Policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	if err := validate(&pol); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}

	return &pol, nil
}

func validate(pol *Policy) error {
	for col, cp := range pol.Preview.Columns {
		if col == "" {
			return fmt.Errorf("preview.columns contains an empty key")
		}
		if !cp.Mask.Valid() {
			return fmt.Errorf("preview.columns[%q].mask: invalid value %q (allowed: redact, hash, partial, null)", col, cp.Mask)
		}
	}
	return nil
}
