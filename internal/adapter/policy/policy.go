package policy

import (
	"fmt"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled configuration loaded from a YAML file.
// It currently covers masking of preview columns.
type Policy struct {
	Preview PreviewConfig `yaml:"preview"`
}

// PreviewConfig maps preview column names to their policy.
type PreviewConfig struct {
	Columns map[string]ColumnPolicy `yaml:"columns"`
}

// ColumnPolicy holds a column's description and optional mask directive.
type ColumnPolicy struct {
	Description string          `yaml:"description"`
	Mask        domain.MaskType `yaml:"mask,omitempty"`
}

// UnmarshalYAML accepts either a bare mask or the full struct.
//
//	columns:
//	  email: redact                 # shorthand → ColumnPolicy{Mask: "redact"}
//	  ssn:
//	    description: "SSN"
//	    mask: hash
func (cp *ColumnPolicy) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		cp.Mask = domain.MaskType(value.Value)
		return nil
	}
	// Alias type avoids recursing into this method.
	type alias ColumnPolicy
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding column policy: %w", err)
	}
	*cp = ColumnPolicy(a)
	return nil
}

// Masks returns the preview masks keyed by column name, or nil when no
// column is masked.
func (p *Policy) Masks() map[string]domain.MaskType {
	if p == nil {
		return nil
	}
	var masks map[string]domain.MaskType
	for name, cp := range p.Preview.Columns {
		if cp.Mask == "" {
			continue
		}
		if masks == nil {
			masks = make(map[string]domain.MaskType)
		}
		masks[name] = cp.Mask
	}
	return masks
}
