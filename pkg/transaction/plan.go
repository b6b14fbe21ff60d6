// Package transaction creates a hierarchy of remote entities in tier order
// (components, then groups, then the top-level entity) and rolls the
// created entities back in strict reverse order on request.
package transaction

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Entity types, in creation order.
const (
	TypeComponent = "component"
	TypeGroup     = "group"
	TypeTop       = "top"
)

// EntitySpec describes one entity to create. Lines reference child items by
// number; their refs are resolved when the entity's BOM is pushed.
type EntitySpec struct {
	Type   string         `yaml:"type,omitempty"`
	Number string         `yaml:"number"`
	Fields bom.ItemFields `yaml:"fields,omitempty"`
	Lines  []bom.Line     `yaml:"lines,omitempty"`
}

// ItemFields returns the create payload with the number filled in.
func (s EntitySpec) ItemFields() bom.ItemFields {
	f := s.Fields
	if f.Number == "" {
		f.Number = s.Number
	}
	return f
}

// Plan is an ordered multi-entity creation.
type Plan struct {
	Name       string       `yaml:"name,omitempty"`
	Components []EntitySpec `yaml:"components,omitempty"`
	Groups     []EntitySpec `yaml:"groups,omitempty"`
	Top        *EntitySpec  `yaml:"top,omitempty"`
}

// Ordered returns every spec in creation order with Type set from its tier.
func (p *Plan) Ordered() []EntitySpec {
	out := make([]EntitySpec, 0, len(p.Components)+len(p.Groups)+1)
	for _, s := range p.Components {
		s.Type = TypeComponent
		out = append(out, s)
	}
	for _, s := range p.Groups {
		s.Type = TypeGroup
		out = append(out, s)
	}
	if p.Top != nil {
		s := *p.Top
		s.Type = TypeTop
		out = append(out, s)
	}
	return out
}

// specs returns pointers to every spec, tier order.
func (p *Plan) specs() []*EntitySpec {
	var out []*EntitySpec
	for i := range p.Components {
		out = append(out, &p.Components[i])
	}
	for i := range p.Groups {
		out = append(out, &p.Groups[i])
	}
	if p.Top != nil {
		out = append(out, p.Top)
	}
	return out
}

// Validate checks the whole plan and reports every problem at once.
func (p *Plan) Validate() error {
	var problems []errors.Problem
	seen := make(map[string]bool)
	ordered := p.Ordered()
	if len(ordered) == 0 {
		return errors.NewValidationError("plan", p.Name, "plan creates no entities")
	}
	for i, s := range ordered {
		if s.Number == "" {
			problems = append(problems, errors.Problem{Index: i, Field: "number", Reason: fmt.Sprintf("%s has no number", s.Type)})
			continue
		}
		if seen[s.Number] {
			problems = append(problems, errors.Problem{Index: i, ItemNumber: s.Number, Field: "number", Reason: "duplicate number"})
		}
		seen[s.Number] = true
		if s.Type == TypeComponent && len(s.Lines) > 0 {
			problems = append(problems, errors.Problem{Index: i, ItemNumber: s.Number, Field: "lines", Reason: "components cannot carry BOM lines"})
		}
		for _, l := range s.Lines {
			if l.ItemNumber == "" {
				problems = append(problems, errors.Problem{Index: i, ItemNumber: s.Number, Field: "lines", Reason: "BOM line without item number"})
			}
			if l.Quantity <= 0 {
				problems = append(problems, errors.Problem{Index: i, ItemNumber: s.Number, Field: "lines",
					Reason: fmt.Sprintf("line %s has quantity %s", l.ItemNumber, l.QuantityString())})
			}
		}
	}
	if len(problems) > 0 {
		return errors.NewAggregateValidationError("invalid creation plan", problems)
	}
	return nil
}

// ParsePlan decodes a YAML plan. Lines without a level are placed at level
// 1 and lines without a quantity get 1.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	for _, s := range p.specs() {
		for j := range s.Lines {
			if s.Lines[j].Level == 0 {
				s.Lines[j].Level = 1
			}
			if s.Lines[j].Quantity == 0 {
				s.Lines[j].Quantity = 1
			}
		}
	}
	return &p, nil
}

// LoadPlan reads and decodes a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // plan path comes from the command line
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	p, err := ParsePlan(data)
	if err != nil {
		var perr *errors.ParseError
		if errors.As(err, &perr) {
			perr.File = path
		}
		return nil, err
	}
	return p, nil
}
