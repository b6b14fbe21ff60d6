package bom

// Item is the canonical shape of a remote PLM item after normalization.
type Item struct {
	Ref         string `json:"ref" yaml:"ref"`
	Number      string `json:"number" yaml:"number"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Lifecycle   string `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	Revision    string `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// ItemFields carries the writable fields of an item for create and update.
// Empty fields are left untouched on update.
type ItemFields struct {
	Number      string            `json:"number" yaml:"number"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string            `json:"category,omitempty" yaml:"category,omitempty"`
	Lifecycle   string            `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Enrich copies remote item metadata onto a line whose local copy left the
// field blank. The item reference is always taken from the item.
func Enrich(l Line, it Item) Line {
	l.ItemRef = it.Ref
	if l.Name == "" {
		l.Name = it.Name
	}
	if l.Description == "" {
		l.Description = it.Description
	}
	if l.Category == "" {
		l.Category = it.Category
	}
	if l.Lifecycle == "" {
		l.Lifecycle = it.Lifecycle
	}
	return l
}
