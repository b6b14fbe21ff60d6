package bom

// Tree is an ordered, leveled line sequence representing a pre-order
// traversal of the hierarchy. The root is the first level-0 line.
type Tree struct {
	Lines        []Line `json:"lines" yaml:"lines"`
	RootCategory string `json:"root_category,omitempty" yaml:"root_category,omitempty"`
}

// Entity is one synchronizable unit of a tree: a level-0 line and the BOM
// lines that follow it up to the next level-0 line.
type Entity struct {
	Root  Line   `json:"root" yaml:"root"`
	Lines []Line `json:"lines" yaml:"lines"`
}

// Identity returns the entity's item number.
func (e Entity) Identity() string {
	return e.Root.ItemNumber
}

// Root returns the first level-0 line of the tree.
func (t *Tree) Root() (Line, bool) {
	for _, l := range t.Lines {
		if l.Level == 0 {
			return l, true
		}
	}
	return Line{}, false
}

// Len returns the number of lines.
func (t *Tree) Len() int {
	return len(t.Lines)
}

// Entities splits the tree at every level-0 line. Lines that precede the
// first level-0 line belong to no entity and are dropped.
func (t *Tree) Entities() []Entity {
	var out []Entity
	for _, l := range t.Lines {
		if l.Level == 0 {
			out = append(out, Entity{Root: l.Clone()})
			continue
		}
		if len(out) == 0 {
			continue
		}
		cur := &out[len(out)-1]
		cur.Lines = append(cur.Lines, l.Clone())
	}
	return out
}

// Entity returns the entity whose root carries the given item number.
func (t *Tree) Entity(identity string) (Entity, bool) {
	for _, e := range t.Entities() {
		if e.Identity() == identity {
			return e, true
		}
	}
	return Entity{}, false
}

// FromEntity builds a tree from a root line and its BOM lines.
func FromEntity(root Line, lines []Line) *Tree {
	all := make([]Line, 0, len(lines)+1)
	all = append(all, root.Clone())
	all = append(all, CloneLines(lines)...)
	return &Tree{Lines: all, RootCategory: root.Category}
}
