package transaction

import (
	"os"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Entry is one entity created within a transaction.
type Entry struct {
	EntityType string `yaml:"type"`
	Identity   string `yaml:"identity"`
	RemoteRef  string `yaml:"remote_ref"`
}

// Context records the entities created by one transaction, in creation
// order. Rollback consumes it in reverse.
type Context struct {
	ID      string   `yaml:"id"`
	Plan    string   `yaml:"plan,omitempty"`
	Started utc.Time `yaml:"started"`
	Entries []Entry  `yaml:"entries"`
}

// NewContext starts an empty transaction context.
func NewContext(plan string) *Context {
	return &Context{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Plan:    plan,
		Started: utc.Now(),
	}
}

// Track appends a created entity.
func (c *Context) Track(e Entry) {
	c.Entries = append(c.Entries, e)
}

// Len returns the number of tracked entities.
func (c *Context) Len() int {
	return len(c.Entries)
}

// SaveContext writes c as YAML, creating parent directories.
func SaveContext(path string, c *Context) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// LoadContext reads a context written by SaveContext.
func LoadContext(path string) (*Context, error) {
	data, err := os.ReadFile(path) //nolint:gosec // context path comes from the command line
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var c Context
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if c.ID == "" {
		return nil, errors.NewValidationError("id", path, "transaction file has no id")
	}
	return &c, nil
}
