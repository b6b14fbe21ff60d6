package tabular

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
)

// FileSource is a CSV sheet on the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the sheet path.
func (f *FileSource) Path() string {
	return f.path
}

// ReadRows implements bom.TabularSource.
func (f *FileSource) ReadRows(_ context.Context) ([]bom.Row, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, errors.WrapIO("open", f.path, err)
	}
	defer func() { _ = file.Close() }()
	return decode(file, f.path)
}

// WriteRows implements bom.TabularSource. The file is replaced atomically.
func (f *FileSource) WriteRows(ctx context.Context, startRow int, rows []bom.Row) error {
	existing, err := f.ReadRows(ctx)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	merged, err := patch(existing, startRow, rows)
	if err != nil {
		return err
	}
	data, err := encode(merged)
	if err != nil {
		return errors.WrapParse("csv", f.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".bomsync-*.csv")
	if err != nil {
		return errors.WrapIO("create", f.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.WrapIO("rename", f.path, err)
	}
	return nil
}

// FindColumn implements bom.TabularSource.
func (f *FileSource) FindColumn(ctx context.Context, pred func(string) bool) (int, error) {
	rows, err := f.ReadRows(ctx)
	if err != nil {
		return -1, err
	}
	return findColumn(rows, pred), nil
}

var _ bom.TabularSource = (*FileSource)(nil)
