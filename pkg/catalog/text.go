package catalog

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Text is a plain text artifact such as a quality log. A missing file reads as empty text.
type Text struct {
	fs     afero.Fs
	path   string
	append bool
}

func (t *Text) Load(_ context.Context, _ string) (*Dataset, error) {
	exists, err := afero.Exists(t.fs, t.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check file %s", t.path)
	}
	if !exists {
		return TextDataset(""), nil
	}

	buf, err := afero.ReadFile(t.fs, t.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", t.path)
	}
	return TextDataset(string(buf)), nil
}

func (t *Text) Save(_ context.Context, _ string, ds *Dataset) error {
	if err := t.fs.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", t.path)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if t.append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := t.fs.OpenFile(t.path, flags, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open file %s", t.path)
	}
	defer f.Close()

	if _, err := f.WriteString(ds.Text); err != nil {
		return errors.Wrapf(err, "failed to write file %s", t.path)
	}
	return nil
}
