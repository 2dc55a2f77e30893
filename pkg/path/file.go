package path

import (
	"encoding/json"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ReadJSON reads a JSON file into out and runs the struct validations of out.
func ReadJSON(fs afero.Fs, path string, out interface{}) error {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "failed to read file %s", path)
	}

	if err := json.Unmarshal(buf, out); err != nil {
		return errors.Wrapf(err, "failed to parse JSON file %s", path)
	}

	return validator.New().Struct(out)
}

// WriteJSON writes content as indented JSON, creating the parent directories.
func WriteJSON(fs afero.Fs, path string, content interface{}) error {
	buf, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal object to json")
	}

	return writeFile(fs, path, buf)
}

func writeFile(fs afero.Fs, path string, buf []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	if err := afero.WriteFile(fs, path, buf, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write file to %s", path)
	}

	return nil
}
