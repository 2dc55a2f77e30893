package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// File is a single csv or json file holding one table.
type File struct {
	fs        afero.Fs
	path      string
	format    string
	delimiter string
}

func (f *File) Load(_ context.Context, name string) (*Dataset, error) {
	exists, err := afero.Exists(f.fs, f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check file %s", f.path)
	}
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "file %s of dataset '%s' does not exist", f.path, name)
	}

	t, err := readTable(f.fs, f.path, f.format, f.delimiter)
	if err != nil {
		return nil, err
	}
	return TableDataset(t), nil
}

func (f *File) Save(_ context.Context, name string, ds *Dataset) error {
	if ds.Table == nil {
		return errors.Errorf("dataset '%s' is stored as %s and needs a table", name, f.format)
	}
	return writeTable(f.fs, f.path, f.format, f.delimiter, ds.Table)
}

func readTable(fs afero.Fs, path, format, delimiter string) (*frame.Table, error) {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", path)
	}

	var t *frame.Table
	switch format {
	case "csv":
		t, err = DecodeCSV(buf, delimiter)
	case "json":
		t, err = DecodeJSON(buf)
	default:
		return nil, errors.Errorf("unsupported file format '%s'", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return t, nil
}

func writeTable(fs afero.Fs, path, format, delimiter string, t *frame.Table) error {
	var buf []byte
	var err error
	switch format {
	case "csv":
		buf, err = EncodeCSV(t, delimiter)
	case "json":
		buf, err = json.MarshalIndent(t.Records(), "", "  ")
	default:
		return errors.Errorf("unsupported file format '%s'", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := afero.WriteFile(fs, path, buf, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write file to %s", path)
	}
	return nil
}

func csvDelimiter(delimiter string) (rune, error) {
	if delimiter == "" {
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(delimiter)
	if size != len(delimiter) {
		return 0, errors.Errorf("csv delimiter must be a single character, got '%s'", delimiter)
	}
	return r, nil
}

// DecodeCSV reads a csv document with a header row. Cells are strings, empty cells are nil.
func DecodeCSV(buf []byte, delimiter string) (*frame.Table, error) {
	comma, err := csvDelimiter(delimiter)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))))
	r.Comma = comma
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return frame.New(), nil
	}
	if err != nil {
		return nil, err
	}

	t := frame.New(header...)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]any, len(header))
		for i := range header {
			if i < len(record) && record[i] != "" {
				row[i] = record[i]
			}
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func EncodeCSV(t *frame.Table, delimiter string) ([]byte, error) {
	comma, err := csvDelimiter(delimiter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	if err := w.Write(t.Columns()); err != nil {
		return nil, err
	}
	for r := 0; r < t.Len(); r++ {
		record := make([]string, 0, len(t.Columns()))
		for _, c := range t.Columns() {
			s, _ := frame.ToString(t.Value(r, c))
			record = append(record, s)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()

	return buf.Bytes(), w.Error()
}

// DecodeJSON reads a json document: an object becomes one row, an array of objects one row per
// element. Nested values stay as they are.
func DecodeJSON(buf []byte) (*frame.Table, error) {
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, err
	}

	switch v := doc.(type) {
	case nil:
		return frame.New(), nil
	case map[string]any:
		return frame.FromRecords(sortedKeys(v), []map[string]any{v}), nil
	case []any:
		records := make([]map[string]any, 0, len(v))
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, errors.Errorf("element %d of the json array is not an object", i)
			}
			records = append(records, rec)
		}
		return frame.FromRecords(nil, records), nil
	}

	return nil, errors.Errorf("unsupported json document of type %T", doc)
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
