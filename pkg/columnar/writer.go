package columnar

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/strata/pkg/dictionary"
	"github.com/ajitpratap0/strata/pkg/errors"
)

// WriteOptions controls how WriteColumn lays a column out.
type WriteOptions struct {
	Layout Layout
	// KeepPlain also writes <column>.col for dictionary-coded columns, so
	// readers can degrade to it when the coded artifacts are unavailable.
	KeepPlain bool
}

// ColumnResult describes a written column.
type ColumnResult struct {
	Meta       ColumnMeta
	Dictionary *dictionary.Dictionary // nil for plain columns
	Bytes      int64                  // bytes of the primary representation
}

// WriteColumn writes one column into dir. Under LayoutCompressed a column is
// dictionary-coded only when it is eligible; otherwise, and under LayoutPlain,
// it is written as newline-delimited text.
func WriteColumn(dir, column string, values []string, opts WriteOptions) (*ColumnResult, error) {
	res := &ColumnResult{Meta: ColumnMeta{Name: column}}

	if opts.Layout == LayoutCompressed {
		dict := dictionary.Build(column, values)
		if dict.Eligible() {
			if err := dict.WriteFile(filepath.Join(dir, DictFile(column))); err != nil {
				return nil, err
			}
			n, err := writeFile(filepath.Join(dir, CmpFile(column)), func(w io.Writer) (int64, error) {
				return EncodeCompressed(w, dict, values)
			})
			if err != nil {
				return nil, err
			}
			res.Meta.Compressed = true
			res.Dictionary = dict
			res.Bytes = n

			if !opts.KeepPlain {
				return res, nil
			}
			_, err = writeFile(filepath.Join(dir, ColFile(column)), func(w io.Writer) (int64, error) {
				return EncodePlain(w, values)
			})
			if err != nil {
				return nil, err
			}
			return res, nil
		}
	}

	n, err := writeFile(filepath.Join(dir, ColFile(column)), func(w io.Writer) (int64, error) {
		return EncodePlain(w, values)
	})
	if err != nil {
		return nil, err
	}
	res.Bytes = n
	return res, nil
}

func writeFile(path string, fn func(io.Writer) (int64, error)) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to create column file").
			WithDetail("path", path)
	}
	n, err := fn(f)
	if err != nil {
		f.Close()
		return n, annotatePath(err, path)
	}
	if err := f.Close(); err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeFile, "failed to close column file").
			WithDetail("path", path)
	}
	return n, nil
}

func annotatePath(err error, path string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		e.WithDetail("path", path)
	}
	return err
}
