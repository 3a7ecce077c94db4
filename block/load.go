package block

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"
)

// LoadDefinition decodes a YAML block definition from r. Unknown keys are
// rejected.
func LoadDefinition(ctx context.Context, r io.Reader) (*Definition, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadDefinition.Wrap(err)
	}

	var d Definition
	if err := yaml.UnmarshalContext(ctx, data, &d, yaml.Strict()); err != nil {
		return nil, ErrInvalidDefinition.Wrap(err)
	}

	if err := d.Validate(nil); err != nil {
		return nil, err
	}

	return &d, nil
}

// LoadFS decodes every *.yaml and *.yml file at the root of fsys, in name
// order.
func LoadFS(ctx context.Context, fsys fs.FS) ([]*Definition, error) {
	var names []string

	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, ErrReadDefinition.Wrap(err)
		}

		names = append(names, matches...)
	}

	slices.Sort(names)

	defs := make([]*Definition, 0, len(names))

	for _, name := range names {
		d, err := loadFile(ctx, fsys, name)
		if err != nil {
			return nil, err
		}

		defs = append(defs, d)
	}

	return defs, nil
}

// LoadDir decodes the block definitions stored in dir.
func LoadDir(ctx context.Context, dir string) ([]*Definition, error) {
	return LoadFS(ctx, os.DirFS(dir))
}

func loadFile(ctx context.Context, fsys fs.FS, name string) (*Definition, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, ErrReadDefinition.Wrap(err)
	}
	defer f.Close()

	d, err := LoadDefinition(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.Base(name), err)
	}

	return d, nil
}
