package block

import (
	"context"
	"embed"
	"io/fs"
	"sync"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtins returns fresh copies of the built-in block definitions: hero,
// cta and listing-grid.
func Builtins() []*Definition {
	defs := builtins()
	out := make([]*Definition, len(defs))

	for i, d := range defs {
		out[i] = d.Clone()
	}

	return out
}

//nolint:gochecknoglobals
var builtins = sync.OnceValue(func() []*Definition {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}

	defs, err := LoadFS(context.Background(), sub)
	if err != nil {
		panic(err)
	}

	return defs
})
