package play

import (
	"errors"

	"github.com/ardnew/blockcss/tmpl"
)

// Sentinel errors.
var (
	ErrOutOfBounds    = errors.New("index out of range")
	ErrUsage          = tmpl.NewError("usage")
	ErrUnknownCommand = tmpl.NewError("unknown command")
)
