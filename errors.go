package schemathesis

import "errors"

// Sentinel errors for schema loading and resolution.
var (
	ErrResolve           = errors.New("resolve schema")
	ErrLoad              = errors.New("load schema")
	ErrDecode            = errors.New("decode schema")
	ErrNotMapping        = errors.New("schema is not a mapping")
	ErrFetch             = errors.New("fetch schema")
	ErrUnsupportedScheme = errors.New("unsupported schema uri scheme")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrSettings          = errors.New("load settings")
)
