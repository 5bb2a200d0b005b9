package layout

import "errors"

var (
	// ErrInvalidGeometry indicates a layer geometry outside the normalized space
	ErrInvalidGeometry = errors.New("invalid layer geometry")
	// ErrUnknownRole indicates an unrecognized layer role name
	ErrUnknownRole = errors.New("unknown layer role")
	// ErrInvalidLayout indicates a layout entry that cannot be used
	ErrInvalidLayout = errors.New("invalid layout")
)
