package scanner

import "errors"

// Validation and fatal scan errors. Callers test them with errors.Is.
var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotFound      = errors.New("path not found")
	ErrNotADirectory = errors.New("path is not a directory")
	ErrScanFailed    = errors.New("scan failed")
)

var errSymlinkLoop = errors.New("symlink points at a directory already being walked")
