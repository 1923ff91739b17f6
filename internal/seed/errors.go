package seed

import "errors"

var (
	// ErrRead is returned when the catalog file cannot be read.
	ErrRead = errors.New("seed: read catalog")
	// ErrParse is returned when the catalog is not valid YAML.
	ErrParse = errors.New("seed: parse catalog")
)
