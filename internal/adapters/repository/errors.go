package repository

import (
	"errors"

	"github.com/okian/tasting/internal/domain/model"
)

// Sentinel kinds for store errors. ErrNotFound and ErrUnavailable are the
// domain kinds so callers can match them without importing this package.
var (
	ErrNotFound       = model.ErrNotFound
	ErrUnavailable    = model.ErrStoreUnavailable
	ErrInvalidPath    = errors.New("invalid document path")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrClosed         = errors.New("store closed")
)
