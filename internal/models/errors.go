package models

import "errors"

// ErrInvalidConfiguration marks a setup error (bad chunk size, top-k,
// similarity threshold). It is fatal at construction time and never
// silently coerced.
var ErrInvalidConfiguration = errors.New("invalid configuration")
