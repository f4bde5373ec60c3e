package repository

import (
	"errors"
)

var (
	ErrDatabaseUnavailable = errors.New("database is unavailable")
	ErrDatabaseGeneric     = errors.New("database error occurred while processing request")
	ErrInvalidIdentifier   = errors.New("invalid table or column identifier")
)
